package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"yuva/server/internal/auth"
	"yuva/server/internal/config"
	"yuva/server/internal/models"
	"yuva/server/internal/services"
	"yuva/server/internal/session"
	"yuva/server/internal/storage"
)

// JsonApiRequest defines the expected structure for JSON API requests.
type JsonApiRequest struct {
	Method    string          `json:"method"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// JsonApiResponse defines the structure for JSON API responses.
type JsonApiResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// apiMethodFunc defines the signature for handler methods.
type apiMethodFunc func(c *gin.Context, args json.RawMessage) (interface{}, *ApiError)

type ApiError struct {
	Message string
}

func (e *ApiError) Error() string {
	return e.Message
}

func NewApiError(message string) *ApiError {
	return &ApiError{Message: message}
}

// JsonApiHandler serves POST /v1/api. The caller's identity is read from the
// request context, where middleware.OptionalAuth put it.
type JsonApiHandler struct {
	cfg             *config.Config
	sessionService  services.ISessionService
	listingService  services.IListingService
	adoptionService services.IAdoptionService
	storageService  storage.IImageStorage
	logger          *zap.Logger
	methods         map[string]apiMethodFunc
}

// NewJsonApiHandler creates a new handler for the JSON API endpoint.
// storageService may be nil when uploads are not configured.
func NewJsonApiHandler(
	cfg *config.Config,
	sessionService services.ISessionService,
	listingService services.IListingService,
	adoptionService services.IAdoptionService,
	storageService storage.IImageStorage,
	logger *zap.Logger,
) *JsonApiHandler {
	h := &JsonApiHandler{
		cfg:             cfg,
		sessionService:  sessionService,
		listingService:  listingService,
		adoptionService: adoptionService,
		storageService:  storageService,
		logger:          logger,
	}
	h.methods = map[string]apiMethodFunc{
		"ping":              h.ping,
		"signIn":            h.signIn,
		"signUp":            h.signUp,
		"refreshToken":      h.refreshToken,
		"publishListing":    h.publishListing,
		"requestAdoption":   h.requestAdoption,
		"getImageUploadURL": h.getImageUploadURL,
	}
	return h
}

// HandleRequest is the main entry point for POST /v1/api
func (h *JsonApiHandler) HandleRequest(c *gin.Context) {
	bodyBytes, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.sendErrorResponse(c, "Failed to read request body")
		return
	}

	var req JsonApiRequest
	if err := json.Unmarshal(bodyBytes, &req); err != nil {
		h.sendErrorResponse(c, "Invalid JSON request format")
		return
	}

	handlerFunc, ok := h.methods[req.Method]
	if !ok {
		h.sendErrorResponse(c, fmt.Sprintf("Unknown method: %s", req.Method))
		return
	}

	if methodRequiresAuth(req.Method) && session.FromContext(c.Request.Context()) == nil {
		h.sendErrorResponse(c, "Authorization required")
		return
	}

	result, apiErr := handlerFunc(c, req.Arguments)
	if apiErr != nil {
		h.sendErrorResponse(c, apiErr.Message)
		return
	}

	h.sendSuccessResponse(c, result)
}

// methodRequiresAuth lists methods rejected for guests before dispatch.
// requestAdoption is absent: it reports its own sign-in prompt.
func methodRequiresAuth(method string) bool {
	switch method {
	case "refreshToken", "getImageUploadURL":
		return true
	default:
		return false
	}
}

func (h *JsonApiHandler) sendSuccessResponse(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: true, Data: data})
}

func (h *JsonApiHandler) sendErrorResponse(c *gin.Context, message string) {
	c.JSON(http.StatusOK, JsonApiResponse{Success: false, Error: message})
}

// parseRequiredSingleArgFromArray takes the raw JSON message for 'arguments',
// expects it to be a JSON array with at least one element,
// and unmarshals that first element into targetVarPtr.
func parseRequiredSingleArgFromArray(rawArgPayload json.RawMessage, targetVarPtr interface{}) *ApiError {
	if rawArgPayload == nil {
		return NewApiError("Missing 'arguments' field; expected a JSON array with one argument.")
	}

	var argArray []json.RawMessage
	if err := json.Unmarshal(rawArgPayload, &argArray); err != nil {
		return NewApiError("Invalid 'arguments': expected a JSON array.")
	}
	if len(argArray) == 0 {
		return NewApiError("Invalid 'arguments': array is empty, but one argument is expected.")
	}

	if err := json.Unmarshal(argArray[0], targetVarPtr); err != nil {
		return NewApiError("Invalid format for argument: the first element in 'arguments' array has unexpected structure.")
	}
	return nil
}

// --- API Method Implementations ---

func (h *JsonApiHandler) ping(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	return "pong", nil
}

type SignInArgs struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpArgs struct {
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// SessionResult is returned by signIn and signUp.
type SessionResult struct {
	Token   string            `json:"token"`
	User    *session.Identity `json:"user"`
	Message string            `json:"message"`
}

func (h *JsonApiHandler) signIn(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs SignInArgs
	if apiErr := parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}

	identity, err := h.sessionService.SignIn(c.Request.Context(), reqArgs.Email, reqArgs.Password)
	if err != nil {
		return nil, NewApiError(services.SignInErrorMessage(err))
	}
	return h.sessionResult(identity, services.MsgSignedIn)
}

func (h *JsonApiHandler) signUp(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs SignUpArgs
	if apiErr := parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}

	identity, err := h.sessionService.SignUp(c.Request.Context(), reqArgs.Email, reqArgs.Password, reqArgs.ConfirmPassword)
	if err != nil {
		return nil, NewApiError(services.SignUpErrorMessage(err))
	}
	return h.sessionResult(identity, services.MsgSignedUp)
}

func (h *JsonApiHandler) sessionResult(identity *session.Identity, message string) (interface{}, *ApiError) {
	token, err := auth.GenerateJWT(identity, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		h.logger.Error("Failed to generate session token", zap.String("user_id", identity.ID), zap.Error(err))
		return nil, NewApiError(services.MsgSignInFailed)
	}
	return SessionResult{Token: token, User: identity, Message: message}, nil
}

func (h *JsonApiHandler) refreshToken(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	_ = args
	identity := session.FromContext(c.Request.Context())

	newToken, err := auth.GenerateJWT(identity, h.cfg.JwtSecret, h.cfg.JwtTTL)
	if err != nil {
		h.logger.Error("Failed to refresh session token", zap.String("user_id", identity.ID), zap.Error(err))
		return nil, NewApiError("Failed to refresh session token")
	}
	return newToken, nil
}

// PublishListingResult is returned by publishListing.
type PublishListingResult struct {
	ListingID string `json:"listing_id"`
	Message   string `json:"message"`
}

func (h *JsonApiHandler) publishListing(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var form models.ListingForm
	if apiErr := parseRequiredSingleArgFromArray(args, &form); apiErr != nil {
		return nil, apiErr
	}

	ctx := c.Request.Context()
	id, err := h.listingService.SubmitListing(ctx, session.FromContext(ctx), form)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			return nil, NewApiError(verr.Message)
		}
		return nil, NewApiError(services.MsgListingPublishFailed)
	}
	return PublishListingResult{ListingID: id, Message: services.MsgListingPublished}, nil
}

type RequestAdoptionArgs struct {
	ListingID string `json:"listing_id"`
}

// RequestAdoptionResult is returned by requestAdoption.
type RequestAdoptionResult struct {
	MessageID string `json:"message_id"`
	Message   string `json:"message"`
}

func (h *JsonApiHandler) requestAdoption(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	var reqArgs RequestAdoptionArgs
	if apiErr := parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}

	ctx := c.Request.Context()
	identity := session.FromContext(ctx)
	if identity == nil {
		return nil, NewApiError(services.MsgAdoptionAuthRequired)
	}
	if reqArgs.ListingID == "" {
		return nil, NewApiError("Missing required argument (listing_id)")
	}

	listing, err := h.listingService.FindListingByID(ctx, reqArgs.ListingID)
	if err != nil {
		if errors.Is(err, services.ErrListingNotFound) {
			return nil, NewApiError(services.MsgListingNotFound)
		}
		h.logger.Error("Failed to load listing for adoption request", zap.String("listing_id", reqArgs.ListingID), zap.Error(err))
		return nil, NewApiError(services.MsgAdoptionFailed)
	}

	messageID, err := h.adoptionService.RequestAdoption(ctx, identity, *listing)
	switch {
	case err == nil:
		return RequestAdoptionResult{MessageID: messageID, Message: services.MsgAdoptionSent}, nil
	case errors.Is(err, services.ErrAuthRequired):
		return nil, NewApiError(services.MsgAdoptionAuthRequired)
	case errors.Is(err, services.ErrSelfRequest):
		return nil, NewApiError(services.MsgAdoptionSelfRequest)
	default:
		return nil, NewApiError(services.MsgAdoptionFailed)
	}
}

type GetImageUploadURLArgs struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
}

func (h *JsonApiHandler) getImageUploadURL(c *gin.Context, args json.RawMessage) (interface{}, *ApiError) {
	if h.storageService == nil {
		return nil, NewApiError("Image uploads are not available")
	}

	var reqArgs GetImageUploadURLArgs
	if apiErr := parseRequiredSingleArgFromArray(args, &reqArgs); apiErr != nil {
		return nil, apiErr
	}
	if reqArgs.Filename == "" || reqArgs.ContentType == "" {
		return nil, NewApiError("Missing required arguments (filename, content_type)")
	}

	ctx := c.Request.Context()
	identity := session.FromContext(ctx)
	upload, err := h.storageService.PresignImageUpload(ctx, identity.ID, reqArgs.Filename, reqArgs.ContentType)
	if err != nil {
		h.logger.Error("Failed to presign image upload", zap.String("user_id", identity.ID), zap.Error(err))
		return nil, NewApiError("Failed to generate upload URL")
	}
	return upload, nil
}
