package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"yuva/server/internal/api/handlers"
	"yuva/server/internal/api/middleware"
	"yuva/server/internal/config"
	"yuva/server/internal/db"
	"yuva/server/internal/email"
	"yuva/server/internal/services"
	"yuva/server/internal/storage"
)

// Deps are the collaborators the public API is built from. Images may be nil
// when S3 is not configured.
type Deps struct {
	Store    db.DocumentStore
	Sessions services.ISessionService
	Listings services.IListingService
	Adoption services.IAdoptionService
	Images   storage.IImageStorage
}

// SetupRouter configures and returns the main Gin engine.
func SetupRouter(cfg *config.Config, deps Deps, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg, logger)

	// Order matters: the rate limiter keys on the identity OptionalAuth sets.
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.OptionalAuth(cfg.JwtSecret, logger))
	r.Use(rateLimiter.Limit())

	jsonApiHandler := handlers.NewJsonApiHandler(cfg, deps.Sessions, deps.Listings, deps.Adoption, deps.Images, logger)
	restListingHandler := handlers.NewRestListingHandler(deps.Store, deps.Listings, logger)
	liveHandler := handlers.NewLiveHandler(deps.Store, cfg.AllowedOrigins, logger)

	v1 := r.Group("/v1")
	{
		v1.POST("/api", jsonApiHandler.HandleRequest)

		v1.GET("/listing", restListingHandler.SearchListings)
		v1.GET("/listing/:id", restListingHandler.GetListingByID)

		v1.GET("/live/listings", liveHandler.Listings)
		v1.GET("/live/inbox", liveHandler.Inbox)

		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		authRequired := v1.Group("/")
		authRequired.Use(middleware.RequireAuth())
		{
			authRequired.GET("/inbox", restListingHandler.GetInbox)
		}
	}

	return r
}

const (
	testEmailPollAttempts = 10
	testEmailPollInterval = 200 * time.Millisecond
)

// SetupServiceRouter configures the internal service API: shutdown and
// retrieval of mock emails captured in Redis.
func SetupServiceRouter(rdb redis.Cmdable, shutdownChan chan<- struct{}, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger(logger))

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			logger.Info("Received shutdown command via Service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "data": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				logger.Warn("Shutdown already signaled")
			}
		case "getTestEmail":
			getTestEmail(c, rdb, req.Arguments, logger)
		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}

// getTestEmail expects arguments ["kind", "address"] and returns the newest
// captured mail for that pair, deleting it.
func getTestEmail(c *gin.Context, rdb redis.Cmdable, rawArgs json.RawMessage, logger *zap.Logger) {
	var args []string
	if err := json.Unmarshal(rawArgs, &args); err != nil || len(args) != 2 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [kind, email]"})
		return
	}
	redisKey := email.MockMailKey(args[1], args[0])

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	var stored string
	found := false
	for i := 0; i < testEmailPollAttempts; i++ {
		val, err := rdb.Get(ctx, redisKey).Result()
		if err == nil {
			stored = val
			found = true
			rdb.Del(ctx, redisKey)
			break
		}
		if !errors.Is(err, redis.Nil) {
			logger.Error("Failed to read test email", zap.String("key", redisKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
			return
		}
		time.Sleep(testEmailPollInterval)
	}

	if !found {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found in Redis for key %s", redisKey)})
		return
	}

	var emailData map[string]interface{}
	if err := json.Unmarshal([]byte(stored), &emailData); err != nil {
		logger.Error("Failed to parse test email", zap.String("key", redisKey), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to parse stored email data"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": emailData})
}
