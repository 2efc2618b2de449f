package services

import (
	"context"

	"go.uber.org/zap"

	"yuva/server/internal/auth"
	"yuva/server/internal/db"
	"yuva/server/internal/session"
)

// ISessionService signs users in and registers new accounts.
// Errors carry a user-facing text through SignInErrorMessage and SignUpErrorMessage.
type ISessionService interface {
	SignIn(ctx context.Context, email, password string) (*session.Identity, error)
	SignUp(ctx context.Context, email, password, confirmPassword string) (*session.Identity, error)
}

type sessionService struct {
	provider auth.Provider
	store    db.DocumentStore
	logger   *zap.Logger
}

func NewSessionService(provider auth.Provider, store db.DocumentStore, logger *zap.Logger) ISessionService {
	return &sessionService{provider: provider, store: store, logger: logger}
}

func (s *sessionService) SignIn(ctx context.Context, email, password string) (*session.Identity, error) {
	if email == "" || password == "" {
		return nil, &ValidationError{Message: MsgSignInFieldsMissing}
	}

	identity, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		s.logger.Info("Sign-in rejected", zap.String("code", auth.CodeOf(err)))
		return nil, &RemoteError{Op: "sign in", Err: err}
	}
	return identity, nil
}

// SignUp creates the account and then its profile record. The two writes are
// not atomic: when the profile write fails the account exists without one and
// the failure is still reported to the caller.
func (s *sessionService) SignUp(ctx context.Context, email, password, confirmPassword string) (*session.Identity, error) {
	if email == "" || password == "" || confirmPassword == "" {
		return nil, &ValidationError{Message: MsgSignUpFieldsMissing}
	}
	if password != confirmPassword {
		return nil, &ValidationError{Message: MsgSignUpPasswordMismatch}
	}

	identity, err := s.provider.SignUp(ctx, email, password)
	if err != nil {
		s.logger.Info("Sign-up rejected", zap.String("code", auth.CodeOf(err)))
		return nil, &RemoteError{Op: "sign up", Err: err}
	}

	err = s.store.Set(ctx, db.UsersCollection, identity.ID, map[string]interface{}{
		fieldProfileEmail: auth.NormalizeEmail(email),
		fieldProfileDate:  db.ServerTimestamp,
		fieldProfileID:    identity.ID,
	})
	if err != nil {
		s.logger.Error("Account created without profile", zap.String("user_id", identity.ID), zap.Error(err))
		return nil, &RemoteError{Op: "create profile", Err: err}
	}

	return identity, nil
}
