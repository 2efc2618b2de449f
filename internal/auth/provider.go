package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"yuva/server/internal/db"
	"yuva/server/internal/models"
	"yuva/server/internal/session"
	"yuva/server/internal/utils"
)

// Provider verifies and creates email/password credentials. Failures are
// returned as *Error with one of the Code constants.
type Provider interface {
	SignIn(ctx context.Context, email, password string) (*session.Identity, error)
	SignUp(ctx context.Context, email, password string) (*session.Identity, error)
}

type mongoProvider struct {
	accounts *mongo.Collection
	limiter  *FailureLimiter
	logger   *zap.Logger
}

// NewMongoProvider stores accounts in the auth accounts collection, which
// must carry a unique index on email (see db.EnsureIndexes).
func NewMongoProvider(database *mongo.Database, limiter *FailureLimiter, logger *zap.Logger) Provider {
	return &mongoProvider{
		accounts: database.Collection(db.AccountsCollection),
		limiter:  limiter,
		logger:   logger,
	}
}

func (p *mongoProvider) SignIn(ctx context.Context, email, password string) (*session.Identity, error) {
	email = NormalizeEmail(email)
	if !IsValidEmail(email) {
		return nil, newError(CodeInvalidEmail)
	}
	if p.limiter.Blocked(email) {
		return nil, newError(CodeTooManyRequests)
	}

	var account models.Account
	err := p.accounts.FindOne(ctx, bson.M{"email": email}).Decode(&account)
	if errors.Is(err, mongo.ErrNoDocuments) {
		p.limiter.Fail(email)
		return nil, newError(CodeUserNotFound)
	}
	if err != nil {
		return nil, &Error{Code: CodeInternal, Err: err}
	}

	if !CheckPasswordHash(password, account.PasswordHash) {
		p.limiter.Fail(email)
		return nil, newError(CodeWrongPassword)
	}

	p.limiter.Reset(email)
	return &session.Identity{ID: account.ID, Email: account.Email}, nil
}

func (p *mongoProvider) SignUp(ctx context.Context, email, password string) (*session.Identity, error) {
	email = NormalizeEmail(email)
	if !IsValidEmail(email) {
		return nil, newError(CodeInvalidEmail)
	}
	if IsWeakPassword(password) {
		return nil, newError(CodeWeakPassword)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, &Error{Code: CodeInternal, Err: err}
	}

	account := models.Account{Email: email, PasswordHash: hash, CreatedAt: time.Now().UTC()}
	err = db.WithRetries(func() error {
		account.ID = utils.NewSixID().String()
		_, err := p.accounts.InsertOne(ctx, account)
		return err
	}, db.DefaultMaxRetries, isKeyCollision)
	if db.IsMongoDuplicateKeyError(err) {
		return nil, newError(CodeEmailAlreadyInUse)
	}
	if err != nil {
		return nil, &Error{Code: CodeInternal, Err: err}
	}

	p.logger.Info("Account created", zap.String("user_id", account.ID))
	return &session.Identity{ID: account.ID, Email: account.Email}, nil
}

// isKeyCollision separates a random _id clash, which is retried, from a
// taken email, which is not.
func isKeyCollision(err error) bool {
	return db.IsMongoDuplicateKeyError(err) && strings.Contains(err.Error(), "_id_")
}
