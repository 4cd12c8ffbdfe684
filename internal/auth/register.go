package auth

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/contentforge/contentforge-backend/internal/risk"
	"github.com/contentforge/contentforge-backend/internal/users"
	"github.com/contentforge/contentforge-backend/pkg/config"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/security"
)

// RiskEvaluator scores the new account inside the signup transaction.
type RiskEvaluator interface {
	EvaluateSignup(ctx context.Context, tx *gorm.DB, user *models.User) (*risk.Assessment, error)
}

type registerUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

type registerTxRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterService handles the signup transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest, signupIP string) (*users.UserDTO, error)
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	TxRunner        registerTxRunner
	UserRepoFactory func(tx *gorm.DB) registerUserRepository
	Risk            RiskEvaluator
	PasswordConfig  config.PasswordConfig
}

type registerService struct {
	txRunner    registerTxRunner
	userRepo    func(tx *gorm.DB) registerUserRepository
	risk        RiskEvaluator
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Risk == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "risk evaluator required")
	}
	userRepo := params.UserRepoFactory
	if userRepo == nil {
		userRepo = func(tx *gorm.DB) registerUserRepository {
			return users.NewRepository(tx)
		}
	}
	return &registerService{
		txRunner:    params.TxRunner,
		userRepo:    userRepo,
		risk:        params.Risk,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Register creates the account on the free tier and scores it for abuse in
// the same transaction. A flagged verdict never fails the signup.
func (s *registerService) Register(ctx context.Context, req RegisterRequest, signupIP string) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if len(req.Password) < 8 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 8 characters")
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		userRepo := s.userRepo(tx)

		if _, err := userRepo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "check user email")
		}

		user, err := userRepo.Create(ctx, users.CreateUserDTO{
			Email:             email,
			PasswordHash:      passwordHash,
			Name:              name,
			SignupIP:          signupIP,
			DeviceFingerprint: strings.TrimSpace(req.DeviceFingerprint),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "create user")
		}

		assessment, err := s.risk.EvaluateSignup(ctx, tx, user)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "evaluate signup risk")
		}
		user.RiskScore = assessment.Score
		user.IsFlagged = assessment.Flagged

		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users.FromModel(created), nil
}
