package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/caosaude/solicitacoes/internal/auth"
	"github.com/caosaude/solicitacoes/internal/config"
	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/repository"
	apperrors "github.com/caosaude/solicitacoes/pkg/util/errorutil"
)

// AuthService coordinates account registration and login.
type AuthService struct {
	profiles   repository.ProfileRepository
	tokenMgr   *auth.TokenManager
	validator  *validator.Validate
	logger     *zap.Logger
	bcryptCost int
}

// AuthDependencies encapsulates repo requirements for auth service.
type AuthDependencies struct {
	ProfileRepo repository.ProfileRepository
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// RegisterInput describes a new account.
type RegisterInput struct {
	Name     string      `json:"name" validate:"required,max=255"`
	Email    string      `json:"email" validate:"required,email"`
	Password string      `json:"password" validate:"required,min=8"`
	Phone    *string     `json:"phone" validate:"omitempty,max=40"`
	Organ    *string     `json:"organ" validate:"omitempty,max=255"`
	Role     domain.Role `json:"role" validate:"omitempty,oneof=manager requester"`
}

// LoginResult carries the authenticated profile and its access token.
type LoginResult struct {
	Profile     *domain.Profile
	AccessToken string
	Token       domain.Token
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := deps.Validator
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{
		profiles:   deps.ProfileRepo,
		tokenMgr:   auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenTTLMinutes),
		validator:  validate,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Register creates an account. Only managers register accounts; the role
// defaults to requester.
func (s *AuthService) Register(ctx context.Context, actor *domain.Profile, input RegisterInput) (*domain.Profile, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("manager role required")
	}
	return s.createProfile(ctx, input)
}

// Login authenticates by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	profile, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, apperrors.NewUnavailable(fmt.Errorf("get profile: %w", err))
	}
	if err := auth.ComparePassword(profile.PasswordHash, password); err != nil {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}
	raw, token, err := s.tokenMgr.GenerateToken(profile)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &LoginResult{Profile: profile, AccessToken: raw, Token: token}, nil
}

// ChangePassword verifies the current password before storing a new hash.
func (s *AuthService) ChangePassword(ctx context.Context, actor *domain.Profile, currentPassword, newPassword string) error {
	if actor == nil {
		return apperrors.NewUnauthorized("authentication required")
	}
	if len(newPassword) < auth.MinPasswordLength {
		return apperrors.NewValidationError("invalid password", map[string]any{
			"fields": map[string]string{"new_password": "min"},
		})
	}
	if err := auth.ComparePassword(actor.PasswordHash, currentPassword); err != nil {
		return apperrors.NewUnauthorized("invalid credentials")
	}
	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperrors.NewInternalError(err)
	}
	if err := s.profiles.UpdatePassword(ctx, actor.ID, hash); err != nil {
		return apperrors.NewUnavailable(fmt.Errorf("update password: %w", err))
	}
	return nil
}

// ListProfiles returns every account. Managers only.
func (s *AuthService) ListProfiles(ctx context.Context, actor *domain.Profile) ([]domain.Profile, error) {
	if !actor.IsManager() {
		return nil, apperrors.NewForbidden("manager role required")
	}
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, apperrors.NewUnavailable(fmt.Errorf("list profiles: %w", err))
	}
	return profiles, nil
}

// DeleteProfile removes an account. Managers cannot remove themselves.
func (s *AuthService) DeleteProfile(ctx context.Context, actor *domain.Profile, id string) error {
	if !actor.IsManager() {
		return apperrors.NewForbidden("manager role required")
	}
	if actor.ID == id {
		return apperrors.NewConflict("cannot delete own account", nil)
	}
	if err := s.profiles.Delete(ctx, id); err != nil {
		if apperrors.IsNotFound(err) {
			return apperrors.NewNotFound("profile", map[string]any{"id": id})
		}
		return apperrors.NewUnavailable(fmt.Errorf("delete profile: %w", err))
	}
	return nil
}

// EnsureBootstrapAdmin creates the configured manager account when it does
// not exist yet. An empty email disables bootstrapping.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, cfg config.BootstrapConfig) error {
	if strings.TrimSpace(cfg.AdminEmail) == "" {
		return nil
	}
	if _, err := s.profiles.GetByEmail(ctx, cfg.AdminEmail); err == nil {
		return nil
	} else if !apperrors.IsNotFound(err) {
		return fmt.Errorf("lookup bootstrap admin: %w", err)
	}

	profile, err := s.createProfile(ctx, RegisterInput{
		Name:     cfg.AdminName,
		Email:    cfg.AdminEmail,
		Password: cfg.AdminPassword,
		Role:     domain.RoleManager,
	})
	if err != nil {
		return fmt.Errorf("create bootstrap admin: %w", err)
	}
	s.logger.Info("bootstrap manager created", zap.String("profile_id", profile.ID), zap.String("email", profile.Email))
	return nil
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) createProfile(ctx context.Context, input RegisterInput) (*domain.Profile, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := s.validator.Struct(input); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, apperrors.NewInternalError(err)
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fe.Tag()
		}
		return nil, apperrors.NewValidationError("invalid account fields", map[string]any{"fields": fields})
	}

	if _, err := s.profiles.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperrors.NewConflict("email already registered", map[string]any{"email": input.Email})
	} else if !apperrors.IsNotFound(err) {
		return nil, apperrors.NewUnavailable(fmt.Errorf("get profile: %w", err))
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	role := input.Role
	if role == "" {
		role = domain.RoleRequester
	}
	profile := &domain.Profile{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		Organ:        input.Organ,
		Role:         role,
		PasswordHash: hash,
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		return nil, apperrors.NewUnavailable(fmt.Errorf("create profile: %w", err))
	}
	return profile, nil
}
