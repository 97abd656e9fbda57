package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/caosaude/solicitacoes/internal/api/dto"
	"github.com/caosaude/solicitacoes/internal/domain"
	"github.com/caosaude/solicitacoes/internal/service"
)

// AuthService is the account surface used by the handler.
type AuthService interface {
	Register(ctx context.Context, actor *domain.Profile, input service.RegisterInput) (*domain.Profile, error)
	Login(ctx context.Context, email, password string) (*service.LoginResult, error)
	ChangePassword(ctx context.Context, actor *domain.Profile, currentPassword, newPassword string) error
	ListProfiles(ctx context.Context, actor *domain.Profile) ([]domain.Profile, error)
	DeleteProfile(ctx context.Context, actor *domain.Profile, id string) error
}

// AuthHandler exposes login and account management endpoints.
type AuthHandler struct {
	auth AuthService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService AuthService) *AuthHandler {
	return &AuthHandler{auth: authService}
}

// Login handles POST /api/v1/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if req.Email == "" || req.Password == "" {
		return invalidField("credentials", "required")
	}

	result, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"profile": dto.NewProfileResponse(result.Profile),
			"auth":    dto.AuthResponse{Token: result.AccessToken, ExpiresAt: result.Token.ExpiresAt},
		},
	})
}

// Register handles POST /api/v1/auth/register. Managers only.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}

	profile, err := h.auth.Register(c.UserContext(), actor, service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Organ:    req.Organ,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewProfileResponse(profile)})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewProfileResponse(actor)})
}

// ChangePassword handles POST /api/v1/auth/password.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidPayload()
	}
	if err := h.auth.ChangePassword(c.UserContext(), actor, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// ListProfiles handles GET /api/v1/profiles.
func (h *AuthHandler) ListProfiles(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	profiles, err := h.auth.ListProfiles(c.UserContext(), actor)
	if err != nil {
		return err
	}
	items := make([]dto.ProfileResponse, 0, len(profiles))
	for i := range profiles {
		items = append(items, dto.NewProfileResponse(&profiles[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// DeleteProfile handles DELETE /api/v1/profiles/:id.
func (h *AuthHandler) DeleteProfile(c *fiber.Ctx) error {
	actor, err := currentProfile(c)
	if err != nil {
		return err
	}
	if err := h.auth.DeleteProfile(c.UserContext(), actor, c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}
