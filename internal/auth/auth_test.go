package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/caosaude/solicitacoes/internal/domain"
	apperrors "github.com/caosaude/solicitacoes/pkg/util/errorutil"
)

type stubProfiles struct {
	byID map[string]*domain.Profile
}

func (s *stubProfiles) Create(context.Context, *domain.Profile) error { return nil }
func (s *stubProfiles) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	if p, ok := s.byID[id]; ok {
		return p, nil
	}
	return nil, pgx.ErrNoRows
}
func (s *stubProfiles) GetByEmail(context.Context, string) (*domain.Profile, error) {
	return nil, pgx.ErrNoRows
}
func (s *stubProfiles) List(context.Context) ([]domain.Profile, error)       { return nil, nil }
func (s *stubProfiles) UpdatePassword(context.Context, string, string) error { return nil }
func (s *stubProfiles) Delete(context.Context, string) error                 { return nil }

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	profile := &domain.Profile{ID: "p-1", Role: domain.RoleManager}

	raw, meta, err := tm.GenerateToken(profile)
	require.NoError(t, err)
	assert.Equal(t, "p-1", meta.SubjectID)
	assert.WithinDuration(t, meta.IssuedAt.Add(15*time.Minute), meta.ExpiresAt, time.Second)

	claims, err := tm.ParseToken(raw)
	require.NoError(t, err)
	assert.Equal(t, "p-1", claims.Subject)
	assert.Equal(t, domain.RoleManager, claims.Role)
	assert.Equal(t, meta.ID, claims.ID)
}

func TestTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	tm := NewTokenManager("secret", 1)
	raw, _, err := tm.GenerateToken(&domain.Profile{ID: "p-1", Role: domain.RoleRequester})
	require.NoError(t, err)

	_, err = NewTokenManager("other", 1).ParseToken(raw)
	assert.Error(t, err)

	later := NewTokenManager("secret", 1)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = later.ParseToken(raw)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, ComparePassword(hash, "s3cret!"))
	assert.Error(t, ComparePassword(hash, "wrong"))
}

func newTestApp(tm *TokenManager, profiles *stubProfiles, guard fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Code)
		},
	})
	mw := NewAuthMiddleware(tm, profiles)
	app.Get("/private", mw.Handle, guard, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(principal.ID())
	})
	return app
}

func TestMiddlewareAndRoles(t *testing.T) {
	tm := NewTokenManager("secret", 15)
	manager := &domain.Profile{ID: "m-1", Role: domain.RoleManager}
	requester := &domain.Profile{ID: "r-1", Role: domain.RoleRequester}
	profiles := &stubProfiles{byID: map[string]*domain.Profile{"m-1": manager, "r-1": requester}}
	app := newTestApp(tm, profiles, RequireManager())

	managerToken, _, err := tm.GenerateToken(manager)
	require.NoError(t, err)
	requesterToken, _, err := tm.GenerateToken(requester)
	require.NoError(t, err)
	ghostToken, _, err := tm.GenerateToken(&domain.Profile{ID: "ghost", Role: domain.RoleManager})
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"malformed header", "Token abc", http.StatusUnauthorized},
		{"garbage token", "Bearer abc", http.StatusUnauthorized},
		{"unknown profile", "Bearer " + ghostToken, http.StatusUnauthorized},
		{"requester forbidden", "Bearer " + requesterToken, http.StatusForbidden},
		{"manager allowed", "Bearer " + managerToken, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/private", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}
