package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-chronos/internal/auth"
	"github.com/ryanbastic/go-chronos/internal/metrics"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/ryanbastic/go-chronos/internal/storage"
)

// --- Huma Input/Output types ---

type GoogleLoginBody struct {
	IDToken string `json:"idToken" doc:"Google ID token" required:"true" minLength:"1"`
}

type GoogleLoginInput struct {
	Body GoogleLoginBody
}

type SessionResponse struct {
	User      *model.User `json:"user" doc:"Signed-in user"`
	Token     string      `json:"token" doc:"Session token for the Authorization header"`
	ExpiresAt time.Time   `json:"expiresAt" doc:"Session expiry"`
}

type SessionBody struct {
	Data SessionResponse `json:"data"`
}

type GoogleLoginOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      SessionBody
}

type UserBody struct {
	Data *model.User `json:"data"`
}

type UserOutput struct {
	Body UserBody
}

type LogoutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
}

// --- Handler ---

type AuthHandler struct {
	users        storage.UserStore
	sessions     *auth.Issuer
	identity     auth.IdentityVerifier
	revocations  auth.RevocationStore
	cookieSecure bool
	logger       *slog.Logger
}

func NewAuthHandler(users storage.UserStore, sessions *auth.Issuer, identity auth.IdentityVerifier, revocations auth.RevocationStore, cookieSecure bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		users:        users,
		sessions:     sessions,
		identity:     identity,
		revocations:  revocations,
		cookieSecure: cookieSecure,
		logger:       logger,
	}
}

func registerAuthRoutes(api huma.API, h *AuthHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "google-login",
		Method:      http.MethodPost,
		Path:        "/api/auth/google",
		Summary:     "Sign in with a Google ID token",
		Tags:        []string{"auth"},
	}, h.GoogleLogin)

	huma.Register(api, huma.Operation{
		OperationID: "check-auth",
		Method:      http.MethodGet,
		Path:        "/api/auth/check-auth",
		Summary:     "Get the signed-in user",
		Tags:        []string{"auth"},
	}, h.CheckAuth)

	huma.Register(api, huma.Operation{
		OperationID:   "logout",
		Method:        http.MethodPost,
		Path:          "/api/auth/logout",
		Summary:       "Revoke the current session",
		Tags:          []string{"auth"},
		DefaultStatus: http.StatusNoContent,
	}, h.Logout)
}

func (h *AuthHandler) GoogleLogin(ctx context.Context, input *GoogleLoginInput) (*GoogleLoginOutput, error) {
	if h.identity == nil {
		return nil, huma.Error501NotImplemented("identity provider not configured")
	}

	identity, err := h.identity.Verify(ctx, input.Body.IDToken)
	if err != nil {
		metrics.AuthEvent(metrics.AuthRejected)
		if errors.Is(err, auth.ErrInvalidToken) {
			return nil, huma.Error401Unauthorized("invalid ID token")
		}
		h.logger.Error("failed to verify ID token", "error", err)
		return nil, huma.Error503ServiceUnavailable("identity provider unavailable")
	}

	user, err := h.users.UpsertUser(ctx, identity)
	if err != nil {
		return nil, storeError(h.logger, "failed to sign in", err, "email", identity.Email)
	}

	token, claims, err := h.sessions.Issue(user.ID)
	if err != nil {
		h.logger.Error("failed to issue session", "user_id", user.ID, "error", err)
		return nil, huma.Error500InternalServerError("failed to sign in")
	}

	metrics.AuthEvent(metrics.AuthLogin)
	h.logger.Info("user signed in", "user_id", user.ID)

	expires := claims.ExpiresAt.Time
	return &GoogleLoginOutput{
		SetCookie: h.cookie(token, expires),
		Body: SessionBody{Data: SessionResponse{
			User:      user,
			Token:     token,
			ExpiresAt: expires,
		}},
	}, nil
}

func (h *AuthHandler) CheckAuth(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	user, err := h.users.GetUser(ctx, session.UserID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, huma.Error401Unauthorized("account no longer exists")
	}
	if err != nil {
		return nil, storeError(h.logger, "failed to load user", err, "user_id", session.UserID)
	}
	return &UserOutput{Body: UserBody{Data: user}}, nil
}

func (h *AuthHandler) Logout(ctx context.Context, _ *struct{}) (*LogoutOutput, error) {
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}

	until := time.Now().Add(h.sessions.TTL())
	if session.Claims.ExpiresAt != nil {
		until = session.Claims.ExpiresAt.Time
	}
	if err := h.revocations.Revoke(ctx, session.Claims.ID, until); err != nil {
		h.logger.Error("failed to revoke session", "user_id", session.UserID, "error", err)
		return nil, huma.Error503ServiceUnavailable("failed to sign out")
	}

	metrics.AuthEvent(metrics.AuthLogout)
	h.logger.Info("user signed out", "user_id", session.UserID)

	return &LogoutOutput{SetCookie: h.cookie("", time.Unix(0, 0))}, nil
}

// cookie builds the session cookie. An empty token expires it.
func (h *AuthHandler) cookie(token string, expires time.Time) http.Cookie {
	c := http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires.UTC(),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	}
	if token == "" {
		c.MaxAge = -1
	}
	return c
}
