package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrEthical07/authcore"
	"github.com/MrEthical07/authcore/middleware"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// msgRegistered is the same whether or not the account still needs verification.
const msgRegistered = "Registration successful. Check your email if verification is required."

// Service is the engine surface the handlers call. *authcore.Engine implements it.
type Service interface {
	Register(ctx context.Context, in authcore.RegisterInput) (*authcore.RegisterResult, error)
	Login(ctx context.Context, email, password string) (*authcore.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*authcore.RefreshResult, error)
	Logout(ctx context.Context)
	VerifyEmail(ctx context.Context, token string) error
	ResendVerification(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ValidateAccess(token string) (*authcore.AccessClaims, error)
	Profile(ctx context.Context, userID string) (*authcore.User, error)
	AccessTTL() time.Duration
	RefreshTTL() time.Duration
}

var _ Service = (*authcore.Engine)(nil)

// Handler serves the auth routes.
type Handler struct {
	svc     Service
	cookies CookieConfig
	logger  *slog.Logger
}

func NewHandler(svc Service, cookies CookieConfig, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, cookies: cookies, logger: logger}
}

// MountRoutes registers the /api/auth routes on r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", h.register)
		r.Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/refresh", h.refresh)
		r.Get("/verify-email/{token}", h.verifyEmail)
		r.Post("/resend-verification", h.resendVerification)
		r.Post("/request-password-reset", h.requestPasswordReset)
		r.Post("/reset-password/{token}", h.resetPassword)
	})

	guardOpts := []middleware.Option{
		middleware.WithUnauthorizedHandler(http.HandlerFunc(unauthorized)),
		middleware.WithForbiddenHandler(http.HandlerFunc(forbidden)),
	}
	r.With(
		middleware.Guard(h.svc, guardOpts...),
		middleware.RequireRole([]authcore.Role{authcore.RoleUser, authcore.RoleAdmin}, guardOpts...),
	).Get("/api/profile", h.profile)
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Password string `json:"password"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decode(w, r, &req) {
		return
	}

	_, err := h.svc.Register(r.Context(), authcore.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		RespondError(w, err)
		return
	}

	message(w, http.StatusCreated, msgRegistered)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		RespondError(w, err)
		return
	}

	h.cookies.setAccess(w, res.AccessToken, h.svc.AccessTTL())
	h.cookies.setRefresh(w, res.RefreshToken, h.svc.RefreshTTL())
	message(w, http.StatusOK, "Logged in")
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	h.svc.Logout(r.Context())
	h.cookies.clear(w)
	message(w, http.StatusOK, "Logged out")
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil || cookie.Value == "" {
		unauthorized(w, r)
		return
	}

	res, err := h.svc.Refresh(r.Context(), cookie.Value)
	if err != nil {
		RespondError(w, err)
		return
	}

	h.cookies.setAccess(w, res.AccessToken, h.svc.AccessTTL())
	message(w, http.StatusOK, "Token refreshed")
}

func (h *Handler) verifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.VerifyEmail(r.Context(), chi.URLParam(r, "token")); err != nil {
		RespondError(w, err)
		return
	}
	message(w, http.StatusOK, "Email verified")
}

func (h *Handler) resendVerification(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResendVerification(r.Context(), req.Email); err != nil {
		h.logger.WarnContext(r.Context(), "resend verification failed", slog.Any("error", err))
	}
	message(w, http.StatusOK, "If the account exists and is not verified, a verification link will be sent.")
}

func (h *Handler) requestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	// The response never depends on the body, including a malformed one.
	if err := decodeJSON(w, r, &req); err == nil {
		if err := h.svc.RequestPasswordReset(r.Context(), req.Email); err != nil {
			h.logger.WarnContext(r.Context(), "password reset request failed", slog.Any("error", err))
		}
	}
	message(w, http.StatusOK, "If email exists, a reset link will be sent.")
}

func (h *Handler) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.svc.ResetPassword(r.Context(), chi.URLParam(r, "token"), req.Password); err != nil {
		RespondError(w, err)
		return
	}
	message(w, http.StatusOK, "Password reset successful")
}

func (h *Handler) profile(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}

	user, err := h.svc.Profile(r.Context(), claims.UserID)
	if err != nil {
		RespondError(w, err)
		return
	}
	JSON(w, http.StatusOK, user)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		problem(w, http.StatusBadRequest, "Validation Failed", msgMalformedBody)
		return false
	}
	return true
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(dst)
}

func unauthorized(w http.ResponseWriter, _ *http.Request) {
	problem(w, http.StatusUnauthorized, "Unauthorized", msgUnauthorized)
}

func forbidden(w http.ResponseWriter, _ *http.Request) {
	problem(w, http.StatusForbidden, "Forbidden", msgForbidden)
}
