package handlers

import (
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okravchuk/contacts-api/internal/application/auth"
	"github.com/okravchuk/contacts-api/internal/domain"
	"github.com/okravchuk/contacts-api/internal/logger"
	"github.com/okravchuk/contacts-api/internal/transport/http/dto"
	"github.com/okravchuk/contacts-api/internal/transport/http/middleware"
	"github.com/okravchuk/contacts-api/internal/transport/http/response"
)

// avatar uploads are capped well below any sane profile image size
const maxAvatarBytes = 5 << 20

type AuthHandler struct {
	svc *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{svc: svc}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	res, err := h.svc.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	log := logger.WithCtx(r.Context())
	log.Info().
		Str("user_id", res.User.ID).
		Str("email", res.User.Email).
		Msg("user_registered")

	response.Created(w, dto.AuthData{
		User:   dto.NewUserView(res.User),
		Tokens: dto.NewTokensView(res.Tokens),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		// uniform failure: a malformed login attempt reads the same as a
		// wrong password
		middleware.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		response.WriteError(w, r, domain.ErrInvalidCredentials())
		return
	}

	res, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if domain.Is(err, "invalid_credentials") {
			middleware.LoginAttemptsTotal.WithLabelValues("invalid_credentials").Inc()
		} else {
			middleware.LoginAttemptsTotal.WithLabelValues("unavailable").Inc()
		}
		response.WriteError(w, r, err)
		return
	}

	middleware.LoginAttemptsTotal.WithLabelValues("success").Inc()
	log := logger.WithCtx(r.Context())
	log.Info().
		Str("user_id", res.User.ID).
		Msg("user_logged_in")

	response.OK(w, dto.AuthData{
		User:   dto.NewUserView(res.User),
		Tokens: dto.NewTokensView(res.Tokens),
	})
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req dto.RefreshRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	toks, user, err := h.svc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		switch {
		case domain.Is(err, "token_superseded"):
			middleware.TokenRefreshTotal.WithLabelValues("superseded").Inc()
		default:
			middleware.TokenRefreshTotal.WithLabelValues("invalid").Inc()
		}
		response.WriteError(w, r, err)
		return
	}

	middleware.TokenRefreshTotal.WithLabelValues("success").Inc()

	response.OK(w, dto.RefreshData{
		Tokens: dto.NewTokensView(toks),
		User:   dto.NewUserView(user),
	})
}

func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	if err := h.svc.LogoutAll(r.Context(), id.UserID); err != nil {
		response.WriteError(w, r, err)
		return
	}

	log := logger.WithCtx(r.Context())
	log.Info().
		Str("user_id", id.UserID).
		Msg("sessions_revoked")

	response.NoContent(w)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	u, err := h.svc.GetUserByID(r.Context(), id.UserID)
	if err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.OK(w, dto.MeData{User: dto.NewUserView(u)})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	var req dto.PasswordChangeRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.ChangePassword(r.Context(), id.UserID, req.OldPassword, req.NewPassword); err != nil {
		response.WriteError(w, r, err)
		return
	}

	log := logger.WithCtx(r.Context())
	log.Info().
		Str("user_id", id.UserID).
		Msg("password_changed")

	response.NoContent(w)
}

// ---- Email verification ----

func (h *AuthHandler) VerifyEmailRequest(w http.ResponseWriter, r *http.Request) {
	var req dto.VerifyEmailRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	req.Normalize()
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.RequestEmailVerification(r.Context(), req.Email); err != nil {
		response.WriteError(w, r, err)
		return
	}

	// 202 regardless of whether the address exists (no enumeration)
	response.Accepted(w, dto.StatusData{Status: "accepted"})
}

func (h *AuthHandler) VerifyEmailConfirm(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(chi.URLParam(r, "token"))
	h.confirmEmail(w, r, token)
}

// VerifyEmailConfirmQuery serves the link format mailed to users:
// GET /auth/v1/verify-email/confirm?token=...
func (h *AuthHandler) VerifyEmailConfirmQuery(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	h.confirmEmail(w, r, token)
}

func (h *AuthHandler) confirmEmail(w http.ResponseWriter, r *http.Request, token string) {
	if token == "" {
		response.WriteError(w, r, domain.ErrMissingField("token"))
		return
	}

	if err := h.svc.ConfirmEmailVerification(r.Context(), token); err != nil {
		switch {
		case domain.Is(err, "verify_token_expired"):
			middleware.EmailVerificationTotal.WithLabelValues("expired").Inc()
		case domain.Is(err, "verify_token_used"):
			middleware.EmailVerificationTotal.WithLabelValues("used").Inc()
		default:
			middleware.EmailVerificationTotal.WithLabelValues("invalid").Inc()
		}
		response.WriteError(w, r, err)
		return
	}

	middleware.EmailVerificationTotal.WithLabelValues("success").Inc()
	response.OK(w, dto.StatusData{Status: "verified"})
}

// ---- Avatar ----

func (h *AuthHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxAvatarBytes+1))
	if err != nil {
		response.WriteError(w, r, domain.ErrInvalidField("avatar", "unreadable body"))
		return
	}
	if len(data) == 0 {
		response.WriteError(w, r, domain.ErrMissingField("avatar"))
		return
	}
	if len(data) > maxAvatarBytes {
		response.WriteError(w, r, domain.ErrInvalidField("avatar", "too large"))
		return
	}

	contentType := r.Header.Get("Content-Type")
	if err := h.svc.EnqueueAvatar(id.UserID, data, contentType); err != nil {
		response.WriteError(w, r, err)
		return
	}

	response.Accepted(w, dto.StatusData{Status: "processing"})
}

// ---- Admin ----

func (h *AuthHandler) AdminSetUserRole(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		response.WriteError(w, r, domain.ErrTokenInvalid())
		return
	}

	targetID := strings.TrimSpace(chi.URLParam(r, "id"))
	if targetID == "" {
		response.WriteError(w, r, domain.ErrMissingField("id"))
		return
	}

	var req dto.SetRoleRequest
	if err := response.DecodeJSON(r, &req); err != nil {
		response.WriteError(w, r, err)
		return
	}
	if err := dto.Validate(&req); err != nil {
		response.WriteError(w, r, err)
		return
	}

	if err := h.svc.SetUserRole(r.Context(), id.UserID, id.Role, targetID, req.Role); err != nil {
		response.WriteError(w, r, err)
		return
	}

	log := logger.WithCtx(r.Context())
	log.Info().
		Str("actor_id", id.UserID).
		Str("target_id", targetID).
		Str("role", req.Role).
		Msg("role_updated")

	response.OK(w, dto.StatusData{Status: "role_updated"})
}
