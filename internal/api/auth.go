package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"ideias/internal/apperr"
	"ideias/internal/auth"
	"ideias/internal/db"
	"ideias/internal/models"
	"ideias/internal/session"
)

type AuthHandler struct {
	auth       *auth.Service
	sessions   *session.Manager
	ipResolver *ClientIPResolver
}

func NewAuthHandler(authService *auth.Service, sessions *session.Manager, ipResolver *ClientIPResolver) *AuthHandler {
	return &AuthHandler{
		auth:       authService,
		sessions:   sessions,
		ipResolver: ipResolver,
	}
}

type userBody struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	Register string `json:"register,omitempty"`
}

func newUserBody(u *models.User) userBody {
	return userBody{ID: u.ID, Email: u.Email, Name: u.Name, Register: u.Register}
}

func (h *AuthHandler) clientInfo(r *http.Request) models.ClientInfo {
	return models.ClientInfo{
		UserAgent: r.UserAgent(),
		IP:        h.ipResolver.Resolve(r),
	}
}

// POST /api/v1/auth/signup
type SignupRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
	Name     string `json:"name" validate:"max=255"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	email := db.NormalizeEmail(req.Email)
	if !validEmail(email) {
		badRequest(w, "invalid email format")
		return
	}

	result, err := h.auth.Signup(r.Context(), email, req.Password, req.Name)
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeOK(w, http.StatusCreated, envelope{
		"user":        newUserBody(result.User),
		"verify_link": result.VerifyLink,
	})
}

// POST /api/v1/auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	result, err := h.auth.Login(r.Context(), req.Email, req.Password, h.clientInfo(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	h.sessions.SetCookie(w, result.Session)
	writeOK(w, http.StatusOK, envelope{
		"user":           newUserBody(result.User),
		"email_verified": result.User.EmailVerified,
	})
}

// POST /api/v1/auth/google
type GoogleLoginRequest struct {
	IDToken string `json:"id_token" validate:"required,max=8192"`
}

func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	var req GoogleLoginRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		// A missing token is a token problem, not a malformed request.
		if apperr.CodeOf(err) == apperr.ErrInvalidData.Code {
			err = apperr.ErrTokenInvalid
		}
		writeFailure(w, r, err)
		return
	}

	result, err := h.auth.LoginWithGoogle(r.Context(), req.IDToken, h.clientInfo(r))
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	h.sessions.SetCookie(w, result.Session)
	writeOK(w, http.StatusOK, envelope{"user": newUserBody(result.User)})
}

// POST /api/v1/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		if err := h.sessions.Destroy(r.Context(), sess); err != nil && !errors.Is(err, session.ErrNotFound) {
			slog.Error("error destroying session", "component", "api", "user_id", sess.UserID, "error", err)
		}
	}

	h.sessions.ClearCookie(w)
	writeOK(w, http.StatusOK, nil)
}

// GET /api/v1/auth/verify?uid=&token=
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	uid, err := strconv.ParseInt(r.URL.Query().Get("uid"), 10, 64)
	if err != nil || uid <= 0 {
		writeFailure(w, r, apperr.ErrTokenInvalid)
		return
	}

	if err := h.auth.VerifyEmail(r.Context(), uid, r.URL.Query().Get("token")); err != nil {
		writeFailure(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, nil)
}

// POST /api/v1/auth/request-reset
type RequestResetRequest struct {
	Email string `json:"email" validate:"max=254"`
}

func (h *AuthHandler) RequestReset(w http.ResponseWriter, r *http.Request) {
	var req RequestResetRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	// Always ok, so the response never reveals whether the address exists.
	if err := h.auth.RequestPasswordReset(r.Context(), strings.TrimSpace(req.Email)); err != nil {
		slog.Error("error requesting password reset", "component", "api", "error", err)
	}

	writeOK(w, http.StatusOK, nil)
}

// POST /api/v1/auth/reset
type ResetPasswordRequest struct {
	UID      int64  `json:"uid"`
	Token    string `json:"token" validate:"max=256"`
	Password string `json:"password" validate:"max=1024"`
}

func (h *AuthHandler) Reset(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.UID, req.Token, req.Password); err != nil {
		writeFailure(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, nil)
}

// GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	writeOK(w, http.StatusOK, envelope{
		"user": userBody{ID: sess.UserID, Email: sess.Email, Name: sess.Name, Register: sess.Register},
	})
}
