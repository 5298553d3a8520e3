package api

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ideias/internal/apperr"
	"ideias/internal/blob"
	"ideias/internal/db"
	"ideias/internal/session"
)

type UserHandler struct {
	users    *db.UserRepository
	sessions *session.Manager
	blobs    *blob.Service
	now      func() time.Time
}

func NewUserHandler(users *db.UserRepository, sessions *session.Manager, blobs *blob.Service) *UserHandler {
	return &UserHandler{
		users:    users,
		sessions: sessions,
		blobs:    blobs,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// GET /api/v1/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(w, "invalid user id")
		return
	}

	user, err := h.users.FindByID(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{"user": user.Summary()})
}

// POST /api/v1/users/me/register
type SetRegisterRequest struct {
	Register string `json:"register" validate:"required,max=64"`
}

func (h *UserHandler) SetRegister(w http.ResponseWriter, r *http.Request) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		unauthorized(w)
		return
	}

	var req SetRegisterRequest
	if err := decodeAndValidate(r.Body, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	register := strings.TrimSpace(req.Register)
	if register == "" {
		badRequest(w, "register is required")
		return
	}

	if err := h.users.UpdateRegister(r.Context(), sess.UserID, register, h.now()); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			notFound(w)
			return
		}
		writeFailure(w, r, err)
		return
	}

	if err := h.sessions.SetRegister(r.Context(), sess, register); err != nil {
		writeFailure(w, r, err)
		return
	}

	writeOK(w, http.StatusOK, envelope{"register": register})
}

// PUT /api/v1/users/me/photo
// The body is the raw image; Content-Type must be image/*.
func (h *UserHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	userID := currentUserID(r)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || !strings.HasPrefix(mediaType, "image/") {
		badRequest(w, "Content-Type must be an image type")
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if errors.Is(err, db.ErrNotFound) {
		unauthorized(w)
		return
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}

	stored, err := h.blobs.SavePhoto(r.Context(), userID, r.Body, h.now())
	switch {
	case errors.Is(err, blob.ErrFileTooLarge):
		writeFailure(w, r, errPayloadTooLarge.WithMessage("photo exceeds the upload limit"))
		return
	case errors.Is(err, blob.ErrDisallowedType), errors.Is(err, blob.ErrExecutableFile):
		writeFailure(w, r, apperr.ErrInvalidData.WithMessage(err.Error()))
		return
	case err != nil:
		writeFailure(w, r, err)
		return
	}

	if err := h.users.UpdatePhotoPath(r.Context(), userID, stored.StoragePath, h.now()); err != nil {
		_ = h.blobs.Delete(stored.StoragePath)
		writeFailure(w, r, err)
		return
	}

	if user.PhotoPath != nil && *user.PhotoPath != "" {
		if err := h.blobs.Delete(*user.PhotoPath); err != nil {
			slog.Warn("error deleting previous photo", "component", "api", "user_id", userID, "error", err)
		}
	}

	writeOK(w, http.StatusOK, envelope{
		"mime_type": stored.MimeType,
		"width":     stored.Width,
		"height":    stored.Height,
	})
}

// GET /api/v1/users/photo?register=
func (h *UserHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	register := strings.TrimSpace(r.URL.Query().Get("register"))
	if register == "" {
		badRequest(w, "register is required")
		return
	}

	user, err := h.users.FindByRegister(r.Context(), register)
	if errors.Is(err, db.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	if user.PhotoPath == nil || *user.PhotoPath == "" {
		notFound(w)
		return
	}

	f, err := h.blobs.Open(*user.PhotoPath)
	if err != nil {
		slog.Warn("stored photo missing", "component", "api", "user_id", user.ID, "error", err)
		notFound(w)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", blob.MimeTypeForPath(*user.PhotoPath))
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f); err != nil {
		slog.Debug("error streaming photo", "component", "api", "error", err)
	}
}
