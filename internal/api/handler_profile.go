package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ryanbastic/go-chronos/internal/media"
	"github.com/ryanbastic/go-chronos/internal/model"
	"github.com/ryanbastic/go-chronos/internal/storage"
)

const maxNameLength = 100

type ProfileHandler struct {
	users   storage.UserStore
	avatars media.AvatarStore
	logger  *slog.Logger
}

func NewProfileHandler(users storage.UserStore, avatars media.AvatarStore, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{users: users, avatars: avatars, logger: logger}
}

func registerProfileRoutes(api huma.API, h *ProfileHandler) {
	huma.Register(api, huma.Operation{
		OperationID: "get-profile",
		Method:      http.MethodGet,
		Path:        "/api/profile/me",
		Summary:     "Get the signed-in user's profile",
		Tags:        []string{"profile"},
	}, h.GetProfile)
}

func (h *ProfileHandler) GetProfile(ctx context.Context, _ *struct{}) (*UserOutput, error) {
	session, err := requireSession(ctx)
	if err != nil {
		return nil, err
	}
	user, err := h.users.GetUser(ctx, session.UserID)
	if err != nil {
		return nil, storeError(h.logger, "failed to load profile", err, "user_id", session.UserID)
	}
	return &UserOutput{Body: UserBody{Data: user}}, nil
}

// UpdateProfile handles PATCH /api/profile/me. It accepts a multipart form
// with an optional name field and an optional avatar file.
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(r.Context())
	if !ok {
		writeProblem(w, http.StatusUnauthorized, "authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, media.MaxAvatarBytes+1<<20)
	if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeProblem(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeProblem(w, http.StatusBadRequest, "invalid form body")
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	var update model.ProfileUpdate
	if _, present := r.Form["name"]; present {
		name := strings.TrimSpace(r.FormValue("name"))
		if name == "" || utf8.RuneCountInString(name) > maxNameLength {
			writeProblem(w, http.StatusUnprocessableEntity, "name must be between 1 and 100 characters")
			return
		}
		update.Name = &name
	}

	file, _, err := r.FormFile("avatar")
	switch {
	case errors.Is(err, http.ErrMissingFile), errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		writeProblem(w, http.StatusBadRequest, "invalid avatar upload")
		return
	default:
		defer file.Close()
		url, status, msg := h.uploadAvatar(r.Context(), session, file)
		if status != 0 {
			writeProblem(w, status, msg)
			return
		}
		update.AvatarURL = &url
	}

	if update.Name == nil && update.AvatarURL == nil {
		writeProblem(w, http.StatusUnprocessableEntity, "nothing to update")
		return
	}

	user, err := h.users.UpdateProfile(r.Context(), session.UserID, update)
	if errors.Is(err, storage.ErrNotFound) {
		writeProblem(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to update profile", "user_id", session.UserID, "error", err)
		writeProblem(w, http.StatusInternalServerError, "failed to update profile")
		return
	}

	h.logger.Info("profile updated", "user_id", session.UserID, "avatar", update.AvatarURL != nil)
	writeJSON(w, http.StatusOK, UserBody{Data: user})
}

// uploadAvatar returns the stored URL, or a non-zero status and message.
func (h *ProfileHandler) uploadAvatar(ctx context.Context, session *Session, file io.Reader) (string, int, string) {
	if h.avatars == nil {
		return "", http.StatusNotImplemented, "avatar uploads are not configured"
	}

	data, _, err := media.ReadAvatar(file)
	switch {
	case errors.Is(err, media.ErrTooLarge):
		return "", http.StatusRequestEntityTooLarge, "avatar exceeds 5 MB"
	case errors.Is(err, media.ErrUnsupportedType):
		return "", http.StatusUnsupportedMediaType, "avatar must be a PNG, JPEG, GIF, or WebP image"
	case err != nil:
		return "", http.StatusBadRequest, "invalid avatar upload"
	}

	url, err := h.avatars.UploadAvatar(ctx, session.UserID, data)
	if err != nil {
		h.logger.Error("failed to upload avatar", "user_id", session.UserID, "error", err)
		return "", http.StatusBadGateway, "avatar upload failed"
	}
	return url, 0, ""
}
