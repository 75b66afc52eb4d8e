package http

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/smolkov/gridchat-server/internal/core"
	"github.com/smolkov/gridchat-server/internal/store"
)

var allowedImageExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".gif":  true,
	".webp": true,
}

// UploadHandlers stores uploaded files on disk and serves their public
// URLs. Avatar uploads additionally update the user record and trigger a
// global profile picture broadcast.
type UploadHandlers struct {
	store   store.Store
	hub     *core.Hub
	dir     string
	maxSize int64
	log     *zerolog.Logger
}

// NewUploadHandlers creates a new upload handlers instance.
func NewUploadHandlers(st store.Store, hub *core.Hub, dir string, maxSize int64, logger *zerolog.Logger) *UploadHandlers {
	return &UploadHandlers{
		store:   st,
		hub:     hub,
		dir:     dir,
		maxSize: maxSize,
		log:     logger,
	}
}

// UploadResponse represents a stored file in API responses.
type UploadResponse struct {
	URL string `json:"url"`
}

// UploadAvatar stores a new profile picture, updates the user record, and
// notifies every connected client.
// POST /api/uploads/avatar
func (h *UploadHandlers) UploadAvatar(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	url, ok := h.saveUpload(c, "avatar")
	if !ok {
		return
	}

	if err := h.store.UpdateAvatar(c.Request.Context(), uid, url); err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to update avatar")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	// Everyone sees the new picture, no matter which channel they are in.
	h.hub.NotifyProfilePictureChanged(uid, url)

	h.log.Info().Int64("user_id", uid).Str("url", url).Msg("avatar updated")
	c.JSON(http.StatusOK, UploadResponse{URL: url})
}

// UploadImage stores a chat image and returns its URL for use in a
// message payload.
// POST /api/uploads/image
func (h *UploadHandlers) UploadImage(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	url, ok := h.saveUpload(c, "image")
	if !ok {
		return
	}
	c.JSON(http.StatusOK, UploadResponse{URL: url})
}

func (h *UploadHandlers) saveUpload(c *gin.Context, field string) (string, bool) {
	file, header, err := c.Request.FormFile(field)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: fmt.Sprintf("missing %s file", field)})
		return "", false
	}
	defer file.Close()

	if h.maxSize > 0 && header.Size > h.maxSize {
		c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{Error: "file too large"})
		return "", false
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unsupported file type"})
		return "", false
	}

	name := uuid.New().String() + ext
	if err := h.writeFile(file, name); err != nil {
		h.log.Error().Err(err).Str("file", name).Msg("failed to store upload")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return "", false
	}

	return "/uploads/" + name, true
}

func (h *UploadHandlers) writeFile(src multipart.File, name string) error {
	if err := os.MkdirAll(h.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}

	dst, err := os.Create(filepath.Join(h.dir, name))
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}
