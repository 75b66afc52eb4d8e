package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/smolkov/gridchat-server/internal/store"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(st store.Store, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		store: st,
		log:   logger,
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID                int64  `json:"id"`
	Username          string `json:"username"`
	ProfilePictureURL string `json:"profilePictureUrl,omitempty"`
}

// SearchUsers handles searching for users, used to pick call targets and
// group invitees.
// GET /api/users/search?q=query
func (h *UserHandlers) SearchUsers(c *gin.Context) {
	trimmed := strings.TrimSpace(c.Query("q"))
	if len(trimmed) < 2 {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "search query must be at least 2 characters"})
		return
	}

	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	users, err := h.store.SearchUsers(c.Request.Context(), trimmed)
	if err != nil {
		h.log.Error().Err(err).Str("query", trimmed).Msg("failed to search users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0)
	for _, u := range users {
		// don't show self
		if u.ID == uid {
			continue
		}
		response = append(response, UserResponse{
			ID:                u.ID,
			Username:          u.Username,
			ProfilePictureURL: u.AvatarURL,
		})
	}

	c.JSON(http.StatusOK, response)
}
