package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/smolkov/gridchat-server/internal/store"
	"github.com/smolkov/gridchat-server/internal/store/sqlite"
)

// GroupHandlers provides HTTP handlers for group and channel management.
type GroupHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewGroupHandlers creates a new group handlers instance.
func NewGroupHandlers(st store.Store, logger *zerolog.Logger) *GroupHandlers {
	return &GroupHandlers{
		store: st,
		log:   logger,
	}
}

// CreateGroupRequest represents the create group request body.
type CreateGroupRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// CreateChannelRequest represents the create channel request body.
type CreateChannelRequest struct {
	Name string `json:"name" binding:"required,min=1,max=64"`
}

// GroupResponse represents a group in API responses.
type GroupResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	OwnerID   int64  `json:"owner_id"`
	CreatedAt string `json:"created_at"`
}

// ChannelResponse represents a channel in API responses.
type ChannelResponse struct {
	ID      int64  `json:"id"`
	GroupID int64  `json:"group_id"`
	Name    string `json:"name"`
}

func groupToResponse(g *store.Group) GroupResponse {
	return GroupResponse{
		ID:        g.ID,
		Name:      g.Name,
		OwnerID:   g.OwnerID,
		CreatedAt: g.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// CreateGroup handles group creation. The creator becomes the owner and
// first member.
// POST /api/groups
func (h *GroupHandlers) CreateGroup(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create group request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	group, err := h.store.CreateGroup(c.Request.Context(), req.Name, uid)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "group with this name already exists"})
			return
		}
		h.log.Error().Err(err).Str("group_name", req.Name).Msg("failed to create group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("group_name", group.Name).Int64("group_id", group.ID).Int64("owner_id", uid).Msg("group created")
	c.JSON(http.StatusCreated, groupToResponse(group))
}

// ListGroups handles listing the groups the user belongs to.
// GET /api/groups
func (h *GroupHandlers) ListGroups(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groups, err := h.store.ListGroups(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list groups")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]GroupResponse, 0, len(groups))
	for _, g := range groups {
		response = append(response, groupToResponse(g))
	}
	c.JSON(http.StatusOK, response)
}

// JoinGroup adds the authenticated user to a group.
// POST /api/groups/:id/join
func (h *GroupHandlers) JoinGroup(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groupID, err := parseGroupID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}

	if _, err := h.store.GetGroupByID(c.Request.Context(), groupID); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "group not found"})
			return
		}
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to load group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	if err := h.store.AddMember(c.Request.Context(), uid, groupID); err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Int64("user_id", uid).Msg("failed to join group")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.Status(http.StatusNoContent)
}

// CreateChannel handles channel creation inside a group. Only members may
// create channels.
// POST /api/groups/:id/channels
func (h *GroupHandlers) CreateChannel(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groupID, err := parseGroupID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}

	isMember, err := h.store.IsMember(c.Request.Context(), uid, groupID)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("membership check failed")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}
	if !isMember {
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "not a member of this group"})
		return
	}

	var req CreateChannelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create channel request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	channel, err := h.store.CreateChannel(c.Request.Context(), groupID, req.Name)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			c.JSON(http.StatusConflict, ErrorResponse{Error: "channel with this name already exists"})
			return
		}
		h.log.Error().Err(err).Str("channel_name", req.Name).Int64("group_id", groupID).Msg("failed to create channel")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusCreated, ChannelResponse{
		ID:      channel.ID,
		GroupID: channel.GroupID,
		Name:    channel.Name,
	})
}

// ListChannels handles listing the channels of a group.
// GET /api/groups/:id/channels
func (h *GroupHandlers) ListChannels(c *gin.Context) {
	if _, ok := currentUserID(c); !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	groupID, err := parseGroupID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid group id"})
		return
	}

	channels, err := h.store.ListChannels(c.Request.Context(), groupID)
	if err != nil {
		h.log.Error().Err(err).Int64("group_id", groupID).Msg("failed to list channels")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ChannelResponse, 0, len(channels))
	for _, ch := range channels {
		response = append(response, ChannelResponse{
			ID:      ch.ID,
			GroupID: ch.GroupID,
			Name:    ch.Name,
		})
	}
	c.JSON(http.StatusOK, response)
}

func parseGroupID(c *gin.Context) (int64, error) {
	return strconv.ParseInt(c.Param("id"), 10, 64)
}
