package http

import (
	"errors"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/adapters/feed"
	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

type RoomsAPI struct {
	rooms core.RoomStore
	now   func() time.Time
}

func NewRoomsAPI(rooms core.RoomStore) *RoomsAPI {
	return &RoomsAPI{rooms: rooms, now: time.Now}
}

type CreateRoomRequest struct {
	Name            string `json:"name"`
	Topic           string `json:"topic"`
	BackgroundImage string `json:"backgroundImage"`
	Password        string `json:"password"`
	UID             string `json:"uid"`
	DisplayName     string `json:"displayName"`
}

func (a *RoomsAPI) Create(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid body"})
		return
	}
	if req.Name == "" || len(req.Name) > domain.MaxRoomNameLen {
		c.JSON(http.StatusBadRequest, gin.H{"error": "room name empty or too long"})
		return
	}

	room := &domain.Room{
		ID:              domain.RoomID(uuid.NewString()),
		Name:            req.Name,
		Topic:           req.Topic,
		BackgroundImage: req.BackgroundImage,
		Password:        req.Password,
		CreatedBy:       domain.UserID(req.UID),
		CreatorName:     req.DisplayName,
		CreatedAt:       a.now().UnixMilli(),
		Active:          true,
	}
	if err := a.rooms.Create(c.Request.Context(), room); err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create room")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": room.ID})
}

func (a *RoomsAPI) List(c *gin.Context) {
	rooms, err := a.rooms.List(c.Request.Context())
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("list rooms")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, feed.Summarize(rooms))
}

type JoinRequest struct {
	UID      string `json:"uid"`
	Password string `json:"password"`
}

// Join is the admission gate. It only checks; the caller still starts a
// session afterwards, which re-validates inside the membership write.
func (a *RoomsAPI) Join(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid body"})
		return
	}

	room, err := a.rooms.Get(c.Request.Context(), domain.RoomID(c.Param("id")))
	if errors.Is(err, core.ErrRoomNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if !room.Active {
		c.JSON(http.StatusGone, gin.H{"error": "room is no longer active"})
		return
	}
	if left := room.BanRemaining(domain.UserID(req.UID), a.now()); left > 0 {
		mins := int(left.Minutes()) + 1
		c.JSON(http.StatusForbidden, gin.H{"error": "kicked", "retryAfterMin": mins})
		return
	}
	if room.Password != "" && room.Password != req.Password {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong password"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "id": room.ID})
}

// QuickJoin picks a random joinable public room.
func (a *RoomsAPI) QuickJoin(c *gin.Context) {
	rooms, err := a.rooms.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	uid := domain.UserID(c.Query("uid"))
	open := rooms[:0]
	for _, r := range rooms {
		if !r.Active || r.IsDirectCall || r.Password != "" {
			continue
		}
		if uid != "" && r.BanRemaining(uid, a.now()) > 0 {
			continue
		}
		open = append(open, r)
	}
	if len(open) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no open rooms"})
		return
	}
	pick := open[rand.Intn(len(open))]
	c.JSON(http.StatusOK, gin.H{"id": pick.ID})
}
