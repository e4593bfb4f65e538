package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/lumachat/voiceroom/internal/calls"
	"github.com/lumachat/voiceroom/internal/core"
	"github.com/lumachat/voiceroom/internal/domain"
)

type CallsAPI struct {
	sup *calls.Supervisor
}

func NewCallsAPI(sup *calls.Supervisor) *CallsAPI {
	return &CallsAPI{sup: sup}
}

type CallRequestBody struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
	Listener    string `json:"listener"`
}

func (a *CallsAPI) Call(c *gin.Context) {
	var req CallRequestBody
	if err := c.ShouldBindJSON(&req); err != nil || req.UID == "" || req.Listener == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid body"})
		return
	}
	caller := domain.Listener{
		UID:         domain.UserID(req.UID),
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}
	cr, err := a.sup.Call(c.Request.Context(), caller, domain.UserID(req.Listener))
	if err != nil {
		log.Error().Err(err).Str("module", "adapters.http").Msg("create call")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "call failed"})
		return
	}
	c.JSON(http.StatusCreated, cr)
}

type AcceptBody struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoURL"`
}

func (a *CallsAPI) Accept(c *gin.Context) {
	var req AcceptBody
	if err := c.ShouldBindJSON(&req); err != nil || req.UID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid body"})
		return
	}
	listener := domain.Listener{
		UID:         domain.UserID(req.UID),
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}
	cr, err := a.sup.Accept(c.Request.Context(), c.Param("id"), listener)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, core.ErrCallNotFound):
			status = http.StatusNotFound
		case errors.Is(err, calls.ErrCallOver):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cr)
}

func (a *CallsAPI) Reject(c *gin.Context) {
	err := a.sup.Reject(c.Request.Context(), c.Param("id"))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, core.ErrCallNotFound):
			status = http.StatusNotFound
		case errors.Is(err, calls.ErrCallOver):
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (a *CallsAPI) Cancel(c *gin.Context) {
	if err := a.sup.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, core.ErrCallNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "call not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cancel failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
