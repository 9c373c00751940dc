package session

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/party-queue-system/internal/auth"
	"github.com/party-queue-system/pkg/models"
)

type Handler struct {
	service *Service
	issuer  *auth.Issuer
}

func NewHandler(service *Service, issuer *auth.Issuer) *Handler {
	return &Handler{service: service, issuer: issuer}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	sessions := r.Group("/sessions")
	{
		sessions.POST("", h.createSession)
		sessions.POST("/join", h.joinSession)

		joined := sessions.Group("/:code", auth.RequireSession("code"))
		joined.GET("", h.getSession)
		joined.POST("/songs", h.addSong)
		joined.POST("/songs/:songId/vote", h.vote)
		joined.DELETE("/songs/:songId", h.removeSong)
		joined.POST("/next", h.playNext)
		joined.DELETE("/queue", h.clearQueue)
	}
}

type CreateSessionRequest struct {
	SessionName string `json:"sessionName"`
	HostName    string `json:"hostName"`
}

func (h *Handler) createSession(c *gin.Context) {
	var req CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := h.issuer.For(c)
	res, err := h.service.CreateSession(c.Request.Context(), identity, req.SessionName, req.HostName)
	h.respond(c, http.StatusCreated, OpCreateSession, res, err, gin.H{"user": res.userOrNil(), "token": identity.Token()})
}

type JoinSessionRequest struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

func (h *Handler) joinSession(c *gin.Context) {
	var req JoinSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	identity := h.issuer.For(c)
	res, err := h.service.JoinSession(c.Request.Context(), identity, req.Code, req.Name)
	h.respond(c, http.StatusOK, OpJoinSession, res, err, gin.H{"user": res.userOrNil(), "token": identity.Token()})
}

func (h *Handler) getSession(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	session, err := h.service.GetSession(c.Request.Context(), c.Param("code"))
	if err != nil {
		writeError(c, "", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"session": session, "user": user})
}

type AddSongRequest struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
}

func (h *Handler) addSong(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req AddSongRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.AddSong(c.Request.Context(), user, req.Title, req.Artist)
	h.respond(c, http.StatusCreated, OpAddSong, res, err, nil)
}

type VoteRequest struct {
	Direction models.VoteType `json:"direction" binding:"required,oneof=up down"`
}

func (h *Handler) vote(c *gin.Context) {
	user, _ := auth.CurrentUser(c)

	var req VoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.service.Vote(c.Request.Context(), user, c.Param("songId"), req.Direction)
	h.respond(c, http.StatusOK, OpVote, res, err, nil)
}

func (h *Handler) removeSong(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	res, err := h.service.RemoveSong(c.Request.Context(), user, c.Param("songId"))
	h.respond(c, http.StatusOK, OpRemoveSong, res, err, nil)
}

func (h *Handler) playNext(c *gin.Context) {
	user, _ := auth.CurrentUser(c)
	res, err := h.service.PlayNext(c.Request.Context(), user)
	h.respond(c, http.StatusOK, OpPlayNext, res, err, nil)
}

// clearQueue needs ?confirm=true; the client asks the host before sending it.
func (h *Handler) clearQueue(c *gin.Context) {
	if c.Query("confirm") != "true" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Clearing the queue must be confirmed"})
		return
	}

	user, _ := auth.CurrentUser(c)
	res, err := h.service.ClearQueue(c.Request.Context(), user)
	h.respond(c, http.StatusOK, OpClearQueue, res, err, nil)
}

// respond writes an operation result. A result that could not be persisted is
// still returned with "persisted": false so the client can show the change
// together with the failure notice.
func (h *Handler) respond(c *gin.Context, status int, op Op, res *Result, err error, extra gin.H) {
	if res == nil {
		writeError(c, op, err)
		return
	}

	body := gin.H{
		"session":   res.Session,
		"outcome":   res.Outcome,
		"persisted": err == nil,
	}
	if res.Song != nil {
		body["song"] = res.Song
	}
	for k, v := range extra {
		body[k] = v
	}

	if err != nil {
		body["notice"] = ErrorNotice(op, err)
		c.JSON(http.StatusOK, body)
		return
	}
	if notice := res.Notice(); notice != nil {
		body["notice"] = notice
	}
	if res.Outcome != OutcomeApplied {
		status = http.StatusOK
	}
	c.JSON(status, body)
}

func writeError(c *gin.Context, op Op, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrValidationFailed):
		status = http.StatusBadRequest
	case errors.Is(err, ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, ErrPersistenceFailed):
		status = http.StatusServiceUnavailable
	}

	notice := ErrorNotice(op, err)
	c.JSON(status, gin.H{"error": notice.Message, "notice": notice})
}

func (r *Result) userOrNil() *models.CurrentUser {
	if r == nil {
		return nil
	}
	return r.User
}
