package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/cashgame/internal/games"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleStartSession(c *gin.Context) {
	var request startSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	session, err := h.games.StartSession(c.Request.Context(), actorFrom(c), games.SessionInput{
		Name:      request.Name,
		TableName: request.TableName,
		Currency:  request.Currency,
		Language:  request.Language,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newSessionPayload(session))
}

func (h *httpHandler) handleListSessions(c *gin.Context) {
	sessions, err := h.games.ListSessions(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	payload := make([]sessionPayload, 0, len(sessions))
	for _, session := range sessions {
		payload = append(payload, newSessionPayload(session))
	}
	c.JSON(http.StatusOK, gin.H{"sessions": payload})
}

func (h *httpHandler) handleActiveSession(c *gin.Context) {
	session, err := h.games.ActiveSession(c.Request.Context(), actorFrom(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionPayload(session))
}

func (h *httpHandler) handleGetSession(c *gin.Context) {
	session, err := h.games.GetSession(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionPayload(session))
}

func (h *httpHandler) handleEndSession(c *gin.Context) {
	session, err := h.games.EndSession(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionPayload(session))
}

func (h *httpHandler) handleDeleteSession(c *gin.Context) {
	if err := h.games.DeleteSession(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleUpdateTotalRake(c *gin.Context) {
	var request updateRakeRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	session, err := h.games.UpdateTotalRake(c.Request.Context(), actorFrom(c), c.Param("id"), *request.TotalRake)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSessionPayload(session))
}

func (h *httpHandler) handleAddMember(c *gin.Context) {
	var request addMemberRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	member, err := h.games.AddMember(c.Request.Context(), actorFrom(c), c.Param("id"), request.UserID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, memberPayload{
		SessionID: member.SessionID,
		UserID:    member.UserID,
		JoinedAt:  isoTime(member.JoinedAt),
	})
}

func (h *httpHandler) handleSummary(c *gin.Context) {
	view, err := h.games.Summary(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newSummaryPayload(view))
}
