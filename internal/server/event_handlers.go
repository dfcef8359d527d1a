package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/cashgame/internal/games"
	"github.com/gin-gonic/gin"
)

func (h *httpHandler) handleCreateTransaction(c *gin.Context) {
	var request transactionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	row, err := h.games.CreateTransaction(c.Request.Context(), actorFrom(c), c.Param("id"), request.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newTransactionPayload(row))
}

func (h *httpHandler) handleUpdateTransaction(c *gin.Context) {
	var request transactionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	row, err := h.games.UpdateTransaction(c.Request.Context(), actorFrom(c), c.Param("id"), request.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionPayload(row))
}

func (h *httpHandler) handleDeleteTransaction(c *gin.Context) {
	if err := h.games.DeleteTransaction(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleMarkCreditPaid(c *gin.Context) {
	row, err := h.games.MarkCreditPaid(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTransactionPayload(row))
}

func (h *httpHandler) handleCreateDealerDown(c *gin.Context) {
	var request dealerDownRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	down, err := h.games.CreateDealerDown(c.Request.Context(), actorFrom(c), c.Param("id"), request.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newDealerDownPayload(down))
}

func (h *httpHandler) handleUpdateDealerDown(c *gin.Context) {
	var request dealerDownRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	down, err := h.games.UpdateDealerDown(c.Request.Context(), actorFrom(c), c.Param("id"), request.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDealerDownPayload(down))
}

func (h *httpHandler) handleDeleteDealerDown(c *gin.Context) {
	if err := h.games.DeleteDealerDown(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleClaimRake(c *gin.Context) {
	down, err := h.games.ClaimRake(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDealerDownPayload(down))
}

func (h *httpHandler) handleClaimTips(c *gin.Context) {
	var request claimTipsRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	result, err := h.games.ClaimTipsByDealer(c.Request.Context(), actorFrom(c), games.ClaimTipsInput{
		SessionID:  request.GameSessionID,
		DealerName: request.DealerName,
		Percentage: request.Percentage,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, claimTipsResponse{
		UpdatedCount:     result.UpdatedCount,
		TotalTipsClaimed: money(result.TotalTipsClaimed),
		OwnerCut:         money(result.OwnerCut),
		DealerPayout:     money(result.DealerPayout),
	})
}

func (h *httpHandler) handleCreateExpense(c *gin.Context) {
	var request expenseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	expense, err := h.games.CreateExpense(c.Request.Context(), actorFrom(c), c.Param("id"), request.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newExpensePayload(expense))
}

func (h *httpHandler) handleUpdateExpense(c *gin.Context) {
	var request expenseRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	expense, err := h.games.UpdateExpense(c.Request.Context(), actorFrom(c), c.Param("id"), request.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newExpensePayload(expense))
}

func (h *httpHandler) handleDeleteExpense(c *gin.Context) {
	if err := h.games.DeleteExpense(c.Request.Context(), actorFrom(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) handleMarkExpensePaidOut(c *gin.Context) {
	expense, err := h.games.MarkExpensePaidOut(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newExpensePayload(expense))
}
