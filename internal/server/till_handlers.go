package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/cashgame/internal/analysis"
	"github.com/MarcoPoloResearchLab/cashgame/internal/games"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var errNegativeTill = errors.New("actualTillAmount must not be negative")

// handleAnalyzeTill reconciles a physical count against the session ledger and keeps
// the outcome as a till count. A failure to store the count does not fail the analysis.
func (h *httpHandler) handleAnalyzeTill(c *gin.Context) {
	var request analyzeTillRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.respondInvalidRequest(c, err)
		return
	}
	if request.ActualTillAmount.IsNegative() {
		h.respondInvalidRequest(c, errNegativeTill)
		return
	}

	ctx := c.Request.Context()
	actor := actorFrom(c)
	events, err := h.games.LoadEvents(ctx, actor, request.SessionID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.analyzer.AnalyzeTill(ctx, analysis.Input{
		Session:      events.Session.Ledger(),
		Transactions: events.LedgerTransactions(),
		DealerDowns:  events.LedgerDealerDowns(),
		Expenses:     events.LedgerExpenses(),
		ActualTill:   *request.ActualTillAmount,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	response := newAnalyzeTillResponse(result)
	encoded, err := json.Marshal(response)
	if err != nil {
		h.logger.Error("failed to encode till analysis", zap.Error(err))
		c.JSON(http.StatusOK, response)
		return
	}
	count, err := h.games.RecordTillCount(ctx, actor, events.Session.ID, games.TillCountInput{
		ActualTill:   result.ActualTill,
		ExpectedTill: result.ExpectedTill,
		Discrepancy:  result.ActualTill.Sub(result.ExpectedTill),
		Analysis:     encoded,
	})
	if err != nil {
		h.logger.Error("failed to record till count",
			zap.String("session_id", events.Session.ID),
			zap.Error(err))
	} else {
		response.TillCountID = count.ID
	}
	c.JSON(http.StatusOK, response)
}

func (h *httpHandler) handleListTillCounts(c *gin.Context) {
	counts, err := h.games.ListTillCounts(c.Request.Context(), actorFrom(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	payload := make([]tillCountPayload, 0, len(counts))
	for _, count := range counts {
		payload = append(payload, newTillCountPayload(count))
	}
	c.JSON(http.StatusOK, gin.H{"tillCounts": payload})
}
