package server

import (
	"encoding/json"
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/analysis"
	"github.com/MarcoPoloResearchLab/cashgame/internal/games"
	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"github.com/shopspring/decimal"
)

// Money leaves the API as JSON numbers rounded to cents.
func money(value decimal.Decimal) float64 {
	return value.Round(2).InexactFloat64()
}

func optionalMoney(value *decimal.Decimal) *float64 {
	if value == nil {
		return nil
	}
	converted := money(*value)
	return &converted
}

func isoTime(value time.Time) string {
	return value.UTC().Format(time.RFC3339)
}

func optionalTime(value *time.Time) *string {
	if value == nil {
		return nil
	}
	formatted := isoTime(*value)
	return &formatted
}

func timeOrZero(value *time.Time) time.Time {
	if value == nil {
		return time.Time{}
	}
	return *value
}

func decimalOrZero(value *decimal.Decimal) decimal.Decimal {
	if value == nil {
		return decimal.Zero
	}
	return *value
}

type startSessionRequest struct {
	Name      string `json:"name" binding:"required"`
	TableName string `json:"tableName"`
	Currency  string `json:"currency"`
	Language  string `json:"language"`
}

type updateRakeRequest struct {
	TotalRake *decimal.Decimal `json:"totalRake" binding:"required"`
}

type addMemberRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type transactionRequest struct {
	PlayerName    string           `json:"playerName" binding:"required"`
	Type          string           `json:"type" binding:"required,oneof=buy-in cashout"`
	Amount        *decimal.Decimal `json:"amount" binding:"required"`
	PaymentMethod string           `json:"paymentMethod" binding:"required,oneof=cash electronic credit"`
	Notes         string           `json:"notes"`
	IsPaid        *bool            `json:"isPaid"`
	Timestamp     *time.Time       `json:"timestamp"`
	CashReceived  *decimal.Decimal `json:"cashReceived"`
	CreditSettled *decimal.Decimal `json:"creditSettled"`
}

func (r transactionRequest) input() games.TransactionInput {
	return games.TransactionInput{
		PlayerName:    r.PlayerName,
		Type:          r.Type,
		Amount:        decimalOrZero(r.Amount),
		PaymentMethod: r.PaymentMethod,
		Notes:         r.Notes,
		IsPaid:        r.IsPaid,
		Timestamp:     timeOrZero(r.Timestamp),
		CashReceived:  r.CashReceived,
		CreditSettled: r.CreditSettled,
	}
}

type dealerDownRequest struct {
	DealerName string           `json:"dealerName" binding:"required"`
	Tips       *decimal.Decimal `json:"tips"`
	Rake       *decimal.Decimal `json:"rake"`
	TipsPaid   *bool            `json:"tipsPaid"`
	Timestamp  *time.Time       `json:"timestamp"`
}

func (r dealerDownRequest) input() games.DealerDownInput {
	return games.DealerDownInput{
		DealerName: r.DealerName,
		Tips:       decimalOrZero(r.Tips),
		Rake:       decimalOrZero(r.Rake),
		TipsPaid:   r.TipsPaid,
		Timestamp:  timeOrZero(r.Timestamp),
	}
}

type claimTipsRequest struct {
	DealerName    string           `json:"dealerName" binding:"required"`
	GameSessionID string           `json:"gameSessionId" binding:"required"`
	Percentage    *decimal.Decimal `json:"percentage"`
}

type expenseRequest struct {
	Description   string           `json:"description" binding:"required"`
	Amount        *decimal.Decimal `json:"amount" binding:"required"`
	Category      string           `json:"category" binding:"omitempty,oneof=food drinks other"`
	PaymentMethod string           `json:"paymentMethod" binding:"required,oneof=cash electronic"`
	PaidOut       bool             `json:"paidOut"`
	Notes         string           `json:"notes"`
	Timestamp     *time.Time       `json:"timestamp"`
}

func (r expenseRequest) input() games.ExpenseInput {
	return games.ExpenseInput{
		Description:   r.Description,
		Amount:        decimalOrZero(r.Amount),
		Category:      r.Category,
		PaymentMethod: r.PaymentMethod,
		PaidOut:       r.PaidOut,
		Notes:         r.Notes,
		Timestamp:     timeOrZero(r.Timestamp),
	}
}

type analyzeTillRequest struct {
	SessionID        string           `json:"sessionId" binding:"required"`
	ActualTillAmount *decimal.Decimal `json:"actualTillAmount" binding:"required"`
}

type creatorPayload struct {
	ID       string `json:"id"`
	Initials string `json:"initials"`
}

type sessionPayload struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	TableName      string  `json:"tableName"`
	StartedAt      string  `json:"startedAt"`
	EndedAt        *string `json:"endedAt"`
	IsActive       bool    `json:"isActive"`
	Currency       string  `json:"currency"`
	Language       string  `json:"language"`
	TotalRake      float64 `json:"totalRake"`
	OwnerID        string  `json:"ownerId"`
	ShareCode      *string `json:"shareCode,omitempty"`
	ShareExpiresAt *string `json:"shareExpiresAt,omitempty"`
}

func newSessionPayload(session games.GameSession) sessionPayload {
	return sessionPayload{
		ID:             session.ID,
		Name:           session.Name,
		TableName:      session.TableLabel,
		StartedAt:      isoTime(session.StartedAt),
		EndedAt:        optionalTime(session.EndedAt),
		IsActive:       session.IsActive,
		Currency:       session.Currency,
		Language:       session.Language,
		TotalRake:      money(session.TotalRake),
		OwnerID:        session.OwnerID,
		ShareCode:      session.ShareCode,
		ShareExpiresAt: optionalTime(session.ShareExpiresAt),
	}
}

type memberPayload struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	JoinedAt  string `json:"joinedAt"`
}

type settlementPayload struct {
	CashReceived  *float64 `json:"cashReceived,omitempty"`
	CreditSettled *float64 `json:"creditSettled,omitempty"`
}

type transactionPayload struct {
	ID            string             `json:"id"`
	SessionID     string             `json:"sessionId"`
	PlayerName    string             `json:"playerName"`
	Type          string             `json:"type"`
	Amount        float64            `json:"amount"`
	PaymentMethod string             `json:"paymentMethod"`
	Notes         string             `json:"notes,omitempty"`
	IsPaid        bool               `json:"isPaid"`
	Settlement    *settlementPayload `json:"settlement,omitempty"`
	Timestamp     string             `json:"timestamp"`
	CreatedBy     creatorPayload     `json:"createdBy"`
}

func newTransactionPayload(row games.PlayerTransaction) transactionPayload {
	payload := transactionPayload{
		ID:            row.ID,
		SessionID:     row.SessionID,
		PlayerName:    row.PlayerName,
		Type:          row.Type,
		Amount:        money(row.Amount),
		PaymentMethod: row.PaymentMethod,
		Notes:         row.Notes,
		IsPaid:        row.IsPaid,
		Timestamp:     isoTime(row.Timestamp),
		CreatedBy:     creatorPayload{ID: row.CreatedByID, Initials: row.CreatedByInitials},
	}
	if row.SettlementCash.Valid || row.SettlementCredit.Valid {
		settlement := &settlementPayload{}
		if row.SettlementCash.Valid {
			settlement.CashReceived = optionalMoney(&row.SettlementCash.Decimal)
		}
		if row.SettlementCredit.Valid {
			settlement.CreditSettled = optionalMoney(&row.SettlementCredit.Decimal)
		}
		payload.Settlement = settlement
	}
	return payload
}

type dealerDownPayload struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"sessionId"`
	DealerName  string         `json:"dealerName"`
	Tips        float64        `json:"tips"`
	Rake        float64        `json:"rake"`
	TipsPaid    bool           `json:"tipsPaid"`
	RakeClaimed bool           `json:"rakeClaimed"`
	Timestamp   string         `json:"timestamp"`
	CreatedBy   creatorPayload `json:"createdBy"`
}

func newDealerDownPayload(down games.DealerDown) dealerDownPayload {
	return dealerDownPayload{
		ID:          down.ID,
		SessionID:   down.SessionID,
		DealerName:  down.DealerName,
		Tips:        money(down.Tips),
		Rake:        money(down.Rake),
		TipsPaid:    down.TipsPaid,
		RakeClaimed: down.RakeClaimed,
		Timestamp:   isoTime(down.Timestamp),
		CreatedBy:   creatorPayload{ID: down.CreatedByID, Initials: down.CreatedByInitials},
	}
}

type expensePayload struct {
	ID            string         `json:"id"`
	SessionID     string         `json:"sessionId"`
	Description   string         `json:"description"`
	Amount        float64        `json:"amount"`
	Category      string         `json:"category"`
	PaymentMethod string         `json:"paymentMethod"`
	PaidOut       bool           `json:"paidOut"`
	Notes         string         `json:"notes,omitempty"`
	Timestamp     string         `json:"timestamp"`
	CreatedBy     creatorPayload `json:"createdBy"`
}

func newExpensePayload(expense games.Expense) expensePayload {
	return expensePayload{
		ID:            expense.ID,
		SessionID:     expense.SessionID,
		Description:   expense.Description,
		Amount:        money(expense.Amount),
		Category:      expense.Category,
		PaymentMethod: expense.PaymentMethod,
		PaidOut:       expense.PaidOut,
		Notes:         expense.Notes,
		Timestamp:     isoTime(expense.Timestamp),
		CreatedBy:     creatorPayload{ID: expense.CreatedByID, Initials: expense.CreatedByInitials},
	}
}

type tillPayload struct {
	CashBuyIns         float64 `json:"cashBuyIns"`
	PaidCreditBuyIns   float64 `json:"paidCreditBuyIns"`
	AutoSettledCredit  float64 `json:"autoSettledCredit"`
	ManuallyPaidCredit float64 `json:"manuallyPaidCredit"`
	CashCashouts       float64 `json:"cashCashouts"`
	TotalPaidTips      float64 `json:"totalPaidTips"`
	TotalClaimedRake   float64 `json:"totalClaimedRake"`
	TotalExpenses      float64 `json:"totalExpenses"`
}

type playerStandingPayload struct {
	PlayerName   string  `json:"playerName"`
	BuyIns       float64 `json:"buyIns"`
	Cashouts     float64 `json:"cashouts"`
	Net          float64 `json:"net"`
	CreditOwed   float64 `json:"creditOwed"`
	Transactions int     `json:"transactions"`
}

type dealerStandingPayload struct {
	DealerName string  `json:"dealerName"`
	Downs      int     `json:"downs"`
	Tips       float64 `json:"tips"`
	UnpaidTips float64 `json:"unpaidTips"`
	Rake       float64 `json:"rake"`
}

type summaryPayload struct {
	Session       sessionPayload          `json:"session"`
	TotalBuyIns   float64                 `json:"totalBuyIns"`
	TotalCashouts float64                 `json:"totalCashouts"`
	TotalTips     float64                 `json:"totalTips"`
	TotalRake     float64                 `json:"totalRake"`
	TotalExpenses float64                 `json:"totalExpenses"`
	NetProfit     float64                 `json:"netProfit"`
	TillBalance   float64                 `json:"tillBalance"`
	CreditBalance float64                 `json:"creditBalance"`
	PlayerCount   int                     `json:"playerCount"`
	DealerCount   int                     `json:"dealerCount"`
	Till          tillPayload             `json:"till"`
	Players       []playerStandingPayload `json:"players"`
	Dealers       []dealerStandingPayload `json:"dealers"`
}

func newSummaryPayload(view games.SessionSummary) summaryPayload {
	summary := view.Summary
	payload := summaryPayload{
		Session:       newSessionPayload(view.Session),
		TotalBuyIns:   money(summary.TotalBuyIns),
		TotalCashouts: money(summary.TotalCashouts),
		TotalTips:     money(summary.TotalTips),
		TotalRake:     money(summary.TotalRake),
		TotalExpenses: money(summary.TotalExpenses),
		NetProfit:     money(summary.NetProfit),
		TillBalance:   money(summary.TillBalance),
		CreditBalance: money(summary.CreditBalance),
		PlayerCount:   summary.PlayerCount,
		DealerCount:   summary.DealerCount,
		Till:          newTillPayload(summary.Till),
		Players:       make([]playerStandingPayload, 0, len(view.Players)),
		Dealers:       make([]dealerStandingPayload, 0, len(view.Dealers)),
	}
	for _, player := range view.Players {
		payload.Players = append(payload.Players, playerStandingPayload{
			PlayerName:   player.PlayerName,
			BuyIns:       money(player.BuyIns),
			Cashouts:     money(player.Cashouts),
			Net:          money(player.Net),
			CreditOwed:   money(player.CreditOwed),
			Transactions: player.Transactions,
		})
	}
	for _, dealer := range view.Dealers {
		payload.Dealers = append(payload.Dealers, dealerStandingPayload{
			DealerName: dealer.DealerName,
			Downs:      dealer.Downs,
			Tips:       money(dealer.Tips),
			UnpaidTips: money(dealer.UnpaidTips),
			Rake:       money(dealer.Rake),
		})
	}
	return payload
}

func newTillPayload(till ledger.Till) tillPayload {
	return tillPayload{
		CashBuyIns:         money(till.CashBuyIns),
		PaidCreditBuyIns:   money(till.PaidCreditBuyIns),
		AutoSettledCredit:  money(till.AutoSettledCredit),
		ManuallyPaidCredit: money(till.ManuallyPaidCredit),
		CashCashouts:       money(till.CashCashouts),
		TotalPaidTips:      money(till.PaidTips),
		TotalClaimedRake:   money(till.ClaimedRake),
		TotalExpenses:      money(till.Expenses),
	}
}

type claimTipsResponse struct {
	UpdatedCount     int     `json:"updatedCount"`
	TotalTipsClaimed float64 `json:"totalTipsClaimed"`
	OwnerCut         float64 `json:"ownerCut"`
	DealerPayout     float64 `json:"dealerPayout"`
}

type causePayload struct {
	Description    string   `json:"description"`
	Likelihood     string   `json:"likelihood"`
	Amount         *float64 `json:"amount,omitempty"`
	TransactionIDs []string `json:"transactionIds,omitempty"`
}

type reviewPayload struct {
	ID            string   `json:"id"`
	PlayerName    string   `json:"playerName"`
	Type          string   `json:"type"`
	Amount        *float64 `json:"amount"`
	PaymentMethod string   `json:"paymentMethod"`
	Notes         string   `json:"notes,omitempty"`
	Reason        string   `json:"reason"`
}

type analyzeTillResponse struct {
	DiscrepancyAmount    float64         `json:"discrepancyAmount"`
	ExpectedTill         float64         `json:"expectedTill"`
	ActualTill           float64         `json:"actualTill"`
	Summary              string          `json:"summary"`
	PossibleCauses       []causePayload  `json:"possibleCauses"`
	TransactionsToReview []reviewPayload `json:"transactionsToReview"`
	Recommendations      []string        `json:"recommendations"`
	TillCountID          string          `json:"tillCountId,omitempty"`
}

func newAnalyzeTillResponse(result analysis.Result) analyzeTillResponse {
	response := analyzeTillResponse{
		DiscrepancyAmount:    money(result.DiscrepancyAmount),
		ExpectedTill:         money(result.ExpectedTill),
		ActualTill:           money(result.ActualTill),
		Summary:              result.Summary,
		PossibleCauses:       make([]causePayload, 0, len(result.PossibleCauses)),
		TransactionsToReview: make([]reviewPayload, 0, len(result.TransactionsToReview)),
		Recommendations:      append([]string{}, result.Recommendations...),
	}
	for _, cause := range result.PossibleCauses {
		response.PossibleCauses = append(response.PossibleCauses, causePayload{
			Description:    cause.Description,
			Likelihood:     string(cause.Likelihood),
			Amount:         optionalMoney(cause.Amount),
			TransactionIDs: cause.TransactionIDs,
		})
	}
	for _, item := range result.TransactionsToReview {
		response.TransactionsToReview = append(response.TransactionsToReview, reviewPayload{
			ID:            item.ID,
			PlayerName:    item.PlayerName,
			Type:          item.Type,
			Amount:        optionalMoney(item.Amount),
			PaymentMethod: item.PaymentMethod,
			Notes:         item.Notes,
			Reason:        item.Reason,
		})
	}
	return response
}

type tillCountPayload struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"sessionId"`
	ActualTill   float64         `json:"actualTill"`
	ExpectedTill float64         `json:"expectedTill"`
	Discrepancy  float64         `json:"discrepancy"`
	Analysis     json.RawMessage `json:"analysis,omitempty"`
	CreatedBy    creatorPayload  `json:"createdBy"`
	CreatedAt    string          `json:"createdAt"`
}

func newTillCountPayload(count games.TillCount) tillCountPayload {
	payload := tillCountPayload{
		ID:           count.ID,
		SessionID:    count.SessionID,
		ActualTill:   money(count.ActualTill),
		ExpectedTill: money(count.ExpectedTill),
		Discrepancy:  money(count.Discrepancy),
		CreatedBy:    creatorPayload{ID: count.CreatedByID, Initials: count.CreatedByInitials},
		CreatedAt:    isoTime(count.CreatedAt),
	}
	if len(count.Analysis) > 0 {
		payload.Analysis = json.RawMessage(count.Analysis)
	}
	return payload
}
