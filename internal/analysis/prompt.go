package analysis

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"github.com/shopspring/decimal"
)

const systemPrompt = `You audit the cash till of a live poker cash game.
You receive every transaction, dealer down and expense of the session together with the
expected and actual till figures. Explain the discrepancy.

Till model: expected till = cash buy-ins + manually paid credit - cash paid out on cashouts
- paid dealer tips - claimed rake - expenses. Every expense is subtracted, whatever its
payment method. A cashout without a recorded cash amount counts its full amount as cash.
Electronic and credit buy-ins add nothing to the till.
Cashout notes may record "received $X cash" or "paid $X credit" (older rows use
"cash paid: $X)" and "credit settled: $X").

Respond with a single JSON object and nothing else:
{
  "summary": "one or two sentences",
  "possibleCauses": [
    {"description": "...", "likelihood": "high|medium|low", "amount": 0.00, "transactionIds": ["..."]}
  ],
  "transactionsToReview": [{"id": "...", "reason": "..."}],
  "recommendations": ["..."]
}
Rank possibleCauses from most to least likely. Use transaction ids exactly as given.`

type promptFigures struct {
	ExpectedTill       string `json:"expectedTill"`
	ActualTill         string `json:"actualTill"`
	Discrepancy        string `json:"discrepancy"`
	Direction          string `json:"direction"`
	CashBuyIns         string `json:"cashBuyIns"`
	PaidCreditBuyIns   string `json:"paidCreditBuyIns"`
	AutoSettledCredit  string `json:"autoSettledCredit"`
	ManuallyPaidCredit string `json:"manuallyPaidCredit"`
	CashCashouts       string `json:"cashCashouts"`
	PaidTips           string `json:"paidTips"`
	ClaimedRake        string `json:"claimedRake"`
	Expenses           string `json:"expenses"`
}

type promptTransaction struct {
	ID            string `json:"id"`
	PlayerName    string `json:"playerName"`
	Type          string `json:"type"`
	Amount        string `json:"amount"`
	PaymentMethod string `json:"paymentMethod"`
	IsPaid        bool   `json:"isPaid"`
	Notes         string `json:"notes,omitempty"`
	Timestamp     string `json:"timestamp"`
}

type promptDealerDown struct {
	ID          string `json:"id"`
	DealerName  string `json:"dealerName"`
	Tips        string `json:"tips"`
	Rake        string `json:"rake"`
	TipsPaid    bool   `json:"tipsPaid"`
	RakeClaimed bool   `json:"rakeClaimed"`
	Timestamp   string `json:"timestamp"`
}

type promptExpense struct {
	ID            string `json:"id"`
	Description   string `json:"description"`
	Amount        string `json:"amount"`
	Category      string `json:"category"`
	PaymentMethod string `json:"paymentMethod"`
	PaidOut       bool   `json:"paidOut"`
	Notes         string `json:"notes,omitempty"`
	Timestamp     string `json:"timestamp"`
}

type promptPayload struct {
	Session      string              `json:"session"`
	Currency     string              `json:"currency"`
	Figures      promptFigures       `json:"figures"`
	Transactions []promptTransaction `json:"transactions"`
	DealerDowns  []promptDealerDown  `json:"dealerDowns"`
	Expenses     []promptExpense     `json:"expenses"`
}

func buildPrompt(input Input, till ledger.Till, expected, actual, discrepancy decimal.Decimal) (Prompt, error) {
	direction := "over"
	if discrepancy.IsNegative() {
		direction = "short"
	}

	payload := promptPayload{
		Session:  input.Session.Name,
		Currency: input.Session.Currency,
		Figures: promptFigures{
			ExpectedTill:       expected.StringFixed(2),
			ActualTill:         actual.StringFixed(2),
			Discrepancy:        discrepancy.StringFixed(2),
			Direction:          direction,
			CashBuyIns:         till.CashBuyIns.StringFixed(2),
			PaidCreditBuyIns:   till.PaidCreditBuyIns.StringFixed(2),
			AutoSettledCredit:  till.AutoSettledCredit.StringFixed(2),
			ManuallyPaidCredit: till.ManuallyPaidCredit.StringFixed(2),
			CashCashouts:       till.CashCashouts.StringFixed(2),
			PaidTips:           till.PaidTips.StringFixed(2),
			ClaimedRake:        till.ClaimedRake.StringFixed(2),
			Expenses:           till.Expenses.StringFixed(2),
		},
		Transactions: make([]promptTransaction, 0, len(input.Transactions)),
		DealerDowns:  make([]promptDealerDown, 0, len(input.DealerDowns)),
		Expenses:     make([]promptExpense, 0, len(input.Expenses)),
	}

	for _, transaction := range input.Transactions {
		payload.Transactions = append(payload.Transactions, promptTransaction{
			ID:            transaction.ID,
			PlayerName:    transaction.PlayerName,
			Type:          string(transaction.Type),
			Amount:        transaction.Amount.StringFixed(2),
			PaymentMethod: string(transaction.PaymentMethod),
			IsPaid:        transaction.IsPaid,
			Notes:         strings.TrimSpace(transaction.Notes),
			Timestamp:     isoTimestamp(transaction.Timestamp),
		})
	}
	for _, down := range input.DealerDowns {
		payload.DealerDowns = append(payload.DealerDowns, promptDealerDown{
			ID:          down.ID,
			DealerName:  down.DealerName,
			Tips:        down.Tips.StringFixed(2),
			Rake:        down.Rake.StringFixed(2),
			TipsPaid:    down.TipsPaid,
			RakeClaimed: down.RakeClaimed,
			Timestamp:   isoTimestamp(down.Timestamp),
		})
	}
	for _, expense := range input.Expenses {
		payload.Expenses = append(payload.Expenses, promptExpense{
			ID:            expense.ID,
			Description:   expense.Description,
			Amount:        expense.Amount.StringFixed(2),
			Category:      string(expense.Category),
			PaymentMethod: string(expense.PaymentMethod),
			PaidOut:       expense.PaidOut,
			Notes:         strings.TrimSpace(expense.Notes),
			Timestamp:     isoTimestamp(expense.Timestamp),
		})
	}

	encoded, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return Prompt{}, err
	}
	return Prompt{System: systemPrompt, User: string(encoded)}, nil
}

func isoTimestamp(value time.Time) string {
	if value.IsZero() {
		return ""
	}
	return value.UTC().Format(time.RFC3339)
}
