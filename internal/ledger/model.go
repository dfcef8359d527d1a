// Package ledger turns the raw events of a cash-game session into reconciled figures.
//
// Everything here is pure: callers load events, hand them over, and receive totals.
// Amount validation happens when events are written, never during aggregation.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType distinguishes chips going out to a player from chips coming back.
type TransactionType string

const (
	// TransactionBuyIn issues chips to a player.
	TransactionBuyIn TransactionType = "buy-in"
	// TransactionCashout redeems a player's chips.
	TransactionCashout TransactionType = "cashout"
)

// PaymentMethod records how money moved for a transaction or expense.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentElectronic PaymentMethod = "electronic"
	PaymentCredit     PaymentMethod = "credit"
)

// ExpenseCategory groups house expenses.
type ExpenseCategory string

const (
	ExpenseFood   ExpenseCategory = "food"
	ExpenseDrinks ExpenseCategory = "drinks"
	ExpenseOther  ExpenseCategory = "other"
)

// Session carries the session-level figures the aggregator needs.
type Session struct {
	ID        string
	Name      string
	Currency  string
	TotalRake decimal.Decimal
}

// Settlement is the structured form of a hybrid cash/credit cashout.
// A nil *Settlement on a Transaction means the row predates structured settlements
// and its notes must be parsed instead.
type Settlement struct {
	Cash   decimal.NullDecimal
	Credit decimal.NullDecimal
}

// Transaction is a player buy-in or cashout.
type Transaction struct {
	ID            string
	PlayerName    string
	Type          TransactionType
	Amount        decimal.Decimal
	PaymentMethod PaymentMethod
	Notes         string
	IsPaid        bool
	Settlement    *Settlement
	Timestamp     time.Time
}

// DealerDown is one dealer's tip and rake report for a rotation.
type DealerDown struct {
	ID          string
	DealerName  string
	Tips        decimal.Decimal
	Rake        decimal.Decimal
	TipsPaid    bool
	RakeClaimed bool
	Timestamp   time.Time
}

// Expense is a house expense paid during the session.
type Expense struct {
	ID            string
	Description   string
	Amount        decimal.Decimal
	Category      ExpenseCategory
	PaymentMethod PaymentMethod
	PaidOut       bool
	Notes         string
	Timestamp     time.Time
}

// IsBuyIn reports whether the transaction issued chips.
func (t Transaction) IsBuyIn() bool {
	return t.Type == TransactionBuyIn
}

// IsCashout reports whether the transaction redeemed chips.
func (t Transaction) IsCashout() bool {
	return t.Type == TransactionCashout
}

// CashReceived returns the cash actually handed over on a cashout when a settlement
// recorded it.
func (t Transaction) CashReceived() (decimal.Decimal, bool) {
	if !t.IsCashout() {
		return decimal.Zero, false
	}
	if t.Settlement != nil {
		if t.Settlement.Cash.Valid {
			return t.Settlement.Cash.Decimal, true
		}
		return decimal.Zero, false
	}
	return ParseCashReceived(t.Notes)
}

// CreditSettled returns the credit debt paid off through this cashout, if any.
func (t Transaction) CreditSettled() (decimal.Decimal, bool) {
	if !t.IsCashout() {
		return decimal.Zero, false
	}
	if t.Settlement != nil {
		if t.Settlement.Credit.Valid {
			return t.Settlement.Credit.Decimal, true
		}
		return decimal.Zero, false
	}
	return ParseCreditSettled(t.Notes)
}

// CashEquivalent is the amount of physical cash that left the till for a cashout.
// Without a recorded cash component the whole nominal amount counts as cash,
// whatever the payment method.
func (t Transaction) CashEquivalent() decimal.Decimal {
	if !t.IsCashout() {
		return decimal.Zero
	}
	if received, ok := t.CashReceived(); ok {
		return received
	}
	return t.Amount
}
