package games

import (
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// GameSession is one night at one table.
type GameSession struct {
	ID             string          `gorm:"column:id;primaryKey;size:64;not null"`
	Name           string          `gorm:"column:name;size:190;not null"`
	TableLabel     string          `gorm:"column:table_name;size:190;not null;default:''"`
	StartedAt      time.Time       `gorm:"column:started_at;not null"`
	EndedAt        *time.Time      `gorm:"column:ended_at"`
	IsActive       bool            `gorm:"column:is_active;not null;default:true;index:idx_sessions_owner_active,priority:2"`
	Currency       string          `gorm:"column:currency;size:3;not null;default:'USD'"`
	Language       string          `gorm:"column:language;size:8;not null;default:'en'"`
	TotalRake      decimal.Decimal `gorm:"column:total_rake;type:decimal(12,2);not null;default:0"`
	OwnerID        string          `gorm:"column:owner_id;size:190;not null;index:idx_sessions_owner_active,priority:1"`
	ShareCode      *string         `gorm:"column:share_code;size:32;uniqueIndex"`
	ShareExpiresAt *time.Time      `gorm:"column:share_expires_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (GameSession) TableName() string {
	return "game_sessions"
}

// SessionMember grants a co-editor access to a session.
type SessionMember struct {
	SessionID string    `gorm:"column:session_id;primaryKey;size:64;not null"`
	UserID    string    `gorm:"column:user_id;primaryKey;size:190;not null;index"`
	JoinedAt  time.Time `gorm:"column:joined_at;not null"`
}

// TableName provides the explicit table binding for GORM.
func (SessionMember) TableName() string {
	return "session_members"
}

// PlayerTransaction is a buy-in or cashout. Settlement columns are filled once at
// write time; SettlementRecorded is false only for rows that predate them.
type PlayerTransaction struct {
	ID                 string              `gorm:"column:id;primaryKey;size:64;not null"`
	SessionID          string              `gorm:"column:session_id;size:64;not null;index"`
	PlayerName         string              `gorm:"column:player_name;size:190;not null"`
	Type               string              `gorm:"column:type;size:16;not null"`
	Amount             decimal.Decimal     `gorm:"column:amount;type:decimal(12,2);not null"`
	PaymentMethod      string              `gorm:"column:payment_method;size:16;not null"`
	Notes              string              `gorm:"column:notes;type:text;not null;default:''"`
	IsPaid             bool                `gorm:"column:is_paid;not null"`
	SettlementRecorded bool                `gorm:"column:settlement_recorded;not null;default:false"`
	SettlementCash     decimal.NullDecimal `gorm:"column:settlement_cash;type:decimal(12,2)"`
	SettlementCredit   decimal.NullDecimal `gorm:"column:settlement_credit;type:decimal(12,2)"`
	Timestamp          time.Time           `gorm:"column:timestamp;not null"`
	CreatedByID        string              `gorm:"column:created_by_id;size:190;not null"`
	CreatedByInitials  string              `gorm:"column:created_by_initials;size:2;not null"`
	CreatedAt          time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (PlayerTransaction) TableName() string {
	return "player_transactions"
}

// DealerDown is one dealer rotation's tips and rake.
type DealerDown struct {
	ID                string          `gorm:"column:id;primaryKey;size:64;not null"`
	SessionID         string          `gorm:"column:session_id;size:64;not null;index"`
	DealerName        string          `gorm:"column:dealer_name;size:190;not null"`
	Tips              decimal.Decimal `gorm:"column:tips;type:decimal(12,2);not null;default:0"`
	Rake              decimal.Decimal `gorm:"column:rake;type:decimal(12,2);not null;default:0"`
	TipsPaid          bool            `gorm:"column:tips_paid;not null;default:false"`
	RakeClaimed       bool            `gorm:"column:rake_claimed;not null;default:false"`
	Timestamp         time.Time       `gorm:"column:timestamp;not null"`
	CreatedByID       string          `gorm:"column:created_by_id;size:190;not null"`
	CreatedByInitials string          `gorm:"column:created_by_initials;size:2;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (DealerDown) TableName() string {
	return "dealer_downs"
}

// Expense is money the house spent during the session.
type Expense struct {
	ID                string          `gorm:"column:id;primaryKey;size:64;not null"`
	SessionID         string          `gorm:"column:session_id;size:64;not null;index"`
	Description       string          `gorm:"column:description;size:512;not null"`
	Amount            decimal.Decimal `gorm:"column:amount;type:decimal(12,2);not null"`
	Category          string          `gorm:"column:category;size:16;not null"`
	PaymentMethod     string          `gorm:"column:payment_method;size:16;not null"`
	PaidOut           bool            `gorm:"column:paid_out;not null;default:false"`
	Notes             string          `gorm:"column:notes;type:text;not null;default:''"`
	Timestamp         time.Time       `gorm:"column:timestamp;not null"`
	CreatedByID       string          `gorm:"column:created_by_id;size:190;not null"`
	CreatedByInitials string          `gorm:"column:created_by_initials;size:2;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Expense) TableName() string {
	return "expenses"
}

// TillCount stores one physical till count together with the analysis it produced.
type TillCount struct {
	ID                string          `gorm:"column:id;primaryKey;size:64;not null"`
	SessionID         string          `gorm:"column:session_id;size:64;not null;index"`
	ActualTill        decimal.Decimal `gorm:"column:actual_till;type:decimal(12,2);not null"`
	ExpectedTill      decimal.Decimal `gorm:"column:expected_till;type:decimal(12,2);not null"`
	Discrepancy       decimal.Decimal `gorm:"column:discrepancy;type:decimal(12,2);not null"`
	Analysis          datatypes.JSON  `gorm:"column:analysis"`
	CreatedByID       string          `gorm:"column:created_by_id;size:190;not null"`
	CreatedByInitials string          `gorm:"column:created_by_initials;size:2;not null"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (TillCount) TableName() string {
	return "till_counts"
}

// Ledger converts the session into the aggregator's view.
func (s GameSession) Ledger() ledger.Session {
	return ledger.Session{
		ID:        s.ID,
		Name:      s.Name,
		Currency:  s.Currency,
		TotalRake: s.TotalRake,
	}
}

// Ledger converts the row into the aggregator's view.
func (t PlayerTransaction) Ledger() ledger.Transaction {
	converted := ledger.Transaction{
		ID:            t.ID,
		PlayerName:    t.PlayerName,
		Type:          ledger.TransactionType(t.Type),
		Amount:        t.Amount,
		PaymentMethod: ledger.PaymentMethod(t.PaymentMethod),
		Notes:         t.Notes,
		IsPaid:        t.IsPaid,
		Timestamp:     t.Timestamp,
	}
	if t.SettlementRecorded {
		converted.Settlement = &ledger.Settlement{
			Cash:   t.SettlementCash,
			Credit: t.SettlementCredit,
		}
	}
	return converted
}

// Ledger converts the row into the aggregator's view.
func (d DealerDown) Ledger() ledger.DealerDown {
	return ledger.DealerDown{
		ID:          d.ID,
		DealerName:  d.DealerName,
		Tips:        d.Tips,
		Rake:        d.Rake,
		TipsPaid:    d.TipsPaid,
		RakeClaimed: d.RakeClaimed,
		Timestamp:   d.Timestamp,
	}
}

// Ledger converts the row into the aggregator's view.
func (e Expense) Ledger() ledger.Expense {
	return ledger.Expense{
		ID:            e.ID,
		Description:   e.Description,
		Amount:        e.Amount,
		Category:      ledger.ExpenseCategory(e.Category),
		PaymentMethod: ledger.PaymentMethod(e.PaymentMethod),
		PaidOut:       e.PaidOut,
		Notes:         e.Notes,
		Timestamp:     e.Timestamp,
	}
}

// ApplySettlement records structured settlement facts on the row.
func (t *PlayerTransaction) ApplySettlement(settlement *ledger.Settlement) {
	t.SettlementRecorded = true
	t.SettlementCash = decimal.NullDecimal{}
	t.SettlementCredit = decimal.NullDecimal{}
	if settlement == nil {
		return
	}
	t.SettlementCash = settlement.Cash
	t.SettlementCredit = settlement.Credit
}

// Events is the full event set of a session, loaded before aggregation.
type Events struct {
	Session      GameSession
	Transactions []PlayerTransaction
	DealerDowns  []DealerDown
	Expenses     []Expense
}

// LedgerTransactions converts all transactions.
func (e Events) LedgerTransactions() []ledger.Transaction {
	converted := make([]ledger.Transaction, 0, len(e.Transactions))
	for _, transaction := range e.Transactions {
		converted = append(converted, transaction.Ledger())
	}
	return converted
}

// LedgerDealerDowns converts all dealer downs.
func (e Events) LedgerDealerDowns() []ledger.DealerDown {
	converted := make([]ledger.DealerDown, 0, len(e.DealerDowns))
	for _, down := range e.DealerDowns {
		converted = append(converted, down.Ledger())
	}
	return converted
}

// LedgerExpenses converts all expenses.
func (e Events) LedgerExpenses() []ledger.Expense {
	converted := make([]ledger.Expense, 0, len(e.Expenses))
	for _, expense := range e.Expenses {
		converted = append(converted, expense.Ledger())
	}
	return converted
}
