package games

import (
	"context"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// TransactionInput describes a buy-in or cashout as submitted by a client.
// CashReceived and CreditSettled record a hybrid cashout explicitly; when both are nil
// the settlement is read from Notes.
type TransactionInput struct {
	PlayerName    string
	Type          string
	Amount        decimal.Decimal
	PaymentMethod string
	Notes         string
	IsPaid        *bool
	Timestamp     time.Time
	CashReceived  *decimal.Decimal
	CreditSettled *decimal.Decimal
}

type validatedTransaction struct {
	playerName string
	kind       ledger.TransactionType
	amount     decimal.Decimal
	method     ledger.PaymentMethod
	notes      string
	isPaid     bool
	settlement *ledger.Settlement
}

func validateTransaction(input TransactionInput) (validatedTransaction, error) {
	playerName, err := requireName("playerName", input.PlayerName)
	if err != nil {
		return validatedTransaction{}, err
	}
	kind, err := parseTransactionType(input.Type)
	if err != nil {
		return validatedTransaction{}, err
	}
	amount, err := requirePositiveAmount("amount", input.Amount)
	if err != nil {
		return validatedTransaction{}, err
	}
	method, err := parseTransactionMethod(input.PaymentMethod)
	if err != nil {
		return validatedTransaction{}, err
	}
	notes := strings.TrimSpace(input.Notes)

	isPaid := true
	if method == ledger.PaymentCredit && kind == ledger.TransactionBuyIn {
		isPaid = input.IsPaid != nil && *input.IsPaid
	}

	settlement, err := settlementFor(kind, notes, input.CashReceived, input.CreditSettled)
	if err != nil {
		return validatedTransaction{}, err
	}

	return validatedTransaction{
		playerName: playerName,
		kind:       kind,
		amount:     amount,
		method:     method,
		notes:      notes,
		isPaid:     isPaid,
		settlement: settlement,
	}, nil
}

// settlementFor derives the structured settlement of a cashout. Buy-ins never carry one.
func settlementFor(kind ledger.TransactionType, notes string, cash, credit *decimal.Decimal) (*ledger.Settlement, error) {
	if kind != ledger.TransactionCashout {
		if cash != nil || credit != nil {
			return nil, validationError("settlement amounts apply to cashouts only")
		}
		return nil, nil
	}
	if cash == nil && credit == nil {
		return ledger.SettlementFromNotes(notes), nil
	}

	settlement := &ledger.Settlement{}
	if cash != nil {
		value, err := requireNonNegativeAmount("cashReceived", *cash)
		if err != nil {
			return nil, err
		}
		settlement.Cash = decimal.NewNullDecimal(value)
	}
	if credit != nil {
		value, err := requireNonNegativeAmount("creditSettled", *credit)
		if err != nil {
			return nil, err
		}
		settlement.Credit = decimal.NewNullDecimal(value)
	}
	return settlement, nil
}

func isCreditBuyIn(kind, method string) bool {
	return kind == string(ledger.TransactionBuyIn) && method == string(ledger.PaymentCredit)
}

func (v validatedTransaction) applyTo(row *PlayerTransaction) {
	row.PlayerName = v.playerName
	row.Type = string(v.kind)
	row.Amount = v.amount
	row.PaymentMethod = string(v.method)
	row.Notes = v.notes
	row.IsPaid = v.isPaid
	row.ApplySettlement(v.settlement)
}

// CreateTransaction records a buy-in or cashout. Owners and members may create.
func (s *Service) CreateTransaction(ctx context.Context, actor Actor, sessionID string, input TransactionInput) (PlayerTransaction, error) {
	if err := s.guard(opCreateTransaction, actor); err != nil {
		return PlayerTransaction{}, err
	}
	validated, err := validateTransaction(input)
	if err != nil {
		return PlayerTransaction{}, newServiceError(opCreateTransaction, reasonInvalidInput, err)
	}
	access, err := s.loadAccess(ctx, s.db, opCreateTransaction, actor, sessionID)
	if err != nil {
		return PlayerTransaction{}, err
	}
	id, err := s.newID(opCreateTransaction)
	if err != nil {
		return PlayerTransaction{}, err
	}

	row := PlayerTransaction{
		ID:                id,
		SessionID:         access.session.ID,
		Timestamp:         s.timestampOrNow(input.Timestamp),
		CreatedByID:       actor.UserID,
		CreatedByInitials: actor.Initials,
	}
	validated.applyTo(&row)

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return PlayerTransaction{}, s.writeFailed(opCreateTransaction, err, zap.String("session_id", row.SessionID))
	}
	s.notify(row.SessionID, ChangeTransaction, row.ID)
	return row, nil
}

// UpdateTransaction replaces the editable fields of a transaction and recomputes its
// settlement. A credit buy-in keeps its paid flag unless the input sets one.
func (s *Service) UpdateTransaction(ctx context.Context, actor Actor, transactionID string, input TransactionInput) (PlayerTransaction, error) {
	if err := s.guard(opUpdateTransaction, actor); err != nil {
		return PlayerTransaction{}, err
	}
	validated, err := validateTransaction(input)
	if err != nil {
		return PlayerTransaction{}, newServiceError(opUpdateTransaction, reasonInvalidInput, err)
	}

	var row PlayerTransaction
	if err := s.loadOwnedRecord(ctx, s.db, opUpdateTransaction, actor, transactionID, &row); err != nil {
		return PlayerTransaction{}, err
	}
	storedPaid := row.IsPaid
	wasCreditBuyIn := isCreditBuyIn(row.Type, row.PaymentMethod)
	validated.applyTo(&row)
	if input.IsPaid == nil && wasCreditBuyIn && isCreditBuyIn(row.Type, row.PaymentMethod) {
		row.IsPaid = storedPaid
	}
	if !input.Timestamp.IsZero() {
		row.Timestamp = input.Timestamp.UTC()
	}

	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return PlayerTransaction{}, s.writeFailed(opUpdateTransaction, err, zap.String("transaction_id", row.ID))
	}
	s.notify(row.SessionID, ChangeTransaction, row.ID)
	return row, nil
}

// DeleteTransaction removes a transaction.
func (s *Service) DeleteTransaction(ctx context.Context, actor Actor, transactionID string) error {
	if err := s.guard(opDeleteTransaction, actor); err != nil {
		return err
	}
	var row PlayerTransaction
	if err := s.loadOwnedRecord(ctx, s.db, opDeleteTransaction, actor, transactionID, &row); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", row.ID).Delete(&PlayerTransaction{}).Error; err != nil {
		return s.writeFailed(opDeleteTransaction, err, zap.String("transaction_id", row.ID))
	}
	s.notify(row.SessionID, ChangeTransaction, row.ID)
	return nil
}

// MarkCreditPaid records that a player settled a credit buy-in with cash.
// Marking an already paid buy-in succeeds without a write.
func (s *Service) MarkCreditPaid(ctx context.Context, actor Actor, transactionID string) (PlayerTransaction, error) {
	if err := s.guard(opMarkCreditPaid, actor); err != nil {
		return PlayerTransaction{}, err
	}
	var row PlayerTransaction
	if err := s.loadOwnedRecord(ctx, s.db, opMarkCreditPaid, actor, transactionID, &row); err != nil {
		return PlayerTransaction{}, err
	}
	if !isCreditBuyIn(row.Type, row.PaymentMethod) {
		return PlayerTransaction{}, newServiceError(opMarkCreditPaid, reasonInvalidInput, validationError("only credit buy-ins can be marked paid"))
	}
	if row.IsPaid {
		return row, nil
	}

	if err := s.db.WithContext(ctx).Model(&PlayerTransaction{}).Where("id = ?", row.ID).Update("is_paid", true).Error; err != nil {
		return PlayerTransaction{}, s.writeFailed(opMarkCreditPaid, err, zap.String("transaction_id", row.ID))
	}
	row.IsPaid = true
	s.notify(row.SessionID, ChangeTransaction, row.ID)
	return row, nil
}
