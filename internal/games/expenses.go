package games

import (
	"context"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ExpenseInput describes a house expense.
type ExpenseInput struct {
	Description   string
	Amount        decimal.Decimal
	Category      string
	PaymentMethod string
	PaidOut       bool
	Notes         string
	Timestamp     time.Time
}

type validatedExpense struct {
	description string
	amount      decimal.Decimal
	category    ledger.ExpenseCategory
	method      ledger.PaymentMethod
	notes       string
}

func validateExpense(input ExpenseInput) (validatedExpense, error) {
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return validatedExpense{}, validationError("description is required")
	}
	if len(description) > maxDescriptionLength {
		return validatedExpense{}, validationError("description exceeds %d characters", maxDescriptionLength)
	}
	amount, err := requirePositiveAmount("amount", input.Amount)
	if err != nil {
		return validatedExpense{}, err
	}
	category, err := parseExpenseCategory(input.Category)
	if err != nil {
		return validatedExpense{}, err
	}
	method, err := parseExpenseMethod(input.PaymentMethod)
	if err != nil {
		return validatedExpense{}, err
	}
	return validatedExpense{
		description: description,
		amount:      amount,
		category:    category,
		method:      method,
		notes:       strings.TrimSpace(input.Notes),
	}, nil
}

// CreateExpense records money the house spent.
func (s *Service) CreateExpense(ctx context.Context, actor Actor, sessionID string, input ExpenseInput) (Expense, error) {
	if err := s.guard(opCreateExpense, actor); err != nil {
		return Expense{}, err
	}
	validated, err := validateExpense(input)
	if err != nil {
		return Expense{}, newServiceError(opCreateExpense, reasonInvalidInput, err)
	}
	access, err := s.loadAccess(ctx, s.db, opCreateExpense, actor, sessionID)
	if err != nil {
		return Expense{}, err
	}
	id, err := s.newID(opCreateExpense)
	if err != nil {
		return Expense{}, err
	}

	expense := Expense{
		ID:                id,
		SessionID:         access.session.ID,
		Description:       validated.description,
		Amount:            validated.amount,
		Category:          string(validated.category),
		PaymentMethod:     string(validated.method),
		PaidOut:           input.PaidOut,
		Notes:             validated.notes,
		Timestamp:         s.timestampOrNow(input.Timestamp),
		CreatedByID:       actor.UserID,
		CreatedByInitials: actor.Initials,
	}
	if err := s.db.WithContext(ctx).Create(&expense).Error; err != nil {
		return Expense{}, s.writeFailed(opCreateExpense, err, zap.String("session_id", expense.SessionID))
	}
	s.notify(expense.SessionID, ChangeExpense, expense.ID)
	return expense, nil
}

// UpdateExpense replaces the editable fields of an expense.
func (s *Service) UpdateExpense(ctx context.Context, actor Actor, expenseID string, input ExpenseInput) (Expense, error) {
	if err := s.guard(opUpdateExpense, actor); err != nil {
		return Expense{}, err
	}
	validated, err := validateExpense(input)
	if err != nil {
		return Expense{}, newServiceError(opUpdateExpense, reasonInvalidInput, err)
	}

	var expense Expense
	if err := s.loadOwnedRecord(ctx, s.db, opUpdateExpense, actor, expenseID, &expense); err != nil {
		return Expense{}, err
	}
	expense.Description = validated.description
	expense.Amount = validated.amount
	expense.Category = string(validated.category)
	expense.PaymentMethod = string(validated.method)
	expense.PaidOut = input.PaidOut
	expense.Notes = validated.notes
	if !input.Timestamp.IsZero() {
		expense.Timestamp = input.Timestamp.UTC()
	}

	if err := s.db.WithContext(ctx).Save(&expense).Error; err != nil {
		return Expense{}, s.writeFailed(opUpdateExpense, err, zap.String("expense_id", expense.ID))
	}
	s.notify(expense.SessionID, ChangeExpense, expense.ID)
	return expense, nil
}

// DeleteExpense removes an expense.
func (s *Service) DeleteExpense(ctx context.Context, actor Actor, expenseID string) error {
	if err := s.guard(opDeleteExpense, actor); err != nil {
		return err
	}
	var expense Expense
	if err := s.loadOwnedRecord(ctx, s.db, opDeleteExpense, actor, expenseID, &expense); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Where("id = ?", expense.ID).Delete(&Expense{}).Error; err != nil {
		return s.writeFailed(opDeleteExpense, err, zap.String("expense_id", expense.ID))
	}
	s.notify(expense.SessionID, ChangeExpense, expense.ID)
	return nil
}

// MarkExpensePaidOut flags an expense as reimbursed.
func (s *Service) MarkExpensePaidOut(ctx context.Context, actor Actor, expenseID string) (Expense, error) {
	if err := s.guard(opMarkExpensePaidOut, actor); err != nil {
		return Expense{}, err
	}
	var expense Expense
	if err := s.loadOwnedRecord(ctx, s.db, opMarkExpensePaidOut, actor, expenseID, &expense); err != nil {
		return Expense{}, err
	}
	if expense.PaidOut {
		return expense, nil
	}
	if err := s.db.WithContext(ctx).Model(&Expense{}).Where("id = ?", expense.ID).Update("paid_out", true).Error; err != nil {
		return Expense{}, s.writeFailed(opMarkExpensePaidOut, err, zap.String("expense_id", expense.ID))
	}
	expense.PaidOut = true
	s.notify(expense.SessionID, ChangeExpense, expense.ID)
	return expense, nil
}
