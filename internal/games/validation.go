package games

import (
	"strings"

	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"github.com/shopspring/decimal"
)

const (
	maxNameLength        = 190
	maxDescriptionLength = 512
	defaultCurrency      = "USD"
	defaultLanguage      = "en"
)

var hundred = decimal.NewFromInt(100)

func requireName(field, value string) (string, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", validationError("%s is required", field)
	}
	if len(trimmed) > maxNameLength {
		return "", validationError("%s exceeds %d characters", field, maxNameLength)
	}
	return trimmed, nil
}

// requirePositiveAmount accepts amounts > 0 with at most two fraction digits.
func requirePositiveAmount(field string, value decimal.Decimal) (decimal.Decimal, error) {
	if !value.IsPositive() {
		return decimal.Zero, validationError("%s must be greater than zero", field)
	}
	return requireCents(field, value)
}

func requireNonNegativeAmount(field string, value decimal.Decimal) (decimal.Decimal, error) {
	if value.IsNegative() {
		return decimal.Zero, validationError("%s must not be negative", field)
	}
	return requireCents(field, value)
}

func requireCents(field string, value decimal.Decimal) (decimal.Decimal, error) {
	if !value.Equal(value.Round(2)) {
		return decimal.Zero, validationError("%s allows at most two decimal places", field)
	}
	return value.Round(2), nil
}

func parseTransactionType(value string) (ledger.TransactionType, error) {
	switch ledger.TransactionType(strings.ToLower(strings.TrimSpace(value))) {
	case ledger.TransactionBuyIn:
		return ledger.TransactionBuyIn, nil
	case ledger.TransactionCashout:
		return ledger.TransactionCashout, nil
	default:
		return "", validationError("unknown transaction type %q", value)
	}
}

func parseTransactionMethod(value string) (ledger.PaymentMethod, error) {
	switch ledger.PaymentMethod(strings.ToLower(strings.TrimSpace(value))) {
	case ledger.PaymentCash:
		return ledger.PaymentCash, nil
	case ledger.PaymentElectronic:
		return ledger.PaymentElectronic, nil
	case ledger.PaymentCredit:
		return ledger.PaymentCredit, nil
	default:
		return "", validationError("unknown payment method %q", value)
	}
}

func parseExpenseMethod(value string) (ledger.PaymentMethod, error) {
	switch ledger.PaymentMethod(strings.ToLower(strings.TrimSpace(value))) {
	case ledger.PaymentCash:
		return ledger.PaymentCash, nil
	case ledger.PaymentElectronic:
		return ledger.PaymentElectronic, nil
	default:
		return "", validationError("expenses are paid by cash or electronic, got %q", value)
	}
}

func parseExpenseCategory(value string) (ledger.ExpenseCategory, error) {
	switch ledger.ExpenseCategory(strings.ToLower(strings.TrimSpace(value))) {
	case ledger.ExpenseFood:
		return ledger.ExpenseFood, nil
	case ledger.ExpenseDrinks:
		return ledger.ExpenseDrinks, nil
	case ledger.ExpenseOther, "":
		return ledger.ExpenseOther, nil
	default:
		return "", validationError("unknown expense category %q", value)
	}
}

func normalizeCurrency(value string) (string, error) {
	trimmed := strings.ToUpper(strings.TrimSpace(value))
	if trimmed == "" {
		return defaultCurrency, nil
	}
	if len(trimmed) != 3 {
		return "", validationError("currency must be a three-letter code")
	}
	return trimmed, nil
}

func normalizeLanguage(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" || len(trimmed) > 8 {
		return defaultLanguage
	}
	return trimmed
}

func requirePercentage(value *decimal.Decimal) (decimal.Decimal, error) {
	if value == nil {
		return hundred, nil
	}
	if value.IsNegative() || value.GreaterThan(hundred) {
		return decimal.Zero, validationError("percentage must be between 0 and 100")
	}
	return *value, nil
}
