package analysis

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrUpstreamUnconfigured indicates the reasoning collaborator has no credentials.
	ErrUpstreamUnconfigured = errors.New("analysis: reasoning service is not configured")
	// ErrUpstreamUnavailable indicates the reasoning collaborator could not be reached.
	ErrUpstreamUnavailable = errors.New("analysis: reasoning service unavailable")
	// ErrUpstreamInvalidResponse indicates the collaborator returned output that is not valid JSON.
	ErrUpstreamInvalidResponse = errors.New("analysis: reasoning service returned an invalid response")
)

// MaterialityThreshold is the smallest absolute discrepancy worth explaining.
var MaterialityThreshold = decimal.NewFromInt(1)

const unknownPlaceholder = "Unknown"

// Likelihood ranks a candidate cause.
type Likelihood string

const (
	LikelihoodHigh   Likelihood = "high"
	LikelihoodMedium Likelihood = "medium"
	LikelihoodLow    Likelihood = "low"
)

func (l Likelihood) rank() int {
	switch l {
	case LikelihoodHigh:
		return 0
	case LikelihoodMedium:
		return 1
	default:
		return 2
	}
}

// Prompt is the structured request handed to a Reasoner.
type Prompt struct {
	System string
	User   string
}

// Reasoner is the external collaborator that explains a discrepancy. It returns the raw
// text it produced; the analyzer never trusts its shape.
type Reasoner interface {
	Reason(ctx context.Context, prompt Prompt) (string, error)
}

// Cause is one candidate explanation for a discrepancy.
type Cause struct {
	Description    string
	Likelihood     Likelihood
	Amount         *decimal.Decimal
	TransactionIDs []string
}

// ReviewItem flags a transaction that warrants a manual look.
type ReviewItem struct {
	ID            string
	PlayerName    string
	Type          string
	Amount        *decimal.Decimal
	PaymentMethod string
	Notes         string
	Reason        string
}

// Result is the typed outcome of a till analysis.
type Result struct {
	DiscrepancyAmount    decimal.Decimal
	ExpectedTill         decimal.Decimal
	ActualTill           decimal.Decimal
	Summary              string
	PossibleCauses       []Cause
	TransactionsToReview []ReviewItem
	Recommendations      []string
}

// Material reports whether the result carried a discrepancy worth explaining.
func (r Result) Material() bool {
	return !r.DiscrepancyAmount.IsZero()
}
