// Package analysis reconciles a physical till count against the ledger and, when the
// two disagree, asks a reasoning collaborator for ranked explanations.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	matchedSummary        = "The till count matches the expected balance."
	matchedRecommendation = "No action needed: the physical count agrees with the ledger."
)

// Input gathers everything needed to analyze one till count. All events must be
// loaded before analysis starts.
type Input struct {
	Session      ledger.Session
	Transactions []ledger.Transaction
	DealerDowns  []ledger.DealerDown
	Expenses     []ledger.Expense
	ActualTill   decimal.Decimal
}

// AnalyzerConfig describes the analyzer's collaborators.
type AnalyzerConfig struct {
	Reasoner Reasoner
	Logger   *zap.Logger
}

// Analyzer explains till discrepancies.
type Analyzer struct {
	reasoner Reasoner
	logger   *zap.Logger
}

// NewAnalyzer builds an analyzer. A nil Reasoner is allowed; material discrepancies
// then fail with ErrUpstreamUnconfigured.
func NewAnalyzer(cfg AnalyzerConfig) *Analyzer {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{
		reasoner: cfg.Reasoner,
		logger:   logger,
	}
}

// ExpectedTill is the cash the drawer should hold according to the ledger.
func ExpectedTill(input Input) decimal.Decimal {
	return ledger.ComputeTill(input.Transactions, input.DealerDowns, input.Expenses).ExpectedCash()
}

// AnalyzeTill compares the reported count with the ledger. Immaterial differences are
// resolved locally without contacting the reasoner.
func (a *Analyzer) AnalyzeTill(ctx context.Context, input Input) (Result, error) {
	till := ledger.ComputeTill(input.Transactions, input.DealerDowns, input.Expenses)
	expected := till.ExpectedCash().Round(2)
	actual := input.ActualTill.Round(2)
	discrepancy := actual.Sub(expected)

	if discrepancy.Abs().LessThan(MaterialityThreshold) {
		return Result{
			DiscrepancyAmount:    decimal.Zero,
			ExpectedTill:         expected,
			ActualTill:           actual,
			Summary:              matchedSummary,
			PossibleCauses:       []Cause{},
			TransactionsToReview: []ReviewItem{},
			Recommendations:      []string{matchedRecommendation},
		}, nil
	}

	if a.reasoner == nil {
		return Result{}, ErrUpstreamUnconfigured
	}

	prompt, err := buildPrompt(input, till, expected, actual, discrepancy)
	if err != nil {
		return Result{}, fmt.Errorf("analysis: build prompt: %w", err)
	}

	a.logger.Info("requesting till discrepancy analysis",
		zap.String("session_id", input.Session.ID),
		zap.String("discrepancy", discrepancy.StringFixed(2)))

	raw, err := a.reasoner.Reason(ctx, prompt)
	if err != nil {
		a.logger.Warn("till discrepancy analysis failed",
			zap.String("session_id", input.Session.ID),
			zap.Error(err))
		if errors.Is(err, ErrUpstreamUnconfigured) || errors.Is(err, ErrUpstreamInvalidResponse) || errors.Is(err, ErrUpstreamUnavailable) {
			return Result{}, err
		}
		return Result{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	normalized, err := normalizeResponse(raw, indexTransactions(input.Transactions))
	if err != nil {
		a.logger.Warn("till discrepancy analysis returned invalid output",
			zap.String("session_id", input.Session.ID),
			zap.Error(err))
		return Result{}, err
	}

	return Result{
		DiscrepancyAmount:    discrepancy,
		ExpectedTill:         expected,
		ActualTill:           actual,
		Summary:              normalized.summary,
		PossibleCauses:       normalized.causes,
		TransactionsToReview: normalized.review,
		Recommendations:      normalized.recommendations,
	}, nil
}

func indexTransactions(transactions []ledger.Transaction) map[string]ledger.Transaction {
	index := make(map[string]ledger.Transaction, len(transactions))
	for _, transaction := range transactions {
		index[transaction.ID] = transaction
	}
	return index
}
