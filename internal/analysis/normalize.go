package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/MarcoPoloResearchLab/cashgame/internal/ledger"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

type normalizedResponse struct {
	summary         string
	causes          []Cause
	review          []ReviewItem
	recommendations []string
}

// normalizeResponse decodes collaborator output field by field. Only syntactically
// invalid JSON is an error; every other defect degrades to a safe default.
func normalizeResponse(raw string, transactions map[string]ledger.Transaction) (normalizedResponse, error) {
	body := stripCodeFence(raw)
	if body == "" || !gjson.Valid(body) {
		return normalizedResponse{}, fmt.Errorf("%w: output is not valid JSON", ErrUpstreamInvalidResponse)
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return normalizedResponse{}, fmt.Errorf("%w: output is not a JSON object", ErrUpstreamInvalidResponse)
	}

	response := normalizedResponse{
		summary:         stringOr(root.Get("summary"), unknownPlaceholder),
		causes:          []Cause{},
		review:          []ReviewItem{},
		recommendations: []string{},
	}

	for _, item := range arrayOf(root.Get("possibleCauses")) {
		if !item.IsObject() {
			continue
		}
		response.causes = append(response.causes, Cause{
			Description:    stringOr(item.Get("description"), unknownPlaceholder),
			Likelihood:     parseLikelihood(item.Get("likelihood")),
			Amount:         decimalOf(item.Get("amount")),
			TransactionIDs: stringsOf(item.Get("transactionIds")),
		})
	}
	sort.SliceStable(response.causes, func(i, j int) bool {
		return response.causes[i].Likelihood.rank() < response.causes[j].Likelihood.rank()
	})

	for _, item := range arrayOf(root.Get("transactionsToReview")) {
		if !item.IsObject() {
			continue
		}
		response.review = append(response.review, reviewItemOf(item, transactions))
	}

	for _, item := range arrayOf(root.Get("recommendations")) {
		if text := stringOr(item, ""); text != "" {
			response.recommendations = append(response.recommendations, text)
		}
	}

	return response, nil
}

// reviewItemOf prefers stored transaction facts over whatever the collaborator echoed.
func reviewItemOf(item gjson.Result, transactions map[string]ledger.Transaction) ReviewItem {
	review := ReviewItem{
		ID:            stringOr(idOf(item.Get("id")), unknownPlaceholder),
		PlayerName:    stringOr(item.Get("playerName"), unknownPlaceholder),
		Type:          stringOr(item.Get("type"), unknownPlaceholder),
		Amount:        decimalOf(item.Get("amount")),
		PaymentMethod: stringOr(item.Get("paymentMethod"), unknownPlaceholder),
		Notes:         stringOr(item.Get("notes"), ""),
		Reason:        stringOr(item.Get("reason"), unknownPlaceholder),
	}
	if transaction, ok := transactions[review.ID]; ok {
		amount := transaction.Amount
		review.PlayerName = transaction.PlayerName
		review.Type = string(transaction.Type)
		review.Amount = &amount
		review.PaymentMethod = string(transaction.PaymentMethod)
		review.Notes = strings.TrimSpace(transaction.Notes)
	}
	return review
}

func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if newline := strings.IndexByte(trimmed, '\n'); newline >= 0 {
		trimmed = trimmed[newline+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func arrayOf(value gjson.Result) []gjson.Result {
	if !value.IsArray() {
		return nil
	}
	return value.Array()
}

func stringOr(value gjson.Result, fallback string) string {
	if value.Type != gjson.String {
		return fallback
	}
	text := strings.TrimSpace(value.Str)
	if text == "" {
		return fallback
	}
	return text
}

// idOf accepts numeric identifiers as well, since collaborators sometimes unquote them.
func idOf(value gjson.Result) gjson.Result {
	if value.Type == gjson.Number {
		return gjson.Result{Type: gjson.String, Str: value.Raw}
	}
	return value
}

func stringsOf(value gjson.Result) []string {
	values := make([]string, 0)
	for _, item := range arrayOf(value) {
		if text := stringOr(idOf(item), ""); text != "" {
			values = append(values, text)
		}
	}
	return values
}

func parseLikelihood(value gjson.Result) Likelihood {
	switch Likelihood(strings.ToLower(stringOr(value, ""))) {
	case LikelihoodHigh:
		return LikelihoodHigh
	case LikelihoodLow:
		return LikelihoodLow
	default:
		return LikelihoodMedium
	}
}

// decimalOf returns nil for anything that is not a usable amount so callers can tell
// "unknown" apart from zero.
func decimalOf(value gjson.Result) *decimal.Decimal {
	var text string
	switch value.Type {
	case gjson.Number:
		text = value.Raw
	case gjson.String:
		text = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(value.Str))
	default:
		return nil
	}
	parsed, err := decimal.NewFromString(text)
	if err != nil {
		return nil
	}
	parsed = parsed.Round(2)
	return &parsed
}
