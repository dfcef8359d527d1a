package ledger

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const amountExpr = `\$?\s*(\d[\d,]*(?:\.\d{1,2})?)`

// Settlement facts are written into cashout notes by the client. The wording changed
// once; both dialects are still present in stored data and the current one wins.
var (
	cashReceivedPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\breceived\s+` + amountExpr + `\s+cash\b`),
		regexp.MustCompile(`(?i)\bcash\s+paid:\s*` + amountExpr + `\s*\)`),
	}
	creditSettledPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bpaid\s+` + amountExpr + `\s+credit\b`),
		regexp.MustCompile(`(?i)\bcredit\s+settled:\s*` + amountExpr),
	}
)

// ParseCashReceived extracts the "actual cash received" fact from cashout notes.
func ParseCashReceived(notes string) (decimal.Decimal, bool) {
	return matchAmount(cashReceivedPatterns, notes)
}

// ParseCreditSettled extracts the "credit settled" fact from cashout notes.
func ParseCreditSettled(notes string) (decimal.Decimal, bool) {
	return matchAmount(creditSettledPatterns, notes)
}

// SettlementFromNotes converts note-encoded facts into a structured settlement.
// It returns nil when the notes carry no settlement facts.
func SettlementFromNotes(notes string) *Settlement {
	cash, hasCash := ParseCashReceived(notes)
	credit, hasCredit := ParseCreditSettled(notes)
	if !hasCash && !hasCredit {
		return nil
	}
	settlement := &Settlement{}
	if hasCash {
		settlement.Cash = decimal.NewNullDecimal(cash)
	}
	if hasCredit {
		settlement.Credit = decimal.NewNullDecimal(credit)
	}
	return settlement
}

func matchAmount(patterns []*regexp.Regexp, notes string) (decimal.Decimal, bool) {
	if strings.TrimSpace(notes) == "" {
		return decimal.Zero, false
	}
	for _, pattern := range patterns {
		match := pattern.FindStringSubmatch(notes)
		if len(match) < 2 {
			continue
		}
		amount, err := decimal.NewFromString(strings.ReplaceAll(match[1], ",", ""))
		if err != nil {
			continue
		}
		return amount, true
	}
	return decimal.Zero, false
}
