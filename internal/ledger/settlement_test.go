package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseCashReceivedDialects(t *testing.T) {
	testCases := []struct {
		name      string
		notes     string
		wantFound bool
		want      string
	}{
		{name: "current", notes: "received $150 cash, paid $150 credit", wantFound: true, want: "150"},
		{name: "current-cents", notes: "Received $42.50 cash", wantFound: true, want: "42.5"},
		{name: "current-no-dollar", notes: "received 80 cash", wantFound: true, want: "80"},
		{name: "thousands", notes: "received $1,250.75 cash", wantFound: true, want: "1250.75"},
		{name: "legacy", notes: "Settlement (credit settled: $200, cash paid: $100)", wantFound: true, want: "100"},
		{name: "unmatched", notes: "left early", wantFound: false},
		{name: "empty", notes: "", wantFound: false},
		{name: "legacy-without-paren", notes: "cash paid: $100", wantFound: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			amount, found := ParseCashReceived(testCase.notes)
			if found != testCase.wantFound {
				t.Fatalf("found mismatch: want %v got %v", testCase.wantFound, found)
			}
			if !found {
				return
			}
			if !amount.Equal(decimal.RequireFromString(testCase.want)) {
				t.Fatalf("unexpected amount %s, want %s", amount, testCase.want)
			}
		})
	}
}

func TestParseCreditSettledDialects(t *testing.T) {
	testCases := []struct {
		name      string
		notes     string
		wantFound bool
		want      string
	}{
		{name: "current", notes: "received $150 cash, paid $150 credit", wantFound: true, want: "150"},
		{name: "legacy", notes: "credit settled: $200.25", wantFound: true, want: "200.25"},
		{name: "cash-paid-is-not-credit", notes: "cash paid: $100)", wantFound: false},
		{name: "unmatched", notes: "paid in full", wantFound: false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			amount, found := ParseCreditSettled(testCase.notes)
			if found != testCase.wantFound {
				t.Fatalf("found mismatch: want %v got %v", testCase.wantFound, found)
			}
			if found && !amount.Equal(decimal.RequireFromString(testCase.want)) {
				t.Fatalf("unexpected amount %s, want %s", amount, testCase.want)
			}
		})
	}
}

func TestParseSettlementNotesIsIdempotent(t *testing.T) {
	notes := "received $150 cash, paid $150 credit"
	first, _ := ParseCashReceived(notes)
	second, _ := ParseCashReceived(notes)
	if !first.Equal(second) {
		t.Fatalf("expected repeated parses to agree, got %s and %s", first, second)
	}
}

func TestSettlementFromNotes(t *testing.T) {
	if settlement := SettlementFromNotes("no facts here"); settlement != nil {
		t.Fatalf("expected nil settlement, got %#v", settlement)
	}

	settlement := SettlementFromNotes("credit settled: $75")
	if settlement == nil {
		t.Fatalf("expected settlement")
	}
	if settlement.Cash.Valid {
		t.Fatalf("expected cash component to be absent")
	}
	if !settlement.Credit.Valid || !settlement.Credit.Decimal.Equal(decimal.NewFromInt(75)) {
		t.Fatalf("unexpected credit component %#v", settlement.Credit)
	}
}

func TestCashEquivalentPrefersStructuredSettlement(t *testing.T) {
	transaction := Transaction{
		Type:          TransactionCashout,
		Amount:        decimal.NewFromInt(300),
		PaymentMethod: PaymentCredit,
		Notes:         "received $150 cash",
		Settlement: &Settlement{
			Cash: decimal.NewNullDecimal(decimal.NewFromInt(90)),
		},
	}
	if got := transaction.CashEquivalent(); !got.Equal(decimal.NewFromInt(90)) {
		t.Fatalf("expected structured cash component 90, got %s", got)
	}

	transaction.Settlement = &Settlement{}
	if got := transaction.CashEquivalent(); !got.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected recorded empty settlement to fall back to nominal 300, got %s", got)
	}
}

func TestCashEquivalentFallsBackToNominalForEveryMethod(t *testing.T) {
	transaction := Transaction{
		Type:          TransactionCashout,
		Amount:        decimal.NewFromInt(300),
		PaymentMethod: PaymentCash,
		Notes:         "good game",
	}
	if got := transaction.CashEquivalent(); !got.Equal(decimal.NewFromInt(300)) {
		t.Fatalf("expected nominal amount, got %s", got)
	}

	for _, method := range []PaymentMethod{PaymentElectronic, PaymentCredit} {
		transaction.PaymentMethod = method
		transaction.Notes = "venmo"
		if got := transaction.CashEquivalent(); !got.Equal(decimal.NewFromInt(300)) {
			t.Fatalf("expected %s cashout without a cash fact to count nominal 300, got %s", method, got)
		}
	}
}
