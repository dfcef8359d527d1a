package games

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCreateTransactionStoresSettlementFromNotes(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")

	harness.addTransaction(t, session.ID, TransactionInput{
		PlayerName: "Ann", Type: "buy-in", Amount: mustDecimal(t, "500"), PaymentMethod: "credit",
	})
	cashout := harness.addTransaction(t, session.ID, TransactionInput{
		PlayerName:    "Ann",
		Type:          "cashout",
		Amount:        mustDecimal(t, "300"),
		PaymentMethod: "credit",
		Notes:         "received $150 cash, paid $150 credit",
	})

	var stored PlayerTransaction
	if err := harness.db.Where("id = ?", cashout.ID).Take(&stored).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !stored.SettlementRecorded {
		t.Fatalf("expected settlement to be recorded at write time")
	}
	if !stored.SettlementCash.Valid || !stored.SettlementCredit.Valid {
		t.Fatalf("expected both settlement components, got %#v", stored)
	}
	assertDecimal(t, "settlement cash", stored.SettlementCash.Decimal, "150")
	assertDecimal(t, "settlement credit", stored.SettlementCredit.Decimal, "150")

	summary, err := harness.service.Summary(ctx, testOwner, session.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	assertDecimal(t, "cash cashouts", summary.Summary.Till.CashCashouts, "150")
	assertDecimal(t, "auto-settled credit", summary.Summary.Till.AutoSettledCredit, "150")
	assertDecimal(t, "credit balance", summary.Summary.CreditBalance, "200")
}

func TestCreateTransactionPrefersExplicitSettlement(t *testing.T) {
	harness := newTestHarness(t)
	session := harness.startSession(t, "Friday")
	cash := mustDecimal(t, "80")

	cashout := harness.addTransaction(t, session.ID, TransactionInput{
		PlayerName:    "Ben",
		Type:          "cashout",
		Amount:        mustDecimal(t, "100"),
		PaymentMethod: "cash",
		Notes:         "received $50 cash",
		CashReceived:  &cash,
	})
	if !cashout.SettlementCash.Valid {
		t.Fatalf("expected explicit cash settlement")
	}
	assertDecimal(t, "settlement cash", cashout.SettlementCash.Decimal, "80")
	if cashout.SettlementCredit.Valid {
		t.Fatalf("expected no credit settlement")
	}
}

func TestCreateTransactionValidatesInput(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")

	cases := []struct {
		name  string
		input TransactionInput
	}{
		{name: "zero amount", input: TransactionInput{PlayerName: "Ann", Type: "buy-in", Amount: decimal.Zero, PaymentMethod: "cash"}},
		{name: "negative amount", input: TransactionInput{PlayerName: "Ann", Type: "buy-in", Amount: mustDecimal(t, "-5"), PaymentMethod: "cash"}},
		{name: "sub-cent amount", input: TransactionInput{PlayerName: "Ann", Type: "buy-in", Amount: mustDecimal(t, "10.005"), PaymentMethod: "cash"}},
		{name: "blank player", input: TransactionInput{PlayerName: " ", Type: "buy-in", Amount: mustDecimal(t, "10"), PaymentMethod: "cash"}},
		{name: "unknown type", input: TransactionInput{PlayerName: "Ann", Type: "rebuy", Amount: mustDecimal(t, "10"), PaymentMethod: "cash"}},
		{name: "unknown method", input: TransactionInput{PlayerName: "Ann", Type: "buy-in", Amount: mustDecimal(t, "10"), PaymentMethod: "crypto"}},
	}
	for _, testCase := range cases {
		t.Run(testCase.name, func(t *testing.T) {
			_, err := harness.service.CreateTransaction(ctx, testOwner, session.ID, testCase.input)
			assertServiceCode(t, err, ErrValidation, "games.create_transaction.invalid_input")
		})
	}
}

func TestCreateTransactionAllowsMembersButNotStrangers(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")
	input := TransactionInput{PlayerName: "Ann", Type: "buy-in", Amount: mustDecimal(t, "10"), PaymentMethod: "cash"}

	_, err := harness.service.CreateTransaction(ctx, testStranger, session.ID, input)
	assertServiceCode(t, err, ErrNotFound, "games.create_transaction.not_found")

	if _, err := harness.service.AddMember(ctx, testOwner, session.ID, testMember.UserID); err != nil {
		t.Fatalf("add member failed: %v", err)
	}
	created, err := harness.service.CreateTransaction(ctx, testMember, session.ID, input)
	if err != nil {
		t.Fatalf("member create failed: %v", err)
	}
	if created.CreatedByID != testMember.UserID || created.CreatedByInitials != "ME" {
		t.Fatalf("expected member attribution, got %s/%s", created.CreatedByID, created.CreatedByInitials)
	}

	err = harness.service.DeleteTransaction(ctx, testMember, created.ID)
	assertServiceCode(t, err, ErrForbidden, "games.delete_transaction.forbidden")
}

func TestCreditBuyInPaidFlag(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")
	unpaid := false

	credit := harness.addTransaction(t, session.ID, TransactionInput{
		PlayerName: "Cal", Type: "buy-in", Amount: mustDecimal(t, "200"), PaymentMethod: "credit",
	})
	if credit.IsPaid {
		t.Fatalf("expected credit buy-in to default to unpaid")
	}
	cash := harness.addTransaction(t, session.ID, TransactionInput{
		PlayerName: "Cal", Type: "buy-in", Amount: mustDecimal(t, "100"), PaymentMethod: "cash", IsPaid: &unpaid,
	})
	if !cash.IsPaid {
		t.Fatalf("expected cash buy-in to be paid")
	}

	var stored PlayerTransaction
	if err := harness.db.Where("id = ?", credit.ID).Take(&stored).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if stored.IsPaid {
		t.Fatalf("expected stored credit buy-in to be unpaid")
	}

	paid, err := harness.service.MarkCreditPaid(ctx, testOwner, credit.ID)
	if err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	if !paid.IsPaid {
		t.Fatalf("expected credit buy-in to be paid")
	}

	summary, err := harness.service.Summary(ctx, testOwner, session.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	assertDecimal(t, "paid credit", summary.Summary.Till.PaidCreditBuyIns, "200")
	assertDecimal(t, "till balance", summary.Summary.TillBalance, "300")
	assertDecimal(t, "credit balance", summary.Summary.CreditBalance, "0")

	_, err = harness.service.MarkCreditPaid(ctx, testOwner, cash.ID)
	assertServiceCode(t, err, ErrValidation, "games.mark_credit_paid.invalid_input")
}

func TestUpdateTransactionKeepsCreditPaidWhenOmitted(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")
	credit := harness.addTransaction(t, session.ID, TransactionInput{
		PlayerName: "Cal", Type: "buy-in", Amount: mustDecimal(t, "200"), PaymentMethod: "credit",
	})
	if _, err := harness.service.MarkCreditPaid(ctx, testOwner, credit.ID); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}

	renamed, err := harness.service.UpdateTransaction(ctx, testOwner, credit.ID, TransactionInput{
		PlayerName: "Calvin", Type: "buy-in", Amount: mustDecimal(t, "200"), PaymentMethod: "credit",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !renamed.IsPaid {
		t.Fatalf("expected paid credit buy-in to stay paid after a rename")
	}

	var stored PlayerTransaction
	if err := harness.db.Where("id = ?", credit.ID).Take(&stored).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if !stored.IsPaid || stored.PlayerName != "Calvin" {
		t.Fatalf("expected stored row renamed and paid, got %#v", stored)
	}

	unpaid := false
	reopened, err := harness.service.UpdateTransaction(ctx, testOwner, credit.ID, TransactionInput{
		PlayerName: "Calvin", Type: "buy-in", Amount: mustDecimal(t, "200"), PaymentMethod: "credit", IsPaid: &unpaid,
	})
	if err != nil {
		t.Fatalf("explicit update failed: %v", err)
	}
	if reopened.IsPaid {
		t.Fatalf("expected an explicit false to reopen the credit")
	}
}

func TestUpdateTransactionRecomputesSettlement(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")
	cashout := harness.addTransaction(t, session.ID, TransactionInput{
		PlayerName: "Dee", Type: "cashout", Amount: mustDecimal(t, "120"), PaymentMethod: "cash",
	})
	if cashout.SettlementCash.Valid {
		t.Fatalf("expected no settlement before update")
	}

	updated, err := harness.service.UpdateTransaction(ctx, testOwner, cashout.ID, TransactionInput{
		PlayerName: "Dee", Type: "cashout", Amount: mustDecimal(t, "120"), PaymentMethod: "cash",
		Notes: "cash paid: $100)",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !updated.SettlementCash.Valid {
		t.Fatalf("expected legacy note to produce a cash settlement")
	}
	assertDecimal(t, "settlement cash", updated.SettlementCash.Decimal, "100")

	_, err = harness.service.UpdateTransaction(ctx, testOwner, "missing", TransactionInput{
		PlayerName: "Dee", Type: "cashout", Amount: mustDecimal(t, "120"), PaymentMethod: "cash",
	})
	assertServiceCode(t, err, ErrNotFound, "games.update_transaction.not_found")
}

func TestClaimTipsByDealerSplitsAndIsIdempotent(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")
	harness.addDealerDown(t, session.ID, "Dana", "60")
	harness.addDealerDown(t, session.ID, "dana", "40")
	other := harness.addDealerDown(t, session.ID, "Eli", "25")
	percentage := mustDecimal(t, "70")

	result, err := harness.service.ClaimTipsByDealer(ctx, testOwner, ClaimTipsInput{
		SessionID: session.ID, DealerName: "DANA", Percentage: &percentage,
	})
	if err != nil {
		t.Fatalf("claim tips failed: %v", err)
	}
	if result.UpdatedCount != 2 {
		t.Fatalf("expected two downs updated, got %d", result.UpdatedCount)
	}
	assertDecimal(t, "total tips", result.TotalTipsClaimed, "100")
	assertDecimal(t, "dealer payout", result.DealerPayout, "70")
	assertDecimal(t, "owner cut", result.OwnerCut, "30")

	repeat, err := harness.service.ClaimTipsByDealer(ctx, testOwner, ClaimTipsInput{
		SessionID: session.ID, DealerName: "Dana", Percentage: &percentage,
	})
	if err != nil {
		t.Fatalf("repeat claim failed: %v", err)
	}
	if repeat.UpdatedCount != 0 {
		t.Fatalf("expected repeat claim to update nothing, got %d", repeat.UpdatedCount)
	}
	assertDecimal(t, "repeat total", repeat.TotalTipsClaimed, "0")

	var untouched DealerDown
	if err := harness.db.Where("id = ?", other.ID).Take(&untouched).Error; err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if untouched.TipsPaid {
		t.Fatalf("expected other dealer's tips to stay unpaid")
	}

	summary, err := harness.service.Summary(ctx, testOwner, session.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	assertDecimal(t, "paid tips", summary.Summary.Till.PaidTips, "100")
}

func TestClaimTipsMatchesUnicodeDealerNames(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")
	harness.addDealerDown(t, session.ID, "Élodie", "100")
	harness.addDealerDown(t, session.ID, "ÉLODIE", "20")
	harness.addDealerDown(t, session.ID, "Eli", "25")

	result, err := harness.service.ClaimTipsByDealer(ctx, testOwner, ClaimTipsInput{SessionID: session.ID, DealerName: " élodie "})
	if err != nil {
		t.Fatalf("claim tips failed: %v", err)
	}
	if result.UpdatedCount != 2 {
		t.Fatalf("expected both Élodie downs updated, got %d", result.UpdatedCount)
	}
	assertDecimal(t, "total tips", result.TotalTipsClaimed, "120")

	summary, err := harness.service.Summary(ctx, testOwner, session.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	assertDecimal(t, "paid tips", summary.Summary.Till.PaidTips, "120")
}

func TestUpdateDealerDownKeepsTipsPaidWhenOmitted(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")
	down := harness.addDealerDown(t, session.ID, "Dana", "60")

	if _, err := harness.service.ClaimTipsByDealer(ctx, testOwner, ClaimTipsInput{SessionID: session.ID, DealerName: "Dana"}); err != nil {
		t.Fatalf("claim tips failed: %v", err)
	}

	renamed, err := harness.service.UpdateDealerDown(ctx, testOwner, down.ID, DealerDownInput{
		DealerName: "Dana B", Tips: mustDecimal(t, "60"), Rake: mustDecimal(t, "5"),
	})
	if err != nil {
		t.Fatalf("update dealer down failed: %v", err)
	}
	if !renamed.TipsPaid {
		t.Fatalf("expected claimed tips to stay paid after a rename")
	}

	unpaid := false
	reopened, err := harness.service.UpdateDealerDown(ctx, testOwner, down.ID, DealerDownInput{
		DealerName: "Dana B", Tips: mustDecimal(t, "60"), Rake: mustDecimal(t, "5"), TipsPaid: &unpaid,
	})
	if err != nil {
		t.Fatalf("explicit update failed: %v", err)
	}
	if reopened.TipsPaid {
		t.Fatalf("expected an explicit false to reopen the tips")
	}
}

func TestClaimTipsByDealerDefaultsToFullPayout(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")
	harness.addDealerDown(t, session.ID, "Dana", "45.50")

	result, err := harness.service.ClaimTipsByDealer(ctx, testOwner, ClaimTipsInput{SessionID: session.ID, DealerName: "Dana"})
	if err != nil {
		t.Fatalf("claim tips failed: %v", err)
	}
	assertDecimal(t, "dealer payout", result.DealerPayout, "45.50")
	assertDecimal(t, "owner cut", result.OwnerCut, "0")

	tooMuch := mustDecimal(t, "101")
	_, err = harness.service.ClaimTipsByDealer(ctx, testOwner, ClaimTipsInput{SessionID: session.ID, DealerName: "Dana", Percentage: &tooMuch})
	assertServiceCode(t, err, ErrValidation, "games.claim_tips_by_dealer.invalid_input")
}

func TestClaimRakeMarksDownClaimed(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")
	down := harness.addDealerDown(t, session.ID, "Dana", "10")

	claimed, err := harness.service.ClaimRake(ctx, testOwner, down.ID)
	if err != nil {
		t.Fatalf("claim rake failed: %v", err)
	}
	if !claimed.RakeClaimed {
		t.Fatalf("expected rake to be claimed")
	}

	summary, err := harness.service.Summary(ctx, testOwner, session.ID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	assertDecimal(t, "claimed rake", summary.Summary.Till.ClaimedRake, "5")
}

func TestDealerDownRejectsNegativeTips(t *testing.T) {
	harness := newTestHarness(t)
	session := harness.startSession(t, "Friday")
	_, err := harness.service.CreateDealerDown(context.Background(), testOwner, session.ID, DealerDownInput{
		DealerName: "Dana", Tips: mustDecimal(t, "-1"),
	})
	assertServiceCode(t, err, ErrValidation, "games.create_dealer_down.invalid_input")
}

func TestExpenseLifecycle(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")

	expense, err := harness.service.CreateExpense(ctx, testOwner, session.ID, ExpenseInput{
		Description: "Drinks run", Amount: mustDecimal(t, "42.25"), PaymentMethod: "cash",
	})
	if err != nil {
		t.Fatalf("create expense failed: %v", err)
	}
	if expense.Category != "other" {
		t.Fatalf("expected default category other, got %s", expense.Category)
	}

	updated, err := harness.service.UpdateExpense(ctx, testOwner, expense.ID, ExpenseInput{
		Description: "Drinks run", Amount: mustDecimal(t, "40"), Category: "drinks", PaymentMethod: "electronic",
	})
	if err != nil {
		t.Fatalf("update expense failed: %v", err)
	}
	assertDecimal(t, "updated amount", updated.Amount, "40")

	paid, err := harness.service.MarkExpensePaidOut(ctx, testOwner, expense.ID)
	if err != nil {
		t.Fatalf("mark paid out failed: %v", err)
	}
	if !paid.PaidOut {
		t.Fatalf("expected expense to be paid out")
	}

	_, err = harness.service.CreateExpense(ctx, testOwner, session.ID, ExpenseInput{
		Description: "Chips", Amount: mustDecimal(t, "10"), PaymentMethod: "credit",
	})
	assertServiceCode(t, err, ErrValidation, "games.create_expense.invalid_input")

	if err := harness.service.DeleteExpense(ctx, testOwner, expense.ID); err != nil {
		t.Fatalf("delete expense failed: %v", err)
	}
	err = harness.service.DeleteExpense(ctx, testOwner, expense.ID)
	assertServiceCode(t, err, ErrNotFound, "games.delete_expense.not_found")
}

func TestRecordTillCountPersistsAnalysis(t *testing.T) {
	harness := newTestHarness(t)
	ctx := context.Background()
	session := harness.startSession(t, "Friday")
	analysis := json.RawMessage(`{"summary":"short by twenty","possibleCauses":[]}`)

	count, err := harness.service.RecordTillCount(ctx, testOwner, session.ID, TillCountInput{
		ActualTill:   mustDecimal(t, "180"),
		ExpectedTill: mustDecimal(t, "200"),
		Discrepancy:  mustDecimal(t, "-20"),
		Analysis:     analysis,
	})
	if err != nil {
		t.Fatalf("record till count failed: %v", err)
	}

	counts, err := harness.service.ListTillCounts(ctx, testOwner, session.ID)
	if err != nil {
		t.Fatalf("list till counts failed: %v", err)
	}
	if len(counts) != 1 || counts[0].ID != count.ID {
		t.Fatalf("expected the recorded till count, got %#v", counts)
	}
	assertDecimal(t, "discrepancy", counts[0].Discrepancy, "-20")

	var decoded map[string]any
	if err := json.Unmarshal(counts[0].Analysis, &decoded); err != nil {
		t.Fatalf("stored analysis is not JSON: %v", err)
	}
	if decoded["summary"] != "short by twenty" {
		t.Fatalf("unexpected stored analysis %#v", decoded)
	}

	_, err = harness.service.RecordTillCount(ctx, testOwner, session.ID, TillCountInput{Analysis: json.RawMessage(`{oops`)})
	assertServiceCode(t, err, ErrValidation, "games.record_till_count.invalid_input")
}
