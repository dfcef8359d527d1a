package ledger

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Till holds the cash-relevant figures behind both till formulas.
type Till struct {
	CashBuyIns         decimal.Decimal
	PaidCreditBuyIns   decimal.Decimal
	AutoSettledCredit  decimal.Decimal
	ManuallyPaidCredit decimal.Decimal
	CashCashouts       decimal.Decimal
	PaidTips           decimal.Decimal
	ClaimedRake        decimal.Decimal
	Expenses           decimal.Decimal
}

// Balance is the till figure reported on the session summary. Claimed rake is not
// subtracted here.
func (t Till) Balance() decimal.Decimal {
	return t.CashBuyIns.
		Add(t.ManuallyPaidCredit).
		Sub(t.CashCashouts).
		Sub(t.PaidTips).
		Sub(t.Expenses)
}

// ExpectedCash is the till figure used when reconciling a physical count; unlike
// Balance it treats claimed rake as already pulled from the drawer.
// The two figures are kept apart until product decides which one is canonical.
func (t Till) ExpectedCash() decimal.Decimal {
	return t.Balance().Sub(t.ClaimedRake)
}

// Summary is the aggregate view of a session's events.
type Summary struct {
	TotalBuyIns   decimal.Decimal
	TotalCashouts decimal.Decimal
	TotalTips     decimal.Decimal
	TotalRake     decimal.Decimal
	TotalExpenses decimal.Decimal
	NetProfit     decimal.Decimal
	TillBalance   decimal.Decimal
	CreditBalance decimal.Decimal
	PlayerCount   int
	DealerCount   int
	Till          Till
}

// ComputeTill derives the cash-relevant figures from a session's events.
func ComputeTill(transactions []Transaction, downs []DealerDown, expenses []Expense) Till {
	till := Till{
		CashBuyIns:        decimal.Zero,
		PaidCreditBuyIns:  decimal.Zero,
		AutoSettledCredit: decimal.Zero,
		CashCashouts:      decimal.Zero,
		PaidTips:          decimal.Zero,
		ClaimedRake:       decimal.Zero,
		Expenses:          decimal.Zero,
	}

	for _, transaction := range transactions {
		switch transaction.Type {
		case TransactionBuyIn:
			switch transaction.PaymentMethod {
			case PaymentCash:
				till.CashBuyIns = till.CashBuyIns.Add(transaction.Amount)
			case PaymentCredit:
				if transaction.IsPaid {
					till.PaidCreditBuyIns = till.PaidCreditBuyIns.Add(transaction.Amount)
				}
			}
		case TransactionCashout:
			till.CashCashouts = till.CashCashouts.Add(transaction.CashEquivalent())
			if settled, ok := transaction.CreditSettled(); ok {
				till.AutoSettledCredit = till.AutoSettledCredit.Add(settled)
			}
		}
	}

	// A settlement recorded on a cashout also flips the buy-in to paid; counting both
	// would credit the till twice.
	till.ManuallyPaidCredit = decimal.Max(decimal.Zero, till.PaidCreditBuyIns.Sub(till.AutoSettledCredit))

	for _, down := range downs {
		if down.TipsPaid {
			till.PaidTips = till.PaidTips.Add(down.Tips)
		}
		if down.RakeClaimed {
			till.ClaimedRake = till.ClaimedRake.Add(down.Rake)
		}
	}

	for _, expense := range expenses {
		till.Expenses = till.Expenses.Add(expense.Amount)
	}

	return till
}

// ComputeSummary aggregates every event of a session into the summary figures.
func ComputeSummary(session Session, transactions []Transaction, downs []DealerDown, expenses []Expense) Summary {
	summary := Summary{
		TotalBuyIns:   decimal.Zero,
		TotalCashouts: decimal.Zero,
		TotalTips:     decimal.Zero,
		TotalExpenses: decimal.Zero,
	}

	players := make(map[string]struct{})
	for _, transaction := range transactions {
		players[NameKey(transaction.PlayerName)] = struct{}{}
		switch transaction.Type {
		case TransactionBuyIn:
			summary.TotalBuyIns = summary.TotalBuyIns.Add(transaction.Amount)
		case TransactionCashout:
			summary.TotalCashouts = summary.TotalCashouts.Add(transaction.Amount)
		}
	}

	downRake := decimal.Zero
	dealers := make(map[string]struct{})
	for _, down := range downs {
		dealers[NameKey(down.DealerName)] = struct{}{}
		summary.TotalTips = summary.TotalTips.Add(down.Tips)
		downRake = downRake.Add(down.Rake)
	}

	// The end-of-night drop count supersedes the running per-down estimate.
	summary.TotalRake = downRake
	if session.TotalRake.IsPositive() {
		summary.TotalRake = session.TotalRake
	}

	for _, expense := range expenses {
		summary.TotalExpenses = summary.TotalExpenses.Add(expense.Amount)
	}

	summary.NetProfit = summary.TotalRake.Sub(summary.TotalExpenses)
	summary.Till = ComputeTill(transactions, downs, expenses)
	summary.TillBalance = summary.Till.Balance()
	summary.CreditBalance = CreditBalance(transactions)
	summary.PlayerCount = len(players)
	summary.DealerCount = len(dealers)
	return summary
}

// CreditBalance is the outstanding credit across players. Each player's debt is
// floored at zero before summing.
func CreditBalance(transactions []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, owed := range creditOwedByPlayer(transactions) {
		total = total.Add(owed)
	}
	return total
}

func creditOwedByPlayer(transactions []Transaction) map[string]decimal.Decimal {
	net := make(map[string]decimal.Decimal)
	for _, transaction := range transactions {
		if transaction.PaymentMethod != PaymentCredit {
			continue
		}
		key := NameKey(transaction.PlayerName)
		current, ok := net[key]
		if !ok {
			current = decimal.Zero
		}
		switch {
		case transaction.IsBuyIn() && !transaction.IsPaid:
			current = current.Add(transaction.Amount)
		case transaction.IsCashout():
			current = current.Sub(transaction.Amount)
		}
		net[key] = current
	}
	owed := make(map[string]decimal.Decimal, len(net))
	for key, value := range net {
		owed[key] = decimal.Max(decimal.Zero, value)
	}
	return owed
}

// PlayerStanding summarises one player's activity.
type PlayerStanding struct {
	PlayerName   string
	BuyIns       decimal.Decimal
	Cashouts     decimal.Decimal
	Net          decimal.Decimal
	CreditOwed   decimal.Decimal
	Transactions int
}

// PlayerStandings groups transactions by player, sorted by name.
func PlayerStandings(transactions []Transaction) []PlayerStanding {
	byKey := make(map[string]*PlayerStanding)
	keys := make([]string, 0)
	for _, transaction := range transactions {
		key := NameKey(transaction.PlayerName)
		standing, ok := byKey[key]
		if !ok {
			standing = &PlayerStanding{
				PlayerName: strings.TrimSpace(transaction.PlayerName),
				BuyIns:     decimal.Zero,
				Cashouts:   decimal.Zero,
			}
			byKey[key] = standing
			keys = append(keys, key)
		}
		standing.Transactions++
		if transaction.IsBuyIn() {
			standing.BuyIns = standing.BuyIns.Add(transaction.Amount)
		} else if transaction.IsCashout() {
			standing.Cashouts = standing.Cashouts.Add(transaction.Amount)
		}
	}

	owed := creditOwedByPlayer(transactions)
	sort.Strings(keys)
	standings := make([]PlayerStanding, 0, len(keys))
	for _, key := range keys {
		standing := byKey[key]
		standing.Net = standing.Cashouts.Sub(standing.BuyIns)
		standing.CreditOwed = decimal.Zero
		if value, ok := owed[key]; ok {
			standing.CreditOwed = value
		}
		standings = append(standings, *standing)
	}
	return standings
}

// DealerStanding summarises one dealer's downs.
type DealerStanding struct {
	DealerName string
	Downs      int
	Tips       decimal.Decimal
	UnpaidTips decimal.Decimal
	Rake       decimal.Decimal
}

// DealerStandings groups downs by dealer, sorted by name.
func DealerStandings(downs []DealerDown) []DealerStanding {
	byKey := make(map[string]*DealerStanding)
	keys := make([]string, 0)
	for _, down := range downs {
		key := NameKey(down.DealerName)
		standing, ok := byKey[key]
		if !ok {
			standing = &DealerStanding{
				DealerName: strings.TrimSpace(down.DealerName),
				Tips:       decimal.Zero,
				UnpaidTips: decimal.Zero,
				Rake:       decimal.Zero,
			}
			byKey[key] = standing
			keys = append(keys, key)
		}
		standing.Downs++
		standing.Tips = standing.Tips.Add(down.Tips)
		standing.Rake = standing.Rake.Add(down.Rake)
		if !down.TipsPaid {
			standing.UnpaidTips = standing.UnpaidTips.Add(down.Tips)
		}
	}

	sort.Strings(keys)
	standings := make([]DealerStanding, 0, len(keys))
	for _, key := range keys {
		standings = append(standings, *byKey[key])
	}
	return standings
}

// nameKey folds free-text names so "Ana " and "ana" count as one person.
// NameKey folds a player or dealer name for matching: trimmed and case-insensitive
// across all of Unicode.
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
