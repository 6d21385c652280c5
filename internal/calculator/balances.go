package calculator

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// MemberBalance represents the balance information for one ledger member.
type MemberBalance struct {
	MemberName    string
	NetBalance    decimal.Decimal // Positive = owed money, Negative = owes money
	TotalLent     decimal.Decimal // Lent through IOUs plus payments made
	TotalBorrowed decimal.Decimal // Borrowed through IOUs plus payments received
}

// Payment is a recorded transfer from a debtor to a creditor that already
// happened outside the ledger.
type Payment struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// CalculateLedgerBalances computes balances across a ledger's IOUs and the
// payments already recorded against it, and the transfers that would clear
// what is still outstanding.
//
// Algorithm:
// - For each IOU: lender +amount, borrower -amount
// - For each payment: payer's balance improves, receiver's balance decreases
// - net_balance = total_lent - total_borrowed
// - Outstanding debts: simplified with MinimizeCashFlow
func CalculateLedgerBalances(ious []IOU, payments []Payment) ([]MemberBalance, *Result, error) {
	balances := make(map[string]*MemberBalance)
	member := func(name string) *MemberBalance {
		if _, exists := balances[name]; !exists {
			balances[name] = &MemberBalance{
				MemberName:    name,
				TotalLent:     decimal.Zero,
				TotalBorrowed: decimal.Zero,
			}
		}
		return balances[name]
	}

	all := make([]IOU, 0, len(ious)+len(payments))
	for _, iou := range ious {
		member(iou.Lender).TotalLent = member(iou.Lender).TotalLent.Add(iou.Amount)
		member(iou.Borrower).TotalBorrowed = member(iou.Borrower).TotalBorrowed.Add(iou.Amount)
		all = append(all, iou)
	}

	// A payment from a debtor reads as the debtor lending the amount back.
	for _, p := range payments {
		member(p.From).TotalLent = member(p.From).TotalLent.Add(p.Amount)
		member(p.To).TotalBorrowed = member(p.To).TotalBorrowed.Add(p.Amount)
		all = append(all, IOU{Lender: p.From, Borrower: p.To, Amount: p.Amount})
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, bal := range balances {
		bal.NetBalance = bal.TotalLent.Sub(bal.TotalBorrowed)
		memberBalances = append(memberBalances, *bal)
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].MemberName < memberBalances[j].MemberName
	})

	result, err := MinimizeCashFlow(all)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to simplify debts: %w", err)
	}

	return memberBalances, result, nil
}
