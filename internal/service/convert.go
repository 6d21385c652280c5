package service

import (
	"github.com/mmynk/cashflow/internal/calculator"
	"github.com/mmynk/cashflow/internal/models"
	"github.com/mmynk/cashflow/pkg/api"
)

func toAPILedger(l *models.Ledger) api.Ledger {
	members := l.Members
	if members == nil {
		members = []string{}
	}
	return api.Ledger{
		ID:        l.ID,
		Name:      l.Name,
		Members:   members,
		CreatedAt: l.CreatedAt,
	}
}

func toAPIIOU(iou *models.IOU) api.IOU {
	return api.IOU{
		ID:        iou.ID,
		Lender:    iou.Lender,
		Borrower:  iou.Borrower,
		Amount:    iou.Amount,
		Note:      iou.Note,
		CreatedAt: iou.CreatedAt,
	}
}

func toAPITransfers(ts []calculator.Transfer) []api.Transfer {
	out := make([]api.Transfer, len(ts))
	for i, t := range ts {
		out[i] = api.Transfer{From: t.From, To: t.To, Amount: t.Amount}
	}
	return out
}

func fromAPIIOUs(ious []api.IOU) []calculator.IOU {
	out := make([]calculator.IOU, len(ious))
	for i, iou := range ious {
		out[i] = calculator.IOU{Lender: iou.Lender, Borrower: iou.Borrower, Amount: iou.Amount}
	}
	return out
}

func calculatorIOUs(ious []*models.IOU) []calculator.IOU {
	out := make([]calculator.IOU, len(ious))
	for i, iou := range ious {
		out[i] = calculator.IOU{Lender: iou.Lender, Borrower: iou.Borrower, Amount: iou.Amount}
	}
	return out
}

func calculatorPayments(payments []*models.Payment) []calculator.Payment {
	out := make([]calculator.Payment, len(payments))
	for i, p := range payments {
		out[i] = calculator.Payment{From: p.From, To: p.To, Amount: p.Amount}
	}
	return out
}
