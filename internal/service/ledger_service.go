package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/cashflow/internal/calculator"
	"github.com/mmynk/cashflow/internal/metrics"
	"github.com/mmynk/cashflow/internal/middleware"
	"github.com/mmynk/cashflow/internal/models"
	"github.com/mmynk/cashflow/internal/storage"
	"github.com/mmynk/cashflow/pkg/api"
)

var errLedgerAccess = errors.New("ledger belongs to another user")

// LedgerService implements the Connect LedgerService
type LedgerService struct {
	store   storage.Store
	metrics *metrics.Metrics
}

var _ api.LedgerServiceHandler = (*LedgerService)(nil)

// NewLedgerService creates a new LedgerService with the given storage backend.
func NewLedgerService(store storage.Store, m *metrics.Metrics) *LedgerService {
	return &LedgerService{store: store, metrics: m}
}

// MinimizeCashFlow computes a settlement plan for the given IOUs without
// touching storage.
func (s *LedgerService) MinimizeCashFlow(ctx context.Context, req *connect.Request[api.MinimizeCashFlowRequest]) (*connect.Response[api.MinimizeCashFlowResponse], error) {
	slog.Info("MinimizeCashFlow request received",
		"ious_count", len(req.Msg.IOUs),
		"lenient", req.Msg.Lenient,
	)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	var opts []calculator.Option
	if req.Msg.Lenient {
		opts = append(opts, calculator.WithLenientInput())
	}

	result, err := calculator.MinimizeCashFlow(fromAPIIOUs(req.Msg.IOUs), opts...)
	if err != nil {
		slog.Warn("MinimizeCashFlow rejected input", "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	s.metrics.ObservePlan(len(result.Transactions), result.TotalSettled)

	slog.Info("MinimizeCashFlow successful",
		"transfers_count", len(result.Transactions),
		"total_settled", result.TotalSettled.String(),
	)

	return connect.NewResponse(&api.MinimizeCashFlowResponse{
		TotalSettled: result.TotalSettled,
		Transactions: toAPITransfers(result.Transactions),
	}), nil
}

// CreateLedger creates a new ledger owned by the caller.
func (s *LedgerService) CreateLedger(ctx context.Context, req *connect.Request[api.CreateLedgerRequest]) (*connect.Response[api.CreateLedgerResponse], error) {
	slog.Info("CreateLedger request received",
		"name", req.Msg.Name,
		"members_count", len(req.Msg.Members),
	)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	ledger := &models.Ledger{
		Name:    req.Msg.Name,
		Members: req.Msg.Members,
		OwnerID: middleware.GetUserID(ctx),
	}

	// Save to storage (generates ID and CreatedAt)
	if err := s.store.CreateLedger(ctx, ledger); err != nil {
		slog.Error("CreateLedger failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	slog.Info("Ledger created", "ledger_id", ledger.ID)

	return connect.NewResponse(&api.CreateLedgerResponse{Ledger: toAPILedger(ledger)}), nil
}

// GetLedger retrieves a ledger by ID.
func (s *LedgerService) GetLedger(ctx context.Context, req *connect.Request[api.GetLedgerRequest]) (*connect.Response[api.GetLedgerResponse], error) {
	slog.Info("GetLedger request received", "ledger_id", req.Msg.LedgerID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}

	ledger, err := s.ownedLedger(ctx, req.Msg.LedgerID)
	if err != nil {
		return nil, err
	}

	return connect.NewResponse(&api.GetLedgerResponse{Ledger: toAPILedger(ledger)}), nil
}

// ListLedgers retrieves the caller's ledgers.
func (s *LedgerService) ListLedgers(ctx context.Context, req *connect.Request[api.ListLedgersRequest]) (*connect.Response[api.ListLedgersResponse], error) {
	userID := middleware.GetUserID(ctx)
	slog.Info("ListLedgers request received", "user_id", userID)

	ledgers, err := s.store.ListLedgers(ctx, userID)
	if err != nil {
		slog.Error("ListLedgers failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	out := make([]api.Ledger, len(ledgers))
	for i, l := range ledgers {
		out[i] = toAPILedger(l)
	}

	slog.Info("ListLedgers successful", "count", len(ledgers))

	return connect.NewResponse(&api.ListLedgersResponse{Ledgers: out}), nil
}

// DeleteLedger removes a ledger with all its IOUs and payments.
func (s *LedgerService) DeleteLedger(ctx context.Context, req *connect.Request[api.DeleteLedgerRequest]) (*connect.Response[api.DeleteLedgerResponse], error) {
	slog.Info("DeleteLedger request received", "ledger_id", req.Msg.LedgerID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if _, err := s.ownedLedger(ctx, req.Msg.LedgerID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteLedger(ctx, req.Msg.LedgerID); err != nil {
		slog.Error("DeleteLedger failed", "error", err)
		return nil, storeError(err)
	}

	slog.Info("Ledger deleted", "ledger_id", req.Msg.LedgerID)

	return connect.NewResponse(&api.DeleteLedgerResponse{}), nil
}

// AddIOU records one debt. Lender and borrower become ledger members if
// they are not already.
func (s *LedgerService) AddIOU(ctx context.Context, req *connect.Request[api.AddIOURequest]) (*connect.Response[api.AddIOUResponse], error) {
	slog.Info("AddIOU request received",
		"ledger_id", req.Msg.LedgerID,
		"lender", req.Msg.IOU.Lender,
		"borrower", req.Msg.IOU.Borrower,
		"amount", req.Msg.IOU.Amount.String(),
	)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if err := calculator.ValidateIOUs(fromAPIIOUs([]api.IOU{req.Msg.IOU})); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	ledger, err := s.ownedLedger(ctx, req.Msg.LedgerID)
	if err != nil {
		return nil, err
	}

	iou := &models.IOU{
		LedgerID: ledger.ID,
		Lender:   req.Msg.IOU.Lender,
		Borrower: req.Msg.IOU.Borrower,
		Amount:   req.Msg.IOU.Amount,
		Note:     req.Msg.IOU.Note,
	}
	if err := s.store.AddIOUs(ctx, []*models.IOU{iou}); err != nil {
		slog.Error("AddIOU failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.autoAddMembers(ctx, ledger, iou.Lender, iou.Borrower)

	slog.Info("IOU recorded", "ledger_id", ledger.ID, "iou_id", iou.ID)

	return connect.NewResponse(&api.AddIOUResponse{IOU: toAPIIOU(iou)}), nil
}

// ListIOUs returns everything recorded in a ledger.
func (s *LedgerService) ListIOUs(ctx context.Context, req *connect.Request[api.ListIOUsRequest]) (*connect.Response[api.ListIOUsResponse], error) {
	slog.Info("ListIOUs request received", "ledger_id", req.Msg.LedgerID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if _, err := s.ownedLedger(ctx, req.Msg.LedgerID); err != nil {
		return nil, err
	}

	ious, payments, err := s.ledgerHistory(ctx, req.Msg.LedgerID)
	if err != nil {
		return nil, err
	}

	resp := &api.ListIOUsResponse{
		IOUs:     make([]api.IOU, len(ious)),
		Payments: make([]api.Payment, len(payments)),
	}
	for i, iou := range ious {
		resp.IOUs[i] = toAPIIOU(iou)
	}
	for i, p := range payments {
		resp.Payments[i] = api.Payment{ID: p.ID, From: p.From, To: p.To, Amount: p.Amount, CreatedAt: p.CreatedAt}
	}

	return connect.NewResponse(resp), nil
}

// AddBill splits a bill among its participants and records what each of
// them owes the payer.
func (s *LedgerService) AddBill(ctx context.Context, req *connect.Request[api.AddBillRequest]) (*connect.Response[api.AddBillResponse], error) {
	slog.Info("AddBill request received",
		"ledger_id", req.Msg.LedgerID,
		"payer", req.Msg.Payer,
		"total", req.Msg.Total.String(),
		"items_count", len(req.Msg.Items),
	)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if !isParticipant(req.Msg.Payer, req.Msg.Participants) {
		return nil, connect.NewError(connect.CodeInvalidArgument,
			fmt.Errorf("payer '%s' must be one of the participants", req.Msg.Payer))
	}

	ledger, err := s.ownedLedger(ctx, req.Msg.LedgerID)
	if err != nil {
		return nil, err
	}

	items := make([]calculator.Item, len(req.Msg.Items))
	for i, item := range req.Msg.Items {
		items[i] = calculator.Item{
			Description:  item.Description,
			Amount:       item.Amount,
			Participants: item.Participants,
		}
	}

	splits, err := calculator.CalculateSplit(items, req.Msg.Total, req.Msg.Subtotal, req.Msg.Participants)
	if err != nil {
		slog.Error("AddBill split failed", "error", err)
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	debts := calculator.BillIOUs(req.Msg.Payer, req.Msg.Participants, splits)
	ious := make([]*models.IOU, len(debts))
	for i, debt := range debts {
		ious[i] = &models.IOU{
			LedgerID: ledger.ID,
			Lender:   debt.Lender,
			Borrower: debt.Borrower,
			Amount:   debt.Amount,
			Note:     req.Msg.Title,
		}
	}

	if err := s.store.AddIOUs(ctx, ious); err != nil {
		slog.Error("AddBill failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.autoAddMembers(ctx, ledger, req.Msg.Participants...)

	resp := &api.AddBillResponse{IOUs: make([]api.IOU, len(ious))}
	for i, iou := range ious {
		resp.IOUs[i] = toAPIIOU(iou)
	}

	slog.Info("Bill recorded", "ledger_id", ledger.ID, "ious_count", len(ious))

	return connect.NewResponse(resp), nil
}

// GetLedgerBalances reports each member's balance and the transfers that
// would clear what is outstanding.
func (s *LedgerService) GetLedgerBalances(ctx context.Context, req *connect.Request[api.GetLedgerBalancesRequest]) (*connect.Response[api.GetLedgerBalancesResponse], error) {
	ledgerID := req.Msg.LedgerID
	slog.Info("GetLedgerBalances request received", "ledger_id", ledgerID)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if _, err := s.ownedLedger(ctx, ledgerID); err != nil {
		return nil, err
	}

	ious, payments, err := s.ledgerHistory(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	memberBalances, result, err := calculator.CalculateLedgerBalances(calculatorIOUs(ious), calculatorPayments(payments))
	if err != nil {
		slog.Error("GetLedgerBalances failed - calculation error", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	balances := make([]api.MemberBalance, len(memberBalances))
	for i, bal := range memberBalances {
		balances[i] = api.MemberBalance{
			MemberName:    bal.MemberName,
			NetBalance:    bal.NetBalance,
			TotalLent:     bal.TotalLent,
			TotalBorrowed: bal.TotalBorrowed,
		}
	}

	slog.Info("GetLedgerBalances successful",
		"ledger_id", ledgerID,
		"ious_count", len(ious),
		"members_count", len(memberBalances),
		"transfers_count", len(result.Transactions),
	)

	return connect.NewResponse(&api.GetLedgerBalancesResponse{
		Balances:    balances,
		Transfers:   toAPITransfers(result.Transactions),
		Outstanding: result.TotalSettled,
	}), nil
}

// SettleLedger computes the transfers that clear a ledger. With Record set
// they are stored as payments, after which the ledger owes nothing.
func (s *LedgerService) SettleLedger(ctx context.Context, req *connect.Request[api.SettleLedgerRequest]) (*connect.Response[api.SettleLedgerResponse], error) {
	ledgerID := req.Msg.LedgerID
	slog.Info("SettleLedger request received", "ledger_id", ledgerID, "record", req.Msg.Record)

	if err := validateRequest(req.Msg); err != nil {
		return nil, err
	}
	if _, err := s.ownedLedger(ctx, ledgerID); err != nil {
		return nil, err
	}

	ious, payments, err := s.ledgerHistory(ctx, ledgerID)
	if err != nil {
		return nil, err
	}

	_, result, err := calculator.CalculateLedgerBalances(calculatorIOUs(ious), calculatorPayments(payments))
	if err != nil {
		slog.Error("SettleLedger failed - calculation error", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.metrics.ObservePlan(len(result.Transactions), result.TotalSettled)

	recorded := false
	if req.Msg.Record && len(result.Transactions) > 0 {
		userID := middleware.GetUserID(ctx)
		plan := make([]*models.Payment, len(result.Transactions))
		for i, t := range result.Transactions {
			plan[i] = &models.Payment{
				LedgerID:  ledgerID,
				From:      t.From,
				To:        t.To,
				Amount:    t.Amount,
				CreatedBy: userID,
			}
		}
		if err := s.store.RecordPayments(ctx, plan); err != nil {
			slog.Error("SettleLedger failed - could not record payments", "error", err)
			return nil, connect.NewError(connect.CodeInternal, err)
		}
		recorded = true
	}

	slog.Info("SettleLedger successful",
		"ledger_id", ledgerID,
		"transfers_count", len(result.Transactions),
		"total_settled", result.TotalSettled.String(),
		"recorded", recorded,
	)

	return connect.NewResponse(&api.SettleLedgerResponse{
		TotalSettled: result.TotalSettled,
		Transactions: toAPITransfers(result.Transactions),
		Recorded:     recorded,
	}), nil
}

// ownedLedger loads a ledger and checks that the caller owns it.
func (s *LedgerService) ownedLedger(ctx context.Context, ledgerID string) (*models.Ledger, error) {
	ledger, err := s.store.GetLedger(ctx, ledgerID)
	if err != nil {
		slog.Warn("Ledger lookup failed", "ledger_id", ledgerID, "error", err)
		return nil, storeError(err)
	}
	if ledger.OwnerID != middleware.GetUserID(ctx) {
		return nil, connect.NewError(connect.CodePermissionDenied, errLedgerAccess)
	}
	return ledger, nil
}

func (s *LedgerService) ledgerHistory(ctx context.Context, ledgerID string) ([]*models.IOU, []*models.Payment, error) {
	ious, err := s.store.ListIOUs(ctx, ledgerID)
	if err != nil {
		slog.Error("Could not list IOUs", "ledger_id", ledgerID, "error", err)
		return nil, nil, connect.NewError(connect.CodeInternal, err)
	}
	payments, err := s.store.ListPayments(ctx, ledgerID)
	if err != nil {
		slog.Error("Could not list payments", "ledger_id", ledgerID, "error", err)
		return nil, nil, connect.NewError(connect.CodeInternal, err)
	}
	return ious, payments, nil
}

// autoAddMembers adds any of names not already in the ledger. Failures are
// logged only; the IOUs are already stored.
func (s *LedgerService) autoAddMembers(ctx context.Context, ledger *models.Ledger, names ...string) {
	newMembers := findNewParticipants(names, ledger.Members)
	if len(newMembers) == 0 {
		return
	}
	if err := s.store.AddLedgerMembers(ctx, ledger.ID, newMembers); err != nil {
		slog.Error("autoAddMembers: failed to add members", "ledger_id", ledger.ID, "error", err)
		return
	}
	slog.Info("Auto-added members to ledger", "ledger_id", ledger.ID, "new_members", newMembers)
}

func storeError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

// isParticipant checks if the name is in the participants list.
func isParticipant(name string, participants []string) bool {
	for _, p := range participants {
		if p == name {
			return true
		}
	}
	return false
}

// findNewParticipants returns names that are not already in existingMembers, without duplicates.
func findNewParticipants(names, existingMembers []string) []string {
	memberSet := make(map[string]bool, len(existingMembers))
	for _, m := range existingMembers {
		memberSet[m] = true
	}
	var newOnes []string
	for _, n := range names {
		if !memberSet[n] {
			memberSet[n] = true
			newOnes = append(newOnes, n)
		}
	}
	return newOnes
}
