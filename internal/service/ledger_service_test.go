package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/cashflow/internal/auth"
	"github.com/mmynk/cashflow/internal/metrics"
	"github.com/mmynk/cashflow/internal/middleware"
	"github.com/mmynk/cashflow/internal/storage/sqlite"
	"github.com/mmynk/cashflow/pkg/api"
)

type testServer struct {
	ledgers *api.LedgerServiceClient
	auth    *api.AuthServiceClient
	metrics *metrics.Metrics
}

// setupTestServer wires the services the way cmd/server does, on top of a
// temporary SQLite database.
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New(prometheus.NewRegistry())
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)

	interceptors := connect.WithInterceptors(
		middleware.MetricsInterceptor(m),
		middleware.RequireAuth(jwtManager, api.LedgerServiceMinimizeCashFlowProcedure),
		middleware.LoggingInterceptor(logger),
	)

	mux := http.NewServeMux()
	mux.Handle(api.NewLedgerServiceHandler(NewLedgerService(store, m), interceptors))
	mux.Handle(api.NewAuthServiceHandler(
		NewAuthService(auth.NewPasswordAuthenticator(store, bcrypt.MinCost), jwtManager, logger),
		connect.WithInterceptors(middleware.LoggingInterceptor(logger)),
	))

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{
		ledgers: api.NewLedgerServiceClient(http.DefaultClient, server.URL),
		auth:    api.NewAuthServiceClient(http.DefaultClient, server.URL),
		metrics: m,
	}
}

// login registers a user and returns a function that attaches their token.
func (s *testServer) login(t *testing.T, email string) func(h http.Header) {
	t.Helper()

	resp, err := s.auth.Register(context.Background(), connect.NewRequest(&api.RegisterRequest{
		Email:       email,
		DisplayName: "Test User",
		Password:    "password123",
	}))
	require.NoError(t, err)

	token := resp.Msg.Token
	return func(h http.Header) { h.Set("Authorization", "Bearer "+token) }
}

func authed[T any](msg *T, withToken func(http.Header)) *connect.Request[T] {
	req := connect.NewRequest(msg)
	withToken(req.Header())
	return req
}

func amt(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func transferKeys(ts []api.Transfer) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.From + "->" + t.To + ":" + t.Amount.String()
	}
	return out
}

func TestMinimizeCashFlowRPC(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()

	t.Run("anonymous call is allowed", func(t *testing.T) {
		resp, err := s.ledgers.MinimizeCashFlow(ctx, connect.NewRequest(&api.MinimizeCashFlowRequest{
			IOUs: []api.IOU{
				{Lender: "A", Borrower: "B", Amount: amt("50")},
				{Lender: "C", Borrower: "B", Amount: amt("50")},
				{Lender: "B", Borrower: "D", Amount: amt("100")},
			},
		}))
		require.NoError(t, err)
		assert.True(t, amt("100").Equal(resp.Msg.TotalSettled))
		assert.Equal(t, []string{"D->A:50", "D->C:50"}, transferKeys(resp.Msg.Transactions))
	})

	t.Run("empty input", func(t *testing.T) {
		resp, err := s.ledgers.MinimizeCashFlow(ctx, connect.NewRequest(&api.MinimizeCashFlowRequest{}))
		require.NoError(t, err)
		assert.True(t, resp.Msg.TotalSettled.IsZero())
		assert.Empty(t, resp.Msg.Transactions)
	})

	t.Run("self loan is rejected", func(t *testing.T) {
		_, err := s.ledgers.MinimizeCashFlow(ctx, connect.NewRequest(&api.MinimizeCashFlowRequest{
			IOUs: []api.IOU{{Lender: "A", Borrower: "A", Amount: amt("10")}},
		}))
		require.Error(t, err)
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("lenient mode folds bad entries", func(t *testing.T) {
		resp, err := s.ledgers.MinimizeCashFlow(ctx, connect.NewRequest(&api.MinimizeCashFlowRequest{
			IOUs:    []api.IOU{{Lender: "A", Borrower: "A", Amount: amt("10")}},
			Lenient: true,
		}))
		require.NoError(t, err)
		assert.Empty(t, resp.Msg.Transactions)
	})

	t.Run("missing lender fails validation", func(t *testing.T) {
		_, err := s.ledgers.MinimizeCashFlow(ctx, connect.NewRequest(&api.MinimizeCashFlowRequest{
			IOUs: []api.IOU{{Borrower: "B", Amount: amt("10")}},
		}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	assert.Equal(t, 3.0, testutil.ToFloat64(s.metrics.Plans))
	assert.Equal(t, 2.0, testutil.ToFloat64(s.metrics.Transfers))
	assert.Equal(t, 3.0, testutil.ToFloat64(
		s.metrics.RPCRequests.WithLabelValues(api.LedgerServiceMinimizeCashFlowProcedure, "ok")))
	assert.Equal(t, 2.0, testutil.ToFloat64(
		s.metrics.RPCRequests.WithLabelValues(api.LedgerServiceMinimizeCashFlowProcedure, "invalid_argument")))
}

func TestLedgerRequiresAuth(t *testing.T) {
	s := setupTestServer(t)

	_, err := s.ledgers.ListLedgers(context.Background(), connect.NewRequest(&api.ListLedgersRequest{}))
	require.Error(t, err)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	req := connect.NewRequest(&api.ListLedgersRequest{})
	req.Header().Set("Authorization", "Bearer not-a-token")
	_, err = s.ledgers.ListLedgers(context.Background(), req)
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
}

func TestLedgerLifecycle(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	alice := s.login(t, "alice@example.com")

	created, err := s.ledgers.CreateLedger(ctx, authed(&api.CreateLedgerRequest{
		Name:    "Roommates",
		Members: []string{"Alice", "Bob"},
	}, alice))
	require.NoError(t, err)
	ledgerID := created.Msg.Ledger.ID
	require.NotEmpty(t, ledgerID)

	for _, iou := range []api.IOU{
		{Lender: "Alice", Borrower: "Bob", Amount: amt("100"), Note: "rent"},
		{Lender: "Bob", Borrower: "Charlie", Amount: amt("100")},
	} {
		resp, err := s.ledgers.AddIOU(ctx, authed(&api.AddIOURequest{LedgerID: ledgerID, IOU: iou}, alice))
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Msg.IOU.ID)
	}

	t.Run("new parties become members", func(t *testing.T) {
		got, err := s.ledgers.GetLedger(ctx, authed(&api.GetLedgerRequest{LedgerID: ledgerID}, alice))
		require.NoError(t, err)
		assert.Equal(t, []string{"Alice", "Bob", "Charlie"}, got.Msg.Ledger.Members)
	})

	t.Run("invalid iou is rejected", func(t *testing.T) {
		_, err := s.ledgers.AddIOU(ctx, authed(&api.AddIOURequest{
			LedgerID: ledgerID,
			IOU:      api.IOU{Lender: "Alice", Borrower: "Bob", Amount: amt("-5")},
		}, alice))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("balances bypass the middle party", func(t *testing.T) {
		resp, err := s.ledgers.GetLedgerBalances(ctx, authed(&api.GetLedgerBalancesRequest{LedgerID: ledgerID}, alice))
		require.NoError(t, err)

		require.Len(t, resp.Msg.Balances, 3)
		assert.Equal(t, "Bob", resp.Msg.Balances[1].MemberName)
		assert.True(t, resp.Msg.Balances[1].NetBalance.IsZero())
		assert.Equal(t, []string{"Charlie->Alice:100"}, transferKeys(resp.Msg.Transfers))
		assert.True(t, amt("100").Equal(resp.Msg.Outstanding))
	})

	t.Run("settle without recording leaves ledger open", func(t *testing.T) {
		resp, err := s.ledgers.SettleLedger(ctx, authed(&api.SettleLedgerRequest{LedgerID: ledgerID}, alice))
		require.NoError(t, err)
		assert.False(t, resp.Msg.Recorded)
		assert.Len(t, resp.Msg.Transactions, 1)

		list, err := s.ledgers.ListIOUs(ctx, authed(&api.ListIOUsRequest{LedgerID: ledgerID}, alice))
		require.NoError(t, err)
		assert.Len(t, list.Msg.IOUs, 2)
		assert.Empty(t, list.Msg.Payments)
	})

	t.Run("recorded settlement clears the ledger", func(t *testing.T) {
		resp, err := s.ledgers.SettleLedger(ctx, authed(&api.SettleLedgerRequest{LedgerID: ledgerID, Record: true}, alice))
		require.NoError(t, err)
		assert.True(t, resp.Msg.Recorded)
		assert.True(t, amt("100").Equal(resp.Msg.TotalSettled))

		balances, err := s.ledgers.GetLedgerBalances(ctx, authed(&api.GetLedgerBalancesRequest{LedgerID: ledgerID}, alice))
		require.NoError(t, err)
		assert.Empty(t, balances.Msg.Transfers)
		assert.True(t, balances.Msg.Outstanding.IsZero())
		for _, b := range balances.Msg.Balances {
			assert.True(t, b.NetBalance.IsZero(), b.MemberName)
		}

		again, err := s.ledgers.SettleLedger(ctx, authed(&api.SettleLedgerRequest{LedgerID: ledgerID, Record: true}, alice))
		require.NoError(t, err)
		assert.False(t, again.Msg.Recorded)
		assert.Empty(t, again.Msg.Transactions)
	})

	t.Run("other users cannot see the ledger", func(t *testing.T) {
		mallory := s.login(t, "mallory@example.com")

		_, err := s.ledgers.GetLedger(ctx, authed(&api.GetLedgerRequest{LedgerID: ledgerID}, mallory))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

		list, err := s.ledgers.ListLedgers(ctx, authed(&api.ListLedgersRequest{}, mallory))
		require.NoError(t, err)
		assert.Empty(t, list.Msg.Ledgers)
	})

	t.Run("delete", func(t *testing.T) {
		_, err := s.ledgers.DeleteLedger(ctx, authed(&api.DeleteLedgerRequest{LedgerID: ledgerID}, alice))
		require.NoError(t, err)

		_, err = s.ledgers.GetLedger(ctx, authed(&api.GetLedgerRequest{LedgerID: ledgerID}, alice))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
	})
}

func TestAddBill(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	alice := s.login(t, "alice@example.com")

	created, err := s.ledgers.CreateLedger(ctx, authed(&api.CreateLedgerRequest{Name: "Dinner"}, alice))
	require.NoError(t, err)
	ledgerID := created.Msg.Ledger.ID

	resp, err := s.ledgers.AddBill(ctx, authed(&api.AddBillRequest{
		LedgerID:     ledgerID,
		Title:        "Pizza night",
		Payer:        "Alice",
		Total:        amt("33"),
		Subtotal:     amt("30"),
		Participants: []string{"Alice", "Bob"},
		Items: []api.BillItem{
			{Description: "Pizza", Amount: amt("20"), Participants: []string{"Alice", "Bob"}},
			{Description: "Salad", Amount: amt("10"), Participants: []string{"Alice"}},
		},
	}, alice))
	require.NoError(t, err)

	require.Len(t, resp.Msg.IOUs, 1)
	assert.Equal(t, "Alice", resp.Msg.IOUs[0].Lender)
	assert.Equal(t, "Bob", resp.Msg.IOUs[0].Borrower)
	assert.Equal(t, "11.00", resp.Msg.IOUs[0].Amount.StringFixed(2))
	assert.Equal(t, "Pizza night", resp.Msg.IOUs[0].Note)

	t.Run("payer outside participants is rejected", func(t *testing.T) {
		_, err := s.ledgers.AddBill(ctx, authed(&api.AddBillRequest{
			LedgerID:     ledgerID,
			Payer:        "Zed",
			Total:        amt("10"),
			Subtotal:     amt("10"),
			Participants: []string{"Alice"},
		}, alice))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("zero subtotal is rejected", func(t *testing.T) {
		_, err := s.ledgers.AddBill(ctx, authed(&api.AddBillRequest{
			LedgerID:     ledgerID,
			Payer:        "Alice",
			Total:        amt("10"),
			Subtotal:     decimal.Zero,
			Participants: []string{"Alice", "Bob"},
		}, alice))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("duplicate participants are rejected", func(t *testing.T) {
		_, err := s.ledgers.AddBill(ctx, authed(&api.AddBillRequest{
			LedgerID:     ledgerID,
			Payer:        "Alice",
			Total:        amt("90"),
			Subtotal:     amt("90"),
			Participants: []string{"Alice", "Bob", "Bob"},
		}, alice))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("item participant outside the bill is rejected", func(t *testing.T) {
		_, err := s.ledgers.AddBill(ctx, authed(&api.AddBillRequest{
			LedgerID:     ledgerID,
			Payer:        "Alice",
			Total:        amt("30"),
			Subtotal:     amt("30"),
			Participants: []string{"Alice", "Bob"},
			Items: []api.BillItem{
				{Description: "Wine", Amount: amt("30"), Participants: []string{"Bob", "Zed"}},
			},
		}, alice))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("rejected bills store nothing", func(t *testing.T) {
		list, err := s.ledgers.ListIOUs(ctx, authed(&api.ListIOUsRequest{LedgerID: ledgerID}, alice))
		require.NoError(t, err)
		require.Len(t, list.Msg.IOUs, 1)
		assert.Equal(t, "11.00", list.Msg.IOUs[0].Amount.StringFixed(2))
	})
}

func TestAuthService(t *testing.T) {
	s := setupTestServer(t)
	ctx := context.Background()
	s.login(t, "bob@example.com")

	t.Run("login", func(t *testing.T) {
		resp, err := s.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: "bob@example.com", Password: "password123"}))
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Msg.Token)
		assert.NotEmpty(t, resp.Msg.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := s.auth.Login(ctx, connect.NewRequest(&api.LoginRequest{Email: "bob@example.com", Password: "nope-nope"}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("duplicate registration", func(t *testing.T) {
		_, err := s.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
			Email: "bob@example.com", DisplayName: "Bob", Password: "password123",
		}))
		assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))
	})

	t.Run("malformed email", func(t *testing.T) {
		_, err := s.auth.Register(ctx, connect.NewRequest(&api.RegisterRequest{
			Email: "not-an-email", DisplayName: "Bob", Password: "password123",
		}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})
}
