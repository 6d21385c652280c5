package middleware

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/cashflow/internal/auth"
	"github.com/mmynk/cashflow/internal/metrics"
	"github.com/mmynk/cashflow/internal/models"
	"github.com/mmynk/cashflow/pkg/api"
)

const (
	whoamiProcedure = "/test.v1.TestService/Whoami"
	publicProcedure = "/test.v1.TestService/Public"
)

type whoami struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

func whoamiHandler(ctx context.Context, _ *connect.Request[struct{}]) (*connect.Response[whoami], error) {
	return connect.NewResponse(&whoami{UserID: GetUserID(ctx), Email: GetEmail(ctx)}), nil
}

type fixture struct {
	whoami  *connect.Client[struct{}, whoami]
	public  *connect.Client[struct{}, whoami]
	metrics *metrics.Metrics
	logs    *bytes.Buffer
	token   string
	user    *models.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	m := metrics.New(prometheus.NewRegistry())
	logs := &bytes.Buffer{}

	opts := []connect.HandlerOption{
		connect.WithCodec(api.Codec{}),
		connect.WithInterceptors(
			MetricsInterceptor(m),
			RequireAuth(jwtManager, publicProcedure),
			LoggingInterceptor(slog.New(slog.NewTextHandler(logs, nil))),
		),
	}

	mux := http.NewServeMux()
	mux.Handle(whoamiProcedure, connect.NewUnaryHandler(whoamiProcedure, whoamiHandler, opts...))
	mux.Handle(publicProcedure, connect.NewUnaryHandler(publicProcedure, whoamiHandler, opts...))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	user := models.NewUser("alice@example.com", "Alice", "hash")
	token, _, err := jwtManager.Generate(user)
	require.NoError(t, err)

	codec := connect.WithCodec(api.Codec{})
	return &fixture{
		whoami:  connect.NewClient[struct{}, whoami](http.DefaultClient, server.URL+whoamiProcedure, codec),
		public:  connect.NewClient[struct{}, whoami](http.DefaultClient, server.URL+publicProcedure, codec),
		metrics: m,
		logs:    logs,
		token:   token,
		user:    user,
	}
}

func (f *fixture) request(authorization string) *connect.Request[struct{}] {
	req := connect.NewRequest(&struct{}{})
	if authorization != "" {
		req.Header().Set("Authorization", authorization)
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("valid token puts the user in context", func(t *testing.T) {
		resp, err := f.whoami.CallUnary(ctx, f.request("Bearer "+f.token))
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, resp.Msg.UserID)
		assert.Equal(t, "alice@example.com", resp.Msg.Email)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := f.whoami.CallUnary(ctx, f.request(""))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("wrong scheme", func(t *testing.T) {
		_, err := f.whoami.CallUnary(ctx, f.request("Basic "+f.token))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("public procedure without token", func(t *testing.T) {
		resp, err := f.public.CallUnary(ctx, f.request(""))
		require.NoError(t, err)
		assert.Empty(t, resp.Msg.UserID)
	})

	t.Run("public procedure still sees a valid token", func(t *testing.T) {
		resp, err := f.public.CallUnary(ctx, f.request("Bearer "+f.token))
		require.NoError(t, err)
		assert.Equal(t, f.user.ID, resp.Msg.UserID)
	})
}

func TestLoggingAndMetricsInterceptors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.whoami.CallUnary(ctx, f.request("Bearer "+f.token))
	require.NoError(t, err)
	_, err = f.whoami.CallUnary(ctx, f.request(""))
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RPCRequests.WithLabelValues(whoamiProcedure, "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RPCRequests.WithLabelValues(whoamiProcedure, "unauthenticated")))

	// The rejected call never reaches the logging interceptor.
	logs := f.logs.String()
	assert.Contains(t, logs, "RPC ok")
	assert.Contains(t, logs, "user_id="+f.user.ID)
	assert.NotContains(t, logs, "RPC error")
}

func TestWithUser(t *testing.T) {
	ctx := WithUser(context.Background(), "u1", "u1@example.com")
	assert.Equal(t, "u1", GetUserID(ctx))
	assert.Equal(t, "u1@example.com", GetEmail(ctx))
	assert.Empty(t, GetUserID(context.Background()))
}
