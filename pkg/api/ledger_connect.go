package api

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

const (
	// LedgerServiceName is the fully-qualified name of the LedgerService.
	LedgerServiceName = "cashflow.v1.LedgerService"

	LedgerServiceMinimizeCashFlowProcedure  = "/cashflow.v1.LedgerService/MinimizeCashFlow"
	LedgerServiceCreateLedgerProcedure      = "/cashflow.v1.LedgerService/CreateLedger"
	LedgerServiceGetLedgerProcedure         = "/cashflow.v1.LedgerService/GetLedger"
	LedgerServiceListLedgersProcedure       = "/cashflow.v1.LedgerService/ListLedgers"
	LedgerServiceDeleteLedgerProcedure      = "/cashflow.v1.LedgerService/DeleteLedger"
	LedgerServiceAddIOUProcedure            = "/cashflow.v1.LedgerService/AddIOU"
	LedgerServiceListIOUsProcedure          = "/cashflow.v1.LedgerService/ListIOUs"
	LedgerServiceAddBillProcedure           = "/cashflow.v1.LedgerService/AddBill"
	LedgerServiceGetLedgerBalancesProcedure = "/cashflow.v1.LedgerService/GetLedgerBalances"
	LedgerServiceSettleLedgerProcedure      = "/cashflow.v1.LedgerService/SettleLedger"
)

// LedgerServiceHandler is implemented by the server side of LedgerService.
type LedgerServiceHandler interface {
	MinimizeCashFlow(context.Context, *connect.Request[MinimizeCashFlowRequest]) (*connect.Response[MinimizeCashFlowResponse], error)
	CreateLedger(context.Context, *connect.Request[CreateLedgerRequest]) (*connect.Response[CreateLedgerResponse], error)
	GetLedger(context.Context, *connect.Request[GetLedgerRequest]) (*connect.Response[GetLedgerResponse], error)
	ListLedgers(context.Context, *connect.Request[ListLedgersRequest]) (*connect.Response[ListLedgersResponse], error)
	DeleteLedger(context.Context, *connect.Request[DeleteLedgerRequest]) (*connect.Response[DeleteLedgerResponse], error)
	AddIOU(context.Context, *connect.Request[AddIOURequest]) (*connect.Response[AddIOUResponse], error)
	ListIOUs(context.Context, *connect.Request[ListIOUsRequest]) (*connect.Response[ListIOUsResponse], error)
	AddBill(context.Context, *connect.Request[AddBillRequest]) (*connect.Response[AddBillResponse], error)
	GetLedgerBalances(context.Context, *connect.Request[GetLedgerBalancesRequest]) (*connect.Response[GetLedgerBalancesResponse], error)
	SettleLedger(context.Context, *connect.Request[SettleLedgerRequest]) (*connect.Response[SettleLedgerResponse], error)
}

// NewLedgerServiceHandler builds an HTTP handler for svc and returns the path
// to mount it on.
func NewLedgerServiceHandler(svc LedgerServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = withCodec(opts)

	routes := map[string]http.Handler{
		LedgerServiceMinimizeCashFlowProcedure:  connect.NewUnaryHandler(LedgerServiceMinimizeCashFlowProcedure, svc.MinimizeCashFlow, opts...),
		LedgerServiceCreateLedgerProcedure:      connect.NewUnaryHandler(LedgerServiceCreateLedgerProcedure, svc.CreateLedger, opts...),
		LedgerServiceGetLedgerProcedure:         connect.NewUnaryHandler(LedgerServiceGetLedgerProcedure, svc.GetLedger, opts...),
		LedgerServiceListLedgersProcedure:       connect.NewUnaryHandler(LedgerServiceListLedgersProcedure, svc.ListLedgers, opts...),
		LedgerServiceDeleteLedgerProcedure:      connect.NewUnaryHandler(LedgerServiceDeleteLedgerProcedure, svc.DeleteLedger, opts...),
		LedgerServiceAddIOUProcedure:            connect.NewUnaryHandler(LedgerServiceAddIOUProcedure, svc.AddIOU, opts...),
		LedgerServiceListIOUsProcedure:          connect.NewUnaryHandler(LedgerServiceListIOUsProcedure, svc.ListIOUs, opts...),
		LedgerServiceAddBillProcedure:           connect.NewUnaryHandler(LedgerServiceAddBillProcedure, svc.AddBill, opts...),
		LedgerServiceGetLedgerBalancesProcedure: connect.NewUnaryHandler(LedgerServiceGetLedgerBalancesProcedure, svc.GetLedgerBalances, opts...),
		LedgerServiceSettleLedgerProcedure:      connect.NewUnaryHandler(LedgerServiceSettleLedgerProcedure, svc.SettleLedger, opts...),
	}

	return "/" + LedgerServiceName + "/", routeHandler(routes)
}

// LedgerServiceClient calls LedgerService over HTTP.
type LedgerServiceClient struct {
	minimizeCashFlow  *connect.Client[MinimizeCashFlowRequest, MinimizeCashFlowResponse]
	createLedger      *connect.Client[CreateLedgerRequest, CreateLedgerResponse]
	getLedger         *connect.Client[GetLedgerRequest, GetLedgerResponse]
	listLedgers       *connect.Client[ListLedgersRequest, ListLedgersResponse]
	deleteLedger      *connect.Client[DeleteLedgerRequest, DeleteLedgerResponse]
	addIOU            *connect.Client[AddIOURequest, AddIOUResponse]
	listIOUs          *connect.Client[ListIOUsRequest, ListIOUsResponse]
	addBill           *connect.Client[AddBillRequest, AddBillResponse]
	getLedgerBalances *connect.Client[GetLedgerBalancesRequest, GetLedgerBalancesResponse]
	settleLedger      *connect.Client[SettleLedgerRequest, SettleLedgerResponse]
}

// NewLedgerServiceClient creates a client for the server at baseURL
// (e.g. http://localhost:8080).
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = withClientCodec(opts)

	return &LedgerServiceClient{
		minimizeCashFlow:  connect.NewClient[MinimizeCashFlowRequest, MinimizeCashFlowResponse](httpClient, baseURL+LedgerServiceMinimizeCashFlowProcedure, opts...),
		createLedger:      connect.NewClient[CreateLedgerRequest, CreateLedgerResponse](httpClient, baseURL+LedgerServiceCreateLedgerProcedure, opts...),
		getLedger:         connect.NewClient[GetLedgerRequest, GetLedgerResponse](httpClient, baseURL+LedgerServiceGetLedgerProcedure, opts...),
		listLedgers:       connect.NewClient[ListLedgersRequest, ListLedgersResponse](httpClient, baseURL+LedgerServiceListLedgersProcedure, opts...),
		deleteLedger:      connect.NewClient[DeleteLedgerRequest, DeleteLedgerResponse](httpClient, baseURL+LedgerServiceDeleteLedgerProcedure, opts...),
		addIOU:            connect.NewClient[AddIOURequest, AddIOUResponse](httpClient, baseURL+LedgerServiceAddIOUProcedure, opts...),
		listIOUs:          connect.NewClient[ListIOUsRequest, ListIOUsResponse](httpClient, baseURL+LedgerServiceListIOUsProcedure, opts...),
		addBill:           connect.NewClient[AddBillRequest, AddBillResponse](httpClient, baseURL+LedgerServiceAddBillProcedure, opts...),
		getLedgerBalances: connect.NewClient[GetLedgerBalancesRequest, GetLedgerBalancesResponse](httpClient, baseURL+LedgerServiceGetLedgerBalancesProcedure, opts...),
		settleLedger:      connect.NewClient[SettleLedgerRequest, SettleLedgerResponse](httpClient, baseURL+LedgerServiceSettleLedgerProcedure, opts...),
	}
}

func (c *LedgerServiceClient) MinimizeCashFlow(ctx context.Context, req *connect.Request[MinimizeCashFlowRequest]) (*connect.Response[MinimizeCashFlowResponse], error) {
	return c.minimizeCashFlow.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) CreateLedger(ctx context.Context, req *connect.Request[CreateLedgerRequest]) (*connect.Response[CreateLedgerResponse], error) {
	return c.createLedger.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetLedger(ctx context.Context, req *connect.Request[GetLedgerRequest]) (*connect.Response[GetLedgerResponse], error) {
	return c.getLedger.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListLedgers(ctx context.Context, req *connect.Request[ListLedgersRequest]) (*connect.Response[ListLedgersResponse], error) {
	return c.listLedgers.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) DeleteLedger(ctx context.Context, req *connect.Request[DeleteLedgerRequest]) (*connect.Response[DeleteLedgerResponse], error) {
	return c.deleteLedger.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) AddIOU(ctx context.Context, req *connect.Request[AddIOURequest]) (*connect.Response[AddIOUResponse], error) {
	return c.addIOU.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListIOUs(ctx context.Context, req *connect.Request[ListIOUsRequest]) (*connect.Response[ListIOUsResponse], error) {
	return c.listIOUs.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) AddBill(ctx context.Context, req *connect.Request[AddBillRequest]) (*connect.Response[AddBillResponse], error) {
	return c.addBill.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetLedgerBalances(ctx context.Context, req *connect.Request[GetLedgerBalancesRequest]) (*connect.Response[GetLedgerBalancesResponse], error) {
	return c.getLedgerBalances.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SettleLedger(ctx context.Context, req *connect.Request[SettleLedgerRequest]) (*connect.Response[SettleLedgerResponse], error) {
	return c.settleLedger.CallUnary(ctx, req)
}

// routeHandler dispatches on the exact procedure path.
func routeHandler(routes map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h, ok := routes[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func withCodec(opts []connect.HandlerOption) []connect.HandlerOption {
	return append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)
}

func withClientCodec(opts []connect.ClientOption) []connect.ClientOption {
	return append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
}
