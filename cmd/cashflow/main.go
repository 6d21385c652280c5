package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"connectrpc.com/connect"
	"github.com/olekukonko/tablewriter"

	"github.com/mmynk/cashflow/internal/calculator"
	"github.com/mmynk/cashflow/internal/gateway"
	"github.com/mmynk/cashflow/pkg/api"
	"github.com/mmynk/cashflow/pkg/logging"
)

func main() {
	input := flag.String("in", "", "Path to the IOU CSV file, or - for stdin (required)")
	format := flag.String("format", "table", "Output format: table or json")
	lenient := flag.Bool("lenient", false, "Fold self-loans and non-positive amounts instead of rejecting them")
	server := flag.String("server", "", "Compute the plan on a running server at this URL instead of locally")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "Error: -in is required.")
		flag.Usage()
		os.Exit(1)
	}
	if *format != "table" && *format != "json" {
		fmt.Fprintf(os.Stderr, "Error: unknown format %q\n", *format)
		os.Exit(1)
	}

	logging.Setup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ious, err := gateway.NewCSVIOUReader().ReadFile(ctx, *input)
	if err != nil {
		slog.Error("Failed to read IOUs", "error", err)
		os.Exit(1)
	}
	slog.Debug("IOUs loaded", "count", len(ious))

	var result *calculator.Result
	if *server != "" {
		result, err = remotePlan(ctx, *server, ious, *lenient)
	} else {
		result, err = localPlan(ious, *lenient)
	}
	if err != nil {
		slog.Error("Failed to compute settlement", "error", err)
		os.Exit(1)
	}

	if *format == "json" {
		err = writeJSON(os.Stdout, result)
	} else {
		writeTable(os.Stdout, result)
	}
	if err != nil {
		slog.Error("Failed to write output", "error", err)
		os.Exit(1)
	}
}

func localPlan(ious []calculator.IOU, lenient bool) (*calculator.Result, error) {
	var opts []calculator.Option
	if lenient {
		opts = append(opts, calculator.WithLenientInput())
	}
	return calculator.MinimizeCashFlow(ious, opts...)
}

func remotePlan(ctx context.Context, baseURL string, ious []calculator.IOU, lenient bool) (*calculator.Result, error) {
	client := api.NewLedgerServiceClient(http.DefaultClient, baseURL)

	msg := &api.MinimizeCashFlowRequest{IOUs: make([]api.IOU, len(ious)), Lenient: lenient}
	for i, iou := range ious {
		msg.IOUs[i] = api.IOU{Lender: iou.Lender, Borrower: iou.Borrower, Amount: iou.Amount}
	}

	resp, err := client.MinimizeCashFlow(ctx, connect.NewRequest(msg))
	if err != nil {
		return nil, fmt.Errorf("server %s: %w", baseURL, err)
	}

	result := &calculator.Result{
		TotalSettled: resp.Msg.TotalSettled,
		Transactions: make([]calculator.Transfer, len(resp.Msg.Transactions)),
	}
	for i, t := range resp.Msg.Transactions {
		result.Transactions[i] = calculator.Transfer{From: t.From, To: t.To, Amount: t.Amount}
	}
	return result, nil
}

func writeJSON(w io.Writer, result *calculator.Result) error {
	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	_, err = fmt.Fprintln(w, string(output))
	return err
}

func writeTable(w io.Writer, result *calculator.Result) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"From", "To", "Amount"})
	for _, t := range result.Transactions {
		table.Append([]string{t.From, t.To, t.Amount.String()})
	}
	table.SetFooter([]string{"", "Total", result.TotalSettled.String()})
	table.Render()
}
