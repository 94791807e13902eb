package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/mattjoyce/hookguard/internal/config"
	"github.com/mattjoyce/hookguard/internal/delivery"
	"github.com/mattjoyce/hookguard/internal/storage"
)

type deliveryView struct {
	ID             string    `json:"id"`
	Endpoint       string    `json:"endpoint"`
	URL            string    `json:"url"`
	PayloadKind    string    `json:"payload_kind"`
	Status         string    `json:"status"`
	Reason         string    `json:"reason"`
	MatchedVariant string    `json:"matched_variant,omitempty"`
	BodySize       int       `json:"body_size"`
	BodyDigest     string    `json:"body_digest"`
	Body           string    `json:"body,omitempty"`
	RemoteAddr     string    `json:"remote_addr,omitempty"`
	RequestID      string    `json:"request_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

func newDeliveryView(d *delivery.Delivery, withBody bool) deliveryView {
	v := deliveryView{
		ID:             d.ID,
		Endpoint:       d.Endpoint,
		URL:            d.URL,
		PayloadKind:    d.PayloadKind,
		Status:         string(d.Status),
		Reason:         d.Reason,
		MatchedVariant: d.MatchedVariant,
		BodySize:       d.BodySize,
		BodyDigest:     d.BodyDigest,
		RemoteAddr:     d.RemoteAddr,
		RequestID:      d.RequestID,
		CreatedAt:      d.CreatedAt,
	}
	if withBody {
		v.Body = string(d.Body)
	}
	return v
}

func runDeliveryNoun(args []string) int {
	if len(args) < 1 {
		printDeliveryNounHelp(os.Stderr)
		return 1
	}
	if isHelpToken(args[0]) {
		printDeliveryNounHelp(os.Stdout)
		return 0
	}

	action := args[0]
	actionArgs := args[1:]

	switch action {
	case "list":
		return runDeliveryList(actionArgs)
	case "show":
		return runDeliveryShow(actionArgs)
	case "prune":
		return runDeliveryPrune(actionArgs)
	case "stats":
		return runDeliveryStats(actionArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown delivery action: %s\n", action)
		return 1
	}
}

// openDeliveryStore loads the config and opens its delivery log. The returned
// func closes the database.
func openDeliveryStore(ctx context.Context, configPath string) (*config.Config, *delivery.Store, func(), error) {
	cfg, err := config.Load(resolveConfigPath(configPath))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open database: %w", err)
	}
	return cfg, delivery.New(db), func() { _ = db.Close() }, nil
}

func runDeliveryList(args []string) int {
	fs := flag.NewFlagSet("delivery list", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	status := fs.String("status", "", "Filter by status (accepted|rejected)")
	endpoint := fs.String("endpoint", "", "Filter by endpoint name")
	limit := fs.Int("limit", delivery.DefaultListLimit, "Maximum rows")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	switch delivery.Status(*status) {
	case "", delivery.StatusAccepted, delivery.StatusRejected:
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid --status %q (want accepted or rejected)\n", *status)
		return 1
	}

	ctx := context.Background()
	_, store, closeDB, err := openDeliveryStore(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeDB()

	deliveries, err := store.List(ctx, delivery.Filter{
		Status:   delivery.Status(*status),
		Endpoint: *endpoint,
		Limit:    *limit,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		views := make([]deliveryView, 0, len(deliveries))
		for _, d := range deliveries {
			views = append(views, newDeliveryView(d, false))
		}
		return printJSON(views)
	}

	if len(deliveries) == 0 {
		fmt.Println("No deliveries.")
		return 0
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tCREATED\tENDPOINT\tSTATUS\tREASON\tPAYLOAD\tSIZE")
	for _, d := range deliveries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			d.ID, d.CreatedAt.Format(time.RFC3339), d.Endpoint, d.Status, d.Reason, d.PayloadKind, d.BodySize)
	}
	_ = w.Flush()
	return 0
}

func runDeliveryShow(args []string) int {
	fs := flag.NewFlagSet("delivery show", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "Usage: hookguard delivery show <id> [--config PATH] [--json]")
		return 1
	}

	ctx := context.Background()
	_, store, closeDB, err := openDeliveryStore(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeDB()

	d, err := store.Get(ctx, fs.Arg(0))
	if errors.Is(err, delivery.ErrDeliveryNotFound) {
		fmt.Fprintf(os.Stderr, "Delivery %s not found\n", fs.Arg(0))
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	view := newDeliveryView(d, true)
	if *jsonOut {
		return printJSON(view)
	}

	fmt.Printf("ID:        %s\n", view.ID)
	fmt.Printf("Created:   %s\n", view.CreatedAt.Format(time.RFC3339Nano))
	fmt.Printf("Endpoint:  %s\n", view.Endpoint)
	fmt.Printf("URL:       %s\n", view.URL)
	fmt.Printf("Status:    %s (%s)\n", view.Status, view.Reason)
	fmt.Printf("Payload:   %s\n", view.PayloadKind)
	if view.MatchedVariant != "" {
		fmt.Printf("Variant:   %s\n", view.MatchedVariant)
	}
	fmt.Printf("Body:      %d bytes, blake3 %s\n", view.BodySize, view.BodyDigest)
	if view.RemoteAddr != "" {
		fmt.Printf("Remote:    %s\n", view.RemoteAddr)
	}
	if view.RequestID != "" {
		fmt.Printf("RequestID: %s\n", view.RequestID)
	}
	if view.Body != "" {
		fmt.Printf("\n%s\n", view.Body)
	}
	return 0
}

func runDeliveryPrune(args []string) int {
	fs := flag.NewFlagSet("delivery prune", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	olderThan := fs.Duration("older-than", 0, "Delete deliveries older than this (default: service.retention)")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	cfg, store, closeDB, err := openDeliveryStore(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeDB()

	window := *olderThan
	if window == 0 {
		window = cfg.Service.Retention
	}

	n, err := store.Prune(ctx, window)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	fmt.Printf("Pruned %d deliveries older than %s\n", n, window)
	return 0
}

func runDeliveryStats(args []string) int {
	fs := flag.NewFlagSet("delivery stats", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	jsonOut := fs.Bool("json", false, "Output JSON")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Flag error: %v\n", err)
		return 1
	}

	ctx := context.Background()
	_, store, closeDB, err := openDeliveryStore(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeDB()

	rows, err := store.Stats(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	if *jsonOut {
		type statView struct {
			Status string `json:"status"`
			Reason string `json:"reason"`
			Count  int    `json:"count"`
		}
		views := make([]statView, 0, len(rows))
		for _, r := range rows {
			views = append(views, statView{Status: string(r.Status), Reason: r.Reason, Count: r.Count})
		}
		return printJSON(views)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STATUS\tREASON\tCOUNT")
	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\n", r.Status, r.Reason, r.Count)
	}
	_ = w.Flush()
	return 0
}

func printJSON(v any) int {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render JSON: %v\n", err)
		return 1
	}
	fmt.Println(string(data))
	return 0
}
