// Package main is the operator CLI for the astraea backend. It talks to the
// same persistence stack the API uses, selected by PERSISTENCE_DRIVER, so the
// one binary works against a local SQLite file in development and the
// production DynamoDB tables alike.
//
// Usage:
//
//	astraea-admin list -user <id> [-limit N] [-token cursor]
//	astraea-admin inspect -user <id> -id <analysisID>
//	astraea-admin events -type <eventType> [-limit N]
//	astraea-admin purge [-days N] [-dry-run]
//	astraea-admin bulk-delete -user <id> -ids <id,id,...>
//	astraea-admin unthrottle -user <id>
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"astraea-backend/application/commands"
	"astraea-backend/application/queries"
	"astraea-backend/domain/core/valueobjects"
	"astraea-backend/domain/versioning"
	"astraea-backend/infrastructure/config"
	"astraea-backend/infrastructure/di"
	"astraea-backend/infrastructure/persistence/schema"
	"astraea-backend/pkg/auth"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := container.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "shutdown: %v\n", err)
		}
	}()

	switch os.Args[1] {
	case "list":
		err = runList(ctx, container, os.Args[2:])
	case "inspect":
		err = runInspect(ctx, container, os.Args[2:])
	case "events":
		err = runEvents(ctx, container, os.Args[2:])
	case "purge":
		err = runPurge(ctx, container, os.Args[2:])
	case "bulk-delete":
		err = runBulkDelete(ctx, container, os.Args[2:])
	case "unthrottle":
		err = runUnthrottle(ctx, container, os.Args[2:])
	case "help", "-h", "--help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `astraea-admin <command> [flags]

Commands:
  list         List a user's stored analyses, newest first
  inspect      Dump one analysis and its event history
  events       List recent domain events of one type
  purge        Remove analyses older than the retention window
  bulk-delete  Delete a batch of analyses for one user
  unthrottle   Clear a user's rate-limit counters

Run 'astraea-admin <command> -h' for command flags.`)
}

func runList(ctx context.Context, c *di.Container, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	user := fs.String("user", "", "Owning user ID (required)")
	limit := fs.Int("limit", 20, "Page size")
	token := fs.String("token", "", "Continuation token from a previous page")
	fs.Parse(args)

	if *user == "" {
		return fmt.Errorf("-user is required")
	}

	result, err := c.QueryBus.Ask(ctx, queries.ListAnalysesQuery{
		UserID:    *user,
		Limit:     *limit,
		NextToken: *token,
	})
	if err != nil {
		return err
	}
	list, ok := result.(*queries.ListAnalysesResult)
	if !ok {
		return fmt.Errorf("unexpected query result %T", result)
	}

	if len(list.Analyses) == 0 {
		fmt.Println("no analyses found")
		return nil
	}
	for _, a := range list.Analyses {
		age := a.GeneratedAt
		if ts, err := time.Parse(time.RFC3339, a.GeneratedAt); err == nil {
			age = humanize.Time(ts)
		}
		fmt.Printf("%-32s  %3d/100 %-12s %-12s %s + %s (%s)\n",
			a.AnalysisID, a.OverallScore, a.Rating, a.RelationshipType,
			a.Chart1Label, a.Chart2Label, age)
	}
	if list.NextToken != "" {
		fmt.Printf("\nnext page: -token %s\n", list.NextToken)
	}
	return nil
}

func runInspect(ctx context.Context, c *di.Container, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	user := fs.String("user", "", "Owning user ID (required)")
	id := fs.String("id", "", "Analysis ID (required)")
	fs.Parse(args)

	userID, err := valueobjects.NewUserID(*user)
	if err != nil {
		return err
	}
	analysisID, err := valueobjects.NewAnalysisIDFromString(*id)
	if err != nil {
		return err
	}

	analysis, err := c.Storage.AnalysisRepo.FindByID(ctx, userID, analysisID)
	if err != nil {
		return err
	}

	// The storage record is the most faithful dump: it is exactly what the
	// drivers persist, schema version included.
	record := schema.NewAnalysisRecord(analysis)
	data, err := record.Encode()
	if err != nil {
		return err
	}
	var pretty map[string]any
	if err := json.Unmarshal(data, &pretty); err != nil {
		return err
	}
	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%s\n\nstored size: %s\n", out, humanize.Bytes(uint64(len(data))))

	// Provenance: which engine produced this record, and whether the one
	// this binary carries would still serve it.
	versions := versioning.NewVersioningService()
	provenance, err := versions.DescribeVersion(analysis)
	if err != nil {
		return fmt.Errorf("describe version: %w", err)
	}
	served := "servable by this binary"
	if !versions.IsCompatible(provenance.SystemVersion) {
		served = "incompatible with " + versions.CurrentVersion() + "; clients will be told to regenerate"
	}
	fmt.Printf("\nengine: %s (%s)\nchecksum: %s\n", provenance.SystemVersion, served, provenance.Checksum)

	history, err := c.Storage.EventStore.GetEvents(ctx, analysisID.String())
	if err != nil {
		return fmt.Errorf("load event history: %w", err)
	}
	if len(history) == 0 {
		fmt.Println("no recorded events")
		return nil
	}
	fmt.Printf("\nevents (%d):\n", len(history))
	for _, ev := range history {
		fmt.Printf("  %-28s v%-3d %s (%s)\n",
			ev.GetEventType(), ev.GetVersion(),
			ev.GetTimestamp().UTC().Format(time.RFC3339), humanize.Time(ev.GetTimestamp()))
	}
	return nil
}

func runEvents(ctx context.Context, c *di.Container, args []string) error {
	fs := flag.NewFlagSet("events", flag.ExitOnError)
	eventType := fs.String("type", "", "Event type, e.g. analysis.generated (required)")
	limit := fs.Int("limit", 50, "Maximum events to return")
	fs.Parse(args)

	if *eventType == "" {
		return fmt.Errorf("-type is required")
	}

	evts, err := c.Storage.EventStore.GetEventsByType(ctx, *eventType, *limit)
	if err != nil {
		return err
	}
	if len(evts) == 0 {
		fmt.Printf("no %s events found\n", *eventType)
		return nil
	}
	for _, ev := range evts {
		fmt.Printf("%-32s v%-3d %s (%s)\n",
			ev.GetAggregateID(), ev.GetVersion(),
			ev.GetTimestamp().UTC().Format(time.RFC3339), humanize.Time(ev.GetTimestamp()))
	}
	return nil
}

func runPurge(ctx context.Context, c *di.Container, args []string) error {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	days := fs.Int("days", 0, "Purge analyses older than this many days (default: configured retention)")
	dryRun := fs.Bool("dry-run", false, "Count matches without deleting")
	fs.Parse(args)

	retention := *days
	if retention == 0 {
		retention = c.Config.RetentionDays
	}
	if retention <= 0 {
		return fmt.Errorf("no retention window: pass -days or set RETENTION_DAYS")
	}

	result, err := c.PurgeHandler.Handle(ctx, commands.PurgeExpiredAnalysesCommand{
		Before: time.Now().UTC().AddDate(0, 0, -retention),
		DryRun: *dryRun,
	})
	if err != nil {
		return err
	}
	if result.DryRun {
		fmt.Printf("dry run: %s would be purged (older than %d days)\n",
			pluralAnalyses(result.PurgedCount), retention)
		return nil
	}
	fmt.Printf("purged %s (older than %d days)\n", pluralAnalyses(result.PurgedCount), retention)
	return nil
}

func runBulkDelete(ctx context.Context, c *di.Container, args []string) error {
	fs := flag.NewFlagSet("bulk-delete", flag.ExitOnError)
	user := fs.String("user", "", "Owning user ID (required)")
	ids := fs.String("ids", "", "Comma-separated analysis IDs (required)")
	fs.Parse(args)

	if *user == "" || *ids == "" {
		return fmt.Errorf("-user and -ids are required")
	}
	var analysisIDs []string
	for _, id := range strings.Split(*ids, ",") {
		if id = strings.TrimSpace(id); id != "" {
			analysisIDs = append(analysisIDs, id)
		}
	}

	result, err := c.BulkDeleteHandler.Handle(ctx, commands.BulkDeleteAnalysesCommand{
		OperationID: uuid.NewString(),
		UserID:      *user,
		AnalysisIDs: analysisIDs,
	})
	if err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", pluralAnalyses(result.DeletedCount))
	for i, id := range result.FailedIDs {
		reason := "unknown"
		if i < len(result.Errors) {
			reason = result.Errors[i]
		}
		fmt.Printf("failed %s: %s\n", id, reason)
	}
	if len(result.FailedIDs) > 0 {
		return fmt.Errorf("%d of %d deletions failed", len(result.FailedIDs), len(analysisIDs))
	}
	return nil
}

func runUnthrottle(ctx context.Context, c *di.Container, args []string) error {
	fs := flag.NewFlagSet("unthrottle", flag.ExitOnError)
	user := fs.String("user", "", "User ID whose rate-limit counters to clear (required)")
	fs.Parse(args)

	if *user == "" {
		return fmt.Errorf("-user is required")
	}
	if err := c.RateLimiter.Reset(ctx, auth.UserKey(*user)); err != nil {
		return err
	}
	fmt.Printf("cleared rate-limit counters for %s\n", *user)
	return nil
}

func pluralAnalyses(n int) string {
	if n == 1 {
		return "1 analysis"
	}
	return fmt.Sprintf("%s analyses", humanize.Comma(int64(n)))
}
