// attendance-admin is the maintenance entrypoint for the attendance
// store: store creation, snapshot export/import/merge, event catalogue
// upkeep and report rendering. The kiosk UI holds the store open during
// meetings; this tool is for everything that happens between them.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/oakhill-robotics/attendance/internal/models"
	"github.com/oakhill-robotics/attendance/internal/repository"
	"github.com/oakhill-robotics/attendance/internal/service"
	"github.com/oakhill-robotics/attendance/pkg/config"
	"github.com/oakhill-robotics/attendance/pkg/database"
	"github.com/oakhill-robotics/attendance/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: attendance-admin <command> [flags]

commands:
  init                         create a new empty store
  export -out FILE             write a JSON snapshot of the store
  import -in FILE              load a snapshot into an empty store
  merge -in FILE               merge a snapshot into this store
  import-roster -in FILE       bulk-add students from CSV
  discover-events [-type T]    register events found in check-in history
  report -name NAME [-format csv|pdf] [-event KEY]
                               render season-totals, event-summary or
                               event-roster to the exports directory
`)
}

func run() error {
	if len(os.Args) < 2 {
		usage()
		return fmt.Errorf("missing command")
	}
	command := os.Args[1]
	args := os.Args[2:]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if command == "init" {
		db, err := database.Create(cfg.Database, cfg.Roster.EnforceUniqueEmail)
		if err != nil {
			return err
		}
		defer db.Close()
		fmt.Println("store created at", cfg.Database.Path)
		return nil
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	switch command {
	case "export", "import", "merge":
		return runTransfer(ctx, command, args, db, cfg, log)
	case "import-roster":
		return runRosterImport(ctx, args, db, cfg, log)
	case "discover-events":
		return runDiscoverEvents(ctx, args, db, log)
	case "report":
		return runReport(ctx, args, db, cfg, log)
	default:
		usage()
		return fmt.Errorf("unknown command %q", command)
	}
}

func runTransfer(ctx context.Context, command string, args []string, db *sqlx.DB, cfg *config.Config, log *zap.Logger) error {
	fs := flag.NewFlagSet(command, flag.ExitOnError)
	out := fs.String("out", "", "snapshot file to write")
	in := fs.String("in", "", "snapshot file to read")
	fs.Parse(args)

	svc := service.NewTransferService(
		repository.NewStudentRepository(db),
		repository.NewEventRepository(db),
		repository.NewCheckinRepository(db),
		log,
	)
	worker := service.NewTransferWorker(svc, cfg.Jobs, log)
	worker.Start(ctx)
	defer worker.Stop()

	var (
		id  string
		err error
	)
	switch command {
	case "export":
		if *out == "" {
			return fmt.Errorf("export requires -out")
		}
		id, err = worker.EnqueueExport(*out)
	case "import":
		if *in == "" {
			return fmt.Errorf("import requires -in")
		}
		id, err = worker.EnqueueImport(*in)
	case "merge":
		if *in == "" {
			return fmt.Errorf("merge requires -in")
		}
		id, err = worker.EnqueueMerge(*in)
	}
	if err != nil {
		return err
	}

	result, err := worker.Await(ctx, id)
	if err != nil {
		return err
	}
	if command == "export" {
		fmt.Printf("exported %d students, %d events, %d check-ins to %s\n",
			result.Applied.Students, result.Applied.Events, result.Applied.Checkins, *out)
		return nil
	}
	fmt.Printf("applied %d students, %d events, %d check-ins (%d check-ins skipped, %d failures)\n",
		result.Applied.Students, result.Applied.Events, result.Applied.Checkins,
		result.Skipped.Checkins, len(result.Failures))
	for _, f := range result.Failures {
		fmt.Println(" ", f)
	}
	return nil
}

func runRosterImport(ctx context.Context, args []string, db *sqlx.DB, cfg *config.Config, log *zap.Logger) error {
	fs := flag.NewFlagSet("import-roster", flag.ExitOnError)
	in := fs.String("in", "", "roster CSV file")
	fs.Parse(args)
	if *in == "" {
		return fmt.Errorf("import-roster requires -in")
	}

	f, err := os.Open(*in)
	if err != nil {
		return err
	}
	defer f.Close()

	svc := service.NewRosterService(repository.NewStudentRepository(db), cfg.Roster, log)
	result, err := svc.ImportCSV(ctx, f)
	if err != nil {
		return err
	}
	fmt.Printf("imported %d students, %d rows failed\n", result.Succeeded, result.Failed)
	for _, failure := range result.Failures {
		fmt.Printf("  line %d: %s\n", failure.Line, failure.Reason)
	}
	return result.AsError()
}

func runDiscoverEvents(ctx context.Context, args []string, db *sqlx.DB, log *zap.Logger) error {
	fs := flag.NewFlagSet("discover-events", flag.ExitOnError)
	rawType := fs.String("type", string(models.EventMeeting), "event type for undated check-in groups")
	fs.Parse(args)

	defaultType, err := models.ParseEventType(*rawType)
	if err != nil {
		return err
	}
	svc := service.NewEventService(repository.NewEventRepository(db), log)
	added, err := svc.DiscoverFromCheckins(ctx, defaultType)
	if err != nil {
		return err
	}
	fmt.Printf("registered %d new events\n", added)
	return nil
}

func runReport(ctx context.Context, args []string, db *sqlx.DB, cfg *config.Config, log *zap.Logger) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	name := fs.String("name", "", "season-totals, event-summary or event-roster")
	format := fs.String("format", "csv", "csv or pdf")
	eventKey := fs.String("event", "", "event key (date::type) for event-roster")
	fs.Parse(args)

	svc := service.NewReportService(repository.NewReportRepository(db), cfg.Seasons, cfg.Exports.Dir, log)

	var (
		path string
		err  error
	)
	switch *name {
	case "season-totals":
		path, err = svc.RenderSeasonTotals(ctx, service.ReportFormat(*format))
	case "event-summary":
		path, err = svc.RenderEventSummary(ctx, service.ReportFormat(*format))
	case "event-roster":
		if *eventKey == "" {
			return fmt.Errorf("event-roster requires -event")
		}
		path, err = svc.RenderEventRoster(ctx, *eventKey, service.ReportFormat(*format))
	default:
		return fmt.Errorf("unknown report %q", *name)
	}
	if err != nil {
		return err
	}
	fmt.Println("report written to", path)
	return nil
}
