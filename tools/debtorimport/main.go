package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"condo-backoffice/internal/audit"
	"condo-backoffice/internal/debtorimport/application"
	debtorrepo "condo-backoffice/internal/debtorimport/infrastructure/postgres"
	"condo-backoffice/internal/debtorimport/interfaces/sheet"
)

type options struct {
	dsn        string
	configPath string
	projectID  string
	file       string
	actor      string
	verbose    bool
}

func main() {
	_ = godotenv.Load()
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "debtorimport",
		Short:         "Import outstanding debtor spreadsheets into a project ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dsn, "dsn", firstNonEmpty(os.Getenv("DATABASE_URL"), os.Getenv("PG_DSN")), "PostgreSQL DSN (default DATABASE_URL or PG_DSN)")
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv("DEBTOR_IMPORT_CONFIG"), "debtor import YAML config")
	root.PersistentFlags().StringVarP(&opts.projectID, "project", "p", "", "project id")
	root.PersistentFlags().StringVarP(&opts.file, "file", "f", "", "spreadsheet to import (.xlsx, .xls, .csv)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log run progress to stderr")
	_ = root.MarkPersistentFlagRequired("project")
	_ = root.MarkPersistentFlagRequired("file")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Validate and post the spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, out)
		},
	}
	runCmd.Flags().StringVar(&opts.actor, "actor", firstNonEmpty(os.Getenv("USER"), "cli"), "actor recorded in the audit log")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Dry-run validation without writing",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd.Context(), opts, out)
		},
	}

	root.AddCommand(runCmd, validateCmd)
	return root
}

type session struct {
	db      *sql.DB
	service *application.Service
	rows    sheet.Result
}

func open(ctx context.Context, opts *options) (*session, error) {
	if opts.dsn == "" {
		return nil, errors.New("--dsn, DATABASE_URL or PG_DSN is required")
	}
	logger := log.New(io.Discard, "", 0)
	if opts.verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}

	cfg, err := application.LoadConfigFrom(opts.configPath)
	if err != nil {
		return nil, err
	}
	parser, err := sheet.NewParser(cfg.Headers)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(opts.file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	parsed, err := parser.Parse(filepath.Base(opts.file), f)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", opts.dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	service, err := application.NewService(
		debtorrepo.NewUnitDirectory(db),
		debtorrepo.NewBillStore(db),
		debtorrepo.NewLedgerStore(db),
		debtorrepo.NewBillNumberSequence(db),
		cfg,
		application.WithRunLocker(debtorrepo.NewAdvisoryRunLocker(db, logger)),
		application.WithAuditLogger(audit.NewRepository(db)),
		application.WithLogger(logger),
	)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &session{db: db, service: service, rows: parsed}, nil
}

func runImport(ctx context.Context, opts *options, out io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	s, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.db.Close()
	if len(s.rows.Issues) > 0 {
		_ = printJSON(out, map[string]any{"success": false, "validationErrors": s.rows.Issues})
		return fmt.Errorf("%d unreadable cells", len(s.rows.Issues))
	}

	result, runErr := s.service.Run(ctx, application.RunRequest{
		ProjectID: opts.projectID,
		Actor:     opts.actor,
		Role:      "cli",
		Rows:      s.rows.Rows,
	})
	if err := printJSON(out, result); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if !result.Success {
		return fmt.Errorf("import failed: %d rows failed", result.Failed)
	}
	return nil
}

func runValidate(ctx context.Context, opts *options, out io.Writer) error {
	s, err := open(ctx, opts)
	if err != nil {
		return err
	}
	defer s.db.Close()

	report, err := s.service.Validate(ctx, opts.projectID, s.rows.Rows)
	if err != nil {
		return err
	}
	if len(s.rows.Issues) > 0 {
		report.Valid = false
		report.Errors = append(s.rows.Issues, report.Errors...)
	}
	if err := printJSON(out, report); err != nil {
		return err
	}
	if !report.Valid {
		return fmt.Errorf("%d validation errors", len(report.Errors))
	}
	return nil
}

func printJSON(out io.Writer, value any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
