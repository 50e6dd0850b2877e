// Command auditor evaluates a repository and its accompanying report against
// a grading rubric: evidence collectors fan out over the inputs, a judge
// panel scores each criterion, and a deterministic synthesis pass produces
// the final verdict and markdown report.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/dusk-indust/auditor/internal/audit"
	"github.com/dusk-indust/auditor/internal/config"
	"github.com/dusk-indust/auditor/internal/engine"
	"github.com/dusk-indust/auditor/internal/judge"
	"github.com/dusk-indust/auditor/internal/mcptools"
	"github.com/dusk-indust/auditor/internal/report"
	"github.com/dusk-indust/auditor/internal/rubric"
	"github.com/dusk-indust/auditor/internal/server"
	"github.com/dusk-indust/auditor/internal/store"
	"github.com/oklog/ulid/v2"
)

// CLI flags parsed from command line.
type cliFlags struct {
	RepoURL    string
	DocPath    string
	OutputDir  string
	RubricPath string
	DBPath     string
	Model      string
	Timeout    time.Duration
	Serve      bool
	Addr       string
	ServeMCP   bool
	History    bool
	Verbose    bool
	Version    bool
}

// version is set by goreleaser at build time.
var version = "dev"

var (
	warn  = color.New(color.FgHiYellow).SprintFunc()
	good  = color.New(color.FgHiGreen).SprintFunc()
	title = color.New(color.FgHiCyan, color.Bold).SprintFunc()
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var flags cliFlags

	fs := flag.NewFlagSet("auditor", flag.ContinueOnError)
	fs.StringVar(&flags.RepoURL, "repo", "", "URL of the git repository to audit")
	fs.StringVar(&flags.DocPath, "doc", "", "path to the markdown report accompanying the repository")
	fs.StringVar(&flags.OutputDir, "output", "audits", "directory for rendered audit reports")
	fs.StringVar(&flags.RubricPath, "rubric", "", "path to a rubric JSON file (default: built-in rubric)")
	fs.StringVar(&flags.DBPath, "db", "", "path to the run history database (default: <output>/auditor.db)")
	fs.StringVar(&flags.Model, "model", "", "Anthropic model for the judge panel")
	fs.DurationVar(&flags.Timeout, "timeout", 0, "per-stage timeout (0 = no limit)")
	fs.BoolVar(&flags.Serve, "serve", false, "run the HTTP front end instead of a one-shot audit")
	fs.StringVar(&flags.Addr, "addr", ":8000", "listen address for -serve")
	fs.BoolVar(&flags.ServeMCP, "serve-mcp", false, "run as MCP server for agent integration")
	fs.BoolVar(&flags.History, "history", false, "list past audit runs and exit")
	fs.BoolVar(&flags.Verbose, "verbose", false, "enable verbose output")
	fs.BoolVar(&flags.Version, "version", false, "print version and exit")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if flags.Version {
		fmt.Println(version)
		return nil
	}

	cfg, err := config.Load(".")
	if err != nil {
		return err
	}
	applyConfig(&flags, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if flags.History {
		return printHistory(ctx, flags)
	}

	r, err := loadRubric(flags.RubricPath)
	if err != nil {
		return err
	}

	judges, err := buildPanel(flags.Model)
	if err != nil {
		return err
	}

	switch {
	case flags.ServeMCP:
		return serveMCP(ctx, flags, r, judges)
	case flags.Serve:
		return serveHTTP(ctx, flags, r, judges)
	default:
		return runOnce(ctx, flags, r, judges)
	}
}

// applyConfig fills flag defaults from the project config file without
// overriding anything given on the command line.
func applyConfig(flags *cliFlags, cfg *config.ProjectConfig) {
	if flags.OutputDir == "audits" && cfg.OutputDir != "" {
		flags.OutputDir = cfg.OutputDir
	}
	if flags.RubricPath == "" {
		flags.RubricPath = cfg.RubricPath
	}
	if flags.DBPath == "" {
		flags.DBPath = cfg.DBPath
	}
	if flags.Model == "" {
		flags.Model = cfg.Model
	}
	if flags.Timeout == 0 {
		flags.Timeout = cfg.Timeout()
	}
	if cfg.Verbose {
		flags.Verbose = true
	}
}

func loadRubric(path string) (*rubric.Rubric, error) {
	if path == "" {
		return rubric.Default()
	}
	return rubric.Load(path)
}

// buildPanel selects the judge backend: real LLM judges when an API key is
// configured, deterministic placeholders otherwise.
func buildPanel(model string) ([]judge.Judge, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		fmt.Fprintf(os.Stderr, "%s ANTHROPIC_API_KEY not set; using placeholder judges\n", warn("!"))
		return judge.PlaceholderPanel(), nil
	}
	return judge.LLMPanel(apiKey, model)
}

func openStore(flags cliFlags) (*store.SQLiteStore, error) {
	dbPath := flags.DBPath
	if dbPath == "" {
		dbPath = filepath.Join(flags.OutputDir, "auditor.db")
	}
	return store.Open(dbPath)
}

func auditOptions(flags cliFlags, r *rubric.Rubric, judges []judge.Judge) audit.Options {
	opts := audit.Options{
		RepoURL:      flags.RepoURL,
		DocPath:      flags.DocPath,
		Rubric:       r,
		Judges:       judges,
		StageTimeout: flags.Timeout,
	}
	if flags.Verbose {
		opts.Progress = func(ev engine.ProgressEvent) {
			fmt.Fprintln(os.Stderr, engine.FormatProgress(ev))
		}
	}
	return opts
}

// runOnce performs a single audit, writes the report, and records the run.
func runOnce(ctx context.Context, flags cliFlags, r *rubric.Rubric, judges []judge.Judge) error {
	if flags.RepoURL == "" && flags.DocPath == "" {
		return fmt.Errorf("nothing to audit: provide -repo and/or -doc")
	}

	db, err := openStore(flags)
	if err != nil {
		return err
	}
	defer db.Close()

	result, err := auditOptions(flags, r, judges).Run(ctx)
	if err != nil {
		return err
	}

	runID := ulid.Make().String()
	reportPath := filepath.Join(flags.OutputDir, fmt.Sprintf("audit_%s.md", runID))
	if err := report.Write(reportPath, result.Report); err != nil {
		return err
	}

	if err := db.SaveRun(ctx, store.Run{
		ID:           runID,
		RepoURL:      flags.RepoURL,
		DocPath:      flags.DocPath,
		OverallScore: result.Verdict.OverallScore,
		Degraded:     result.Verdict.Degraded,
		Report:       result.Report,
		Verdict:      result.Verdict,
	}); err != nil {
		return err
	}

	fmt.Printf("%s\n", title("Audit complete"))
	fmt.Printf("  Overall score: %s\n", good(fmt.Sprintf("%.1f / 5", result.Verdict.OverallScore)))
	if result.Verdict.Degraded {
		fmt.Printf("  %s run was degraded: no usable evidence was collected\n", warn("!"))
	}
	if result.Verdict.SecurityOverride {
		fmt.Printf("  %s security override applied\n", warn("!"))
	}
	fmt.Printf("  Report: %s\n", reportPath)
	return nil
}

// printHistory renders the persisted run history as a table.
func printHistory(ctx context.Context, flags cliFlags) error {
	db, err := openStore(flags)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, 20)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no audit runs recorded")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout,
		tablewriter.WithHeaderAlignment(tw.AlignLeft),
		tablewriter.WithRowAlignment(tw.AlignLeft),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Lines:      tw.LinesNone,
				Separators: tw.SeparatorsNone,
			},
		}),
		tablewriter.WithPadding(tw.Padding{Left: "", Right: "  "}),
	)
	table.Header([]string{"Run", "Date", "Repository", "Score", "Degraded"})
	for _, r := range runs {
		degraded := ""
		if r.Degraded {
			degraded = warn("yes")
		}
		_ = table.Append([]string{
			r.ID,
			r.CreatedAt.Format("2006-01-02 15:04"),
			r.RepoURL,
			fmt.Sprintf("%.1f", r.OverallScore),
			degraded,
		})
	}
	return table.Render()
}

// serveHTTP runs the form front end. Reports are rendered inline; runs are
// persisted the same way the one-shot path persists them.
func serveHTTP(ctx context.Context, flags cliFlags, r *rubric.Rubric, judges []judge.Judge) error {
	db, err := openStore(flags)
	if err != nil {
		return err
	}
	defer db.Close()

	runner := server.RunnerFunc(func(ctx context.Context, repoURL, docPath string) (string, error) {
		f := flags
		f.RepoURL = repoURL
		f.DocPath = docPath
		result, err := auditOptions(f, r, judges).Run(ctx)
		if err != nil {
			return "", err
		}
		if err := db.SaveRun(ctx, store.Run{
			ID:           ulid.Make().String(),
			RepoURL:      repoURL,
			DocPath:      docPath,
			OverallScore: result.Verdict.OverallScore,
			Degraded:     result.Verdict.Degraded,
			Report:       result.Report,
			Verdict:      result.Verdict,
		}); err != nil {
			return "", err
		}
		return result.Report, nil
	})

	fmt.Fprintf(os.Stderr, "listening on %s\n", flags.Addr)
	err = server.New(runner).ListenAndServe(ctx, flags.Addr)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// serveMCP runs the stdio MCP server exposing run_audit and get_history.
func serveMCP(ctx context.Context, flags cliFlags, r *rubric.Rubric, judges []judge.Judge) error {
	db, err := openStore(flags)
	if err != nil {
		return err
	}
	defer db.Close()

	runFn := func(ctx context.Context, repoURL, docPath string) (*audit.Result, error) {
		f := flags
		f.RepoURL = repoURL
		f.DocPath = docPath
		f.Verbose = false // progress would corrupt the stdio transport
		return auditOptions(f, r, judges).Run(ctx)
	}

	return mcptools.RunStdio(ctx, mcptools.NewServer(runFn, db))
}
