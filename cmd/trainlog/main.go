package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/pistalab/trainlog/internal/config"
	"github.com/pistalab/trainlog/internal/facts"
	"github.com/pistalab/trainlog/internal/harness"
	"github.com/pistalab/trainlog/internal/llm"
	"github.com/pistalab/trainlog/internal/mcp"
	"github.com/pistalab/trainlog/internal/parser"
	"github.com/pistalab/trainlog/internal/server"
	"github.com/pistalab/trainlog/internal/store"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(0)
	}

	var err error
	switch os.Args[1] {
	case "parse":
		err = runParse(os.Args[2:])
	case "facts":
		err = runFacts(os.Args[2:])
	case "harness":
		err = runHarness(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "mcp":
		err = runMCP(os.Args[2:])
	case "version", "--version", "-v":
		fmt.Printf("trainlog %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliFlags is the hand-rolled flag set shared by the subcommands.
type cliFlags struct {
	configPath string
	provider   string
	model      string
	dbPath     string
	date       string
	samples    string
	lookahead  int
	save       bool
	asJSON     bool
	verbose    bool
	paths      []string
}

func parseFlags(args []string) (cliFlags, error) {
	var f cliFlags
	for i := 0; i < len(args); i++ {
		arg := args[i]
		next := func() (string, error) {
			i++
			if i >= len(args) {
				return "", fmt.Errorf("flag %s needs a value", arg)
			}
			return args[i], nil
		}
		var err error
		switch {
		case arg == "--config":
			f.configPath, err = next()
		case arg == "--provider":
			f.provider, err = next()
		case arg == "--model":
			f.model, err = next()
		case arg == "--db":
			f.dbPath, err = next()
		case arg == "--date":
			f.date, err = next()
		case arg == "--samples":
			f.samples, err = next()
		case arg == "--lookahead":
			var v string
			if v, err = next(); err == nil {
				f.lookahead, err = strconv.Atoi(v)
			}
		case arg == "--save":
			f.save = true
		case arg == "--json":
			f.asJSON = true
		case arg == "--verbose":
			f.verbose = true
		case strings.HasPrefix(arg, "-"):
			return f, fmt.Errorf("unknown flag: %s", arg)
		default:
			f.paths = append(f.paths, arg)
		}
		if err != nil {
			return f, err
		}
	}
	return f, nil
}

func (f cliFlags) resolve() (config.ResolvedConfig, error) {
	return config.Resolve(config.ResolveOptions{
		ConfigPath:  f.configPath,
		CLIProvider: f.provider,
		CLIModel:    f.model,
		CLIDBPath:   f.dbPath,
	})
}

func (f cliFlags) logger() *zap.Logger {
	if f.verbose {
		if l, err := zap.NewDevelopment(); err == nil {
			return l
		}
	}
	return zap.NewNop()
}

func (f cliFlags) extractor(cfg config.ResolvedConfig) *facts.Extractor {
	lookahead := f.lookahead
	if lookahead == 0 {
		lookahead = cfg.FactsLookaheadChars()
	}
	if lookahead > 0 {
		return facts.NewExtractor(facts.WithLookahead(lookahead))
	}
	return facts.NewExtractor()
}

// readInput reads the first positional path, or stdin when none is given.
func readInput(paths []string) (string, error) {
	if len(paths) > 0 {
		b, err := os.ReadFile(paths[0])
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", paths[0], err)
		}
		return string(b), nil
	}
	b, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", fmt.Errorf("reading stdin: %w", err)
	}
	return string(b), nil
}

func runParse(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := f.resolve()
	if err != nil {
		return err
	}
	text, err := readInput(f.paths)
	if err != nil {
		return err
	}

	ref := time.Now()
	if f.date != "" {
		ref, err = time.Parse("2006-01-02", f.date)
		if err != nil {
			return fmt.Errorf("--date must be YYYY-MM-DD")
		}
	}

	provider, err := llm.NewProvider(cfg.LLMConfig())
	if err != nil {
		return err
	}
	p := parser.New(provider,
		parser.WithLogger(f.logger()),
		parser.WithFactsExtractor(f.extractor(cfg)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.TimeoutSeconds())*time.Second)
	defer cancel()

	result, err := p.Parse(ctx, text, ref)
	if err != nil {
		return fmt.Errorf("%s", llm.UserMessage(err))
	}

	if f.save {
		st, err := store.Open(cfg.DBPath.Value)
		if err != nil {
			return err
		}
		defer st.Close()
		clean := result.CleanSessions()
		importID, err := st.RecordImport(ctx, store.ImportRecord{
			Source:           "cli",
			SessionsInserted: len(clean),
			PersonalBests:    len(result.PersonalBests),
			Injuries:         len(result.Injuries),
		})
		if err != nil {
			return err
		}
		ids, err := st.SaveSessions(ctx, clean, importID)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "Saved %d of %d sessions (import %s)\n", len(ids), len(result.Sessions), importID)
		if skipped := len(result.Sessions) - len(ids); skipped > 0 {
			fmt.Fprintf(os.Stderr, "Skipped %d session(s) with validation errors; fix and re-run.\n", skipped)
		}
	}

	if f.asJSON {
		return printJSON(result)
	}
	printResult(result)
	return nil
}

func runFacts(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := f.resolve()
	if err != nil {
		return err
	}
	text, err := readInput(f.paths)
	if err != nil {
		return err
	}

	got := f.extractor(cfg).Extract(text)
	if f.asJSON {
		return printJSON(got)
	}
	for _, pb := range got.PersonalBests {
		switch pb.Kind {
		case "race":
			marker := ""
			if pb.Implicit {
				marker = " (implicit)"
			}
			fmt.Printf("PB  race      %.0fm in %.2fs%s\n", pb.DistanceM, pb.TimeS, marker)
		case "strength":
			fmt.Printf("PB  strength  %s (%s) %.1fkg\n", pb.Exercise, pb.Category, pb.WeightKg)
		}
	}
	for _, inj := range got.Injuries {
		part := inj.BodyPart
		if part == "" {
			part = "unspecified"
		}
		fmt.Printf("INJ %-10s %s (%s)\n", inj.Type, part, inj.Severity)
	}
	if len(got.PersonalBests) == 0 && len(got.Injuries) == 0 {
		fmt.Println("No personal bests or injuries detected.")
	}
	return nil
}

func runHarness(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := f.resolve()
	if err != nil {
		return err
	}

	samples := harness.BuiltinSamples()
	if f.samples != "" {
		samples, err = harness.LoadSamples(f.samples)
		if err != nil {
			return err
		}
	}

	summary := harness.Run(f.extractor(cfg), samples)
	fmt.Print(summary.Format())
	if summary.Passed != summary.Total {
		return fmt.Errorf("%d samples failed", summary.Total-summary.Passed)
	}
	return nil
}

func runServe(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := f.resolve()
	if err != nil {
		return err
	}

	logger, err := zap.NewProduction()
	if err != nil {
		return err
	}
	defer logger.Sync()

	provider, err := llm.NewProvider(cfg.LLMConfig())
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath.Value)
	if err != nil {
		return err
	}
	defer st.Close()

	extractor := f.extractor(cfg)
	p := parser.New(provider,
		parser.WithLogger(logger),
		parser.WithFactsExtractor(extractor))

	srv := server.New(p, extractor, st, cfg.ServerAPIKey.Value, logger)
	addr := cfg.ServerAddr()
	logger.Info("listening", zap.String("addr", addr), zap.String("provider", provider.Name()))
	return http.ListenAndServe(addr, srv)
}

func runMCP(args []string) error {
	f, err := parseFlags(args)
	if err != nil {
		return err
	}
	cfg, err := f.resolve()
	if err != nil {
		return err
	}

	provider, err := llm.NewProvider(cfg.LLMConfig())
	if err != nil {
		return err
	}
	st, err := store.Open(cfg.DBPath.Value)
	if err != nil {
		return err
	}
	defer st.Close()

	extractor := f.extractor(cfg)
	s := mcp.NewServer(mcp.ServerConfig{
		Parser:    parser.New(provider, parser.WithFactsExtractor(extractor)),
		Extractor: extractor,
		Store:     st,
		Version:   version,
	})
	return mcpserver.ServeStdio(s)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(result *parser.Result) {
	reports := map[int][]string{}
	for _, r := range result.Reports {
		reports[r.Index] = r.Errors
	}

	for i, s := range result.Sessions {
		fmt.Printf("%s  %s [%s]\n", s.Session.Date, s.Session.Title, s.Session.Type)
		for _, g := range s.Groups {
			fmt.Printf("  %s\n", g.Name)
			for _, set := range g.Sets {
				fmt.Printf("    %dx%d %s%s\n", set.Sets, set.Reps, set.ExerciseName,
					setDetails(set.WeightKg, set.DistanceM, set.TimeS, set.RecoveryS))
			}
		}
		for _, e := range reports[i] {
			fmt.Printf("  ! %s\n", e)
		}
	}
	for _, pb := range result.PersonalBests {
		if pb.Kind == "race" {
			fmt.Printf("PB: %.0fm in %.2fs\n", pb.DistanceM, pb.TimeS)
		} else {
			fmt.Printf("PB: %s %.1fkg\n", pb.Exercise, pb.WeightKg)
		}
	}
	for _, inj := range result.Injuries {
		fmt.Printf("Injury: %s %s (%s)\n", inj.Type, inj.BodyPart, inj.Severity)
	}
}

func setDetails(weight, distance, timeS *float64, recovery *int) string {
	var parts []string
	if distance != nil {
		parts = append(parts, fmt.Sprintf("%.0fm", *distance))
	}
	if weight != nil {
		parts = append(parts, fmt.Sprintf("%.1fkg", *weight))
	}
	if timeS != nil {
		parts = append(parts, fmt.Sprintf("%.2fs", *timeS))
	}
	if recovery != nil {
		parts = append(parts, fmt.Sprintf("rec %ds", *recovery))
	}
	if len(parts) == 0 {
		return ""
	}
	return " (" + strings.Join(parts, ", ") + ")"
}

func printUsage() {
	fmt.Printf(`trainlog %s - training-log ingestion pipeline

Usage:
  trainlog <command> [arguments]

Commands:
  parse [file]       Parse a training log (stdin when no file) into sessions
  facts [file]       Run the heuristic PB/injury detector only
  harness            Run the extractor regression harness
  serve              Start the HTTP API server
  mcp                Start the MCP server on stdio
  version            Print version

Flags:
  --config <path>    Config file (default ~/.trainlog/config.yaml)
  --provider <name>  Oracle provider: google, openrouter, ollama
  --model <name>     Oracle model override
  --db <path>        Database path
  --date YYYY-MM-DD  Reference date for weekday resolution (parse)
  --save             Persist parsed sessions (parse)
  --json             JSON output
  --samples <path>   Harness samples YAML (harness)
  --lookahead <n>    Repetition-marker lookahead chars (facts)
  --verbose          Debug logging
`, version)
}
