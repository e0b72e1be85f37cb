package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/julianne-789/tech-ga-analytics/internal/config"
	"github.com/julianne-789/tech-ga-analytics/internal/store"
)

const version = "0.3.0"

var (
	globalDBPath     string
	globalConfigPath string
	globalVerbose    bool

	stdout io.Writer = os.Stdout
	stderr io.Writer = os.Stderr
)

func main() {
	args := parseGlobalFlags(os.Args[1:])
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	if err := run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	switch args[0] {
	case "compute":
		return runCompute(args[1:])
	case "convert":
		return runConvert(args[1:])
	case "filter":
		return runFilter(args[1:])
	case "runs":
		return runRuns(args[1:])
	case "show":
		return runShow(args[1:])
	case "serve":
		return runServe(args[1:])
	case "mcp":
		return runMCP(args[1:])
	case "config":
		return runConfig(args[1:])
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "galign %s\n", version)
		return nil
	case "help", "--help", "-h":
		printUsage()
		return nil
	}
	printUsage()
	return fmt.Errorf("unknown command: %s", args[0])
}

// parseGlobalFlags strips --db, --config and --verbose from anywhere in args.
func parseGlobalFlags(args []string) []string {
	var filtered []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--db" && i+1 < len(args):
			i++
			globalDBPath = args[i]
		case strings.HasPrefix(args[i], "--db="):
			globalDBPath = strings.TrimPrefix(args[i], "--db=")
		case args[i] == "--config" && i+1 < len(args):
			i++
			globalConfigPath = args[i]
		case strings.HasPrefix(args[i], "--config="):
			globalConfigPath = strings.TrimPrefix(args[i], "--config=")
		case args[i] == "--verbose" || args[i] == "-V":
			globalVerbose = true
		default:
			filtered = append(filtered, args[i])
		}
	}
	return filtered
}

func resolveConfig(cliAddr string) (config.ResolvedConfig, error) {
	return config.ResolveConfig(config.ResolveOptions{
		ConfigPath: globalConfigPath,
		CLIDBPath:  globalDBPath,
		CLIAddr:    cliAddr,
	})
}

func openStore(cfg config.ResolvedConfig) (store.Store, error) {
	s, err := store.NewStore(store.StoreConfig{DBPath: cfg.DBPath.Value})
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}
	return s, nil
}

func newLogger() (*zap.Logger, error) {
	if globalVerbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// runConfig prints every resolved setting with where it came from.
func runConfig(args []string) error {
	if len(args) > 0 {
		return fmt.Errorf("usage: galign config")
	}
	cfg, err := resolveConfig("")
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "config file: %s\n", cfg.ConfigPath)
	for _, kv := range []struct {
		name string
		v    config.ResolvedValue
	}{
		{"db_path", cfg.DBPath},
		{"server.addr", cfg.Addr},
		{"fields.resolution", cfg.ResolutionField},
		{"fields.entity", cfg.EntityField},
		{"fields.vote", cfg.VoteField},
	} {
		value := kv.v.Value
		if value == "" {
			value = "(default)"
		}
		fmt.Fprintf(stdout, "  %-18s %s  [%s", kv.name, value, kv.v.Source)
		if kv.v.From != "" {
			fmt.Fprintf(stdout, ": %s", kv.v.From)
		}
		fmt.Fprintln(stdout, "]")
	}
	return nil
}

func printUsage() {
	fmt.Fprintf(stdout, `galign %s: voting alignment matrices from categorical vote records

Usage:
  galign [global flags] <command> [arguments]

Commands:
  compute <file>...     Compute the pairwise alignment matrix for vote files
  convert <in> <out>    Convert a vote file (CSV, TSV, JSON, YAML) to JSON records
  filter <file>         Export the selected entities/resolutions as CSV
  runs                  List stored runs
  show <id>             Show a stored run
  serve                 Start the heatmap web server
  mcp                   Start the MCP server on stdio
  config                Show resolved configuration
  version               Print version

Compute Flags:
  --format text|json    Output format (default: text)
  --entities A,B        Keep only these entities
  --resolutions R1,R2   Keep only these resolutions
  --no-save             Do not store the run
  --out <path>          Write output to a file

Filter Flags:
  --entities A,B        Entities to keep
  --resolutions R1,R2   Resolutions to keep
  --columns c1,c2       Columns to export (default: the selection columns)
  --out <path>          Write CSV to a file (default: stdout)

Runs / Show Flags:
  --limit N             Number of runs to list (default: 20)
  --format text|json    Output format for show (default: text)

Serve Flags:
  --addr host:port      Listen address (default: %s)
  --port N              Listen on 127.0.0.1:N

Global Flags:
  --db <path>           Database path (default: %s)
  --config <path>       Config file (default: ~/.galign/config.yaml)
  -V, --verbose         Verbose logging

Environment:
  GALIGN_DB, GALIGN_ADDR, GALIGN_FIELD_RESOLUTION, GALIGN_FIELD_ENTITY, GALIGN_FIELD_VOTE
`, version, config.DefaultAddr, store.DefaultDBPath)
}
