// Package mcp provides a Model Context Protocol server for galign.
//
// It exposes alignment computation and stored runs as MCP tools, and the most
// recent runs as an MCP resource. Transport is stdio.
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
	"github.com/julianne-789/tech-ga-analytics/internal/ingest"
	"github.com/julianne-789/tech-ga-analytics/internal/store"
)

// ServerConfig holds configuration for the MCP server.
type ServerConfig struct {
	Store   store.Store
	Version string // version string for MCP server info
	Fields  alignment.Fields
	Logger  *zap.Logger
}

// dbMu serializes MCP handlers that touch the database.
// mcp-go dispatches handlers concurrently and SQLite has a single writer.
var dbMu sync.Mutex

// NewServer creates a configured MCP server with all galign tools and resources.
func NewServer(cfg ServerConfig) *server.MCPServer {
	ver := cfg.Version
	if ver == "" {
		ver = "dev"
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	cfg.Fields = cfg.Fields.WithDefaults()

	s := server.NewMCPServer(
		"galign",
		ver,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(true, false),
	)

	registerComputeTool(s, cfg)
	registerPairTool(s, cfg)
	registerRunsTool(s, cfg)
	registerRecentResource(s, cfg)

	return s
}

// ServeStdio runs the server over stdin/stdout until the client disconnects.
func ServeStdio(cfg ServerConfig) error {
	return server.ServeStdio(NewServer(cfg))
}

// --- Tools ---

// computeSummary is the galign_compute payload. The hover text is omitted;
// agents get the numbers directly.
type computeSummary struct {
	RunID       int64             `json:"run_id,omitempty"`
	Path        string            `json:"path"`
	RowsRead    int               `json:"rows_read"`
	RowsKept    int               `json:"rows_kept"`
	Resolutions int               `json:"resolutions"`
	Notice      string            `json:"notice,omitempty"`
	Result      *alignment.Result `json:"result"`
}

func registerComputeTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("galign_compute",
		mcp.WithDescription("Compute the pairwise voting alignment matrix for a vote file (CSV, TSV, JSON or YAML). Returns match/coverage counts and match percentages indexed [x][y] over the sorted entity list."),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to the vote file"),
		),
		mcp.WithString("entities",
			mcp.Description("Comma-separated entities to keep (default: all)"),
		),
		mcp.WithString("resolutions",
			mcp.Description("Comma-separated resolutions to keep (default: all)"),
		),
		mcp.WithBoolean("save",
			mcp.Description("Persist the run in the store (default: true)"),
		),
	)

	engine := ingest.NewEngine()

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		path, err := req.RequireString("path")
		if err != nil || strings.TrimSpace(path) == "" {
			return mcp.NewToolResultError("path is required"), nil
		}

		loaded, err := engine.Load(ctx, path, ingest.LoadOptions{})
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("loading %s: %v", path, err)), nil
		}

		var filter alignment.Filter
		if v, err := req.RequireString("entities"); err == nil {
			filter.Entities = splitList(v)
		}
		if v, err := req.RequireString("resolutions"); err == nil {
			filter.Resolutions = splitList(v)
		}

		rows := alignment.FilterRows(loaded.Rows, cfg.Fields, filter)
		a := alignment.Analyze(rows, cfg.Fields)
		out := computeSummary{
			Path:        path,
			RowsRead:    a.RowsRead,
			RowsKept:    a.RowsKept,
			Resolutions: a.Resolutions,
			Result:      a.Result,
		}
		switch err := a.Check(); {
		case errors.Is(err, alignment.ErrNoUsableData):
			return mcp.NewToolResultError(err.Error()), nil
		case err != nil:
			out.Notice = err.Error()
		}

		if req.GetBool("save", true) && cfg.Store != nil {
			id, err := cfg.Store.SaveRun(ctx, store.NewRun(path, cfg.Fields, a))
			if err != nil {
				cfg.Logger.Error("saving run", zap.String("path", path), zap.Error(err))
				return mcp.NewToolResultError(fmt.Sprintf("saving run: %v", err)), nil
			}
			out.RunID = id
		}

		cfg.Logger.Info("galign_compute",
			zap.String("path", path),
			zap.Int("entities", a.Result.Len()),
			zap.Int64("run_id", out.RunID),
		)
		return jsonResult(out)
	})
}

func registerPairTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("galign_pair",
		mcp.WithDescription("Look up one ordered pair in a stored run: the share of X's Y/N votes that Y matched, with supporting counts."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("run_id",
			mcp.Required(),
			mcp.Description("Run ID returned by galign_compute or galign_runs"),
		),
		mcp.WithString("x",
			mcp.Required(),
			mcp.Description("Entity whose substantive votes form the denominator"),
		),
		mcp.WithString("y",
			mcp.Required(),
			mcp.Description("Entity compared against X"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		if cfg.Store == nil {
			return mcp.NewToolResultError("run store is not configured"), nil
		}
		runID, err := req.RequireFloat("run_id")
		if err != nil {
			return mcp.NewToolResultError("run_id is required"), nil
		}
		x, err := req.RequireString("x")
		if err != nil {
			return mcp.NewToolResultError("x is required"), nil
		}
		y, err := req.RequireString("y")
		if err != nil {
			return mcp.NewToolResultError("y is required"), nil
		}

		run, err := cfg.Store.GetRun(ctx, int64(runID))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("getting run: %v", err)), nil
		}
		if run == nil {
			return mcp.NewToolResultError(fmt.Sprintf("run %d not found", int64(runID))), nil
		}
		cell, ok := run.Result.Pair(strings.TrimSpace(x), strings.TrimSpace(y))
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("entity %q or %q not in run %d", x, y, run.ID)), nil
		}
		return jsonResult(cell)
	})
}

func registerRunsTool(s *server.MCPServer, cfg ServerConfig) {
	tool := mcp.NewTool("galign_runs",
		mcp.WithDescription("List stored alignment runs, newest first."),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of runs (default: 20, max: 100)"),
		),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		if cfg.Store == nil {
			return mcp.NewToolResultError("run store is not configured"), nil
		}
		limit := 20
		if l, err := req.RequireFloat("limit"); err == nil && l > 0 {
			limit = int(l)
			if limit > 100 {
				limit = 100
			}
		}

		runs, err := listRuns(ctx, cfg.Store, limit)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]interface{}{"runs": runs, "count": len(runs)})
	})
}

// --- Resources ---

func registerRecentResource(s *server.MCPServer, cfg ServerConfig) {
	resource := mcp.NewResource(
		"galign://runs/recent",
		"Recent Runs",
		mcp.WithResourceDescription("The 10 most recently stored alignment runs."),
		mcp.WithMIMEType("application/json"),
	)

	s.AddResource(resource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		dbMu.Lock()
		defer dbMu.Unlock()

		if cfg.Store == nil {
			return nil, fmt.Errorf("run store is not configured")
		}
		runs, err := listRuns(ctx, cfg.Store, 10)
		if err != nil {
			return nil, err
		}
		data, _ := json.MarshalIndent(runs, "", "  ")
		return []mcp.ResourceContents{
			mcp.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		}, nil
	})
}

type runInfo struct {
	ID          int64    `json:"id"`
	SourceFile  string   `json:"source_file"`
	RowsKept    int      `json:"rows_kept"`
	Resolutions int      `json:"resolutions"`
	Entities    []string `json:"entities"`
	CreatedAt   string   `json:"created_at"`
}

func listRuns(ctx context.Context, st store.Store, limit int) ([]runInfo, error) {
	runs, err := st.ListRuns(ctx, store.ListOpts{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	out := make([]runInfo, 0, len(runs))
	for _, r := range runs {
		out = append(out, runInfo{
			ID:          r.ID,
			SourceFile:  r.SourceFile,
			RowsKept:    r.RowsKept,
			Resolutions: r.Resolutions,
			Entities:    r.Entities,
			CreatedAt:   r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return out, nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
