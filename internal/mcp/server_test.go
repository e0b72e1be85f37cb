package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
	"github.com/julianne-789/tech-ga-analytics/internal/store"
)

const sampleCSV = `resolution,ms_name,ms_vote
R1,A,Y
R1,B,Y
R1,C,N
R2,A,N
R2,B,Y
`

func setupTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewStore(store.StoreConfig{DBPath: ":memory:"})
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func writeVotes(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "votes.csv")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing votes: %v", err)
	}
	return path
}

// callTool invokes an MCP tool through the JSON-RPC entry point.
func callTool(t *testing.T, srv *server.MCPServer, name string, args map[string]interface{}) *mcplib.CallToolResult {
	t.Helper()

	result := srv.HandleMessage(context.Background(), mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]interface{}{
			"name":      name,
			"arguments": args,
		},
	}))

	respBytes, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}

	var resp struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBytes, &resp); err != nil {
		t.Fatalf("unmarshal response: %v\nraw: %s", err, string(respBytes))
	}
	if resp.Error != nil {
		t.Fatalf("JSON-RPC error: %d %s", resp.Error.Code, resp.Error.Message)
	}

	callResult := &mcplib.CallToolResult{IsError: resp.Result.IsError}
	for _, c := range resp.Result.Content {
		if c.Type == "text" {
			callResult.Content = append(callResult.Content, mcplib.NewTextContent(c.Text))
		}
	}
	return callResult
}

func mustMarshal(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func getTextContent(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no text content found")
	return ""
}

func TestNewServer(t *testing.T) {
	srv := NewServer(ServerConfig{Store: setupTestStore(t)})
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
}

func TestComputeTool(t *testing.T) {
	st := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: st})
	path := writeVotes(t, sampleCSV)

	result := callTool(t, srv, "galign_compute", map[string]interface{}{"path": path})
	if result.IsError {
		t.Fatalf("compute returned error: %s", getTextContent(t, result))
	}

	var out struct {
		RunID    int64            `json:"run_id"`
		RowsKept int              `json:"rows_kept"`
		Result   alignment.Result `json:"result"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &out); err != nil {
		t.Fatalf("decoding compute output: %v", err)
	}
	if out.RunID == 0 {
		t.Error("expected run to be saved by default")
	}
	if out.RowsKept != 5 {
		t.Errorf("rows_kept = %d", out.RowsKept)
	}
	if strings.Join(out.Result.Entities, ",") != "A,B,C" {
		t.Fatalf("entities = %v", out.Result.Entities)
	}
	if out.Result.MatchPercent[0][1] != 50 {
		t.Errorf("MatchPercent[A][B] = %v, want 50", out.Result.MatchPercent[0][1])
	}

	stats, err := st.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.RunCount != 1 {
		t.Errorf("RunCount = %d", stats.RunCount)
	}
}

func TestComputeTool_FilterAndNoSave(t *testing.T) {
	st := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: st})
	path := writeVotes(t, sampleCSV)

	result := callTool(t, srv, "galign_compute", map[string]interface{}{
		"path":        path,
		"entities":    "A, B",
		"resolutions": "R1",
		"save":        false,
	})
	if result.IsError {
		t.Fatalf("compute returned error: %s", getTextContent(t, result))
	}
	var out struct {
		RunID  int64            `json:"run_id"`
		Result alignment.Result `json:"result"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &out); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if out.RunID != 0 {
		t.Error("save=false should not persist")
	}
	if strings.Join(out.Result.Entities, ",") != "A,B" || out.Result.MatchPercent[0][1] != 100 {
		t.Errorf("unexpected filtered result: %+v", out.Result)
	}
}

func TestComputeTool_Errors(t *testing.T) {
	srv := NewServer(ServerConfig{Store: setupTestStore(t)})

	result := callTool(t, srv, "galign_compute", map[string]interface{}{"path": filepath.Join(t.TempDir(), "missing.csv")})
	if !result.IsError {
		t.Error("expected error for missing file")
	}

	empty := writeVotes(t, "resolution,ms_name,ms_vote\n,A,Y\n")
	result = callTool(t, srv, "galign_compute", map[string]interface{}{"path": empty})
	if !result.IsError || !strings.Contains(getTextContent(t, result), "no usable vote data") {
		t.Errorf("expected no-usable-data error, got %+v", result)
	}

	solo := writeVotes(t, "resolution,ms_name,ms_vote\nR1,Solo,Y\n")
	result = callTool(t, srv, "galign_compute", map[string]interface{}{"path": solo, "save": false})
	if result.IsError || !strings.Contains(getTextContent(t, result), "nothing to compare") {
		t.Errorf("expected notice for single entity, got %s", getTextContent(t, result))
	}
}

func TestPairTool(t *testing.T) {
	st := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: st})

	rows := []alignment.Row{
		{"resolution": "R1", "ms_name": "A", "ms_vote": "Y"},
		{"resolution": "R1", "ms_name": "B", "ms_vote": "Y"},
		{"resolution": "R2", "ms_name": "A", "ms_vote": "N"},
		{"resolution": "R2", "ms_name": "B", "ms_vote": "Y"},
	}
	a := alignment.Analyze(rows, alignment.DefaultFields())
	id, err := st.SaveRun(context.Background(), store.NewRun("votes.csv", alignment.DefaultFields(), a))
	if err != nil {
		t.Fatalf("SaveRun: %v", err)
	}

	result := callTool(t, srv, "galign_pair", map[string]interface{}{"run_id": id, "x": "A", "y": "B"})
	if result.IsError {
		t.Fatalf("pair returned error: %s", getTextContent(t, result))
	}
	var cell alignment.Cell
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &cell); err != nil {
		t.Fatalf("decoding cell: %v", err)
	}
	if cell.X != "A" || cell.Y != "B" || cell.Percent != 50 || cell.Matched != 1 || cell.XTotal != 2 || cell.YCoverage != 2 {
		t.Errorf("unexpected cell: %+v", cell)
	}

	result = callTool(t, srv, "galign_pair", map[string]interface{}{"run_id": id, "x": "A", "y": "Z"})
	if !result.IsError {
		t.Error("expected error for unknown entity")
	}
	result = callTool(t, srv, "galign_pair", map[string]interface{}{"run_id": 999, "x": "A", "y": "B"})
	if !result.IsError {
		t.Error("expected error for unknown run")
	}
}

func TestRunsToolAndResource(t *testing.T) {
	st := setupTestStore(t)
	srv := NewServer(ServerConfig{Store: st})
	path := writeVotes(t, sampleCSV)

	for i := 0; i < 3; i++ {
		if r := callTool(t, srv, "galign_compute", map[string]interface{}{"path": path}); r.IsError {
			t.Fatalf("compute: %s", getTextContent(t, r))
		}
	}

	result := callTool(t, srv, "galign_runs", map[string]interface{}{"limit": 2})
	if result.IsError {
		t.Fatalf("runs returned error: %s", getTextContent(t, result))
	}
	var out struct {
		Runs  []runInfo `json:"runs"`
		Count int       `json:"count"`
	}
	if err := json.Unmarshal([]byte(getTextContent(t, result)), &out); err != nil {
		t.Fatalf("decoding runs: %v", err)
	}
	if out.Count != 2 || out.Runs[0].ID <= out.Runs[1].ID {
		t.Errorf("unexpected runs: %+v", out)
	}

	resp := srv.HandleMessage(context.Background(), mustMarshal(t, map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      2,
		"method":  "resources/read",
		"params":  map[string]interface{}{"uri": "galign://runs/recent"},
	}))
	raw, _ := json.Marshal(resp)
	var rr struct {
		Result struct {
			Contents []struct {
				URI  string `json:"uri"`
				Text string `json:"text"`
			} `json:"contents"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &rr); err != nil {
		t.Fatalf("decoding resource response: %v", err)
	}
	if len(rr.Result.Contents) != 1 {
		t.Fatalf("expected one content block, got %s", raw)
	}
	var recent []runInfo
	if err := json.Unmarshal([]byte(rr.Result.Contents[0].Text), &recent); err != nil {
		t.Fatalf("decoding recent runs: %v", err)
	}
	if len(recent) != 3 {
		t.Errorf("expected 3 recent runs, got %d", len(recent))
	}
}
