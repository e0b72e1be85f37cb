package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
	"github.com/julianne-789/tech-ga-analytics/internal/config"
	"github.com/julianne-789/tech-ga-analytics/internal/ingest"
	"github.com/julianne-789/tech-ga-analytics/internal/store"
)

type computeOptions struct {
	paths  []string
	format string
	filter alignment.Filter
	save   bool
	out    string
}

// computeOutput is the --format json payload of compute and show.
type computeOutput struct {
	RunID       int64              `json:"run_id,omitempty"`
	Source      string             `json:"source"`
	RowsRead    int                `json:"rows_read"`
	RowsKept    int                `json:"rows_kept"`
	Resolutions int                `json:"resolutions"`
	CreatedAt   *time.Time         `json:"created_at,omitempty"`
	Result      *alignment.Result  `json:"result"`
	Heatmap     *alignment.Heatmap `json:"heatmap"`
}

func parseComputeArgs(args []string) (computeOptions, error) {
	opts := computeOptions{format: "text", save: true}
	for i := 0; i < len(args); i++ {
		if v, ok := takeValue(args, &i, "--format"); ok {
			opts.format = strings.ToLower(strings.TrimSpace(v))
			continue
		}
		if v, ok := takeValue(args, &i, "--entities"); ok {
			opts.filter.Entities = splitList(v)
			continue
		}
		if v, ok := takeValue(args, &i, "--resolutions"); ok {
			opts.filter.Resolutions = splitList(v)
			continue
		}
		if v, ok := takeValue(args, &i, "--out"); ok {
			opts.out = v
			continue
		}
		switch {
		case args[i] == "--no-save":
			opts.save = false
		case strings.HasPrefix(args[i], "-"):
			return opts, fmt.Errorf("unknown flag: %s", args[i])
		default:
			opts.paths = append(opts.paths, args[i])
		}
	}
	if len(opts.paths) == 0 {
		return opts, fmt.Errorf("usage: galign compute <file>... [--format text|json] [--entities A,B] [--resolutions R1,R2] [--no-save] [--out path]")
	}
	if opts.format != "text" && opts.format != "json" {
		return opts, fmt.Errorf("invalid --format %q (use text or json)", opts.format)
	}
	return opts, nil
}

func runCompute(args []string) error {
	opts, err := parseComputeArgs(args)
	if err != nil {
		return err
	}
	cfg, err := resolveConfig("")
	if err != nil {
		return err
	}
	fields := cfg.Fields()
	ctx := context.Background()

	loaded, err := ingest.NewEngine().LoadAll(ctx, opts.paths, ingest.LoadOptions{})
	if err != nil {
		return err
	}
	if globalVerbose {
		fmt.Fprint(stderr, ingest.FormatLoadResult(loaded))
	}
	source := strings.Join(opts.paths, ",")

	rows := alignment.FilterRows(loaded.Rows, fields, opts.filter)
	a := alignment.Analyze(rows, fields)
	switch err := a.Check(); {
	case errors.Is(err, alignment.ErrNoUsableData):
		return err
	case err != nil:
		fmt.Fprintf(stderr, "Notice: %v\n", err)
	}

	out := computeOutput{
		Source:      source,
		RowsRead:    a.RowsRead,
		RowsKept:    a.RowsKept,
		Resolutions: a.Resolutions,
		Result:      a.Result,
		Heatmap:     a.Heatmap,
	}

	if opts.save {
		id, reused, err := saveRun(ctx, cfg, store.NewRun(source, fields, a))
		if err != nil {
			return err
		}
		out.RunID = id
		if reused {
			fmt.Fprintf(stderr, "Identical batch already stored as run #%d\n", id)
		}
	}

	return writeOutput(opts.out, func(w io.Writer) error {
		if opts.format == "json" {
			return writeJSON(w, out)
		}
		printAnalysis(w, out)
		return nil
	})
}

// saveRun stores run unless the same source already produced an identical
// batch, in which case the existing run ID is returned.
func saveRun(ctx context.Context, cfg config.ResolvedConfig, run *store.Run) (int64, bool, error) {
	s, err := openStore(cfg)
	if err != nil {
		return 0, false, err
	}
	defer s.Close()

	existing, err := s.FindByHash(ctx, run.BatchHash)
	if err != nil {
		return 0, false, err
	}
	if existing != nil && existing.SourceFile == run.SourceFile && existing.Fields == run.Fields {
		return existing.ID, true, nil
	}
	id, err := s.SaveRun(ctx, run)
	if err != nil {
		return 0, false, fmt.Errorf("saving run: %w", err)
	}
	return id, false, nil
}

func runRuns(args []string) error {
	limit := 20
	for i := 0; i < len(args); i++ {
		if v, ok := takeValue(args, &i, "--limit"); ok {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 {
				return fmt.Errorf("invalid --limit %q", v)
			}
			limit = n
			continue
		}
		return fmt.Errorf("unexpected argument: %s", args[i])
	}

	cfg, err := resolveConfig("")
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(context.Background(), store.ListOpts{Limit: limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs stored.")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tENTITIES\tRESOLUTIONS\tROWS\tCREATED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d/%d\t%s\n",
			r.ID, r.SourceFile, len(r.Entities), r.Resolutions, r.RowsKept, r.RowsRead,
			r.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return tw.Flush()
}

func runShow(args []string) error {
	format := "text"
	var idArg string
	for i := 0; i < len(args); i++ {
		if v, ok := takeValue(args, &i, "--format"); ok {
			format = strings.ToLower(strings.TrimSpace(v))
			continue
		}
		switch {
		case strings.HasPrefix(args[i], "-"):
			return fmt.Errorf("unknown flag: %s", args[i])
		case idArg == "":
			idArg = args[i]
		default:
			return fmt.Errorf("unexpected argument: %s", args[i])
		}
	}
	if idArg == "" {
		return fmt.Errorf("usage: galign show <id> [--format text|json]")
	}
	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid run id %q", idArg)
	}
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid --format %q (use text or json)", format)
	}

	cfg, err := resolveConfig("")
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	run, err := s.GetRun(context.Background(), id)
	if err != nil {
		return err
	}
	if run == nil {
		return fmt.Errorf("run %d not found", id)
	}

	out := computeOutput{
		RunID:       run.ID,
		Source:      run.SourceFile,
		RowsRead:    run.RowsRead,
		RowsKept:    run.RowsKept,
		Resolutions: run.Resolutions,
		CreatedAt:   &run.CreatedAt,
		Result:      run.Result,
		Heatmap:     alignment.Assemble(run.Result),
	}
	if format == "json" {
		return writeJSON(stdout, out)
	}
	printAnalysis(stdout, out)
	return nil
}

// printAnalysis renders the match percentages with X down the side and Y
// across the top.
func printAnalysis(w io.Writer, out computeOutput) {
	res := out.Result
	fmt.Fprintf(w, "%s: %d of %d rows kept, %d resolutions, %d entities\n",
		out.Source, out.RowsKept, out.RowsRead, out.Resolutions, res.Len())
	if out.RunID > 0 {
		fmt.Fprintf(w, "Run #%d\n", out.RunID)
	}
	if res.Len() == 0 {
		return
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Percent of X's Y/N votes matched by Y (rows: X, columns: Y)")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprint(tw, "X \\ Y\t")
	for _, e := range res.Entities {
		fmt.Fprintf(tw, "%s\t", e)
	}
	fmt.Fprintln(tw, "votes\t")
	for x, ex := range res.Entities {
		fmt.Fprintf(tw, "%s\t", ex)
		for y := range res.Entities {
			if x == y {
				fmt.Fprint(tw, "-\t")
				continue
			}
			fmt.Fprintf(tw, "%.1f\t", res.MatchPercent[x][y])
		}
		fmt.Fprintf(tw, "%d\t\n", res.XTotal[x])
	}
	tw.Flush()
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeOutput runs fn against path, or stdout when path is empty.
func writeOutput(path string, fn func(io.Writer) error) error {
	if path == "" {
		return fn(stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	fmt.Fprintf(stderr, "Wrote %s\n", path)
	return nil
}

// takeValue matches "--name value" and "--name=value" at args[*i].
func takeValue(args []string, i *int, name string) (string, bool) {
	a := args[*i]
	if a == name && *i+1 < len(args) {
		*i++
		return args[*i], true
	}
	if strings.HasPrefix(a, name+"=") {
		return strings.TrimPrefix(a, name+"="), true
	}
	return "", false
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
