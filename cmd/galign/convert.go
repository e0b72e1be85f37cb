package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/julianne-789/tech-ga-analytics/internal/alignment"
	"github.com/julianne-789/tech-ga-analytics/internal/ingest"
)

// runConvert rewrites any supported vote file as a JSON array of records.
func runConvert(args []string) error {
	var paths []string
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			return fmt.Errorf("unknown flag: %s", arg)
		}
		paths = append(paths, arg)
	}
	if len(paths) != 2 {
		return fmt.Errorf("usage: galign convert <in> <out.json>")
	}

	loaded, err := ingest.NewEngine().Load(context.Background(), paths[0], ingest.LoadOptions{})
	if err != nil {
		return err
	}
	if err := writeOutput(paths[1], func(w io.Writer) error {
		return ingest.WriteJSON(w, loaded.Rows)
	}); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Converted %d rows\n", len(loaded.Rows))
	return nil
}

// runFilter exports the rows matching the entity and resolution selection.
func runFilter(args []string) error {
	var (
		path    string
		out     string
		columns []string
		filter  alignment.Filter
	)
	for i := 0; i < len(args); i++ {
		if v, ok := takeValue(args, &i, "--entities"); ok {
			filter.Entities = splitList(v)
			continue
		}
		if v, ok := takeValue(args, &i, "--resolutions"); ok {
			filter.Resolutions = splitList(v)
			continue
		}
		if v, ok := takeValue(args, &i, "--columns"); ok {
			columns = splitList(v)
			continue
		}
		if v, ok := takeValue(args, &i, "--out"); ok {
			out = v
			continue
		}
		switch {
		case strings.HasPrefix(args[i], "-"):
			return fmt.Errorf("unknown flag: %s", args[i])
		case path == "":
			path = args[i]
		default:
			return fmt.Errorf("unexpected argument: %s", args[i])
		}
	}
	if path == "" {
		return fmt.Errorf("usage: galign filter <file> --entities A,B --resolutions R1,R2 [--columns c1,c2] [--out path]")
	}
	if filter.IsZero() {
		return fmt.Errorf("select at least one entity or resolution")
	}

	cfg, err := resolveConfig("")
	if err != nil {
		return err
	}
	fields := cfg.Fields()

	loaded, err := ingest.NewEngine().Load(context.Background(), path, ingest.LoadOptions{})
	if err != nil {
		return err
	}
	rows := alignment.FilterRows(loaded.Rows, fields, filter)

	if columns == nil && fields == alignment.DefaultFields() {
		columns = ingest.SelectionHeaders
	}
	if err := writeOutput(out, func(w io.Writer) error {
		return ingest.WriteCSV(w, rows, columns)
	}); err != nil {
		return err
	}
	if out != "" {
		fmt.Fprintf(stdout, "Selected %d of %d rows\n", len(rows), len(loaded.Rows))
	}
	return nil
}
