package main

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/knowledgebase/vectorhub/pkg/embedclient"
	"github.com/knowledgebase/vectorhub/pkg/vectorclient"
)

var errMissingColumn = errors.New("csv header is missing a required column")

// ingestStats summarizes one ingest run.
type ingestStats struct {
	Rows    int      `json:"rows"`
	Indexed int      `json:"indexed"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors,omitempty"`
}

type ingestOptions struct {
	file        string
	kb          string
	contentType string
	delay       time.Duration
	dryRun      bool
}

func newIngestCommand(opts *globalOptions) *cobra.Command {
	in := ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Index every row of a CSV file",
		Long: `Index every row of a CSV file with the columns id, text and optionally title,
knowledge_base_id and content_type. Rows with an empty id or text are skipped.
A failing row is reported and ingestion continues.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(in.file)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()

			stats, err := ingestCSV(cmd.Context(), f, opts.embedClient(), opts.vectorClient(), in)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), stats)
		},
	}

	cmd.Flags().StringVar(&in.file, "file", "", "CSV file to ingest")
	cmd.Flags().StringVar(&in.kb, "kb", "", "knowledge_base_id for rows without one")
	cmd.Flags().StringVar(&in.contentType, "content-type", "text", "content type for rows without one")
	cmd.Flags().DurationVar(&in.delay, "delay", 0, "pause between rows")
	cmd.Flags().BoolVar(&in.dryRun, "dry-run", false, "parse rows without calling the services")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func ingestCSV(
	ctx context.Context, r io.Reader, embed *embedclient.Client, vectors *vectorclient.Client, opts ingestOptions,
) (*ingestStats, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	for _, required := range []string{"id", "text"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%w: %s", errMissingColumn, required)
		}
	}

	field := func(record []string, name, fallback string) string {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return fallback
		}

		if v := strings.TrimSpace(record[i]); v != "" {
			return v
		}

		return fallback
	}

	stats := &ingestStats{}

	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return stats, fmt.Errorf("read csv row %d: %w", stats.Rows+1, err)
		}

		stats.Rows++

		item := indexInput{
			id:          field(record, "id", ""),
			text:        field(record, "text", ""),
			title:       field(record, "title", ""),
			kb:          field(record, "knowledge_base_id", opts.kb),
			contentType: field(record, "content_type", opts.contentType),
		}

		if item.id == "" || item.text == "" {
			stats.Skipped++

			continue
		}

		if opts.dryRun {
			stats.Indexed++

			continue
		}

		if _, err := indexItem(ctx, embed, vectors, item); err != nil {
			stats.Failed++
			stats.Errors = append(stats.Errors, err.Error())

			continue
		}

		stats.Indexed++

		if opts.delay > 0 {
			select {
			case <-ctx.Done():
				return stats, fmt.Errorf("ingest interrupted: %w", ctx.Err())
			case <-time.After(opts.delay):
			}
		}
	}

	return stats, nil
}
