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
	"time"

	"github.com/spf13/cobra"

	"github.com/knowledgebase/vectorhub/pkg/embedclient"
	"github.com/knowledgebase/vectorhub/pkg/vectorclient"
)

const (
	envEmbeddingURL     = "KBCTL_EMBEDDING_URL"
	envVectorURL        = "KBCTL_VECTOR_URL"
	defaultEmbeddingURL = "http://localhost:8002"
	defaultVectorURL    = "http://localhost:8003"
)

var errVectorRequired = errors.New("one of --vector or --vector-file is required")

// globalOptions are the persistent flags shared by every subcommand.
type globalOptions struct {
	embeddingURL string
	vectorURL    string
	timeout      time.Duration
	retries      int
}

func (o *globalOptions) embedClient() *embedclient.Client {
	return embedclient.NewClientWithOptions(embedclient.Options{
		BaseURL: o.embeddingURL, Timeout: o.timeout, RetryMax: o.retries,
	})
}

func (o *globalOptions) vectorClient() *vectorclient.Client {
	return vectorclient.NewClientWithOptions(vectorclient.Options{
		BaseURL: o.vectorURL, Timeout: o.timeout, RetryMax: o.retries,
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "kbctl",
		Short: "Command line client for the embedding and vector services",
		Long: `kbctl embeds text, stores vectors and searches the knowledge base.

Examples:
  kbctl embed "How do I cancel a booking?"
  kbctl index --id faq-12 --kb 8d0c... --title "Cancellation" --text "Bookings can be cancelled up to 24h before class."
  kbctl search "cancel booking" --kb 8d0c... --limit 3
  kbctl delete faq-12`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.embeddingURL, "embedding-url", envOr(envEmbeddingURL, defaultEmbeddingURL), "embedding service base URL")
	flags.StringVar(&opts.vectorURL, "vector-url", envOr(envVectorURL, defaultVectorURL), "vector service base URL")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout")
	flags.IntVar(&opts.retries, "retries", 0, "retries on connection errors and 5xx answers")

	root.AddCommand(
		newEmbedCommand(opts),
		newSearchCommand(opts),
		newStoreCommand(opts),
		newIndexCommand(opts),
		newIngestCommand(opts),
		newDeleteCommand(opts),
		newHealthCommand(opts),
	)

	return root
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}

	return nil
}

func newEmbedCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "embed <text>",
		Short: "Embed text with the embedding service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.embedClient().Embed(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func newSearchCommand(opts *globalOptions) *cobra.Command {
	var (
		limit int
		kb    string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.vectorClient().Search(cmd.Context(), vectorclient.SearchRequest{
				Query: args[0], Limit: limit, KnowledgeBaseID: kb,
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (server default when 0)")
	cmd.Flags().StringVar(&kb, "kb", "", "restrict results to this knowledge_base_id")

	return cmd
}

func newStoreCommand(opts *globalOptions) *cobra.Command {
	var (
		id         string
		vectorCSV  string
		vectorFile string
		payload    string
	)

	cmd := &cobra.Command{
		Use:   "store",
		Short: "Store a precomputed vector",
		RunE: func(cmd *cobra.Command, _ []string) error {
			vec, err := readVector(vectorCSV, vectorFile)
			if err != nil {
				return err
			}

			body, err := parsePayload(payload)
			if err != nil {
				return err
			}

			resp, err := opts.vectorClient().Store(cmd.Context(), vectorclient.StoreRequest{ID: id, Vector: vec, Payload: body})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "point id")
	cmd.Flags().StringVar(&vectorCSV, "vector", "", "comma separated vector values")
	cmd.Flags().StringVar(&vectorFile, "vector-file", "", "file holding a JSON array of vector values")
	cmd.Flags().StringVar(&payload, "payload", "", "JSON object stored with the vector")
	_ = cmd.MarkFlagRequired("id")
	cmd.MarkFlagsMutuallyExclusive("vector", "vector-file")

	return cmd
}

func newIndexCommand(opts *globalOptions) *cobra.Command {
	var (
		id          string
		text        string
		kb          string
		title       string
		contentType string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Embed text and store it in one step",
		RunE: func(cmd *cobra.Command, _ []string) error {
			resp, err := indexItem(cmd.Context(), opts.embedClient(), opts.vectorClient(), indexInput{
				id: id, text: text, kb: kb, title: title, contentType: contentType,
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "item id, also used as point id")
	cmd.Flags().StringVar(&text, "text", "", "text to embed")
	cmd.Flags().StringVar(&kb, "kb", "", "knowledge_base_id stored in the payload")
	cmd.Flags().StringVar(&title, "title", "", "title stored in the payload")
	cmd.Flags().StringVar(&contentType, "content-type", "text", "content type stored in the payload")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("text")

	return cmd
}

type indexInput struct {
	id, text, kb, title, contentType string
}

// indexItem is the ingestion path: embed the item text, then store it with the item metadata.
// The item id doubles as the point id so re-indexing an item replaces it.
func indexItem(ctx context.Context, embed *embedclient.Client, vectors *vectorclient.Client, in indexInput) (*vectorclient.StatusResponse, error) {
	embedded, err := embed.Embed(ctx, in.text)
	if err != nil {
		return nil, fmt.Errorf("embed %s: %w", in.id, err)
	}

	payload := map[string]any{
		"item_id":      in.id,
		"title":        in.title,
		"content_type": in.contentType,
	}
	if in.kb != "" {
		payload["knowledge_base_id"] = in.kb
	}

	resp, err := vectors.Store(ctx, vectorclient.StoreRequest{
		ID: in.id, Vector: embedded.Embedding, Payload: payload,
	})
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", in.id, err)
	}

	return resp, nil
}

func newDeleteCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a point by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := opts.vectorClient().Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), resp)
		},
	}
}

func newHealthCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show the health of both services",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := map[string]any{}

			if h, err := opts.embedClient().Health(cmd.Context()); err != nil {
				out["embedding"] = map[string]string{"status": "unreachable", "error": err.Error()}
			} else {
				out["embedding"] = h
			}

			if h, err := opts.vectorClient().Health(cmd.Context()); err != nil {
				out["vector"] = map[string]string{"status": "unreachable", "error": err.Error()}
			} else {
				out["vector"] = h
			}

			return printJSON(cmd.OutOrStdout(), out)
		},
	}
}

func readVector(csv, file string) ([]float32, error) {
	switch {
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read vector file: %w", err)
		}

		var vec []float32
		if err := json.Unmarshal(data, &vec); err != nil {
			return nil, fmt.Errorf("parse vector file: %w", err)
		}

		return vec, nil
	case csv != "":
		parts := strings.Split(csv, ",")
		vec := make([]float32, 0, len(parts))

		for _, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSpace(p), 32)
			if err != nil {
				return nil, fmt.Errorf("parse vector value %q: %w", p, err)
			}

			vec = append(vec, float32(f))
		}

		return vec, nil
	default:
		return nil, errVectorRequired
	}
}

func parsePayload(raw string) (map[string]any, error) {
	payload := map[string]any{}
	if raw == "" {
		return payload, nil
	}

	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("parse payload: %w", err)
	}

	return payload, nil
}
