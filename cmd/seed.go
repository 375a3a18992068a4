package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Zchasse63/voice-fit-sub003/internal/app"
	"github.com/Zchasse63/voice-fit-sub003/internal/config"
	"github.com/Zchasse63/voice-fit-sub003/internal/log"
	"github.com/Zchasse63/voice-fit-sub003/internal/search"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load an exercise catalog into the database and search index",
	Long: `Reads a JSON exercise catalog and upserts it into the exercises table.
When Upstash Search is configured, the catalog is also indexed there so
voice parsing can match against it.

Catalog format: a JSON array of
  {"name":"bench press","category":"strength","muscleGroups":["chest"],
   "equipment":"barbell","aliases":["bench"],"embedding":[...]}
"embedding" is optional; entries without one rely on trigram matching.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runSeed(cmd.Context())
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "path to the catalog JSON file (required)")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}

// catalogEntry is one exercise in the seed file.
type catalogEntry struct {
	Name         string    `json:"name"`
	Category     string    `json:"category"`
	MuscleGroups []string  `json:"muscleGroups"`
	Equipment    string    `json:"equipment"`
	Aliases      []string  `json:"aliases"`
	Embedding    []float32 `json:"embedding"`
}

func runSeed(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	raw, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("reading catalog: %w", err)
	}
	var entries []catalogEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return fmt.Errorf("parsing catalog: %w", err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("catalog %s is empty", seedFile)
	}

	logger := log.New(log.Config{Level: slog.LevelInfo, JSON: false})
	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	var docs []search.Doc
	for _, e := range entries {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			return fmt.Errorf("catalog entry without a name")
		}
		id, err := a.Exercises.Upsert(ctx, store.Exercise{
			Name:         name,
			Category:     e.Category,
			MuscleGroups: e.MuscleGroups,
			Equipment:    e.Equipment,
			Aliases:      e.Aliases,
		}, e.Embedding)
		if err != nil {
			return fmt.Errorf("upserting %q: %w", name, err)
		}

		content := name
		if len(e.Aliases) > 0 {
			content += " (" + strings.Join(e.Aliases, ", ") + ")"
		}
		docs = append(docs, search.Doc{
			ID:       id.String(),
			Content:  content,
			Metadata: map[string]string{"name": name, "category": e.Category},
		})
	}

	// Smoke-check the vector index with the first embedded entry so a bad
	// catalog (wrong dimension, all-null vectors) fails at seed time
	// rather than on the first query.
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			continue
		}
		matches, err := a.Exercises.SearchByEmbedding(ctx, e.Embedding, 1)
		if err != nil {
			return fmt.Errorf("verifying vector index: %w", err)
		}
		if len(matches) == 0 {
			return fmt.Errorf("vector index empty after seeding %q", e.Name)
		}
		logger.Info("vector index verified", "nearest", matches[0].Name)
		break
	}

	if a.Upstash != nil {
		if err := a.Upstash.Upsert(ctx, search.NamespaceExercises, docs); err != nil {
			return fmt.Errorf("indexing catalog in Upstash: %w", err)
		}
	} else {
		logger.Warn("Upstash not configured, catalog seeded to Postgres only")
	}

	fmt.Printf("seeded %d exercises\n", len(entries))
	return nil
}
