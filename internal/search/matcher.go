package search

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/Zchasse63/voice-fit-sub003/internal/store"
)

// Match sources.
const (
	SourceUpstash  = "upstash"
	SourcePostgres = "postgres"
)

// minMatchScore is the confidence floor below which a candidate is treated
// as unmatched rather than silently attached to the wrong exercise.
const minMatchScore = 0.45

// Match is the result of resolving a free-form exercise name against the
// catalog. Unmatched names keep Matched=false and a nil ExerciseID; the
// caller preserves the raw name.
type Match struct {
	Query      string     `json:"query"`
	Matched    bool       `json:"matched"`
	ExerciseID *uuid.UUID `json:"exerciseId,omitempty"`
	Name       string     `json:"name,omitempty"`
	Score      float64    `json:"score,omitempty"`
	Source     string     `json:"source,omitempty"`
}

// Matcher resolves exercise names, preferring the hosted Upstash index and
// falling back to the Postgres trigram search when it is unavailable.
//
// Matcher is safe for concurrent use by multiple goroutines.
type Matcher struct {
	upstash   *UpstashClient // nil disables the hosted index entirely
	exercises *store.ExerciseStore
	logger    *slog.Logger
}

// NewMatcher creates a Matcher. upstash may be nil; logger may be nil.
func NewMatcher(upstash *UpstashClient, exercises *store.ExerciseStore, logger *slog.Logger) *Matcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Matcher{upstash: upstash, exercises: exercises, logger: logger}
}

// Match resolves one exercise name.
func (m *Matcher) Match(ctx context.Context, name string) Match {
	if m.upstash != nil {
		docs, err := m.upstash.Query(ctx, NamespaceExercises, name, 1)
		if err == nil {
			return m.fromUpstash(name, docs)
		}
		// Hosted index down: log and fall through to Postgres (the mobile
		// client treats both sources identically).
		m.logger.Warn("upstash query failed, falling back to postgres",
			"query", name, "error", err)
	}

	return m.fromPostgres(ctx, name)
}

// MatchAll resolves a batch of names sequentially. Parse payloads carry a
// handful of exercises at most, so there is nothing to parallelize.
func (m *Matcher) MatchAll(ctx context.Context, names []string) []Match {
	matches := make([]Match, len(names))
	for i, name := range names {
		matches[i] = m.Match(ctx, name)
	}
	return matches
}

func (m *Matcher) fromUpstash(query string, docs []Doc) Match {
	if len(docs) == 0 || docs[0].Score < minMatchScore {
		return Match{Query: query, Source: SourceUpstash}
	}

	doc := docs[0]
	match := Match{
		Query:   query,
		Matched: true,
		Name:    doc.Content,
		Score:   doc.Score,
		Source:  SourceUpstash,
	}
	if name, ok := doc.Metadata["name"]; ok {
		match.Name = name
	}
	// Seeded documents carry the catalog row ID so voice-parsed sets link
	// back to the exercises table.
	if id, err := uuid.Parse(doc.ID); err == nil {
		match.ExerciseID = &id
	}
	return match
}

func (m *Matcher) fromPostgres(ctx context.Context, query string) Match {
	results, err := m.exercises.SearchByName(ctx, query, 1)
	if err != nil {
		m.logger.Error("postgres exercise search failed", "query", query, "error", err)
		return Match{Query: query, Source: SourcePostgres}
	}
	if len(results) == 0 || results[0].Score < minMatchScore {
		return Match{Query: query, Source: SourcePostgres}
	}

	best := results[0]
	id := best.ID
	return Match{
		Query:      query,
		Matched:    true,
		ExerciseID: &id,
		Name:       best.Name,
		Score:      best.Score,
		Source:     SourcePostgres,
	}
}

// Context retrieves knowledge chunks for a query, routed by topic. Errors
// degrade to no context: chat and injury analysis proceed without RAG
// rather than failing the request.
func (m *Matcher) Context(ctx context.Context, query string, topK int) []string {
	if m.upstash == nil {
		return nil
	}

	ns := NamespaceFor(query)
	docs, err := m.upstash.Query(ctx, ns, query, topK)
	if err != nil {
		m.logger.Warn("knowledge retrieval failed, continuing without context",
			"namespace", ns, "error", err)
		return nil
	}

	chunks := make([]string, 0, len(docs))
	for _, d := range docs {
		if d.Content != "" {
			chunks = append(chunks, d.Content)
		}
	}
	m.logger.Debug("retrieved knowledge context",
		"namespace", ns, "chunks", len(chunks), "top_score", topScore(docs))
	return chunks
}

func topScore(docs []Doc) string {
	if len(docs) == 0 {
		return "n/a"
	}
	return strconv.FormatFloat(docs[0].Score, 'f', 3, 64)
}
