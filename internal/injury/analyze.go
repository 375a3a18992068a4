package injury

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
	"github.com/Zchasse63/voice-fit-sub003/internal/search"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
)

const (
	MaxDescriptionLen = 2000
	recentSetsWindow  = 40
	knowledgeTopK     = 4
)

// Input validation errors.
var (
	ErrEmptyDescription   = errors.New("description is empty")
	ErrDescriptionTooLong = errors.New("description too long")
	ErrInvalidSeverity    = errors.New("severity must be between 1 and 10")
)

const analyzePrompt = `You assess gym and running injuries for a fitness app.
You are not a doctor and must not diagnose; you flag risk and advise.
Respond with a single JSON object, no prose:
{"severity":int (1-10),"summary":string,"recommendation":string,"red_flags":[string],"see_professional":bool}
Set "see_professional" true for numbness, joint instability, sharp or
radiating pain, or anything lasting more than two weeks.
Use the training history and reference material when relevant.`

// Assessment is the structured result stored on the injury log.
type Assessment struct {
	Severity        int      `json:"severity"`
	Summary         string   `json:"summary"`
	Recommendation  string   `json:"recommendation"`
	RedFlags        []string `json:"red_flags"`
	SeeProfessional bool     `json:"see_professional"`
}

// Report pairs the stored injury log with its assessment.
type Report struct {
	InjuryID   uuid.UUID   `json:"injuryId"`
	Assessment *Assessment `json:"assessment"`
}

// Analyzer records a reported injury and produces an LLM assessment from
// the user's recent training plus injury knowledge.
type Analyzer struct {
	client   llm.Client
	matcher  *search.Matcher
	injuries *store.InjuryStore
	workouts *store.WorkoutStore
	logger   *slog.Logger

	maxTokens int
}

func NewAnalyzer(client llm.Client, matcher *search.Matcher, injuries *store.InjuryStore,
	workouts *store.WorkoutStore, maxTokens int, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		client:    client,
		matcher:   matcher,
		injuries:  injuries,
		workouts:  workouts,
		logger:    logger.With("component", "injury-analyzer"),
		maxTokens: maxTokens,
	}
}

// Analyze validates the report, gathers context concurrently, asks the LLM
// for an assessment and persists both the injury log and its analysis.
func (a *Analyzer) Analyze(ctx context.Context, userID uuid.UUID, bodyPart, description string, severity int32) (*Report, error) {
	bodyPart = strings.TrimSpace(bodyPart)
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}
	if len(description) > MaxDescriptionLen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrDescriptionTooLong, len(description), MaxDescriptionLen)
	}
	if severity < 1 || severity > 10 {
		return nil, ErrInvalidSeverity
	}

	var (
		recentSets []store.WorkoutSet
		active     []*store.InjuryLog
		chunks     []string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		recentSets, err = a.workouts.RecentSets(gctx, userID, recentSetsWindow)
		return err
	})
	g.Go(func() error {
		var err error
		active, err = a.injuries.List(gctx, userID, store.InjuryActive, 10, 0)
		return err
	})
	g.Go(func() error {
		// Retrieval failures already degrade to nil inside Context.
		chunks = a.matcher.Context(gctx, bodyPart+" "+description, knowledgeTopK)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather injury context: %w", err)
	}

	injuryID, err := a.injuries.Create(ctx, &store.InjuryLog{
		UserID:      userID,
		BodyPart:    bodyPart,
		Description: description,
		Severity:    severity,
		Status:      store.InjuryActive,
	})
	if err != nil {
		return nil, fmt.Errorf("record injury: %w", err)
	}

	out, err := a.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: analyzePrompt},
			{Role: llm.RoleUser, Content: a.buildContext(bodyPart, description, severity, recentSets, active, chunks)},
		},
		Temperature: 0.2,
		MaxTokens:   a.maxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		// The injury row stands on its own; analysis can be retried.
		return nil, fmt.Errorf("injury assessment: %w", err)
	}

	var assessment Assessment
	if err := llm.ExtractJSON(out, &assessment); err != nil {
		return nil, fmt.Errorf("injury assessment: %w", err)
	}
	if assessment.Severity < 1 || assessment.Severity > 10 {
		assessment.Severity = int(severity)
	}

	raw, err := json.Marshal(assessment)
	if err != nil {
		return nil, fmt.Errorf("encode assessment: %w", err)
	}
	if err := a.injuries.SetAnalysis(ctx, userID, injuryID, raw); err != nil {
		return nil, fmt.Errorf("store assessment: %w", err)
	}

	a.logger.Info("injury analyzed",
		"user_id", userID,
		"injury_id", injuryID,
		"severity", assessment.Severity,
		"see_professional", assessment.SeeProfessional,
	)
	return &Report{InjuryID: injuryID, Assessment: &assessment}, nil
}

func (a *Analyzer) buildContext(bodyPart, description string, severity int32,
	sets []store.WorkoutSet, active []*store.InjuryLog, chunks []string) string {

	var b strings.Builder
	fmt.Fprintf(&b, "Reported injury: %s\nSeverity (self-rated): %d/10\nDescription: %s\n", bodyPart, severity, description)

	if len(active) > 0 {
		b.WriteString("\nOther active injuries:\n")
		for _, il := range active {
			fmt.Fprintf(&b, "- %s (severity %d): %s\n", il.BodyPart, il.Severity, il.Description)
		}
	}
	if len(sets) > 0 {
		b.WriteString("\nRecent training (latest first):\n")
		for _, s := range sets {
			fmt.Fprintf(&b, "- %s", s.ExerciseName)
			if s.Reps != nil {
				fmt.Fprintf(&b, " x%d", *s.Reps)
			}
			if s.WeightKg != nil {
				fmt.Fprintf(&b, " @ %.1fkg", *s.WeightKg)
			}
			b.WriteByte('\n')
		}
	}
	if len(chunks) > 0 {
		b.WriteString("\nReference material:\n" + strings.Join(chunks, "\n---\n") + "\n")
	}
	return b.String()
}
