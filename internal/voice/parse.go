package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
	"github.com/Zchasse63/voice-fit-sub003/internal/search"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
)

// Transcript limits, enforced before any provider call.
const (
	MaxTranscriptLen = 4000
	maxSetsPerEntry  = 20
)

// Transcript validation errors.
var (
	ErrEmptyTranscript   = errors.New("transcript is empty")
	ErrTranscriptTooLong = errors.New("transcript too long")
	ErrNoExercises       = errors.New("no exercises recognized in transcript")
)

// parsePrompt instructs the model to emit strict JSON. Kimi and Grok both
// honor response_format, but the prompt still pins the schema because
// neither provider guarantees field names.
const parsePrompt = `You extract structured workout data from spoken gym transcripts.
Respond with a single JSON object, no prose:
{"exercises":[{"name":string,"sets":int,"reps":int|null,"weight_kg":number|null,"duration_seconds":int|null,"distance_m":number|null}],"notes":string}
Rules:
- "sets" is how many sets of that exercise were performed (default 1).
- Convert pounds to kilograms (1 lb = 0.4536 kg), miles to meters.
- Keep exercise names short and canonical ("bench press", not "3 sets of bench").
- "notes" carries anything said that is not an exercise ("felt strong today").
- If the transcript contains no workout content, return {"exercises":[],"notes":""}.`

// ParsedExercise is one recognized exercise with its catalog match.
type ParsedExercise struct {
	Name            string       `json:"name"`
	Sets            int          `json:"sets"`
	Reps            *int32       `json:"reps,omitempty"`
	WeightKg        *float64     `json:"weightKg,omitempty"`
	DurationSeconds *int32       `json:"durationSeconds,omitempty"`
	DistanceM       *float64     `json:"distanceM,omitempty"`
	Match           search.Match `json:"match"`
}

// Result is the outcome of parsing one transcript.
type Result struct {
	Exercises      []ParsedExercise `json:"exercises"`
	Notes          string           `json:"notes,omitempty"`
	Session        *Session         `json:"session"`
	SessionRenewed bool             `json:"sessionRenewed"`
	WorkoutLogID   *uuid.UUID       `json:"workoutLogId,omitempty"`
}

// llmParseResponse is the raw shape the model is asked to produce.
type llmParseResponse struct {
	Exercises []struct {
		Name            string   `json:"name"`
		Sets            int      `json:"sets"`
		Reps            *int32   `json:"reps"`
		WeightKg        *float64 `json:"weight_kg"`
		DurationSeconds *int32   `json:"duration_seconds"`
		DistanceM       *float64 `json:"distance_m"`
	} `json:"exercises"`
	Notes string `json:"notes"`
}

// Parser turns voice transcripts into structured, catalog-matched workout
// data, keeping the caller's voice session alive along the way.
type Parser struct {
	client   llm.Client
	matcher  *search.Matcher
	sessions *SessionStore
	workouts *store.WorkoutStore
	logger   *slog.Logger

	temperature float32
	maxTokens   int
}

// NewParser creates a Parser. logger may be nil.
func NewParser(client llm.Client, matcher *search.Matcher, sessions *SessionStore,
	workouts *store.WorkoutStore, temperature float32, maxTokens int, logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parser{
		client:      client,
		matcher:     matcher,
		sessions:    sessions,
		workouts:    workouts,
		logger:      logger.With("component", "voice-parser"),
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Parse runs the full pipeline: validate, attribute to a session (opening
// one when needed), call the LLM, match exercises, optionally persist a
// workout log.
func (p *Parser) Parse(ctx context.Context, userID uuid.UUID, transcript string, save bool) (*Result, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, ErrEmptyTranscript
	}
	if len(transcript) > MaxTranscriptLen {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrTranscriptTooLong, len(transcript), MaxTranscriptLen)
	}

	sess, renewed, err := p.touchOrOpenSession(ctx, userID)
	if err != nil {
		return nil, err
	}

	raw, err := p.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: parsePrompt},
			{Role: llm.RoleUser, Content: transcript},
		},
		Temperature: p.temperature,
		MaxTokens:   p.maxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}

	var parsed llmParseResponse
	if err := llm.ExtractJSON(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse transcript: %w", err)
	}

	result := &Result{
		Notes:          strings.TrimSpace(parsed.Notes),
		Session:        sess,
		SessionRenewed: renewed,
	}

	for _, e := range parsed.Exercises {
		name := strings.TrimSpace(e.Name)
		if name == "" {
			continue
		}
		sets := e.Sets
		if sets < 1 {
			sets = 1
		}
		if sets > maxSetsPerEntry {
			sets = maxSetsPerEntry
		}
		result.Exercises = append(result.Exercises, ParsedExercise{
			Name:            name,
			Sets:            sets,
			Reps:            e.Reps,
			WeightKg:        e.WeightKg,
			DurationSeconds: e.DurationSeconds,
			DistanceM:       e.DistanceM,
		})
	}

	// Resolve names against the catalog; unmatched entries keep the raw
	// name so nothing the user said is dropped.
	for i := range result.Exercises {
		result.Exercises[i].Match = p.matcher.Match(ctx, result.Exercises[i].Name)
	}

	if save {
		if len(result.Exercises) == 0 {
			return nil, ErrNoExercises
		}
		logID, err := p.saveWorkout(ctx, userID, result)
		if err != nil {
			return nil, err
		}
		result.WorkoutLogID = &logID
	}

	p.logger.Debug("parsed transcript",
		"user_id", userID,
		"session_id", sess.ID,
		"exercises", len(result.Exercises),
		"saved", save,
	)
	return result, nil
}

// touchOrOpenSession attributes activity to the caller's open session,
// opening a fresh one when there is none or the open one expired
// mid-flight. The returned bool reports whether a new session was opened.
func (p *Parser) touchOrOpenSession(ctx context.Context, userID uuid.UUID) (*Session, bool, error) {
	open, err := p.sessions.Open(ctx, userID)
	if err == nil {
		touched, terr := p.sessions.Touch(ctx, userID, open.ID, true)
		if terr == nil {
			return touched, false, nil
		}
		if !errors.Is(terr, ErrSessionExpired) {
			return nil, false, terr
		}
		// Deadline passed between Open and Touch: fall through and start
		// a new session, same as the no-session case.
	} else if !errors.Is(err, ErrNoOpenSession) {
		return nil, false, err
	}

	sess, err := p.sessions.Start(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	sess, err = p.sessions.Touch(ctx, userID, sess.ID, true)
	if err != nil {
		return nil, false, err
	}
	return sess, true, nil
}

// saveWorkout persists the parse as a voice-sourced workout log.
func (p *Parser) saveWorkout(ctx context.Context, userID uuid.UUID, result *Result) (uuid.UUID, error) {
	wl := &store.WorkoutLog{
		UserID: userID,
		Source: store.SourceVoice,
		Notes:  result.Notes,
	}
	for _, ex := range result.Exercises {
		name := ex.Name
		if ex.Match.Matched {
			name = ex.Match.Name
		}
		for s := 0; s < ex.Sets; s++ {
			wl.Sets = append(wl.Sets, store.WorkoutSet{
				ExerciseID:      ex.Match.ExerciseID,
				ExerciseName:    name,
				Reps:            ex.Reps,
				WeightKg:        ex.WeightKg,
				DurationSeconds: ex.DurationSeconds,
				DistanceM:       ex.DistanceM,
			})
		}
	}

	logID, err := p.workouts.Create(ctx, wl)
	if err != nil {
		return uuid.Nil, fmt.Errorf("save parsed workout: %w", err)
	}
	return logID, nil
}
