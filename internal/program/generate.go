package program

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
)

const (
	MinWeeks = 1
	MaxWeeks = 52

	recentSetsWindow = 30
)

// Input validation errors.
var (
	ErrEmptyGoal    = errors.New("goal is empty")
	ErrInvalidWeeks = errors.New("weeks must be between 1 and 52")
	ErrBadPlan      = errors.New("generated plan failed validation")
)

const generatePrompt = `You design week-by-week training programs.
Respond with a single JSON object, no prose:
{"title":string,"weeks":[{"week":int,"focus":string,"days":[{"day":string,"exercises":[{"name":string,"sets":int,"reps":string,"notes":string}]}]}]}
Rules:
- Produce exactly the requested number of weeks, numbered from 1.
- Every week has at least 2 training days; "reps" may be a range ("8-12")
  or a duration ("30 min easy run").
- Respect any injuries mentioned: avoid loading the affected area.
- Build on the user's recent training rather than restarting from zero.`

// Plan is the validated shape of a generated program.
type Plan struct {
	Title string `json:"title"`
	Weeks []Week `json:"weeks"`
}

type Week struct {
	Week  int    `json:"week"`
	Focus string `json:"focus"`
	Days  []Day  `json:"days"`
}

type Day struct {
	Day       string         `json:"day"`
	Exercises []PlanExercise `json:"exercises"`
}

type PlanExercise struct {
	Name  string `json:"name"`
	Sets  int    `json:"sets"`
	Reps  string `json:"reps"`
	Notes string `json:"notes,omitempty"`
}

// Generator asks the LLM for a week-structured program and stores it as a
// draft the user can later activate.
type Generator struct {
	client   llm.Client
	programs *store.ProgramStore
	workouts *store.WorkoutStore
	logger   *slog.Logger

	maxTokens int
}

func NewGenerator(client llm.Client, programs *store.ProgramStore,
	workouts *store.WorkoutStore, maxTokens int, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{
		client:    client,
		programs:  programs,
		workouts:  workouts,
		logger:    logger.With("component", "program-generator"),
		maxTokens: maxTokens,
	}
}

// Generate builds a draft program for the goal. injuries is free text the
// caller wants respected (may be empty).
func (g *Generator) Generate(ctx context.Context, userID uuid.UUID, goal string, weeks int32, injuries string) (*store.Program, error) {
	goal = strings.TrimSpace(goal)
	if goal == "" {
		return nil, ErrEmptyGoal
	}
	if weeks < MinWeeks || weeks > MaxWeeks {
		return nil, ErrInvalidWeeks
	}

	recent, err := g.workouts.RecentSets(ctx, userID, recentSetsWindow)
	if err != nil {
		g.logger.Warn("recent training unavailable, generating without it", "error", err)
		recent = nil
	}

	out, err := g.client.Complete(ctx, llm.Request{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: generatePrompt},
			{Role: llm.RoleUser, Content: buildRequest(goal, weeks, injuries, recent)},
		},
		Temperature: 0.4,
		MaxTokens:   g.maxTokens,
		JSONOnly:    true,
	})
	if err != nil {
		return nil, fmt.Errorf("generate program: %w", err)
	}

	var plan Plan
	if err := llm.ExtractJSON(out, &plan); err != nil {
		return nil, fmt.Errorf("generate program: %w", err)
	}
	if err := validatePlan(&plan, weeks); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(plan)
	if err != nil {
		return nil, fmt.Errorf("encode plan: %w", err)
	}

	p := &store.Program{
		UserID: userID,
		Title:  plan.Title,
		Goal:   goal,
		Weeks:  weeks,
		Plan:   raw,
		Status: store.ProgramDraft,
	}
	id, err := g.programs.Create(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("store program: %w", err)
	}
	p.ID = id

	g.logger.Info("program generated", "user_id", userID, "program_id", id, "weeks", weeks)
	return p, nil
}

// validatePlan rejects structurally broken output rather than storing it;
// the caller can retry generation.
func validatePlan(p *Plan, weeks int32) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrBadPlan)
	}
	if len(p.Weeks) != int(weeks) {
		return fmt.Errorf("%w: got %d weeks, wanted %d", ErrBadPlan, len(p.Weeks), weeks)
	}
	for i, w := range p.Weeks {
		if w.Week != i+1 {
			return fmt.Errorf("%w: week %d numbered %d", ErrBadPlan, i+1, w.Week)
		}
		if len(w.Days) == 0 {
			return fmt.Errorf("%w: week %d has no training days", ErrBadPlan, w.Week)
		}
		for _, d := range w.Days {
			if len(d.Exercises) == 0 {
				return fmt.Errorf("%w: week %d day %q has no exercises", ErrBadPlan, w.Week, d.Day)
			}
			for _, e := range d.Exercises {
				if strings.TrimSpace(e.Name) == "" {
					return fmt.Errorf("%w: unnamed exercise in week %d", ErrBadPlan, w.Week)
				}
			}
		}
	}
	return nil
}

func buildRequest(goal string, weeks int32, injuries string, recent []store.WorkoutSet) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Goal: %s\nProgram length: %d weeks\n", goal, weeks)
	if injuries = strings.TrimSpace(injuries); injuries != "" {
		fmt.Fprintf(&b, "Injuries to respect: %s\n", injuries)
	}
	if len(recent) > 0 {
		b.WriteString("Recent training (latest first):\n")
		for _, s := range recent {
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
	return b.String()
}
