// Package store implements PostgreSQL persistence for the voicefit service.
//
// Each aggregate gets its own store type over a shared pgxpool.Pool. All
// owner-scoped queries filter by user ID in SQL; a row belonging to another
// user is indistinguishable from a missing row (ErrNotFound).
package store

import (
	"time"

	"github.com/google/uuid"
)

// Exercise is one entry in the exercise catalog.
type Exercise struct {
	ID           uuid.UUID
	Name         string
	Category     string
	MuscleGroups []string
	Equipment    string
	Aliases      []string
	CreatedAt    time.Time
}

// ExerciseMatch is a catalog entry with a match score from name or vector
// search. Score is in [0,1], higher is better.
type ExerciseMatch struct {
	Exercise
	Score float64
}

// WorkoutSet is a single set (or interval, for cardio) within a workout log.
type WorkoutSet struct {
	ID              uuid.UUID
	WorkoutLogID    uuid.UUID
	ExerciseID      *uuid.UUID // nil when the name did not match the catalog
	ExerciseName    string
	SequenceNumber  int32
	Reps            *int32
	WeightKg        *float64
	DurationSeconds *int32
	DistanceM       *float64
}

// WorkoutLog is one logged workout with its sets.
type WorkoutLog struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	LoggedAt        time.Time
	Source          string // "voice" or "manual"
	Notes           string
	DurationSeconds *int32
	SetCount        int32
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Sets            []WorkoutSet // populated by Get, empty in List
}

// Workout log sources.
const (
	SourceVoice  = "voice"
	SourceManual = "manual"
)

// Injury log statuses.
const (
	InjuryActive     = "active"
	InjuryRecovering = "recovering"
	InjuryResolved   = "resolved"
)

// InjuryLog records a reported injury and, optionally, the structured LLM
// assessment that was run for it.
type InjuryLog struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	BodyPart    string
	Description string
	Severity    int32 // 1..10
	Status      string
	Analysis    []byte // raw JSON assessment, nil if none
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Program statuses.
const (
	ProgramDraft     = "draft"
	ProgramActive    = "active"
	ProgramCompleted = "completed"
	ProgramAbandoned = "abandoned"
)

// Program is an LLM-generated training program. Plan holds the
// week-structured JSON exactly as validated at generation time.
type Program struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Title     string
	Goal      string
	Weeks     int32
	Plan      []byte
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ChatMessage is one turn of the coach chat.
type ChatMessage struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Role           string // "user" or "assistant"
	Content        string
	Intent         string // classification of the user turn, empty for assistant turns
	SequenceNumber int32
	CreatedAt      time.Time
}
