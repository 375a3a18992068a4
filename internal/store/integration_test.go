//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zchasse63/voice-fit-sub003/internal/store"
	"github.com/Zchasse63/voice-fit-sub003/internal/testutil"
)

func int32p(v int32) *int32 { return &v }

func float64p(v float64) *float64 { return &v }

func TestWorkoutStore_Integration(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	workouts := store.NewWorkoutStore(tdb.Pool, testutil.DiscardLogger())
	userID := uuid.New()

	logID, err := workouts.Create(ctx, &store.WorkoutLog{
		UserID: userID,
		Source: store.SourceVoice,
		Notes:  "felt strong",
		Sets: []store.WorkoutSet{
			{ExerciseName: "bench press", Reps: int32p(5), WeightKg: float64p(80)},
			{ExerciseName: "bench press", Reps: int32p(5), WeightKg: float64p(80)},
		},
	})
	require.NoError(t, err)

	t.Run("get with sets", func(t *testing.T) {
		wl, err := workouts.Get(ctx, userID, logID)
		require.NoError(t, err)
		assert.Equal(t, store.SourceVoice, wl.Source)
		assert.Equal(t, "felt strong", wl.Notes)
		assert.Equal(t, int32(2), wl.SetCount)
		require.Len(t, wl.Sets, 2)
		assert.Equal(t, int32(1), wl.Sets[0].SequenceNumber)
		assert.Equal(t, int32(2), wl.Sets[1].SequenceNumber)
	})

	t.Run("owner scope", func(t *testing.T) {
		_, err := workouts.Get(ctx, uuid.New(), logID)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("append continues sequence", func(t *testing.T) {
		err := workouts.AppendSets(ctx, userID, logID, []store.WorkoutSet{
			{ExerciseName: "incline press", Reps: int32p(8)},
		})
		require.NoError(t, err)

		wl, err := workouts.Get(ctx, userID, logID)
		require.NoError(t, err)
		require.Len(t, wl.Sets, 3)
		assert.Equal(t, int32(3), wl.Sets[2].SequenceNumber)
		assert.Equal(t, int32(3), wl.SetCount)
	})

	t.Run("append owner scope", func(t *testing.T) {
		err := workouts.AppendSets(ctx, uuid.New(), logID, []store.WorkoutSet{
			{ExerciseName: "curl"},
		})
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("recent sets", func(t *testing.T) {
		sets, err := workouts.RecentSets(ctx, userID, 10)
		require.NoError(t, err)
		assert.Len(t, sets, 3)
	})

	t.Run("list", func(t *testing.T) {
		logs, err := workouts.List(ctx, userID, 10, 0)
		require.NoError(t, err)
		require.Len(t, logs, 1)
		assert.Empty(t, logs[0].Sets, "List must not load sets")
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, workouts.Delete(ctx, userID, logID))
		_, err := workouts.Get(ctx, userID, logID)
		assert.ErrorIs(t, err, store.ErrNotFound)

		sets, err := workouts.RecentSets(ctx, userID, 10)
		require.NoError(t, err)
		assert.Empty(t, sets)
	})
}

func TestInjuryStore_Integration(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	injuries := store.NewInjuryStore(tdb.Pool, testutil.DiscardLogger())
	userID := uuid.New()

	id, err := injuries.Create(ctx, &store.InjuryLog{
		UserID:      userID,
		BodyPart:    "knee",
		Description: "sharp pain on the inside during squats",
		Severity:    6,
		Status:      store.InjuryActive,
	})
	require.NoError(t, err)

	t.Run("lifecycle", func(t *testing.T) {
		require.NoError(t, injuries.UpdateStatus(ctx, userID, id, store.InjuryRecovering))
		require.NoError(t, injuries.UpdateStatus(ctx, userID, id, store.InjuryResolved))

		// resolved -> recovering is not a legal move
		err := injuries.UpdateStatus(ctx, userID, id, store.InjuryRecovering)
		assert.ErrorIs(t, err, store.ErrInvalidTransition)

		// re-aggravation reopens
		require.NoError(t, injuries.UpdateStatus(ctx, userID, id, store.InjuryActive))
	})

	t.Run("analysis attach", func(t *testing.T) {
		analysis := []byte(`{"severity":6,"summary":"likely MCL irritation"}`)
		require.NoError(t, injuries.SetAnalysis(ctx, userID, id, analysis))

		il, err := injuries.Get(ctx, userID, id)
		require.NoError(t, err)
		assert.JSONEq(t, string(analysis), string(il.Analysis))
	})

	t.Run("list filters by status", func(t *testing.T) {
		active, err := injuries.List(ctx, userID, store.InjuryActive, 10, 0)
		require.NoError(t, err)
		assert.Len(t, active, 1)

		resolved, err := injuries.List(ctx, userID, store.InjuryResolved, 10, 0)
		require.NoError(t, err)
		assert.Empty(t, resolved)
	})

	t.Run("owner scope", func(t *testing.T) {
		_, err := injuries.Get(ctx, uuid.New(), id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestProgramStore_Integration(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	programs := store.NewProgramStore(tdb.Pool, testutil.DiscardLogger())
	userID := uuid.New()

	id, err := programs.Create(ctx, &store.Program{
		UserID: userID,
		Title:  "8-week base block",
		Goal:   "get stronger",
		Weeks:  8,
		Plan:   []byte(`{"title":"8-week base block","weeks":[]}`),
		Status: store.ProgramDraft,
	})
	require.NoError(t, err)

	t.Run("draft cannot complete", func(t *testing.T) {
		err := programs.UpdateStatus(ctx, userID, id, store.ProgramCompleted)
		assert.ErrorIs(t, err, store.ErrInvalidTransition)
	})

	t.Run("activate then complete", func(t *testing.T) {
		require.NoError(t, programs.UpdateStatus(ctx, userID, id, store.ProgramActive))
		require.NoError(t, programs.UpdateStatus(ctx, userID, id, store.ProgramCompleted))

		err := programs.UpdateStatus(ctx, userID, id, store.ProgramActive)
		assert.ErrorIs(t, err, store.ErrInvalidTransition, "completed is terminal")
	})

	t.Run("get carries plan", func(t *testing.T) {
		p, err := programs.Get(ctx, userID, id)
		require.NoError(t, err)
		assert.Equal(t, "8-week base block", p.Title)
		assert.NotEmpty(t, p.Plan)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, programs.Delete(ctx, userID, id))
		_, err := programs.Get(ctx, userID, id)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestChatStore_Integration(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	messages := store.NewChatStore(tdb.Pool, testutil.DiscardLogger())
	userID := uuid.New()

	require.NoError(t, messages.Append(ctx, userID, []store.ChatMessage{
		{Role: "user", Content: "how often should i deload?", Intent: "ask_question"},
		{Role: "assistant", Content: "every 4-6 weeks for most lifters."},
	}))
	require.NoError(t, messages.Append(ctx, userID, []store.ChatMessage{
		{Role: "user", Content: "thanks"},
	}))

	got, err := messages.Recent(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Chronological order with gapless sequence numbers.
	for i, m := range got {
		assert.Equal(t, int32(i+1), m.SequenceNumber)
	}
	assert.Equal(t, "ask_question", got[0].Intent)
	assert.Empty(t, got[1].Intent, "assistant turns carry no intent")

	t.Run("limit keeps newest", func(t *testing.T) {
		last, err := messages.Recent(ctx, userID, 2)
		require.NoError(t, err)
		require.Len(t, last, 2)
		assert.Equal(t, int32(2), last[0].SequenceNumber)
		assert.Equal(t, int32(3), last[1].SequenceNumber)
	})
}

func TestExerciseStore_Integration(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	exercises := store.NewExerciseStore(tdb.Pool, testutil.DiscardLogger())

	id, err := exercises.Upsert(ctx, store.Exercise{
		Name:         "bench press",
		Category:     "strength",
		MuscleGroups: []string{"chest", "triceps"},
		Equipment:    "barbell",
		Aliases:      []string{"bench", "flat bench"},
	}, nil)
	require.NoError(t, err)

	t.Run("upsert is idempotent by name", func(t *testing.T) {
		again, err := exercises.Upsert(ctx, store.Exercise{
			Name:     "bench press",
			Category: "strength",
		}, nil)
		require.NoError(t, err)
		assert.Equal(t, id, again)

		n, err := exercises.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("search by name", func(t *testing.T) {
		matches, err := exercises.SearchByName(ctx, "bench", 5)
		require.NoError(t, err)
		require.NotEmpty(t, matches)
		assert.Equal(t, "bench press", matches[0].Name)
		assert.Greater(t, matches[0].Score, 0.0)
	})

	t.Run("search by alias", func(t *testing.T) {
		matches, err := exercises.SearchByName(ctx, "flat bench", 5)
		require.NoError(t, err)
		require.NotEmpty(t, matches)
		assert.Equal(t, id, matches[0].ID)
	})
}

func TestExerciseStore_VectorSearch_Integration(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	exercises := store.NewExerciseStore(tdb.Pool, testutil.DiscardLogger())

	// One-hot vectors on different axes are orthogonal, so the cosine
	// ranking is unambiguous.
	oneHot := func(hot int) []float32 {
		v := make([]float32, 1024)
		v[hot] = 1
		return v
	}

	benchID, err := exercises.Upsert(ctx, store.Exercise{Name: "bench press", Category: "strength"}, oneHot(0))
	require.NoError(t, err)
	_, err = exercises.Upsert(ctx, store.Exercise{Name: "deadlift", Category: "strength"}, oneHot(1))
	require.NoError(t, err)
	_, err = exercises.Upsert(ctx, store.Exercise{Name: "treadmill run", Category: "cardio"}, nil)
	require.NoError(t, err)

	t.Run("ranks by cosine distance", func(t *testing.T) {
		matches, err := exercises.SearchByEmbedding(ctx, oneHot(0), 5)
		require.NoError(t, err)
		require.Len(t, matches, 2) // the row without an embedding is skipped
		assert.Equal(t, benchID, matches[0].ID)
		assert.InDelta(t, 1.0, matches[0].Score, 0.001)
		assert.Equal(t, "deadlift", matches[1].Name)
	})

	t.Run("nearest to the second axis", func(t *testing.T) {
		matches, err := exercises.SearchByEmbedding(ctx, oneHot(1), 1)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "deadlift", matches[0].Name)
	})
}
