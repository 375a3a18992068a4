//go:build integration

package voice

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zchasse63/voice-fit-sub003/internal/llm"
	"github.com/Zchasse63/voice-fit-sub003/internal/search"
	"github.com/Zchasse63/voice-fit-sub003/internal/store"
	"github.com/Zchasse63/voice-fit-sub003/internal/testutil"
)

// scriptedClient returns a canned completion so the pipeline around the
// provider call can be exercised against a real database.
type scriptedClient struct {
	text string
	err  error
}

func (c *scriptedClient) Complete(context.Context, llm.Request) (string, error) {
	return c.text, c.err
}

func (c *scriptedClient) Name() string { return "scripted" }

const benchAndCarry = `{"exercises":[` +
	`{"name":"bench press","sets":3,"reps":5,"weight_kg":80},` +
	`{"name":"zercher yoke carry","sets":45}],` +
	`"notes":"felt strong"}`

func TestParser_Parse_Integration(t *testing.T) {
	tdb, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	logger := testutil.DiscardLogger()

	sessions := NewSessionStore(tdb.Pool, logger)
	base := time.Now().UTC().Truncate(time.Second)
	clock := base
	sessions.now = func() time.Time { return clock }

	exercises := store.NewExerciseStore(tdb.Pool, logger)
	_, err := exercises.Upsert(ctx, store.Exercise{
		Name:     "bench press",
		Category: "strength",
		Aliases:  []string{"bench"},
	}, nil)
	require.NoError(t, err)

	workouts := store.NewWorkoutStore(tdb.Pool, logger)
	matcher := search.NewMatcher(nil, exercises, logger)
	client := &scriptedClient{text: benchAndCarry}
	parser := NewParser(client, matcher, sessions, workouts, 0.1, 1024, logger)

	userID := uuid.New()

	var firstSessionID uuid.UUID

	t.Run("auto-opens a session", func(t *testing.T) {
		res, err := parser.Parse(ctx, userID, "bench press three sets of five at eighty kilos", false)
		require.NoError(t, err)
		require.NotNil(t, res.Session)
		assert.True(t, res.SessionRenewed)
		assert.Equal(t, StatusActive, res.Session.Status)
		assert.Equal(t, int32(1), res.Session.ParseCount)
		assert.Nil(t, res.WorkoutLogID)
		firstSessionID = res.Session.ID
	})

	t.Run("touches the open session", func(t *testing.T) {
		clock = base.Add(10 * time.Minute)
		res, err := parser.Parse(ctx, userID, "another set of bench", false)
		require.NoError(t, err)
		assert.False(t, res.SessionRenewed)
		assert.Equal(t, firstSessionID, res.Session.ID)
		assert.Equal(t, int32(2), res.Session.ParseCount)
		assert.Equal(t, clock.Add(SessionTTL), res.Session.ExpiresAt)
	})

	t.Run("clamps sets and keeps unmatched names", func(t *testing.T) {
		res, err := parser.Parse(ctx, userID, "bench and some yoke carries", false)
		require.NoError(t, err)
		require.Len(t, res.Exercises, 2)

		assert.True(t, res.Exercises[0].Match.Matched)
		assert.Equal(t, "bench press", res.Exercises[0].Match.Name)
		assert.Equal(t, 3, res.Exercises[0].Sets)

		assert.False(t, res.Exercises[1].Match.Matched)
		assert.Equal(t, "zercher yoke carry", res.Exercises[1].Name)
		assert.Equal(t, 20, res.Exercises[1].Sets)
	})

	t.Run("expired mid-flight renews the session", func(t *testing.T) {
		clock = clock.Add(SessionTTL + time.Minute)
		res, err := parser.Parse(ctx, userID, "back at it with bench", false)
		require.NoError(t, err)
		assert.True(t, res.SessionRenewed)
		assert.NotEqual(t, firstSessionID, res.Session.ID)
		assert.Equal(t, StatusActive, res.Session.Status)
	})

	t.Run("save persists a voice workout", func(t *testing.T) {
		res, err := parser.Parse(ctx, userID, "log it: bench and yoke carries", true)
		require.NoError(t, err)
		require.NotNil(t, res.WorkoutLogID)

		wl, err := workouts.Get(ctx, userID, *res.WorkoutLogID)
		require.NoError(t, err)
		assert.Equal(t, store.SourceVoice, wl.Source)
		assert.Equal(t, "felt strong", wl.Notes)
		require.Equal(t, int32(23), wl.SetCount)

		assert.Equal(t, "bench press", wl.Sets[0].ExerciseName)
		assert.NotNil(t, wl.Sets[0].ExerciseID)
		last := wl.Sets[len(wl.Sets)-1]
		assert.Equal(t, "zercher yoke carry", last.ExerciseName)
		assert.Nil(t, last.ExerciseID)
	})

	t.Run("save with nothing recognized", func(t *testing.T) {
		client.text = `{"exercises":[],"notes":""}`
		_, err := parser.Parse(ctx, userID, "just chatting, no workout", true)
		assert.ErrorIs(t, err, ErrNoExercises)
		client.text = benchAndCarry
	})
}
