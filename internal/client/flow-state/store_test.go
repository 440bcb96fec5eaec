package flowstate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftconnect/internal/common/logger"
)

func fullState(t *testing.T) State {
	return mustReduce(t, State{},
		RecordingCaptured{Recording: testRecording(12.5)},
		AnalysisReceived{Transcript: "I make pottery in Jaipur", Analysis: testAnalysis("whatsapp", "website")},
		SolutionSelected{SolutionID: "whatsapp"},
	)
}

func TestEncodeState_UsesFixedKeys(t *testing.T) {
	values, err := encodeState(fullState(t))
	require.NoError(t, err)

	assert.ElementsMatch(t, allKeys, keysOf(values))
	assert.Equal(t, "true", values[KeyIsProcessed])
	assert.Equal(t, "12.5", values[KeyRecordingDuration])
	assert.Equal(t, "audio/webm;codecs=opus", values[KeyAudioMimeType])

	empty, err := encodeState(State{})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func keysOf(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestDecodeState_Corrupt(t *testing.T) {
	_, err := decodeState(map[string]string{KeyRecordedAudio: "%%%"})
	assert.Error(t, err)

	_, err = decodeState(map[string]string{KeyAnalysisData: "{"})
	assert.Error(t, err)
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	store := NewFileStore(path)

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageIdle, empty.Stage())

	want := fullState(t)
	require.NoError(t, store.Save(ctx, want))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestRedisStore_RoundTripWithTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	store := NewRedisStore(client, "cc:", "artisan-1", time.Hour)

	want := fullState(t)
	require.NoError(t, store.Save(ctx, want))

	for _, k := range allKeys {
		key := "cc:artisan-1:" + k
		assert.True(t, mr.Exists(key), key)
		assert.Equal(t, time.Hour, mr.TTL(key), key)
	}

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// Moving back a stage removes the stale keys.
	recordedOnly := State{Recording: want.Recording}
	require.NoError(t, store.Save(ctx, recordedOnly))
	assert.False(t, mr.Exists("cc:artisan-1:"+KeyAnalysisData))
	assert.False(t, mr.Exists("cc:artisan-1:"+KeySelectedSolution))

	require.NoError(t, store.Clear(ctx))
	for _, k := range allKeys {
		assert.False(t, mr.Exists("cc:artisan-1:"+k))
	}
}

func TestRedisStore_LoadError(t *testing.T) {
	db, mock := redismock.NewClientMock()
	store := NewRedisStore(db, "cc:", "s", time.Hour)

	mock.ExpectMGet(store.keys()...).SetErr(errors.New("connection reset"))

	_, err := store.Load(context.Background())
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFlow_ApplyPersistsOnlySuccessfulTransitions(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(filepath.Join(t.TempDir(), "session.json"))
	flow := NewFlow(store, logger.NewTestLogger(t))

	_, err := flow.Apply(ctx, AnalysisReceived{Analysis: testAnalysis("whatsapp", "website")})
	assert.ErrorIs(t, err, ErrInvalidTransition)

	state, err := flow.Apply(ctx, RecordingCaptured{Recording: testRecording(11)})
	require.NoError(t, err)
	assert.Equal(t, StageRecorded, state.Stage())

	_, err = flow.Apply(ctx, AnalysisReceived{Analysis: testAnalysis("website", "website")})
	assert.ErrorIs(t, err, ErrInvalidAnalysis)

	current, err := flow.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageRecorded, current.Stage())

	step, err := flow.Resolve(ctx, StepInsights)
	require.NoError(t, err)
	assert.Equal(t, StepRecord, step)

	state, err = flow.Apply(ctx, Reset{})
	require.NoError(t, err)
	assert.Equal(t, State{}, state)

	current, err = flow.Current(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageIdle, current.Stage())
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "state", "session.db")

	store, err := OpenSQLiteStore(path, "artisan-1")
	require.NoError(t, err)
	defer store.Close()

	empty, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageIdle, empty.Stage())

	want := fullState(t)
	require.NoError(t, store.Save(ctx, want))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	other, err := OpenSQLiteStore(path, "artisan-2")
	require.NoError(t, err)
	defer other.Close()
	otherState, err := other.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageIdle, otherState.Stage())

	recordedOnly := State{Recording: want.Recording}
	require.NoError(t, store.Save(ctx, recordedOnly))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, StageRecorded, got.Stage())
	assert.Nil(t, got.Analysis)

	require.NoError(t, store.Clear(ctx))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, State{}, got)
}
