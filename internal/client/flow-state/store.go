package flowstate

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"craftconnect/internal/models"
)

// Persisted keys. Absent keys mean the zero value.
const (
	KeyRecordedAudio     = "recordedAudio"
	KeyAudioMimeType     = "audioMimeType"
	KeyRecordingDuration = "recordingDuration"
	KeyIsProcessed       = "isProcessed"
	KeyAnalysisData      = "analysisData"
	KeyTranscript        = "transcript"
	KeySelectedSolution  = "selectedSolution"
)

var allKeys = []string{
	KeyRecordedAudio,
	KeyAudioMimeType,
	KeyRecordingDuration,
	KeyIsProcessed,
	KeyAnalysisData,
	KeyTranscript,
	KeySelectedSolution,
}

// Store is the single persistence boundary for State.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, state State) error
	Clear(ctx context.Context) error
}

func encodeState(s State) (map[string]string, error) {
	values := make(map[string]string, len(allKeys))
	if s.Recording != nil && len(s.Recording.Data) > 0 {
		values[KeyRecordedAudio] = base64.StdEncoding.EncodeToString(s.Recording.Data)
		values[KeyAudioMimeType] = s.Recording.MimeType
		values[KeyRecordingDuration] = strconv.FormatFloat(s.Recording.DurationSeconds, 'f', -1, 64)
	}
	if s.Processed {
		values[KeyIsProcessed] = "true"
	}
	if s.Analysis != nil {
		raw, err := json.Marshal(s.Analysis)
		if err != nil {
			return nil, fmt.Errorf("failed to encode analysis: %w", err)
		}
		values[KeyAnalysisData] = string(raw)
	}
	if s.Transcript != "" {
		values[KeyTranscript] = s.Transcript
	}
	if s.SelectedSolution != "" {
		values[KeySelectedSolution] = s.SelectedSolution
	}
	return values, nil
}

func decodeState(values map[string]string) (State, error) {
	var s State

	if audio := values[KeyRecordedAudio]; audio != "" {
		data, err := base64.StdEncoding.DecodeString(audio)
		if err != nil {
			return State{}, fmt.Errorf("corrupt %s: %w", KeyRecordedAudio, err)
		}
		rec := &models.AudioRecording{Data: data, MimeType: values[KeyAudioMimeType]}
		if d := values[KeyRecordingDuration]; d != "" {
			if rec.DurationSeconds, err = strconv.ParseFloat(d, 64); err != nil {
				return State{}, fmt.Errorf("corrupt %s: %w", KeyRecordingDuration, err)
			}
		}
		s.Recording = rec
	}

	s.Processed = values[KeyIsProcessed] == "true"

	if raw := values[KeyAnalysisData]; raw != "" {
		var a models.BusinessAnalysis
		if err := json.Unmarshal([]byte(raw), &a); err != nil {
			return State{}, fmt.Errorf("corrupt %s: %w", KeyAnalysisData, err)
		}
		s.Analysis = &a
	}

	s.Transcript = values[KeyTranscript]
	s.SelectedSolution = values[KeySelectedSolution]
	return s, nil
}

// FileStore keeps the state as a JSON object in one file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Path() string {
	return f.path
}

func (f *FileStore) Load(ctx context.Context) (State, error) {
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return State{}, nil
	}
	if err != nil {
		return State{}, fmt.Errorf("failed to read session: %w", err)
	}

	values := map[string]string{}
	if err := json.Unmarshal(raw, &values); err != nil {
		return State{}, fmt.Errorf("failed to parse session %s: %w", f.path, err)
	}
	return decodeState(values)
}

func (f *FileStore) Save(ctx context.Context, state State) error {
	values, err := encodeState(state)
	if err != nil {
		return err
	}
	raw, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write session: %w", err)
	}
	return nil
}

func (f *FileStore) Clear(ctx context.Context) error {
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

// RedisStore keeps each key as its own Redis string under prefix+session, expiring after ttl.
type RedisStore struct {
	client  redis.Cmdable
	prefix  string
	session string
	ttl     time.Duration
}

func NewRedisStore(client redis.Cmdable, prefix, session string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "craftconnect:session:"
	}
	if session == "" {
		session = "default"
	}
	return &RedisStore{client: client, prefix: prefix, session: session, ttl: ttl}
}

func (r *RedisStore) key(name string) string {
	return r.prefix + r.session + ":" + name
}

func (r *RedisStore) keys() []string {
	keys := make([]string, len(allKeys))
	for i, k := range allKeys {
		keys[i] = r.key(k)
	}
	return keys
}

func (r *RedisStore) Load(ctx context.Context) (State, error) {
	res, err := r.client.MGet(ctx, r.keys()...).Result()
	if err != nil {
		return State{}, fmt.Errorf("failed to load session: %w", err)
	}

	values := make(map[string]string, len(allKeys))
	for i, v := range res {
		if s, ok := v.(string); ok {
			values[allKeys[i]] = s
		}
	}
	return decodeState(values)
}

// Save replaces the whole session atomically; keys with zero values are removed.
func (r *RedisStore) Save(ctx context.Context, state State) error {
	values, err := encodeState(state)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, k := range allKeys {
			if v, ok := values[k]; ok {
				pipe.Set(ctx, r.key(k), v, r.ttl)
			} else {
				pipe.Del(ctx, r.key(k))
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *RedisStore) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.keys()...).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
