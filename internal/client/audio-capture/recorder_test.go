package audiocapture

import (
	"context"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"craftconnect/internal/common/logger"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeStream struct {
	mu      sync.Mutex
	data    []byte
	trailer []byte
	done    chan struct{}
	once    sync.Once
	stopped bool
	killed  bool
}

func newFakeStream(data string) *fakeStream {
	return &fakeStream{data: []byte(data), trailer: []byte("|trailer"), done: make(chan struct{})}
}

func (s *fakeStream) Read(p []byte) (int, error) {
	for {
		s.mu.Lock()
		if len(s.data) > 0 {
			n := copy(p, s.data)
			s.data = s.data[n:]
			s.mu.Unlock()
			return n, nil
		}
		s.mu.Unlock()

		<-s.done
		s.mu.Lock()
		empty := len(s.data) == 0
		s.mu.Unlock()
		if empty {
			return 0, io.EOF
		}
	}
}

func (s *fakeStream) wasStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

func (s *fakeStream) wasKilled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.killed
}

func (s *fakeStream) Stop() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.stopped = true
		s.data = append(s.data, s.trailer...)
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

func (s *fakeStream) Kill() error {
	s.once.Do(func() {
		s.mu.Lock()
		s.killed = true
		s.data = nil
		s.mu.Unlock()
		close(s.done)
	})
	return nil
}

type fakeSource struct {
	stream  *fakeStream
	err     error
	opened  int
	formats []Format
}

func (f *fakeSource) Open(ctx context.Context, format Format) (Stream, error) {
	f.opened++
	f.formats = append(f.formats, format)
	if f.err != nil {
		return nil, f.err
	}
	return f.stream, nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func createTestConfig() *Config {
	return &Config{
		MinDuration:   10 * time.Second,
		ChunkInterval: time.Second,
	}
}

func newTestRecorder(t *testing.T, source Source) (*Recorder, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	rec := NewRecorder(createTestConfig(), source, preferredFormats[0], logger.NewTestLogger(t))
	rec.now = clock.Now
	return rec, clock
}

// ==========================
// State Machine Tests
// ==========================

func TestRecorder_StopAfterMinimumDuration(t *testing.T) {
	source := &fakeSource{stream: newFakeStream("opus-frames")}
	rec, clock := newTestRecorder(t, source)

	require.NoError(t, rec.Start(context.Background()))
	assert.Equal(t, StateCapturing, rec.State())

	clock.Advance(12 * time.Second)
	assert.Equal(t, 12*time.Second, rec.Elapsed())

	recording, err := rec.Stop(context.Background())
	require.NoError(t, err)

	assert.Equal(t, StateReady, rec.State())
	assert.Equal(t, "opus-frames|trailer", string(recording.Data))
	assert.Equal(t, "audio/webm;codecs=opus", recording.MimeType)
	assert.InDelta(t, 12.0, recording.DurationSeconds, 0.001)
	assert.True(t, source.stream.wasStopped())
	assert.False(t, source.stream.wasKilled())

	got, ready := rec.Recording()
	assert.True(t, ready)
	assert.Same(t, recording, got)
}

func TestRecorder_StopTooEarlyKeepsCapturing(t *testing.T) {
	source := &fakeSource{stream: newFakeStream("opus")}
	rec, clock := newTestRecorder(t, source)

	require.NoError(t, rec.Start(context.Background()))
	clock.Advance(9 * time.Second)

	recording, err := rec.Stop(context.Background())
	assert.Nil(t, recording)
	assert.ErrorIs(t, err, ErrRecordingTooShort)
	assert.Equal(t, StateCapturing, rec.State())
	assert.False(t, source.stream.wasStopped())

	clock.Advance(time.Second)
	recording, err = rec.Stop(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, recording.Data)
}

func TestRecorder_MicrophoneUnavailable(t *testing.T) {
	source := &fakeSource{err: errors.New("pulse: connection refused")}
	rec, _ := newTestRecorder(t, source)

	err := rec.Start(context.Background())

	assert.ErrorIs(t, err, ErrMicrophoneUnavailable)
	assert.Equal(t, StateIdle, rec.State())
}

func TestRecorder_InvalidTransitions(t *testing.T) {
	source := &fakeSource{stream: newFakeStream("opus")}
	rec, _ := newTestRecorder(t, source)

	_, err := rec.Stop(context.Background())
	assert.ErrorIs(t, err, ErrNotCapturing)

	require.NoError(t, rec.Start(context.Background()))
	assert.ErrorIs(t, rec.Start(context.Background()), ErrAlreadyCapturing)
	assert.Equal(t, 1, source.opened)

	rec.Abort()
}

func TestRecorder_AbortReleasesStream(t *testing.T) {
	source := &fakeSource{stream: newFakeStream("opus")}
	rec, _ := newTestRecorder(t, source)

	require.NoError(t, rec.Start(context.Background()))
	rec.Abort()

	assert.Equal(t, StateIdle, rec.State())
	assert.True(t, source.stream.wasKilled())
	_, ready := rec.Recording()
	assert.False(t, ready)
	assert.Zero(t, rec.Elapsed())
}

func TestRecorder_ContextCancellationAborts(t *testing.T) {
	source := &fakeSource{stream: newFakeStream("opus")}
	rec, _ := newTestRecorder(t, source)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, rec.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool { return rec.State() == StateIdle }, time.Second, 5*time.Millisecond)
	assert.True(t, source.stream.wasKilled())
}

func TestRecorder_StartFromReadyDiscardsPrevious(t *testing.T) {
	first := newFakeStream("first")
	source := &fakeSource{stream: first}
	rec, clock := newTestRecorder(t, source)

	require.NoError(t, rec.Start(context.Background()))
	clock.Advance(11 * time.Second)
	_, err := rec.Stop(context.Background())
	require.NoError(t, err)

	source.stream = newFakeStream("second")
	require.NoError(t, rec.Start(context.Background()))
	_, ready := rec.Recording()
	assert.False(t, ready)
	require.NoError(t, rec.Close())
	assert.Equal(t, StateIdle, rec.State())
}

func TestRecorder_EmptyCapture(t *testing.T) {
	stream := newFakeStream("")
	stream.trailer = nil
	rec, clock := newTestRecorder(t, &fakeSource{stream: stream})

	require.NoError(t, rec.Start(context.Background()))
	clock.Advance(15 * time.Second)

	_, err := rec.Stop(context.Background())
	assert.ErrorIs(t, err, ErrEmptyRecording)
	assert.Equal(t, StateIdle, rec.State())
}

// ==========================
// Format Negotiation Tests
// ==========================

const encodersOutput = `Encoders:
 V..... = Video
 A..... = Audio
 ------
 V....D libx264              libx264 H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10 (codec h264)
 A....D aac                  AAC (Advanced Audio Coding)
 A....D libvorbis            libvorbis (codec vorbis)
 A....D libopus              libopus Opus (codec opus)
`

func TestParseEncoders(t *testing.T) {
	encoders := parseEncoders(encodersOutput)

	assert.True(t, encoders["libopus"])
	assert.True(t, encoders["aac"])
	assert.False(t, encoders["libx264"])
	assert.False(t, encoders["Audio"])
}

func TestNegotiateFormat(t *testing.T) {
	tests := []struct {
		name     string
		encoders map[string]bool
		expected string
		err      error
	}{
		{"opus available", map[string]bool{"libopus": true, "libvorbis": true, "aac": true}, "audio/webm;codecs=opus", nil},
		{"vorbis fallback", map[string]bool{"libvorbis": true, "aac": true}, "audio/webm", nil},
		{"mp4 fallback", map[string]bool{"aac": true}, "audio/mp4", nil},
		{"nothing usable", map[string]bool{"pcm_s16le": true}, "", ErrNoSupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			format, err := NegotiateFormat(tt.encoders)
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, format.MimeType)
		})
	}
}

func TestFFmpegArgs(t *testing.T) {
	cfg := createTestConfig()
	cfg.NoiseSuppression = true
	cfg.EchoCancellation = true
	source := NewFFmpegSource(cfg)

	args := source.args(preferredFormats[0])

	assert.Contains(t, args, "highpass=f=100,afftdn")
	assert.Contains(t, args, "libopus")
	assert.Contains(t, args, "48000")
	assert.Equal(t, []string{"-f", "webm", "pipe:1"}, args[len(args)-3:])
}

// ==========================
// File Import Tests
// ==========================

func writeWAV(t *testing.T, seconds int) string {
	t.Helper()
	const sampleRate, channels, bits = 8000, 1, 16
	dataSize := uint32(seconds * sampleRate * channels * bits / 8)

	path := filepath.Join(t.TempDir(), "memo.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	le := binary.LittleEndian
	write := func(v interface{}) { require.NoError(t, binary.Write(f, le, v)) }

	_, _ = f.Write([]byte("RIFF"))
	write(uint32(36 + dataSize))
	_, _ = f.Write([]byte("WAVEfmt "))
	write(uint32(16))
	write(uint16(1))
	write(uint16(channels))
	write(uint32(sampleRate))
	write(uint32(sampleRate * channels * bits / 8))
	write(uint16(channels * bits / 8))
	write(uint16(bits))
	_, _ = f.Write([]byte("data"))
	write(dataSize)
	_, err = f.Write(make([]byte, dataSize))
	require.NoError(t, err)
	return path
}

func TestFromFile_WAVDurationFromHeader(t *testing.T) {
	path := writeWAV(t, 12)

	rec, err := FromFile(path, "", 0)
	require.NoError(t, err)

	assert.Equal(t, "audio/wav", rec.MimeType)
	assert.InDelta(t, 12.0, rec.DurationSeconds, 0.01)
	assert.NoError(t, CheckDuration(rec, 10*time.Second))
}

func TestFromFile_ShortWAVIsRefused(t *testing.T) {
	rec, err := FromFile(writeWAV(t, 3), "", 0)
	require.NoError(t, err)

	assert.ErrorIs(t, CheckDuration(rec, 10*time.Second), ErrRecordingTooShort)
}

func TestFromFile_OtherFormatsNeedDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memo.webm")
	require.NoError(t, os.WriteFile(path, []byte("opus"), 0o600))

	_, err := FromFile(path, "", 0)
	assert.ErrorIs(t, err, ErrUnknownDuration)

	rec, err := FromFile(path, "", 14*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "audio/webm", rec.MimeType)
	assert.Equal(t, 14*time.Second, rec.Duration())
}
