// Package audiocapture records a voice memo from the local microphone.
package audiocapture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"craftconnect/internal/common/logger"
	"craftconnect/internal/models"
)

var (
	ErrRecordingTooShort     = errors.New("RECORDING_TOO_SHORT")
	ErrMicrophoneUnavailable = errors.New("MICROPHONE_UNAVAILABLE")
	ErrNotCapturing          = errors.New("NOT_CAPTURING")
	ErrAlreadyCapturing      = errors.New("ALREADY_CAPTURING")
	ErrEmptyRecording        = errors.New("EMPTY_RECORDING")
)

type State int

const (
	StateIdle State = iota
	StateCapturing
	StateStopping
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCapturing:
		return "capturing"
	case StateStopping:
		return "stopping"
	case StateReady:
		return "ready"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recorder drives one capture at a time through Idle, Capturing, Stopping and Ready.
type Recorder struct {
	config *Config
	source Source
	format Format
	logger logger.Logger
	now    func() time.Time

	mu        sync.Mutex
	state     State
	stream    Stream
	started   time.Time
	chunks    [][]byte
	pumpDone  chan struct{}
	pumpErr   error
	cancel    context.CancelFunc
	recording *models.AudioRecording
}

func NewRecorder(config *Config, source Source, format Format, log logger.Logger) *Recorder {
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	return &Recorder{
		config: config.withDefaults(),
		source: source,
		format: format,
		logger: log.With(map[string]interface{}{"component": "recorder", "mimeType": format.MimeType}),
		now:    time.Now,
		state:  StateIdle,
	}
}

func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Recorder) MimeType() string {
	return r.format.MimeType
}

// Elapsed is the time since capture started, or zero when not capturing.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state != StateCapturing && r.state != StateStopping {
		return 0
	}
	return r.now().Sub(r.started)
}

// Chunks reports how many encoded chunks have been sealed so far.
func (r *Recorder) Chunks() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.chunks)
}

// Recording returns the finished recording once the recorder is Ready.
func (r *Recorder) Recording() (*models.AudioRecording, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording, r.state == StateReady
}

// Start opens the microphone. Starting from Ready discards the previous recording.
// Cancelling ctx aborts the capture.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StateCapturing, StateStopping:
		return ErrAlreadyCapturing
	case StateReady:
		r.recording = nil
		r.state = StateIdle
	}

	stream, err := r.source.Open(ctx, r.format)
	if err != nil {
		r.logger.Warn("microphone unavailable", map[string]interface{}{"error": err.Error()})
		return fmt.Errorf("%w: %w", ErrMicrophoneUnavailable, err)
	}

	watchCtx, cancel := context.WithCancel(ctx)
	r.stream = stream
	r.started = r.now()
	r.chunks = nil
	r.pumpErr = nil
	r.pumpDone = make(chan struct{})
	r.cancel = cancel
	r.state = StateCapturing

	go r.pump(stream, r.pumpDone)
	go r.watch(watchCtx, r.pumpDone)

	r.logger.Info("capture started", nil)
	return nil
}

func (r *Recorder) watch(ctx context.Context, done <-chan struct{}) {
	select {
	case <-ctx.Done():
		if r.State() == StateCapturing {
			r.logger.Info("capture cancelled", nil)
			r.Abort()
		}
	case <-done:
	}
}

// pump reads the stream and seals a chunk every ChunkInterval.
func (r *Recorder) pump(stream Stream, done chan<- struct{}) {
	defer close(done)

	var current bytes.Buffer
	sealed := r.now()
	buf := make([]byte, 32*1024)

	seal := func() {
		if current.Len() == 0 {
			return
		}
		chunk := make([]byte, current.Len())
		copy(chunk, current.Bytes())
		current.Reset()
		r.mu.Lock()
		r.chunks = append(r.chunks, chunk)
		r.mu.Unlock()
	}

	for {
		n, err := stream.Read(buf)
		if n > 0 {
			current.Write(buf[:n])
			if r.now().Sub(sealed) >= r.config.ChunkInterval {
				seal()
				sealed = r.now()
			}
		}
		if err != nil {
			seal()
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
				r.mu.Lock()
				r.pumpErr = err
				r.mu.Unlock()
			}
			return
		}
	}
}

// Stop finishes the capture. Before the minimum duration it returns ErrRecordingTooShort and keeps capturing.
func (r *Recorder) Stop(ctx context.Context) (*models.AudioRecording, error) {
	r.mu.Lock()
	if r.state != StateCapturing {
		r.mu.Unlock()
		return nil, ErrNotCapturing
	}
	elapsed := r.now().Sub(r.started)
	if elapsed < r.config.MinDuration {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: %.1fs recorded, at least %.0fs required",
			ErrRecordingTooShort, elapsed.Seconds(), r.config.MinDuration.Seconds())
	}
	r.state = StateStopping
	r.mu.Unlock()

	return r.finalize(ctx, elapsed)
}

// finalize releases the recorder process and assembles the recording.
func (r *Recorder) finalize(ctx context.Context, elapsed time.Duration) (*models.AudioRecording, error) {
	r.mu.Lock()
	stream, done, cancel := r.stream, r.pumpDone, r.cancel
	r.mu.Unlock()

	stopErr := stream.Stop()

	select {
	case <-done:
	case <-ctx.Done():
		_ = stream.Kill()
		<-done
		r.reset()
		return nil, ctx.Err()
	}
	cancel()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.stream = nil
	r.cancel = nil

	var data bytes.Buffer
	for _, c := range r.chunks {
		data.Write(c)
	}
	chunks := len(r.chunks)
	r.chunks = nil

	if data.Len() == 0 {
		r.state = StateIdle
		if stopErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmptyRecording, stopErr)
		}
		if r.pumpErr != nil {
			return nil, fmt.Errorf("%w: %w", ErrEmptyRecording, r.pumpErr)
		}
		return nil, ErrEmptyRecording
	}
	if stopErr != nil {
		r.logger.Warn("recorder did not stop cleanly", map[string]interface{}{"error": stopErr.Error()})
	}

	r.recording = &models.AudioRecording{
		Data:            data.Bytes(),
		MimeType:        r.format.MimeType,
		DurationSeconds: elapsed.Seconds(),
	}
	r.state = StateReady

	r.logger.Info("capture finished", map[string]interface{}{
		"bytes":    data.Len(),
		"chunks":   chunks,
		"duration": elapsed.Seconds(),
	})
	return r.recording, nil
}

// Abort drops any capture in progress and returns to Idle.
func (r *Recorder) Abort() {
	r.mu.Lock()
	stream, done := r.stream, r.pumpDone
	r.mu.Unlock()

	if stream != nil {
		_ = stream.Kill()
		if done != nil {
			<-done
		}
	}
	r.reset()
}

func (r *Recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
	r.stream = nil
	r.cancel = nil
	r.chunks = nil
	r.recording = nil
	r.pumpErr = nil
	r.state = StateIdle
}

func (r *Recorder) Close() error {
	r.Abort()
	return nil
}
