package audiocapture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Source opens a live encoded audio stream.
type Source interface {
	Open(ctx context.Context, format Format) (Stream, error)
}

// Stream yields encoded bytes until EOF.
// Stop ends capture and lets the encoder flush; Kill drops whatever is left.
type Stream interface {
	io.Reader
	Stop() error
	Kill() error
}

// FFmpegSource records from the system microphone with ffmpeg.
type FFmpegSource struct {
	config *Config
}

func NewFFmpegSource(config *Config) *FFmpegSource {
	return &FFmpegSource{config: config.withDefaults()}
}

func (s *FFmpegSource) args(format Format) []string {
	c := s.config
	args := []string{
		"-nostdin",
		"-hide_banner",
		"-loglevel", "warning",
		"-f", c.InputFormat,
		"-i", c.InputDevice,
	}
	if filters := filterChain(c); filters != "" {
		args = append(args, "-af", filters)
	}
	args = append(args,
		"-ac", strconv.Itoa(c.Channels),
		"-ar", strconv.Itoa(c.SampleRate),
		"-c:a", format.Encoder,
	)
	args = append(args, format.Extra...)
	return append(args, "-f", format.Container, "pipe:1")
}

func filterChain(c *Config) string {
	var filters []string
	if c.EchoCancellation {
		filters = append(filters, "highpass=f=100")
	}
	if c.NoiseSuppression {
		filters = append(filters, "afftdn")
	}
	return strings.Join(filters, ",")
}

func (s *FFmpegSource) Open(ctx context.Context, format Format) (Stream, error) {
	cmd := exec.Command(s.config.Command, s.args(format)...)

	pr, pw := io.Pipe()
	stderr := &lockedBuffer{}
	cmd.Stdout = pw
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		_ = pr.Close()
		return nil, fmt.Errorf("failed to start %s: %w", s.config.Command, err)
	}

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		_ = pw.Close()
		waitErr <- err
		close(waitErr)
	}()

	stream := &ffmpegStream{
		pr:      pr,
		process: cmd.Process,
		stderr:  stderr,
		waitErr: waitErr,
		grace:   s.config.StopGrace,
	}

	// Device failures make ffmpeg exit almost immediately.
	select {
	case err := <-waitErr:
		_ = pr.Close()
		if msg := stderr.String(); msg != "" {
			return nil, fmt.Errorf("recorder exited before capture started: %v: %s", err, msg)
		}
		return nil, fmt.Errorf("recorder exited before capture started: %v", err)
	case <-ctx.Done():
		_ = stream.Kill()
		return nil, ctx.Err()
	case <-time.After(250 * time.Millisecond):
	}

	return stream, nil
}

type ffmpegStream struct {
	pr      *io.PipeReader
	process *os.Process
	stderr  *lockedBuffer
	waitErr <-chan error
	grace   time.Duration

	once    sync.Once
	stopErr error
}

func (s *ffmpegStream) Read(p []byte) (int, error) {
	return s.pr.Read(p)
}

// Stop interrupts ffmpeg so it writes the container trailer, then kills it after the grace period.
// The reader keeps draining while this runs.
func (s *ffmpegStream) Stop() error {
	s.once.Do(func() {
		_ = s.process.Signal(os.Interrupt)

		select {
		case err, ok := <-s.waitErr:
			if ok {
				s.stopErr = normalizeExitErr(err)
			}
		case <-time.After(s.grace):
			_ = s.process.Kill()
			_ = s.pr.Close()
			if err, ok := <-s.waitErr; ok {
				s.stopErr = normalizeExitErr(err)
			}
		}

		if s.stopErr != nil {
			if msg := s.stderr.String(); msg != "" {
				s.stopErr = fmt.Errorf("%w: %s", s.stopErr, msg)
			}
		}
	})
	return s.stopErr
}

func (s *ffmpegStream) Kill() error {
	s.once.Do(func() {
		_ = s.pr.Close()
		_ = s.process.Kill()
		if err, ok := <-s.waitErr; ok {
			s.stopErr = normalizeExitErr(err)
		}
	})
	return s.stopErr
}

// normalizeExitErr treats a non-zero exit after a signal as a clean stop.
func normalizeExitErr(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	if errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.TrimSpace(b.buf.String())
}
