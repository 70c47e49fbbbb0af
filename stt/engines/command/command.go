// Package command recognizes speech by running an external transcriber
// that records from the microphone and prints transcripts to stdout, one
// per line, as it recognizes them.
package command

import (
	"bufio"
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

	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"

	"github.com/dgnsrekt/voicectl/stt"
)

// ErrDestroyed is returned by StartListening after Destroy.
var ErrDestroyed = errors.New("recognizer has been destroyed")

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used by the engine.
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

type session struct {
	cancel context.CancelFunc

	// guarded by Engine.mu
	stopped  bool
	detached bool
}

// Engine implements stt.Engine by spawning one transcriber process per
// session. Listener events for a session are delivered from a single
// goroutine.
type Engine struct {
	cfg    stt.CommandConfig
	logger *log.Logger

	mu        sync.Mutex
	listener  stt.Listener
	session   *session
	destroyed bool
}

// New creates an engine running cfg.Binary with cfg.Args.
func New(cfg stt.CommandConfig, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		logger: log.Default().WithPrefix("stt-command"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) binary() (string, error) {
	path, err := homedir.Expand(e.cfg.Binary)
	if err != nil {
		return "", err
	}
	return exec.LookPath(path)
}

// Available implements stt.Engine.
func (e *Engine) Available() bool {
	e.mu.Lock()
	destroyed := e.destroyed
	e.mu.Unlock()
	if destroyed {
		return false
	}
	_, err := e.binary()
	if err != nil {
		e.logger.Debug("Transcriber not found", "binary", e.cfg.Binary, "err", err)
	}
	return err == nil
}

// SetListener implements stt.Engine.
func (e *Engine) SetListener(l stt.Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

// StartListening implements stt.Engine.
func (e *Engine) StartListening(req stt.Request) error {
	binary, err := e.binary()
	if err != nil {
		return fmt.Errorf("%w: %w", stt.ErrUnavailable, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.destroyed {
		return ErrDestroyed
	}
	if e.session != nil {
		return stt.ErrBusy
	}

	ctx, cancel := context.Background(), context.CancelFunc(func() {})
	if e.cfg.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, e.cfg.Timeout)
	}
	ctx, stop := context.WithCancel(ctx)
	cancelAll := func() {
		stop()
		cancel()
	}

	args := ExpandArgs(e.cfg.Args, req)
	cmd := exec.CommandContext(ctx, binary, args...)
	pr, pw := io.Pipe()
	var stderr bytes.Buffer
	cmd.Stdout = pw
	cmd.Stderr = &stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = 500 * time.Millisecond

	if err := cmd.Start(); err != nil {
		pw.Close()
		cancelAll()
		return fmt.Errorf("failed to start transcriber: %w", err)
	}
	e.logger.Debug("Transcriber started", "binary", binary, "args", args, "pid", cmd.Process.Pid)

	waitErr := make(chan error, 1)
	go func() {
		err := cmd.Wait()
		pw.Close()
		waitErr <- err
	}()

	s := &session{cancel: stop}
	e.session = s
	go func() {
		defer cancelAll()
		e.run(ctx, s, req, pr, waitErr, &stderr)
	}()
	return nil
}

func (e *Engine) run(ctx context.Context, s *session, req stt.Request, stdout io.Reader, waitErr <-chan error, stderr *bytes.Buffer) {
	e.emit(s, func(l stt.Listener) { l.OnReadyForSpeech() })

	var lines []string
	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == 1 {
			e.emit(s, func(l stt.Listener) { l.OnBeginningOfSpeech() })
		}
		if req.PartialResults {
			e.emit(s, func(l stt.Listener) { l.OnPartialResults([]string{line}) })
		}
	}
	// Drain so the copy goroutine is never blocked.
	_, _ = io.Copy(io.Discard, stdout)
	err := <-waitErr

	e.mu.Lock()
	if e.session == s {
		e.session = nil
	}
	stopped := s.stopped
	e.mu.Unlock()

	timedOut := !stopped && errors.Is(ctx.Err(), context.DeadlineExceeded)
	e.logger.Debug("Transcriber exited", "err", err, "lines", len(lines), "stopped", stopped, "timed_out", timedOut)
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		e.logger.Debug("Transcriber stderr", "output", msg)
	}

	e.emit(s, func(l stt.Listener) { l.OnEndOfSpeech() })

	switch {
	case timedOut:
		e.emit(s, func(l stt.Listener) { l.OnError(stt.ErrorSpeechTimeout) })
	case err != nil && !stopped:
		code := stt.ErrorClient
		if mentionsAudio(stderr.String()) {
			code = stt.ErrorAudio
		}
		e.emit(s, func(l stt.Listener) { l.OnError(code) })
	default:
		results := latest(lines, req.MaxResults)
		if len(results) == 0 {
			e.emit(s, func(l stt.Listener) { l.OnError(stt.ErrorNoMatch) })
			return
		}
		e.emit(s, func(l stt.Listener) { l.OnResults(results) })
	}
}

// emit delivers an event unless the session has been detached.
func (e *Engine) emit(s *session, fn func(stt.Listener)) {
	e.mu.Lock()
	l, detached := e.listener, s.detached
	e.mu.Unlock()
	if detached || l == nil {
		return
	}
	fn(l)
}

// StopListening implements stt.Engine. It interrupts the transcriber;
// whatever it printed so far is still delivered as results.
func (e *Engine) StopListening() error {
	e.mu.Lock()
	s := e.session
	if s != nil {
		s.stopped = true
	}
	e.mu.Unlock()

	if s != nil {
		s.cancel()
	}
	return nil
}

// Destroy implements stt.Engine. It interrupts any session, which then
// ends without further events.
func (e *Engine) Destroy() error {
	e.mu.Lock()
	e.destroyed = true
	e.listener = nil
	s := e.session
	if s != nil {
		s.stopped = true
		s.detached = true
	}
	e.mu.Unlock()

	if s != nil {
		s.cancel()
	}
	return nil
}

// ExpandArgs substitutes the request into args. Supported placeholders are
// {language}, {language_model} and {max_results}.
func ExpandArgs(args []string, req stt.Request) []string {
	r := strings.NewReplacer(
		"{language}", req.Language,
		"{language_model}", string(req.LanguageModel),
		"{max_results}", strconv.Itoa(req.MaxResults),
	)
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = r.Replace(a)
	}
	return out
}

// latest returns up to n lines, most recent first.
func latest(lines []string, n int) []string {
	if n < 1 {
		n = 1
	}
	var out []string
	for i := len(lines) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, lines[i])
	}
	return out
}

func mentionsAudio(stderr string) bool {
	s := strings.ToLower(stderr)
	return strings.Contains(s, "audio") || strings.Contains(s, "microphone")
}
