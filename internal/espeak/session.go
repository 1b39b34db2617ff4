// Package espeak owns the process-global espeak-ng engine behind a Session.
//
// The engine is initialized once per process, streams audio through a single
// registered callback and keeps voice and parameter state globally. A Session
// is the only owner of that state while it is open: construct it once, defer
// Close, and do not share it between goroutines without external locking.
package espeak

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DataDirEnv names the environment variable holding the espeak-ng-data path.
const DataDirEnv = "ESPEAK_NG_DATA_DIR"

const defaultDataDir = "/usr/share/espeak-ng-data"

// active latches while a Session holds the engine.
var active atomic.Bool

// DefaultDataDir returns $ESPEAK_NG_DATA_DIR, falling back to the usual
// system install location.
func DefaultDataDir() string {
	if dir := strings.TrimSpace(os.Getenv(DataDirEnv)); dir != "" {
		return dir
	}
	return defaultDataDir
}

// Session is one initialization of the espeak-ng engine.
type Session struct {
	eng        engine
	sampleRate int
	dataDir    string
	log        *slog.Logger
	tracer     trace.Tracer

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

type options struct {
	logger *slog.Logger
	engine engine
}

// Option configures New.
type Option func(*options)

// WithLogger sets the logger used for lifecycle and synthesis events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func withEngine(e engine) Option {
	return func(o *options) { o.engine = e }
}

// New initializes the engine with the voice data in dataDir and registers the
// synth callback. Only one Session may be open per process; a failed New never
// leaves a usable Session behind.
func New(dataDir string, opts ...Option) (*Session, error) {
	o := options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&o)
	}

	info, err := os.Stat(dataDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDataDirNotFound, dataDir)
	}

	eng := o.engine
	if eng == nil {
		if eng, err = nativeEngine(); err != nil {
			return nil, err
		}
	}

	if !active.CompareAndSwap(false, true) {
		return nil, ErrAlreadyInitialized
	}
	rate := eng.Initialize(dataDir)
	if rate <= 0 {
		active.Store(false)
		return nil, fmt.Errorf("%w: engine returned %d for %s", ErrInitialize, rate, dataDir)
	}

	log := o.logger.With(slog.String("component", "espeak"))
	log.Info("espeak initialized", slog.String("data_dir", dataDir), slog.Int("sample_rate", rate))

	return &Session{
		eng:        eng,
		sampleRate: rate,
		dataDir:    dataDir,
		log:        log,
		tracer:     otel.Tracer("github.com/loqalabs/loqa-tts/internal/espeak"),
	}, nil
}

// MustNew is New for callers that treat a failed initialization as fatal.
func MustNew(dataDir string, opts ...Option) *Session {
	s, err := New(dataDir, opts...)
	if err != nil {
		panic(err.Error())
	}
	return s
}

// SampleRate is the engine output rate in Hz, fixed at initialization.
func (s *Session) SampleRate() int { return s.sampleRate }

// DataDir is the voice data directory the engine was initialized with.
func (s *Session) DataDir() string { return s.dataDir }

// Synthesize renders text and appends the mono 16-bit samples to *buf, after
// whatever it already holds. It blocks until the engine is done; ctx is only
// consulted before the engine is entered since the engine cannot be
// interrupted. On failure *buf is left as it was.
func (s *Session) Synthesize(ctx context.Context, text string, buf *[]int16) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if buf == nil {
		return ErrNilBuffer
	}
	if err := checkNul("synthesize", text); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	_, span := s.tracer.Start(ctx, "espeak.synthesize",
		trace.WithAttributes(attribute.Int("espeak.text_bytes", len(text))))
	defer span.End()

	before := len(*buf)
	start := time.Now()
	code, fragments := withSink(buf, func(userData uintptr) Status {
		return s.eng.Synth(text, userData)
	})
	added := len(*buf) - before
	span.SetAttributes(
		attribute.Int("espeak.fragments", fragments),
		attribute.Int("espeak.samples", added),
	)

	if err := statusError(code); err != nil {
		*buf = (*buf)[:before]
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.log.Warn("espeak synthesis failed", slog.String("error", err.Error()))
		return err
	}

	s.log.Debug("espeak synthesis complete",
		slog.Int("fragments", fragments),
		slog.Int("samples", added),
		slog.Duration("elapsed", time.Since(start)))
	return nil
}

// Voices lists the display names of the installed voices, in catalog order.
// The catalog is queried on every call.
func (s *Session) Voices() ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	entries, ok := s.eng.ListVoices()
	if !ok {
		return nil, ErrNoVoicesAvailable
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.named {
			continue
		}
		if err := checkUTF8("list voices", e.name); err != nil {
			return nil, err
		}
		names = append(names, e.name)
	}
	return names, nil
}

// SetVoice selects a voice by its case-sensitive display name. Unknown names
// fail with an EngineError wrapping ErrNotFound.
func (s *Session) SetVoice(name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := checkNul("set voice", name); err != nil {
		return err
	}
	if err := statusError(s.eng.SetVoiceByName(name)); err != nil {
		return err
	}
	s.log.Debug("espeak voice selected", slog.String("voice", name))
	return nil
}

// Voice returns the currently selected voice. ok is false until a voice has
// been chosen.
func (s *Session) Voice() (name string, ok bool, err error) {
	if err := s.checkOpen(); err != nil {
		return "", false, err
	}
	v, found := s.eng.CurrentVoice()
	if !found || !v.named {
		return "", false, nil
	}
	if err := checkUTF8("current voice", v.name); err != nil {
		return "", false, err
	}
	return v.name, true, nil
}

// SetParameter validates value against the range of p before writing it to
// the engine. It affects every later Synthesize call.
func (s *Session) SetParameter(p Parameter, value int) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := Validate(p, value); err != nil {
		return err
	}
	if err := statusError(s.eng.SetParameter(p, value)); err != nil {
		return err
	}
	s.log.Debug("espeak parameter set", slog.String("parameter", p.String()), slog.Int("value", value))
	return nil
}

// ParameterCurrent returns the live engine value of p. It returns 0 once the
// session is closed.
func (s *Session) ParameterCurrent(p Parameter) int {
	if s.closed.Load() {
		return 0
	}
	return s.eng.Parameter(p, true)
}

// ParameterDefault returns the engine baseline of p, unaffected by SetParameter.
func (s *Session) ParameterDefault(p Parameter) int {
	if s.closed.Load() {
		return 0
	}
	return s.eng.Parameter(p, false)
}

// Close tears the engine down. It runs the teardown exactly once; later calls
// return the first result and every other method returns ErrClosed.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = statusError(s.eng.Terminate())
		active.Store(false)
		if s.closeErr != nil {
			s.log.Warn("espeak terminate failed", slog.String("error", s.closeErr.Error()))
			return
		}
		s.log.Info("espeak terminated")
	})
	return s.closeErr
}

func (s *Session) checkOpen() error {
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func checkNul(op, text string) error {
	if i := strings.IndexByte(text, 0); i >= 0 {
		return &TextEncodingError{Op: op, Offset: i, Err: ErrEmbeddedNul}
	}
	return nil
}

func checkUTF8(op, text string) error {
	if utf8.ValidString(text) {
		return nil
	}
	offset := 0
	for offset < len(text) {
		r, size := utf8.DecodeRuneInString(text[offset:])
		if r == utf8.RuneError && size == 1 {
			break
		}
		offset += size
	}
	return &TextEncodingError{Op: op, Offset: offset, Err: ErrInvalidUTF8}
}
