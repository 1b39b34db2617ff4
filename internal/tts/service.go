package tts

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/loqalabs/loqa-tts/internal/bus"
	"github.com/loqalabs/loqa-tts/internal/config"
	"github.com/loqalabs/loqa-tts/internal/eventstore"
	"github.com/loqalabs/loqa-tts/internal/protocol"
	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Service struct {
	cfg       config.TTSConfig
	bus       *bus.Client
	synth     Synthesizer
	store     *eventstore.Store
	sub       *nats.Subscription
	voicesSub *nats.Subscription
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.Mutex
	closing   bool
	wg        sync.WaitGroup
	logger    *slog.Logger
	metrics   serviceMetrics
}

type serviceMetrics struct {
	requests metric.Int64Counter
	failures metric.Int64Counter
	samples  metric.Int64Counter
	latency  metric.Float64Histogram
}

// NewService wires synth to the bus. store may be nil to skip auditing.
func NewService(parent context.Context, cfg config.TTSConfig, busClient *bus.Client, synth Synthesizer, store *eventstore.Store, log *slog.Logger) *Service {
	ctx, cancel := context.WithCancel(parent)
	s := &Service{
		cfg:    cfg,
		bus:    busClient,
		synth:  synth,
		store:  store,
		ctx:    ctx,
		cancel: cancel,
		logger: log.With(slog.String("component", "tts-service")),
	}
	if err := s.initMetrics(); err != nil {
		s.logger.Warn("failed to initialize metrics", slogError(err))
	}
	return s
}

func (s *Service) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	sub, err := s.bus.Conn().Subscribe(protocol.SubjectTTSRequest, s.handleRequest)
	if err != nil {
		return err
	}
	s.sub = sub

	if _, ok := s.synth.(VoiceCatalog); ok {
		voicesSub, err := s.bus.Conn().Subscribe(protocol.SubjectTTSVoices, s.handleVoices)
		if err != nil {
			_ = s.sub.Drain()
			return err
		}
		s.voicesSub = voicesSub
	}
	return nil
}

// Close stops accepting requests and waits for the ones in flight.
func (s *Service) Close() {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	s.cancel()
	if s.sub != nil {
		_ = s.sub.Unsubscribe()
	}
	if s.voicesSub != nil {
		_ = s.voicesSub.Unsubscribe()
	}
	s.wg.Wait()
}

func (s *Service) Healthy() bool { return !s.cfg.Enabled || s.sub != nil }

func (s *Service) handleRequest(msg *nats.Msg) {
	var req protocol.TTSRequest
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		s.logger.Warn("failed to decode tts request", slogError(err))
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.process(req)
	}()
}

func (s *Service) process(req protocol.TTSRequest) {
	timeout := time.Duration(s.cfg.TimeoutMS) * time.Millisecond
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	started := time.Now()
	attrs := metric.WithAttributes(attribute.String("voice", req.Voice))
	s.metrics.addRequest(ctx, attrs)

	chunks, errs := s.synth.Synthesize(ctx, SynthRequest{
		SessionID: req.SessionID,
		Text:      req.Text,
		Voice:     req.Voice,
		Speed:     req.Speed,
		Pitch:     req.Pitch,
	})
	var (
		sequence   int
		samples    int
		sampleRate int
		synthErr   error
	)
loop:
	for chunks != nil || errs != nil {
		select {
		case chunk, ok := <-chunks:
			if !ok {
				chunks = nil
				continue
			}
			chunk.Sequence = sequence
			sequence++
			samples += len(chunk.PCM) / 2
			sampleRate = chunk.SampleRate
			s.publishChunk(req, chunk)
		case err, ok := <-errs:
			if ok && err != nil {
				synthErr = err
			}
			errs = nil
		case <-ctx.Done():
			synthErr = ctx.Err()
			break loop
		}
	}

	elapsed := time.Since(started)
	if synthErr != nil {
		s.logger.Warn("tts synthesis error", slog.String("session_id", req.SessionID), slogError(synthErr))
		s.metrics.addFailure(ctx, attrs)
	} else {
		s.metrics.addSamples(ctx, int64(samples), attrs)
	}
	s.metrics.recordLatency(ctx, elapsed, attrs)
	s.publishStatus(req, samples, synthErr)
	s.record(req, samples, sampleRate, elapsed, synthErr)
}

func (s *Service) publishChunk(req protocol.TTSRequest, chunk SynthChunk) {
	packet := protocol.AudioChunk{
		SessionID:  req.SessionID,
		Target:     req.Target,
		SampleRate: chunk.SampleRate,
		Channels:   chunk.Channels,
		Sequence:   chunk.Sequence,
		PCM:        chunk.PCM,
		Final:      chunk.Final,
	}
	if err := s.bus.PublishJSON(protocol.SubjectTTSAudio, packet); err != nil {
		s.logger.Warn("failed to publish tts chunk", slogError(err))
	}
}

func (s *Service) publishStatus(req protocol.TTSRequest, samples int, synthErr error) {
	status := protocol.TTSStatus{
		SessionID: req.SessionID,
		Target:    req.Target,
		Completed: synthErr == nil,
		Samples:   samples,
		Timestamp: time.Now().UTC(),
	}
	if synthErr != nil {
		status.Error = synthErr.Error()
	}
	if err := s.bus.PublishJSON(protocol.SubjectTTSDone, status); err != nil {
		s.logger.Warn("failed to publish tts status", slogError(err))
	}
}

func (s *Service) record(req protocol.TTSRequest, samples, sampleRate int, elapsed time.Duration, synthErr error) {
	if s.store == nil {
		return
	}
	rec := eventstore.Record{
		SessionID:  req.SessionID,
		TraceID:    req.TraceID,
		Voice:      req.Voice,
		Target:     req.Target,
		TextLength: len(req.Text),
		Samples:    samples,
		SampleRate: sampleRate,
		Status:     eventstore.StatusCompleted,
		Duration:   elapsed,
	}
	if synthErr != nil {
		rec.Status = eventstore.StatusFailed
		if errors.Is(synthErr, context.Canceled) || errors.Is(synthErr, context.DeadlineExceeded) {
			rec.Status = eventstore.StatusCancelled
		}
		rec.Error = synthErr.Error()
	}
	// the request context may already be done; the audit write gets its own
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.Append(ctx, rec); err != nil {
		s.logger.Warn("failed to record tts job", slogError(err))
	}
}

func (s *Service) handleVoices(msg *nats.Msg) {
	catalog, ok := s.synth.(VoiceCatalog)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Second)
	defer cancel()

	var reply protocol.VoiceList
	voices, current, err := catalog.Voices(ctx)
	if err != nil {
		reply.Error = err.Error()
	} else {
		reply.Voices = voices
		reply.Current = current
	}
	data, err := json.Marshal(reply)
	if err != nil {
		s.logger.Warn("failed to marshal voice list", slogError(err))
		return
	}
	if err := msg.Respond(data); err != nil {
		s.logger.Warn("failed to respond with voice list", slogError(err))
	}
}

func (s *Service) initMetrics() error {
	meter := otel.Meter("github.com/loqalabs/loqa-tts/internal/tts")
	var err error
	if s.metrics.requests, err = meter.Int64Counter("loqa.tts.requests",
		metric.WithDescription("Synthesis requests received")); err != nil {
		return err
	}
	if s.metrics.failures, err = meter.Int64Counter("loqa.tts.failures",
		metric.WithDescription("Synthesis requests that failed or timed out")); err != nil {
		return err
	}
	if s.metrics.samples, err = meter.Int64Counter("loqa.tts.samples",
		metric.WithDescription("PCM samples produced")); err != nil {
		return err
	}
	s.metrics.latency, err = meter.Float64Histogram("loqa.tts.duration",
		metric.WithDescription("Time from request to final chunk"), metric.WithUnit("ms"))
	return err
}

func (m serviceMetrics) addRequest(ctx context.Context, opts ...metric.AddOption) {
	if m.requests != nil {
		m.requests.Add(ctx, 1, opts...)
	}
}

func (m serviceMetrics) addFailure(ctx context.Context, opts ...metric.AddOption) {
	if m.failures != nil {
		m.failures.Add(ctx, 1, opts...)
	}
}

func (m serviceMetrics) addSamples(ctx context.Context, n int64, opts ...metric.AddOption) {
	if m.samples != nil {
		m.samples.Add(ctx, n, opts...)
	}
}

func (m serviceMetrics) recordLatency(ctx context.Context, d time.Duration, opts ...metric.RecordOption) {
	if m.latency != nil {
		m.latency.Record(ctx, float64(d.Microseconds())/1000, opts...)
	}
}

func slogError(err error) slog.Attr {
	return slog.String("error", err.Error())
}
