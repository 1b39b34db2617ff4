package tts

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/loqalabs/loqa-tts/internal/audio"
	"github.com/loqalabs/loqa-tts/internal/config"
	"github.com/loqalabs/loqa-tts/internal/espeak"
)

// Speaker is the part of *espeak.Session the espeak backend drives.
type Speaker interface {
	SampleRate() int
	Voices() ([]string, error)
	Voice() (string, bool, error)
	SetVoice(name string) error
	SetParameter(p espeak.Parameter, value int) error
	ParameterCurrent(p espeak.Parameter) int
	Synthesize(ctx context.Context, text string, buf *[]int16) error
	Close() error
}

// engineDefaultVoice is what espeak-ng speaks with before any voice is selected.
const engineDefaultVoice = "English (Great Britain)"

// EspeakSynth serves requests from a single espeak session. The engine is
// global and cannot be interrupted, so every engine call holds mu and runs on
// a worker goroutine; a cancelled request stops waiting while the worker
// finishes in the background.
type EspeakSynth struct {
	speaker      Speaker
	chunkSamples int
	baseVoice    string
	mu           sync.Mutex
	closed       bool
	log          *slog.Logger
}

// NewEspeakSynth applies the configured voice and parameters to speaker.
func NewEspeakSynth(speaker Speaker, cfg config.TTSConfig, log *slog.Logger) (*EspeakSynth, error) {
	if cfg.Voice != "" {
		if err := speaker.SetVoice(cfg.Voice); err != nil {
			return nil, fmt.Errorf("select voice %q: %w", cfg.Voice, err)
		}
	}
	for _, p := range espeak.Parameters() {
		value, ok := cfg.Parameters.Values()[p]
		if !ok {
			continue
		}
		if err := speaker.SetParameter(p, value); err != nil {
			return nil, fmt.Errorf("set %s: %w", p, err)
		}
	}

	chunkSamples := speaker.SampleRate() * cfg.ChunkDurationMS / 1000
	if chunkSamples <= 0 {
		chunkSamples = speaker.SampleRate()
	}
	return &EspeakSynth{
		speaker:      speaker,
		chunkSamples: chunkSamples,
		baseVoice:    baselineVoice(speaker, cfg.Voice),
		log:          log.With(slog.String("component", "tts-espeak")),
	}, nil
}

// baselineVoice is the voice a per-request override is undone to when no
// voice was selected before the request.
func baselineVoice(speaker Speaker, configured string) string {
	if configured != "" {
		return configured
	}
	if current, ok, err := speaker.Voice(); err == nil && ok {
		return current
	}
	voices, err := speaker.Voices()
	if err == nil && slices.Contains(voices, engineDefaultVoice) {
		return engineDefaultVoice
	}
	return ""
}

// Close waits for an engine call still running on an abandoned request, then
// closes the session. Later requests fail with espeak.ErrClosed.
func (e *EspeakSynth) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.speaker.Close()
}

func (e *EspeakSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)

		samples, err := e.render(ctx, req)
		if err != nil {
			errs <- err
			return
		}
		if err := e.emit(ctx, req.SessionID, samples, chunks); err != nil {
			errs <- err
		}
	}()
	return chunks, errs
}

// SampleRate is the engine output rate.
func (e *EspeakSynth) SampleRate() int { return e.speaker.SampleRate() }

// Voices lists the engine catalog and the selected voice.
func (e *EspeakSynth) Voices(ctx context.Context) ([]string, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, "", espeak.ErrClosed
	}

	voices, err := e.speaker.Voices()
	if err != nil {
		return nil, "", err
	}
	current, _, err := e.speaker.Voice()
	if err != nil {
		return nil, "", err
	}
	return voices, current, nil
}

type renderResult struct {
	samples []int16
	err     error
}

func (e *EspeakSynth) render(ctx context.Context, req SynthRequest) ([]int16, error) {
	done := make(chan renderResult, 1)
	go func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		samples, err := e.renderLocked(ctx, req)
		done <- renderResult{samples: samples, err: err}
	}()

	select {
	case r := <-done:
		return r.samples, r.err
	case <-ctx.Done():
		e.log.Warn("espeak request abandoned, engine call still running",
			slog.String("session_id", req.SessionID))
		return nil, ctx.Err()
	}
}

func (e *EspeakSynth) renderLocked(ctx context.Context, req SynthRequest) ([]int16, error) {
	if e.closed {
		return nil, espeak.ErrClosed
	}
	restore, err := e.apply(req)
	if err != nil {
		return nil, err
	}
	defer restore()

	var buf []int16
	if err := e.speaker.Synthesize(ctx, req.Text, &buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// apply switches to the per-request voice and parameters. The returned func
// puts the previous engine state back.
func (e *EspeakSynth) apply(req SynthRequest) (func(), error) {
	var undo []func()
	restore := func() {
		for i := len(undo) - 1; i >= 0; i-- {
			undo[i]()
		}
	}

	if req.Voice != "" {
		prev, hadVoice, err := e.speaker.Voice()
		if err != nil {
			return nil, err
		}
		if !hadVoice || prev != req.Voice {
			if err := e.speaker.SetVoice(req.Voice); err != nil {
				return nil, fmt.Errorf("select voice %q: %w", req.Voice, err)
			}
			back := prev
			if !hadVoice {
				back = e.baseVoice
			}
			if back != "" {
				undo = append(undo, func() { e.restoreVoice(back) })
			}
		}
	}

	overrides := []struct {
		param espeak.Parameter
		value int
	}{
		{espeak.Speed, req.Speed},
		{espeak.Pitch, req.Pitch},
	}
	for _, o := range overrides {
		if o.value == 0 {
			continue
		}
		prev := e.speaker.ParameterCurrent(o.param)
		if err := e.speaker.SetParameter(o.param, o.value); err != nil {
			restore()
			return nil, err
		}
		param := o.param
		undo = append(undo, func() { e.restoreParameter(param, prev) })
	}
	return restore, nil
}

func (e *EspeakSynth) restoreVoice(name string) {
	if err := e.speaker.SetVoice(name); err != nil {
		e.log.Warn("failed to restore voice", slog.String("voice", name), slogError(err))
	}
}

func (e *EspeakSynth) restoreParameter(p espeak.Parameter, value int) {
	if err := e.speaker.SetParameter(p, value); err != nil {
		e.log.Warn("failed to restore parameter", slog.String("parameter", p.String()), slogError(err))
	}
}

func (e *EspeakSynth) emit(ctx context.Context, sessionID string, samples []int16, out chan<- SynthChunk) error {
	rate := e.speaker.SampleRate()
	sequence := 0
	for offset := 0; ; offset += e.chunkSamples {
		end := min(offset+e.chunkSamples, len(samples))
		chunk := SynthChunk{
			SessionID:  sessionID,
			Sequence:   sequence,
			SampleRate: rate,
			Channels:   1,
			PCM:        audio.PCM16LE(samples[offset:end]),
			Final:      end == len(samples),
		}
		select {
		case out <- chunk:
		case <-ctx.Done():
			return ctx.Err()
		}
		if chunk.Final {
			return nil
		}
		sequence++
	}
}
