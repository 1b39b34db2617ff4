package tts

import (
	"context"
	"time"
)

// mockSynth produces 10ms of silence per input byte.
type mockSynth struct {
	sampleRate int
	channels   int
}

func NewMockSynth(sampleRate, channels int) Synthesizer {
	return &mockSynth{sampleRate: sampleRate, channels: channels}
}

func (m *mockSynth) Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error) {
	chunks := make(chan SynthChunk, 1)
	errs := make(chan error, 1)
	go func() {
		defer close(chunks)
		defer close(errs)
		select {
		case <-ctx.Done():
			errs <- ctx.Err()
			return
		case <-time.After(20 * time.Millisecond):
		}
		samples := len(req.Text) * m.sampleRate / 100 * m.channels
		chunks <- SynthChunk{
			SessionID:  req.SessionID,
			Sequence:   0,
			SampleRate: m.sampleRate,
			Channels:   m.channels,
			PCM:        make([]byte, samples*2),
			Final:      true,
		}
	}()
	return chunks, errs
}

func (m *mockSynth) Voices(context.Context) ([]string, string, error) {
	return []string{"mock"}, "mock", nil
}
