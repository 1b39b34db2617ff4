package tts

import "context"

// SynthRequest contains parameters to synthesize speech. Zero Speed and Pitch
// keep the backend's configured values.
type SynthRequest struct {
	SessionID string
	Text      string
	Voice     string
	Speed     int
	Pitch     int
}

// SynthChunk contains 16-bit little-endian PCM.
type SynthChunk struct {
	SessionID  string
	Sequence   int
	SampleRate int
	Channels   int
	PCM        []byte
	Final      bool
}

// Synthesizer is the contract for producing audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, req SynthRequest) (<-chan SynthChunk, <-chan error)
}

// VoiceCatalog is implemented by synthesizers that can list their voices.
type VoiceCatalog interface {
	Voices(ctx context.Context) (voices []string, current string, err error)
}
