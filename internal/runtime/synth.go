package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/loqalabs/loqa-tts/internal/config"
	"github.com/loqalabs/loqa-tts/internal/espeak"
	"github.com/loqalabs/loqa-tts/internal/protocol"
	"github.com/loqalabs/loqa-tts/internal/tts"
)

// buildSynth creates the backend selected by cfg.Mode. The returned func
// releases whatever the backend holds and is safe to call once.
func buildSynth(cfg config.TTSConfig, logger *slog.Logger) (tts.Synthesizer, func(), error) {
	noop := func() {}
	switch cfg.Mode {
	case "espeak":
		session, err := espeak.New(cfg.DataDir, espeak.WithLogger(logger))
		if err != nil {
			return nil, noop, err
		}
		synth, err := tts.NewEspeakSynth(session, cfg, logger)
		if err != nil {
			if cerr := session.Close(); cerr != nil {
				logger.Warn("espeak close failed", slog.String("error", cerr.Error()))
			}
			return nil, noop, err
		}
		closeSynth := func() {
			if err := synth.Close(); err != nil {
				logger.Warn("espeak close failed", slog.String("error", err.Error()))
			}
		}
		return synth, closeSynth, nil
	case "exec":
		synth, err := tts.NewExecSynth(cfg.Command, cfg.SampleRate, cfg.Channels)
		if err != nil {
			return nil, noop, err
		}
		return synth, noop, nil
	case "mock":
		return tts.NewMockSynth(cfg.SampleRate, cfg.Channels), noop, nil
	}
	return nil, noop, fmt.Errorf("unknown tts mode %q", cfg.Mode)
}

// ttsCapability describes the synthesizer for node announcements.
func ttsCapability(ctx context.Context, cfg config.TTSConfig, synth tts.Synthesizer) protocol.Capability {
	c := protocol.Capability{
		Name: "tts",
		Tier: "local",
		Attributes: map[string]string{
			"mode":     cfg.Mode,
			"channels": strconv.Itoa(cfg.Channels),
		},
	}
	if s, ok := synth.(interface{ SampleRate() int }); ok {
		c.Attributes["sample_rate"] = strconv.Itoa(s.SampleRate())
	} else {
		c.Attributes["sample_rate"] = strconv.Itoa(cfg.SampleRate)
	}
	if catalog, ok := synth.(tts.VoiceCatalog); ok {
		if voices, current, err := catalog.Voices(ctx); err == nil {
			c.Attributes["voices"] = strconv.Itoa(len(voices))
			if current != "" {
				c.Attributes["voice"] = current
			}
		}
	}
	return c
}
