package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/loqalabs/loqa-tts/internal/audio"
	"github.com/loqalabs/loqa-tts/internal/espeak"
)

var version = "0.1.0-dev"

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "expected 'voices', 'say' or 'version'")
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "voices":
		err = runVoices(os.Args[2:])
	case "say":
		err = runSay(os.Args[2:])
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", os.Args[1])
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, espeak.ErrUnavailable) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func runVoices(args []string) error {
	cmd := flag.NewFlagSet("voices", flag.ExitOnError)
	dataDir := cmd.String("data-dir", espeak.DefaultDataDir(), "Path to espeak-ng-data")
	verbose := cmd.Bool("v", false, "Verbose logging")
	cmd.Parse(args)

	session, err := espeak.New(*dataDir, espeak.WithLogger(newLogger(*verbose)))
	if err != nil {
		return err
	}
	defer session.Close()

	voices, err := session.Voices()
	if err != nil {
		return err
	}
	for _, v := range voices {
		fmt.Println(v)
	}
	return nil
}

// paramFlags collects repeated -set name=value flags.
type paramFlags map[espeak.Parameter]int

func (p paramFlags) String() string {
	parts := make([]string, 0, len(p))
	for _, param := range espeak.Parameters() {
		if v, ok := p[param]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", param, v))
		}
	}
	return strings.Join(parts, ",")
}

func (p paramFlags) Set(s string) error {
	name, raw, ok := strings.Cut(s, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", s)
	}
	param, ok := espeak.ParseParameter(name)
	if !ok {
		return fmt.Errorf("unknown parameter %q", name)
	}
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("parameter %s: %w", param, err)
	}
	p[param] = v
	return nil
}

func runSay(args []string) error {
	cmd := flag.NewFlagSet("say", flag.ExitOnError)
	dataDir := cmd.String("data-dir", espeak.DefaultDataDir(), "Path to espeak-ng-data")
	voice := cmd.String("voice", "", "Voice display name, see 'loqa-say voices'")
	out := cmd.String("o", "out.wav", "Output WAV file")
	verbose := cmd.Bool("v", false, "Verbose logging")
	params := paramFlags{}
	shortcuts := map[espeak.Parameter]*int{
		espeak.Speed:      cmd.Int("speed", -1, "Words per minute (80-450)"),
		espeak.Amplitude:  cmd.Int("amplitude", -1, "Volume (0-100)"),
		espeak.Pitch:      cmd.Int("pitch", -1, "Base pitch (0-100)"),
		espeak.PitchRange: cmd.Int("pitch-range", -1, "Pitch range (0-100)"),
		espeak.WordGap:    cmd.Int("word-gap", -1, "Pause between words in 10ms units (0-100)"),
	}
	cmd.Var(params, "set", "Set a parameter as name=value (repeatable)")
	cmd.Parse(args)

	for p, v := range shortcuts {
		if *v >= 0 {
			params[p] = *v
		}
	}

	text := strings.Join(cmd.Args(), " ")
	if text == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("read stdin: %w", err)
		}
		text = strings.TrimSpace(string(data))
	}
	if text == "" {
		return errors.New("nothing to say")
	}

	session, err := espeak.New(*dataDir, espeak.WithLogger(newLogger(*verbose)))
	if err != nil {
		return err
	}
	defer session.Close()

	if *voice != "" {
		if err := session.SetVoice(*voice); err != nil {
			return fmt.Errorf("select voice %q: %w", *voice, err)
		}
	}
	for _, p := range espeak.Parameters() {
		if v, ok := params[p]; ok {
			if err := session.SetParameter(p, v); err != nil {
				return err
			}
		}
	}

	var samples []int16
	if err := session.Synthesize(context.Background(), text, &samples); err != nil {
		return err
	}

	f, err := os.Create(*out)
	if err != nil {
		return err
	}
	if err := audio.WriteWAV(f, samples, session.SampleRate(), 1); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s (%d samples, %d ms)\n", *out, len(samples),
		audio.DurationMS(len(samples), session.SampleRate(), 1))
	return nil
}
