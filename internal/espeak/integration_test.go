//go:build espeak

package espeak

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/loqalabs/loqa-tts/internal/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	referenceWAV   = "testdata/dies_ist_ein_test.wav"
	referenceText  = "Dies ist ein Test"
	referenceVoice = "German"
	referencePitch = 40
	referenceSpeed = 80
)

func openNative(t *testing.T) *Session {
	t.Helper()
	dir := DefaultDataDir()
	if _, err := os.Stat(dir); err != nil {
		t.Skipf("espeak-ng data not installed at %s", dir)
	}
	s, err := New(dir)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestNativeInitialize(t *testing.T) {
	s := openNative(t)
	assert.GreaterOrEqual(t, s.SampleRate(), 22050)
}

func TestNativeMissingDataDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "invalid"))
	assert.ErrorIs(t, err, ErrDataDirNotFound)
}

func TestNativeVoices(t *testing.T) {
	s := openNative(t)
	voices, err := s.Voices()
	require.NoError(t, err)
	assert.Contains(t, voices, "German")
	assert.Contains(t, voices, "English (Great Britain)")
}

func TestNativeVoiceSelection(t *testing.T) {
	s := openNative(t)

	_, ok, err := s.Voice()
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetVoice("German"))
	name, ok, err := s.Voice()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "German", name)

	err = s.SetVoice("DefinitelyNotAVoice")
	var engineErr *EngineError
	require.ErrorAs(t, err, &engineErr)
	assert.Equal(t, StatusNotFound, engineErr.Code)
}

func TestNativeParameters(t *testing.T) {
	s := openNative(t)
	for _, p := range Parameters() {
		assert.Equal(t, p.Default(), s.ParameterDefault(p), p.String())
	}
	cases := map[Parameter]int{Amplitude: 50, Pitch: 100, PitchRange: 90, Speed: 200, WordGap: 50}
	for p, v := range cases {
		require.NoError(t, s.SetParameter(p, v))
		assert.Equal(t, v, s.ParameterCurrent(p), p.String())
		assert.Equal(t, p.Default(), s.ParameterDefault(p), p.String())
	}
}

func TestNativeSynthesizeAppends(t *testing.T) {
	s := openNative(t)
	ctx := context.Background()

	var buf []int16
	require.NoError(t, s.Synthesize(ctx, "test", &buf))
	require.NotEmpty(t, buf)

	first := append([]int16(nil), buf...)
	require.NoError(t, s.Synthesize(ctx, "test", &buf))
	assert.Greater(t, len(buf), len(first))
	assert.Equal(t, first, buf[:len(first)])
}

func TestNativeSynthesizeMatchesReference(t *testing.T) {
	file, err := os.Open(referenceWAV)
	require.NoError(t, err, "render %s with the espeak-ng CLI, see testdata/README.md", referenceWAV)
	defer file.Close()
	reference, err := audio.ReadWAV(file)
	require.NoError(t, err)

	s := openNative(t)
	require.NoError(t, s.SetVoice(referenceVoice))
	require.NoError(t, s.SetParameter(Pitch, referencePitch))
	require.NoError(t, s.SetParameter(Speed, referenceSpeed))

	var buf []int16
	require.NoError(t, s.Synthesize(context.Background(), referenceText, &buf))
	require.NotEmpty(t, buf)
	assert.Equal(t, reference.Samples, buf)
}
