package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPCM16LE(t *testing.T) {
	pcm := PCM16LE([]int16{1, -1, 256})
	assert.Equal(t, []byte{0x01, 0x00, 0xff, 0xff, 0x00, 0x01}, pcm)

	samples, err := SamplesFromPCM16LE(pcm)
	require.NoError(t, err)
	assert.Equal(t, []int16{1, -1, 256}, samples)

	_, err = SamplesFromPCM16LE([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrNotAligned)
}

func TestWriteThenReadWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "clip.wav")
	samples := []int16{0, 1200, -1200, 32767, -32768, 5}

	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteWAV(file, samples, 22050, 1))
	require.NoError(t, file.Close())

	file, err = os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	clip, err := ReadWAV(file)
	require.NoError(t, err)
	assert.Equal(t, 22050, clip.SampleRate)
	assert.Equal(t, 1, clip.Channels)
	assert.Equal(t, samples, clip.Samples)
}

func TestWriteWAVRejectsBadFormat(t *testing.T) {
	file, err := os.Create(filepath.Join(t.TempDir(), "bad.wav"))
	require.NoError(t, err)
	defer file.Close()
	assert.Error(t, WriteWAV(file, nil, 0, 1))
}

func TestDurationMS(t *testing.T) {
	assert.Equal(t, 1000, DurationMS(22050, 22050, 1))
	assert.Equal(t, 500, DurationMS(22050, 22050, 2))
	assert.Zero(t, DurationMS(10, 0, 1))
}
