package espeak

import (
	"runtime/cgo"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliverFragmentAppendsInOrder(t *testing.T) {
	var buf []int16
	first := []int16{1, 2, 3, 4, 5, 6}
	second := []int16{7, 8}

	code, fragments := withSink(&buf, func(userData uintptr) Status {
		assert.Equal(t, callbackContinue, deliverFragment(unsafe.Pointer(&first[0]), len(first), userData))
		assert.Equal(t, callbackContinue, deliverFragment(unsafe.Pointer(&second[0]), len(second), userData))
		return StatusOK
	})

	require.Equal(t, StatusOK, code)
	assert.Equal(t, 2, fragments)
	assert.Equal(t, []int16{1, 2, 3, 4, 5, 6, 7, 8}, buf)
}

func TestDeliverFragmentKeepsExistingContent(t *testing.T) {
	buf := []int16{-1, -2}
	wav := []int16{9}
	withSink(&buf, func(userData uintptr) Status {
		deliverFragment(unsafe.Pointer(&wav[0]), 1, userData)
		return StatusOK
	})
	assert.Equal(t, []int16{-1, -2, 9}, buf)
}

func TestDeliverFragmentNotApplicable(t *testing.T) {
	var buf []int16
	wav := []int16{1, 2, 3}

	code, fragments := withSink(&buf, func(userData uintptr) Status {
		assert.Equal(t, callbackContinue, deliverFragment(nil, 10, userData))
		assert.Equal(t, callbackContinue, deliverFragment(unsafe.Pointer(&wav[0]), 0, userData))
		assert.Equal(t, callbackContinue, deliverFragment(unsafe.Pointer(&wav[0]), -3, userData))
		assert.Equal(t, callbackContinue, deliverFragment(unsafe.Pointer(&wav[0]), len(wav), 0))
		return StatusOK
	})

	assert.Equal(t, StatusOK, code)
	assert.Zero(t, fragments)
	assert.Empty(t, buf)
}

func TestDeliverFragmentIgnoresForeignContext(t *testing.T) {
	wav := []int16{1}

	foreign := cgo.NewHandle("not a sink")
	defer foreign.Delete()
	assert.Equal(t, callbackContinue, deliverFragment(unsafe.Pointer(&wav[0]), 1, uintptr(foreign)))

	detached := cgo.NewHandle(&sink{})
	defer detached.Delete()
	assert.Equal(t, callbackContinue, deliverFragment(unsafe.Pointer(&wav[0]), 1, uintptr(detached)))
}

func TestWithSinkReturnsEngineStatus(t *testing.T) {
	var buf []int16
	code, _ := withSink(&buf, func(uintptr) Status { return StatusBufferFull })
	assert.Equal(t, StatusBufferFull, code)
}
