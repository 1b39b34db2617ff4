package espeak

import (
	"runtime/cgo"
	"unsafe"
)

// callbackContinue tells the engine to keep synthesizing. The abort value
// (non-zero) is never returned.
const callbackContinue = 0

// sink is the per-call context the engine hands back to the synth callback
// through espeak_EVENT.user_data.
type sink struct {
	buf       *[]int16
	fragments int
}

// withSink runs call with a handle to a sink appending into buf. The handle is
// deleted and the sink detached as soon as call returns, so the engine can
// never reach buf afterwards.
func withSink(buf *[]int16, call func(userData uintptr) Status) (Status, int) {
	s := &sink{buf: buf}
	h := cgo.NewHandle(s)
	defer func() {
		h.Delete()
		s.buf = nil
	}()
	code := call(uintptr(h))
	return code, s.fragments
}

// deliverFragment appends n samples at wav to the sink behind userData.
// A nil wav, a non-positive n or a missing context is the engine's
// not-applicable case and leaves everything untouched.
func deliverFragment(wav unsafe.Pointer, n int, userData uintptr) int {
	if wav == nil || n <= 0 || userData == 0 {
		return callbackContinue
	}
	s, ok := cgo.Handle(userData).Value().(*sink)
	if !ok || s == nil || s.buf == nil {
		return callbackContinue
	}
	*s.buf = append(*s.buf, unsafe.Slice((*int16)(wav), n)...)
	s.fragments++
	return callbackContinue
}
