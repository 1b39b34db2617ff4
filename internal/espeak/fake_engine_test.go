package espeak

import (
	"unsafe"
)

// fakeEngine mimics the global espeak-ng state in memory. Synth replays
// fragments through deliverFragment the way the native callback does.
type fakeEngine struct {
	rate        int
	voices      []voiceEntry
	nullVoices  bool
	current     *voiceEntry
	params      map[Parameter]int
	fragments   [][]int16
	synthStatus Status
	paramStatus Status

	initDirs   []string
	synthTexts []string
	paramCalls int
	terminated int
}

func newFakeEngine() *fakeEngine {
	params := make(map[Parameter]int)
	for _, p := range Parameters() {
		params[p] = p.Default()
	}
	return &fakeEngine{
		rate: 22050,
		voices: []voiceEntry{
			{name: "Afrikaans", named: true},
			{name: "German", named: true},
			{name: "English (Great Britain)", named: true},
		},
		params:    params,
		fragments: [][]int16{{1, 2, 3}, {4, 5}, {6}},
	}
}

func (f *fakeEngine) Initialize(dataDir string) int {
	f.initDirs = append(f.initDirs, dataDir)
	return f.rate
}

func (f *fakeEngine) Terminate() Status {
	f.terminated++
	return StatusOK
}

func (f *fakeEngine) Synth(text string, userData uintptr) Status {
	f.synthTexts = append(f.synthTexts, text)
	// the engine may report a not-applicable batch between real ones
	deliverFragment(nil, 0, userData)
	for _, frag := range f.fragments {
		if len(frag) == 0 {
			continue
		}
		deliverFragment(unsafe.Pointer(&frag[0]), len(frag), userData)
	}
	return f.synthStatus
}

func (f *fakeEngine) ListVoices() ([]voiceEntry, bool) {
	if f.nullVoices {
		return nil, false
	}
	return append([]voiceEntry(nil), f.voices...), true
}

func (f *fakeEngine) SetVoiceByName(name string) Status {
	for _, v := range f.voices {
		if v.named && v.name == name {
			selected := v
			f.current = &selected
			return StatusOK
		}
	}
	return StatusNotFound
}

func (f *fakeEngine) CurrentVoice() (voiceEntry, bool) {
	if f.current == nil {
		return voiceEntry{}, false
	}
	return *f.current, true
}

func (f *fakeEngine) SetParameter(p Parameter, value int) Status {
	f.paramCalls++
	if f.paramStatus != StatusOK {
		return f.paramStatus
	}
	f.params[p] = value
	return StatusOK
}

func (f *fakeEngine) Parameter(p Parameter, current bool) int {
	if current {
		return f.params[p]
	}
	return p.Default()
}
