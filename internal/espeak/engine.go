package espeak

// voiceEntry is one element of the engine's voice catalog. named is false
// when the entry carries a NULL name.
type voiceEntry struct {
	name  string
	named bool
}

// engine is the raw, process-global espeak-ng API. Implementations perform no
// validation; Session does.
type engine interface {
	// Initialize returns the output sample rate, or a non-positive value on failure.
	Initialize(dataDir string) int
	Terminate() Status
	// Synth runs one synchronous synthesis. text holds no NUL bytes; userData
	// is delivered to the synth callback with every fragment.
	Synth(text string, userData uintptr) Status
	// ListVoices walks the catalog up to its terminator. ok is false when the
	// engine returned a NULL list.
	ListVoices() (voices []voiceEntry, ok bool)
	SetVoiceByName(name string) Status
	// CurrentVoice reports ok=false when the engine returned no voice.
	CurrentVoice() (voice voiceEntry, ok bool)
	SetParameter(p Parameter, value int) Status
	Parameter(p Parameter, current bool) int
}
