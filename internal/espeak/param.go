package espeak

import (
	"strconv"
	"strings"
)

// Parameter identifies a synthesis tunable. Values are the engine's
// espeak_PARAMETER codes.
type Parameter int

const (
	Speed      Parameter = 1
	Amplitude  Parameter = 2
	Pitch      Parameter = 3
	PitchRange Parameter = 4
	WordGap    Parameter = 7
)

// Inclusive parameter bounds.
const (
	MinAmplitude  = 0
	MaxAmplitude  = 100
	MinPitch      = 0
	MaxPitch      = 100
	MinPitchRange = 0
	MaxPitchRange = 100
	MinWordGap    = 0
	MaxWordGap    = 100
	MinSpeed      = 80
	MaxSpeed      = 450
)

var parameterNames = map[Parameter]string{
	Speed:      "Speed",
	Amplitude:  "Amplitude",
	Pitch:      "Pitch",
	PitchRange: "PitchRange",
	WordGap:    "WordGap",
}

// Parameters returns every known parameter in engine code order.
func Parameters() []Parameter {
	return []Parameter{Speed, Amplitude, Pitch, PitchRange, WordGap}
}

func (p Parameter) String() string {
	if name, ok := parameterNames[p]; ok {
		return name
	}
	return "Parameter(" + strconv.Itoa(int(p)) + ")"
}

// Range reports the inclusive bounds of p. ok is false for unknown parameters.
func (p Parameter) Range() (min, max int, ok bool) {
	switch p {
	case Speed:
		return MinSpeed, MaxSpeed, true
	case Amplitude:
		return MinAmplitude, MaxAmplitude, true
	case Pitch:
		return MinPitch, MaxPitch, true
	case PitchRange:
		return MinPitchRange, MaxPitchRange, true
	case WordGap:
		return MinWordGap, MaxWordGap, true
	}
	return 0, 0, false
}

// Default returns the documented engine baseline for p, or 0 when p is unknown.
func (p Parameter) Default() int {
	switch p {
	case Speed:
		return 175
	case Amplitude:
		return 100
	case Pitch, PitchRange:
		return 50
	}
	return 0
}

// Validate reports whether value lies within the declared range of p.
func Validate(p Parameter, value int) error {
	min, max, ok := p.Range()
	if !ok || value < min || value > max {
		return &InvalidParameterError{Parameter: p, Value: value}
	}
	return nil
}

// ParseParameter maps a configuration key such as "pitch_range" to a Parameter.
func ParseParameter(name string) (Parameter, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("_", "", "-", "").Replace(key)
	switch key {
	case "speed", "rate":
		return Speed, true
	case "amplitude", "volume":
		return Amplitude, true
	case "pitch":
		return Pitch, true
	case "pitchrange", "range":
		return PitchRange, true
	case "wordgap":
		return WordGap, true
	}
	return 0, false
}
