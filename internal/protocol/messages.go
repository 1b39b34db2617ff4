package protocol

import "time"

// TTSRequest asks the runtime to speak Text. Zero Speed/Pitch keep the
// configured engine values.
type TTSRequest struct {
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	Voice     string `json:"voice,omitempty"`
	Speed     int    `json:"speed,omitempty"`
	Pitch     int    `json:"pitch,omitempty"`
	Target    string `json:"target,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// AudioChunk carries 16-bit little-endian PCM produced for a request.
type AudioChunk struct {
	SessionID  string `json:"session_id"`
	Target     string `json:"target,omitempty"`
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
	Sequence   int    `json:"sequence"`
	PCM        []byte `json:"pcm"`
	Final      bool   `json:"final"`
}

// TTSStatus is published once per request when synthesis ends.
type TTSStatus struct {
	SessionID string    `json:"session_id"`
	Target    string    `json:"target,omitempty"`
	Completed bool      `json:"completed"`
	Error     string    `json:"error,omitempty"`
	Samples   int       `json:"samples"`
	Timestamp time.Time `json:"timestamp"`
}

// VoiceList answers a request on SubjectTTSVoices.
type VoiceList struct {
	Voices  []string `json:"voices"`
	Current string   `json:"current,omitempty"`
	Error   string   `json:"error,omitempty"`
}

const (
	SubjectTTSRequest = "tts.request"
	SubjectTTSAudio   = "tts.audio"
	SubjectTTSDone    = "tts.done"
	SubjectTTSVoices  = "tts.voices"
)

// Capability is one service a node offers, e.g. "tts".
type Capability struct {
	Name       string            `json:"name"`
	Tier       string            `json:"tier,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// NodeAnnouncement is published on SubjectNodeAnnounce when a node joins or
// when asked to re-announce.
type NodeAnnouncement struct {
	NodeID       string       `json:"node_id"`
	Role         string       `json:"role"`
	Capabilities []Capability `json:"capabilities"`
	Timestamp    time.Time    `json:"timestamp"`
}

type NodeHeartbeat struct {
	NodeID    string    `json:"node_id"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectNodeAnnounce = "ctrl.node.announce"
	SubjectNodeDiscover = "ctrl.node.discover"
	// SubjectNodeHeartbeatPrefix is followed by the node ID.
	SubjectNodeHeartbeatPrefix = "ctrl.node.heartbeat."
)
