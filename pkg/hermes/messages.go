// Package hermes defines the Hermes/Rhasspy message types handled by the ASR
// bridge together with their MQTT topics and wire encoding.
//
// Every message knows its own topic via [Message.Topic]. JSON messages use the
// camelCase field names of the Hermes protocol; audio messages carry a raw WAV
// payload and are encoded as binary.
package hermes

// Message is any value that can be published to or received from the bus.
type Message interface {
	// Topic returns the MQTT topic this message is published on.
	Topic() string
}

// BinaryMessage is implemented by messages whose payload is raw bytes rather
// than JSON.
type BinaryMessage interface {
	Message
	Payload() []byte
}

// ─── ASR session control ─────────────────────────────────────────────────────

// AsrStartListening tells the ASR to start collecting audio for a session.
type AsrStartListening struct {
	SiteID            string   `json:"siteId"`
	SessionID         string   `json:"sessionId,omitempty"`
	Lang              string   `json:"lang,omitempty"`
	StopOnSilence     bool     `json:"stopOnSilence"`
	SendAudioCaptured bool     `json:"sendAudioCaptured"`
	WakewordID        string   `json:"wakewordId,omitempty"`
	IntentFilter      []string `json:"intentFilter,omitempty"`
}

func (AsrStartListening) Topic() string { return TopicStartListening }

// AsrStopListening ends a session and requests transcription.
type AsrStopListening struct {
	SiteID    string `json:"siteId"`
	SessionID string `json:"sessionId,omitempty"`
}

func (AsrStopListening) Topic() string { return TopicStopListening }

// AsrToggleOn re-enables audio processing for a site.
type AsrToggleOn struct {
	SiteID string `json:"siteId"`
	Reason string `json:"reason,omitempty"`
}

func (AsrToggleOn) Topic() string { return TopicToggleOn }

// AsrToggleOff disables audio processing for a site until the next
// [AsrToggleOn].
type AsrToggleOff struct {
	SiteID string `json:"siteId"`
	Reason string `json:"reason,omitempty"`
}

func (AsrToggleOff) Topic() string { return TopicToggleOff }

// ─── ASR results ─────────────────────────────────────────────────────────────

// AsrTextCaptured carries the transcription of a finished session.
type AsrTextCaptured struct {
	Text       string  `json:"text"`
	Likelihood float64 `json:"likelihood"`
	Seconds    float64 `json:"seconds"`
	SiteID     string  `json:"siteId"`
	SessionID  string  `json:"sessionId,omitempty"`
	WakewordID string  `json:"wakewordId,omitempty"`
	Lang       string  `json:"lang,omitempty"`
}

func (AsrTextCaptured) Topic() string { return TopicTextCaptured }

// AsrAudioCaptured carries the WAV recording of a finished session. The site
// and session only appear in the topic.
type AsrAudioCaptured struct {
	WAV       []byte `json:"-"`
	SiteID    string `json:"-"`
	SessionID string `json:"-"`
}

func (m AsrAudioCaptured) Topic() string { return AudioCapturedTopic(m.SiteID, m.SessionID) }

// Payload implements [BinaryMessage].
func (m AsrAudioCaptured) Payload() []byte { return m.WAV }

// AsrError reports a failure in the ASR service.
type AsrError struct {
	Error     string `json:"error"`
	Context   string `json:"context,omitempty"`
	SiteID    string `json:"siteId"`
	SessionID string `json:"sessionId,omitempty"`
}

func (AsrError) Topic() string { return TopicAsrError }

// ─── Training ────────────────────────────────────────────────────────────────

// AsrTrain requests that the speech model be retrained from a compiled
// intent graph. The site only appears in the topic.
type AsrTrain struct {
	ID        string `json:"id"`
	GraphPath string `json:"graph_path"`
	SiteID    string `json:"-"`
}

func (m AsrTrain) Topic() string { return TrainTopic(m.SiteID) }

// AsrTrainSuccess acknowledges a finished training run.
type AsrTrainSuccess struct {
	ID     string `json:"id"`
	SiteID string `json:"-"`
}

func (m AsrTrainSuccess) Topic() string { return TrainSuccessTopic(m.SiteID) }

// ─── Pronunciation ───────────────────────────────────────────────────────────

// G2pPronounce asks for guessed pronunciations of words.
type G2pPronounce struct {
	ID         string   `json:"id"`
	Words      []string `json:"words"`
	NumGuesses int      `json:"numGuesses"`
	SiteID     string   `json:"siteId"`
	SessionID  string   `json:"sessionId,omitempty"`
}

func (G2pPronounce) Topic() string { return TopicG2pPronounce }

// G2pPronunciation is one guessed phoneme sequence for a word.
type G2pPronunciation struct {
	Phonemes []string `json:"phonemes"`
	Guessed  bool     `json:"guessed"`
}

// G2pPhonemes answers a [G2pPronounce] request.
type G2pPhonemes struct {
	ID           string                        `json:"id"`
	WordPhonemes map[string][]G2pPronunciation `json:"wordPhonemes"`
	SiteID       string                        `json:"siteId"`
	SessionID    string                        `json:"sessionId,omitempty"`
}

func (G2pPhonemes) Topic() string { return TopicG2pPhonemes }

// G2pError reports a failed pronunciation request.
type G2pError struct {
	ID        string `json:"id,omitempty"`
	Error     string `json:"error"`
	Context   string `json:"context,omitempty"`
	SiteID    string `json:"siteId"`
	SessionID string `json:"sessionId,omitempty"`
}

func (G2pError) Topic() string { return TopicG2pError }

// ─── Audio ───────────────────────────────────────────────────────────────────

// AudioFrame is a chunk of WAV audio streamed by a site's audio server.
type AudioFrame struct {
	WAV    []byte `json:"-"`
	SiteID string `json:"-"`
}

func (m AudioFrame) Topic() string { return AudioFrameTopic(m.SiteID) }

// Payload implements [BinaryMessage].
func (m AudioFrame) Payload() []byte { return m.WAV }

// AudioSessionFrame is a chunk of WAV audio addressed to one session.
type AudioSessionFrame struct {
	WAV       []byte `json:"-"`
	SiteID    string `json:"-"`
	SessionID string `json:"-"`
}

func (m AudioSessionFrame) Topic() string { return AudioSessionFrameTopic(m.SiteID, m.SessionID) }

// Payload implements [BinaryMessage].
func (m AudioSessionFrame) Payload() []byte { return m.WAV }

// Compile-time interface assertions.
var (
	_ BinaryMessage = AsrAudioCaptured{}
	_ BinaryMessage = AudioFrame{}
	_ BinaryMessage = AudioSessionFrame{}
)

// SiteOf returns the site id carried by an inbound message, or "" for
// messages without one.
func SiteOf(m Message) string {
	switch m := m.(type) {
	case AsrStartListening:
		return m.SiteID
	case AsrStopListening:
		return m.SiteID
	case AsrToggleOn:
		return m.SiteID
	case AsrToggleOff:
		return m.SiteID
	case AudioFrame:
		return m.SiteID
	case AudioSessionFrame:
		return m.SiteID
	case AsrTrain:
		return m.SiteID
	case G2pPronounce:
		return m.SiteID
	default:
		return ""
	}
}
