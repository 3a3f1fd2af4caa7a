package hermes

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownTopic is returned by [Decode] for topics the bridge does not
// handle.
var ErrUnknownTopic = errors.New("hermes: unknown topic")

// DefaultSiteID is the site of a JSON message that does not name one.
const DefaultSiteID = "default"

// Encode returns the wire payload for m: raw bytes for a [BinaryMessage],
// JSON otherwise.
func Encode(m Message) ([]byte, error) {
	if b, ok := m.(BinaryMessage); ok {
		return b.Payload(), nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("hermes: encode %s: %w", m.Topic(), err)
	}
	return data, nil
}

// Decode parses an inbound payload received on topic into its message type.
// Binary payloads are not copied; callers that retain them past the lifetime
// of payload must copy.
func Decode(topic string, payload []byte) (Message, error) {
	switch topic {
	case TopicStartListening:
		return decodeJSON[AsrStartListening](topic, payload, func(m *AsrStartListening) {
			// Hermes defaults when the fields are absent.
			m.SiteID = DefaultSiteID
			m.StopOnSilence = true
		})
	case TopicStopListening:
		return decodeJSON[AsrStopListening](topic, payload, func(m *AsrStopListening) { m.SiteID = DefaultSiteID })
	case TopicToggleOn:
		return decodeJSON[AsrToggleOn](topic, payload, func(m *AsrToggleOn) { m.SiteID = DefaultSiteID })
	case TopicToggleOff:
		return decodeJSON[AsrToggleOff](topic, payload, func(m *AsrToggleOff) { m.SiteID = DefaultSiteID })
	case TopicG2pPronounce:
		return decodeJSON[G2pPronounce](topic, payload, func(m *G2pPronounce) { m.SiteID = DefaultSiteID })
	}

	if siteID, sessionID, session, ok := parseAudioTopic(topic); ok {
		if session {
			return AudioSessionFrame{WAV: payload, SiteID: siteID, SessionID: sessionID}, nil
		}
		return AudioFrame{WAV: payload, SiteID: siteID}, nil
	}

	if siteID, ok := parseTrainTopic(topic); ok {
		m, err := decodeJSON[AsrTrain](topic, payload, nil)
		if err != nil {
			return nil, err
		}
		train := m.(AsrTrain)
		train.SiteID = siteID
		return train, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownTopic, topic)
}

// decodeJSON unmarshals payload into a fresh T after applying defaults.
func decodeJSON[T Message](topic string, payload []byte, defaults func(*T)) (Message, error) {
	var m T
	if defaults != nil {
		defaults(&m)
	}
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("hermes: decode %s: %w", topic, err)
	}
	return m, nil
}
