package hermes_test

import (
	"encoding/json"
	"errors"
	"slices"
	"testing"

	"github.com/MrWong99/hermes-asr/pkg/hermes"
)

func TestDecode_StartListeningDefaults(t *testing.T) {
	t.Parallel()

	msg, err := hermes.Decode(hermes.TopicStartListening, []byte(`{"siteId":"kitchen","sessionId":"s1"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	start, ok := msg.(hermes.AsrStartListening)
	if !ok {
		t.Fatalf("got %T, want AsrStartListening", msg)
	}
	if !start.StopOnSilence {
		t.Error("StopOnSilence should default to true")
	}
	if start.SendAudioCaptured {
		t.Error("SendAudioCaptured should default to false")
	}
	if start.SiteID != "kitchen" || start.SessionID != "s1" {
		t.Errorf("ids = %q/%q, want kitchen/s1", start.SiteID, start.SessionID)
	}
}

func TestDecode_StartListeningExplicitFalse(t *testing.T) {
	t.Parallel()

	msg, err := hermes.Decode(hermes.TopicStartListening,
		[]byte(`{"siteId":"kitchen","stopOnSilence":false,"sendAudioCaptured":true}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	start := msg.(hermes.AsrStartListening)
	if start.StopOnSilence {
		t.Error("StopOnSilence should be false")
	}
	if !start.SendAudioCaptured {
		t.Error("SendAudioCaptured should be true")
	}
}

func TestDecode_TopicsCarryIDs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		topic   string
		payload string
		check   func(t *testing.T, m hermes.Message)
	}{
		{
			name:    "audio frame",
			topic:   "hermes/audioServer/office/audioFrame",
			payload: "RIFF",
			check: func(t *testing.T, m hermes.Message) {
				f := m.(hermes.AudioFrame)
				if f.SiteID != "office" || string(f.WAV) != "RIFF" {
					t.Errorf("got %+v", f)
				}
			},
		},
		{
			name:    "audio session frame",
			topic:   "hermes/audioServer/office/abc/audioSessionFrame",
			payload: "RIFF",
			check: func(t *testing.T, m hermes.Message) {
				f := m.(hermes.AudioSessionFrame)
				if f.SiteID != "office" || f.SessionID != "abc" {
					t.Errorf("got %+v", f)
				}
			},
		},
		{
			name:    "train",
			topic:   "rhasspy/asr/office/train",
			payload: `{"id":"t1","graph_path":"intent.pickle.gz"}`,
			check: func(t *testing.T, m hermes.Message) {
				tr := m.(hermes.AsrTrain)
				if tr.SiteID != "office" || tr.ID != "t1" || tr.GraphPath != "intent.pickle.gz" {
					t.Errorf("got %+v", tr)
				}
			},
		},
		{
			name:    "pronounce",
			topic:   hermes.TopicG2pPronounce,
			payload: `{"id":"p1","words":["hello","world"],"numGuesses":3,"siteId":"office"}`,
			check: func(t *testing.T, m hermes.Message) {
				p := m.(hermes.G2pPronounce)
				if p.NumGuesses != 3 || !slices.Equal(p.Words, []string{"hello", "world"}) {
					t.Errorf("got %+v", p)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, err := hermes.Decode(tt.topic, []byte(tt.payload))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			tt.check(t, m)
		})
	}
}

func TestDecode_MissingSiteIDIsDefault(t *testing.T) {
	t.Parallel()

	for _, topic := range []string{
		hermes.TopicStartListening,
		hermes.TopicStopListening,
		hermes.TopicToggleOn,
		hermes.TopicToggleOff,
		hermes.TopicG2pPronounce,
	} {
		m, err := hermes.Decode(topic, []byte(`{"sessionId":"s1"}`))
		if err != nil {
			t.Fatalf("Decode(%q): %v", topic, err)
		}
		if got := hermes.SiteOf(m); got != hermes.DefaultSiteID {
			t.Errorf("Decode(%q) site = %q, want %q", topic, got, hermes.DefaultSiteID)
		}
	}

	m, err := hermes.Decode(hermes.TopicStopListening, []byte(`{"siteId":"office"}`))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got := hermes.SiteOf(m); got != "office" {
		t.Errorf("explicit site = %q, want office", got)
	}
}

func TestDecode_UnknownTopic(t *testing.T) {
	t.Parallel()

	for _, topic := range []string{
		"hermes/nlu/query",
		"hermes/audioServer//audioFrame",
		"hermes/audioServer/a/b/c/audioSessionFrame",
		"rhasspy/asr/a/b/train",
	} {
		if _, err := hermes.Decode(topic, nil); !errors.Is(err, hermes.ErrUnknownTopic) {
			t.Errorf("Decode(%q) error = %v, want ErrUnknownTopic", topic, err)
		}
	}
}

func TestDecode_MalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := hermes.Decode(hermes.TopicStopListening, []byte(`{`))
	if err == nil {
		t.Fatal("expected error for malformed JSON")
	}
	if errors.Is(err, hermes.ErrUnknownTopic) {
		t.Error("malformed JSON should not be reported as unknown topic")
	}
}

func TestEncode_BinaryAndJSON(t *testing.T) {
	t.Parallel()

	captured := hermes.AsrAudioCaptured{WAV: []byte{1, 2, 3}, SiteID: "s", SessionID: "x"}
	if got := captured.Topic(); got != "rhasspy/asr/s/x/audioCaptured" {
		t.Errorf("topic = %q", got)
	}
	data, err := hermes.Encode(captured)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !slices.Equal(data, []byte{1, 2, 3}) {
		t.Errorf("binary payload = %v", data)
	}

	success := hermes.AsrTrainSuccess{ID: "t1", SiteID: "office"}
	if got := success.Topic(); got != "rhasspy/asr/office/trainSuccess" {
		t.Errorf("topic = %q", got)
	}
	data, err = hermes.Encode(success)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(data, &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["id"] != "t1" {
		t.Errorf("id = %v", body["id"])
	}
	if _, ok := body["SiteID"]; ok {
		t.Error("site id must not leak into the JSON body")
	}
}
