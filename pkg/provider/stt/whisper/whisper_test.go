package whisper

import (
	"context"
	"encoding/binary"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/hermes-asr/pkg/audio"
)

func pcmOf(samples ...int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}

func TestNew_EmptyURL(t *testing.T) {
	t.Parallel()
	if _, err := New(""); err == nil {
		t.Fatal("expected error for empty serverURL")
	}
}

func TestNew_Options(t *testing.T) {
	t.Parallel()
	c := &http.Client{}
	tr, err := New("http://localhost:8080/", WithModel("base.en"), WithLanguage("de"), WithHTTPClient(c))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if tr.serverURL != "http://localhost:8080" {
		t.Errorf("serverURL = %q, want trailing slash trimmed", tr.serverURL)
	}
	if tr.model != "base.en" || tr.language != "de" || tr.httpClient != c {
		t.Errorf("options not applied: %+v", tr)
	}
}

func TestTranscribe_PostsWAV(t *testing.T) {
	t.Parallel()

	var (
		gotPath   string
		gotLang   string
		gotFormat audio.Format
		gotPCM    []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotLang = r.FormValue("language")
		f, _, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(f)
		gotPCM, gotFormat, _ = audio.DecodeWAV(data)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  turn on the light \n"}`)
	}))
	defer srv.Close()

	tr, err := New(srv.URL, WithLanguage("en"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	chunks := [][]byte{pcmOf(1, 2), pcmOf(3, 4)}
	res, err := tr.Transcribe(context.Background(), slices.Values(chunks), audio.SpeechFormat)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}

	if gotPath != "/inference" {
		t.Errorf("path = %q, want /inference", gotPath)
	}
	if gotLang != "en" {
		t.Errorf("language = %q, want en", gotLang)
	}
	if gotFormat != audio.SpeechFormat {
		t.Errorf("uploaded format = %v", gotFormat)
	}
	if string(gotPCM) != string(pcmOf(1, 2, 3, 4)) {
		t.Errorf("uploaded pcm mismatch")
	}
	if res.Text != "turn on the light" {
		t.Errorf("Text = %q", res.Text)
	}
	if res.Likelihood != 1 {
		t.Errorf("Likelihood = %v, want 1", res.Likelihood)
	}
	if res.WavSeconds != audio.SpeechFormat.Seconds(8) {
		t.Errorf("WavSeconds = %v", res.WavSeconds)
	}
}

func TestTranscribe_EmptyText(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"text":""}`)
	}))
	defer srv.Close()

	tr, _ := New(srv.URL)
	res, err := tr.Transcribe(context.Background(), slices.Values([][]byte{pcmOf(0)}), audio.SpeechFormat)
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if res.Text != "" || res.Likelihood != 0 {
		t.Errorf("got %+v, want empty text with zero likelihood", res)
	}
}

func TestTranscribe_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"http status", http.StatusInternalServerError, "boom", "HTTP 500"},
		{"bad json", http.StatusOK, "{", "parse JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			tr, _ := New(srv.URL)
			_, err := tr.Transcribe(context.Background(), slices.Values([][]byte{pcmOf(0)}), audio.SpeechFormat)
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestTranscribe_RejectsNon16Bit(t *testing.T) {
	t.Parallel()
	tr, _ := New("http://127.0.0.1:1")
	_, err := tr.Transcribe(context.Background(), slices.Values([][]byte{pcmOf(0)}), audio.Format{SampleRate: 16000, Channels: 1, BitDepth: 8})
	if err == nil {
		t.Fatal("expected error for 8-bit format")
	}
}
