package asr

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/MrWong99/hermes-asr/pkg/audio"
)

// tone returns seconds of a 440 Hz sine at amp in SpeechFormat PCM.
func tone(seconds, amp float64) []byte {
	n := int(seconds * float64(audio.SpeechFormat.SampleRate))
	pcm := make([]byte, n*2)
	for i := range n {
		v := amp * math.Sin(2*math.Pi*440*float64(i)/float64(audio.SpeechFormat.SampleRate))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v)))
	}
	return pcm
}

// quiet returns seconds of digital silence in SpeechFormat PCM.
func quiet(seconds float64) []byte {
	return make([]byte, int(seconds*float64(audio.SpeechFormat.SampleRate))*2)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// split cuts pcm into chunks of at most size bytes.
func split(pcm []byte, size int) [][]byte {
	var out [][]byte
	for len(pcm) > 0 {
		n := min(size, len(pcm))
		out = append(out, pcm[:n])
		pcm = pcm[n:]
	}
	return out
}

// wavOf wraps pcm in a SpeechFormat WAV container.
func wavOf(t *testing.T, pcm []byte) []byte {
	t.Helper()
	wav, err := audio.EncodeWAV(pcm, audio.SpeechFormat)
	if err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
	return wav
}
