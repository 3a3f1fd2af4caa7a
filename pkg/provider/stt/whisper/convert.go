package whisper

import (
	"encoding/binary"

	"github.com/MrWong99/hermes-asr/pkg/audio"
)

// whisperSampleRate is the only input rate whisper.cpp accepts.
const whisperSampleRate = 16000

// pcmToFloat32 converts 16-bit signed little-endian PCM audio to float32
// samples normalised to [-1.0, 1.0]. A trailing odd byte is ignored.
func pcmToFloat32(pcm []byte) []float32 {
	n := len(pcm) / 2
	samples := make([]float32, n)
	for i := range n {
		samples[i] = float32(int16(binary.LittleEndian.Uint16(pcm[i*2:]))) / 32768.0
	}
	return samples
}

// toWhisperInput brings PCM in format f to 16 kHz mono float32.
func toWhisperInput(pcm []byte, f audio.Format) []float32 {
	pcm = audio.DownmixMono16(pcm, f.Channels)
	pcm = audio.ResampleMono16(pcm, f.SampleRate, whisperSampleRate)
	return pcmToFloat32(pcm)
}
