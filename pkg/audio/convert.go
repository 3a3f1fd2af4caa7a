// Package audio holds the PCM and WAV plumbing shared by the ASR bridge:
// format description, channel down-mixing, resampling, and WAV decoding and
// encoding.
//
// All PCM handled here is signed little-endian. Internally the bridge works on
// 16 kHz, 16-bit, mono audio ([SpeechFormat]); a [Stream] normalises the
// incoming WAV frames of one source into that shape.
package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Format describes raw PCM audio.
type Format struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// SpeechFormat is the PCM format handed to transcription engines.
var SpeechFormat = Format{SampleRate: 16000, Channels: 1, BitDepth: 16}

// BytesPerSecond returns the PCM byte rate of f, or 0 for an invalid format.
func (f Format) BytesPerSecond() int {
	if f.SampleRate <= 0 || f.Channels <= 0 || f.BitDepth <= 0 {
		return 0
	}
	return f.SampleRate * f.Channels * f.BitDepth / 8
}

// Seconds returns the duration of n bytes of PCM in f.
func (f Format) Seconds(n int) float64 {
	bps := f.BytesPerSecond()
	if bps == 0 {
		return 0
	}
	return float64(n) / float64(bps)
}

// String renders f like "16000Hz mono 16bit".
func (f Format) String() string {
	ch := "mono"
	if f.Channels == 2 {
		ch = "stereo"
	} else if f.Channels > 2 {
		ch = fmt.Sprintf("%dch", f.Channels)
	}
	return fmt.Sprintf("%dHz %s %dbit", f.SampleRate, ch, f.BitDepth)
}

// DownmixMono16 averages every frame of interleaved 16-bit PCM with the given
// channel count into a single mono sample. Sums use int32 arithmetic and are
// clamped to the int16 range. Mono input is returned unchanged.
func DownmixMono16(pcm []byte, channels int) []byte {
	if channels <= 1 {
		return pcm
	}
	frameBytes := channels * 2
	frames := len(pcm) / frameBytes
	out := make([]byte, frames*2)
	for i := range frames {
		var sum int32
		for ch := range channels {
			idx := i*frameBytes + ch*2
			sum += int32(int16(binary.LittleEndian.Uint16(pcm[idx:])))
		}
		avg := sum / int32(channels)
		if avg > math.MaxInt16 {
			avg = math.MaxInt16
		} else if avg < math.MinInt16 {
			avg = math.MinInt16
		}
		binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(avg)))
	}
	return out
}

// ResampleMono16 resamples 16-bit mono PCM from srcRate to dstRate using linear
// interpolation. If the rates match, or either is not positive, the input is
// returned unchanged.
func ResampleMono16(pcm []byte, srcRate, dstRate int) []byte {
	if srcRate <= 0 || dstRate <= 0 {
		return pcm
	}
	if srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	srcSamples := len(pcm) / 2
	dstSamples := int(int64(srcSamples) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]byte, dstSamples*2)
	ratio := float64(srcRate) / float64(dstRate)

	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := int16(binary.LittleEndian.Uint16(pcm[srcIdx*2:]))
		s1 := s0
		if srcIdx+1 < srcSamples {
			s1 = int16(binary.LittleEndian.Uint16(pcm[(srcIdx+1)*2:]))
		}

		v := int16(float64(s0)*(1-frac) + float64(s1)*frac)
		binary.LittleEndian.PutUint16(out[i*2:], uint16(v))
	}
	return out
}

// RMS16 returns the root-mean-square energy of 16-bit PCM in sample units
// (0–32767). It returns 0 for buffers shorter than one sample.
func RMS16(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := range n {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2:])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

// to16 rescales a sample decoded at bitDepth to the int16 range. 8-bit WAV
// samples are unsigned and centred on 128.
func to16(v, bitDepth int) int16 {
	switch {
	case bitDepth == 8:
		return int16((v - 128) << 8)
	case bitDepth == 16:
		return int16(v)
	case bitDepth > 16:
		return int16(v >> (bitDepth - 16))
	default:
		return int16(v << (16 - bitDepth))
	}
}
