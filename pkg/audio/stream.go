package audio

import "encoding/binary"

// Resampler converts a continuous stream of 16-bit mono PCM between sample
// rates with linear interpolation. Unlike [ResampleMono16] it carries its
// read position and the last input sample across calls, so a stream cut into
// arbitrary chunks resamples exactly like the concatenated stream.
//
// A Resampler is not safe for concurrent use.
type Resampler struct {
	src, dst int

	// pos is the source position of the next output sample in units of
	// 1/dst samples, relative to the first sample of the next chunk. It never
	// drops below -dst; a negative pos interpolates from prev.
	pos  int64
	prev int16
}

// NewResampler returns a resampler from srcRate to dstRate.
func NewResampler(srcRate, dstRate int) *Resampler {
	return &Resampler{src: srcRate, dst: dstRate}
}

// Rates returns the source and target sample rates.
func (r *Resampler) Rates() (src, dst int) { return r.src, r.dst }

// Resample converts the next chunk. Equal or non-positive rates pass pcm
// through.
func (r *Resampler) Resample(pcm []byte) []byte {
	if r.src <= 0 || r.dst <= 0 || r.src == r.dst {
		return pcm
	}
	n := int64(len(pcm) / 2)
	if n == 0 {
		return nil
	}
	sample := func(i int64) int16 {
		if i < 0 {
			return r.prev
		}
		return int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}

	dst := int64(r.dst)
	out := make([]byte, 0, (n*dst/int64(r.src)+2)*2)
	for {
		i := r.pos / dst
		if r.pos < 0 {
			i = -1
		}
		if i+1 >= n {
			break
		}
		frac := float64(r.pos-i*dst) / float64(dst)
		v := int16(float64(sample(i))*(1-frac) + float64(sample(i+1))*frac)
		out = binary.LittleEndian.AppendUint16(out, uint16(v))
		r.pos += int64(r.src)
	}
	r.prev = sample(n - 1)
	r.pos -= n * dst
	return out
}

// Stream normalises consecutive WAV frames of one audio source into
// [SpeechFormat] PCM, resampling across frame boundaries. A change of source
// rate starts a fresh resampler.
//
// A Stream is not safe for concurrent use.
type Stream struct {
	rs *Resampler
}

// Convert decodes wav and returns its audio as SpeechFormat PCM.
func (s *Stream) Convert(wav []byte) ([]byte, error) {
	pcm, src, err := DecodeWAV(wav)
	if err != nil {
		return nil, err
	}
	pcm = DownmixMono16(pcm, src.Channels)
	if s.rs == nil {
		s.rs = NewResampler(src.SampleRate, SpeechFormat.SampleRate)
	} else if rate, _ := s.rs.Rates(); rate != src.SampleRate {
		s.rs = NewResampler(src.SampleRate, SpeechFormat.SampleRate)
	}
	return s.rs.Resample(pcm), nil
}
