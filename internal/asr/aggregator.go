package asr

import (
	"bytes"
	"iter"
	"slices"
)

// Aggregator accumulates the PCM chunks of one session in arrival order.
// Chunks are copied on append so callers may reuse their buffers.
type Aggregator struct {
	chunks [][]byte
	size   int
}

// Append adds a copy of pcm. Empty chunks are ignored.
func (a *Aggregator) Append(pcm []byte) {
	if len(pcm) == 0 {
		return
	}
	a.chunks = append(a.chunks, bytes.Clone(pcm))
	a.size += len(pcm)
}

// Chunks returns the buffered chunks in arrival order. The sequence may be
// iterated more than once.
func (a *Aggregator) Chunks() iter.Seq[[]byte] {
	return slices.Values(a.chunks)
}

// Len returns the number of buffered bytes.
func (a *Aggregator) Len() int { return a.size }

// Bytes returns the concatenation of all chunks.
func (a *Aggregator) Bytes() []byte {
	out := make([]byte, 0, a.size)
	for _, c := range a.chunks {
		out = append(out, c...)
	}
	return out
}

// KeepLast drops everything but the most recent n bytes.
func (a *Aggregator) KeepLast(n int) {
	drop := a.size - max(n, 0)
	if drop <= 0 {
		return
	}
	i := 0
	for i < len(a.chunks) && len(a.chunks[i]) <= drop {
		drop -= len(a.chunks[i])
		a.size -= len(a.chunks[i])
		i++
	}
	kept := copy(a.chunks, a.chunks[i:])
	clear(a.chunks[kept:])
	a.chunks = a.chunks[:kept]
	if drop > 0 {
		a.chunks[0] = bytes.Clone(a.chunks[0][drop:])
		a.size -= drop
	}
}

// Reset drops all buffered audio.
func (a *Aggregator) Reset() {
	a.chunks = nil
	a.size = 0
}
