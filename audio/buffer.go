// Package audio turns recordings and downloaded files into 16 kHz mono PCM
// buffers ready for speech recognition.
package audio

import "time"

// SampleRate is the rate every Buffer is normalized to.
const SampleRate = 16000

// Buffer is decoded mono PCM in [-1, 1]. It is not modified after decoding.
type Buffer struct {
	SampleRate int
	Samples    []float32
}

// Duration returns the playback length of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return time.Duration(len(b.Samples)) * time.Second / time.Duration(b.SampleRate)
}

// Empty reports whether the buffer carries no samples.
func (b *Buffer) Empty() bool {
	return b == nil || len(b.Samples) == 0
}
