package audio

import (
	"bytes"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"

	"github.com/mrsingh-rishi/whisper-llama/types"
)

// Decode parses a WAV container and returns a 16 kHz mono Buffer.
// Failures are reported as types.ErrDecode.
func Decode(r io.ReadSeeker) (*Buffer, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return nil, types.DecodeError(errors.New("not a valid WAV file"))
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, types.DecodeError(errors.Wrap(err, "read PCM"))
	}
	if pcm == nil || pcm.Format == nil || pcm.Format.NumChannels == 0 {
		return nil, types.DecodeError(errors.New("missing audio format"))
	}

	depth := pcm.SourceBitDepth
	if depth == 0 {
		depth = int(d.BitDepth)
	}
	if depth <= 0 || depth > 32 {
		return nil, types.DecodeError(errors.Errorf("unsupported bit depth %d", depth))
	}

	mono := downmix(pcm.Data, pcm.Format.NumChannels, float32(int64(1)<<(depth-1)))
	return &Buffer{
		SampleRate: SampleRate,
		Samples:    resample(mono, pcm.Format.SampleRate, SampleRate),
	}, nil
}

// DecodeBytes is Decode over an in-memory file.
func DecodeBytes(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, types.DecodeError(errors.New("empty audio"))
	}
	return Decode(bytes.NewReader(data))
}

// EncodeWAV writes b as a 16-bit mono WAV file.
func EncodeWAV(w io.WriteSeeker, b *Buffer) error {
	if b.Empty() {
		return errors.New("empty buffer")
	}
	data := make([]int, len(b.Samples))
	for i, s := range b.Samples {
		data[i] = int(clamp(s) * 32767)
	}

	enc := wav.NewEncoder(w, b.SampleRate, 16, 1, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: 1, SampleRate: b.SampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrap(err, "write wav")
	}
	return errors.Wrap(enc.Close(), "close wav")
}

func clamp(s float32) float32 {
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
