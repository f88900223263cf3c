// Package audio decodes and encodes RIFF/WAVE clips.
//
// Decoding yields float samples in [-1, 1] per channel, which is what the
// risk estimator consumes. Only uncompressed PCM and IEEE float payloads are
// supported; compressed containers (webm, ogg, mp3) are left to the caller.
package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"
)

const (
	formatPCM        = 1
	formatFloat      = 3
	formatExtensible = 0xFFFE
)

var (
	ErrNotWAV      = errors.New("audio: not a RIFF/WAVE file")
	ErrUnsupported = errors.New("audio: unsupported WAV encoding")
)

// Info describes a WAV payload without decoding it.
type Info struct {
	Format        int
	SampleRate    int
	Channels      int
	BitsPerSample int
	DataOffset    int
	DataSize      int
}

// Frames returns the number of sample frames in the data chunk.
func (i Info) Frames() int {
	block := i.Channels * i.BitsPerSample / 8
	if block <= 0 {
		return 0
	}
	return i.DataSize / block
}

// Duration of the payload.
func (i Info) Duration() time.Duration {
	if i.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(i.Frames()) / float64(i.SampleRate) * float64(time.Second))
}

// Decoded holds one slice of samples per channel.
type Decoded struct {
	SampleRate int
	Channels   [][]float64
}

// Mono returns the first channel.
func (d *Decoded) Mono() []float64 {
	if len(d.Channels) == 0 {
		return nil
	}
	return d.Channels[0]
}

// Duration of the decoded clip.
func (d *Decoded) Duration() time.Duration {
	if d.SampleRate <= 0 || len(d.Channels) == 0 {
		return 0
	}
	return time.Duration(float64(len(d.Channels[0])) / float64(d.SampleRate) * float64(time.Second))
}

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WAVE"
}

// Parse walks the RIFF chunks of data and returns the format description.
func Parse(data []byte) (Info, error) {
	if !IsWAV(data) {
		return Info{}, ErrNotWAV
	}

	var info Info
	foundFmt := false
	offset := 12
	for offset+8 <= len(data) {
		id := string(data[offset : offset+4])
		size := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8

		switch id {
		case "fmt ":
			if size < 16 || body+16 > len(data) {
				return Info{}, fmt.Errorf("%w: short fmt chunk", ErrNotWAV)
			}
			f := data[body:]
			info.Format = int(binary.LittleEndian.Uint16(f[0:2]))
			info.Channels = int(binary.LittleEndian.Uint16(f[2:4]))
			info.SampleRate = int(binary.LittleEndian.Uint32(f[4:8]))
			info.BitsPerSample = int(binary.LittleEndian.Uint16(f[14:16]))
			if info.Format == formatExtensible && size >= 26 && body+26 <= len(data) {
				info.Format = int(binary.LittleEndian.Uint16(f[24:26]))
			}
			foundFmt = true
		case "data":
			if !foundFmt {
				return Info{}, fmt.Errorf("%w: data chunk before fmt chunk", ErrNotWAV)
			}
			info.DataOffset = body
			info.DataSize = size
			// Streaming writers leave the size at 0 or 0xFFFFFFFF.
			if size == 0 || body+size > len(data) {
				info.DataSize = len(data) - body
			}
			return info, nil
		}

		offset = body + size
		if size%2 != 0 {
			offset++
		}
	}
	return Info{}, fmt.Errorf("%w: missing data chunk", ErrNotWAV)
}

// Decode converts a WAV payload into float samples.
func Decode(data []byte) (*Decoded, error) {
	info, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if info.Channels <= 0 || info.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: %d channels at %d Hz", ErrUnsupported, info.Channels, info.SampleRate)
	}

	read, err := sampleReader(info.Format, info.BitsPerSample)
	if err != nil {
		return nil, err
	}

	width := info.BitsPerSample / 8
	frames := info.Frames()
	pcm := data[info.DataOffset : info.DataOffset+info.DataSize]

	out := &Decoded{SampleRate: info.SampleRate, Channels: make([][]float64, info.Channels)}
	for ch := range out.Channels {
		out.Channels[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		base := i * info.Channels * width
		for ch := 0; ch < info.Channels; ch++ {
			out.Channels[ch][i] = read(pcm[base+ch*width:])
		}
	}
	return out, nil
}

func sampleReader(format, bits int) (func([]byte) float64, error) {
	switch {
	case format == formatPCM && bits == 8:
		return func(b []byte) float64 { return (float64(b[0]) - 128) / 128 }, nil
	case format == formatPCM && bits == 16:
		return func(b []byte) float64 { return float64(int16(binary.LittleEndian.Uint16(b))) / 32768 }, nil
	case format == formatPCM && bits == 24:
		return func(b []byte) float64 {
			v := int32(b[0]) | int32(b[1])<<8 | int32(int8(b[2]))<<16
			return float64(v) / 8388608
		}, nil
	case format == formatPCM && bits == 32:
		return func(b []byte) float64 { return float64(int32(binary.LittleEndian.Uint32(b))) / 2147483648 }, nil
	case format == formatFloat && bits == 32:
		return func(b []byte) float64 { return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))) }, nil
	case format == formatFloat && bits == 64:
		return func(b []byte) float64 { return math.Float64frombits(binary.LittleEndian.Uint64(b)) }, nil
	}
	return nil, fmt.Errorf("%w: format %d, %d bits", ErrUnsupported, format, bits)
}

// EncodePCM16 wraps mono samples in [-1, 1] as a 16-bit PCM WAV file.
func EncodePCM16(samples []float64, sampleRate int) []byte {
	dataSize := len(samples) * 2
	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], formatPCM)
	binary.LittleEndian.PutUint16(buf[22:24], 1)
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(sampleRate*2))
	binary.LittleEndian.PutUint16(buf[32:34], 2)
	binary.LittleEndian.PutUint16(buf[34:36], 16)

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	for i, s := range samples {
		s = math.Max(-1, math.Min(1, s))
		binary.LittleEndian.PutUint16(buf[44+i*2:], uint16(int16(math.Round(s*32767))))
	}
	return buf
}

// Tone synthesises a sine wave of the given frequency and amplitude.
func Tone(freq float64, d time.Duration, sampleRate int, amplitude float64) []float64 {
	n := int(d.Seconds() * float64(sampleRate))
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}
