package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	samples := Tone(220, 3*time.Second, 16000, 0.5)
	wav := EncodePCM16(samples, 16000)

	info, err := Parse(wav)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.SampleRate != 16000 || info.Channels != 1 || info.BitsPerSample != 16 {
		t.Errorf("unexpected info %+v", info)
	}
	if info.Duration() != 3*time.Second {
		t.Errorf("expected 3s, got %v", info.Duration())
	}

	dec, err := Decode(wav)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := dec.Mono()
	if len(got) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(got))
	}
	for i := range got {
		if math.Abs(got[i]-samples[i]) > 1.0/16384 {
			t.Fatalf("sample %d: got %f, want %f", i, got[i], samples[i])
		}
	}
}

func TestDecode_StereoFloatSkipsUnknownChunks(t *testing.T) {
	// LIST chunk with odd size before fmt, then 2 frames of float32 stereo.
	var b []byte
	b = append(b, "RIFF\x00\x00\x00\x00WAVE"...)
	b = append(b, "LIST"...)
	b = binary.LittleEndian.AppendUint32(b, 3)
	b = append(b, 'a', 'b', 'c', 0)
	b = append(b, "fmt "...)
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = binary.LittleEndian.AppendUint16(b, formatFloat)
	b = binary.LittleEndian.AppendUint16(b, 2)
	b = binary.LittleEndian.AppendUint32(b, 8000)
	b = binary.LittleEndian.AppendUint32(b, 8000*8)
	b = binary.LittleEndian.AppendUint16(b, 8)
	b = binary.LittleEndian.AppendUint16(b, 32)
	b = append(b, "data"...)
	b = binary.LittleEndian.AppendUint32(b, 16)
	for _, v := range []float32{0.25, -0.5, 1, 0} {
		b = binary.LittleEndian.AppendUint32(b, math.Float32bits(v))
	}

	dec, err := Decode(b)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(dec.Channels) != 2 {
		t.Fatalf("expected 2 channels, got %d", len(dec.Channels))
	}
	if dec.Channels[0][0] != 0.25 || dec.Channels[1][0] != -0.5 || dec.Channels[0][1] != 1 {
		t.Errorf("unexpected samples %v", dec.Channels)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrNotWAV},
		{"webm", []byte("\x1aE\xdf\xa3 not a wav file"), ErrNotWAV},
		{"no data chunk", []byte("RIFF\x00\x00\x00\x00WAVE"), ErrNotWAV},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	wav := EncodePCM16([]float64{0, 0}, 8000)
	binary.LittleEndian.PutUint16(wav[20:22], 2) // ADPCM
	if _, err := Decode(wav); !errors.Is(err, ErrUnsupported) {
		t.Errorf("expected ErrUnsupported, got %v", err)
	}
}
