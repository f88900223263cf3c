package risk

import (
	"bytes"
	"image/png"
	"strings"
	"testing"
)

func TestBlend(t *testing.T) {
	tl := &Timeline{Risk: []float64{0, 0.5, 1}}
	tl.Blend(0.2)
	want := []float64{0.4, 0.65, 0.9}
	for i := range want {
		if diff := tl.Risk[i] - want[i]; diff > 1e-12 || diff < -1e-12 {
			t.Errorf("frame %d = %f, want %f", i, tl.Risk[i], want[i])
		}
	}
}

func TestBlend_NotIdempotent(t *testing.T) {
	once := &Timeline{Risk: []float64{0.1, 0.9}}
	twice := once.Clone()

	once.Blend(0.9)
	twice.Blend(0.9)
	twice.Blend(0.9)

	same := true
	for i := range once.Risk {
		if once.Risk[i] != twice.Risk[i] {
			same = false
		}
	}
	if same {
		t.Error("blending twice must differ from blending once")
	}
}

func TestClone_IsDeep(t *testing.T) {
	tl := &Timeline{Risk: []float64{0.5}}
	cp := tl.Clone()
	cp.Risk[0] = 1
	if tl.Risk[0] != 0.5 {
		t.Error("clone shares risk storage with original")
	}
}

func TestGradient(t *testing.T) {
	if Gradient[0] != anchors[0] {
		t.Errorf("first entry %v, want %v", Gradient[0], anchors[0])
	}
	if Gradient[GradientSize-1] != anchors[len(anchors)-1] {
		t.Errorf("last entry %v, want %v", Gradient[GradientSize-1], anchors[len(anchors)-1])
	}
	if Color(-1) != Gradient[0] || Color(2) != Gradient[GradientSize-1] {
		t.Error("out-of-range risk must clamp to the palette ends")
	}

	lum := func(i int) float64 {
		c := Gradient[i]
		return 0.2126*float64(c.R) + 0.7152*float64(c.G) + 0.0722*float64(c.B)
	}
	for i := 1; i < GradientSize; i++ {
		if lum(i) < lum(i-1)-1 {
			t.Fatalf("luminance drops at entry %d", i)
		}
	}
}

func TestRender(t *testing.T) {
	tl := &Timeline{Risk: []float64{0, 1}}

	var buf bytes.Buffer
	if err := tl.WritePNG(&buf, 4, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	r, _, _, _ := img.At(3, 1).RGBA()
	if uint8(r>>8) != Gradient[GradientSize-1].R {
		t.Errorf("expected right half to use the top colour")
	}

	if err := tl.WritePNG(&buf, 0, 1); err == nil {
		t.Error("expected error for zero width")
	}

	s := tl.ANSI(4)
	if strings.Count(s, "\x1b[48;2;") != 4 || !strings.HasSuffix(s, "\x1b[0m") {
		t.Errorf("unexpected ANSI output %q", s)
	}
}
