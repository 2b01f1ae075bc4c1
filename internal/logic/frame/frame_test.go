package frame

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func encode(t *testing.T, w, h int, fill func(x, y int) uint8) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: fill(x, y)})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gradient(x, y int) uint8 { return uint8(x * 2) }

func TestResize(t *testing.T) {
	src := encode(t, 128, 96, gradient)

	tests := []struct {
		name          string
		width         int
		wantW, wantH  int
		wantUnchanged bool
	}{
		{"half", 64, 64, 48, false},
		{"zero keeps", 0, 128, 96, true},
		{"larger keeps", 500, 128, 96, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Resize(src, tt.width, 0)
			if err != nil {
				t.Fatal(err)
			}
			if tt.wantUnchanged && !bytes.Equal(out, src) {
				t.Error("frame re-encoded although no resize was needed")
			}
			img, err := Decode(out)
			if err != nil {
				t.Fatal(err)
			}
			if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestResize_Garbage(t *testing.T) {
	if _, err := Resize([]byte("not a jpeg"), 10, 0); err == nil {
		t.Error("expected decode error")
	}
}

func TestChangeDetector(t *testing.T) {
	a := encode(t, 64, 64, gradient)
	b := encode(t, 64, 64, func(x, y int) uint8 {
		if y < 32 {
			return 255
		}
		return 0
	})

	d := &ChangeDetector{Threshold: 5}
	steps := []struct {
		frame []byte
		want  bool
	}{
		{a, true},
		{a, false},
		{b, true},
		{b, false},
	}
	for i, s := range steps {
		got, err := d.Changed(s.frame)
		if err != nil {
			t.Fatal(err)
		}
		if got != s.want {
			t.Errorf("frame %d: Changed = %v, want %v", i, got, s.want)
		}
	}

	d.Reset()
	if got, _ := d.Changed(b); !got {
		t.Error("first frame after Reset should count as changed")
	}
}
