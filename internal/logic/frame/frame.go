// Package frame post-processes live-view frames: resize for display and
// perceptual change detection for the preview stream.
package frame

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/corona10/goimagehash"
	"github.com/disintegration/imaging"
)

// DefaultQuality is the JPEG quality of re-encoded frames.
const DefaultQuality = 80

// Decode parses a JPEG frame.
func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	return img, nil
}

// Resize scales a JPEG frame to width pixels, keeping the aspect ratio,
// and re-encodes it. A width of 0 or one at least as large as the frame
// returns data unchanged.
func Resize(data []byte, width, quality int) ([]byte, error) {
	if width <= 0 {
		return data, nil
	}
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if img.Bounds().Dx() <= width {
		return data, nil
	}
	if quality <= 0 {
		quality = DefaultQuality
	}
	dst := imaging.Resize(img, width, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

// ChangeDetector reports whether a frame differs from the previous one
// by at least Threshold bits of average hash.
// The first frame always counts as changed.
type ChangeDetector struct {
	Threshold int

	prev *goimagehash.ImageHash
}

// Changed hashes data and compares it with the last frame seen.
func (d *ChangeDetector) Changed(data []byte) (bool, error) {
	img, err := Decode(data)
	if err != nil {
		return false, err
	}
	hash, err := goimagehash.AverageHash(img)
	if err != nil {
		return false, fmt.Errorf("hash frame: %w", err)
	}
	if d.prev == nil {
		d.prev = hash
		return true, nil
	}
	distance, err := d.prev.Distance(hash)
	d.prev = hash
	if err != nil {
		return false, err
	}
	return distance >= d.Threshold, nil
}

// Reset forgets the previous frame.
func (d *ChangeDetector) Reset() {
	d.prev = nil
}
