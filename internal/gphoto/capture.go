package gphoto

import (
	"fmt"

	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

// Capture saves pending configuration and takes one capture of kind.
// The returned file references camera storage; its bytes are not fetched.
func (c *Camera) Capture(kind native.CaptureType) (*File, error) {
	if _, err := c.Save(); err != nil {
		return nil, fmt.Errorf("save before capture: %w", err)
	}
	h, ctx, err := c.session()
	if err != nil {
		return nil, err
	}
	p, st := h.Capture(ctx, kind)
	if err := check(native.CallCapture, st); err != nil {
		return nil, err
	}
	debug.Capture(p.Folder, p.Name)
	return newFile(c, FilePath{Folder: p.Folder, Name: p.Name}), nil
}

// CaptureImage captures a still image.
func (c *Camera) CaptureImage() (*File, error) {
	return c.Capture(native.CaptureImage)
}

// Preview saves pending configuration and grabs one live-view frame.
// The frame lives in memory only.
func (c *Camera) Preview() (*File, error) {
	if _, err := c.Save(); err != nil {
		return nil, fmt.Errorf("save before preview: %w", err)
	}
	h, ctx, err := c.session()
	if err != nil {
		return nil, err
	}
	d, st := h.CapturePreview(ctx)
	if err := check(native.CallCapturePreview, st); err != nil {
		return nil, err
	}
	return newPreview(c, d), nil
}

// TriggerCapture saves pending configuration and fires the shutter
// without waiting. The new file is announced by a FileAddedEvent.
func (c *Camera) TriggerCapture() error {
	if _, err := c.Save(); err != nil {
		return fmt.Errorf("save before trigger: %w", err)
	}
	h, ctx, err := c.session()
	if err != nil {
		return err
	}
	return check(native.CallTriggerCapture, h.TriggerCapture(ctx))
}
