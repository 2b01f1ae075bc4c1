package gphoto

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"

	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

// All lists attached cameras. The returned cameras are uninitialized:
// discovery opens no device.
func All(d native.Driver) ([]*Camera, error) {
	ctx, err := NewContext(d)
	if err != nil {
		return nil, err
	}
	defer ctx.Finalize()

	entries, st := d.Autodetect(ctx.native)
	if err := check(native.CallAutodetect, st); err != nil {
		return nil, err
	}

	seen := make(map[native.Entry]bool, len(entries))
	cameras := make([]*Camera, 0, len(entries))
	for _, e := range entries {
		if seen[e] {
			continue
		}
		seen[e] = true
		cameras = append(cameras, New(d, e.Model, e.Port))
	}
	return cameras, nil
}

// First returns the first attached camera or ErrNoDevices.
func First(d native.Driver) (*Camera, error) {
	cameras, err := All(d)
	if err != nil {
		return nil, err
	}
	if len(cameras) == 0 {
		return nil, ErrNoDevices
	}
	return cameras[0], nil
}

// Where returns the attached cameras for which pred is true.
func Where(d native.Driver, pred func(*Camera) bool) ([]*Camera, error) {
	cameras, err := All(d)
	if err != nil {
		return nil, err
	}
	var out []*Camera
	for _, c := range cameras {
		if pred(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// MatchModel returns a predicate matching the model name against a glob
// pattern, ignoring case ("canon*", "*D90").
func MatchModel(pattern string) (func(*Camera) bool, error) {
	g, err := compileFold(pattern)
	if err != nil {
		return nil, err
	}
	return func(c *Camera) bool { return g.Match(strings.ToLower(c.Model)) }, nil
}

// MatchPort returns a predicate matching the port path against a glob
// pattern ("usb:*").
func MatchPort(pattern string) (func(*Camera) bool, error) {
	g, err := compileFold(pattern)
	if err != nil {
		return nil, err
	}
	return func(c *Camera) bool { return g.Match(strings.ToLower(c.Port)) }, nil
}

func compileFold(pattern string) (glob.Glob, error) {
	g, err := glob.Compile(strings.ToLower(pattern))
	if err != nil {
		return nil, fmt.Errorf("gphoto: bad pattern %q: %w", pattern, err)
	}
	return g, nil
}

// Open runs fn with the camera (model, port) and finalizes it afterwards,
// whether fn returns normally, returns an error or panics.
func Open(d native.Driver, model, port string, fn func(*Camera) error) error {
	return use(New(d, model, port), fn)
}

// OpenFirst is Open on the first attached camera.
func OpenFirst(d native.Driver, fn func(*Camera) error) error {
	c, err := First(d)
	if err != nil {
		return err
	}
	return use(c, fn)
}

func use(c *Camera, fn func(*Camera) error) (err error) {
	defer func() {
		if ferr := c.Finalize(); err == nil {
			err = ferr
		}
	}()
	return fn(c)
}
