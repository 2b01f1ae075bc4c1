// Package tether turns a camera into a tethering station: shoot on a
// trigger, download to disk, optionally clear the card.
package tether

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/cjeanneret/gpcam/internal/gphoto"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
	"github.com/cjeanneret/gpcam/internal/hw/gpio"
)

// Trigger blocks until the next shutter request.
// *gpio.Button implements it.
type Trigger interface {
	WaitPress(ctx context.Context) error
}

// Options configures a Session.
type Options struct {
	Dir         string        // local download directory
	DeleteAfter bool          // remove files from the card once downloaded
	LED         *gpio.LED     // busy indicator, may be nil
	Lock        sync.Locker   // serializes camera access; nil = private mutex
	OnShot      func(Shot)    // called after every successful download
	WaitTimeout time.Duration // per-event wait used by Watch
}

// Shot is one downloaded capture.
type Shot struct {
	Seq    int
	Remote gphoto.FilePath
	Local  string
	Bytes  int
	Took   time.Duration
}

// Session contains the tethering logic: capture on request, download
// to a local directory, optionally delete from the card.
type Session struct {
	camera *gphoto.Camera
	opts   Options
	seq    int
}

func NewSession(c *gphoto.Camera, opts Options) *Session {
	if opts.Lock == nil {
		opts.Lock = &sync.Mutex{}
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	return &Session{camera: c, opts: opts}
}

// Shoot captures one image and downloads it.
func (s *Session) Shoot() (Shot, error) {
	s.opts.Lock.Lock()
	defer s.opts.Lock.Unlock()

	start := time.Now()
	if s.opts.LED != nil {
		_ = s.opts.LED.On()
		defer s.opts.LED.Off()
	}

	f, err := s.camera.CaptureImage()
	if err != nil {
		return Shot{}, fmt.Errorf("capture: %w", err)
	}
	shot, err := s.download(f)
	if err != nil {
		return Shot{}, err
	}
	shot.Took = time.Since(start)
	return shot, nil
}

// Download fetches f into the session directory.
func (s *Session) Download(f *gphoto.File) (Shot, error) {
	s.opts.Lock.Lock()
	defer s.opts.Lock.Unlock()
	return s.download(f)
}

// download must hold the lock.
func (s *Session) download(f *gphoto.File) (Shot, error) {
	data, err := f.Data()
	if err != nil {
		return Shot{}, fmt.Errorf("download %s: %w", f, err)
	}
	if err := os.MkdirAll(s.opts.Dir, 0o755); err != nil {
		return Shot{}, fmt.Errorf("create download dir: %w", err)
	}
	local := uniquePath(filepath.Join(s.opts.Dir, f.Name))
	if err := os.WriteFile(local, data, 0o644); err != nil {
		return Shot{}, fmt.Errorf("write %s: %w", local, err)
	}
	if s.opts.DeleteAfter {
		if err := f.Delete(); err != nil {
			return Shot{}, err
		}
	}

	s.seq++
	shot := Shot{Seq: s.seq, Remote: f.FilePath, Local: local, Bytes: len(data)}
	debug.Live("Shot %d: %s -> %s (%d bytes)", shot.Seq, shot.Remote, shot.Local, shot.Bytes)
	if s.opts.OnShot != nil {
		s.opts.OnShot(shot)
	}
	return shot, nil
}

// Run shoots on every trigger until ctx is cancelled. A failed shot is
// logged and the loop keeps waiting; a trigger error ends it. After a
// port failure the device session is reset before the next press.
func (s *Session) Run(ctx context.Context, t Trigger) error {
	debug.Section("Tether")
	debug.Info("Waiting for shutter button, downloading to %s", s.opts.Dir)

	for {
		if err := t.WaitPress(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := s.Shoot(); err != nil {
			debug.Error(err)
			s.reconnect(err)
		}
	}
}

func (s *Session) reconnect(err error) {
	var ne *gphoto.NativeError
	if !errors.As(err, &ne) || ne.Kind() != native.KindPort {
		return
	}
	s.opts.Lock.Lock()
	defer s.opts.Lock.Unlock()
	debug.Live("Port error, resetting %s", s.camera)
	if err := s.camera.Reset(); err != nil {
		debug.Error(fmt.Errorf("reset camera: %w", err))
	}
}

// Watch downloads every file the camera announces, such as shots
// taken with the camera's own shutter button, until ctx is cancelled.
func (s *Session) Watch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		s.opts.Lock.Lock()
		ev, err := s.camera.Wait(s.opts.WaitTimeout)
		if err == nil {
			if fa, ok := ev.(gphoto.FileAddedEvent); ok {
				_, err = s.download(fa.File)
			}
		}
		s.opts.Lock.Unlock()
		if err != nil {
			return err
		}
	}
}

// uniquePath appends _1, _2... before the extension until p is free.
func uniquePath(p string) string {
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return p
	}
	ext := filepath.Ext(p)
	base := strings.TrimSuffix(p, ext)
	for i := 1; ; i++ {
		cand := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(cand); os.IsNotExist(err) {
			return cand
		}
	}
}
