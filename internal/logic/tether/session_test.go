package tether

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/gpcam/internal/gphoto"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
	"github.com/cjeanneret/gpcam/internal/hw/gpio"
)

func newTestSession(t *testing.T, opts Options) (*native.MockDriver, *Session) {
	t.Helper()
	m := native.NewMockDriver()
	cam := gphoto.New(m, native.MockModel, native.MockPort)
	t.Cleanup(func() { cam.Finalize() })
	if opts.Dir == "" {
		opts.Dir = t.TempDir()
	}
	return m, NewSession(cam, opts)
}

func TestShoot_Downloads(t *testing.T) {
	dir := t.TempDir()
	m, s := newTestSession(t, Options{Dir: dir})

	shot, err := s.Shoot()
	if err != nil {
		t.Fatal(err)
	}
	if shot.Seq != 1 || shot.Remote.Name != "CAPT0001.JPG" {
		t.Errorf("shot = %+v", shot)
	}
	if shot.Local != filepath.Join(dir, "CAPT0001.JPG") {
		t.Errorf("local = %q", shot.Local)
	}
	data, err := os.ReadFile(shot.Local)
	if err != nil || len(data) != shot.Bytes || shot.Bytes == 0 {
		t.Errorf("downloaded %d bytes (%v), shot says %d", len(data), err, shot.Bytes)
	}
	if !m.HasFile(native.MockCaptureFolder, "CAPT0001.JPG") {
		t.Error("file deleted without DeleteAfter")
	}
}

func TestShoot_DeleteAfterAndLED(t *testing.T) {
	drv := gpio.NewMockDriver()
	led, err := gpio.NewLED(drv, 27)
	if err != nil {
		t.Fatal(err)
	}
	m, s := newTestSession(t, Options{DeleteAfter: true, LED: led})

	if _, err := s.Shoot(); err != nil {
		t.Fatal(err)
	}
	if m.HasFile(native.MockCaptureFolder, "CAPT0001.JPG") {
		t.Error("file still on card with DeleteAfter")
	}
	w := drv.Writes()
	if len(w) != 3 || w[1].Level != gpio.High || w[2].Level != gpio.Low {
		t.Errorf("LED writes = %v, want off, on, off", w)
	}
}

func TestShoot_CaptureError(t *testing.T) {
	drv := gpio.NewMockDriver()
	led, _ := gpio.NewLED(drv, 27)
	m, s := newTestSession(t, Options{LED: led})
	m.Fail(native.CallCapture, native.ErrorCameraBusy)

	if _, err := s.Shoot(); !errors.Is(err, gphoto.ErrNative) {
		t.Fatalf("expected native error, got %v", err)
	}
	w := drv.Writes()
	if w[len(w)-1].Level != gpio.Low {
		t.Error("LED left on after failed capture")
	}
}

func TestDownload_UniqueNames(t *testing.T) {
	dir := t.TempDir()
	m, s := newTestSession(t, Options{Dir: dir})
	m.AddFile("/a", "IMG.JPG", []byte("one"))
	m.AddFile("/b", "IMG.JPG", []byte("two"))

	cam := s.camera
	first, err := s.Download(cam.Filesystem("/a").File("IMG.JPG"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Download(cam.Filesystem("/b").File("IMG.JPG"))
	if err != nil {
		t.Fatal(err)
	}
	if first.Local != filepath.Join(dir, "IMG.JPG") || second.Local != filepath.Join(dir, "IMG_1.JPG") {
		t.Errorf("locals = %q, %q", first.Local, second.Local)
	}
	if second.Seq != 2 {
		t.Errorf("seq = %d", second.Seq)
	}
}

// pressTrigger fires n times, then blocks until cancelled.
type pressTrigger struct {
	mu sync.Mutex
	n  int
}

func (p *pressTrigger) WaitPress(ctx context.Context) error {
	p.mu.Lock()
	if p.n > 0 {
		p.n--
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	<-ctx.Done()
	return ctx.Err()
}

func TestRun_ShootsPerPress(t *testing.T) {
	var shots []Shot
	_, s := newTestSession(t, Options{OnShot: func(sh Shot) { shots = append(shots, sh) }})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	err := s.Run(ctx, &pressTrigger{n: 3})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Run returned %v", err)
	}
	if len(shots) != 3 {
		t.Fatalf("shots = %d, want 3", len(shots))
	}
	if shots[2].Remote.Name != "CAPT0003.JPG" {
		t.Errorf("third shot = %s", shots[2].Remote)
	}
}

func TestRun_ContinuesAfterFailedShot(t *testing.T) {
	count := 0
	m, s := newTestSession(t, Options{OnShot: func(Shot) { count++ }})
	m.Fail(native.CallCapture, native.ErrorCameraBusy)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx, &pressTrigger{n: 2})
	if n := m.Calls(native.CallCapture); n != 2 {
		t.Errorf("capture attempted %d times, want 2", n)
	}
	if count != 0 {
		t.Errorf("OnShot called %d times for failed shots", count)
	}
	if n := m.Calls(native.CallCameraExit); n != 0 {
		t.Errorf("busy camera was reset %d times", n)
	}
}

func TestRun_ResetsAfterPortError(t *testing.T) {
	m, s := newTestSession(t, Options{})
	m.Fail(native.CallCapture, native.ErrorIO)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_ = s.Run(ctx, &pressTrigger{n: 2})
	if n := m.Calls(native.CallCameraExit); n != 2 {
		t.Errorf("camera exit calls = %d, want 2", n)
	}

	m.Fail(native.CallCapture, native.OK)
	if _, err := s.Shoot(); err != nil {
		t.Errorf("shoot after reset: %v", err)
	}
}

func TestRun_WithButton(t *testing.T) {
	drv := gpio.NewMockDriver()
	btn, err := gpio.NewButton(drv, 17, 0, time.Microsecond)
	if err != nil {
		t.Fatal(err)
	}
	drv.Script(17, gpio.Low, gpio.High, gpio.Low, gpio.High, gpio.Low)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	count := 0
	_, s := newTestSession(t, Options{OnShot: func(Shot) {
		count++
		if count == 2 {
			cancel()
		}
	}})

	if err := s.Run(ctx, btn); !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v", err)
	}
	if count != 2 {
		t.Errorf("shots = %d, want 2", count)
	}
}

func TestWatch_DownloadsAnnouncedFiles(t *testing.T) {
	var got []string
	m, s := newTestSession(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s.opts.OnShot = func(sh Shot) {
		got = append(got, sh.Remote.Name)
		if len(got) == 2 {
			cancel()
		}
	}
	m.AddFile("/store/DCIM", "A.JPG", []byte("a"))
	m.AddFile("/store/DCIM", "B.JPG", []byte("b"))
	m.PushEvent(native.EventFileAdded, native.EventData{Path: native.FilePath{Folder: "/store/DCIM", Name: "A.JPG"}})
	m.PushEvent(native.EventCaptureComplete, native.EventData{})
	m.PushEvent(native.EventFileAdded, native.EventData{Path: native.FilePath{Folder: "/store/DCIM", Name: "B.JPG"}})

	if err := s.Watch(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Watch returned %v", err)
	}
	if len(got) != 2 || got[0] != "A.JPG" || got[1] != "B.JPG" {
		t.Errorf("downloaded %v", got)
	}
}

func TestWatch_NativeError(t *testing.T) {
	m, s := newTestSession(t, Options{})
	m.Fail(native.CallWaitForEvent, native.ErrorIO)
	if err := s.Watch(context.Background()); !errors.Is(err, gphoto.ErrNative) {
		t.Errorf("expected native error, got %v", err)
	}
}
