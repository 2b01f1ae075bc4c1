package main

import (
	"bytes"
	"context"
	"errors"
	"image/jpeg"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cjeanneret/gpcam/internal/config"
	"github.com/cjeanneret/gpcam/internal/gphoto"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
	"github.com/cjeanneret/gpcam/internal/web"
)

// run executes the CLI against a mock camera and returns its output.
func run(t *testing.T, m *native.MockDriver, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a := &app{driver: m, out: &out}
	root := a.rootCmd()
	root.SetArgs(append([]string{"--config", filepath.Join("configs", "missing.yaml")}, args...))
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

// ---------- parseAssignments ----------

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"iso=400", "artist=a=b", "/main/settings/artist2="})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]interface{}{"iso": "400", "artist": "a=b", "/main/settings/artist2": ""}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %v, want %v", k, got[k], v)
		}
	}
}

func TestParseAssignments_Invalid(t *testing.T) {
	cases := []struct {
		name string
		args []string
	}{
		{"no_equals", []string{"iso"}},
		{"empty_key", []string{"=400"}},
		{"duplicate", []string{"iso=100", "iso=200"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := parseAssignments(tc.args); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// ---------- runAll ----------

func TestRunAll_FirstReturnCancelsOthers(t *testing.T) {
	boom := errors.New("boom")
	err := runAll(context.Background(),
		func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() },
		func(ctx context.Context) error { return boom },
	)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
}

func TestRunAll_CancelIsClean(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runAll(ctx, func(ctx context.Context) error { <-ctx.Done(); return ctx.Err() })
	if err != nil {
		t.Errorf("err = %v, want nil", err)
	}
}

// ---------- commands ----------

func TestList(t *testing.T) {
	out, err := run(t, native.NewMockDriver(), "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, native.MockModel) || !strings.Contains(out, native.MockPort) {
		t.Errorf("output:\n%s", out)
	}
}

func TestSelectCamera_NoMatch(t *testing.T) {
	_, err := run(t, native.NewMockDriver(), "--model", "nikon*", "abilities")
	if !errors.Is(err, gphoto.ErrNoDevices) {
		t.Errorf("err = %v, want ErrNoDevices", err)
	}
}

func TestSelectCamera_BadPattern(t *testing.T) {
	if _, err := run(t, native.NewMockDriver(), "--model", "[bad", "abilities"); err == nil {
		t.Error("expected pattern error")
	}
}

func TestAbilities(t *testing.T) {
	out, err := run(t, native.NewMockDriver(), "--model", "mock*", "--port", "usb:*", "abilities")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"capture_image", "trigger_capture", "Model"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestConfig_Tree(t *testing.T) {
	out, err := run(t, native.NewMockDriver(), "config")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"main: Camera and Driver Configuration",
		"  imgsettings: Image Settings",
		"    iso (radio) = Auto [Auto, 100",
		"serialnumber (text) = MOCK000001 (read-only)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestConfig_Key(t *testing.T) {
	out, err := run(t, native.NewMockDriver(), "config", "exposurecompensation")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"/main/capturesettings/exposurecompensation",
		"[-3, 3, 0.5]",
		"-3 -2.5 -2 -1.5 -1 -0.5 0 0.5 1 1.5 2 2.5 3",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestSet(t *testing.T) {
	m := native.NewMockDriver()
	out, err := run(t, m, "set", "iso=400", "/main/capturesettings/aperture=8")
	if err != nil {
		t.Fatal(err)
	}
	if n := m.Calls(native.CallSetConfig); n != 1 {
		t.Errorf("SetConfig calls = %d, want 1", n)
	}
	if v, _ := m.DeviceValue("iso"); v != "400" {
		t.Errorf("iso = %v", v)
	}
	if !strings.Contains(out, "iso = 400") {
		t.Errorf("output:\n%s", out)
	}
}

func TestSet_ReadOnly(t *testing.T) {
	_, err := run(t, native.NewMockDriver(), "set", "serialnumber=X")
	if !errors.Is(err, gphoto.ErrReadOnly) {
		t.Errorf("err = %v, want ErrReadOnly", err)
	}
}

func TestCapture(t *testing.T) {
	out, err := run(t, native.NewMockDriver(), "capture")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != native.MockCaptureFolder+"/CAPT0001.JPG" {
		t.Errorf("output = %q", out)
	}
}

func TestCapture_DownloadDelete(t *testing.T) {
	m := native.NewMockDriver()
	dir := t.TempDir()
	if _, err := run(t, m, "capture", "--download", dir, "--delete"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "CAPT0001.JPG")); err != nil {
		t.Error(err)
	}
	if m.HasFile(native.MockCaptureFolder, "CAPT0001.JPG") {
		t.Error("file still on card")
	}
}

func TestCapture_Trigger(t *testing.T) {
	m := native.NewMockDriver()
	dir := t.TempDir()
	out, err := run(t, m, "capture", "--trigger", "--download", dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Calls(native.CallTriggerCapture) != 1 || m.Calls(native.CallCapture) != 0 {
		t.Errorf("trigger = %d, capture = %d", m.Calls(native.CallTriggerCapture), m.Calls(native.CallCapture))
	}
	if !strings.Contains(out, native.MockCaptureFolder+"/CAPT0001.JPG") {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(filepath.Join(dir, "CAPT0001.JPG")); err != nil {
		t.Error(err)
	}
}

func TestCapture_DeleteNeedsDownload(t *testing.T) {
	m := native.NewMockDriver()
	if _, err := run(t, m, "capture", "--delete"); err == nil {
		t.Error("expected error")
	}
	if n := m.Calls(native.CallCapture); n != 0 {
		t.Errorf("captured %d times", n)
	}
}

func TestPreview(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "frame.jpg")
	if _, err := run(t, native.NewMockDriver(), "preview", "--width", "32", "-o", dst); err != nil {
		t.Fatal(err)
	}
	f, err := os.Open(dst)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := jpeg.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if w := img.Bounds().Dx(); w != 32 {
		t.Errorf("width = %d, want 32", w)
	}
}

func TestLs(t *testing.T) {
	out, err := run(t, native.NewMockDriver(), "ls", native.MockCaptureFolder)
	if err != nil {
		t.Fatal(err)
	}
	if out != "IMG_0001.JPG\nIMG_0002.JPG\n" {
		t.Errorf("output = %q", out)
	}
}

func TestLs_Recursive(t *testing.T) {
	out, err := run(t, native.NewMockDriver(), "ls", "-r", "/")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, native.MockCaptureFolder+"/IMG_0002.JPG") {
		t.Errorf("output:\n%s", out)
	}
}

func TestGetAndRm(t *testing.T) {
	m := native.NewMockDriver()
	remote := native.MockCaptureFolder + "/IMG_0001.JPG"
	dst := filepath.Join(t.TempDir(), "got.jpg")

	if _, err := run(t, m, "get", remote, "-o", dst); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(dst); err != nil || info.Size() == 0 {
		t.Errorf("downloaded file: %v", err)
	}

	if _, err := run(t, m, "get", remote, "--type", "bogus"); err == nil {
		t.Error("expected error for unknown type")
	}

	if _, err := run(t, m, "rm", remote); err != nil {
		t.Fatal(err)
	}
	if m.HasFile(native.MockCaptureFolder, "IMG_0001.JPG") {
		t.Error("file not deleted")
	}
}

func TestWait(t *testing.T) {
	m := native.NewMockDriver()
	m.PushEvent(native.EventFileAdded, native.EventData{Path: native.FilePath{Folder: "/store/DCIM", Name: "A.JPG"}})
	out, err := run(t, m, "wait")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != "file-added\t/store/DCIM/A.JPG" {
		t.Errorf("output = %q", out)
	}
}

func TestWait_For(t *testing.T) {
	m := native.NewMockDriver()
	m.PushEvent(native.EventFileAdded, native.EventData{Path: native.FilePath{Folder: "/store/DCIM", Name: "A.JPG"}})
	m.PushEvent(native.EventCaptureComplete, native.EventData{})
	out, err := run(t, m, "wait", "--for", "capture-complete", "--timeout", "1")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 2 || lines[1] != "capture-complete" {
		t.Errorf("output = %q", out)
	}
}

func TestWait_BadType(t *testing.T) {
	if _, err := run(t, native.NewMockDriver(), "wait", "--for", "explosion"); err == nil {
		t.Error("expected error")
	}
}

func TestConfigPath_Rejected(t *testing.T) {
	var out bytes.Buffer
	a := &app{driver: native.NewMockDriver(), out: &out}
	root := a.rootCmd()
	root.SetArgs([]string{"--config", "../etc/passwd", "list"})
	root.SetOut(&out)
	root.SetErr(&out)
	if err := root.Execute(); err == nil {
		t.Error("expected config path error")
	}
}

// ---------- serve ----------

func TestWebOptions_FromConfig(t *testing.T) {
	a := &app{cfg: config.Default()}
	a.cfg.Web.FrameMs = 250
	a.cfg.Web.ChangeThreshold = 4
	lock := &sync.Mutex{}

	opts := a.webOptions(nil, lock)
	if opts.ChangeThreshold != 4 || opts.FrameInterval != 250*time.Millisecond || opts.Lock != lock {
		t.Errorf("options = %+v", opts)
	}
}

func TestServe_LiveViewSkipsIdenticalFrames(t *testing.T) {
	a := &app{cfg: config.Default()}
	a.cfg.Web.FrameMs = 10
	m := native.NewMockDriver()
	c := gphoto.New(m, native.MockModel, native.MockPort)
	defer c.Finalize()

	srv := web.NewServer(a.cfg.WebAddr(), web.NewStatusBroadcaster(), c, a.webOptions(nil, &sync.Mutex{}))
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/preview/stream", nil).WithContext(ctx)
	w := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		srv.Mux().ServeHTTP(w, req)
		close(done)
	}()
	for m.Calls(native.CallCapturePreview) < 4 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-done

	// The mock returns the same frame every time.
	if n := strings.Count(w.Body.String(), "--frame\r\n"); n != 1 {
		t.Errorf("sent %d frames for %d grabs, want 1", n, m.Calls(native.CallCapturePreview))
	}
}
