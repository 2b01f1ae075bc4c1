package debug

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func withOutput(t *testing.T, lvl int) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetOutput(&buf)
	Init(lvl)
	t.Cleanup(func() {
		Init(LevelOff)
		SetOutput(os.Stdout)
	})
	return &buf
}

func TestInit_OffPrintsNothing(t *testing.T) {
	buf := withOutput(t, LevelOff)
	Info("hello %d", 1)
	Section("title")
	Error(errors.New("boom"))
	if buf.Len() != 0 {
		t.Errorf("expected no output at level 0, got %q", buf.String())
	}
}

func TestLevelGating(t *testing.T) {
	cases := []struct {
		name  string
		level int
		emit  func()
		want  bool
	}{
		{"info_at_info", LevelInfo, func() { Info("x") }, true},
		{"live_at_info", LevelInfo, func() { Live("x") }, false},
		{"live_at_live", LevelLive, func() { Live("x") }, true},
		{"verbose_at_live", LevelLive, func() { Verbose("x") }, false},
		{"verbose_at_verbose", LevelVerbose, func() { Verbose("x") }, true},
		{"native_at_verbose", LevelVerbose, func() { Native("gp_camera_capture", 0) }, false},
		{"native_at_trace", LevelTrace, func() { Native("gp_camera_capture", 0) }, true},
		{"gpio_at_trace", LevelTrace, func() { GPIO("WritePin", 17, true) }, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			buf := withOutput(t, tc.level)
			tc.emit()
			if got := buf.Len() > 0; got != tc.want {
				t.Errorf("output = %v, want %v (%q)", got, tc.want, buf.String())
			}
		})
	}
}

func TestNative_IncludesCallName(t *testing.T) {
	buf := withOutput(t, LevelTrace)
	Native("gp_camera_get_config", "No error")
	if !strings.Contains(buf.String(), "gp_camera_get_config") {
		t.Errorf("trace output missing call name: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "app=gpcam") {
		t.Errorf("trace output missing app field: %q", buf.String())
	}
}

func TestIsEnabled(t *testing.T) {
	withOutput(t, LevelLive)
	if !IsEnabled(LevelInfo) || !IsEnabled(LevelLive) {
		t.Error("info and live should be enabled at level 2")
	}
	if IsEnabled(LevelVerbose) {
		t.Error("verbose should not be enabled at level 2")
	}
	if Level() != LevelLive {
		t.Errorf("Level() = %d, want %d", Level(), LevelLive)
	}
}

func TestSetOutput_Redirects(t *testing.T) {
	withOutput(t, LevelInfo)
	var other bytes.Buffer
	SetOutput(&other)
	Camera("Mock Camera", "usb:001,002")
	if !strings.Contains(other.String(), "model=\"Mock Camera\"") {
		t.Errorf("redirected output = %q", other.String())
	}
}
