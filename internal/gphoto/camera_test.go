package gphoto

import (
	"errors"
	"testing"

	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

func newMockCamera(t *testing.T) (*native.MockDriver, *Camera) {
	t.Helper()
	m := native.NewMockDriver()
	return m, New(m, native.MockModel, native.MockPort)
}

// ---------- Lazy initialization ----------

func TestNew_NoNativeCalls(t *testing.T) {
	m, c := newMockCamera(t)
	if c.Initialized() {
		t.Fatal("new camera should not be initialized")
	}
	for _, op := range []string{native.CallContextNew, native.CallLookupModel, native.CallCameraNew} {
		if n := m.Calls(op); n != 0 {
			t.Errorf("%s called %d times by New, want 0", op, n)
		}
	}
	if got := c.String(); got != "Mock Camera on usb:001,002" {
		t.Errorf("String() = %q", got)
	}
}

func TestInit_Once(t *testing.T) {
	m, c := newMockCamera(t)
	defer c.Finalize()

	a, err := c.Abilities()
	if err != nil {
		t.Fatalf("Abilities: %v", err)
	}
	if a.Model != native.MockModel {
		t.Errorf("abilities model = %q", a.Model)
	}
	if _, err := c.PortInfo(); err != nil {
		t.Fatalf("PortInfo: %v", err)
	}
	if _, err := c.Handle(); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if !c.Initialized() {
		t.Error("camera should be initialized")
	}
	for _, op := range []string{native.CallContextNew, native.CallLookupModel, native.CallLookupPath, native.CallCameraNew, native.CallSetAbilities, native.CallSetPortInfo} {
		if n := m.Calls(op); n != 1 {
			t.Errorf("%s called %d times, want 1", op, n)
		}
	}
}

func TestInit_Failures(t *testing.T) {
	tests := []struct {
		name   string
		model  string
		port   string
		fail   string
		status native.Status
		unrefs int
	}{
		{name: "unknown model", model: "Nope", port: native.MockPort, status: native.ErrorModelNotFound},
		{name: "unknown port", model: native.MockModel, port: "usb:999,999", status: native.ErrorUnknownPort},
		{name: "camera new", model: native.MockModel, port: native.MockPort, fail: native.CallCameraNew, status: native.ErrorNoMemory},
		{name: "set abilities", model: native.MockModel, port: native.MockPort, fail: native.CallSetAbilities, status: native.ErrorIO, unrefs: 1},
		{name: "set port", model: native.MockModel, port: native.MockPort, fail: native.CallSetPortInfo, status: native.ErrorIO, unrefs: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := native.NewMockDriver()
			if tt.fail != "" {
				m.Fail(tt.fail, tt.status)
			}
			c := New(m, tt.model, tt.port)

			_, err := c.Handle()
			if !errors.Is(err, ErrNative) {
				t.Fatalf("expected native error, got %v", err)
			}
			var ne *NativeError
			if !errors.As(err, &ne) || ne.Status != tt.status {
				t.Errorf("expected status %v, got %v", tt.status, err)
			}
			if c.Initialized() {
				t.Error("failed init must leave the camera uninitialized")
			}
			if n := m.Calls(native.CallCameraUnref); n != tt.unrefs {
				t.Errorf("unref called %d times, want %d", n, tt.unrefs)
			}
			if err := c.Finalize(); err != nil {
				t.Errorf("Finalize after failed init: %v", err)
			}
		})
	}
}

func TestNativeError_Kind(t *testing.T) {
	tests := []struct {
		status native.Status
		want   native.Kind
	}{
		{native.ErrorIO, native.KindPort},
		{native.ErrorUnknownPort, native.KindPort},
		{native.ErrorModelNotFound, native.KindCamera},
		{native.ErrorCameraBusy, native.KindCamera},
	}
	for _, tt := range tests {
		e := &NativeError{Op: "op", Status: tt.status}
		if got := e.Kind(); got != tt.want {
			t.Errorf("Kind(%v) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

// ---------- Finalize ----------

func TestFinalize_Twice(t *testing.T) {
	m, c := newMockCamera(t)
	if _, err := c.Config(false); err != nil {
		t.Fatal(err)
	}

	if err := c.Finalize(); err != nil {
		t.Fatalf("first Finalize: %v", err)
	}
	if err := c.Finalize(); err != nil {
		t.Fatalf("second Finalize: %v", err)
	}

	if n := m.Calls(native.CallCameraUnref); n != 1 {
		t.Errorf("camera unref called %d times, want 1", n)
	}
	if n := m.Calls(native.CallContextUnref); n != 1 {
		t.Errorf("context unref called %d times, want 1", n)
	}
	if n := m.Calls(native.CallWidgetFree); n != 1 {
		t.Errorf("widget free called %d times, want 1", n)
	}
	if c.Initialized() {
		t.Error("finalized camera reports initialized")
	}
}

func TestFinalize_NeverInitialized(t *testing.T) {
	m, c := newMockCamera(t)
	if err := c.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if n := m.Calls(native.CallCameraUnref); n != 0 {
		t.Errorf("camera unref called %d times, want 0", n)
	}
}

func TestFinalize_ReportsUnrefFailure(t *testing.T) {
	m, c := newMockCamera(t)
	if _, err := c.Handle(); err != nil {
		t.Fatal(err)
	}
	m.Fail(native.CallCameraUnref, native.ErrorIO)
	if err := c.Finalize(); !errors.Is(err, ErrNative) {
		t.Errorf("expected native error, got %v", err)
	}
}

func TestReset(t *testing.T) {
	m, c := newMockCamera(t)
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset on new camera: %v", err)
	}
	if n := m.Calls(native.CallCameraExit); n != 0 {
		t.Errorf("exit called %d times on uninitialized camera", n)
	}

	if _, err := c.Handle(); err != nil {
		t.Fatal(err)
	}
	if err := c.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if n := m.Calls(native.CallCameraExit); n != 1 {
		t.Errorf("exit called %d times, want 1", n)
	}
	if !c.Initialized() {
		t.Error("Reset must keep the handle")
	}
	c.Finalize()
}

// ---------- Capabilities ----------

func TestCan(t *testing.T) {
	_, c := newMockCamera(t)
	defer c.Finalize()

	tests := []struct {
		op   native.Operation
		want bool
	}{
		{native.OperationCaptureImage, true},
		{native.OperationCapturePreview, true},
		{native.OperationConfig, true},
		{native.OperationCaptureVideo, false},
		{native.OperationCaptureAudio, false},
	}
	for _, tt := range tests {
		got, err := c.Can(tt.op)
		if err != nil {
			t.Fatalf("Can(%v): %v", tt.op, err)
		}
		if got != tt.want {
			t.Errorf("Can(%v) = %v, want %v", tt.op, got, tt.want)
		}
	}
}

func TestCan_InitError(t *testing.T) {
	m := native.NewMockDriver()
	c := New(m, "Unknown", native.MockPort)
	if _, err := c.Can(native.OperationCaptureImage); !errors.Is(err, ErrNative) {
		t.Errorf("expected native error, got %v", err)
	}
}

// ---------- Context messages ----------

func TestContext_HandlerReceivesMessages(t *testing.T) {
	_, c := newMockCamera(t)
	defer c.Finalize()

	ctx, err := c.Context()
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	ctx.SetHandler(func(kind native.MessageKind, msg string) {
		if kind == native.MessageStatus {
			got = append(got, msg)
		}
	})

	if _, err := c.CaptureImage(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one status message, got %v", got)
	}
}

func TestContext_FinalizeNil(t *testing.T) {
	var ctx *Context
	ctx.Finalize()
}
