package gphoto

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

var (
	// ErrNative matches every *NativeError with errors.Is.
	ErrNative = errors.New("gphoto: native call failed")
	// ErrNoDevices is returned by First when nothing is attached.
	ErrNoDevices = errors.New("gphoto: no devices detected")
	// ErrKeyNotFound matches every *KeyError with errors.Is.
	ErrKeyNotFound = errors.New("gphoto: config key not found")
	// ErrReadOnly is returned when setting a read-only widget.
	ErrReadOnly = errors.New("gphoto: widget is read-only")
	// ErrNoPath is returned for storage operations on preview frames.
	ErrNoPath = errors.New("gphoto: file has no storage path")
)

// NativeError is a non-success status returned by a native call.
type NativeError struct {
	Op     string
	Status native.Status
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("gphoto: %s: %s (%d)", e.Op, e.Status, int(e.Status))
}

// Is makes errors.Is(err, ErrNative) true for any native failure.
func (e *NativeError) Is(target error) bool {
	return target == ErrNative
}

// Kind tells whether the port layer or the camera layer failed.
func (e *NativeError) Kind() native.Kind {
	return e.Status.Kind()
}

// KeyError reports a config key missing from the flattened tree.
type KeyError struct {
	Key string
}

func (e *KeyError) Error() string {
	return fmt.Sprintf("gphoto: config key %q not found", e.Key)
}

func (e *KeyError) Unwrap() error { return ErrKeyNotFound }

// ValueError reports a value that cannot be stored in a widget.
type ValueError struct {
	Key   string
	Type  native.WidgetType
	Value interface{}
	Err   error
}

func (e *ValueError) Error() string {
	msg := fmt.Sprintf("gphoto: cannot set %s widget %q to %v (%T)", e.Type, e.Key, e.Value, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValueError) Unwrap() error { return e.Err }

// check traces a native call and translates its status.
func check(op string, st native.Status) error {
	debug.Native(op, st)
	if st.OK() {
		return nil
	}
	return &NativeError{Op: op, Status: st}
}
