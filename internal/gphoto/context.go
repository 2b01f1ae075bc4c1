package gphoto

import (
	"errors"

	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

// MessageHandler receives messages the native library reports through
// a context (errors, progress status, informational messages).
type MessageHandler func(kind native.MessageKind, msg string)

// Context holds the callback state of one session of native calls.
type Context struct {
	native  native.Context
	handler MessageHandler
}

// NewContext creates a native context whose messages go to the debug log.
func NewContext(d native.Driver) (*Context, error) {
	nc, st := d.NewContext()
	if err := check(native.CallContextNew, st); err != nil {
		return nil, err
	}
	c := &Context{native: nc}
	nc.SetLogFunc(c.receive)
	return c, nil
}

// SetHandler also forwards native messages to h. A nil h only logs.
func (c *Context) SetHandler(h MessageHandler) {
	c.handler = h
}

func (c *Context) receive(kind native.MessageKind, msg string) {
	switch kind {
	case native.MessageError:
		debug.Error(errors.New(msg))
	case native.MessageStatus:
		debug.Live("%s", msg)
	default:
		debug.Verbose("%s", msg)
	}
	if c.handler != nil {
		c.handler(kind, msg)
	}
}

// Finalize releases the native context. It is safe on a nil or already
// finalized Context.
func (c *Context) Finalize() {
	if c == nil || c.native == nil {
		return
	}
	c.native.SetLogFunc(nil)
	c.native.Unref()
	debug.Native(native.CallContextUnref, native.OK)
	c.native = nil
}
