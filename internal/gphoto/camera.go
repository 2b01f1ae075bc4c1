package gphoto

import (
	"errors"
	"fmt"

	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

// Camera is one device identified by its model name and port path.
//
// Constructing a Camera is free. The native context, handle, abilities
// and port info are acquired by the first operation that needs them and
// held until Finalize.
type Camera struct {
	Model string
	Port  string

	driver native.Driver

	context     *Context
	handle      native.CameraHandle
	abilities   native.Abilities
	portInfo    native.PortInfo
	initialized bool

	window *Widget
	config map[string]*Widget
	dirty  bool
}

// New returns an uninitialized camera. No native call is made.
func New(d native.Driver, model, port string) *Camera {
	return &Camera{Model: model, Port: port, driver: d}
}

func (c *Camera) String() string {
	return fmt.Sprintf("%s on %s", c.Model, c.Port)
}

// Context returns the camera's context, creating it on first use.
func (c *Camera) Context() (*Context, error) {
	if c.context == nil {
		ctx, err := NewContext(c.driver)
		if err != nil {
			return nil, err
		}
		c.context = ctx
	}
	return c.context, nil
}

// Initialized reports whether the native handle has been acquired.
func (c *Camera) Initialized() bool {
	return c.initialized
}

// ensureInit runs init unless it already succeeded.
func (c *Camera) ensureInit() error {
	if c.initialized {
		return nil
	}
	return c.init()
}

// init resolves the model and port, then creates and configures the
// native handle. On failure nothing but the context is kept.
func (c *Camera) init() error {
	debug.Verbose("Initializing %s", c)

	ctx, err := c.Context()
	if err != nil {
		return err
	}

	abilities, st := c.driver.LookupAbilities(ctx.native, c.Model)
	if err := check(native.CallLookupModel, st); err != nil {
		return fmt.Errorf("lookup model %q: %w", c.Model, err)
	}

	portInfo, st := c.driver.LookupPortInfo(c.Port)
	if err := check(native.CallLookupPath, st); err != nil {
		return fmt.Errorf("lookup port %q: %w", c.Port, err)
	}

	h, st := c.driver.NewCamera()
	if err := check(native.CallCameraNew, st); err != nil {
		return err
	}
	if err := check(native.CallSetAbilities, h.SetAbilities(abilities)); err != nil {
		_ = check(native.CallCameraUnref, h.Unref())
		return err
	}
	if err := check(native.CallSetPortInfo, h.SetPortInfo(portInfo)); err != nil {
		_ = check(native.CallCameraUnref, h.Unref())
		return err
	}

	c.handle = h
	c.abilities = abilities
	c.portInfo = portInfo
	c.initialized = true
	debug.Camera(c.Model, c.Port)
	return nil
}

// session returns the native handle and context, initializing if needed.
func (c *Camera) session() (native.CameraHandle, native.Context, error) {
	if err := c.ensureInit(); err != nil {
		return nil, nil, err
	}
	return c.handle, c.context.native, nil
}

// Handle returns the native camera handle.
func (c *Camera) Handle() (native.CameraHandle, error) {
	if err := c.ensureInit(); err != nil {
		return nil, err
	}
	return c.handle, nil
}

// Abilities returns the abilities of the camera's model.
func (c *Camera) Abilities() (native.Abilities, error) {
	if err := c.ensureInit(); err != nil {
		return native.Abilities{}, err
	}
	return c.abilities, nil
}

// PortInfo returns the resolved port descriptor.
func (c *Camera) PortInfo() (native.PortInfo, error) {
	if err := c.ensureInit(); err != nil {
		return native.PortInfo{}, err
	}
	return c.portInfo, nil
}

// Can reports whether the model supports op.
func (c *Camera) Can(op native.Operation) (bool, error) {
	a, err := c.Abilities()
	if err != nil {
		return false, err
	}
	return a.Operations&op != 0, nil
}

// Reset closes the device session without releasing the handle; the
// next operation reopens it. A no-op on an uninitialized camera.
func (c *Camera) Reset() error {
	if !c.initialized {
		return nil
	}
	return check(native.CallCameraExit, c.handle.Exit(c.context.native))
}

// Finalize releases the context, the cached configuration tree and the
// native handle. Each step is skipped when its resource is absent, so
// Finalize may be called on a never-initialized camera or more than once.
// Unsaved configuration changes are discarded.
func (c *Camera) Finalize() error {
	var errs []error

	c.context.Finalize()
	c.context = nil

	if err := c.discardWindow(); err != nil {
		errs = append(errs, err)
	}

	if c.handle != nil {
		if err := check(native.CallCameraUnref, c.handle.Unref()); err != nil {
			errs = append(errs, err)
		}
		c.handle = nil
	}
	c.initialized = false

	return errors.Join(errs...)
}

// Close is Finalize, for use as an io.Closer.
func (c *Camera) Close() error {
	return c.Finalize()
}
