package native

import "github.com/cjeanneret/gpcam/internal/debug"

// NewDriver creates a native driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns the libgphoto2 driver.
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK camera driver (development mode)")
		return NewMockDriver(), nil
	}
	return NewLibDriver()
}
