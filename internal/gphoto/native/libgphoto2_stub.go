//go:build !gphoto2

package native

import "errors"

// ErrNoLibrary is returned by NewLibDriver when the binary was built
// without the gphoto2 build tag.
var ErrNoLibrary = errors.New("gpcam built without libgphoto2 support (rebuild with -tags gphoto2)")

// NewLibDriver always fails in builds without libgphoto2.
func NewLibDriver() (Driver, error) {
	return nil, ErrNoLibrary
}
