package gpio

import (
	"fmt"

	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/stianeikeland/go-rpio/v4"
)

// BCMDriver drives Raspberry Pi header pins by BCM number through the
// memory-mapped registers of go-rpio. It needs /dev/gpiomem or root.
type BCMDriver struct {
	pins map[int]rpio.Pin
}

var _ Driver = (*BCMDriver)(nil)

// OpenBCM maps the GPIO registers.
func OpenBCM() (*BCMDriver, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpiomem: %w (not a Raspberry Pi?)", err)
	}
	debug.Info("GPIO: go-rpio registers mapped")
	return &BCMDriver{pins: map[int]rpio.Pin{}}, nil
}

// pin returns the registered pin, setting it up in mode on first use.
func (d *BCMDriver) pin(n int, mode PinMode) (rpio.Pin, error) {
	if p, ok := d.pins[n]; ok {
		return p, nil
	}
	if err := d.SetupPin(n, mode); err != nil {
		return 0, err
	}
	return d.pins[n], nil
}

func (d *BCMDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)

	p := rpio.Pin(pin)
	switch mode {
	case Input:
		p.Input()
	case Output:
		p.Output()
	default:
		return fmt.Errorf("unknown pin mode: %d", mode)
	}
	d.pins[pin] = p
	return nil
}

func (d *BCMDriver) SetPull(pin int, pull Pull) error {
	debug.GPIO("SetPull", pin, pull)

	p, err := d.pin(pin, Input)
	if err != nil {
		return err
	}
	switch pull {
	case PullOff:
		p.PullOff()
	case PullDown:
		p.PullDown()
	case PullUp:
		p.PullUp()
	default:
		return fmt.Errorf("unknown pull: %d", pull)
	}
	return nil
}

func (d *BCMDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)

	p, err := d.pin(pin, Output)
	if err != nil {
		return err
	}
	if level == High {
		p.High()
	} else {
		p.Low()
	}
	return nil
}

func (d *BCMDriver) ReadPin(pin int) (Level, error) {
	p, err := d.pin(pin, Input)
	if err != nil {
		return Low, err
	}
	return p.Read() == rpio.High, nil
}

func (d *BCMDriver) Close() error {
	// Outputs go low, then every pin is released as a floating input.
	for pin, p := range d.pins {
		debug.GPIO("Release", pin, nil)
		p.Low()
		p.Input()
		p.PullOff()
	}

	return rpio.Close()
}
