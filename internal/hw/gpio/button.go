package gpio

import (
	"context"
	"time"

	"github.com/cjeanneret/gpcam/internal/debug"
)

// Button is a momentary push button wired from 3V3 to an input pin with
// the internal pull-down enabled: LOW when released, HIGH when pressed.
type Button struct {
	drv      Driver
	pin      int
	debounce time.Duration
	poll     time.Duration

	now func() time.Time
}

// NewButton configures pin as a pulled-down input.
func NewButton(drv Driver, pin int, debounce, poll time.Duration) (*Button, error) {
	if err := drv.SetupPin(pin, Input); err != nil {
		return nil, err
	}
	if err := drv.SetPull(pin, PullDown); err != nil {
		return nil, err
	}
	if poll <= 0 {
		poll = 10 * time.Millisecond
	}
	return &Button{drv: drv, pin: pin, debounce: debounce, poll: poll, now: time.Now}, nil
}

// Pin returns the input pin number.
func (b *Button) Pin() int { return b.pin }

// WaitPress blocks until the next press: a LOW to HIGH transition that
// stays HIGH for the debounce time. A button already held when WaitPress
// is called must be released first.
func (b *Button) WaitPress(ctx context.Context) error {
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	armed := false
	var highSince time.Time
	for {
		lvl, err := b.drv.ReadPin(b.pin)
		if err != nil {
			return err
		}
		now := b.now()

		switch {
		case lvl == Low:
			armed = true
			highSince = time.Time{}
		case armed && highSince.IsZero():
			highSince = now
		}
		if armed && !highSince.IsZero() && now.Sub(highSince) >= b.debounce {
			debug.GPIO("ButtonPress", b.pin, lvl)
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// LED is an output pin driven HIGH while the rig is busy. Pin 0 means
// no LED is fitted; every method is then a no-op.
type LED struct {
	drv Driver
	pin int
}

// NewLED configures pin as an output, initially off.
func NewLED(drv Driver, pin int) (*LED, error) {
	l := &LED{drv: drv, pin: pin}
	if pin == 0 {
		return l, nil
	}
	if err := drv.SetupPin(pin, Output); err != nil {
		return nil, err
	}
	return l, l.Off()
}

// On drives the LED pin HIGH.
func (l *LED) On() error {
	if l.pin == 0 {
		return nil
	}
	return l.drv.WritePin(l.pin, High)
}

// Off drives the LED pin LOW.
func (l *LED) Off() error {
	if l.pin == 0 {
		return nil
	}
	return l.drv.WritePin(l.pin, Low)
}
