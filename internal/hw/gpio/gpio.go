package gpio

import (
	"sync"

	"github.com/cjeanneret/gpcam/internal/debug"
)

// Level represents the logical state of a GPIO pin.
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// PinMode indicates whether a GPIO is input or output.
type PinMode int

const (
	Input PinMode = iota
	Output
)

// Pull selects the internal resistor of an input pin.
type Pull int

const (
	PullOff Pull = iota
	PullDown
	PullUp
)

// Driver defines the abstract interface for controlling GPIOs.
// This allows plugging in a real Raspberry Pi implementation
// or a mock for development on PC.
type Driver interface {
	SetupPin(pin int, mode PinMode) error
	SetPull(pin int, pull Pull) error
	WritePin(pin int, level Level) error
	ReadPin(pin int) (Level, error)
	Close() error
}

// Write is one recorded MockDriver.WritePin call.
type Write struct {
	Pin   int
	Level Level
}

// MockDriver keeps pin state in memory. Used for development on PC
// or testing.
//
// Reads return the scripted levels queued with Script, then the level
// last set with SetLevel (Low by default). Writes are recorded.
type MockDriver struct {
	mu     sync.Mutex
	modes  map[int]PinMode
	pulls  map[int]Pull
	levels map[int]Level
	script map[int][]Level
	reads  map[int]int
	writes []Write
	closed bool
}

// NewMockDriver returns an empty mock.
func NewMockDriver() *MockDriver {
	return &MockDriver{
		modes:  make(map[int]PinMode),
		pulls:  make(map[int]Pull),
		levels: make(map[int]Level),
		script: make(map[int][]Level),
		reads:  make(map[int]int),
	}
}

// NewDriver creates a GPIO driver based on the chosen mode.
// If mock is true, returns a MockDriver (for dev/test).
// If mock is false, returns a BCMDriver (for Raspberry Pi).
func NewDriver(mock bool) (Driver, error) {
	if mock {
		debug.Info("Using MOCK GPIO driver (development mode)")
		return NewMockDriver(), nil
	}
	d, err := OpenBCM()
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SetLevel sets the level an input pin reports once its script is empty.
func (m *MockDriver) SetLevel(pin int, level Level) {
	m.mu.Lock()
	m.levels[pin] = level
	m.mu.Unlock()
}

// Script queues levels returned by the next reads of pin. The last
// scripted level sticks.
func (m *MockDriver) Script(pin int, levels ...Level) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script[pin] = append(m.script[pin], levels...)
	if len(levels) > 0 {
		m.levels[pin] = levels[len(levels)-1]
	}
}

// Reads returns how many times pin was read.
func (m *MockDriver) Reads(pin int) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[pin]
}

// Writes returns a copy of every recorded write.
func (m *MockDriver) Writes() []Write {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Write(nil), m.writes...)
}

// Mode returns the configured mode of pin.
func (m *MockDriver) Mode(pin int) (PinMode, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	mode, ok := m.modes[pin]
	return mode, ok
}

// PullOf returns the configured pull of pin.
func (m *MockDriver) PullOf(pin int) Pull {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pulls[pin]
}

// Closed reports whether Close was called.
func (m *MockDriver) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockDriver) SetupPin(pin int, mode PinMode) error {
	debug.GPIO("SetupPin", pin, mode)
	m.mu.Lock()
	m.modes[pin] = mode
	m.mu.Unlock()
	return nil
}

func (m *MockDriver) SetPull(pin int, pull Pull) error {
	debug.GPIO("SetPull", pin, pull)
	m.mu.Lock()
	m.pulls[pin] = pull
	m.mu.Unlock()
	return nil
}

func (m *MockDriver) WritePin(pin int, level Level) error {
	debug.GPIO("WritePin", pin, level)
	m.mu.Lock()
	m.writes = append(m.writes, Write{Pin: pin, Level: level})
	m.levels[pin] = level
	m.mu.Unlock()
	return nil
}

func (m *MockDriver) ReadPin(pin int) (Level, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[pin]++
	if q := m.script[pin]; len(q) > 0 {
		m.script[pin] = q[1:]
		return q[0], nil
	}
	return m.levels[pin], nil
}

func (m *MockDriver) Close() error {
	debug.Trace("GPIO Close (mock)")
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
