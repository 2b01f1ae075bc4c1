package web

import (
	"encoding/json"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cjeanneret/gpcam/internal/gphoto"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

// clientBuffer is the number of queued messages per SSE client.
const clientBuffer = 64

// StatusEvent is a single SSE message. Kind is empty for log lines and
// names the camera event ("shot", "file-added"...) otherwise.
type StatusEvent struct {
	Time  string `json:"t"`
	Level string `json:"l,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Msg   string `json:"msg"`
	Path  string `json:"path,omitempty"`
}

// StatusBroadcaster fans status messages out to SSE clients. A client
// that stops reading loses messages once clientBuffer are queued.
type StatusBroadcaster struct {
	mu   sync.Mutex
	subs map[chan string]struct{}
}

func NewStatusBroadcaster() *StatusBroadcaster {
	return &StatusBroadcaster{subs: map[chan string]struct{}{}}
}

// Subscribe registers a client. The returned func unregisters it and
// closes the channel; calling it again does nothing.
func (b *StatusBroadcaster) Subscribe() (<-chan string, func()) {
	ch := make(chan string, clientBuffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	return ch, func() { once.Do(func() { b.drop(ch) }) }
}

func (b *StatusBroadcaster) drop(ch chan string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.subs, ch)
	close(ch)
}

// Clients returns the number of subscribed clients.
func (b *StatusBroadcaster) Clients() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Broadcast sends a log line, {"t":"...","l":"error","msg":"..."}.
func (b *StatusBroadcaster) Broadcast(level, msg string) {
	b.publish(StatusEvent{Level: level, Msg: msg})
}

// BroadcastMsg is Broadcast at level "info".
func (b *StatusBroadcaster) BroadcastMsg(msg string) {
	b.Broadcast("info", msg)
}

// BroadcastEvent sends a camera event. path is the remote or local file
// the event refers to and may be empty.
func (b *StatusBroadcaster) BroadcastEvent(kind, msg, path string) {
	b.publish(StatusEvent{Level: "info", Kind: kind, Msg: msg, Path: path})
}

func (b *StatusBroadcaster) publish(evt StatusEvent) {
	evt.Time = time.Now().Format(time.RFC3339)
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	msg := string(data)

	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- msg:
		default:
		}
	}
}

// CameraMessages returns a handler that forwards native library
// messages as "camera" events. Errors keep level "error".
func CameraMessages(b *StatusBroadcaster) gphoto.MessageHandler {
	return func(kind native.MessageKind, msg string) {
		level := "info"
		if kind == native.MessageError {
			level = "error"
		}
		b.publish(StatusEvent{Level: level, Kind: "camera", Msg: msg})
	}
}

// BroadcastWriter returns an io.Writer that broadcasts each non-blank
// line written to it, for use with debug.SetOutput.
func BroadcastWriter(b *StatusBroadcaster) io.Writer {
	return lineWriter(func(line string) { b.BroadcastMsg(line) })
}

type lineWriter func(string)

func (f lineWriter) Write(p []byte) (int, error) {
	for _, line := range strings.Split(string(p), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			f(line)
		}
	}
	return len(p), nil
}
