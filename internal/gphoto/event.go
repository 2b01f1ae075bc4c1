package gphoto

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

// DefaultWaitTimeout is used by Wait when given a zero timeout.
const DefaultWaitTimeout = 2000 * time.Millisecond

// EventType names the concrete Event types.
type EventType int

const (
	EventUnknown EventType = iota
	EventTimeout
	EventFileAdded
	EventFolderAdded
	EventCaptureComplete
)

var eventNames = map[EventType]string{
	EventUnknown:         "unknown",
	EventTimeout:         "timeout",
	EventFileAdded:       "file-added",
	EventFolderAdded:     "folder-added",
	EventCaptureComplete: "capture-complete",
}

func (t EventType) String() string {
	if s, ok := eventNames[t]; ok {
		return s
	}
	return fmt.Sprintf("EventType(%d)", int(t))
}

// ParseEventType accepts the names printed by String.
func ParseEventType(s string) (EventType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range eventNames {
		if name == s {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown event type %q", s)
}

// Event is one of TimeoutEvent, FileAddedEvent, FolderAddedEvent,
// CaptureCompleteEvent or UnknownEvent.
type Event interface {
	Type() EventType
	event()
}

// TimeoutEvent means nothing happened before the timeout.
type TimeoutEvent struct{}

// FileAddedEvent carries a file that appeared on camera storage.
type FileAddedEvent struct {
	File *File
}

// FolderAddedEvent carries a folder that appeared on camera storage.
type FolderAddedEvent struct {
	Folder *Folder
}

// CaptureCompleteEvent reports the end of a capture.
type CaptureCompleteEvent struct{}

// UnknownEvent carries the text of an event the library did not classify.
type UnknownEvent struct {
	Data    string
	HasData bool
}

func (TimeoutEvent) Type() EventType         { return EventTimeout }
func (FileAddedEvent) Type() EventType       { return EventFileAdded }
func (FolderAddedEvent) Type() EventType     { return EventFolderAdded }
func (CaptureCompleteEvent) Type() EventType { return EventCaptureComplete }
func (UnknownEvent) Type() EventType         { return EventUnknown }

func (TimeoutEvent) event()         {}
func (FileAddedEvent) event()       {}
func (FolderAddedEvent) event()     {}
func (CaptureCompleteEvent) event() {}
func (UnknownEvent) event()         {}

// Wait blocks up to timeout for one camera event. A zero timeout means
// DefaultWaitTimeout. The native call takes whole milliseconds, so
// timeout is rounded up.
func (c *Camera) Wait(timeout time.Duration) (Event, error) {
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}
	h, ctx, err := c.session()
	if err != nil {
		return nil, err
	}
	ms := int((timeout + time.Millisecond - 1) / time.Millisecond)
	t, d, st := h.WaitForEvent(ctx, ms)
	if err := check(native.CallWaitForEvent, st); err != nil {
		return nil, err
	}

	var ev Event
	switch t {
	case native.EventTimeout:
		ev = TimeoutEvent{}
	case native.EventFileAdded:
		ev = FileAddedEvent{File: newFile(c, FilePath{Folder: cleanPath(d.Path.Folder), Name: d.Path.Name})}
	case native.EventFolderAdded:
		ev = FolderAddedEvent{Folder: c.Filesystem(folderPath(d.Path))}
	case native.EventCaptureComplete:
		ev = CaptureCompleteEvent{}
	case native.EventUnknown:
		ev = UnknownEvent{Data: d.Text, HasData: d.HasText}
	default:
		ev = UnknownEvent{}
	}
	if t != native.EventTimeout {
		debug.Event(ev.Type().String(), describe(ev))
	}
	return ev, nil
}

// WaitFor waits until an event of type t arrives, discarding others.
// There is no overall deadline; callers wanting one should loop on Wait.
func (c *Camera) WaitFor(t EventType) (Event, error) {
	for {
		ev, err := c.Wait(DefaultWaitTimeout)
		if err != nil {
			return nil, err
		}
		if ev.Type() == t {
			return ev, nil
		}
	}
}

// folderPath joins a folder event payload, which the library reports as
// (parent, name).
func folderPath(p native.FilePath) string {
	return path.Join(cleanPath(p.Folder), p.Name)
}

func describe(ev Event) string {
	switch e := ev.(type) {
	case FileAddedEvent:
		return e.File.String()
	case FolderAddedEvent:
		return e.Folder.Path()
	case UnknownEvent:
		return e.Data
	}
	return ""
}
