// Package native is the boundary between gpcam and the camera-control
// library it wraps. Every method on the interfaces below corresponds to
// exactly one libgphoto2 call and reports the library's numeric status
// instead of a Go error; translating that status is the caller's job.
package native

import "strconv"

// Driver is the entry point into the native library.
// LibDriver talks to libgphoto2, MockDriver simulates a single camera.
type Driver interface {
	// NewContext creates a native context (gp_context_new).
	NewContext() (Context, Status)
	// Autodetect lists attached devices as (model, port) pairs.
	Autodetect(ctx Context) ([]Entry, Status)
	// LookupAbilities loads the abilities list and resolves model.
	LookupAbilities(ctx Context, model string) (Abilities, Status)
	// LookupPortInfo loads the port list and resolves a port path.
	LookupPortInfo(path string) (PortInfo, Status)
	// NewCamera allocates an unconfigured camera (gp_camera_new).
	NewCamera() (CameraHandle, Status)
	// Close releases lists cached by the driver.
	Close() error
}

// Context carries error, status and message callbacks for native calls.
type Context interface {
	// SetLogFunc installs fn as the receiver of context messages.
	// A nil fn removes the receiver.
	SetLogFunc(fn LogFunc)
	Unref()
}

// LogFunc receives one message emitted by the native library.
type LogFunc func(kind MessageKind, msg string)

// MessageKind tells which context callback produced a message.
type MessageKind int

const (
	MessageError MessageKind = iota
	MessageStatus
	MessageInfo
)

func (k MessageKind) String() string {
	switch k {
	case MessageError:
		return "error"
	case MessageStatus:
		return "status"
	default:
		return "message"
	}
}

// CameraHandle is an owned native camera.
type CameraHandle interface {
	SetAbilities(a Abilities) Status
	SetPortInfo(p PortInfo) Status

	Capture(ctx Context, kind CaptureType) (FilePath, Status)
	CapturePreview(ctx Context) (FileData, Status)
	TriggerCapture(ctx Context) Status
	WaitForEvent(ctx Context, timeoutMs int) (EventType, EventData, Status)

	// GetConfig returns a full snapshot of the configuration tree.
	// The caller owns the returned root and must Free it.
	GetConfig(ctx Context) (WidgetHandle, Status)
	// SetConfig pushes the whole tree rooted at root to the device.
	SetConfig(ctx Context, root WidgetHandle) Status

	FileGet(ctx Context, folder, name string, kind FileType) (FileData, Status)
	FileDelete(ctx Context, folder, name string) Status
	FolderListFiles(ctx Context, folder string) ([]string, Status)
	FolderListFolders(ctx Context, folder string) ([]string, Status)

	// Exit closes the device session; the handle stays usable.
	Exit(ctx Context) Status
	Unref() Status
}

// WidgetHandle is one node of a native configuration tree.
// Values exchanged through Value and SetValue are typed by WidgetType:
// string for text, radio and menu; float32 for range; int for toggle
// and date (unix seconds); nil for containers and buttons.
type WidgetHandle interface {
	Name() string
	Label() string
	Info() string
	ID() int
	Type() WidgetType
	ReadOnly() bool
	Children() []WidgetHandle

	Value() (interface{}, Status)
	SetValue(v interface{}) Status
	// Range returns min, max and increment of a range widget.
	Range() (min, max, step float32, st Status)
	Choices() ([]string, Status)

	// Free releases a root widget and all of its children.
	Free() Status
}

// Entry is one autodetected device.
type Entry struct {
	Model string
	Port  string
}

// FilePath addresses a file on the device's storage.
type FilePath struct {
	Folder string
	Name   string
}

// FileData is a file transferred from the device.
type FileData struct {
	Name     string
	MimeType string
	Data     []byte
}

// EventData is the payload of a native event. Path is set for
// file-added and folder-added events; Text for unknown events that
// carried a non-null string.
type EventData struct {
	Path    FilePath
	Text    string
	HasText bool
}

// PortType mirrors GPPortType.
type PortType int

const (
	PortNone   PortType = 0
	PortSerial PortType = 1 << 0
	PortUSB    PortType = 1 << 2
	PortDisk   PortType = 1 << 3
	PortPTPIP  PortType = 1 << 4
)

// PortInfo describes one native port.
type PortInfo struct {
	Name string
	Path string
	Type PortType

	raw interface{}
}

// DriverStatus mirrors CameraDriverStatus.
type DriverStatus int

const (
	DriverProduction DriverStatus = iota
	DriverTesting
	DriverExperimental
	DriverDeprecated
)

// Abilities describes what a camera model supports.
type Abilities struct {
	Model            string
	Status           DriverStatus
	PortTypes        PortType
	Operations       Operation
	FileOperations   FileOperation
	FolderOperations FolderOperation
	USBVendor        int
	USBProduct       int

	raw interface{}
}

// Operation mirrors CameraOperation bit flags.
type Operation int

const (
	OperationNone           Operation = 0
	OperationCaptureImage   Operation = 1 << 0
	OperationCaptureVideo   Operation = 1 << 1
	OperationCaptureAudio   Operation = 1 << 2
	OperationCapturePreview Operation = 1 << 3
	OperationConfig         Operation = 1 << 4
	OperationTriggerCapture Operation = 1 << 5
)

var operationNames = []struct {
	op   Operation
	name string
}{
	{OperationCaptureImage, "capture_image"},
	{OperationCaptureVideo, "capture_video"},
	{OperationCaptureAudio, "capture_audio"},
	{OperationCapturePreview, "capture_preview"},
	{OperationConfig, "config"},
	{OperationTriggerCapture, "trigger_capture"},
}

// Operations lists every single-bit operation in flag order.
func Operations() []Operation {
	ops := make([]Operation, len(operationNames))
	for i, o := range operationNames {
		ops[i] = o.op
	}
	return ops
}

func (o Operation) String() string {
	for _, n := range operationNames {
		if n.op == o {
			return n.name
		}
	}
	if o == OperationNone {
		return "none"
	}
	return "operation(" + strconv.Itoa(int(o)) + ")"
}

// ParseOperation resolves an operation by its String form.
func ParseOperation(s string) (Operation, bool) {
	for _, n := range operationNames {
		if n.name == s {
			return n.op, true
		}
	}
	return OperationNone, false
}

// FileOperation mirrors CameraFileOperation bit flags.
type FileOperation int

const (
	FileOperationNone    FileOperation = 0
	FileOperationDelete  FileOperation = 1 << 1
	FileOperationPreview FileOperation = 1 << 3
	FileOperationRaw     FileOperation = 1 << 4
	FileOperationAudio   FileOperation = 1 << 5
	FileOperationEXIF    FileOperation = 1 << 6
)

// FolderOperation mirrors CameraFolderOperation bit flags.
type FolderOperation int

const (
	FolderOperationNone      FolderOperation = 0
	FolderOperationDeleteAll FolderOperation = 1 << 0
	FolderOperationPutFile   FolderOperation = 1 << 1
	FolderOperationMakeDir   FolderOperation = 1 << 2
	FolderOperationRemoveDir FolderOperation = 1 << 3
)

// CaptureType mirrors CameraCaptureType.
type CaptureType int

const (
	CaptureImage CaptureType = iota
	CaptureMovie
	CaptureSound
)

func (c CaptureType) String() string {
	switch c {
	case CaptureImage:
		return "image"
	case CaptureMovie:
		return "movie"
	case CaptureSound:
		return "sound"
	}
	return "capture(" + strconv.Itoa(int(c)) + ")"
}

// FileType mirrors CameraFileType.
type FileType int

const (
	FilePreview FileType = iota
	FileNormal
	FileRaw
	FileAudio
	FileEXIF
	FileMetadata
)

var fileTypeNames = [...]string{"preview", "normal", "raw", "audio", "exif", "metadata"}

func (f FileType) String() string {
	if f >= 0 && int(f) < len(fileTypeNames) {
		return fileTypeNames[f]
	}
	return "file(" + strconv.Itoa(int(f)) + ")"
}

// ParseFileType resolves a file type by its String form.
func ParseFileType(s string) (FileType, bool) {
	for i, n := range fileTypeNames {
		if n == s {
			return FileType(i), true
		}
	}
	return FileNormal, false
}

// EventType mirrors CameraEventType.
type EventType int

const (
	EventUnknown EventType = iota
	EventTimeout
	EventFileAdded
	EventFolderAdded
	EventCaptureComplete
	EventFileChanged
)

// WidgetType mirrors CameraWidgetType.
type WidgetType int

const (
	WidgetWindow WidgetType = iota
	WidgetSection
	WidgetText
	WidgetRange
	WidgetToggle
	WidgetRadio
	WidgetMenu
	WidgetButton
	WidgetDate
)

var widgetTypeNames = [...]string{"window", "section", "text", "range", "toggle", "radio", "menu", "button", "date"}

func (w WidgetType) String() string {
	if w >= 0 && int(w) < len(widgetTypeNames) {
		return widgetTypeNames[w]
	}
	return "unknown"
}

// IsContainer reports whether widgets of this type hold children
// instead of a value.
func (w WidgetType) IsContainer() bool {
	return w == WidgetWindow || w == WidgetSection
}
