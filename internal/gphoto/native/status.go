package native

import "strconv"

// Status is a libgphoto2 result code. Zero is success, negative values
// are errors: -1..-99 come from the port layer, -100 and below from the
// camera layer.
type Status int

const (
	OK Status = 0

	ErrorGeneric            Status = -1
	ErrorBadParameters      Status = -2
	ErrorNoMemory           Status = -3
	ErrorLibrary            Status = -4
	ErrorUnknownPort        Status = -5
	ErrorNotSupported       Status = -6
	ErrorIO                 Status = -7
	ErrorFixedLimitExceeded Status = -8
	ErrorTimeout            Status = -10
	ErrorIOSupportedSerial  Status = -20
	ErrorIOSupportedUSB     Status = -21
	ErrorIOInit             Status = -31
	ErrorIORead             Status = -34
	ErrorIOWrite            Status = -35
	ErrorIOUpdate           Status = -37
	ErrorIOSerialSpeed      Status = -41
	ErrorIOUSBClearHalt     Status = -51
	ErrorIOUSBFind          Status = -52
	ErrorIOUSBClaim         Status = -53
	ErrorIOLock             Status = -60
	ErrorHAL                Status = -70
	ErrorCorruptedData      Status = -102
	ErrorFileExists         Status = -103
	ErrorModelNotFound      Status = -105
	ErrorDirectoryNotFound  Status = -107
	ErrorFileNotFound       Status = -108
	ErrorDirectoryExists    Status = -109
	ErrorCameraBusy         Status = -110
	ErrorPathNotAbsolute    Status = -111
	ErrorCancel             Status = -112
	ErrorCameraError        Status = -113
	ErrorOSFailure          Status = -114
	ErrorNoSpace            Status = -115
)

var statusText = map[Status]string{
	OK:                      "No error",
	ErrorGeneric:            "Unspecified error",
	ErrorBadParameters:      "Bad parameters",
	ErrorNoMemory:           "Out of memory",
	ErrorLibrary:            "Error loading a library",
	ErrorUnknownPort:        "Unknown port",
	ErrorNotSupported:       "Unsupported operation",
	ErrorIO:                 "I/O problem",
	ErrorFixedLimitExceeded: "Fixed limit exceeded",
	ErrorTimeout:            "Timeout reading from or writing to the port",
	ErrorIOSupportedSerial:  "Serial port not supported",
	ErrorIOSupportedUSB:     "USB port not supported",
	ErrorIOInit:             "Error initializing the port",
	ErrorIORead:             "Error reading from the port",
	ErrorIOWrite:            "Error writing to the port",
	ErrorIOUpdate:           "Error updating the port settings",
	ErrorIOSerialSpeed:      "Error setting the serial port speed",
	ErrorIOUSBClearHalt:     "Error clearing a halt condition on the USB port",
	ErrorIOUSBFind:          "Could not find the requested device on the USB port",
	ErrorIOUSBClaim:         "Could not claim the USB device",
	ErrorIOLock:             "Could not lock the device",
	ErrorHAL:                "libhal error",
	ErrorCorruptedData:      "Corrupted data",
	ErrorFileExists:         "File exists",
	ErrorModelNotFound:      "Unknown model",
	ErrorDirectoryNotFound:  "Directory not found",
	ErrorFileNotFound:       "File not found",
	ErrorDirectoryExists:    "Directory exists",
	ErrorCameraBusy:         "I/O in progress",
	ErrorPathNotAbsolute:    "Path not absolute",
	ErrorCancel:             "Cancelled",
	ErrorCameraError:        "Camera error",
	ErrorOSFailure:          "OS failure",
	ErrorNoSpace:            "Not enough space",
}

// Kind classifies a status by the library layer that produced it.
type Kind int

const (
	KindNone Kind = iota
	KindPort
	KindCamera
)

func (k Kind) String() string {
	switch k {
	case KindPort:
		return "port"
	case KindCamera:
		return "camera"
	}
	return "none"
}

// OK reports whether s is a success code.
func (s Status) OK() bool {
	return s >= OK
}

// Kind returns the layer s belongs to.
func (s Status) Kind() Kind {
	switch {
	case s >= OK:
		return KindNone
	case s > -100:
		return KindPort
	default:
		return KindCamera
	}
}

func (s Status) String() string {
	if t, ok := statusText[s]; ok {
		return t
	}
	return "Unknown error " + strconv.Itoa(int(s))
}
