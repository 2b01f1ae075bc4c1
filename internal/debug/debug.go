// Package debug is the leveled logger shared by every gpcam package.
// Output goes through logrus with an app=gpcam field; nothing is
// written until Init is called with a level above LevelOff.
package debug

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Debug levels
const (
	LevelOff     = 0 // nothing
	LevelInfo    = 1 // detected cameras, saved files, errors
	LevelLive    = 2 // captures, events, config commits
	LevelVerbose = 3 // lifecycle steps, widget values, HTTP requests
	LevelTrace   = 4 // every native call and GPIO access
)

var (
	level  int
	logger *logrus.Entry
	out    io.Writer = os.Stdout
)

// Init sets the debug level. Levels above LevelTrace behave as trace.
func Init(debugLevel int) {
	level = debugLevel
	logger = nil
	if level > LevelOff {
		logger = newLogger(out)
	}
}

func newLogger(w io.Writer) *logrus.Entry {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000000",
		DisableColors:   true,
	})
	l.SetLevel(logrus.TraceLevel)
	return l.WithField("app", "gpcam")
}

// SetOutput redirects debug output, e.g. to tee it into the web status
// stream. The running logger is rebuilt on w.
func SetOutput(w io.Writer) {
	out = w
	if logger != nil {
		logger = newLogger(w)
	}
}

// Level returns the current debug level.
func Level() int { return level }

// IsEnabled reports whether messages of level min are written.
func IsEnabled(min int) bool { return at(min) != nil }

// at returns the logger when min is enabled, nil otherwise.
func at(min int) *logrus.Entry {
	if level < min {
		return nil
	}
	return logger
}

// ---- info ----

// Info logs an important message.
func Info(format string, args ...interface{}) {
	if l := at(LevelInfo); l != nil {
		l.Infof(format, args...)
	}
}

// Camera logs a detected or opened camera.
func Camera(model, port string) {
	if l := at(LevelInfo); l != nil {
		l.WithFields(logrus.Fields{"model": model, "port": port}).Info("camera")
	}
}

// Value logs a named setting.
func Value(name string, value interface{}) {
	if l := at(LevelInfo); l != nil {
		l.Infof("  %s = %v", name, value)
	}
}

// Error logs err.
func Error(err error) {
	if l := at(LevelInfo); l != nil {
		l.WithError(err).Error("failed")
	}
}

// ---- live ----

// Live logs a message about ongoing camera activity.
func Live(format string, args ...interface{}) {
	if l := at(LevelLive); l != nil {
		l.WithField("stage", "live").Infof(format, args...)
	}
}

// Capture logs a finished capture.
func Capture(folder, name string) {
	if l := at(LevelLive); l != nil {
		l.WithFields(logrus.Fields{"stage": "live", "folder": folder, "name": name}).Info("captured")
	}
}

// Event logs a camera event.
func Event(kind, detail string) {
	if l := at(LevelLive); l != nil {
		l.WithFields(logrus.Fields{"stage": "live", "event": kind}).Info(detail)
	}
}

// ---- verbose ----

// Verbose logs a detail message.
func Verbose(format string, args ...interface{}) {
	if l := at(LevelVerbose); l != nil {
		l.Debugf(format, args...)
	}
}

// PrintStruct logs v with its field names.
func PrintStruct(name string, v interface{}) {
	if l := at(LevelVerbose); l != nil {
		l.Debugf("%s: %+v", name, v)
	}
}

// Section logs a banner separating startup phases.
func Section(name string) {
	if l := at(LevelVerbose); l != nil {
		l.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		l.Debugf("  %s", name)
		l.Debug("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	}
}

// Step logs a numbered startup step.
func Step(num int, description string) {
	if l := at(LevelVerbose); l != nil {
		l.Debugf("Step %d: %s", num, description)
	}
}

// ---- trace ----

// Trace logs a low level message.
func Trace(format string, args ...interface{}) {
	if l := at(LevelTrace); l != nil {
		l.Tracef(format, args...)
	}
}

// Native logs a libgphoto2 call and the status it returned.
func Native(call string, status interface{}) {
	if l := at(LevelTrace); l != nil {
		l.WithFields(logrus.Fields{"call": call, "status": status}).Trace("native")
	}
}

// GPIO logs a pin access.
func GPIO(operation string, pin int, value interface{}) {
	if l := at(LevelTrace); l != nil {
		l.WithFields(logrus.Fields{"op": operation, "pin": pin, "value": value}).Trace("gpio")
	}
}
