// Package gphoto wraps a native camera-control library behind owning Go
// types: Camera, Context, Widget, File, Folder and Event.
//
// A Camera is a (model, port) pair until its first operation needs the
// device; only then are the native context, handle, abilities and port
// info acquired. Release them with Finalize, or use Open / OpenFirst to
// scope a camera to a function.
//
// The configuration tree is read once and cached. Set mutates the cached
// tree in memory and marks the camera dirty; Save (and any capture)
// commits the whole tree in one native call.
//
// Nothing in this package is safe for concurrent use. Every operation
// blocks until the device answers; only Wait takes a timeout. Using a
// Camera after Finalize is a programming error.
package gphoto
