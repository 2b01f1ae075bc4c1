package gphoto

import (
	"fmt"
	"os"
	"path"

	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

// FilePath addresses a file on camera storage.
type FilePath struct {
	Folder string
	Name   string
}

func (p FilePath) String() string {
	return path.Join(p.Folder, p.Name)
}

// SplitPath turns "/store/DCIM/IMG_0001.JPG" into a FilePath.
func SplitPath(p string) FilePath {
	p = cleanPath(p)
	return FilePath{Folder: path.Dir(p), Name: path.Base(p)}
}

// File is a reference to camera storage, or an in-memory preview frame
// with no storage path. Bytes are fetched on first use.
type File struct {
	FilePath

	camera *Camera
	kind   native.FileType
	data   []byte
	mime   string
	loaded bool
	stored bool
}

func newFile(c *Camera, p FilePath) *File {
	return &File{FilePath: p, camera: c, kind: native.FileNormal, stored: true}
}

// newPreview drops the name the library gives the frame buffer; a
// preview has neither folder nor name.
func newPreview(c *Camera, d native.FileData) *File {
	return &File{
		camera:   c,
		kind:     native.FilePreview,
		data:     d.Data,
		mime:     d.MimeType,
		loaded:   true,
	}
}

// IsPreview reports whether f is a live-view frame without storage path.
func (f *File) IsPreview() bool {
	return !f.stored
}

// Data returns the file bytes, fetching the normal variant on first call.
func (f *File) Data() ([]byte, error) {
	if !f.loaded {
		if _, err := f.camera.File(f, native.FileNormal); err != nil {
			return nil, err
		}
	}
	return f.data, nil
}

// MimeType returns the mime type reported by the camera. It is empty
// until the data has been fetched.
func (f *File) MimeType() string {
	return f.mime
}

// Kind is the variant last fetched.
func (f *File) Kind() native.FileType {
	return f.kind
}

// Save writes the bytes to dst, or to the file name in the working
// directory when dst is empty.
func (f *File) Save(dst string) error {
	data, err := f.Data()
	if err != nil {
		return err
	}
	if dst == "" {
		dst = f.Name
	}
	if dst == "" {
		return fmt.Errorf("gphoto: no destination for unnamed file")
	}
	return os.WriteFile(dst, data, 0o644)
}

// Delete removes the file from camera storage.
func (f *File) Delete() error {
	return f.camera.Delete(f)
}

func (f *File) String() string {
	if f.IsPreview() {
		return "preview"
	}
	return f.FilePath.String()
}

// File fetches the kind variant of f with one native call and stores the
// bytes and mime type in f.
func (c *Camera) File(f *File, kind native.FileType) (*File, error) {
	if f.IsPreview() {
		return nil, ErrNoPath
	}
	h, ctx, err := c.session()
	if err != nil {
		return nil, err
	}
	d, st := h.FileGet(ctx, f.Folder, f.Name, kind)
	if err := check(native.CallFileGet, st); err != nil {
		return nil, fmt.Errorf("get %s: %w", f, err)
	}
	f.data = d.Data
	f.mime = d.MimeType
	f.kind = kind
	f.loaded = true
	return f, nil
}

// Delete removes f from camera storage with one native call.
func (c *Camera) Delete(f *File) error {
	if f.IsPreview() {
		return ErrNoPath
	}
	h, ctx, err := c.session()
	if err != nil {
		return err
	}
	if err := check(native.CallFileDelete, h.FileDelete(ctx, f.Folder, f.Name)); err != nil {
		return fmt.Errorf("delete %s: %w", f, err)
	}
	return nil
}

