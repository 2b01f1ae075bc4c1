package gphoto

import (
	"fmt"
	"path"
	"strings"

	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

// Folder is a directory on camera storage.
type Folder struct {
	camera *Camera
	path   string
}

// cleanPath makes p absolute and clean. The empty path is the root.
func cleanPath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return path.Clean(p)
}

// Filesystem returns the folder root on the camera's storage. A missing
// leading slash is added and "" means "/". No native call is made.
func (c *Camera) Filesystem(root string) *Folder {
	return &Folder{camera: c, path: cleanPath(root)}
}

// Path returns the absolute folder path.
func (f *Folder) Path() string { return f.path }

// Name returns the last path element, "/" for the root.
func (f *Folder) Name() string { return path.Base(f.path) }

func (f *Folder) String() string { return f.path }

// Files lists the files directly inside f.
func (f *Folder) Files() ([]*File, error) {
	h, ctx, err := f.camera.session()
	if err != nil {
		return nil, err
	}
	names, st := h.FolderListFiles(ctx, f.path)
	if err := check(native.CallFolderListFiles, st); err != nil {
		return nil, fmt.Errorf("list %s: %w", f.path, err)
	}
	out := make([]*File, len(names))
	for i, n := range names {
		out[i] = newFile(f.camera, FilePath{Folder: f.path, Name: n})
	}
	return out, nil
}

// Folders lists the folders directly inside f.
func (f *Folder) Folders() ([]*Folder, error) {
	h, ctx, err := f.camera.session()
	if err != nil {
		return nil, err
	}
	names, st := h.FolderListFolders(ctx, f.path)
	if err := check(native.CallFolderListFolders, st); err != nil {
		return nil, fmt.Errorf("list %s: %w", f.path, err)
	}
	out := make([]*Folder, len(names))
	for i, n := range names {
		out[i] = f.Cd(n)
	}
	return out, nil
}

// Cd returns the folder at name relative to f. Absolute names start
// again from the root.
func (f *Folder) Cd(name string) *Folder {
	if strings.HasPrefix(name, "/") {
		return f.camera.Filesystem(name)
	}
	return f.camera.Filesystem(path.Join(f.path, name))
}

// Up returns the parent folder. The root is its own parent.
func (f *Folder) Up() *Folder {
	return f.camera.Filesystem(path.Dir(f.path))
}

// File returns a reference to name inside f without fetching it.
func (f *Folder) File(name string) *File {
	return newFile(f.camera, FilePath{Folder: f.path, Name: name})
}

// Walk visits f and every folder below it, parents first.
func (f *Folder) Walk(fn func(*Folder, []*File) error) error {
	files, err := f.Files()
	if err != nil {
		return err
	}
	if err := fn(f, files); err != nil {
		return err
	}
	subs, err := f.Folders()
	if err != nil {
		return err
	}
	for _, s := range subs {
		if err := s.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}
