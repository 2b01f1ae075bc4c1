package gphoto

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

// Window returns the root of the configuration tree. The tree is fetched
// from the device once and cached; forceLoad drops the cache, including
// any unsaved change, and fetches it again.
func (c *Camera) Window(forceLoad bool) (*Widget, error) {
	if c.window != nil && !forceLoad {
		return c.window, nil
	}

	h, ctx, err := c.session()
	if err != nil {
		return nil, err
	}
	if err := c.discardWindow(); err != nil {
		return nil, err
	}

	root, st := h.GetConfig(ctx)
	if err := check(native.CallGetConfig, st); err != nil {
		return nil, err
	}
	w, err := loadWidget(root, nil)
	if err != nil {
		_ = check(native.CallWidgetFree, root.Free())
		return nil, err
	}
	c.window = w
	debug.Verbose("Loaded configuration tree of %s", c)
	return w, nil
}

// discardWindow frees the cached tree and forgets pending changes.
func (c *Camera) discardWindow() error {
	if c.window == nil {
		return nil
	}
	err := check(native.CallWidgetFree, c.window.handle.Free())
	c.window = nil
	c.config = nil
	c.dirty = false
	return err
}

// Config returns every leaf widget of the tree keyed by name. When two
// leaves share a name the first one in depth-first order wins; the other
// stays reachable by path through Get.
func (c *Camera) Config(forceLoad bool) (map[string]*Widget, error) {
	if c.config != nil && !forceLoad {
		return c.config, nil
	}
	w, err := c.Window(forceLoad)
	if err != nil {
		return nil, err
	}
	c.config = flatten(w)
	return c.config, nil
}

func flatten(root *Widget) map[string]*Widget {
	out := make(map[string]*Widget)
	_ = root.Walk(func(w *Widget) error {
		if w.IsContainer() {
			return nil
		}
		if _, dup := out[w.Name]; !dup {
			out[w.Name] = w
		}
		return nil
	})
	return out
}

// Keys returns the names in Config, sorted.
func (c *Camera) Keys() ([]string, error) {
	cfg, err := c.Config(false)
	if err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Get returns the leaf named key. A key starting with "/" is a tree path
// from the window ("/main/imgsettings/iso").
func (c *Camera) Get(key string) (*Widget, error) {
	if strings.HasPrefix(key, "/") {
		root, err := c.Window(false)
		if err != nil {
			return nil, err
		}
		parts := strings.SplitN(strings.TrimPrefix(key, "/"), "/", 2)
		if parts[0] != root.Name {
			return nil, &KeyError{Key: key}
		}
		w := root
		if len(parts) == 2 {
			w = root.Lookup(parts[1])
		}
		if w == nil {
			return nil, &KeyError{Key: key}
		}
		return w, nil
	}

	cfg, err := c.Config(false)
	if err != nil {
		return nil, err
	}
	w, ok := cfg[key]
	if !ok {
		return nil, &KeyError{Key: key}
	}
	return w, nil
}

// Set stores v in the widget key. Nothing reaches the device until Save.
func (c *Camera) Set(key string, v interface{}) error {
	w, err := c.Get(key)
	if err != nil {
		return err
	}
	if w.ReadOnly {
		return fmt.Errorf("%w: %s", ErrReadOnly, key)
	}
	if err := w.set(v); err != nil {
		return err
	}
	c.dirty = true
	debug.Value(key, w.String())
	return nil
}

// Update applies every entry of values in key order, then saves once.
// It stops at the first failing key; earlier keys stay pending.
func (c *Camera) Update(values map[string]interface{}) error {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := c.Set(k, values[k]); err != nil {
			return err
		}
	}
	_, err := c.Save()
	return err
}

// Dirty reports whether the cached tree holds unsaved changes.
func (c *Camera) Dirty() bool {
	return c.dirty
}

// Save commits the whole tree to the device with one native call. It
// reports false without calling the device when nothing changed. On
// failure the changes stay pending.
func (c *Camera) Save() (bool, error) {
	if !c.dirty || c.window == nil {
		return false, nil
	}
	h, ctx, err := c.session()
	if err != nil {
		return false, err
	}
	if err := check(native.CallSetConfig, h.SetConfig(ctx, c.window.handle)); err != nil {
		return false, err
	}
	c.dirty = false
	debug.Verbose("Saved configuration of %s", c)
	return true, nil
}
