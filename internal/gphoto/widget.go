package gphoto

import (
	"fmt"
	"math"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

// Widget is one node of a camera's configuration tree.
//
// Window and section widgets are containers: they have children and no
// value. Every other type is a leaf with a value. The value is read
// once, when the tree is loaded, and updated in place by Camera.Set.
type Widget struct {
	Name     string
	Label    string
	Info     string
	ID       int
	Type     native.WidgetType
	ReadOnly bool

	handle   native.WidgetHandle
	parent   *Widget
	children []*Widget

	value   interface{}
	rng     Range
	choices []string
}

// loadWidget snapshots the native node h and its subtree.
func loadWidget(h native.WidgetHandle, parent *Widget) (*Widget, error) {
	w := &Widget{
		Name:     h.Name(),
		Label:    h.Label(),
		Info:     h.Info(),
		ID:       h.ID(),
		Type:     h.Type(),
		ReadOnly: h.ReadOnly(),
		handle:   h,
		parent:   parent,
	}

	if w.Type.IsContainer() {
		for _, ch := range h.Children() {
			child, err := loadWidget(ch, w)
			if err != nil {
				return nil, err
			}
			w.children = append(w.children, child)
		}
		return w, nil
	}

	if w.Type != native.WidgetButton {
		v, st := h.Value()
		if err := check(native.CallWidgetGetValue, st); err != nil {
			return nil, fmt.Errorf("widget %q: %w", w.Name, err)
		}
		w.value = v
	}

	switch w.Type {
	case native.WidgetRange:
		min, max, step, st := h.Range()
		if err := check(native.CallWidgetGetRange, st); err != nil {
			return nil, fmt.Errorf("widget %q: %w", w.Name, err)
		}
		if step > 0 {
			w.rng = NewRange(widen(min), widen(max), widen(step))
		} else {
			w.rng = NewRange(widen(min), widen(max))
		}
	case native.WidgetRadio, native.WidgetMenu:
		choices, st := h.Choices()
		if err := check(native.CallWidgetGetChoice, st); err != nil {
			return nil, fmt.Errorf("widget %q: %w", w.Name, err)
		}
		w.choices = choices
	}
	return w, nil
}

// IsContainer reports whether w is a window or a section.
func (w *Widget) IsContainer() bool {
	return w.Type.IsContainer()
}

// Parent returns the enclosing widget, nil for the root.
func (w *Widget) Parent() *Widget {
	return w.parent
}

// Children returns the child widgets of a container.
func (w *Widget) Children() []*Widget {
	return w.children
}

// Child returns the direct child named name, or nil.
func (w *Widget) Child(name string) *Widget {
	for _, c := range w.children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Path returns the slash-separated names from the root to w,
// e.g. "/main/imgsettings/iso".
func (w *Widget) Path() string {
	if w.parent == nil {
		return "/" + w.Name
	}
	return path.Join(w.parent.Path(), w.Name)
}

// Lookup resolves a path relative to w ("imgsettings/iso").
func (w *Widget) Lookup(p string) *Widget {
	cur := w
	for _, part := range strings.Split(strings.Trim(p, "/"), "/") {
		if part == "" {
			continue
		}
		if cur = cur.Child(part); cur == nil {
			return nil
		}
	}
	return cur
}

// Walk calls fn for w and every descendant, depth first, parents before
// children. It stops at the first error fn returns.
func (w *Widget) Walk(fn func(*Widget) error) error {
	if err := fn(w); err != nil {
		return err
	}
	for _, c := range w.children {
		if err := c.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the leaf value: string for text, radio and menu,
// float64 for range, bool for toggle, time.Time for date. Containers and
// buttons return nil.
func (w *Widget) Value() interface{} {
	switch w.Type {
	case native.WidgetText, native.WidgetRadio, native.WidgetMenu:
		s, _ := w.value.(string)
		return s
	case native.WidgetRange:
		f, _ := w.value.(float32)
		return widen(f)
	case native.WidgetToggle:
		i, _ := w.value.(int)
		return i != 0
	case native.WidgetDate:
		i, _ := w.value.(int)
		return time.Unix(int64(i), 0)
	}
	return nil
}

// String formats the value the way the camera reports it.
func (w *Widget) String() string {
	switch v := w.Value().(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		if v {
			return "1"
		}
		return "0"
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	}
	return fmt.Sprint(w.value)
}

// Range returns the allowed values of a range widget.
func (w *Widget) Range() (Range, bool) {
	return w.rng, w.Type == native.WidgetRange
}

// Choices returns the options of a radio or menu widget.
func (w *Widget) Choices() []string {
	return w.choices
}

// set converts v to the native value type and stores it in the tree.
func (w *Widget) set(v interface{}) error {
	nv, err := toNative(w.Type, v)
	if err != nil {
		return &ValueError{Key: w.Name, Type: w.Type, Value: v, Err: err}
	}
	if err := check(native.CallWidgetSetValue, w.handle.SetValue(nv)); err != nil {
		return fmt.Errorf("widget %q: %w", w.Name, err)
	}
	w.value = nv
	return nil
}

func toNative(t native.WidgetType, v interface{}) (interface{}, error) {
	switch t {
	case native.WidgetText, native.WidgetRadio, native.WidgetMenu:
		switch s := v.(type) {
		case string:
			return s, nil
		case fmt.Stringer:
			return s.String(), nil
		case int, int64, float32, float64, bool:
			return fmt.Sprint(s), nil
		}
	case native.WidgetRange:
		switch f := v.(type) {
		case float32:
			return f, nil
		case float64:
			return float32(f), nil
		case int:
			return float32(f), nil
		case int64:
			return float32(f), nil
		case string:
			p, err := strconv.ParseFloat(strings.TrimSpace(f), 32)
			if err != nil {
				return nil, err
			}
			return float32(p), nil
		}
	case native.WidgetToggle:
		switch b := v.(type) {
		case bool:
			if b {
				return 1, nil
			}
			return 0, nil
		case int:
			return b, nil
		case string:
			return parseToggle(b)
		}
	case native.WidgetDate:
		switch d := v.(type) {
		case time.Time:
			return int(d.Unix()), nil
		case int:
			return d, nil
		case int64:
			return int(d), nil
		case string:
			return parseDate(d)
		}
	default:
		return nil, fmt.Errorf("%s widgets hold no value", t)
	}
	return nil, fmt.Errorf("unsupported type %T", v)
}

func parseToggle(s string) (int, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "on", "true", "yes":
		return 1, nil
	case "0", "off", "false", "no":
		return 0, nil
	}
	return 0, fmt.Errorf("invalid toggle value %q", s)
}

func parseDate(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "now" {
		return int(time.Now().Unix()), nil
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(i), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, err
	}
	return int(t.Unix()), nil
}

// widen converts a native float to the float64 with the same shortest
// decimal form, so 0.1 stays 0.1 rather than 0.10000000149.
func widen(f float32) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'g', -1, 32), 64)
	return v
}

// Range describes the allowed values of a range widget.
type Range struct {
	Min  float64
	Max  float64
	Step float64
}

// NewRange builds a range from a [min, max, step] descriptor. A
// descriptor without a step entry means a step of 1.
func NewRange(values ...float64) Range {
	var r Range
	if len(values) > 0 {
		r.Min = values[0]
	}
	if len(values) > 1 {
		r.Max = values[1]
	}
	r.Step = 1.0
	if len(values) > 2 {
		r.Step = values[2]
	}
	return r
}

// Contains reports whether v lies within [Min, Max].
func (r Range) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// MaxRangeValues bounds the enumeration done by Range.Values.
const MaxRangeValues = 1024

// Values enumerates Min, Min+Step, ... up to Max. It returns nil when
// the range holds more than MaxRangeValues steps.
func (r Range) Values() []float64 {
	if r.Step <= 0 || r.Max < r.Min {
		return nil
	}
	steps := math.Floor((r.Max-r.Min)/r.Step + 1e-9)
	if steps >= MaxRangeValues {
		return nil
	}
	n := int(steps) + 1
	out := make([]float64, n)
	for i := range out {
		out[i] = r.Min + float64(i)*r.Step
	}
	return out
}

func (r Range) String() string {
	return fmt.Sprintf("[%g, %g, %g]", r.Min, r.Max, r.Step)
}
