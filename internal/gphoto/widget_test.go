package gphoto

import (
	"errors"
	"testing"
	"time"

	"github.com/cjeanneret/gpcam/internal/gphoto/native"
)

func TestNewRange_StepPolicy(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   Range
	}{
		{"min max", []float64{0, 10}, Range{Min: 0, Max: 10, Step: 1}},
		{"with step", []float64{-3, 3, 0.5}, Range{Min: -3, Max: 3, Step: 0.5}},
		{"min only", []float64{5}, Range{Min: 5, Step: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewRange(tt.values...); got != tt.want {
				t.Errorf("NewRange(%v) = %v, want %v", tt.values, got, tt.want)
			}
		})
	}
}

func TestRange_Values(t *testing.T) {
	r := NewRange(-1, 1, 0.5)
	got := r.Values()
	want := []float64{-1, -0.5, 0, 0.5, 1}
	if len(got) != len(want) {
		t.Fatalf("Values() = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Values()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if !r.Contains(0.25) || r.Contains(2) {
		t.Error("Contains is wrong")
	}
	if n := len(NewRange(0, MaxRangeValues-1, 1).Values()); n != MaxRangeValues {
		t.Errorf("len(Values()) = %d at the limit, want %d", n, MaxRangeValues)
	}
	if NewRange(0, 1e6, 0.001).Values() != nil {
		t.Error("oversized range was enumerated")
	}
	if (Range{Min: 1, Max: 0, Step: 1}).Values() != nil {
		t.Error("inverted range should enumerate nothing")
	}
}

func TestWidget_RangeWithoutIncrement(t *testing.T) {
	m, c := newMockCamera(t)
	defer c.Finalize()
	m.SetTree(native.MockWindow("main", "Main",
		native.MockRange("zoom", 2, 0, 10, 0),
		native.MockRange("ev", 0, -2, 2, 0.25),
		native.MockRange("iris", 0.3, -0.7, 0.9, 0.1),
	))

	tests := []struct {
		key  string
		want Range
	}{
		{"zoom", Range{Min: 0, Max: 10, Step: 1}},
		{"ev", Range{Min: -2, Max: 2, Step: 0.25}},
		{"iris", Range{Min: -0.7, Max: 0.9, Step: 0.1}},
	}
	for _, tt := range tests {
		w, err := c.Get(tt.key)
		if err != nil {
			t.Fatal(err)
		}
		r, ok := w.Range()
		if !ok || r != tt.want {
			t.Errorf("%s range = %v, %v; want %v", tt.key, r, ok, tt.want)
		}
	}
	if w, _ := c.Get("iris"); w.Value() != 0.3 {
		t.Errorf("iris value = %v, want 0.3", w.Value())
	}
}

func TestWidget_Values(t *testing.T) {
	_, c := newMockCamera(t)
	defer c.Finalize()

	tests := []struct {
		key  string
		want interface{}
		str  string
	}{
		{"artist", "", ""},
		{"iso", "Auto", "Auto"},
		{"exposurecompensation", 0.0, "0"},
		{"reviewtime", true, "1"},
		{"autofocusdrive", false, "0"},
		{"datetime", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), "2024-01-01T12:00:00Z"},
		{"syncdatetime", nil, ""},
	}
	for _, tt := range tests {
		w, err := c.Get(tt.key)
		if err != nil {
			t.Fatal(err)
		}
		got := w.Value()
		if d, ok := tt.want.(time.Time); ok {
			if !got.(time.Time).Equal(d) {
				t.Errorf("%s = %v, want %v", tt.key, got, d)
			}
		} else if got != tt.want {
			t.Errorf("%s = %#v, want %#v", tt.key, got, tt.want)
		}
		if w.String() != tt.str {
			t.Errorf("%s String() = %q, want %q", tt.key, w.String(), tt.str)
		}
	}
}

func TestWidget_Choices(t *testing.T) {
	_, c := newMockCamera(t)
	defer c.Finalize()

	w, err := c.Get("iso")
	if err != nil {
		t.Fatal(err)
	}
	if len(w.Choices()) != 7 || w.Choices()[0] != "Auto" {
		t.Errorf("choices = %v", w.Choices())
	}
	if ok := func() bool { _, ok := w.Range(); return ok }(); ok {
		t.Error("radio reports a range")
	}
}

func TestWidget_Walk(t *testing.T) {
	_, c := newMockCamera(t)
	defer c.Finalize()

	root, err := c.Window(false)
	if err != nil {
		t.Fatal(err)
	}
	if root.Parent() != nil || !root.IsContainer() {
		t.Error("root should be a parentless container")
	}

	var order []string
	_ = root.Walk(func(w *Widget) error {
		order = append(order, w.Name)
		return nil
	})
	if order[0] != "main" || order[1] != "actions" || order[2] != "autofocusdrive" {
		t.Errorf("walk order starts %v", order[:3])
	}

	stop := errors.New("stop")
	n := 0
	err = root.Walk(func(w *Widget) error {
		n++
		if w.Name == "settings" {
			return stop
		}
		return nil
	})
	if !errors.Is(err, stop) {
		t.Errorf("Walk error = %v", err)
	}
	if n != 5 {
		t.Errorf("Walk visited %d nodes before stopping, want 5", n)
	}
}

func TestWidget_LoadFailure(t *testing.T) {
	m, c := newMockCamera(t)
	defer c.Finalize()

	m.Fail(native.CallGetConfig, native.ErrorCameraBusy)
	if _, err := c.Window(false); !errors.Is(err, ErrNative) {
		t.Fatalf("expected native error, got %v", err)
	}
	m.Fail(native.CallGetConfig, native.OK)
	if _, err := c.Window(false); err != nil {
		t.Fatalf("retry: %v", err)
	}
}
