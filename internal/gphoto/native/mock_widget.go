package native

import "time"

// MockWidget describes one node of the MockDriver's device-side
// configuration tree. Value follows the WidgetHandle typing rules.
type MockWidget struct {
	Name     string
	Label    string
	Info     string
	Type     WidgetType
	ReadOnly bool
	Value    interface{}

	Min, Max, Step float32
	Choices        []string

	Children []*MockWidget
}

// MockWindow builds a window container.
func MockWindow(name, label string, children ...*MockWidget) *MockWidget {
	return &MockWidget{Name: name, Label: label, Type: WidgetWindow, Children: children}
}

// MockSection builds a section container.
func MockSection(name, label string, children ...*MockWidget) *MockWidget {
	return &MockWidget{Name: name, Label: label, Type: WidgetSection, Children: children}
}

// MockText builds a text leaf.
func MockText(name, value string) *MockWidget {
	return &MockWidget{Name: name, Label: name, Type: WidgetText, Value: value}
}

// MockRange builds a range leaf.
func MockRange(name string, value, min, max, step float32) *MockWidget {
	return &MockWidget{Name: name, Label: name, Type: WidgetRange, Value: value, Min: min, Max: max, Step: step}
}

// MockToggle builds a toggle leaf holding 0 or 1.
func MockToggle(name string, value int) *MockWidget {
	return &MockWidget{Name: name, Label: name, Type: WidgetToggle, Value: value}
}

// MockRadio builds a radio leaf.
func MockRadio(name, value string, choices ...string) *MockWidget {
	return &MockWidget{Name: name, Label: name, Type: WidgetRadio, Value: value, Choices: choices}
}

// MockMenu builds a menu leaf.
func MockMenu(name, value string, choices ...string) *MockWidget {
	return &MockWidget{Name: name, Label: name, Type: WidgetMenu, Value: value, Choices: choices}
}

// MockDate builds a date leaf holding unix seconds.
func MockDate(name string, value int) *MockWidget {
	return &MockWidget{Name: name, Label: name, Type: WidgetDate, Value: value}
}

// MockButton builds a button leaf.
func MockButton(name string) *MockWidget {
	return &MockWidget{Name: name, Label: name, Type: WidgetButton}
}

// ReadOnlyWidget marks w read-only and returns it.
func ReadOnlyWidget(w *MockWidget) *MockWidget {
	w.ReadOnly = true
	return w
}

// DefaultMockTree returns the configuration tree of the simulated camera,
// laid out like a typical PTP camera.
func DefaultMockTree() *MockWidget {
	return MockWindow("main", "Camera and Driver Configuration",
		MockSection("actions", "Camera Actions",
			MockToggle("autofocusdrive", 0),
			MockButton("syncdatetime"),
		),
		MockSection("settings", "Camera Settings",
			MockDate("datetime", int(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC).Unix())),
			MockText("artist", ""),
			MockToggle("reviewtime", 1),
		),
		MockSection("status", "Camera Status Information",
			ReadOnlyWidget(MockText("serialnumber", "MOCK000001")),
			ReadOnlyWidget(MockText("batterylevel", "100%")),
			ReadOnlyWidget(MockText("manufacturer", "gpcam")),
		),
		MockSection("imgsettings", "Image Settings",
			MockRadio("iso", "Auto", "Auto", "100", "200", "400", "800", "1600", "3200"),
			MockMenu("whitebalance", "Auto", "Auto", "Daylight", "Shadow", "Cloudy", "Tungsten", "Fluorescent"),
			MockRadio("imageformat", "Large Fine JPEG", "Large Fine JPEG", "Medium Fine JPEG", "Small Fine JPEG"),
		),
		MockSection("capturesettings", "Capture Settings",
			MockRange("exposurecompensation", 0, -3, 3, 0.5),
			MockRadio("aperture", "5.6", "2.8", "4", "5.6", "8", "11", "16"),
			MockRadio("shutterspeed", "1/125", "1/30", "1/60", "1/125", "1/250", "1/500", "1/1000"),
			MockMenu("focusmode", "One Shot", "One Shot", "AI Focus", "AI Servo", "Manual"),
		),
	)
}

// find returns the first widget named name in depth-first order.
func (w *MockWidget) find(name string) *MockWidget {
	if w == nil {
		return nil
	}
	if w.Name == name {
		return w
	}
	for _, c := range w.Children {
		if f := c.find(name); f != nil {
			return f
		}
	}
	return nil
}

// snapshot copies the tree into freshly allocated handles.
func (w *MockWidget) snapshot(d *MockDriver, id *int) *mockWidget {
	*id++
	s := &mockWidget{
		driver: d,
		def:    *w,
		id:     *id,
	}
	s.def.Children = nil
	s.def.Choices = append([]string(nil), w.Choices...)
	for _, c := range w.Children {
		child := c.snapshot(d, id)
		child.parent = s
		s.children = append(s.children, child)
	}
	return s
}

// commit copies leaf values from a snapshot back into the device tree,
// matching nodes by name.
func (w *MockWidget) commit(s *mockWidget) {
	if !w.ReadOnly && !w.Type.IsContainer() {
		w.Value = s.def.Value
	}
	for _, sc := range s.children {
		for _, c := range w.Children {
			if c.Name == sc.def.Name {
				c.commit(sc)
				break
			}
		}
	}
}

// mockWidget is a WidgetHandle over a snapshot of a MockWidget.
type mockWidget struct {
	driver   *MockDriver
	def      MockWidget
	id       int
	parent   *mockWidget
	children []*mockWidget
	freed    bool
}

func (w *mockWidget) Name() string { return w.def.Name }

func (w *mockWidget) Label() string { return w.def.Label }

func (w *mockWidget) Info() string { return w.def.Info }

func (w *mockWidget) ID() int { return w.id }

func (w *mockWidget) Type() WidgetType { return w.def.Type }

func (w *mockWidget) ReadOnly() bool { return w.def.ReadOnly }

func (w *mockWidget) Children() []WidgetHandle {
	out := make([]WidgetHandle, len(w.children))
	for i, c := range w.children {
		out[i] = c
	}
	return out
}

func (w *mockWidget) Value() (interface{}, Status) {
	if w.def.Type.IsContainer() {
		return nil, ErrorBadParameters
	}
	return w.def.Value, OK
}

func (w *mockWidget) SetValue(v interface{}) Status {
	var ok bool
	switch w.def.Type {
	case WidgetText, WidgetRadio, WidgetMenu:
		_, ok = v.(string)
	case WidgetRange:
		_, ok = v.(float32)
	case WidgetToggle, WidgetDate:
		_, ok = v.(int)
	}
	if !ok {
		return ErrorBadParameters
	}
	w.def.Value = v
	return OK
}

func (w *mockWidget) Range() (float32, float32, float32, Status) {
	if w.def.Type != WidgetRange {
		return 0, 0, 0, ErrorBadParameters
	}
	return w.def.Min, w.def.Max, w.def.Step, OK
}

func (w *mockWidget) Choices() ([]string, Status) {
	if w.def.Type != WidgetRadio && w.def.Type != WidgetMenu {
		return nil, ErrorBadParameters
	}
	return append([]string(nil), w.def.Choices...), OK
}

func (w *mockWidget) Free() Status {
	w.driver.mu.Lock()
	defer w.driver.mu.Unlock()
	if st := w.driver.call(CallWidgetFree); st != OK {
		return st
	}
	if w.parent != nil {
		return ErrorBadParameters
	}
	w.markFreed()
	return OK
}

func (w *mockWidget) markFreed() {
	w.freed = true
	for _, c := range w.children {
		c.markFreed()
	}
}
