package native

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"path"
	"sort"
	"strings"
	"sync"
)

// MockDriver simulates one attached camera in memory.
// Used for development without hardware and for tests.
//
// Every native call is counted (see Calls) and any call can be made to
// fail with Fail. WaitForEvent never blocks: it pops the next queued
// event or reports a timeout immediately.
type MockDriver struct {
	mu sync.Mutex

	devices   []Entry
	abilities map[string]Abilities
	ports     map[string]PortInfo

	calls    map[string]int
	failures map[string]Status

	root    *MockWidget
	folders map[string]bool
	files   map[string]map[string][]byte
	events  []mockEvent
	waitMs  int

	captureFolder string
	captureSeq    int
}

type mockEvent struct {
	typ  EventType
	data EventData
}

// Default identity of the simulated camera.
const (
	MockModel         = "Mock Camera"
	MockPort          = "usb:001,002"
	MockCaptureFolder = "/store_00010001/DCIM/100MOCK"
)

// NewMockDriver returns a driver with a single "Mock Camera" on
// "usb:001,002", a small configuration tree and two stored images.
func NewMockDriver() *MockDriver {
	m := &MockDriver{
		abilities:     make(map[string]Abilities),
		ports:         make(map[string]PortInfo),
		calls:         make(map[string]int),
		failures:      make(map[string]Status),
		folders:       map[string]bool{"/": true},
		files:         make(map[string]map[string][]byte),
		captureFolder: MockCaptureFolder,
	}
	m.AddDevice(MockModel, MockPort, Abilities{
		Model:            MockModel,
		Status:           DriverTesting,
		PortTypes:        PortUSB,
		Operations:       OperationCaptureImage | OperationCapturePreview | OperationConfig | OperationTriggerCapture,
		FileOperations:   FileOperationDelete | FileOperationPreview | FileOperationEXIF,
		FolderOperations: FolderOperationMakeDir | FolderOperationRemoveDir,
	})
	m.root = DefaultMockTree()
	m.AddFile(MockCaptureFolder, "IMG_0001.JPG", mockJPEG())
	m.AddFile(MockCaptureFolder, "IMG_0002.JPG", mockJPEG())
	return m
}

// AddDevice registers a detectable device and the abilities of its model.
func (m *MockDriver) AddDevice(model, port string, a Abilities) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.devices = append(m.devices, Entry{Model: model, Port: port})
	if a.Model == "" {
		a.Model = model
	}
	m.abilities[model] = a
	m.ports[port] = PortInfo{Name: portName(port), Path: port, Type: portType(port)}
}

// ClearDevices removes every detectable device. Abilities and ports stay
// resolvable so explicitly constructed cameras still work.
func (m *MockDriver) ClearDevices() {
	m.mu.Lock()
	m.devices = nil
	m.mu.Unlock()
}

// SetTree replaces the device-side configuration tree.
func (m *MockDriver) SetTree(root *MockWidget) {
	m.mu.Lock()
	m.root = root
	m.mu.Unlock()
}

// DeviceValue returns the value the device currently holds for the
// widget named name, as last committed by SetConfig.
func (m *MockDriver) DeviceValue(name string) (interface{}, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.root.find(name)
	if w == nil {
		return nil, false
	}
	return w.Value, true
}

// AddFile stores data under folder/name, creating the folder chain.
func (m *MockDriver) AddFile(folder, name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.addFileLocked(cleanFolder(folder), name, data)
}

// HasFile reports whether folder/name exists on the simulated storage.
func (m *MockDriver) HasFile(folder, name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.files[cleanFolder(folder)][name]
	return ok
}

// PushEvent queues an event returned by the next WaitForEvent.
func (m *MockDriver) PushEvent(t EventType, data EventData) {
	m.mu.Lock()
	m.events = append(m.events, mockEvent{typ: t, data: data})
	m.mu.Unlock()
}

// LastWaitTimeout returns the timeout in ms of the latest WaitForEvent.
func (m *MockDriver) LastWaitTimeout() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.waitMs
}

// Fail makes every following call named op return st.
// Fail(op, OK) restores normal behavior.
func (m *MockDriver) Fail(op string, st Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st == OK {
		delete(m.failures, op)
		return
	}
	m.failures[op] = st
}

// Calls returns how many times the native call op was made.
func (m *MockDriver) Calls(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[op]
}

// ResetCalls zeroes every call counter.
func (m *MockDriver) ResetCalls() {
	m.mu.Lock()
	m.calls = make(map[string]int)
	m.mu.Unlock()
}

// call counts op and returns its injected failure, if any.
// Must hold m.mu.
func (m *MockDriver) call(op string) Status {
	m.calls[op]++
	if st, ok := m.failures[op]; ok {
		return st
	}
	return OK
}

// Close is a no-op; the mock holds no native resources.
func (m *MockDriver) Close() error { return nil }

func (m *MockDriver) NewContext() (Context, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.call(CallContextNew); st != OK {
		return nil, st
	}
	return &mockContext{driver: m}, OK
}

func (m *MockDriver) Autodetect(ctx Context) ([]Entry, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.call(CallAutodetect); st != OK {
		return nil, st
	}
	out := make([]Entry, len(m.devices))
	copy(out, m.devices)
	return out, OK
}

func (m *MockDriver) LookupAbilities(ctx Context, model string) (Abilities, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.call(CallLookupModel); st != OK {
		return Abilities{}, st
	}
	a, ok := m.abilities[model]
	if !ok {
		return Abilities{}, ErrorModelNotFound
	}
	return a, OK
}

func (m *MockDriver) LookupPortInfo(p string) (PortInfo, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.call(CallLookupPath); st != OK {
		return PortInfo{}, st
	}
	info, ok := m.ports[p]
	if !ok {
		return PortInfo{}, ErrorUnknownPort
	}
	return info, OK
}

func (m *MockDriver) NewCamera() (CameraHandle, Status) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if st := m.call(CallCameraNew); st != OK {
		return nil, st
	}
	return &mockCamera{driver: m}, OK
}

// addFileLocked must hold m.mu; folder must be clean.
func (m *MockDriver) addFileLocked(folder, name string, data []byte) {
	for f := folder; ; f = path.Dir(f) {
		m.folders[f] = true
		if f == "/" {
			break
		}
	}
	if m.files[folder] == nil {
		m.files[folder] = make(map[string][]byte)
	}
	m.files[folder][name] = data
}

type mockContext struct {
	driver *MockDriver
	logFn  LogFunc
}

func (c *mockContext) SetLogFunc(fn LogFunc) { c.logFn = fn }

func (c *mockContext) Unref() {
	c.driver.mu.Lock()
	c.driver.call(CallContextUnref)
	c.driver.mu.Unlock()
	c.logFn = nil
}

func (c *mockContext) log(kind MessageKind, format string, args ...interface{}) {
	if c == nil || c.logFn == nil {
		return
	}
	c.logFn(kind, fmt.Sprintf(format, args...))
}

func asMockContext(ctx Context) *mockContext {
	c, _ := ctx.(*mockContext)
	return c
}

type mockCamera struct {
	driver    *MockDriver
	abilities *Abilities
	port      *PortInfo
	released  bool
}

// lock acquires the driver and counts op. The returned status is
// non-OK when op was made to fail or the handle was released.
func (c *mockCamera) lock(op string) Status {
	c.driver.mu.Lock()
	if st := c.driver.call(op); st != OK {
		return st
	}
	if c.released {
		return ErrorBadParameters
	}
	return OK
}

func (c *mockCamera) unlock() { c.driver.mu.Unlock() }

func (c *mockCamera) SetAbilities(a Abilities) Status {
	defer c.unlock()
	if st := c.lock(CallSetAbilities); st != OK {
		return st
	}
	c.abilities = &a
	return OK
}

func (c *mockCamera) SetPortInfo(p PortInfo) Status {
	defer c.unlock()
	if st := c.lock(CallSetPortInfo); st != OK {
		return st
	}
	c.port = &p
	return OK
}

func (c *mockCamera) supports(op Operation) bool {
	return c.abilities == nil || c.abilities.Operations&op != 0
}

func (c *mockCamera) Capture(ctx Context, kind CaptureType) (FilePath, Status) {
	c.driver.mu.Lock()
	p, st := c.captureLocked(kind)
	c.driver.mu.Unlock()
	if st == OK {
		asMockContext(ctx).log(MessageStatus, "Captured %s to %s/%s", kind, p.Folder, p.Name)
	}
	return p, st
}

// captureLocked must hold c.driver.mu.
func (c *mockCamera) captureLocked(kind CaptureType) (FilePath, Status) {
	if st := c.driver.call(CallCapture); st != OK {
		return FilePath{}, st
	}
	if c.released {
		return FilePath{}, ErrorBadParameters
	}
	if kind != CaptureImage || !c.supports(OperationCaptureImage) {
		return FilePath{}, ErrorNotSupported
	}
	d := c.driver
	d.captureSeq++
	p := FilePath{Folder: d.captureFolder, Name: fmt.Sprintf("CAPT%04d.JPG", d.captureSeq)}
	d.addFileLocked(p.Folder, p.Name, mockJPEG())
	d.events = append(d.events, mockEvent{typ: EventCaptureComplete})
	return p, OK
}

func (c *mockCamera) CapturePreview(ctx Context) (FileData, Status) {
	defer c.unlock()
	if st := c.lock(CallCapturePreview); st != OK {
		return FileData{}, st
	}
	if !c.supports(OperationCapturePreview) {
		return FileData{}, ErrorNotSupported
	}
	return FileData{Name: "preview.jpg", MimeType: "image/jpeg", Data: mockJPEG()}, OK
}

func (c *mockCamera) TriggerCapture(ctx Context) Status {
	defer c.unlock()
	if st := c.lock(CallTriggerCapture); st != OK {
		return st
	}
	if !c.supports(OperationTriggerCapture) {
		return ErrorNotSupported
	}
	d := c.driver
	d.captureSeq++
	p := FilePath{Folder: d.captureFolder, Name: fmt.Sprintf("CAPT%04d.JPG", d.captureSeq)}
	d.addFileLocked(p.Folder, p.Name, mockJPEG())
	d.events = append(d.events,
		mockEvent{typ: EventFileAdded, data: EventData{Path: p}},
		mockEvent{typ: EventCaptureComplete},
	)
	return OK
}

func (c *mockCamera) WaitForEvent(ctx Context, timeoutMs int) (EventType, EventData, Status) {
	defer c.unlock()
	if st := c.lock(CallWaitForEvent); st != OK {
		return EventUnknown, EventData{}, st
	}
	d := c.driver
	d.waitMs = timeoutMs
	if len(d.events) == 0 {
		return EventTimeout, EventData{}, OK
	}
	ev := d.events[0]
	d.events = d.events[1:]
	return ev.typ, ev.data, OK
}

func (c *mockCamera) GetConfig(ctx Context) (WidgetHandle, Status) {
	defer c.unlock()
	if st := c.lock(CallGetConfig); st != OK {
		return nil, st
	}
	if !c.supports(OperationConfig) {
		return nil, ErrorNotSupported
	}
	id := 0
	return c.driver.root.snapshot(c.driver, &id), OK
}

func (c *mockCamera) SetConfig(ctx Context, root WidgetHandle) Status {
	defer c.unlock()
	if st := c.lock(CallSetConfig); st != OK {
		return st
	}
	w, ok := root.(*mockWidget)
	if !ok || w.freed {
		return ErrorBadParameters
	}
	c.driver.root.commit(w)
	return OK
}

func (c *mockCamera) FileGet(ctx Context, folder, name string, kind FileType) (FileData, Status) {
	defer c.unlock()
	if st := c.lock(CallFileGet); st != OK {
		return FileData{}, st
	}
	data, ok := c.driver.files[cleanFolder(folder)][name]
	if !ok {
		return FileData{}, ErrorFileNotFound
	}
	switch kind {
	case FileNormal:
		return FileData{Name: name, MimeType: mimeFor(name), Data: append([]byte(nil), data...)}, OK
	case FilePreview:
		return FileData{Name: "thumb_" + name, MimeType: "image/jpeg", Data: mockJPEG()}, OK
	default:
		return FileData{}, ErrorNotSupported
	}
}

func (c *mockCamera) FileDelete(ctx Context, folder, name string) Status {
	defer c.unlock()
	if st := c.lock(CallFileDelete); st != OK {
		return st
	}
	files := c.driver.files[cleanFolder(folder)]
	if _, ok := files[name]; !ok {
		return ErrorFileNotFound
	}
	delete(files, name)
	return OK
}

func (c *mockCamera) FolderListFiles(ctx Context, folder string) ([]string, Status) {
	defer c.unlock()
	if st := c.lock(CallFolderListFiles); st != OK {
		return nil, st
	}
	folder = cleanFolder(folder)
	if !c.driver.folders[folder] {
		return nil, ErrorDirectoryNotFound
	}
	var names []string
	for n := range c.driver.files[folder] {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, OK
}

func (c *mockCamera) FolderListFolders(ctx Context, folder string) ([]string, Status) {
	defer c.unlock()
	if st := c.lock(CallFolderListFolders); st != OK {
		return nil, st
	}
	folder = cleanFolder(folder)
	if !c.driver.folders[folder] {
		return nil, ErrorDirectoryNotFound
	}
	var names []string
	for f := range c.driver.folders {
		if f != "/" && path.Dir(f) == folder {
			names = append(names, path.Base(f))
		}
	}
	sort.Strings(names)
	return names, OK
}

func (c *mockCamera) Exit(ctx Context) Status {
	defer c.unlock()
	return c.lock(CallCameraExit)
}

func (c *mockCamera) Unref() Status {
	c.driver.mu.Lock()
	defer c.driver.mu.Unlock()
	if st := c.driver.call(CallCameraUnref); st != OK {
		return st
	}
	c.released = true
	return OK
}

func cleanFolder(f string) string {
	if !strings.HasPrefix(f, "/") {
		f = "/" + f
	}
	return path.Clean(f)
}

func portType(p string) PortType {
	switch {
	case strings.HasPrefix(p, "usb:"):
		return PortUSB
	case strings.HasPrefix(p, "serial:"):
		return PortSerial
	case strings.HasPrefix(p, "disk:"):
		return PortDisk
	case strings.HasPrefix(p, "ptpip:"):
		return PortPTPIP
	}
	return PortNone
}

func portName(p string) string {
	switch portType(p) {
	case PortUSB:
		return "Universal Serial Bus"
	case PortSerial:
		return "Serial Port"
	case PortDisk:
		return "Media"
	case PortPTPIP:
		return "PTP/IP Connection"
	}
	return ""
}

func mimeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".cr2", ".nef", ".arw", ".raw":
		return "image/x-raw"
	case ".mov":
		return "video/quicktime"
	}
	return "application/octet-stream"
}

var (
	mockJPEGOnce sync.Once
	mockJPEGData []byte
)

// mockJPEG returns a fresh copy of a small gradient JPEG.
func mockJPEG() []byte {
	mockJPEGOnce.Do(func() {
		img := image.NewGray(image.Rect(0, 0, 64, 48))
		for y := 0; y < 48; y++ {
			for x := 0; x < 64; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(x * 4)})
			}
		}
		var buf bytes.Buffer
		_ = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 75})
		mockJPEGData = buf.Bytes()
	})
	return append([]byte(nil), mockJPEGData...)
}
