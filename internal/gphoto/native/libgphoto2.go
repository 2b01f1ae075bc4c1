//go:build gphoto2

package native

/*
#cgo pkg-config: libgphoto2
#include <stdint.h>
#include <stdlib.h>
#include <gphoto2/gphoto2.h>

extern void gpcamContextMessage(int kind, char *msg, uintptr_t handle);

static void ctx_error_func(GPContext *context, const char *text, void *data) {
	gpcamContextMessage(0, (char *)text, (uintptr_t)data);
}

static void ctx_status_func(GPContext *context, const char *text, void *data) {
	gpcamContextMessage(1, (char *)text, (uintptr_t)data);
}

static void ctx_message_func(GPContext *context, const char *text, void *data) {
	gpcamContextMessage(2, (char *)text, (uintptr_t)data);
}

static void set_context_funcs(GPContext *context, uintptr_t handle) {
	gp_context_set_error_func(context, ctx_error_func, (void *)handle);
	gp_context_set_status_func(context, ctx_status_func, (void *)handle);
	gp_context_set_message_func(context, ctx_message_func, (void *)handle);
}

static void clear_context_funcs(GPContext *context) {
	gp_context_set_error_func(context, NULL, NULL);
	gp_context_set_status_func(context, NULL, NULL);
	gp_context_set_message_func(context, NULL, NULL);
}
*/
import "C"

import (
	"runtime/cgo"
	"sync"
	"unsafe"

	"github.com/cjeanneret/gpcam/internal/debug"
)

// LibDriver is the libgphoto2 implementation of Driver.
// The abilities and port lists are loaded once and kept until Close,
// since port infos handed to SetPortInfo point into the port list.
type LibDriver struct {
	mu        sync.Mutex
	abilities *C.CameraAbilitiesList
	ports     *C.GPPortInfoList
}

// NewLibDriver creates a driver backed by libgphoto2.
func NewLibDriver() (Driver, error) {
	debug.Info("Initializing libgphoto2 driver (%s)", C.GoString(*C.gp_library_version(C.GP_VERSION_SHORT)))
	return &LibDriver{}, nil
}

func (d *LibDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.abilities != nil {
		C.gp_abilities_list_free(d.abilities)
		d.abilities = nil
	}
	if d.ports != nil {
		C.gp_port_info_list_free(d.ports)
		d.ports = nil
	}
	return nil
}

type libContext struct {
	ptr    *C.GPContext
	handle cgo.Handle
	logFn  LogFunc
}

func (d *LibDriver) NewContext() (Context, Status) {
	ptr := C.gp_context_new()
	if ptr == nil {
		return nil, ErrorNoMemory
	}
	c := &libContext{ptr: ptr}
	c.handle = cgo.NewHandle(c)
	C.set_context_funcs(ptr, C.uintptr_t(c.handle))
	return c, OK
}

func (c *libContext) SetLogFunc(fn LogFunc) { c.logFn = fn }

func (c *libContext) Unref() {
	if c.ptr == nil {
		return
	}
	C.clear_context_funcs(c.ptr)
	C.gp_context_unref(c.ptr)
	c.handle.Delete()
	c.ptr = nil
}

func contextPtr(ctx Context) *C.GPContext {
	if c, ok := ctx.(*libContext); ok {
		return c.ptr
	}
	return nil
}

func (d *LibDriver) Autodetect(ctx Context) ([]Entry, Status) {
	var list *C.CameraList
	if st := Status(C.gp_list_new(&list)); !st.OK() {
		return nil, st
	}
	defer C.gp_list_free(list)

	if st := Status(C.gp_camera_autodetect(list, contextPtr(ctx))); !st.OK() {
		return nil, st
	}

	n := int(C.gp_list_count(list))
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		var name, value *C.char
		if st := Status(C.gp_list_get_name(list, C.int(i), &name)); !st.OK() {
			return nil, st
		}
		if st := Status(C.gp_list_get_value(list, C.int(i), &value)); !st.OK() {
			return nil, st
		}
		entries = append(entries, Entry{Model: C.GoString(name), Port: C.GoString(value)})
	}
	return entries, OK
}

func (d *LibDriver) LookupAbilities(ctx Context, model string) (Abilities, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.abilities == nil {
		var list *C.CameraAbilitiesList
		if st := Status(C.gp_abilities_list_new(&list)); !st.OK() {
			return Abilities{}, st
		}
		if st := Status(C.gp_abilities_list_load(list, contextPtr(ctx))); !st.OK() {
			C.gp_abilities_list_free(list)
			return Abilities{}, st
		}
		d.abilities = list
	}

	cModel := C.CString(model)
	defer C.free(unsafe.Pointer(cModel))

	idx := C.gp_abilities_list_lookup_model(d.abilities, cModel)
	if st := Status(idx); !st.OK() {
		return Abilities{}, st
	}

	var ca C.CameraAbilities
	if st := Status(C.gp_abilities_list_get_abilities(d.abilities, idx, &ca)); !st.OK() {
		return Abilities{}, st
	}
	return Abilities{
		Model:            C.GoString(&ca.model[0]),
		Status:           DriverStatus(ca.status),
		PortTypes:        PortType(ca.port),
		Operations:       Operation(ca.operations),
		FileOperations:   FileOperation(ca.file_operations),
		FolderOperations: FolderOperation(ca.folder_operations),
		USBVendor:        int(ca.usb_vendor),
		USBProduct:       int(ca.usb_product),
		raw:              ca,
	}, OK
}

func (d *LibDriver) LookupPortInfo(path string) (PortInfo, Status) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ports == nil {
		var list *C.GPPortInfoList
		if st := Status(C.gp_port_info_list_new(&list)); !st.OK() {
			return PortInfo{}, st
		}
		if st := Status(C.gp_port_info_list_load(list)); !st.OK() {
			C.gp_port_info_list_free(list)
			return PortInfo{}, st
		}
		d.ports = list
	}

	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	idx := C.gp_port_info_list_lookup_path(d.ports, cPath)
	if st := Status(idx); !st.OK() {
		return PortInfo{}, st
	}

	var info C.GPPortInfo
	if st := Status(C.gp_port_info_list_get_info(d.ports, idx, &info)); !st.OK() {
		return PortInfo{}, st
	}

	var name, p *C.char
	var typ C.GPPortType
	C.gp_port_info_get_name(info, &name)
	C.gp_port_info_get_path(info, &p)
	C.gp_port_info_get_type(info, &typ)
	return PortInfo{
		Name: C.GoString(name),
		Path: C.GoString(p),
		Type: PortType(typ),
		raw:  info,
	}, OK
}

type libCamera struct {
	ptr *C.Camera
}

func (d *LibDriver) NewCamera() (CameraHandle, Status) {
	var ptr *C.Camera
	if st := Status(C.gp_camera_new(&ptr)); !st.OK() {
		return nil, st
	}
	return &libCamera{ptr: ptr}, OK
}

func (c *libCamera) SetAbilities(a Abilities) Status {
	ca, ok := a.raw.(C.CameraAbilities)
	if !ok {
		return ErrorBadParameters
	}
	return Status(C.gp_camera_set_abilities(c.ptr, ca))
}

func (c *libCamera) SetPortInfo(p PortInfo) Status {
	info, ok := p.raw.(C.GPPortInfo)
	if !ok {
		return ErrorBadParameters
	}
	return Status(C.gp_camera_set_port_info(c.ptr, info))
}

func (c *libCamera) Capture(ctx Context, kind CaptureType) (FilePath, Status) {
	var p C.CameraFilePath
	if st := Status(C.gp_camera_capture(c.ptr, C.CameraCaptureType(kind), &p, contextPtr(ctx))); !st.OK() {
		return FilePath{}, st
	}
	return FilePath{
		Folder: C.GoString(&p.folder[0]),
		Name:   C.GoString(&p.name[0]),
	}, OK
}

func (c *libCamera) CapturePreview(ctx Context) (FileData, Status) {
	var file *C.CameraFile
	if st := Status(C.gp_file_new(&file)); !st.OK() {
		return FileData{}, st
	}
	defer C.gp_file_unref(file)

	if st := Status(C.gp_camera_capture_preview(c.ptr, file, contextPtr(ctx))); !st.OK() {
		return FileData{}, st
	}
	return readFile(file)
}

func (c *libCamera) TriggerCapture(ctx Context) Status {
	return Status(C.gp_camera_trigger_capture(c.ptr, contextPtr(ctx)))
}

func (c *libCamera) WaitForEvent(ctx Context, timeoutMs int) (EventType, EventData, Status) {
	var typ C.CameraEventType
	var data unsafe.Pointer
	st := Status(C.gp_camera_wait_for_event(c.ptr, C.int(timeoutMs), &typ, &data, contextPtr(ctx)))
	if data != nil {
		defer C.free(data)
	}
	if !st.OK() {
		return EventUnknown, EventData{}, st
	}

	t := EventType(typ)
	var ed EventData
	switch t {
	case EventFileAdded, EventFolderAdded, EventFileChanged:
		if data != nil {
			p := (*C.CameraFilePath)(data)
			ed.Path = FilePath{
				Folder: C.GoString(&p.folder[0]),
				Name:   C.GoString(&p.name[0]),
			}
		}
	case EventUnknown:
		if data != nil {
			ed.Text = C.GoString((*C.char)(data))
			ed.HasText = true
		}
	}
	return t, ed, OK
}

func (c *libCamera) GetConfig(ctx Context) (WidgetHandle, Status) {
	var w *C.CameraWidget
	if st := Status(C.gp_camera_get_config(c.ptr, &w, contextPtr(ctx))); !st.OK() {
		return nil, st
	}
	return &libWidget{ptr: w, root: true}, OK
}

func (c *libCamera) SetConfig(ctx Context, root WidgetHandle) Status {
	w, ok := root.(*libWidget)
	if !ok || w.ptr == nil {
		return ErrorBadParameters
	}
	return Status(C.gp_camera_set_config(c.ptr, w.ptr, contextPtr(ctx)))
}

func (c *libCamera) FileGet(ctx Context, folder, name string, kind FileType) (FileData, Status) {
	cFolder := C.CString(folder)
	defer C.free(unsafe.Pointer(cFolder))
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	var file *C.CameraFile
	if st := Status(C.gp_file_new(&file)); !st.OK() {
		return FileData{}, st
	}
	defer C.gp_file_unref(file)

	st := Status(C.gp_camera_file_get(c.ptr, cFolder, cName, C.CameraFileType(kind), file, contextPtr(ctx)))
	if !st.OK() {
		return FileData{}, st
	}
	return readFile(file)
}

func (c *libCamera) FileDelete(ctx Context, folder, name string) Status {
	cFolder := C.CString(folder)
	defer C.free(unsafe.Pointer(cFolder))
	cName := C.CString(name)
	defer C.free(unsafe.Pointer(cName))

	return Status(C.gp_camera_file_delete(c.ptr, cFolder, cName, contextPtr(ctx)))
}

func (c *libCamera) FolderListFiles(ctx Context, folder string) ([]string, Status) {
	return c.listFolder(ctx, folder, false)
}

func (c *libCamera) FolderListFolders(ctx Context, folder string) ([]string, Status) {
	return c.listFolder(ctx, folder, true)
}

func (c *libCamera) listFolder(ctx Context, folder string, folders bool) ([]string, Status) {
	cFolder := C.CString(folder)
	defer C.free(unsafe.Pointer(cFolder))

	var list *C.CameraList
	if st := Status(C.gp_list_new(&list)); !st.OK() {
		return nil, st
	}
	defer C.gp_list_free(list)

	var st Status
	if folders {
		st = Status(C.gp_camera_folder_list_folders(c.ptr, cFolder, list, contextPtr(ctx)))
	} else {
		st = Status(C.gp_camera_folder_list_files(c.ptr, cFolder, list, contextPtr(ctx)))
	}
	if !st.OK() {
		return nil, st
	}

	n := int(C.gp_list_count(list))
	names := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var name *C.char
		if st := Status(C.gp_list_get_name(list, C.int(i), &name)); !st.OK() {
			return nil, st
		}
		names = append(names, C.GoString(name))
	}
	return names, OK
}

func (c *libCamera) Exit(ctx Context) Status {
	return Status(C.gp_camera_exit(c.ptr, contextPtr(ctx)))
}

func (c *libCamera) Unref() Status {
	if c.ptr == nil {
		return OK
	}
	st := Status(C.gp_camera_unref(c.ptr))
	c.ptr = nil
	return st
}

func readFile(file *C.CameraFile) (FileData, Status) {
	var data *C.char
	var size C.ulong
	if st := Status(C.gp_file_get_data_and_size(file, &data, &size)); !st.OK() {
		return FileData{}, st
	}
	var name, mime *C.char
	C.gp_file_get_name(file, &name)
	C.gp_file_get_mime_type(file, &mime)
	return FileData{
		Name:     C.GoString(name),
		MimeType: C.GoString(mime),
		Data:     C.GoBytes(unsafe.Pointer(data), C.int(size)),
	}, OK
}

type libWidget struct {
	ptr  *C.CameraWidget
	root bool
}

func (w *libWidget) Name() string {
	var s *C.char
	C.gp_widget_get_name(w.ptr, &s)
	return C.GoString(s)
}

func (w *libWidget) Label() string {
	var s *C.char
	C.gp_widget_get_label(w.ptr, &s)
	return C.GoString(s)
}

func (w *libWidget) Info() string {
	var s *C.char
	C.gp_widget_get_info(w.ptr, &s)
	return C.GoString(s)
}

func (w *libWidget) ID() int {
	var id C.int
	C.gp_widget_get_id(w.ptr, &id)
	return int(id)
}

func (w *libWidget) Type() WidgetType {
	var t C.CameraWidgetType
	C.gp_widget_get_type(w.ptr, &t)
	return WidgetType(t)
}

func (w *libWidget) ReadOnly() bool {
	var ro C.int
	C.gp_widget_get_readonly(w.ptr, &ro)
	return ro != 0
}

func (w *libWidget) Children() []WidgetHandle {
	n := int(C.gp_widget_count_children(w.ptr))
	out := make([]WidgetHandle, 0, n)
	for i := 0; i < n; i++ {
		var child *C.CameraWidget
		if Status(C.gp_widget_get_child(w.ptr, C.int(i), &child)).OK() {
			out = append(out, &libWidget{ptr: child})
		}
	}
	return out
}

func (w *libWidget) Value() (interface{}, Status) {
	switch w.Type() {
	case WidgetText, WidgetRadio, WidgetMenu:
		var s *C.char
		if st := Status(C.gp_widget_get_value(w.ptr, unsafe.Pointer(&s))); !st.OK() {
			return nil, st
		}
		return C.GoString(s), OK
	case WidgetRange:
		var f C.float
		if st := Status(C.gp_widget_get_value(w.ptr, unsafe.Pointer(&f))); !st.OK() {
			return nil, st
		}
		return float32(f), OK
	case WidgetToggle, WidgetDate:
		var i C.int
		if st := Status(C.gp_widget_get_value(w.ptr, unsafe.Pointer(&i))); !st.OK() {
			return nil, st
		}
		return int(i), OK
	case WidgetButton:
		return nil, OK
	}
	return nil, ErrorBadParameters
}

func (w *libWidget) SetValue(v interface{}) Status {
	switch val := v.(type) {
	case string:
		cs := C.CString(val)
		defer C.free(unsafe.Pointer(cs))
		return Status(C.gp_widget_set_value(w.ptr, unsafe.Pointer(cs)))
	case float32:
		f := C.float(val)
		return Status(C.gp_widget_set_value(w.ptr, unsafe.Pointer(&f)))
	case int:
		i := C.int(val)
		return Status(C.gp_widget_set_value(w.ptr, unsafe.Pointer(&i)))
	}
	return ErrorBadParameters
}

func (w *libWidget) Range() (float32, float32, float32, Status) {
	var min, max, inc C.float
	if st := Status(C.gp_widget_get_range(w.ptr, &min, &max, &inc)); !st.OK() {
		return 0, 0, 0, st
	}
	return float32(min), float32(max), float32(inc), OK
}

func (w *libWidget) Choices() ([]string, Status) {
	n := int(C.gp_widget_count_choices(w.ptr))
	if n < 0 {
		return nil, Status(n)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		var s *C.char
		if st := Status(C.gp_widget_get_choice(w.ptr, C.int(i), &s)); !st.OK() {
			return nil, st
		}
		out = append(out, C.GoString(s))
	}
	return out, OK
}

func (w *libWidget) Free() Status {
	if !w.root || w.ptr == nil {
		return ErrorBadParameters
	}
	st := Status(C.gp_widget_free(w.ptr))
	w.ptr = nil
	return st
}
