package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cjeanneret/gpcam/internal/debug"
	"github.com/cjeanneret/gpcam/internal/gphoto"
	"github.com/cjeanneret/gpcam/internal/logic/frame"
	"github.com/cjeanneret/gpcam/internal/logic/tether"
)

const (
	// maxConfigBody bounds POST /config request bodies.
	maxConfigBody = 64 << 10
	// maxPreviewWidth bounds the width query parameter.
	maxPreviewWidth = 4096
	// DefaultFrameInterval is the live-view stream period.
	DefaultFrameInterval = 100 * time.Millisecond
)

// WidgetInfo is the JSON form of one config leaf.
type WidgetInfo struct {
	Name     string      `json:"name"`
	Path     string      `json:"path"`
	Label    string      `json:"label"`
	Type     string      `json:"type"`
	Value    interface{} `json:"value"`
	ReadOnly bool        `json:"read_only"`
	Choices  []string    `json:"choices,omitempty"`
	Range    *RangeInfo  `json:"range,omitempty"`
}

// RangeInfo is the JSON form of a range widget's bounds.
type RangeInfo struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// CaptureResult is the POST /capture response.
type CaptureResult struct {
	Remote string `json:"remote"`
	Local  string `json:"local,omitempty"`
	Bytes  int    `json:"bytes,omitempty"`
}

// Options configures Handlers.
type Options struct {
	// Session downloads captures. Nil leaves them on the card.
	Session *tether.Session
	// Lock serializes camera access and must be the one Session uses.
	// Nil means a private mutex.
	Lock *sync.Mutex
	// FrameInterval is the live-view stream period.
	FrameInterval time.Duration
	// ChangeThreshold is the average-hash distance below which stream
	// frames are skipped. 0 sends every frame; serve uses
	// web.change_threshold, at least 1.
	ChangeThreshold int
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Camera      *gphoto.Camera

	opts      Options
	runningMu sync.Mutex
	running   bool
	staticFS  fs.FS
}

// NewHandlers creates handlers for camera c.
func NewHandlers(broadcaster *StatusBroadcaster, c *gphoto.Camera, opts Options, staticFS fs.FS) *Handlers {
	if opts.Lock == nil {
		opts.Lock = &sync.Mutex{}
	}
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = DefaultFrameInterval
	}
	return &Handlers{
		Broadcaster: broadcaster,
		Camera:      c,
		opts:        opts,
		staticFS:    staticFS,
	}
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleConfig handles GET /config: the flattened widget tree, sorted by key.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	h.opts.Lock.Lock()
	infos, err := h.widgets(r.URL.Query().Get("reload") == "1")
	h.opts.Lock.Unlock()
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, infos)
}

func (h *Handlers) widgets(reload bool) ([]WidgetInfo, error) {
	cfg, err := h.Camera.Config(reload)
	if err != nil {
		return nil, err
	}
	keys, err := h.Camera.Keys()
	if err != nil {
		return nil, err
	}
	infos := make([]WidgetInfo, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, widgetInfo(cfg[k]))
	}
	return infos, nil
}

func widgetInfo(wd *gphoto.Widget) WidgetInfo {
	info := WidgetInfo{
		Name:     wd.Name,
		Path:     wd.Path(),
		Label:    wd.Label,
		Type:     wd.Type.String(),
		ReadOnly: wd.ReadOnly,
		Choices:  wd.Choices(),
	}
	if v := wd.Value(); v != nil {
		if t, ok := v.(time.Time); ok {
			info.Value = t.UTC().Format(time.RFC3339)
		} else {
			info.Value = v
		}
	}
	if rng, ok := wd.Range(); ok {
		info.Range = &RangeInfo{Min: rng.Min, Max: rng.Max, Step: rng.Step}
	}
	return info
}

// HandleSetConfig handles POST /config with a JSON object of key to
// value. All values are committed in one save.
func (h *Handlers) HandleSetConfig(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxConfigBody)
	var values map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&values); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	if len(values) == 0 {
		http.Error(w, "no values", http.StatusBadRequest)
		return
	}

	h.opts.Lock.Lock()
	err := h.Camera.Update(values)
	var infos []WidgetInfo
	if err == nil {
		infos, err = h.widgets(false)
	}
	if err != nil && h.Camera.Dirty() {
		// Drop the keys applied before the failing one.
		if _, rerr := h.Camera.Window(true); rerr != nil {
			debug.Error(rerr)
		}
	}
	h.opts.Lock.Unlock()
	if err != nil {
		httpError(w, err)
		return
	}
	h.Broadcaster.BroadcastEvent("config", fmt.Sprintf("Updated %d setting(s)", len(values)), "")
	writeJSON(w, http.StatusOK, infos)
}

// HandleCapture handles POST /capture. A capture already in progress
// returns 409.
func (h *Handlers) HandleCapture(w http.ResponseWriter, r *http.Request) {
	h.runningMu.Lock()
	if h.running {
		h.runningMu.Unlock()
		http.Error(w, "capture already in progress", http.StatusConflict)
		return
	}
	h.running = true
	h.runningMu.Unlock()
	defer func() {
		h.runningMu.Lock()
		h.running = false
		h.runningMu.Unlock()
	}()

	res, err := h.capture()
	if err != nil {
		h.Broadcaster.Broadcast("error", "Capture failed: "+err.Error())
		debug.Error(err)
		httpError(w, err)
		return
	}
	h.Broadcaster.BroadcastEvent("shot", "Captured "+res.Remote, res.Remote)
	writeJSON(w, http.StatusOK, res)
}

func (h *Handlers) capture() (CaptureResult, error) {
	if h.opts.Session != nil {
		shot, err := h.opts.Session.Shoot()
		if err != nil {
			return CaptureResult{}, err
		}
		return CaptureResult{Remote: shot.Remote.String(), Local: shot.Local, Bytes: shot.Bytes}, nil
	}
	h.opts.Lock.Lock()
	defer h.opts.Lock.Unlock()
	f, err := h.Camera.CaptureImage()
	if err != nil {
		return CaptureResult{}, err
	}
	return CaptureResult{Remote: f.FilePath.String()}, nil
}

// HandlePreview handles GET /preview[?width=N]: one live-view frame.
func (h *Handlers) HandlePreview(w http.ResponseWriter, r *http.Request) {
	width, err := previewWidth(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	data, mime, err := h.frame(width)
	if err != nil {
		httpError(w, err)
		return
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "no-store")
	w.Write(data)
}

// frame grabs and optionally resizes one live-view frame.
func (h *Handlers) frame(width int) ([]byte, string, error) {
	h.opts.Lock.Lock()
	f, err := h.Camera.Preview()
	var data []byte
	if err == nil {
		data, err = f.Data()
	}
	h.opts.Lock.Unlock()
	if err != nil {
		return nil, "", err
	}

	mime := f.MimeType()
	if mime == "" {
		mime = "image/jpeg"
	}
	if width > 0 && mime == "image/jpeg" {
		if data, err = frame.Resize(data, width, frame.DefaultQuality); err != nil {
			return nil, "", err
		}
	}
	return data, mime, nil
}

// HandlePreviewStream handles GET /preview/stream as an MJPEG
// multipart stream. Frames whose hash did not change are skipped.
func (h *Handlers) HandlePreviewStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}
	width, err := previewWidth(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	const boundary = "frame"
	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary="+boundary)
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	detector := &frame.ChangeDetector{Threshold: h.opts.ChangeThreshold}
	ticker := time.NewTicker(h.opts.FrameInterval)
	defer ticker.Stop()

	for {
		data, mime, err := h.frame(width)
		if err != nil {
			debug.Error(fmt.Errorf("live view: %w", err))
			return
		}
		changed, err := detector.Changed(data)
		if err != nil {
			// Not a JPEG: send it and compare the next frame afresh.
			detector.Reset()
		}
		if err != nil || changed {
			fmt.Fprintf(w, "--%s\r\nContent-Type: %s\r\nContent-Length: %d\r\n\r\n", boundary, mime, len(data))
			w.Write(data)
			w.Write([]byte("\r\n"))
			flusher.Flush()
		}

		select {
		case <-ticker.C:
		case <-r.Context().Done():
			return
		}
	}
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func previewWidth(r *http.Request) (int, error) {
	s := r.URL.Query().Get("width")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > maxPreviewWidth {
		return 0, fmt.Errorf("width must be between 0 and %d", maxPreviewWidth)
	}
	return n, nil
}

// httpError maps camera errors to status codes.
func httpError(w http.ResponseWriter, err error) {
	var valErr *gphoto.ValueError
	switch {
	case errors.Is(err, gphoto.ErrKeyNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, gphoto.ErrReadOnly), errors.As(err, &valErr):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, gphoto.ErrNative), errors.Is(err, gphoto.ErrNoDevices):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}
