package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/history"
	"github.com/reporteria/reportviewer/internal/notify"
	"github.com/reporteria/reportviewer/internal/pdfexport"
	"github.com/reporteria/reportviewer/internal/rawreport"
	"github.com/reporteria/reportviewer/internal/render"
	"github.com/reporteria/reportviewer/internal/server/config"
	"github.com/reporteria/reportviewer/internal/viewmodel"
)

// ErrNoReport is returned when an action needs a report and none is loaded.
var ErrNoReport = errors.New("no report loaded")

const dateLayout = "2006-01-02 15:04"

type historyStore interface {
	Add(name string, data []byte) error
	List() ([]history.Record, error)
	Get(i int) (history.Record, error)
}

// viewer is the state of the single page shown to every client.
type viewer struct {
	cm             config.Provider
	history        historyStore
	maxUploadBytes int64
	now            func() time.Time

	mu       sync.Mutex
	report   rawreport.Report
	loaded   bool
	fileName string
	fileDate string
	dark     bool

	queue notify.Queue
}

func newViewer(cm config.Provider, store historyStore, maxUploadBytes int64, now func() time.Time) *viewer {
	return &viewer{
		cm:             cm,
		history:        store,
		maxUploadBytes: maxUploadBytes,
		now:            now,
	}
}

type requestIDKey struct{}

// withRequestID tags each request with a fresh ID, available to handlers through requestID.
func withRequestID(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		slog.Debug("Request recv'd", "req_id", reqID, "method", r.Method, "path", r.URL.Path)
		w.Header().Set("X-Request-ID", reqID)
		h(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, reqID)))
	}
}

func requestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey{}).(string)
	return id
}

// snapshot returns the view model of the current report, rebuilt from scratch.
func (v *viewer) snapshot() (viewmodel.ViewModel, error) {
	v.mu.Lock()
	report, loaded := v.report, v.loaded
	v.mu.Unlock()

	if !loaded {
		return viewmodel.ViewModel{}, ErrNoReport
	}
	return viewmodel.Build(report), nil
}

func (v *viewer) page(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	data := render.PageData{
		ActiveTab:   viewmodel.Section(r.URL.Query().Get("tab")),
		Query:       r.URL.Query().Get("q"),
		Interactive: true,
		Version:     constants.Version,
	}
	if vm, err := v.snapshot(); err == nil {
		data.VM = &vm
	}

	v.mu.Lock()
	data.FileName = v.fileName
	data.FileDate = v.fileDate
	data.Dark = v.dark
	v.mu.Unlock()

	records, err := v.history.List()
	if err != nil {
		slog.Warn("Could not list history", "req_id", reqID, "err", err)
	}
	for i, rec := range records {
		data.History = append(data.History, render.HistoryEntry{Index: i, Name: rec.Name, Date: rec.Date.Local().Format(dateLayout)})
	}
	data.Notifications = v.queue.Drain()

	var buf bytes.Buffer
	if err := render.Page(&buf, data); err != nil {
		slog.Error("Could not render page", "req_id", reqID, "err", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("Could not write page", "req_id", reqID, "err", err)
	}
}

// load replaces the current report with the uploaded file.
func (v *viewer) load(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)
	defer redirectHome(w, r)

	r.Body = http.MaxBytesReader(w, r.Body, v.maxUploadBytes)
	file, header, err := r.FormFile("report")
	if err != nil {
		slog.Warn("Could not read uploaded report", "req_id", reqID, "err", err)
		v.queue.Push(notify.New(notify.Error, fmt.Sprintf("No se pudo leer el archivo: %v", err)))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Warn("Could not read uploaded report", "req_id", reqID, "file", header.Filename, "err", err)
		v.queue.Push(notify.New(notify.Error, fmt.Sprintf("No se pudo leer el archivo: %v", err)))
		return
	}

	if !v.show(reqID, header.Filename, v.now(), data) {
		return
	}
	if err := v.history.Add(header.Filename, data); err != nil {
		slog.Error("Could not add report to history", "req_id", reqID, "file", header.Filename, "err", err)
		v.queue.Push(notify.New(notify.Warning, "No se pudo guardar el reporte en el historial"))
	}
}

// show parses data and makes it the current report, reporting whether it could.
// On failure the previous report stays current.
func (v *viewer) show(reqID, name string, date time.Time, data []byte) bool {
	report, err := rawreport.Parse(data)
	if err != nil {
		slog.Warn("Could not parse report", "req_id", reqID, "file", name, "err", err)
		v.queue.Push(notify.New(notify.Error, fmt.Sprintf("Error al cargar el reporte: %v", err)))
		return false
	}
	vm := viewmodel.Build(report)

	v.mu.Lock()
	v.report = report
	v.loaded = true
	v.fileName = name
	v.fileDate = date.Local().Format(dateLayout)
	v.mu.Unlock()

	slog.Info("Report loaded", "req_id", reqID, "file", name)
	v.queue.Push(notify.New(notify.Success, fmt.Sprintf("Reporte cargado: %s", name)))
	v.queue.Push(notify.FromAlerts(viewmodel.EvaluateAlerts(vm, v.cm.Thresholds()))...)
	return true
}

func (v *viewer) refresh(w http.ResponseWriter, r *http.Request) {
	defer redirectHome(w, r)

	vm, err := v.snapshot()
	if errors.Is(err, ErrNoReport) {
		v.queue.Push(notify.New(notify.Warning, "No hay reporte cargado para actualizar"))
		return
	}
	slog.Debug("Report refreshed", "req_id", requestID(r))
	v.queue.Push(notify.New(notify.Info, "Reporte actualizado"))
	v.queue.Push(notify.FromAlerts(viewmodel.EvaluateAlerts(vm, v.cm.Thresholds()))...)
}

func (v *viewer) toggleTheme(w http.ResponseWriter, r *http.Request) {
	v.mu.Lock()
	v.dark = !v.dark
	v.mu.Unlock()

	redirectHome(w, r)
}

type historyItem struct {
	Index int       `json:"index"`
	Date  time.Time `json:"date"`
	Name  string    `json:"name"`
}

func (v *viewer) listHistory(w http.ResponseWriter, r *http.Request) {
	records, err := v.history.List()
	if err != nil {
		slog.Error("Could not list history", "req_id", requestID(r), "err", err)
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}

	items := make([]historyItem, 0, len(records))
	for i, rec := range records {
		items = append(items, historyItem{Index: i, Date: rec.Date, Name: rec.Name})
	}
	writeJSON(w, r, items)
}

// loadHistory makes a history entry the current report. The history itself is left untouched.
func (v *viewer) loadHistory(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	i, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		http.Error(w, "Invalid history index", http.StatusBadRequest)
		return
	}

	rec, err := v.history.Get(i)
	if errors.Is(err, history.ErrOutOfRange) {
		http.Error(w, "History entry not found", http.StatusNotFound)
		return
	}
	if err != nil {
		slog.Error("Could not read history", "req_id", reqID, "index", i, "err", err)
		http.Error(w, "Failed to read history", http.StatusInternalServerError)
		return
	}

	v.show(reqID, rec.Name, rec.Date, rec.Data)
	redirectHome(w, r)
}

func (v *viewer) exportPDF(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	vm, err := v.snapshot()
	if err != nil {
		http.Error(w, "No report loaded", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := pdfexport.Write(&buf, vm, pdfexport.Options{Now: v.now}); err != nil {
		slog.Error("Could not export PDF", "req_id", reqID, "err", err)
		http.Error(w, "Failed to export PDF", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="reporte.pdf"`)
	if _, err := buf.WriteTo(w); err != nil {
		slog.Warn("Could not write PDF", "req_id", reqID, "err", err)
	}
}

func (v *viewer) viewModelJSON(w http.ResponseWriter, r *http.Request) {
	vm, err := v.snapshot()
	if err != nil {
		http.Error(w, "No report loaded", http.StatusNotFound)
		return
	}
	writeJSON(w, r, vm)
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, map[string]string{"version": constants.Version})
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		slog.Error("Could not encode response", "req_id", requestID(r), "err", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(b); err != nil {
		slog.Warn("Could not write response", "req_id", requestID(r), "err", err)
	}
}

func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
