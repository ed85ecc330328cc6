package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/reporteria/reportviewer/internal/history"
	"github.com/reporteria/reportviewer/internal/server"
	"github.com/reporteria/reportviewer/internal/viewmodel"
	"github.com/stretchr/testify/require"
)

type fakeConfig struct {
	loadErr  error
	watchErr error
	th       viewmodel.Thresholds
}

func (c fakeConfig) Load() error { return c.loadErr }

func (c fakeConfig) Watch(context.Context) (<-chan struct{}, <-chan error, error) {
	if c.watchErr != nil {
		return nil, nil, c.watchErr
	}
	return make(chan struct{}), make(chan error), nil
}

func (c fakeConfig) Thresholds() viewmodel.Thresholds { return c.th }

func defaultStaticConfig() server.StaticConfig {
	return server.StaticConfig{
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   10 * time.Second,
		RequestTimeout: 5 * time.Second,
		MaxHeaderBytes: 1 << 13,
		MaxUploadBytes: 1 << 20,
		ListenHost:     "127.0.0.1",
		ListenPort:     0,
		MetricsHost:    "127.0.0.1",
		MetricsPort:    -1,
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 5, 2, 10, 15, 0, 0, time.UTC)
}

// viewerClient talks to a viewer through httptest without following redirects.
type viewerClient struct {
	t    *testing.T
	ts   *httptest.Server
	http *http.Client
}

func newViewer(t *testing.T, sc server.StaticConfig) viewerClient {
	t.Helper()

	kv, err := history.NewFileKV(t.TempDir())
	require.NoError(t, err, "Setup: could not create history backend")
	store := history.New(kv)
	t.Cleanup(func() { store.Close() })

	s, err := server.New(context.Background(), fakeConfig{th: viewmodel.DefaultThresholds()}, store, sc,
		server.WithRegistry(prometheus.NewRegistry()), server.WithNow(fixedNow))
	require.NoError(t, err, "Setup: could not create server")

	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	return viewerClient{
		t:  t,
		ts: ts,
		http: &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}},
	}
}

func (c viewerClient) do(method, path string, body io.Reader, contentType string) (int, http.Header, string) {
	c.t.Helper()

	req, err := http.NewRequest(method, c.ts.URL+path, body)
	require.NoError(c.t, err, "Setup: could not create request")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	resp, err := c.http.Do(req)
	require.NoError(c.t, err, "Request should not fail")
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err, "Response body should be readable")
	return resp.StatusCode, resp.Header, string(b)
}

func (c viewerClient) page() string {
	c.t.Helper()

	code, _, body := c.do(http.MethodGet, "/", nil, "")
	require.Equal(c.t, http.StatusOK, code, "Page should be served")
	return body
}

func (c viewerClient) post(path string) int {
	c.t.Helper()

	code, _, _ := c.do(http.MethodPost, path, nil, "")
	return code
}

// upload posts content as the report field; an empty field name sends a form without it.
func (c viewerClient) upload(field, name string, content []byte) int {
	c.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, name)
		require.NoError(c.t, err, "Setup: could not create form file")
		_, err = fw.Write(content)
		require.NoError(c.t, err, "Setup: could not write form file")
	}
	require.NoError(c.t, mw.Close(), "Setup: could not close multipart writer")

	code, header, _ := c.do(http.MethodPost, "/load", &buf, mw.FormDataContentType())
	if code == http.StatusSeeOther {
		require.Equal(c.t, "/", header.Get("Location"), "Upload should redirect to the page")
	}
	return code
}

func fixture(t *testing.T) []byte {
	t.Helper()

	b, err := os.ReadFile(filepath.Join("testdata", "full.json"))
	require.NoError(t, err, "Setup: could not read report fixture")
	return b
}

func TestPageWithoutReport(t *testing.T) {
	t.Parallel()

	c := newViewer(t, defaultStaticConfig())
	got := c.page()

	require.Contains(t, got, "Carga un reporte JSON para ver esta sección")
	require.Contains(t, got, "No hay reportes en el historial")
	require.Contains(t, got, `action="/load"`)
}

func TestLoad(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		field     string
		content   string
		maxUpload int

		want    []string
		notWant []string
		history int
	}{
		"Valid report": {
			want:    []string{"informe.json", "Intel Core i5-8250U (8th Gen)", `class="notification success"`, "Reporte cargado: informe.json"},
			notWant: []string{"Uso de RAM elevado"},
			history: 1,
		},
		"RAM alert": {
			content: `{"RAM": {"Uso": "85%"}}`,
			want:    []string{`class="notification warning"`, "Uso de RAM elevado: 85%"},
			history: 1,
		},
		"Collector error alert": {
			content: `{"Error General": "Fallo crítico"}`,
			want:    []string{`class="notification error"`, "Fallo crítico"},
			history: 1,
		},
		"Malformed JSON": {
			content: `{"Procesador": `,
			want:    []string{`class="notification error"`, "Error al cargar el reporte", "Carga un reporte JSON para ver esta sección"},
			notWant: []string{"Reporte cargado"},
		},
		"Missing file field": {
			field:   "other",
			want:    []string{"No se pudo leer el archivo"},
			notWant: []string{"Reporte cargado"},
		},
		"File too large": {
			maxUpload: 64,
			want:      []string{"No se pudo leer el archivo"},
			notWant:   []string{"Reporte cargado"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			sc := defaultStaticConfig()
			if tc.maxUpload != 0 {
				sc.MaxUploadBytes = tc.maxUpload
			}
			c := newViewer(t, sc)

			if tc.field == "" {
				tc.field = "report"
			}
			content := []byte(tc.content)
			if tc.content == "" {
				content = fixture(t)
			}

			require.Equal(t, http.StatusSeeOther, c.upload(tc.field, "informe.json", content), "Load should redirect")
			got := c.page()
			for _, w := range tc.want {
				require.Contains(t, got, w, "Page should contain %q", w)
			}
			for _, nw := range tc.notWant {
				require.NotContains(t, got, nw, "Page should not contain %q", nw)
			}

			_, _, body := c.do(http.MethodGet, "/history", nil, "")
			var items []map[string]any
			require.NoError(t, json.Unmarshal([]byte(body), &items), "History should be a JSON list")
			require.Len(t, items, tc.history, "History should only record valid reports")
		})
	}
}

func TestLoadKeepsPreviousReportOnError(t *testing.T) {
	t.Parallel()

	c := newViewer(t, defaultStaticConfig())
	require.Equal(t, http.StatusSeeOther, c.upload("report", "bueno.json", fixture(t)))
	_ = c.page()

	require.Equal(t, http.StatusSeeOther, c.upload("report", "malo.json", []byte("no es json")))
	got := c.page()

	require.Contains(t, got, "Error al cargar el reporte")
	require.Contains(t, got, "bueno.json", "The previous report should stay displayed")
	require.Contains(t, got, "Samsung SSD 860")
}

func TestNotificationsAreShownOnce(t *testing.T) {
	t.Parallel()

	c := newViewer(t, defaultStaticConfig())
	c.upload("report", "informe.json", fixture(t))

	require.Contains(t, c.page(), "Reporte cargado")
	require.NotContains(t, c.page(), "Reporte cargado", "Notifications should only be shown once")
}

func TestRefresh(t *testing.T) {
	t.Parallel()

	c := newViewer(t, defaultStaticConfig())

	require.Equal(t, http.StatusSeeOther, c.post("/refresh"))
	require.Contains(t, c.page(), "No hay reporte cargado para actualizar")

	c.upload("report", "informe.json", []byte(`{"RAM": {"Uso": "90%"}}`))
	_ = c.page()

	require.Equal(t, http.StatusSeeOther, c.post("/refresh"))
	got := c.page()
	require.Contains(t, got, "Reporte actualizado")
	require.Contains(t, got, "Uso de RAM elevado: 90%", "Alerts should be evaluated again on refresh")
}

func TestTheme(t *testing.T) {
	t.Parallel()

	c := newViewer(t, defaultStaticConfig())
	require.Contains(t, c.page(), `data-theme="light"`)

	require.Equal(t, http.StatusSeeOther, c.post("/theme"))
	require.Contains(t, c.page(), `data-theme="dark"`)

	c.post("/theme")
	require.Contains(t, c.page(), `data-theme="light"`)
}

func TestPageQuery(t *testing.T) {
	t.Parallel()

	c := newViewer(t, defaultStaticConfig())
	c.upload("report", "informe.json", fixture(t))

	code, _, got := c.do(http.MethodGet, "/?tab=software&q=codigo", nil, "")
	require.Equal(t, http.StatusOK, code)
	require.Contains(t, got, `id="software-tab" class="tab-content active"`)
	require.Contains(t, got, "Mostrando 1 de 3")
}

func TestHistory(t *testing.T) {
	t.Parallel()

	c := newViewer(t, defaultStaticConfig())
	c.upload("report", "uno.json", []byte(`{"Procesador": "Primero"}`))
	c.upload("report", "dos.json", []byte(`{"Procesador": "Segundo"}`))
	require.Contains(t, c.page(), "Segundo")

	_, header, body := c.do(http.MethodGet, "/history", nil, "")
	require.Equal(t, "application/json", header.Get("Content-Type"))
	var items []struct {
		Index int    `json:"index"`
		Name  string `json:"name"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &items))
	require.Len(t, items, 2)
	require.Equal(t, "dos.json", items[0].Name, "Newest report should come first")
	require.Equal(t, "uno.json", items[1].Name)

	tests := map[string]struct {
		path string

		wantCode int
	}{
		"Load oldest entry":     {path: "/history/1", wantCode: http.StatusSeeOther},
		"Error on out of range": {path: "/history/5", wantCode: http.StatusNotFound},
		"Error on negative":     {path: "/history/-1", wantCode: http.StatusNotFound},
		"Error on non numeric":  {path: "/history/abc", wantCode: http.StatusBadRequest},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.wantCode, c.post(tc.path))
		})
	}

	got := c.page()
	require.Contains(t, got, "Primero", "The history entry should be displayed")
	require.Contains(t, got, "uno.json")

	_, _, body = c.do(http.MethodGet, "/history", nil, "")
	require.NoError(t, json.Unmarshal([]byte(body), &items))
	require.Len(t, items, 2, "Loading from history should not add an entry")
}

func TestExports(t *testing.T) {
	t.Parallel()

	c := newViewer(t, defaultStaticConfig())

	for _, path := range []string{"/export.pdf", "/viewmodel.json"} {
		code, _, _ := c.do(http.MethodGet, path, nil, "")
		require.Equal(t, http.StatusNotFound, code, "%s should not be found without a report", path)
	}

	c.upload("report", "informe.json", fixture(t))

	code, header, body := c.do(http.MethodGet, "/export.pdf", nil, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "application/pdf", header.Get("Content-Type"))
	require.Contains(t, header.Get("Content-Disposition"), "attachment")
	require.True(t, bytes.HasPrefix([]byte(body), []byte("%PDF-")), "Export should be a PDF document")

	code, header, body = c.do(http.MethodGet, "/viewmodel.json", nil, "")
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "application/json", header.Get("Content-Type"))
	var vm viewmodel.ViewModel
	require.NoError(t, json.Unmarshal([]byte(body), &vm), "View model should be valid JSON")
	require.Equal(t, "Intel Core i5-8250U (8th Gen)", vm.Summary.Processor)
	require.Len(t, vm.Disks, 2)
}

func TestMiscRoutes(t *testing.T) {
	t.Parallel()

	c := newViewer(t, defaultStaticConfig())

	tests := map[string]struct {
		method string
		path   string

		wantCode int
		wantBody string
	}{
		"Version":                          {method: http.MethodGet, path: "/version", wantCode: http.StatusOK, wantBody: `{"version":"Dev"}`},
		"Unknown path":                     {method: http.MethodGet, path: "/nope", wantCode: http.StatusNotFound},
		"Wrong method":                     {method: http.MethodGet, path: "/load", wantCode: http.StatusMethodNotAllowed},
		"Notifications have no route":      {method: http.MethodDelete, path: "/notifications/abc", wantCode: http.StatusNotFound},
		"Export needs GET, not POST":       {method: http.MethodPost, path: "/export.pdf", wantCode: http.StatusMethodNotAllowed},
		"History listing is GET":           {method: http.MethodGet, path: "/history", wantCode: http.StatusOK, wantBody: "[]"},
		"History entry needs POST":         {method: http.MethodGet, path: "/history/0", wantCode: http.StatusMethodNotAllowed},
		"View model without report is 404": {method: http.MethodGet, path: "/viewmodel.json", wantCode: http.StatusNotFound},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			code, header, body := c.do(tc.method, tc.path, nil, "")
			require.Equal(t, tc.wantCode, code)
			if tc.wantBody != "" {
				require.Equal(t, tc.wantBody, body)
			}
			if code == http.StatusOK {
				require.NotEmpty(t, header.Get("X-Request-ID"), "Responses should carry a request id")
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	kv, err := history.NewFileKV(t.TempDir())
	require.NoError(t, err)
	store := history.New(kv)
	defer store.Close()

	_, err = server.New(context.Background(), fakeConfig{loadErr: errors.New("boom")}, store, defaultStaticConfig())
	require.Error(t, err, "New should fail when the configuration cannot be loaded")
}

func TestRunAndQuit(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		force    bool
		metrics  bool
		watchErr error

		wantErr bool
	}{
		"Graceful quit":              {},
		"Forced quit":                {force: true},
		"Graceful quit with metrics": {metrics: true},
		"Error when watcher fails":   {watchErr: errors.New("no watcher"), wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			kv, err := history.NewFileKV(t.TempDir())
			require.NoError(t, err)
			store := history.New(kv)
			defer store.Close()

			sc := defaultStaticConfig()
			if tc.metrics {
				sc.MetricsPort = 0
			}
			s, err := server.New(context.Background(), fakeConfig{th: viewmodel.DefaultThresholds(), watchErr: tc.watchErr}, store, sc,
				server.WithRegistry(prometheus.NewRegistry()))
			require.NoError(t, err, "Setup: New should not fail")

			runErr := make(chan error, 1)
			go func() { runErr <- s.Run() }()

			if tc.wantErr {
				select {
				case err := <-runErr:
					require.Error(t, err, "Run should fail")
				case <-time.After(5 * time.Second):
					require.Fail(t, "Run did not return")
				}
				return
			}

			require.Eventually(t, func() bool { return s.Addr() != "" }, 5*time.Second, 10*time.Millisecond, "Server should start listening")

			resp, err := http.Get("http://" + s.Addr() + "/version")
			require.NoError(t, err, "Version endpoint should answer")
			resp.Body.Close()
			require.Equal(t, http.StatusOK, resp.StatusCode)

			if tc.metrics {
				require.Eventually(t, func() bool { return s.MetricsAddr() != "" }, 5*time.Second, 10*time.Millisecond, "Metrics server should start")
				resp, err := http.Get("http://" + s.MetricsAddr() + "/metrics")
				require.NoError(t, err, "Metrics endpoint should answer")
				b, err := io.ReadAll(resp.Body)
				resp.Body.Close()
				require.NoError(t, err)
				require.Contains(t, string(b), `http_requests_total{code="200",handler="version",method="get",path="/version"} 1`)
			} else {
				require.Empty(t, s.MetricsAddr(), "Metrics should be disabled")
			}

			s.Quit(tc.force)

			select {
			case err := <-runErr:
				if !tc.force {
					require.NoError(t, err, "Run should return cleanly after a graceful quit")
				}
			case <-time.After(5 * time.Second):
				require.Fail(t, "Run did not return after Quit")
			}

			require.Error(t, s.Run(), "Run should fail once the server has quit")
		})
	}
}
