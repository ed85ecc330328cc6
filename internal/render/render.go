// Package render turns view models into HTML pages and terminal text.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"log/slog"

	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/notify"
	"github.com/reporteria/reportviewer/internal/viewmodel"
	"github.com/ubuntu/decorate"
)

//go:embed templates/*.gohtml
var templateFS embed.FS

// DefaultTitle is the page title used when PageData has none.
const DefaultTitle = "Visor de Reportes del Sistema"

var tabLabels = map[viewmodel.Section]string{
	viewmodel.SectionHardware: "Hardware",
	viewmodel.SectionSoftware: "Software",
	viewmodel.SectionNetwork:  "Red",
	viewmodel.SectionSecurity: "Seguridad",
}

// PageData is everything shown on a page.
type PageData struct {
	Title    string
	FileName string
	FileDate string

	// VM is the current report, or nil when none is loaded.
	VM *viewmodel.ViewModel
	// Dark selects the dark theme.
	Dark bool
	// ActiveTab is the tab shown first. Unknown or empty values select the hardware tab.
	ActiveTab viewmodel.Section
	// Query filters the installed programs.
	Query string

	// Interactive adds the controls that talk to the web viewer: upload, refresh, theme, search and history.
	Interactive   bool
	History       []HistoryEntry
	Notifications []notify.Notification
	Version       string
}

// HistoryEntry is one line of the history list.
type HistoryEntry struct {
	Index int
	Name  string
	Date  string
}

type tabView struct {
	ID     viewmodel.Section
	Label  string
	Active bool
	Body   template.HTML
}

type pageView struct {
	PageData

	HasReport bool
	Summary   template.HTML
	Chart     chartView
	Tabs      []tabView
}

type sectionData struct {
	VM          *viewmodel.ViewModel
	Query       string
	Programs    []string
	Interactive bool
}

// Renderer renders pages from a parsed template set.
type Renderer struct {
	tmpl *template.Template
}

type options struct {
	// Private members exported for tests.
	overrides map[string]string
}

// Options represents an optional function to override Renderer default values.
type Options func(*options)

// New parses the page templates and returns a Renderer.
func New(args ...Options) (r *Renderer, err error) {
	defer decorate.OnError(&err, "could not load page templates")

	opts := options{}
	for _, opt := range args {
		opt(&opts)
	}

	tmpl, err := template.New("").Funcs(chartFuncs).ParseFS(templateFS, "templates/*.gohtml")
	if err != nil {
		return nil, err
	}
	for name, text := range opts.overrides {
		if _, err := tmpl.New(name).Parse(text); err != nil {
			return nil, err
		}
	}

	return &Renderer{tmpl: tmpl}, nil
}

var defaultRenderer = template.Must(template.New("").Funcs(chartFuncs).ParseFS(templateFS, "templates/*.gohtml"))

// Page writes the page for data to w with the embedded templates.
func Page(w io.Writer, data PageData) error {
	return (&Renderer{tmpl: defaultRenderer}).Page(w, data)
}

// Page writes the page for data to w.
//
// The summary and each tab are rendered on their own: a section whose view model could not be built,
// or whose template fails, shows constants.SectionFailedText while the rest of the page renders normally.
func (r *Renderer) Page(w io.Writer, data PageData) (err error) {
	defer decorate.OnError(&err, "could not render page")

	if data.Title == "" {
		data.Title = DefaultTitle
	}
	if _, ok := tabLabels[data.ActiveTab]; !ok {
		data.ActiveTab = viewmodel.SectionHardware
	}

	view := pageView{PageData: data, HasReport: data.VM != nil}

	vm := data.VM
	if vm == nil {
		empty := viewmodel.Build(nil)
		vm = &empty
	}
	sd := sectionData{VM: vm, Query: data.Query, Interactive: data.Interactive}
	if vm.Software.Programs.Kind == viewmodel.ProgramsList {
		sd.Programs = viewmodel.FilterPrograms(vm.Software.Programs.Items, data.Query)
	}

	view.Summary = r.section(viewmodel.SectionSummary, "summary", sd)
	if view.HasReport {
		view.Chart = newChartView(viewmodel.ChartSummary(*vm))
	}

	for _, s := range viewmodel.Tabs {
		tab := tabView{ID: s, Label: tabLabels[s], Active: s == data.ActiveTab}
		if view.HasReport {
			tab.Body = r.section(s, string(s), sd)
		} else {
			tab.Body = r.exec("empty", nil)
		}
		view.Tabs = append(view.Tabs, tab)
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "page", view); err != nil {
		return err
	}
	_, err = buf.WriteTo(w)
	return err
}

// section renders one section in isolation, falling back to the failure text.
func (r *Renderer) section(s viewmodel.Section, name string, sd sectionData) template.HTML {
	if reason, failed := sd.VM.Failed(s); failed {
		slog.Warn("Section could not be built, rendering failure notice", "section", s, "reason", reason)
		return r.failed()
	}

	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, sd); err != nil {
		slog.Error("Could not render section", "section", s, "error", err)
		return r.failed()
	}
	// Already escaped by html/template.
	return template.HTML(buf.String())
}

func (r *Renderer) failed() template.HTML {
	return r.exec("failed", constants.SectionFailedText)
}

func (r *Renderer) exec(name string, data any) template.HTML {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		slog.Error("Could not render fragment", "template", name, "error", err)
		return template.HTML(template.HTMLEscapeString(fmt.Sprint(data)))
	}
	// Already escaped by html/template.
	return template.HTML(buf.String())
}
