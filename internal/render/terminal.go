package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/viewmodel"
)

var (
	primary = lipgloss.Color("#2563EB")
	muted   = lipgloss.Color("#6B7280")
	failure = lipgloss.Color("#DC2626")
)

// TerminalOptions tunes the terminal view.
type TerminalOptions struct {
	// Query filters the installed programs.
	Query string
	// Sections restricts the output to these tabs. Empty means all of them.
	Sections []viewmodel.Section
}

type termStyles struct {
	title   lipgloss.Style
	section lipgloss.Style
	key     lipgloss.Style
	note    lipgloss.Style
	failed  lipgloss.Style
}

func newTermStyles(r *lipgloss.Renderer) termStyles {
	return termStyles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#FAFAFA")).Background(primary).Padding(0, 1),
		section: r.NewStyle().Bold(true).Foreground(primary).MarginTop(1),
		key:     r.NewStyle().Foreground(muted).Width(22),
		note:    r.NewStyle().Foreground(muted).Italic(true),
		failed:  r.NewStyle().Foreground(failure),
	}
}

type termWriter struct {
	b      strings.Builder
	styles termStyles
}

func (t *termWriter) title(s string) {
	t.b.WriteString(t.styles.title.Render(s))
	t.b.WriteString("\n")
}

func (t *termWriter) section(s string) {
	t.b.WriteString(t.styles.section.Render(s))
	t.b.WriteString("\n")
}

func (t *termWriter) kv(k, v string) {
	t.b.WriteString(t.styles.key.Render(k))
	t.b.WriteString(v)
	t.b.WriteString("\n")
}

func (t *termWriter) line(s string) {
	t.b.WriteString(s)
	t.b.WriteString("\n")
}

func (t *termWriter) note(s string) {
	t.b.WriteString(t.styles.note.Render(s))
	t.b.WriteString("\n")
}

func (t *termWriter) failed() {
	t.b.WriteString(t.styles.failed.Render(constants.SectionFailedText))
	t.b.WriteString("\n")
}

// Terminal writes a styled text view of vm to w.
// Colors are only emitted when w is a terminal that supports them.
func Terminal(w io.Writer, vm viewmodel.ViewModel, opts TerminalOptions) error {
	t := &termWriter{styles: newTermStyles(lipgloss.NewRenderer(w))}

	t.title("Reporte del Sistema")
	t.kv("Generado", vm.GeneratedAt)
	if vm.CollectorError != "" {
		t.kv("Error del recolector", vm.CollectorError)
	}

	t.section("Resumen")
	if _, failed := vm.Failed(viewmodel.SectionSummary); failed {
		t.failed()
	} else {
		t.kv("Procesador", vm.Summary.Processor)
		t.kv("Memoria RAM", vm.Summary.RAMText)
		t.kv("Almacenamiento", vm.Summary.StorageText)
		t.kv("Tiempo Encendido", vm.Summary.UptimeText)
	}

	for _, s := range selectedSections(opts.Sections) {
		t.section(tabLabels[s])
		if _, failed := vm.Failed(s); failed {
			t.failed()
			continue
		}
		switch s {
		case viewmodel.SectionHardware:
			terminalHardware(t, vm)
		case viewmodel.SectionSoftware:
			terminalSoftware(t, vm, opts.Query)
		case viewmodel.SectionNetwork:
			terminalNetwork(t, vm)
		case viewmodel.SectionSecurity:
			terminalSecurity(t, vm)
		}
	}

	_, err := io.WriteString(w, t.b.String())
	return err
}

func selectedSections(sections []viewmodel.Section) []viewmodel.Section {
	if len(sections) == 0 {
		return viewmodel.Tabs
	}
	var out []viewmodel.Section
	for _, s := range viewmodel.Tabs {
		for _, want := range sections {
			if s == want {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

func terminalHardware(t *termWriter, vm viewmodel.ViewModel) {
	t.kv("Sistema Operativo", vm.System.OS)
	t.kv("Edición Windows", vm.System.Edition)
	t.kv("Arquitectura", vm.System.Arch)
	t.kv("Usuario", vm.System.User)
	t.kv("Dominio", vm.System.Domain)
	t.kv("Procesador", vm.Processor.Model)
	t.kv("Núcleos", fmt.Sprintf("%s físicos, %s lógicos", vm.Processor.PhysicalCores, vm.Processor.LogicalCores))
	t.kv("Uso CPU", vm.Processor.UsagePercent)
	t.kv("RAM", fmt.Sprintf("%s total, %s disponible, %s en uso", vm.Memory.Total, vm.Memory.Available, vm.Memory.UsedPercent))

	switch {
	case vm.HasDiskList():
		for i, d := range vm.Disks {
			t.kv(fmt.Sprintf("Disco %d", i+1), fmt.Sprintf("%s · %s · %s · %s", d.Model, d.Size, d.Type, d.UnitsText))
		}
	case vm.DisksNote != "":
		t.kv("Discos", vm.DisksNote)
	}

	switch {
	case vm.BIOS != nil:
		t.kv("BIOS", fmt.Sprintf("%s %s (%s)", vm.BIOS.Vendor, vm.BIOS.Version, vm.BIOS.Date))
	case vm.BIOSNote != "":
		t.kv("BIOS", vm.BIOSNote)
	}
}

func terminalSoftware(t *termWriter, vm viewmodel.ViewModel, query string) {
	sw := vm.Software
	t.kv("Hora del Sistema", sw.SystemTime)
	t.kv("Tiempo Encendido", sw.UptimeText)
	t.kv("Procesos Activos", sw.ActiveProcessCount)
	t.kv("Token PC", sw.Token)

	switch sw.Programs.Kind {
	case viewmodel.ProgramsList:
		t.kv("Programas", sw.Programs.CountLabel())
		programs := viewmodel.FilterPrograms(sw.Programs.Items, query)
		if strings.TrimSpace(query) != "" {
			t.note(fmt.Sprintf("Mostrando %d de %d para %q", len(programs), len(sw.Programs.Items), query))
		}
		for _, p := range programs {
			t.line("  • " + p)
		}
	case viewmodel.ProgramsText:
		t.kv("Programas", sw.Programs.Text)
	}
}

func terminalNetwork(t *termWriter, vm viewmodel.ViewModel) {
	n := vm.Network
	if !n.Available {
		t.note("No hay información de red disponible")
		if n.Note != "" {
			t.note(n.Note)
		}
		return
	}

	t.kv("Dirección MAC", n.MAC)
	t.kv("Dirección IP", n.IPv4)
	t.kv("Hostname", n.Hostname)
	t.kv("DNS", n.DNS)
	t.kv("Datos Enviados", n.Bandwidth.Sent)
	t.kv("Datos Recibidos", n.Bandwidth.Received)
	if n.ShowConnections() {
		t.kv("Conexiones Activas", fmt.Sprintf("(%d)", len(n.Connections)))
		for _, c := range n.Connections {
			t.line(fmt.Sprintf("  %s %s:%s -> %s:%s (PID %s)", c.State, c.LocalIP, c.LocalPort, c.RemoteIP, c.RemotePort, c.PID))
		}
	}
}

func terminalSecurity(t *termWriter, vm viewmodel.ViewModel) {
	t.kv("Firewall", vm.Security.FirewallStatus)
	if vm.Security.ShowPendingUpdates() {
		t.kv("Actualizaciones", fmt.Sprintf("(%d)", len(vm.Security.PendingUpdates)))
		for _, u := range vm.Security.PendingUpdates {
			t.line("  • " + u)
		}
	}
}
