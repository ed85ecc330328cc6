package pdfexport

import (
	"fmt"

	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/viewmodel"
)

// Line is one "key: value" line of a section. Lines without a key are list items.
type Line struct {
	Key   string
	Value string
}

// Section is a titled group of lines.
type Section struct {
	Title string
	Lines []Line
}

// Identifier returns the name identifying the machine: its hostname, else its domain, else its token.
func Identifier(vm viewmodel.ViewModel) string {
	for _, id := range []string{vm.Network.Hostname, vm.System.Domain, vm.Software.Token} {
		if id != "" && id != constants.Placeholder {
			return id
		}
	}
	return constants.Placeholder
}

// Sections returns the content of the document, in order.
func Sections(vm viewmodel.ViewModel) []Section {
	failed := func(s viewmodel.Section) bool {
		_, f := vm.Failed(s)
		return f
	}
	failedLines := []Line{{Value: constants.SectionFailedText}}

	var out []Section

	resumen := Section{Title: "Resumen", Lines: []Line{
		{"Procesador", vm.Summary.Processor},
		{"Memoria RAM", vm.Summary.RAMText},
		{"Almacenamiento", vm.Summary.StorageText},
		{"Tiempo Encendido", vm.Summary.UptimeText},
	}}
	if failed(viewmodel.SectionSummary) {
		resumen.Lines = failedLines
	}
	if vm.CollectorError != "" {
		resumen.Lines = append(resumen.Lines, Line{"Error del recolector", vm.CollectorError})
	}
	out = append(out, resumen)

	if failed(viewmodel.SectionHardware) {
		out = append(out, Section{Title: "Sistema", Lines: failedLines})
	} else {
		out = append(out, hardwareSections(vm)...)
	}

	if failed(viewmodel.SectionSoftware) {
		out = append(out, Section{Title: "Software", Lines: failedLines})
	} else {
		out = append(out, softwareSections(vm)...)
	}

	red := Section{Title: "Red", Lines: networkLines(vm.Network)}
	if failed(viewmodel.SectionNetwork) {
		red.Lines = failedLines
	}
	out = append(out, red)

	seguridad := Section{Title: "Seguridad", Lines: []Line{{"Firewall", vm.Security.FirewallStatus}}}
	if vm.Security.ShowPendingUpdates() {
		seguridad.Lines = append(seguridad.Lines, Line{"Actualizaciones Pendientes", fmt.Sprintf("(%d)", len(vm.Security.PendingUpdates))})
		for _, u := range vm.Security.PendingUpdates {
			seguridad.Lines = append(seguridad.Lines, Line{Value: u})
		}
	}
	if failed(viewmodel.SectionSecurity) {
		seguridad.Lines = failedLines
	}
	out = append(out, seguridad)

	return out
}

func hardwareSections(vm viewmodel.ViewModel) []Section {
	sections := []Section{
		{Title: "Sistema", Lines: []Line{
			{"Sistema Operativo", vm.System.OS},
			{"Edición Windows", vm.System.Edition},
			{"Arquitectura", vm.System.Arch},
			{"Usuario", vm.System.User},
			{"Dominio", vm.System.Domain},
		}},
		{Title: "Procesador", Lines: []Line{
			{"Modelo", vm.Processor.Model},
			{"Núcleos Físicos", vm.Processor.PhysicalCores},
			{"Núcleos Lógicos", vm.Processor.LogicalCores},
			{"Uso CPU", vm.Processor.UsagePercent},
		}},
		{Title: "Memoria", Lines: []Line{
			{"Total", vm.Memory.Total},
			{"Disponible", vm.Memory.Available},
			{"Usada", vm.Memory.Used},
			{"Uso", vm.Memory.UsedPercent},
		}},
	}

	discos := Section{Title: "Discos"}
	switch {
	case len(vm.Disks) > 0:
		for i, d := range vm.Disks {
			discos.Lines = append(discos.Lines, Line{
				Key:   fmt.Sprintf("Disco %d", i+1),
				Value: fmt.Sprintf("%s, %s, %s, unidades %s, serial %s", d.Model, d.Size, d.Type, d.UnitsText, d.Serial),
			})
		}
	case vm.DisksNote != "":
		discos.Lines = []Line{{Value: vm.DisksNote}}
	default:
		discos.Lines = []Line{{Value: constants.Placeholder}}
	}
	sections = append(sections, discos)

	bios := Section{Title: "BIOS"}
	switch {
	case vm.BIOS != nil:
		bios.Lines = []Line{
			{"Fabricante", vm.BIOS.Vendor},
			{"Versión", vm.BIOS.Version},
			{"Serial", vm.BIOS.Serial},
			{"Fecha", vm.BIOS.Date},
		}
	case vm.BIOSNote != "":
		bios.Lines = []Line{{Value: vm.BIOSNote}}
	default:
		bios.Lines = []Line{{Value: constants.Placeholder}}
	}
	return append(sections, bios)
}

func softwareSections(vm viewmodel.ViewModel) []Section {
	sw := vm.Software
	software := Section{Title: "Software", Lines: []Line{
		{"Hora del Sistema", sw.SystemTime},
		{"Tiempo Encendido", sw.UptimeText},
		{"Procesos Activos", sw.ActiveProcessCount},
		{"Token PC", sw.Token},
	}}

	programas := Section{Title: "Programas"}
	switch sw.Programs.Kind {
	case viewmodel.ProgramsList:
		programas.Title = "Programas " + sw.Programs.CountLabel()
		for _, p := range sw.Programs.Items {
			programas.Lines = append(programas.Lines, Line{Value: p})
		}
	case viewmodel.ProgramsText:
		programas.Lines = []Line{{Value: sw.Programs.Text}}
	default:
		programas.Lines = []Line{{Value: constants.Placeholder}}
	}

	return []Section{software, programas}
}

func networkLines(n viewmodel.Network) []Line {
	if !n.Available {
		lines := []Line{{Value: "No hay información de red disponible"}}
		if n.Note != "" {
			lines = append(lines, Line{Value: n.Note})
		}
		return lines
	}

	lines := []Line{
		{"Dirección MAC", n.MAC},
		{"Dirección IP", n.IPv4},
		{"Hostname", n.Hostname},
		{"DNS", n.DNS},
		{"Datos Enviados", n.Bandwidth.Sent},
		{"Datos Recibidos", n.Bandwidth.Received},
	}
	if n.ShowConnections() {
		lines = append(lines, Line{"Conexiones Activas", fmt.Sprintf("(%d)", len(n.Connections))})
		for _, c := range n.Connections {
			lines = append(lines, Line{Value: fmt.Sprintf("%s %s:%s -> %s:%s", c.State, c.LocalIP, c.LocalPort, c.RemoteIP, c.RemotePort)})
		}
	}
	return lines
}
