package viewmodel

import (
	"fmt"
	"strings"

	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/measure"
	"github.com/reporteria/reportviewer/internal/rawreport"
)

func buildSummary(raw rawreport.Report) Summary {
	s := Summary{
		Processor:   raw.Field("Procesador").Display(),
		RAMText:     constants.Placeholder,
		StorageText: constants.Placeholder,
		UptimeText:  raw.Field("Tiempo Encendido").Display(),
	}

	if ram, ok := raw.Field("RAM").Object(); ok {
		s.RAMText = fmt.Sprintf("%s (%s usado)", ram.Field("Total").Display(), ram.Field("Uso").Display())
	}

	if disks, ok := raw.Field("Discos").Array(); ok {
		for _, d := range disks {
			s.TotalStorageGB += measure.LeadingFloat(d.Field("Tamaño").Display())
		}
		s.StorageText = fmt.Sprintf("%.1f GB total", s.TotalStorageGB)
	}

	return s
}

func buildSystemInfo(raw rawreport.Report) System {
	return System{
		OS:      raw.Field("Sistema Operativo").Display(),
		Edition: raw.Field("Edición Windows").Display(),
		Arch:    raw.Field("Arquitectura").Display(),
		User:    raw.Field("Usuario").Display(),
		Domain:  raw.Field("Dominio").Display(),
	}
}

func buildProcessorDetail(raw rawreport.Report) Processor {
	return Processor{
		Model:         raw.Field("Procesador").Display(),
		PhysicalCores: raw.Field("Núcleos Físicos").Display(),
		LogicalCores:  raw.Field("Núcleos Lógicos").Display(),
		UsagePercent:  raw.Field("Uso CPU").Display(),
	}
}

func buildMemory(raw rawreport.Report) Memory {
	ram := raw.Field("RAM")
	return Memory{
		Total:       ram.Field("Total").Display(),
		Available:   ram.Field("Disponible").Display(),
		Used:        ram.Field("Usada").Display(),
		UsedPercent: ram.Field("Uso").Display(),
	}
}

type disksResult struct {
	disks []Disk
	note  string
}

func buildDisks(raw rawreport.Report) disksResult {
	v := raw.Field("Discos")
	elems, ok := v.Array()
	if !ok {
		return disksResult{note: v.DisplayOr("")}
	}

	disks := make([]Disk, 0, len(elems))
	for _, e := range elems {
		disks = append(disks, buildDisk(e))
	}
	return disksResult{disks: disks}
}

func buildDisk(v rawreport.Value) Disk {
	size := v.Field("Tamaño").Display()
	d := Disk{
		Model:      v.Field("Modelo").Display(),
		Size:       size,
		SizeGB:     measure.LeadingFloat(size),
		Type:       v.Field("Tipo").Display(),
		Serial:     v.Field("Serial").Display(),
		FileSystem: v.Field("Sistema Archivos").Display(),
		Used:       v.Field("Usado").Display(),
		Free:       v.Field("Libre").Display(),
	}

	units := v.Field("Unidades")
	if !units.Present() {
		// Older collectors list one partition per entry, keyed by its mount point.
		units = v.Field("Unidad")
	}
	d.Units = unitList(units)
	d.UnitsText = constants.Placeholder
	if len(d.Units) > 0 {
		d.UnitsText = strings.Join(d.Units, ", ")
	}

	return d
}

func unitList(v rawreport.Value) []string {
	if elems, ok := v.Array(); ok {
		var units []string
		for _, e := range elems {
			if s := e.DisplayOr(""); s != "" {
				units = append(units, s)
			}
		}
		return units
	}
	if s := v.DisplayOr(""); s != "" {
		return []string{s}
	}
	return nil
}

type biosResult struct {
	bios *BIOS
	note string
}

func buildBios(raw rawreport.Report) biosResult {
	v := raw.Field("BIOS")
	if _, ok := v.Object(); !ok {
		return biosResult{note: v.DisplayOr("")}
	}
	return biosResult{bios: &BIOS{
		Vendor:  v.Field("Fabricante").Display(),
		Version: v.Field("Versión").Display(),
		Serial:  v.Field("Serial").Display(),
		Date:    v.Field("Fecha").Display(),
	}}
}

func buildSoftware(raw rawreport.Report) Software {
	systemTime := raw.Field("Hora Sistema")
	if !systemTime.Present() {
		systemTime = raw.Field("Timestamp")
	}

	return Software{
		SystemTime:         systemTime.Display(),
		UptimeText:         raw.Field("Tiempo Encendido").Display(),
		ActiveProcessCount: raw.Field("Procesos Activos").Display(),
		Token:              raw.Field("Token PC").Display(),
		Programs:           buildPrograms(raw.Field("Programas Instalados")),
	}
}

func buildPrograms(v rawreport.Value) Programs {
	if elems, ok := v.Array(); ok {
		items := make([]string, 0, len(elems))
		for _, e := range elems {
			items = append(items, e.Display())
		}
		return Programs{Kind: ProgramsList, Items: items}
	}
	if s := v.DisplayOr(""); s != "" {
		return Programs{Kind: ProgramsText, Text: s}
	}
	return Programs{Kind: ProgramsNone}
}

func buildNetwork(raw rawreport.Report) Network {
	v := raw.Field("Red")
	if _, ok := v.Object(); !ok {
		return Network{
			Note:      v.DisplayOr(""),
			MAC:       constants.Placeholder,
			IPv4:      constants.Placeholder,
			Hostname:  constants.Placeholder,
			DNS:       constants.Placeholder,
			Bandwidth: Bandwidth{Sent: constants.Placeholder, Received: constants.Placeholder},
		}
	}

	n := Network{
		Available: true,
		MAC:       v.Field("MAC").Display(),
		IPv4:      v.Field("IPv4").Display(),
		Hostname:  v.Field("Hostname").Display(),
		DNS:       v.Field("DNS").Display(),
		Bandwidth: Bandwidth{
			Sent:     v.Field("Ancho Banda").Field("Enviados").Display(),
			Received: v.Field("Ancho Banda").Field("Recibidos").Display(),
		},
	}

	if elems, ok := v.Field("Conexiones").Array(); ok {
		n.Connections = make([]Connection, 0, len(elems))
		for _, e := range elems {
			n.Connections = append(n.Connections, Connection{
				State:      e.Field("Estado").Display(),
				LocalIP:    e.Field("IP Local").Display(),
				LocalPort:  e.Field("Puerto Local").Display(),
				RemoteIP:   e.Field("IP Remota").Display(),
				RemotePort: e.Field("Puerto Remoto").Display(),
				PID:        e.Field("PID").Display(),
			})
		}
	}

	return n
}

func buildSecurity(raw rawreport.Report) Security {
	s := Security{
		FirewallStatus: raw.Field("Firewall").DisplayOr(constants.FirewallPlaceholder),
	}

	if elems, ok := raw.Field("Actualizaciones Pendientes").Array(); ok {
		s.PendingUpdates = make([]string, 0, len(elems))
		for _, e := range elems {
			s.PendingUpdates = append(s.PendingUpdates, e.Display())
		}
	}

	return s
}
