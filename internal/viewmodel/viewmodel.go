// Package viewmodel builds the normalized, placeholder-filled view of an inventory report.
//
// Build is a pure function of the raw report: it keeps no state between calls, never mutates its
// input, and never panics to its caller. Every display field holds either the source value or a
// placeholder, so renderers can print fields without checking them.
package viewmodel

import (
	"fmt"
	"log/slog"

	"github.com/reporteria/reportviewer/internal/rawreport"
)

// Section is one logical grouping of fields, rendered as a tab or a block of cards.
type Section string

const (
	// SectionSummary is the overview cards above the tabs.
	SectionSummary Section = "summary"
	// SectionHardware groups system, processor, memory, disks and BIOS.
	SectionHardware Section = "hardware"
	// SectionSoftware groups general software information and installed programs.
	SectionSoftware Section = "software"
	// SectionNetwork groups addresses, bandwidth and connections.
	SectionNetwork Section = "network"
	// SectionSecurity groups firewall state and pending updates.
	SectionSecurity Section = "security"
)

// Tabs lists the tabbed sections in display order.
var Tabs = []Section{SectionHardware, SectionSoftware, SectionNetwork, SectionSecurity}

// ViewModel is the displayable form of one report.
type ViewModel struct {
	GeneratedAt    string `json:"generatedAt" yaml:"generatedAt"`
	CollectorError string `json:"collectorError,omitempty" yaml:"collectorError,omitempty"`

	Summary   Summary   `json:"summary" yaml:"summary"`
	System    System    `json:"system" yaml:"system"`
	Processor Processor `json:"processor" yaml:"processor"`
	Memory    Memory    `json:"memory" yaml:"memory"`

	// Disks is nil when the report has no disk list.
	Disks []Disk `json:"disks" yaml:"disks"`
	// DisksNote holds the text the collector wrote instead of a disk list, such as "No detectado".
	DisksNote string `json:"disksNote,omitempty" yaml:"disksNote,omitempty"`

	// BIOS is nil when the report has no BIOS object.
	BIOS     *BIOS  `json:"bios,omitempty" yaml:"bios,omitempty"`
	BIOSNote string `json:"biosNote,omitempty" yaml:"biosNote,omitempty"`

	Software Software `json:"software" yaml:"software"`
	Network  Network  `json:"network" yaml:"network"`
	Security Security `json:"security" yaml:"security"`

	// Failures maps each section that could not be built to the reason.
	Failures map[Section]string `json:"failures,omitempty" yaml:"failures,omitempty"`
}

// Failed returns the failure reason of a section, if it could not be built.
func (vm ViewModel) Failed(s Section) (reason string, failed bool) {
	reason, failed = vm.Failures[s]
	return reason, failed
}

// HasDiskList reports whether the report holds a disk list, even an empty one.
func (vm ViewModel) HasDiskList() bool {
	return vm.Disks != nil
}

// Summary is the overview shown above the tabs.
type Summary struct {
	Processor string `json:"processor" yaml:"processor"`
	RAMText   string `json:"ramText" yaml:"ramText"`
	// TotalStorageGB is always finite; unparsable sizes contribute 0.
	TotalStorageGB float64 `json:"totalStorageGB" yaml:"totalStorageGB"`
	// StorageText is "-" when the report has no disk list, even though TotalStorageGB is then 0.
	StorageText string `json:"storageText" yaml:"storageText"`
	UptimeText  string `json:"uptimeText" yaml:"uptimeText"`
}

// System describes the operating system and session.
type System struct {
	OS      string `json:"os" yaml:"os"`
	Edition string `json:"edition" yaml:"edition"`
	Arch    string `json:"arch" yaml:"arch"`
	User    string `json:"user" yaml:"user"`
	Domain  string `json:"domain" yaml:"domain"`
}

// Processor describes the CPU.
type Processor struct {
	Model         string `json:"model" yaml:"model"`
	PhysicalCores string `json:"physicalCores" yaml:"physicalCores"`
	LogicalCores  string `json:"logicalCores" yaml:"logicalCores"`
	UsagePercent  string `json:"usagePercent" yaml:"usagePercent"`
}

// Memory describes the RAM.
type Memory struct {
	Total       string `json:"total" yaml:"total"`
	Available   string `json:"available" yaml:"available"`
	Used        string `json:"used" yaml:"used"`
	UsedPercent string `json:"usedPercent" yaml:"usedPercent"`
}

// Disk is one physical disk or, for older collectors, one partition.
type Disk struct {
	Model  string  `json:"model" yaml:"model"`
	Size   string  `json:"size" yaml:"size"`
	SizeGB float64 `json:"sizeGB" yaml:"sizeGB"`
	Type   string  `json:"type" yaml:"type"`
	// Units lists the drive letters or mount points on the disk, in source order.
	Units     []string `json:"units" yaml:"units"`
	UnitsText string   `json:"unitsText" yaml:"unitsText"`
	Serial    string   `json:"serial" yaml:"serial"`

	FileSystem string `json:"fileSystem" yaml:"fileSystem"`
	Used       string `json:"used" yaml:"used"`
	Free       string `json:"free" yaml:"free"`
}

// BIOS describes the firmware.
type BIOS struct {
	Vendor  string `json:"vendor" yaml:"vendor"`
	Version string `json:"version" yaml:"version"`
	Serial  string `json:"serial" yaml:"serial"`
	Date    string `json:"date" yaml:"date"`
}

// Software describes the running system and its installed programs.
type Software struct {
	SystemTime         string   `json:"systemTime" yaml:"systemTime"`
	UptimeText         string   `json:"uptimeText" yaml:"uptimeText"`
	ActiveProcessCount string   `json:"activeProcessCount" yaml:"activeProcessCount"`
	Token              string   `json:"token" yaml:"token"`
	Programs           Programs `json:"installedPrograms" yaml:"installedPrograms"`
}

// ProgramsKind tells how the installed programs were given in the report.
type ProgramsKind string

const (
	// ProgramsNone means the report has no usable program list.
	ProgramsNone ProgramsKind = "none"
	// ProgramsList means the report has an array of program names.
	ProgramsList ProgramsKind = "list"
	// ProgramsText means the report has free text, such as "No detectado".
	ProgramsText ProgramsKind = "text"
)

// Programs holds the installed programs as either a list or prose.
type Programs struct {
	Kind  ProgramsKind `json:"kind" yaml:"kind"`
	Items []string     `json:"items,omitempty" yaml:"items,omitempty"`
	Text  string       `json:"text,omitempty" yaml:"text,omitempty"`
}

// CountLabel returns "(N)" for a list of N programs, and "" for prose or no data.
func (p Programs) CountLabel() string {
	if p.Kind != ProgramsList {
		return ""
	}
	return fmt.Sprintf("(%d)", len(p.Items))
}

// Network describes the network configuration and active connections.
type Network struct {
	// Available is false when the report has no network object at all.
	Available bool   `json:"available" yaml:"available"`
	Note      string `json:"note,omitempty" yaml:"note,omitempty"`

	MAC       string    `json:"mac" yaml:"mac"`
	IPv4      string    `json:"ipv4" yaml:"ipv4"`
	Hostname  string    `json:"hostname" yaml:"hostname"`
	DNS       string    `json:"dns" yaml:"dns"`
	Bandwidth Bandwidth `json:"bandwidth" yaml:"bandwidth"`

	// Connections is nil when the report has no connection list, and empty when the list is empty.
	Connections []Connection `json:"connections" yaml:"connections"`
}

// ShowConnections reports whether the connections table, including its header, should be shown.
func (n Network) ShowConnections() bool {
	return len(n.Connections) > 0
}

// Bandwidth is the amount of data sent and received.
type Bandwidth struct {
	Sent     string `json:"sent" yaml:"sent"`
	Received string `json:"received" yaml:"received"`
}

// Connection is one established network connection.
type Connection struct {
	State      string `json:"state" yaml:"state"`
	LocalIP    string `json:"localIp" yaml:"localIp"`
	LocalPort  string `json:"localPort" yaml:"localPort"`
	RemoteIP   string `json:"remoteIp" yaml:"remoteIp"`
	RemotePort string `json:"remotePort" yaml:"remotePort"`
	PID        string `json:"pid" yaml:"pid"`
}

// Security describes the firewall and pending updates.
type Security struct {
	FirewallStatus string `json:"firewallStatus" yaml:"firewallStatus"`
	// PendingUpdates is nil when the report has no update list; the section is then hidden.
	PendingUpdates []string `json:"pendingUpdates" yaml:"pendingUpdates"`
}

// ShowPendingUpdates reports whether the pending updates block should be shown.
func (s Security) ShowPendingUpdates() bool {
	return s.PendingUpdates != nil
}

// Builder builds view models.
type Builder struct {
	sectionHook func(Section)
}

type options struct {
	// Private members exported for tests.
	sectionHook func(Section)
}

// Options represents an optional function to override Builder default values.
type Options func(*options)

// NewBuilder returns a new Builder.
func NewBuilder(args ...Options) Builder {
	opts := options{sectionHook: func(Section) {}}
	for _, opt := range args {
		opt(&opts)
	}
	return Builder{sectionHook: opts.sectionHook}
}

// Build returns the view model of raw with the default Builder.
func Build(raw rawreport.Report) ViewModel {
	return NewBuilder().Build(raw)
}

// Build returns the view model of raw.
//
// A failure while building one section is logged, recorded in Failures, and replaced by that
// section's placeholder values; the other sections are built normally.
func (b Builder) Build(raw rawreport.Report) ViewModel {
	failures := make(map[Section]string)

	vm := ViewModel{
		GeneratedAt:    raw.Field("Timestamp").Display(),
		CollectorError: raw.Field("Error General").DisplayOr(""),
	}

	vm.Summary = isolate(b, SectionSummary, raw, failures, buildSummary)

	vm.System = isolate(b, SectionHardware, raw, failures, buildSystemInfo)
	vm.Processor = isolate(b, SectionHardware, raw, failures, buildProcessorDetail)
	vm.Memory = isolate(b, SectionHardware, raw, failures, buildMemory)
	disks := isolate(b, SectionHardware, raw, failures, buildDisks)
	vm.Disks, vm.DisksNote = disks.disks, disks.note
	bios := isolate(b, SectionHardware, raw, failures, buildBios)
	vm.BIOS, vm.BIOSNote = bios.bios, bios.note

	vm.Software = isolate(b, SectionSoftware, raw, failures, buildSoftware)
	vm.Network = isolate(b, SectionNetwork, raw, failures, buildNetwork)
	vm.Security = isolate(b, SectionSecurity, raw, failures, buildSecurity)

	if len(failures) > 0 {
		vm.Failures = failures
	}
	return vm
}

// isolate runs build for one section, recovering from any panic.
// On failure the section is rebuilt from an empty report, which yields its placeholder values.
func isolate[T any](b Builder, s Section, raw rawreport.Report, failures map[Section]string, build func(rawreport.Report) T) (out T) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		slog.Error("Could not build report section", "section", s, "error", r)
		failures[s] = fmt.Sprint(r)
		out = placeholders(build)
	}()

	b.sectionHook(s)
	return build(raw)
}

// placeholders returns the section built from an empty report, or its zero value if even that fails.
func placeholders[T any](build func(rawreport.Report) T) (out T) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out = zero
		}
	}()
	return build(nil)
}
