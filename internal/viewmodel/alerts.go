package viewmodel

import (
	"fmt"

	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/measure"
)

// AlertKind identifies the condition that raised an alert.
type AlertKind string

const (
	// AlertRAM is raised when memory usage is above the threshold.
	AlertRAM AlertKind = "ram"
	// AlertUptime is raised when the machine has been running for too many days.
	AlertUptime AlertKind = "uptime"
	// AlertCollector is raised when the collector reported a general failure.
	AlertCollector AlertKind = "collector"
)

// Alert is a condition worth telling the user about once a report is loaded.
type Alert struct {
	Kind    AlertKind `json:"kind" yaml:"kind"`
	Message string    `json:"message" yaml:"message"`
}

// Thresholds are the limits above which alerts are raised.
type Thresholds struct {
	RAMPercent float64 `mapstructure:"ram_alert_percent" toml:"ram_alert_percent"`
	UptimeDays int     `mapstructure:"uptime_alert_days" toml:"uptime_alert_days"`
}

// DefaultThresholds returns the thresholds used when none are configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		RAMPercent: constants.DefaultRAMAlertPercent,
		UptimeDays: constants.DefaultUptimeAlertDays,
	}
}

// EvaluateAlerts returns the alerts raised by vm, in a stable order: collector, RAM, uptime.
// Both limits are exclusive: 80% RAM with an 80% threshold raises nothing.
func EvaluateAlerts(vm ViewModel, th Thresholds) []Alert {
	var alerts []Alert

	if vm.CollectorError != "" {
		alerts = append(alerts, Alert{
			Kind:    AlertCollector,
			Message: fmt.Sprintf("El reporte indica un error del recolector: %s", vm.CollectorError),
		})
	}

	if ram := measure.Percent(vm.Memory.UsedPercent); ram > th.RAMPercent {
		alerts = append(alerts, Alert{
			Kind:    AlertRAM,
			Message: fmt.Sprintf("Uso de RAM elevado: %s", vm.Memory.UsedPercent),
		})
	}

	if days, ok := measure.UptimeDays(vm.Software.UptimeText); ok && days > th.UptimeDays {
		alerts = append(alerts, Alert{
			Kind:    AlertUptime,
			Message: fmt.Sprintf("El equipo lleva %d días sin reiniciarse", days),
		})
	}

	return alerts
}
