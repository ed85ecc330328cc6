package viewmodel

import (
	"github.com/reporteria/reportviewer/internal/constants"
	"github.com/reporteria/reportviewer/internal/measure"
)

// ResourceUsage holds the three bars of the resource chart, each in [0, 100].
type ResourceUsage struct {
	CPUPercent     float64 `json:"cpuPercent" yaml:"cpuPercent"`
	RAMPercent     float64 `json:"ramPercent" yaml:"ramPercent"`
	StoragePercent float64 `json:"storagePercent" yaml:"storagePercent"`
	// StorageEstimated is set when no disk reports its used or free space and StoragePercent is a fixed estimate.
	StorageEstimated bool `json:"storageEstimated" yaml:"storageEstimated"`
}

// ChartSummary returns the resource usage shown in the chart.
func ChartSummary(vm ViewModel) ResourceUsage {
	u := ResourceUsage{
		CPUPercent: measure.ClampPercent(measure.Percent(vm.Processor.UsagePercent)),
		RAMPercent: measure.ClampPercent(measure.Percent(vm.Memory.UsedPercent)),
	}

	if pct, ok := storageUsage(vm.Disks); ok {
		u.StoragePercent = measure.ClampPercent(pct)
		return u
	}
	if len(vm.Disks) > 0 {
		u.StoragePercent = constants.EstimatedStoragePercent
		u.StorageEstimated = true
	}
	return u
}

// storageUsage returns the used share of all disks that report their size and either their used or free space.
func storageUsage(disks []Disk) (float64, bool) {
	var used, total float64
	for _, d := range disks {
		size, ok := measure.SizeBytes(d.Size)
		if !ok || size <= 0 {
			continue
		}

		u, ok := measure.SizeBytes(d.Used)
		if !ok {
			free, okFree := measure.SizeBytes(d.Free)
			if !okFree {
				continue
			}
			u = max(size-free, 0)
		}

		used += u
		total += size
	}

	if total == 0 {
		return 0, false
	}
	return used / total * 100, true
}
