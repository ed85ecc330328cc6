package render

import (
	"fmt"
	"html/template"

	"github.com/reporteria/reportviewer/internal/measure"
	"github.com/reporteria/reportviewer/internal/viewmodel"
)

const (
	barTrackWidth = 200.0
	barHeight     = 18
	barGap        = 10
	barTop        = 4
)

type bar struct {
	Label   string
	Percent float64
}

type chartView struct {
	Bars             []bar
	StorageEstimated bool
}

func newChartView(u viewmodel.ResourceUsage) chartView {
	return chartView{
		Bars: []bar{
			{Label: "CPU", Percent: u.CPUPercent},
			{Label: "RAM", Percent: u.RAMPercent},
			{Label: "Almacenamiento", Percent: u.StoragePercent},
		},
		StorageEstimated: u.StorageEstimated,
	}
}

var chartFuncs = template.FuncMap{
	"barY": func(i int) int {
		return barTop + i*(barHeight+barGap)
	},
	"barTextY": func(i int) int {
		return barTop + i*(barHeight+barGap) + barHeight - 5
	},
	"barWidth": func(pct float64) string {
		return fmt.Sprintf("%.1f", measure.ClampPercent(pct)/100*barTrackWidth)
	},
	"percent": func(pct float64) string {
		return fmt.Sprintf("%.0f%%", pct)
	},
}
