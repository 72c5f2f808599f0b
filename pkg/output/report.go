package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/types"
)

// Report renders every recorded run of every directive as an HTML page of
// line charts.
func (wr *Writer) Report(w io.Writer, title string) error {
	page := components.NewPage()
	page.PageTitle = title

	for _, c := range wr.channels {
		for _, s := range c.series {
			if len(s.At) == 0 {
				continue
			}
			page.AddCharts(s.lineChart(fmt.Sprintf("%s %d", c.directive.Kind, c.directive.Index)))
		}
	}
	return page.Render(w)
}

func (s *Series) lineChart(title string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			Theme: types.ThemeWesteros,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: "swept over " + s.Axis,
		}),
		charts.WithLegendOpts(opts.Legend{
			Type:   "scroll",
			Orient: "vertical",
			Right:  "10",
			Top:    "20",
			Bottom: "20",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:        s.Axis,
			SplitNumber: 20,
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Scale: opts.Bool(true),
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:       "inside",
			Start:      0,
			End:        100,
			XAxisIndex: []int{0},
		}),
	)

	axis := make([]string, len(s.At))
	for k, at := range s.At {
		axis[k] = strconv.FormatFloat(at, 'g', 6, 64)
	}
	line.SetXAxis(axis)

	for i, name := range s.Names {
		items := make([]opts.LineData, len(s.At))
		for k := range s.At {
			items[k] = opts.LineData{Value: s.Values[i][k]}
		}
		line.AddSeries(name, items)
	}
	return line
}
