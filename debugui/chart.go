package debugui

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// handleChart renders GET /bridge/chart: a bar chart of message count per
// session (title/tooltip/initialization options, then one AddSeries call)
// built on charts.Bar.
func (d *Dashboard) handleChart(c *gin.Context) {
	sessions, _, err := d.store.ListAllSessions(maxChartSessions, 0)
	if err != nil {
		c.String(http.StatusInternalServerError, "failed to list sessions: %v", err)
		return
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Messages per session",
			Subtitle: "sessions ordered by owner and name, across all owners",
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithInitializationOpts(opts.Initialization{Width: "1000px", Height: "500px"}),
	)

	labels := make([]string, 0, len(sessions))
	data := make([]opts.BarData, 0, len(sessions))
	for _, s := range sessions {
		labels = append(labels, s.Name)
		data = append(data, opts.BarData{Value: s.MessageCount})
	}
	bar.SetXAxis(labels).AddSeries("messages", data)

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	_ = bar.Render(c.Writer)
}

// maxChartSessions bounds the chart to a readable number of bars; the
// sessions list page is where the full, paginated set lives.
const maxChartSessions = 50
