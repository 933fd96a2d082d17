package dashboard

import (
	"net/http"

	chart "github.com/wcharczuk/go-chart/v2"
)

// handleChart renders the latest snapshot's percent changes as a PNG
// bar chart, one bar per raw candidate.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	state := s.state()
	if len(state.RawCandidates) == 0 {
		http.Error(w, "no snapshot yet", http.StatusNotFound)
		return
	}

	bars := make([]chart.Value, 0, len(state.RawCandidates))
	for _, c := range state.RawCandidates {
		bars = append(bars, chart.Value{
			Label: c.Symbol,
			Value: c.PercentChange.InexactFloat64(),
		})
	}

	graph := chart.BarChart{
		Title:    "Top gainers (% change)",
		Width:    1280,
		Height:   720,
		BarWidth: 40,
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				return chart.FloatValueFormatterWithFormat(v, "%.1f%%")
			},
		},
		Bars: bars,
	}

	w.Header().Set("Content-Type", "image/png")
	if err := graph.Render(chart.PNG, w); err != nil {
		s.logger.Warn().Err(err).Msg("chart render failed")
	}
}
