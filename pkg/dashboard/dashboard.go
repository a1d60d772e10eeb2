package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/anggasct/crossroads"
	"github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

// RefreshInterval is how often the dashboard redraws
const RefreshInterval = 100 * time.Millisecond

// Dashboard draws a Model to the terminal
type Dashboard struct {
	model  *Model
	status *widgets.Paragraph
	grid   *widgets.Paragraph
	gauges [crossroads.NumApproaches]*widgets.Gauge
	recent *widgets.List
}

// New creates a dashboard for model
func New(model *Model) *Dashboard {
	d := &Dashboard{
		model:  model,
		status: widgets.NewParagraph(),
		grid:   widgets.NewParagraph(),
		recent: widgets.NewList(),
	}
	d.status.Title = "crossroads"
	d.status.SetRect(0, 0, 60, 3)

	d.grid.Title = "quadrants"
	d.grid.SetRect(0, 3, 30, 7)

	for i, a := range crossroads.Approaches() {
		g := widgets.NewGauge()
		g.Title = fmt.Sprintf("%s lane", a)
		g.SetRect(30, 3+i*3, 60, 6+i*3)
		d.gauges[a] = g
	}

	d.recent.Title = "recent crossings (q to quit)"
	d.recent.SetRect(0, 15, 60, 15+DefaultHistory+2)
	return d
}

// update copies a snapshot into the widgets
func (d *Dashboard) update(s Snapshot) {
	d.status.Text = s.Status()
	d.grid.Text = s.Grid()
	for _, a := range crossroads.Approaches() {
		l := s.Lanes[a]
		g := d.gauges[a]
		g.Percent = s.Percent(a)
		g.Label = fmt.Sprintf("%d/%d  crossed %d  %s/%s", l.Occupancy, s.Capacity, l.Crossed, l.Arrival, l.Crossing)
		if l.Rejected > 0 {
			g.Label += fmt.Sprintf("  dropped %d", l.Rejected)
		}
	}
	d.recent.Rows = s.RecentRows()
}

func (d *Dashboard) render() {
	d.update(d.model.Snapshot())
	termui.Render(d.status, d.grid, d.gauges[0], d.gauges[1], d.gauges[2], d.gauges[3], d.recent)
}

// Run takes over the terminal and redraws until ctx is done or the user
// presses q or Ctrl-C. It returns context.Canceled when the user quit.
func (d *Dashboard) Run(ctx context.Context) error {
	if err := termui.Init(); err != nil {
		return fmt.Errorf("termui init: %w", err)
	}
	defer termui.Close()

	d.render()
	ticker := time.NewTicker(RefreshInterval)
	defer ticker.Stop()
	events := termui.PollEvents()
	for {
		select {
		case <-ctx.Done():
			d.render()
			return nil
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return context.Canceled
			case "<Resize>":
				termui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.render()
		}
	}
}
