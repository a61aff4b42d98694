// Package dashboard renders a live termui terminal view of a running
// worker: current publish rate, latency percentiles, and session/total
// counters, refreshed once a second from the worker's period-stats poll.
package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"

	"github.com/torosent/benchworker/internal/worker"
)

// Config holds the run parameters shown in the summary panel.
type Config struct {
	DriverName  string
	TargetRate  float64
	Producers   int
	Consumers   int
	PayloadSize int
}

// Dashboard renders a live terminal UI for a running worker's stats.
type Dashboard struct {
	w            *worker.Worker
	cfg          Config
	ctx          context.Context
	cancel       context.CancelFunc
	shutdownFunc func()
	wg           sync.WaitGroup
	mu           sync.Mutex

	grid         *ui.Grid
	rateSparkle  *widgets.SparklineGroup
	latencyPara  *widgets.Paragraph
	rateGauge    *widgets.Gauge
	errorList    *widgets.List
	summaryPara  *widgets.Paragraph
	countersPara *widgets.Paragraph

	rateHistory []float64
	startTime   time.Time
	sentSoFar   int64
}

// New initializes termui and builds a Dashboard polling w once a second.
// shutdownFunc is invoked if the user presses q or Ctrl-C inside the UI.
func New(w *worker.Worker, cfg Config, shutdownFunc func()) (*Dashboard, error) {
	if err := ui.Init(); err != nil {
		return nil, fmt.Errorf("dashboard: init termui: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dashboard{
		w:            w,
		cfg:          cfg,
		ctx:          ctx,
		cancel:       cancel,
		shutdownFunc: shutdownFunc,
		rateHistory:  make([]float64, 0, 100),
		startTime:    time.Now(),
	}

	d.initWidgets()
	d.setupGrid()
	return d, nil
}

func (d *Dashboard) initWidgets() {
	sparkline := widgets.NewSparkline()
	sparkline.Title = "Messages/sec"
	sparkline.LineColor = ui.ColorGreen
	sparkline.Data = []float64{0}

	d.rateSparkle = widgets.NewSparklineGroup(sparkline)
	d.rateSparkle.Title = "Publish Rate"
	d.rateSparkle.BorderStyle.Fg = ui.ColorCyan

	d.latencyPara = widgets.NewParagraph()
	d.latencyPara.Title = "Publish Delay (us)"
	d.latencyPara.Text = "p50: 0\np99: 0\np999: 0\nmax: 0"
	d.latencyPara.BorderStyle.Fg = ui.ColorCyan

	d.rateGauge = widgets.NewGauge()
	d.rateGauge.Title = "Rate vs Target"
	d.rateGauge.Percent = 0
	d.rateGauge.BarColor = ui.ColorBlue
	d.rateGauge.BorderStyle.Fg = ui.ColorCyan
	d.rateGauge.LabelStyle = ui.NewStyle(ui.ColorWhite)

	d.errorList = widgets.NewList()
	d.errorList.Title = "Errors / Poll Errors"
	d.errorList.Rows = []string{"No errors"}
	d.errorList.TextStyle = ui.NewStyle(ui.ColorYellow)
	d.errorList.BorderStyle.Fg = ui.ColorCyan

	d.summaryPara = widgets.NewParagraph()
	d.summaryPara.Title = "Run"
	d.summaryPara.Text = "Initializing..."
	d.summaryPara.BorderStyle.Fg = ui.ColorCyan

	d.countersPara = widgets.NewParagraph()
	d.countersPara.Title = "Totals"
	d.countersPara.Text = "Waiting for data..."
	d.countersPara.BorderStyle.Fg = ui.ColorCyan
}

func (d *Dashboard) setupGrid() {
	termWidth, termHeight := ui.TerminalDimensions()

	d.grid = ui.NewGrid()
	d.grid.SetRect(0, 0, termWidth, termHeight)

	d.grid.Set(
		ui.NewRow(0.16,
			ui.NewCol(1.0, d.summaryPara),
		),
		ui.NewRow(0.2,
			ui.NewCol(0.5, d.rateGauge),
			ui.NewCol(0.5, d.countersPara),
		),
		ui.NewRow(0.3,
			ui.NewCol(0.65, d.rateSparkle),
			ui.NewCol(0.35, d.latencyPara),
		),
		ui.NewRow(0.34,
			ui.NewCol(1.0, d.errorList),
		),
	)
}

// Start begins the update loop in a background goroutine.
func (d *Dashboard) Start() {
	d.wg.Add(1)
	go d.run()
}

// Stop cancels the update loop, waits for it to exit, and restores the
// terminal.
func (d *Dashboard) Stop() {
	d.cancel()
	d.wg.Wait()
	ui.Close()
	time.Sleep(100 * time.Millisecond)
}

func (d *Dashboard) run() {
	defer d.wg.Done()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	uiEvents := ui.PollEvents()
	d.render()

	for {
		select {
		case <-d.ctx.Done():
			for len(uiEvents) > 0 {
				<-uiEvents
			}
			return
		case e := <-uiEvents:
			select {
			case <-d.ctx.Done():
				return
			default:
			}
			switch e.ID {
			case "q", "<C-c>":
				if d.shutdownFunc != nil {
					d.shutdownFunc()
				}
			case "<Resize>":
				payload := e.Payload.(ui.Resize)
				d.grid.SetRect(0, 0, payload.Width, payload.Height)
				ui.Clear()
				d.render()
			}
		case <-ticker.C:
			d.update()
			d.render()
		}
	}
}

func (d *Dashboard) update() {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := d.w.GetPeriodStats()
	elapsed := time.Since(d.startTime)

	// stats counts the messages sent since the previous poll, and run polls
	// once a second, so the interval count is the current per-second rate.
	currentRate := float64(stats.MessagesSent)
	d.rateHistory = append(d.rateHistory, currentRate)
	if len(d.rateHistory) > 100 {
		d.rateHistory = d.rateHistory[1:]
	}
	d.rateSparkle.Sparklines[0].Data = d.rateHistory
	d.rateSparkle.Title = fmt.Sprintf("Publish Rate | Current: %.0f/s | Target: %.0f/s", currentRate, d.cfg.TargetRate)

	percent := 0
	if d.cfg.TargetRate > 0 {
		percent = int((currentRate / d.cfg.TargetRate) * 100)
	}
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	d.rateGauge.Percent = percent
	d.rateGauge.Label = fmt.Sprintf("%.0f/s", currentRate)

	if stats.PublishDelay != nil {
		d.latencyPara.Text = fmt.Sprintf(
			"p50:   %d\np99:   %d\np999:  %d\nmax:   %d",
			stats.PublishDelay.ValueAtQuantile(50),
			stats.PublishDelay.ValueAtQuantile(99),
			stats.PublishDelay.ValueAtQuantile(99.9),
			stats.PublishDelay.Max(),
		)
	}

	d.sentSoFar += stats.MessagesSent
	d.summaryPara.Text = fmt.Sprintf(
		"Driver: %s | Producers: %d | Consumers: %d | Payload: %dB\nElapsed: %s | Sent (interval): %d | Received (interval): %d",
		d.cfg.DriverName, d.cfg.Producers, d.cfg.Consumers, d.cfg.PayloadSize,
		elapsed.Round(time.Second), stats.MessagesSent, stats.MessagesReceived,
	)

	d.countersPara.Text = fmt.Sprintf(
		"total_messages_sent:     %d\ntotal_errors:            %d\ntotal_messages_received: %d",
		stats.TotalMessagesSent, stats.TotalErrors, stats.TotalMessagesReceived,
	)

	if stats.Errors == 0 && stats.PollErrors == 0 {
		d.errorList.Rows = []string{"[No errors this interval](fg:green)"}
	} else {
		d.errorList.Rows = []string{
			fmt.Sprintf("[errors: %d](fg:red)", stats.Errors),
			fmt.Sprintf("[poll_errors: %d](fg:red)", stats.PollErrors),
		}
	}
}

func (d *Dashboard) render() {
	d.mu.Lock()
	defer d.mu.Unlock()
	ui.Render(d.grid)
}
