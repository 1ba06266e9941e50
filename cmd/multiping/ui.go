package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/digineo/pingwatch"
	"github.com/digineo/pingwatch/monitor"
)

const (
	colHost = iota
	colAddress
	colState
	colSent
	colLoss
	colLast
	colBest
	colWorst
	colMean
	colStdDev
	colLastErr
	numCols
)

var headers = [numCols]string{"host", "address", "state", "sent", "loss", "last", "best", "worst", "mean", "stddev", "last err"}

type userInterface struct {
	app          *tview.Application
	table        *tview.Table
	logView      *tview.TextView
	logs         *logInterceptor
	sup          *pingwatch.Supervisor
	stats        *monitor.Monitor
	destinations []*destination
}

func buildTUI(sup *pingwatch.Supervisor, stats *monitor.Monitor, logs *logInterceptor, destinations []*destination) *userInterface {
	ui := &userInterface{
		app:          tview.NewApplication(),
		table:        tview.NewTable().SetBorders(false).SetFixed(1, 0).SetSelectable(true, false),
		logView:      tview.NewTextView(),
		logs:         logs,
		sup:          sup,
		stats:        stats,
		destinations: destinations,
	}

	ui.table.SetTitle(" multiping ([p]ause, [s]tart, [q]uit) ").SetBorder(true)
	ui.logView.SetTitle(" log ").SetBorder(true)

	for c, title := range headers {
		align := tview.AlignRight
		if c <= colState || c == colLastErr {
			align = tview.AlignLeft
		}
		ui.table.SetCell(0, c, tview.NewTableCell(title).SetAlign(align).SetSelectable(false))
	}

	for i, d := range destinations {
		r := i + 1
		for c := 0; c < numCols; c++ {
			var cell *tview.TableCell
			switch c {
			case colHost:
				cell = tview.NewTableCell(d.host).SetAlign(tview.AlignLeft)
			case colAddress:
				cell = tview.NewTableCell(d.key).SetAlign(tview.AlignLeft)
			case colState, colLastErr:
				cell = tview.NewTableCell("").SetAlign(tview.AlignLeft)
			default:
				cell = tview.NewTableCell("n/a").SetAlign(tview.AlignRight)
			}
			ui.table.SetCell(r, c, cell)
		}
	}

	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			ui.app.Stop()
			return nil
		case tcell.KeyRune:
			switch event.Rune() {
			case 'q':
				ui.app.Stop()
				return nil
			case 'p':
				ui.toggle(false)
				return nil
			case 's':
				ui.toggle(true)
				return nil
			}
		}
		return event
	})

	return ui
}

// toggle starts or pauses the destination of the selected row. Errors
// end up in the log view.
func (ui *userInterface) toggle(start bool) {
	row, _ := ui.table.GetSelection()
	if row < 1 || row > len(ui.destinations) {
		return
	}
	d := ui.destinations[row-1]

	// pausing may wait for the probe in flight
	go func() {
		if start {
			ui.sup.Start([]string{d.key})
			return
		}
		if err := ui.sup.Pause([]string{d.key}); err == nil {
			ui.stats.RemoveTarget(d.key)
		}
	}()
}

func (ui *userInterface) Run() error {
	layout := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(ui.table, 0, 1, true).
		AddItem(ui.logView, 7, 0, false)

	ui.app.SetRoot(layout, true).SetFocus(ui.table)
	return ui.app.Run()
}

func (ui *userInterface) update(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		states := make(map[string]pingwatch.State)
		for _, info := range ui.sup.Targets() {
			states[info.Host] = info.State
		}

		ui.app.QueueUpdateDraw(func() {
			for i, d := range ui.destinations {
				ui.render(i+1, d, states)
			}
			ui.logView.SetText(ui.logs.String())
		})
	}
}

func (ui *userInterface) render(r int, d *destination, states map[string]pingwatch.State) {
	state, running := states[d.key]
	if running {
		ui.table.GetCell(r, colState).SetText(state.String())
	} else {
		ui.table.GetCell(r, colState).SetText("paused")
	}

	m := ui.stats.Metrics(d.key)
	if m == nil {
		for c := colSent; c < colLastErr; c++ {
			ui.table.GetCell(r, c).SetText("n/a")
		}
		ui.table.GetCell(r, colLastErr).SetText("")
		return
	}

	ui.table.GetCell(r, colSent).SetText(strconv.Itoa(m.PacketsSent))
	ui.table.GetCell(r, colLoss).SetText(fmt.Sprintf("%0.2f%%", 100*m.Loss))
	ui.table.GetCell(r, colLast).SetText(ts(m.Last))
	ui.table.GetCell(r, colBest).SetText(ts(m.Best))
	ui.table.GetCell(r, colWorst).SetText(ts(m.Worst))
	ui.table.GetCell(r, colMean).SetText(ts(m.Mean))
	ui.table.GetCell(r, colStdDev).SetText(ts(m.StdDev))
	ui.table.GetCell(r, colLastErr).SetText(m.LastError)
}

const tsDividend = float64(time.Millisecond) / float64(time.Nanosecond)

func ts(dur time.Duration) string {
	if 10*time.Microsecond < dur && dur < time.Second {
		return fmt.Sprintf("%0.2fms", float64(dur.Nanoseconds())/tsDividend)
	}
	return dur.String()
}
