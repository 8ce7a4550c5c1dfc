package simulation

import (
	"io"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"git.home.luguber.info/inful/setsim/internal/report"
	"git.home.luguber.info/inful/setsim/internal/stats"
)

// progressInterval is how often the progress display polls the aggregate.
const progressInterval = 250 * time.Millisecond

// startProgress shows a progress bar for game-bounded runs and a spinner for
// time-bounded ones. Only the returned stop function's goroutine touches the
// pterm printer. A nil writer disables the display.
func startProgress(w io.Writer, games uint64, agg *stats.Aggregate) (stop func()) {
	if w == nil {
		return func() {}
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	played := func() uint64 { return agg.Games() + agg.Failed() }

	if games > 0 {
		bar, err := pterm.DefaultProgressbar.
			WithTotal(int(games)).
			WithTitle("Simulating").
			WithWriter(w).
			Start()
		if err != nil {
			return func() {}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			shown := 0
			update := func() {
				if n := int(played()); n > shown {
					bar.Add(n - shown)
					shown = n
				}
			}
			tick := time.NewTicker(progressInterval)
			defer tick.Stop()
			for {
				select {
				case <-tick.C:
					update()
				case <-done:
					update()
					_, _ = bar.Stop()
					return
				}
			}
		}()
	} else {
		spinner, err := pterm.DefaultSpinner.WithWriter(w).Start("Simulating")
		if err != nil {
			return func() {}
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			tick := time.NewTicker(progressInterval)
			defer tick.Stop()
			for {
				select {
				case <-tick.C:
					spinner.UpdateText("Simulating: " + report.Count(played()) + " games")
				case <-done:
					spinner.Success("Played " + report.Count(played()) + " games")
					return
				}
			}
		}()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}
