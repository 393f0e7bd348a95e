package tile

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// progressBar renders an in-place progress bar for one zoom level. Workers
// call Increment and Skip concurrently; a background goroutine refreshes
// the line at a fixed interval.
type progressBar struct {
	out       io.Writer
	label     string
	total     int64
	processed atomic.Int64
	skipped   atomic.Int64
	barWidth  int
	start     time.Time
	done      chan struct{}
	mu        sync.Mutex
}

// newProgressBar starts a bar for total items writing to out. A nil out
// disables all output, which keeps the call sites unconditional.
func newProgressBar(out io.Writer, label string, total int64) *progressBar {
	pb := &progressBar{
		out:      out,
		label:    label,
		total:    total,
		barWidth: 30,
		start:    time.Now(),
		done:     make(chan struct{}),
	}
	if out != nil {
		go pb.run()
	}
	return pb
}

// Increment marks one item as processed.
func (pb *progressBar) Increment() {
	pb.processed.Add(1)
}

// Skip marks one item as processed without producing a tile.
func (pb *progressBar) Skip() {
	pb.processed.Add(1)
	pb.skipped.Add(1)
}

// Finish stops the refresh loop and prints the final state.
func (pb *progressBar) Finish() {
	close(pb.done)
	if pb.out != nil {
		pb.draw()
		fmt.Fprint(pb.out, "\n")
	}
}

func (pb *progressBar) run() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-pb.done:
			return
		case <-ticker.C:
			pb.draw()
		}
	}
}

func (pb *progressBar) draw() {
	pb.mu.Lock()
	defer pb.mu.Unlock()

	processed := pb.processed.Load()
	var frac float64
	if pb.total > 0 {
		frac = float64(processed) / float64(pb.total)
	}
	if frac > 1 {
		frac = 1
	}

	filled := int(float64(pb.barWidth) * frac)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", pb.barWidth-filled)

	elapsed := time.Since(pb.start)
	rate := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(processed) / secs
	}

	fmt.Fprintf(pb.out, "\r%s [%s] %3.0f%%  %d/%d tiles (%d skipped)  %.0f/s  %s\033[K",
		pb.label, bar, frac*100, processed, pb.total, pb.skipped.Load(), rate, formatDuration(elapsed))
}

// formatDuration formats a duration concisely (e.g. "1m23s", "45s").
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}
