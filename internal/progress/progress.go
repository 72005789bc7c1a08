// Package progress renders an in-place terminal progress indicator for the
// long-running batch commands (parse, keyframe). Adapted from the
// teacher's per-zoom-level tile progress bar to a generic "N processed, M
// total (or unknown)" counter.
package progress

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Bar renders a refreshing terminal line and supports concurrent Increment
// calls from multiple worker goroutines.
type Bar struct {
	total     int64 // 0 means unknown; renders a bare counter instead of a bar
	processed atomic.Int64
	label     string
	barWidth  int
	start     time.Time
	done      chan struct{}
	mu        sync.Mutex
}

// New starts a progress bar labeled label. total == 0 means the item count
// isn't known upfront (e.g. a CSV stream of unknown length).
func New(label string, total int64) *Bar {
	b := &Bar{
		total:    total,
		label:    label,
		barWidth: 30,
		start:    time.Now(),
		done:     make(chan struct{}),
	}
	go b.run()
	return b
}

// Increment marks one more item processed. Safe for concurrent use.
func (b *Bar) Increment() {
	b.processed.Add(1)
}

// Add marks n more items processed. Safe for concurrent use.
func (b *Bar) Add(n int64) {
	b.processed.Add(n)
}

// Finish stops the refresh loop and prints the final state with a newline.
func (b *Bar) Finish() {
	close(b.done)
	b.draw()
	fmt.Fprint(os.Stderr, "\n")
}

func (b *Bar) run() {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-b.done:
			return
		case <-ticker.C:
			b.draw()
		}
	}
}

func (b *Bar) draw() {
	b.mu.Lock()
	defer b.mu.Unlock()

	processed := b.processed.Load()
	elapsed := time.Since(b.start)
	rate := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(processed) / secs
	}

	if b.total <= 0 {
		fmt.Fprintf(os.Stderr, "\r%s  %d processed  %.0f/s  %s\033[K",
			b.label, processed, rate, formatDuration(elapsed))
		return
	}

	frac := float64(processed) / float64(b.total)
	if frac > 1 {
		frac = 1
	}
	filled := int(float64(b.barWidth) * frac)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", b.barWidth-filled)
	fmt.Fprintf(os.Stderr, "\r%s [%s] %3.0f%%  %d/%d  %.0f/s  %s\033[K",
		b.label, bar, frac*100, processed, b.total, rate, formatDuration(elapsed))
}

func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}
