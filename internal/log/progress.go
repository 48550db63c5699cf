// Package log carries console progress feedback for the long-running loops:
// the 300-candidate neighbor sweep and the permutation draws.
package log

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ProgressIndicator renders an in-place progress bar on a TTY, or periodic
// log lines in plain mode.
type ProgressIndicator struct {
	mu         sync.Mutex
	name       string
	total      int
	current    int
	startTime  time.Time
	out        io.Writer
	plain      bool
	lastLogged int
}

// NewProgressIndicator creates an indicator for a loop of total steps. In
// plain mode nothing is rewritten in place; progress is logged at every
// tenth of the loop instead.
func NewProgressIndicator(name string, total int, out io.Writer, plain bool) *ProgressIndicator {
	return &ProgressIndicator{
		name:      name,
		total:     total,
		startTime: time.Now(),
		out:       out,
		plain:     plain,
	}
}

// Update sets the current progress value.
func (pi *ProgressIndicator) Update(current int) {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	pi.current = current
	if pi.total <= 0 {
		return
	}
	if pi.plain {
		// One line per decile keeps plain output readable.
		decile := current * 10 / pi.total
		if decile > pi.lastLogged || current == pi.total {
			pi.lastLogged = decile
			log.Info().
				Str("task", pi.name).
				Int("done", current).
				Int("total", pi.total).
				Msg("progress")
		}
		return
	}
	pi.printBar()
}

// Finish completes the indicator and reports the elapsed time.
func (pi *ProgressIndicator) Finish() {
	pi.mu.Lock()
	defer pi.mu.Unlock()

	elapsed := time.Since(pi.startTime).Round(time.Millisecond)
	if pi.plain {
		log.Info().Str("task", pi.name).Dur("elapsed", elapsed).Msg("completed")
		return
	}
	fmt.Fprintf(pi.out, "\r\033[K%s completed (%d items, %v)\n", pi.name, pi.total, elapsed)
}

func (pi *ProgressIndicator) printBar() {
	var b strings.Builder
	b.WriteString("\r\033[K")
	b.WriteString(pi.name)

	const barWidth = 20
	filled := barWidth * pi.current / pi.total
	b.WriteString(" [")
	b.WriteString(strings.Repeat("█", filled))
	b.WriteString(strings.Repeat("░", barWidth-filled))
	pct := float64(pi.current) / float64(pi.total) * 100
	b.WriteString(fmt.Sprintf("] %d/%d (%.1f%%)", pi.current, pi.total, pct))

	if pi.current > 0 && pi.current < pi.total {
		elapsed := time.Since(pi.startTime)
		rate := float64(pi.current) / elapsed.Seconds()
		eta := time.Duration(float64(pi.total-pi.current)/rate) * time.Second
		b.WriteString(fmt.Sprintf(" ETA: %v", eta.Round(time.Second)))
	}

	fmt.Fprint(pi.out, b.String())
}
