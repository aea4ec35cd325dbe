// Package console renders the decorative status line: a spinner, cycling
// status messages and the occasional fabricated "[FOUND] node" line. It is
// pure presentation: it reads the label, interval and stop flag and
// produces nothing the core consumes. It deliberately never prints worker
// counts.
package console

import (
	"fmt"
	"io"
	"math/rand"
	"time"

	"golang.org/x/time/rate"

	"github.com/procwave/procwave/internal/stopflag"
)

// Banner is printed by the menu on every screen.
const Banner = `
   ___  ___  ____  _______      _____ _   _____
  / _ \/ _ \/ __ \/ ___/ | /| / / _ | | / / _ \
 / ___/ , _/ /_/ / /__ | |/ |/ / __ | |/ / ___/
/_/  /_/|_|\____/\___/ |__/|__/_/ |_|___/_/

        PROCWAVE | ESTABLISHING PROCESS GRID ...
`

var statusMessages = []string{
	"scanning ports...",
	"probing kernel modules...",
	"enumerating processors...",
	"allocating vectors...",
	"synchronizing clocks...",
	"injecting synthetic load...",
	"hammering memory pages...",
	"amplifying threads...",
	"raising entropy...",
	"warming CPU cores...",
}

var spinnerGlyphs = []byte{'|', '/', '-', '\\'}

const refresh = 120 * time.Millisecond

// Console is the cosmetic status loop.
type Console struct {
	out      io.Writer
	stop     *stopflag.Flag
	label    string
	interval time.Duration
	dryRun   bool

	// limiter caps the fabricated node lines at roughly one per second
	// so they stay decoration instead of scroll.
	limiter *rate.Limiter
	rng     *rand.Rand
	refresh time.Duration
}

// New creates a console writing to out.
func New(out io.Writer, stop *stopflag.Flag, label string, interval time.Duration, dryRun bool) *Console {
	return &Console{
		out:      out,
		stop:     stop,
		label:    label,
		interval: interval,
		dryRun:   dryRun,
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		refresh:  refresh,
	}
}

// Run redraws the status line until done is closed or the stop flag is
// set. Meant to run on its own goroutine alongside the ramp.
func (c *Console) Run(done <-chan struct{}) {
	start := time.Now()
	frame := 0

	for !c.stop.IsSet() {
		select {
		case <-done:
			fmt.Fprintln(c.out)
			return
		default:
		}

		c.drawFrame(frame, time.Since(start))
		if c.rng.Float64() < 0.07 && c.limiter.Allow() {
			c.printFoundNode()
		}

		frame++
		time.Sleep(c.refresh)
	}
	fmt.Fprintln(c.out)
}

func (c *Console) drawFrame(frame int, uptime time.Duration) {
	glyph := spinnerGlyphs[frame%len(spinnerGlyphs)]
	msg := statusMessages[frame%len(statusMessages)]

	line := fmt.Sprintf("%c %s  uptime=%ds  targeting_area=%s  speed=%s",
		glyph, msg, int(uptime.Seconds()), c.label, c.interval)
	if c.dryRun {
		line += "  [dry-run]"
	}
	// Trailing spaces wipe leftovers from the previous, longer line.
	fmt.Fprintf(c.out, "\r%s%s", line, "                    ")
}

// printFoundNode fabricates a discovery line. No worker counts here.
func (c *Console) printFoundNode() {
	ip := fmt.Sprintf("%d.%d.%d.%d",
		c.rng.Intn(254)+1, c.rng.Intn(254)+1, c.rng.Intn(254)+1, c.rng.Intn(254)+1)
	fmt.Fprintf(c.out, "\n[FOUND] node@%s in %s - latency~%dms\n", ip, c.label, c.rng.Intn(200)+1)
}
