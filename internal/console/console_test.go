package console

import (
	"bytes"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/procwave/procwave/internal/stopflag"
)

// syncBuffer guards the test buffer against the console goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunStopsOnDoneChannel(t *testing.T) {
	out := &syncBuffer{}
	stop := stopflag.New()
	c := New(out, stop, "LAB", 2*time.Second, false)
	c.refresh = time.Millisecond

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		c.Run(done)
		close(finished)
	}()

	time.Sleep(20 * time.Millisecond)
	close(done)

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("console did not stop on done")
	}

	s := out.String()
	assert.Contains(t, s, "targeting_area=LAB")
	assert.Contains(t, s, "uptime=")
}

func TestRunStopsOnStopFlag(t *testing.T) {
	out := &syncBuffer{}
	stop := stopflag.New()
	c := New(out, stop, "GLOBAL", time.Second, true)
	c.refresh = time.Millisecond

	finished := make(chan struct{})
	go func() {
		c.Run(make(chan struct{}))
		close(finished)
	}()

	time.Sleep(20 * time.Millisecond)
	stop.Set()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("console did not observe stop flag")
	}
	assert.Contains(t, out.String(), "[dry-run]")
}

func TestNeverPrintsWorkerCounts(t *testing.T) {
	out := &syncBuffer{}
	stop := stopflag.New()
	c := New(out, stop, "AREA51", 3*time.Second, false)
	c.refresh = time.Millisecond

	done := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		c.Run(done)
		close(finished)
	}()
	time.Sleep(50 * time.Millisecond)
	close(done)
	<-finished

	// The status line carries uptime and speed numbers but must never
	// mention workers or waves.
	s := strings.ToLower(out.String())
	assert.NotContains(t, s, "worker")
	assert.NotContains(t, s, "wave")
}

func TestFoundNodeLineShape(t *testing.T) {
	out := &syncBuffer{}
	c := New(out, stopflag.New(), "GLOBAL", time.Second, false)
	c.printFoundNode()

	s := out.String()
	assert.Contains(t, s, "[FOUND] node@")
	assert.Contains(t, s, "in GLOBAL")

	// Each octet must be in 1..254.
	at := strings.Index(s, "node@")
	rest := s[at+len("node@"):]
	ipEnd := strings.Index(rest, " ")
	for _, octet := range strings.Split(rest[:ipEnd], ".") {
		n, err := strconv.Atoi(octet)
		assert.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)
		assert.LessOrEqual(t, n, 254)
	}
}
