package client

import (
	"io"
	"sync"
	"time"
)

// idleWatchdogReader wraps a stream body and fires onIdle when no bytes
// arrive for the idle duration. The timer resets on every successful read,
// so a slow but live stream never trips it.
type idleWatchdogReader struct {
	r      io.Reader
	idle   time.Duration
	onIdle func()

	mu    sync.Mutex
	timer *time.Timer
}

func newIdleWatchdogReader(r io.Reader, idle time.Duration, onIdle func()) *idleWatchdogReader {
	w := &idleWatchdogReader{r: r, idle: idle, onIdle: onIdle}
	w.timer = time.AfterFunc(idle, onIdle)
	return w
}

func (w *idleWatchdogReader) Read(p []byte) (int, error) {
	n, err := w.r.Read(p)
	if n > 0 {
		w.mu.Lock()
		if w.timer != nil {
			w.timer.Reset(w.idle)
		}
		w.mu.Unlock()
	}
	return n, err
}

// Stop disarms the watchdog. Safe to call more than once.
func (w *idleWatchdogReader) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
