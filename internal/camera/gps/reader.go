package gps

import (
	"bufio"
	"context"
	"io"
	"os"
	"sync"
	"time"
)

// PortOpener opens the serial line the receiver is attached to.
type PortOpener func() (io.ReadCloser, error)

// DevicePort returns a PortOpener for a tty device path such as /dev/ttyS0.
// The line discipline (9600 8N1 for the reference receiver) is assumed to be
// configured by the OS.
func DevicePort(path string) PortOpener {
	return func() (io.ReadCloser, error) {
		return os.OpenFile(path, os.O_RDONLY, 0)
	}
}

// Reader reads fixes from a serial NMEA source. A single read is in flight
// at a time; concurrent callers block on the internal mutex.
type Reader struct {
	open    PortOpener
	timeout time.Duration

	mu sync.Mutex

	now func() time.Time
}

func NewReader(open PortOpener, timeout time.Duration) *Reader {
	return &Reader{open: open, timeout: timeout, now: time.Now}
}

// Read opens the port and scans sentences until a valid fix arrives or the
// timeout elapses. On timeout (or any port error) it returns the NoFix
// sentinel and a nil error: an absent fix is an expected local condition,
// never a pipeline failure.
func (r *Reader) Read(ctx context.Context) Fix {
	r.mu.Lock()
	defer r.mu.Unlock()

	port, err := r.open()
	if err != nil {
		return NoFix
	}

	fixes := make(chan Fix, 1)

	go func() {
		defer close(fixes)
		scanner := bufio.NewScanner(port)
		for scanner.Scan() {
			if fix, ok := ParseSentence(scanner.Text(), r.now()); ok {
				fixes <- fix
				return
			}
		}
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()

	var fix Fix
	select {
	case got, ok := <-fixes:
		if !ok {
			// Source drained without a valid sentence.
			got = NoFix
		}
		fix = got
	case <-timer.C:
		fix = NoFix
	case <-ctx.Done():
		fix = NoFix
	}

	// Closing the port unblocks the scanner goroutine on timeout paths.
	port.Close()
	return fix
}
