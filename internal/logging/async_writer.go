package logging

import (
	"io"
	"sync"
)

// AsyncWriter moves writes to a background goroutine so request paths do not wait
// on disk. Write blocks only when the buffer is full. Close drains the buffer and
// closes the wrapped writer.
type AsyncWriter struct {
	w    io.WriteCloser
	ch   chan []byte
	done chan struct{}

	mu     sync.RWMutex
	closed bool
}

func NewAsyncWriter(w io.WriteCloser, buffer int) *AsyncWriter {
	if buffer <= 0 {
		buffer = 1
	}
	aw := &AsyncWriter{
		w:    w,
		ch:   make(chan []byte, buffer),
		done: make(chan struct{}),
	}
	go aw.loop()
	return aw
}

func (aw *AsyncWriter) Write(p []byte) (int, error) {
	aw.mu.RLock()
	defer aw.mu.RUnlock()
	if aw.closed {
		return 0, io.ErrClosedPipe
	}

	// slog handlers reuse their buffers
	buf := make([]byte, len(p))
	copy(buf, p)
	aw.ch <- buf
	return len(p), nil
}

func (aw *AsyncWriter) loop() {
	defer close(aw.done)
	for buf := range aw.ch {
		_, _ = aw.w.Write(buf)
	}
}

func (aw *AsyncWriter) Close() error {
	aw.mu.Lock()
	if aw.closed {
		aw.mu.Unlock()
		return nil
	}
	aw.closed = true
	close(aw.ch)
	aw.mu.Unlock()

	<-aw.done
	return aw.w.Close()
}
