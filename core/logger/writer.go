package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter moves formatting off the caller's goroutine. Lines are
// buffered and flushed whenever the queue drains.
type asyncWriter struct {
	lines   chan []byte
	flushes chan chan error
	done    chan struct{}
	out     *bufio.Writer

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

func newAsyncWriter(writers []io.Writer, queue int) *asyncWriter {
	if queue <= 0 {
		queue = 1024
	}
	w := &asyncWriter{
		lines:   make(chan []byte, queue),
		flushes: make(chan chan error),
		done:    make(chan struct{}),
		out:     bufio.NewWriterSize(io.MultiWriter(writers...), 64*1024),
	}
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.lines:
			if !ok {
				w.fail(w.out.Flush())
				return
			}
			_, err := w.out.Write(line)
			w.fail(err)
			if len(w.lines) == 0 {
				w.fail(w.out.Flush())
			}
		case reply := <-w.flushes:
			for drained := false; !drained; {
				select {
				case line, ok := <-w.lines:
					if !ok {
						drained = true
						break
					}
					_, err := w.out.Write(line)
					w.fail(err)
				default:
					drained = true
				}
			}
			err := w.out.Flush()
			w.fail(err)
			reply <- err
		}
	}
}

func (w *asyncWriter) fail(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

// Write queues a copy of p. It blocks when the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	if err := w.lastErr(); err != nil {
		return err
	}
	w.lines <- append([]byte(nil), p...)
	return nil
}

// Flush waits until every queued line reached the sinks.
func (w *asyncWriter) Flush() error {
	reply := make(chan error, 1)
	select {
	case w.flushes <- reply:
		return <-reply
	case <-w.done:
		return w.lastErr()
	}
}

// Close drains the queue and stops the writer. Later calls are no-ops.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.lines)
	}
	w.mu.Unlock()
	<-w.done
	return w.lastErr()
}

func (w *asyncWriter) lastErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
