// Package console shares one interactive input stream between the REPL
// and the fingerprint prompt.
package console

import (
	"bufio"
	"context"
	"io"
	"sync"
)

// LineReader owns the underlying reader through a single goroutine and
// hands out whole lines. Input is read only on demand, one line per
// request, so other consumers of the same file (password prompts) are not
// raced while nobody is waiting for a line. A ReadLine abandoned through
// its context leaves its line to the following caller, so a cancelled
// prompt never swallows input meant for someone else.
//
// LineReader is also an io.Reader for use under bufio.Reader. Read must not
// be called concurrently with itself.
type LineReader struct {
	src   *bufio.Reader
	start sync.Once
	want  chan struct{}
	lines chan string
	done  chan struct{}

	mu       sync.Mutex
	pending  []string
	inFlight bool
	err      error

	buf []byte
}

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{
		src:   bufio.NewReader(r),
		want:  make(chan struct{}, 1),
		lines: make(chan string, 1),
		done:  make(chan struct{}),
	}
}

func (l *LineReader) pump() {
	for range l.want {
		line, err := l.src.ReadString('\n')
		if line != "" {
			l.lines <- line
		}
		if err != nil {
			l.mu.Lock()
			l.err = err
			l.mu.Unlock()
			close(l.done)
			return
		}
	}
}

// ReadLine returns the next line including its trailing newline. The
// final line of the stream may lack one. Once the stream is exhausted the
// read error (io.EOF for a closed stream) is returned.
func (l *LineReader) ReadLine(ctx context.Context) (string, error) {
	l.start.Do(func() { go l.pump() })

	l.mu.Lock()
	if len(l.pending) > 0 {
		line := l.pending[0]
		l.pending = l.pending[1:]
		l.mu.Unlock()
		return line, nil
	}
	if !l.inFlight {
		l.inFlight = true
		select {
		case l.want <- struct{}{}:
		default:
		}
	}
	l.mu.Unlock()

	select {
	case line := <-l.lines:
		return l.deliver(ctx, line)
	case <-l.done:
		select {
		case line := <-l.lines:
			return l.deliver(ctx, line)
		default:
		}
		l.mu.Lock()
		defer l.mu.Unlock()
		return "", l.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (l *LineReader) deliver(ctx context.Context, line string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.inFlight = false
	if err := ctx.Err(); err != nil {
		l.pending = append([]string{line}, l.pending...)
		return "", err
	}
	return line, nil
}

func (l *LineReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if len(l.buf) == 0 {
		line, err := l.ReadLine(context.Background())
		if err != nil {
			return 0, err
		}
		l.buf = []byte(line)
	}
	n := copy(p, l.buf)
	l.buf = l.buf[n:]
	return n, nil
}
