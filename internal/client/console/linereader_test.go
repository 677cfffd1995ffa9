package console

import (
	"bufio"
	"context"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineReader_ReadLine(t *testing.T) {
	l := NewLineReader(strings.NewReader("one\ntwo\nlast"))
	ctx := context.Background()

	for _, want := range []string{"one\n", "two\n", "last"} {
		got, err := l.ReadLine(ctx)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := l.ReadLine(ctx)
	require.ErrorIs(t, err, io.EOF)
	_, err = l.ReadLine(ctx)
	require.ErrorIs(t, err, io.EOF, "EOF is sticky")
}

func TestLineReader_CancelledReadKeepsLineForNextCaller(t *testing.T) {
	pr, pw, err := os.Pipe()
	require.NoError(t, err)
	defer pr.Close()

	l := NewLineReader(pr)

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() {
		_, err := l.ReadLine(ctx)
		errc <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-errc:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("cancelled ReadLine did not return")
	}

	_, err = pw.WriteString("logout\n")
	require.NoError(t, err)
	require.NoError(t, pw.Close())

	got, err := l.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "logout\n", got)
}

func TestLineReader_AlreadyCancelledContext(t *testing.T) {
	l := NewLineReader(strings.NewReader("keep\n"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := l.ReadLine(ctx)
	require.ErrorIs(t, err, context.Canceled)

	got, err := l.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "keep\n", got)
}

func TestLineReader_AsBufioSource(t *testing.T) {
	l := NewLineReader(strings.NewReader("alice\nsecond line\n"))
	r := bufio.NewReaderSize(l, 16)

	first, err := r.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "alice\n", first)

	got, err := l.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "second line\n", got, "bufio must not read ahead of the current line")
}

func TestLineReader_ReadSplitsLongLines(t *testing.T) {
	l := NewLineReader(strings.NewReader("abcdef\n"))
	p := make([]byte, 4)

	n, err := l.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "abcd", string(p[:n]))

	n, err = l.Read(p)
	require.NoError(t, err)
	assert.Equal(t, "ef\n", string(p[:n]))

	_, err = l.Read(p)
	require.ErrorIs(t, err, io.EOF)
}

type countingReader struct {
	r     io.Reader
	reads chan struct{}
}

func (c *countingReader) Read(p []byte) (int, error) {
	c.reads <- struct{}{}
	return c.r.Read(p)
}

func TestLineReader_ReadsOnlyOnDemand(t *testing.T) {
	src := &countingReader{r: strings.NewReader("a\nb\n"), reads: make(chan struct{}, 8)}
	l := NewLineReader(src)

	time.Sleep(20 * time.Millisecond)
	assert.Len(t, src.reads, 0, "nothing is read before the first request")

	got, err := l.ReadLine(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "a\n", got)
	n := len(src.reads)

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, n, len(src.reads), "no read-ahead after a line is delivered")
}
