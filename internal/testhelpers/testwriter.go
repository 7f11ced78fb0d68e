package testhelpers

import (
	"io"
	"strings"
	"testing"
)

// Writer forwards writes to t.Log so that logs only show up for failing tests.
type Writer struct {
	t        testing.TB
	testDone chan struct{}
}

// NewWriter returns a Writer bound to t. Writing after the test has finished panics, which surfaces goroutines
// that outlive the test such as a server that was never shut down.
func NewWriter(t testing.TB) io.Writer {
	w := &Writer{
		t:        t,
		testDone: make(chan struct{}),
	}
	t.Cleanup(func() {
		close(w.testDone)
	})
	return w
}

func (w *Writer) Write(p []byte) (int, error) {
	select {
	case <-w.testDone:
		panic("testwriter: write after test completion, is the server shut down in t.Cleanup?")
	default:
		if output := strings.TrimSuffix(string(p), "\n"); output != "" {
			w.t.Log(output)
		}
		return len(p), nil
	}
}
