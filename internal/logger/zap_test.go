package logger

import (
	"bytes"
	"testing"
)

func TestLineEndingWriter(t *testing.T) {
	var buf bytes.Buffer
	w := lineEndingWriter{w: &buf}

	if _, err := w.Write([]byte("a\nb\n")); err != nil {
		t.Fatal(err)
	}
	SetRawTerminal(true)
	defer SetRawTerminal(false)
	n, err := w.Write([]byte("c\n"))
	if err != nil || n != 2 {
		t.Fatalf("Write() = %d, %v; want 2, nil", n, err)
	}

	if got := buf.String(); got != "a\nb\nc\r\n" {
		t.Fatalf("got %q", got)
	}
}
