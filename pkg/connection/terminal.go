// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package connection

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Terminal is a sink for human-readable diagnostic output
type Terminal interface {
	Clean()
	WriteLine(data string)
	Write(data string)
}

// WriterTerminal adapts an io.Writer to Terminal. Clean is a no-op since a
// plain writer cannot be cleared. Writes are serialized so transport
// traces and loader progress can share one writer.
type WriterTerminal struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriterTerminal returns a Terminal writing to w
func NewWriterTerminal(w io.Writer) *WriterTerminal {
	return &WriterTerminal{w: w}
}

func (t *WriterTerminal) Clean() {}

func (t *WriterTerminal) WriteLine(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.w, data)
}

func (t *WriterTerminal) Write(data string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprint(t.w, data)
}

// TerminalWriter returns an io.Writer that forwards each write to term as
// one line, for use with log.New. A nil term discards everything.
func TerminalWriter(term Terminal) io.Writer {
	if term == nil {
		return io.Discard
	}
	return terminalWriter{term}
}

type terminalWriter struct {
	term Terminal
}

func (w terminalWriter) Write(p []byte) (int, error) {
	w.term.WriteLine(strings.TrimRight(string(p), "\n"))
	return len(p), nil
}
