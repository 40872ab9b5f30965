package terminal

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// pagingWriter stops passing output through once limit lines have been
// written since the last Reset. A limit of zero disables it.
type pagingWriter struct {
	w         io.Writer
	limit     int
	lines     int
	truncated bool
}

func (pw *pagingWriter) Write(p []byte) (int, error) {
	if pw.limit <= 0 {
		return pw.w.Write(p)
	}
	if pw.truncated {
		return len(p), nil
	}

	n := strings.Count(string(p), "\n")
	if pw.lines+n <= pw.limit {
		pw.lines += n
		return pw.w.Write(p)
	}

	// Write up to the line that crosses the limit.
	rest := pw.limit - pw.lines
	cut := 0
	for i := 0; i < rest; i++ {
		cut += strings.IndexByte(string(p[cut:]), '\n') + 1
	}
	if _, err := pw.w.Write(p[:cut]); err != nil {
		return 0, err
	}
	pw.lines = pw.limit
	pw.truncated = true
	fmt.Fprintf(pw.w, "... output truncated after %d lines\n", pw.limit)
	return len(p), nil
}

func (pw *pagingWriter) Reset() {
	pw.lines = 0
	pw.truncated = false
}

// transcriptWriter writes to the terminal and, once TranscriptTo was
// called, to a transcript file as well.
type transcriptWriter struct {
	fileOnly bool
	pw       *pagingWriter
	file     *bufio.Writer
	fh       io.Closer
}

func (w *transcriptWriter) Write(p []byte) (int, error) {
	if w.file != nil {
		w.file.Write(p)
	}
	if w.fileOnly {
		return len(p), nil
	}
	return w.pw.Write(p)
}

// Echo writes s to the transcript only.
func (w *transcriptWriter) Echo(s string) {
	if w.file != nil {
		w.file.WriteString(s)
	}
}

func (w *transcriptWriter) Flush() {
	if w.file != nil {
		w.file.Flush()
	}
}

// TranscriptTo starts a transcript in path, closing the previous one.
func (w *transcriptWriter) TranscriptTo(path string, fileOnly bool) error {
	if err := w.CloseTranscript(); err != nil {
		return err
	}
	fh, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	w.fh = fh
	w.file = bufio.NewWriter(fh)
	w.fileOnly = fileOnly
	return nil
}

func (w *transcriptWriter) CloseTranscript() error {
	if w.file == nil {
		return nil
	}
	w.file.Flush()
	w.fileOnly = false
	err := w.fh.Close()
	w.file = nil
	w.fh = nil
	return err
}
