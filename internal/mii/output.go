package mii

import (
	"bytes"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// outputWaitDelay bounds how long Wait keeps reading output after the
	// child exits, in case a worker it forked still holds the pipe open.
	outputWaitDelay = 2 * time.Second

	maxLineLength = 256 * 1024
)

// lineLogger is an io.Writer that logs each complete line of child output.
// os/exec calls Write from its copy goroutine and Wait does not return
// until that goroutine is done, so no line is lost on exit.
type lineLogger struct {
	mu     sync.Mutex
	log    *logrus.Entry
	prefix string
	buf    bytes.Buffer
}

func newLineLogger(log *logrus.Entry, prefix string) *lineLogger {
	return &lineLogger{log: log, prefix: prefix}
}

func (w *lineLogger) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		i := bytes.IndexByte(w.buf.Bytes(), '\n')
		if i < 0 {
			break
		}
		line := w.buf.Next(i + 1)
		w.emit(line[:i])
	}
	if w.buf.Len() > maxLineLength {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
	return len(p), nil
}

// Flush logs a trailing line that has no newline.
func (w *lineLogger) Flush() {
	if w == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() > 0 {
		w.emit(w.buf.Bytes())
		w.buf.Reset()
	}
}

func (w *lineLogger) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	w.log.Infof("%s%s", w.prefix, line)
}
