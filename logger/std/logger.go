package std

import (
	"fmt"
	"io"
	"os"

	"github.com/ezraisw/kvmutex/logger"
)

const prefix = "kvmutex:"

type stdLogger struct {
	out   io.Writer
	err   io.Writer
	debug bool
}

// NewLogger logs info and debug lines to stdout and errors to stderr.
func NewLogger() logger.Logger {
	return NewLoggerWithWriters(os.Stdout, os.Stderr, true)
}

// NewLoggerWithWriters is NewLogger with custom sinks. Debug lines are
// dropped unless debug is set.
func NewLoggerWithWriters(out, err io.Writer, debug bool) logger.Logger {
	return &stdLogger{
		out:   out,
		err:   err,
		debug: debug,
	}
}

// NewNopLogger discards everything.
func NewNopLogger() logger.Logger {
	return NewLoggerWithWriters(io.Discard, io.Discard, false)
}

func (l stdLogger) Info(args ...interface{}) {
	l.write(l.out, args)
}

func (l stdLogger) Debug(args ...interface{}) {
	if !l.debug {
		return
	}
	l.write(l.out, args)
}

func (l stdLogger) Error(args ...interface{}) {
	l.write(l.err, args)
}

func (l stdLogger) write(w io.Writer, args []interface{}) {
	fmt.Fprintln(w, append([]interface{}{prefix}, args...)...)
}
