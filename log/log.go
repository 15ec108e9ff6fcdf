package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync/atomic"
)

// Logger wraps a standard library logger with a quiet switch. Quiet mode
// drops informational output; warnings and fatal messages always go out.
type Logger struct {
	l     *log.Logger
	quiet atomic.Bool
}

const warnPrefix = "warning: "

var std = NewFromLogger(log.New(os.Stderr, "titlex: ", 0))

// Default returns the standard logger used by the package-level output functions.
func Default() *Logger { return std }

func New(out io.Writer, prefix string, flag int) *Logger {
	return NewFromLogger(log.New(out, prefix, flag))
}

func NewFromLogger(l *log.Logger) *Logger {
	return &Logger{l: l}
}

// Quiet reports whether informational output is suppressed.
func (l *Logger) Quiet() bool {
	return l.quiet.Load()
}

// SetQuiet turns informational output off or back on.
func (l *Logger) SetQuiet(quiet bool) {
	l.quiet.Store(quiet)
}

// SetOutput sets the output destination for the logger.
func (l *Logger) SetOutput(w io.Writer) {
	l.l.SetOutput(w)
}

// Output writes the output for a logging event regardless of quiet mode.
// Calldepth is used to recover the PC when [log.Lshortfile] is set.
func (l *Logger) Output(calldepth int, s string) error {
	return l.l.Output(calldepth+1, s)
}

// Print calls l.Output to print to the logger unless it is quiet.
// Arguments are handled in the manner of [fmt.Print].
func (l *Logger) Print(v ...any) {
	if l.Quiet() {
		return
	}
	l.l.Output(2, fmt.Sprint(v...))
}

// Printf calls l.Output to print to the logger unless it is quiet.
// Arguments are handled in the manner of [fmt.Printf].
func (l *Logger) Printf(format string, v ...any) {
	if l.Quiet() {
		return
	}
	l.l.Output(2, fmt.Sprintf(format, v...))
}

// Println calls l.Output to print to the logger unless it is quiet.
// Arguments are handled in the manner of [fmt.Println].
func (l *Logger) Println(v ...any) {
	if l.Quiet() {
		return
	}
	l.l.Output(2, fmt.Sprintln(v...))
}

// Warn prints a warning. Warnings ignore quiet mode.
func (l *Logger) Warn(v ...any) {
	l.l.Output(2, warnPrefix+fmt.Sprint(v...))
}

// Warnf prints a formatted warning. Warnings ignore quiet mode.
func (l *Logger) Warnf(format string, v ...any) {
	l.l.Output(2, warnPrefix+fmt.Sprintf(format, v...))
}

// Fatal is equivalent to l.Print() followed by a call to [os.Exit](1), but
// is never silenced.
func (l *Logger) Fatal(v ...any) {
	l.l.Output(2, fmt.Sprint(v...))
	os.Exit(1)
}

// Fatalf is equivalent to l.Printf() followed by a call to [os.Exit](1), but
// is never silenced.
func (l *Logger) Fatalf(format string, v ...any) {
	l.l.Output(2, fmt.Sprintf(format, v...))
	os.Exit(1)
}

// Fatalln is equivalent to l.Println() followed by a call to [os.Exit](1),
// but is never silenced.
func (l *Logger) Fatalln(v ...any) {
	l.l.Output(2, fmt.Sprintln(v...))
	os.Exit(1)
}

// Flags returns the output flags for the logger.
// The flag bits are [log.Ldate], [log.Ltime], and so on.
func (l *Logger) Flags() int {
	return l.l.Flags()
}

// SetFlags sets the output flags for the logger.
func (l *Logger) SetFlags(flag int) {
	l.l.SetFlags(flag)
}

// Prefix returns the output prefix for the logger.
func (l *Logger) Prefix() string {
	return l.l.Prefix()
}

// SetPrefix sets the output prefix for the logger.
func (l *Logger) SetPrefix(prefix string) {
	l.l.SetPrefix(prefix)
}

// Writer returns the output destination for the logger.
func (l *Logger) Writer() io.Writer {
	return l.l.Writer()
}

// SetOutput sets the output destination for the standard logger.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetQuiet sets quiet mode on the standard logger.
func SetQuiet(quiet bool) {
	std.SetQuiet(quiet)
}

// SetFlags sets the output flags for the standard logger.
func SetFlags(flag int) {
	std.SetFlags(flag)
}

// SetPrefix sets the output prefix for the standard logger.
func SetPrefix(prefix string) {
	std.SetPrefix(prefix)
}

// Writer returns the output destination for the standard logger.
func Writer() io.Writer {
	return std.Writer()
}

// These functions write to the standard logger.

// Print calls Output to print to the standard logger.
// Arguments are handled in the manner of [fmt.Print].
func Print(v ...any) {
	std.Print(v...)
}

// Printf calls Output to print to the standard logger.
// Arguments are handled in the manner of [fmt.Printf].
func Printf(format string, v ...any) {
	std.Printf(format, v...)
}

// Println calls Output to print to the standard logger.
// Arguments are handled in the manner of [fmt.Println].
func Println(v ...any) {
	std.Println(v...)
}

// Warnf prints a formatted warning to the standard logger.
func Warnf(format string, v ...any) {
	std.Warnf(format, v...)
}

// Fatal is equivalent to [Print] followed by a call to [os.Exit](1).
func Fatal(v ...any) {
	std.Fatal(v...)
}

// Fatalf is equivalent to [Printf] followed by a call to [os.Exit](1).
func Fatalf(format string, v ...any) {
	std.Fatalf(format, v...)
}

// Fatalln is equivalent to [Println] followed by a call to [os.Exit](1).
func Fatalln(v ...any) {
	std.Fatalln(v...)
}
