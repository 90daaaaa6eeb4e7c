package obs

import "github.com/yanun0323/logs"

// Sink is the diagnostics capability handed to the core components. The core
// never touches process-wide logging state; callers decide where diagnostics
// go (default logger, a test recorder, or nowhere).
type Sink interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// Logs returns a Sink backed by the default structured logger.
func Logs() Sink { return logsSink{} }

// Nop returns a Sink that discards everything.
func Nop() Sink { return nopSink{} }

type logsSink struct{}

func (logsSink) Debugf(format string, args ...any) { logs.Debugf(format, args...) }
func (logsSink) Infof(format string, args ...any)  { logs.Infof(format, args...) }
func (logsSink) Warnf(format string, args ...any)  { logs.Warnf(format, args...) }
func (logsSink) Errorf(format string, args ...any) { logs.Errorf(format, args...) }

type nopSink struct{}

func (nopSink) Debugf(string, ...any) {}
func (nopSink) Infof(string, ...any)  {}
func (nopSink) Warnf(string, ...any)  {}
func (nopSink) Errorf(string, ...any) {}
