package logging

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"
)

// Person identifies the user a report is about.
type Person struct {
	ID       string
	Username string
	Email    string
}

// RollbarLogger forwards warnings and errors to Rollbar and mirrors every
// entry to the wrapped StdLogger.
type RollbarLogger struct {
	std *StdLogger
}

var _ Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *StdLogger, token, env, codeVersion string) *RollbarLogger {
	rollbar.SetToken(token)
	rollbar.SetEnvironment(env)
	rollbar.SetCodeVersion(codeVersion)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

// prepare strips a Person from args and sets it as the Rollbar person.
func (l *RollbarLogger) prepare(msg string, args []interface{}) []interface{} {
	personSet := false
	out := make([]interface{}, 0, len(args)+1)
	out = append(out, msg)
	for _, arg := range args {
		if p, ok := arg.(Person); ok {
			if !personSet {
				rollbar.SetPerson(p.ID, p.Username, p.Email)
				personSet = true
			}
			continue
		}
		out = append(out, arg)
	}
	if !personSet {
		rollbar.ClearPerson()
	}
	return out
}

func (l *RollbarLogger) Info(msg string, args ...interface{}) {
	l.std.Info(msg, args...)
}

func (l *RollbarLogger) Warn(msg string, args ...interface{}) {
	rollbar.Warning(l.prepare(msg, args)...)
	l.std.Warn(msg, args...)
}

func (l *RollbarLogger) Error(msg string, args ...interface{}) {
	rollbar.Error(l.prepare(msg, args)...)
	l.std.Error(msg, args...)
}

// Close flushes queued reports.
func (l *RollbarLogger) Close() {
	rollbar.Close()
}

// New picks the Rollbar logger when a token is configured.
func New(std *log.Logger, rollbarToken, env string) Logger {
	s := NewStdLogger(std)
	if rollbarToken == "" {
		return s
	}
	return NewRollbarLogger(s, rollbarToken, env, "")
}
