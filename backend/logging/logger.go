package logging

import (
	"io"
	"log"
	"os"
)

// LoggerConfig configures InitLogger.
type LoggerConfig struct {
	// Output defaults to os.Stdout.
	Output io.Writer
	// Prefix defaults to "[Academy] ".
	Prefix       string
	EnableColors bool
}

// InitLogger builds the process-wide *log.Logger.
func InitLogger(config ...LoggerConfig) *log.Logger {
	var cfg LoggerConfig
	if len(config) > 0 {
		cfg = config[0]
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "[Academy] "
	}
	if cfg.EnableColors {
		prefix = "\033[36m" + prefix + "\033[0m"
	}
	return log.New(cfg.Output, prefix, log.LstdFlags|log.LUTC)
}

// Logger is what controllers and services log through.
// args may hold errors, maps of extra fields, or a *models.User-like person.
type Logger interface {
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

type StdLogger struct {
	std *log.Logger
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(std *log.Logger) *StdLogger {
	return &StdLogger{std: std}
}

func (l *StdLogger) print(level, msg string, args []interface{}) {
	if len(args) == 0 {
		l.std.Printf("%s %s", level, msg)
		return
	}
	l.std.Printf("%s %s %+v", level, msg, args)
}

func (l *StdLogger) Info(msg string, args ...interface{})  { l.print("INFO", msg, args) }
func (l *StdLogger) Warn(msg string, args ...interface{})  { l.print("WARN", msg, args) }
func (l *StdLogger) Error(msg string, args ...interface{}) { l.print("ERROR", msg, args) }
