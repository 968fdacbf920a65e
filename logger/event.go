package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Category string

const (
	CategoryConfig   Category = "config"
	CategoryModule   Category = "module"
	CategoryCommand  Category = "command"
	CategoryDatabase Category = "database"
	CategoryDiscord  Category = "discord"
)

type Verbosity int

const (
	VerbosityDebug Verbosity = iota
	VerbosityInfo
	VerbosityWarning
	VerbosityError
)

func (v Verbosity) level() zapcore.Level {
	switch v {
	case VerbosityDebug:
		return zapcore.DebugLevel
	case VerbosityWarning:
		return zapcore.WarnLevel
	case VerbosityError:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Event is a categorized log record. Location names the component or
// function that produced it.
type Event struct {
	Category    Category
	Location    string
	Description string
}

// LogEvent writes ev at the given verbosity. It never fails.
func (l *Logger) LogEvent(ev Event, v Verbosity, fields ...zap.Field) {
	if ce := l.log.Check(v.level(), ev.Description); ce != nil {
		ce.Write(append([]zap.Field{
			zap.String("category", string(ev.Category)),
			zap.String("location", ev.Location),
		}, fields...)...)
	}
}
