package warnings

import (
	"github.com/rs/zerolog"
)

// Hook mirrors zerolog events at or above a threshold level into the
// warnings manager as Log records, so process logs land in the
// database alongside explicit warnings.
type Hook struct {
	mgr *Manager
	min zerolog.Level
}

// NewHook returns a hook forwarding events at min level and above.
func NewHook(mgr *Manager, min zerolog.Level) Hook {
	return Hook{mgr: mgr, min: min}
}

func (h Hook) Run(e *zerolog.Event, level zerolog.Level, message string) {
	if level == zerolog.NoLevel || level < h.min || message == "" {
		return
	}
	// Drop on the floor if the manager is already closed.
	_ = h.mgr.Log(levelShort(level), message, nil)
}

func levelShort(level zerolog.Level) string {
	switch level {
	case zerolog.TraceLevel:
		return "TRCE"
	case zerolog.DebugLevel:
		return "DEBG"
	case zerolog.InfoLevel:
		return "INFO"
	case zerolog.WarnLevel:
		return "WARN"
	case zerolog.ErrorLevel:
		return "ERRO"
	case zerolog.FatalLevel:
		return "FATL"
	case zerolog.PanicLevel:
		return "PANC"
	default:
		return "UNKN"
	}
}
