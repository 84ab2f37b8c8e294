package objcmsg

import (
	"sync/atomic"

	"go.uber.org/zap"
)

var logger atomic.Value

func init() {
	logger.Store(zap.NewNop())
}

// Logger returns the logger used by all bridges. It discards everything
// unless SetLogger has been called.
func Logger() *zap.Logger {
	return logger.Load().(*zap.Logger)
}

// SetLogger sets the logger used by all bridges. A nil logger restores the
// default.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger.Store(l)
}
