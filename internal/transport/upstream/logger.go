package upstream

import (
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
)

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)

// leveledLogger routes retryablehttp's request/retry logs into zap.
// Per-request chatter goes to debug; retries and failures keep their level.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func newLeveledLogger(l *zap.Logger) *leveledLogger {
	if l == nil {
		l = zap.NewNop()
	}
	return &leveledLogger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *leveledLogger) Error(msg string, keysAndValues ...any) { l.s.Errorw(msg, keysAndValues...) }
func (l *leveledLogger) Info(msg string, keysAndValues ...any)  { l.s.Debugw(msg, keysAndValues...) }
func (l *leveledLogger) Debug(msg string, keysAndValues ...any) { l.s.Debugw(msg, keysAndValues...) }
func (l *leveledLogger) Warn(msg string, keysAndValues ...any)  { l.s.Warnw(msg, keysAndValues...) }
