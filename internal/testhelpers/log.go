package testhelpers

import (
	"bytes"
	"io"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// SetupLogger sends the global and context loggers to the test output at
// Debug level, restoring them when the test completes.
func SetupLogger(t *testing.T) {
	t.Helper()

	setLogOutput(t, zerolog.NewTestWriter(t))
}

// CaptureLog behaves like SetupLogger, and additionally returns everything
// logged during the test.
func CaptureLog(t *testing.T) *LogBuffer {
	t.Helper()

	buf := &LogBuffer{}
	setLogOutput(t, zerolog.MultiLevelWriter(zerolog.NewTestWriter(t), buf))

	return buf
}

func setLogOutput(t *testing.T, w io.Writer) {
	t.Helper()

	globalLogger := log.Logger
	t.Cleanup(func() {
		log.Logger = globalLogger
		zerolog.DefaultContextLogger = nil
	})

	log.Logger = log.
		Output(w).
		Level(zerolog.DebugLevel)

	// unless set, the context logger will not log anything
	zerolog.DefaultContextLogger = &log.Logger
}

// LogBuffer collects log output, safe for use from concurrent requests.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
