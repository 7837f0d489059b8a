package obs

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Level controls which log lines are emitted.
type Level int32

const (
	LevelDebug Level = iota
	LevelInfo
	LevelError
	LevelSilent
)

var (
	loggerOnce sync.Once
	logger     *log.Logger
	level      atomic.Int32
)

func init() {
	level.Store(int32(LevelInfo))
}

// Logger returns the shared JSON-lines logger. It writes to stderr so command
// output on stdout stays machine readable.
func Logger() *log.Logger {
	loggerOnce.Do(func() {
		logger = log.New(os.Stderr, "", 0)
	})
	return logger
}

// SetOutput redirects the shared logger.
func SetOutput(w io.Writer) {
	Logger().SetOutput(w)
}

// ParseLevel maps debug/info/error/silent to a Level; unknown values mean info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "error":
		return LevelError
	case "silent", "off", "none":
		return LevelSilent
	default:
		return LevelInfo
	}
}

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelError:
		return "error"
	case LevelSilent:
		return "silent"
	default:
		return "info"
	}
}

// SetLevel sets the minimum level written by the shared logger.
func SetLevel(l Level) { level.Store(int32(l)) }

// Enabled reports whether lines at l are written.
func Enabled(l Level) bool {
	return l < LevelSilent && l >= Level(level.Load())
}

// LogRequest emits a structured JSON line describing one HTTP exchange.
// Request lines are debug level.
func LogRequest(entry map[string]any) {
	write(LevelDebug, "request", entry)
}

// Info emits an info line with optional fields.
func Info(msg string, fields map[string]any) { write(LevelInfo, msg, fields) }

// Error emits an error line with optional fields.
func Error(msg string, fields map[string]any) { write(LevelError, msg, fields) }

func write(l Level, msg string, fields map[string]any) {
	if !Enabled(l) {
		return
	}
	entry := make(map[string]any, len(fields)+3)
	for k, v := range fields {
		entry[k] = v
	}
	entry["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	entry["level"] = l.String()
	entry["msg"] = msg
	WriteJSON(entry)
}

// WriteJSON marshals entry and prints it as one line, bypassing level checks.
func WriteJSON(entry map[string]any) {
	data, err := json.Marshal(entry)
	if err != nil {
		Logger().Println(`{"level":"error","msg":"log marshal failed"}`)
		return
	}
	Logger().Println(string(data))
}
