package logmon

import (
	"container/ring"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ParseLevel maps a config value to a level, defaulting to info
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

type LogMonitor struct {
	clients  map[chan string]bool
	mu       sync.RWMutex
	buffer   *ring.Ring
	bufferMu sync.RWMutex

	stdout io.Writer

	level      LogLevel
	prefix     string
	timeFormat string
}

func NewLogMonitor() *LogMonitor {
	return NewLogMonitorWriter(os.Stdout)
}

func NewLogMonitorWriter(stdout io.Writer) *LogMonitor {
	return &LogMonitor{
		clients: make(map[chan string]bool),
		buffer:  ring.New(10 * 1024), // keep the last 10K writes
		stdout:  stdout,
		level:   LevelInfo,
	}
}

func (w *LogMonitor) Write(p []byte) (n int, err error) {
	n, err = w.stdout.Write(p)
	if err != nil {
		return n, err
	}

	content := string(p)

	w.bufferMu.Lock()
	w.buffer.Value = content
	w.buffer = w.buffer.Next()
	w.bufferMu.Unlock()

	w.Broadcast(content)
	return n, nil
}

func (w *LogMonitor) History() string {
	w.bufferMu.RLock()
	defer w.bufferMu.RUnlock()

	var history strings.Builder
	w.buffer.Do(func(p interface{}) {
		if p != nil {
			if content, ok := p.(string); ok {
				history.WriteString(content)
			}
		}
	})
	return history.String()
}

func (w *LogMonitor) Subscribe() chan string {
	w.mu.Lock()
	defer w.mu.Unlock()

	ch := make(chan string, 100)
	w.clients[ch] = true
	return ch
}

func (w *LogMonitor) Unsubscribe(ch chan string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.clients[ch]; !ok {
		return
	}
	delete(w.clients, ch)
	close(ch)
}

func (w *LogMonitor) Broadcast(msg string) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	for client := range w.clients {
		select {
		case client <- msg:
		default:
			// If client buffer is full, skip
		}
	}
}

func (w *LogMonitor) SetPrefix(prefix string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.prefix = prefix
}

func (w *LogMonitor) SetLogLevel(level LogLevel) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.level = level
}

// SetLogTimeFormat sets a time.Format layout prepended to every line, empty disables it
func (w *LogMonitor) SetLogTimeFormat(format string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timeFormat = format
}

func (w *LogMonitor) formatMessage(level LogLevel, msg string) []byte {
	w.mu.RLock()
	prefix, timeFormat := w.prefix, w.timeFormat
	w.mu.RUnlock()

	var b strings.Builder
	if timeFormat != "" {
		b.WriteString(time.Now().Format(timeFormat))
		b.WriteByte(' ')
	}
	if prefix != "" {
		b.WriteString("[" + prefix + "] ")
	}
	b.WriteString("[" + strings.ToUpper(level.String()) + "] ")
	b.WriteString(msg)
	if !strings.HasSuffix(msg, "\n") {
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

func (w *LogMonitor) log(level LogLevel, msg string) {
	w.mu.RLock()
	enabled := level >= w.level
	w.mu.RUnlock()

	if !enabled {
		return
	}
	w.Write(w.formatMessage(level, msg))
}

func (w *LogMonitor) Debug(msg string) {
	w.log(LevelDebug, msg)
}

func (w *LogMonitor) Info(msg string) {
	w.log(LevelInfo, msg)
}

func (w *LogMonitor) Warn(msg string) {
	w.log(LevelWarn, msg)
}

func (w *LogMonitor) Error(msg string) {
	w.log(LevelError, msg)
}

func (w *LogMonitor) Debugf(format string, args ...interface{}) {
	w.log(LevelDebug, fmt.Sprintf(format, args...))
}

func (w *LogMonitor) Infof(format string, args ...interface{}) {
	w.log(LevelInfo, fmt.Sprintf(format, args...))
}

func (w *LogMonitor) Warnf(format string, args ...interface{}) {
	w.log(LevelWarn, fmt.Sprintf(format, args...))
}

func (w *LogMonitor) Errorf(format string, args ...interface{}) {
	w.log(LevelError, fmt.Sprintf(format, args...))
}
