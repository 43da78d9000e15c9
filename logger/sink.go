package logger

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/afero"
)

// Sink receives timestamped log messages from the integrity engine.
type Sink interface {
	Log(timestamp time.Time, level charmlog.Level, message string)
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) Log(time.Time, charmlog.Level, string) {}

// ConsoleSink forwards messages to a charm logger.
type ConsoleSink struct {
	Logger *charmlog.Logger
}

func (s ConsoleSink) Log(_ time.Time, level charmlog.Level, message string) {
	if s.Logger == nil {
		return
	}
	s.Logger.Log(level, message)
}

// Multi fans a message out to several sinks.
type Multi []Sink

func (m Multi) Log(timestamp time.Time, level charmlog.Level, message string) {
	for _, sink := range m {
		if sink != nil {
			sink.Log(timestamp, level, message)
		}
	}
}

// EventLog appends human readable lines to a file. It never truncates.
type EventLog struct {
	mutex    sync.Mutex
	file     afero.File
	path     string
	minLevel charmlog.Level
}

// EventTimeFormat is the timestamp layout of event log lines.
const EventTimeFormat = "2006-01-02 15:04:05"

// OpenEventLog opens path for appending, creating it if needed.
func OpenEventLog(fsys afero.Fs, path string, minLevel charmlog.Level) (*EventLog, error) {
	file, err := fsys.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open event log: %w", err)
	}
	return &EventLog{file: file, path: path, minLevel: minLevel}, nil
}

// Path returns the file the event log appends to.
func (e *EventLog) Path() string {
	return e.path
}

func (e *EventLog) Log(timestamp time.Time, level charmlog.Level, message string) {
	if level < e.minLevel {
		return
	}

	line := fmt.Sprintf("[%s] %s %s\n", timestamp.Format(EventTimeFormat), strings.ToUpper(level.String()), message)

	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.file == nil {
		return
	}
	_, _ = e.file.WriteString(line)
}

// Close closes the underlying file.
func (e *EventLog) Close() error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}

func Debugf(sink Sink, format string, args ...any) {
	logf(sink, charmlog.DebugLevel, format, args...)
}

func Infof(sink Sink, format string, args ...any) {
	logf(sink, charmlog.InfoLevel, format, args...)
}

func Warnf(sink Sink, format string, args ...any) {
	logf(sink, charmlog.WarnLevel, format, args...)
}

func Errorf(sink Sink, format string, args ...any) {
	logf(sink, charmlog.ErrorLevel, format, args...)
}

func logf(sink Sink, level charmlog.Level, format string, args ...any) {
	if sink == nil {
		return
	}
	sink.Log(time.Now(), level, fmt.Sprintf(format, args...))
}
