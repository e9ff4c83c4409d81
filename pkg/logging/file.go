package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileLoggerConfig holds configuration for file logging
type FileLoggerConfig struct {
	// Path is the log file path
	Path string
	// Format is the output format (json or text)
	Format Format
	// Level is the minimum log level
	Level Level
	// MaxSize is the maximum size in bytes before rotation (0 = no rotation)
	MaxSize int64
	// MaxBackups is the maximum number of backup files to keep
	MaxBackups int
}

// sink is the shared output of a logger and all loggers derived from it
type sink struct {
	mu     sync.Mutex
	out    io.Writer
	format Format
	level  Level

	// rotation, only set for file sinks
	file        *os.File
	path        string
	maxSize     int64
	maxBackups  int
	currentSize int64
}

// StreamLogger writes one line per entry to a file or any io.Writer
type StreamLogger struct {
	sink   *sink
	fields Fields
}

// NewFileLogger creates a logger appending to a file, rotating it by size
func NewFileLogger(config FileLoggerConfig) (*StreamLogger, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	file, err := os.OpenFile(config.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat log file: %w", err)
	}

	return &StreamLogger{
		sink: &sink{
			out:         file,
			format:      config.Format,
			level:       config.Level,
			file:        file,
			path:        config.Path,
			maxSize:     config.MaxSize,
			maxBackups:  config.MaxBackups,
			currentSize: info.Size(),
		},
	}, nil
}

// NewWriterLogger creates a logger writing to w (typically stderr)
func NewWriterLogger(w io.Writer, format Format, level Level) *StreamLogger {
	return &StreamLogger{
		sink: &sink{
			out:    w,
			format: format,
			level:  level,
		},
	}
}

func (l *StreamLogger) Debug(ctx context.Context, msg string, fields Fields) {
	l.log(DebugLevel, msg, nil, fields)
}

func (l *StreamLogger) Info(ctx context.Context, msg string, fields Fields) {
	l.log(InfoLevel, msg, nil, fields)
}

func (l *StreamLogger) Warn(ctx context.Context, msg string, fields Fields) {
	l.log(WarnLevel, msg, nil, fields)
}

func (l *StreamLogger) Error(ctx context.Context, msg string, err error, fields Fields) {
	l.log(ErrorLevel, msg, err, fields)
}

// WithFields returns a logger sharing the same output with additional fields
func (l *StreamLogger) WithFields(fields Fields) Logger {
	return &StreamLogger{
		sink:   l.sink,
		fields: mergeFields(l.fields, fields),
	}
}

// Close closes the underlying file, if any
func (l *StreamLogger) Close() error {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	s.out = io.Discard
	return err
}

func (l *StreamLogger) log(level Level, msg string, err error, fields Fields) {
	s := l.sink
	if level < s.level {
		return
	}

	all := mergeFields(l.fields, fields)
	now := time.Now().UTC()

	var line []byte
	if s.format == FormatJSON {
		line = formatJSON(now, level, msg, err, all)
	} else {
		line = formatText(now, level, msg, err, all)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.file != nil && s.maxSize > 0 && s.currentSize >= s.maxSize {
		s.rotate()
	}

	n, _ := s.out.Write(line)
	s.currentSize += int64(n)
}

func formatJSON(ts time.Time, level Level, msg string, err error, fields Fields) []byte {
	entry := make(map[string]interface{}, len(fields)+4)
	for k, v := range fields {
		entry[k] = v
	}
	entry["timestamp"] = ts.Format(time.RFC3339)
	entry["level"] = LevelString(level)
	entry["message"] = msg
	if err != nil {
		entry["error"] = err.Error()
	}

	data, jsonErr := json.Marshal(entry)
	if jsonErr != nil {
		data, _ = json.Marshal(map[string]string{
			"timestamp": ts.Format(time.RFC3339),
			"level":     LevelString(level),
			"message":   msg,
			"log_error": jsonErr.Error(),
		})
	}
	return append(data, '\n')
}

func formatText(ts time.Time, level Level, msg string, err error, fields Fields) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s] %s", ts.Format("2006-01-02T15:04:05.000Z"), LevelString(level), msg)

	if err != nil {
		fmt.Fprintf(&b, " error=%q", err.Error())
	}

	// Sorted keys keep lines stable between runs
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, fields[k])
	}

	b.WriteByte('\n')
	return []byte(b.String())
}

// rotate shifts path.N to path.N+1, moves the current file to path.1 and reopens.
// Must be called with the lock held.
func (s *sink) rotate() {
	s.file.Close()

	for i := s.maxBackups - 1; i >= 1; i-- {
		os.Rename(fmt.Sprintf("%s.%d", s.path, i), fmt.Sprintf("%s.%d", s.path, i+1))
	}

	if s.maxBackups > 0 {
		os.Rename(s.path, s.path+".1")
		os.Remove(fmt.Sprintf("%s.%d", s.path, s.maxBackups+1))
	} else {
		os.Remove(s.path)
	}

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		s.file = nil
		s.out = io.Discard
		return
	}

	s.file = file
	s.out = file
	s.currentSize = 0
}
