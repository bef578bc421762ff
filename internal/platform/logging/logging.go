package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// RetentionDays is how long rotated log files are kept.
const RetentionDays = 7

// Config captures logging configuration options.
type Config struct {
	Level    string
	Dir      string
	Filename string
	// Console defaults to os.Stdout.
	Console io.Writer
}

// Logger writes colored text to the console and JSON lines to a daily-rotated file.
type Logger struct {
	config  Config
	level   *slog.LevelVar
	slogger *slog.Logger
	file    *rotatingFile
	ticker  *time.Ticker
	stopCh  chan struct{}
	once    sync.Once
}

// ParseLevel maps a config string to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New creates a Logger. An empty Dir disables file output.
func New(cfg Config) (*Logger, error) {
	level := &slog.LevelVar{}
	level.Set(ParseLevel(cfg.Level))

	console := cfg.Console
	if console == nil {
		console = os.Stdout
	}
	handlers := []slog.Handler{newTextHandler(console, level)}

	l := &Logger{
		config: cfg,
		level:  level,
		stopCh: make(chan struct{}),
	}

	if cfg.Dir != "" {
		if cfg.Filename == "" {
			cfg.Filename = "server.log"
			l.config.Filename = cfg.Filename
		}
		file, err := openRotatingFile(cfg.Dir, cfg.Filename)
		if err != nil {
			return nil, fmt.Errorf("init logging: %w", err)
		}
		l.file = file
		handlers = append(handlers, slog.NewJSONHandler(file, &slog.HandlerOptions{Level: level}))
		l.startRotationChecker()
	}

	l.slogger = slog.New(fanoutHandler{handlers: handlers})
	return l, nil
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *Logger {
	l, _ := New(Config{Level: "error", Console: io.Discard})
	return l
}

// Slog exposes the structured logger for integrations.
func (l *Logger) Slog() *slog.Logger {
	return l.slogger
}

// Close stops rotation and closes the log file.
func (l *Logger) Close() error {
	var err error
	l.once.Do(func() {
		close(l.stopCh)
		if l.ticker != nil {
			l.ticker.Stop()
		}
		if l.file != nil {
			err = l.file.Close()
		}
	})
	return err
}

func (l *Logger) startRotationChecker() {
	l.ticker = time.NewTicker(time.Minute)
	go func() {
		for {
			select {
			case <-l.ticker.C:
				if l.file.rotateIfNeeded(time.Now()) {
					l.cleanOldLogs(time.Now())
					l.InfoTag("BOOT", "log file rotated")
				}
			case <-l.stopCh:
				return
			}
		}
	}()
}

func (l *Logger) cleanOldLogs(now time.Time) {
	entries, err := os.ReadDir(l.config.Dir)
	if err != nil {
		l.Error("read log dir: %v", err)
		return
	}

	cutoff := now.AddDate(0, 0, -RetentionDays)
	ext := filepath.Ext(l.config.Filename)
	base := strings.TrimSuffix(l.config.Filename, ext)

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, base+"-") || !strings.HasSuffix(name, ext) {
			continue
		}
		dateStr := strings.TrimSuffix(strings.TrimPrefix(name, base+"-"), ext)
		fileDate, err := time.Parse("2006-01-02", dateStr)
		if err != nil || !fileDate.Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.config.Dir, name)); err != nil {
			l.Warn("remove old log %s: %v", name, err)
		}
	}
}

func (l *Logger) log(level slog.Level, msg string, args ...any) {
	if l == nil || !l.slogger.Enabled(context.Background(), level) {
		return
	}
	if len(args) > 0 && strings.Contains(msg, "%") {
		l.slogger.Log(context.Background(), level, fmt.Sprintf(msg, args...))
		return
	}
	l.slogger.Log(context.Background(), level, msg, args...)
}

// Debug accepts either printf arguments or slog key/value pairs.
func (l *Logger) Debug(msg string, args ...any) { l.log(slog.LevelDebug, msg, args...) }

func (l *Logger) Info(msg string, args ...any) { l.log(slog.LevelInfo, msg, args...) }

func (l *Logger) Warn(msg string, args ...any) { l.log(slog.LevelWarn, msg, args...) }

func (l *Logger) Error(msg string, args ...any) { l.log(slog.LevelError, msg, args...) }

// FormatLog prefixes message with a single bracketed tag, e.g. FormatLog("HTTP", "up") -> "[HTTP] up".
// Messages that already start with "[" are returned untouched.
func FormatLog(tag, message string) string {
	tag = strings.TrimSpace(tag)
	message = strings.TrimSpace(message)
	if tag == "" || strings.HasPrefix(message, "[") {
		return message
	}
	return fmt.Sprintf("[%s] %s", tag, message)
}

func (l *Logger) DebugTag(tag, msg string, args ...any) {
	l.log(slog.LevelDebug, FormatLog(tag, msg), args...)
}

func (l *Logger) InfoTag(tag, msg string, args ...any) {
	l.log(slog.LevelInfo, FormatLog(tag, msg), args...)
}

func (l *Logger) WarnTag(tag, msg string, args ...any) {
	l.log(slog.LevelWarn, FormatLog(tag, msg), args...)
}

func (l *Logger) ErrorTag(tag, msg string, args ...any) {
	l.log(slog.LevelError, FormatLog(tag, msg), args...)
}

// rotatingFile is an io.Writer that moves the current file aside when the date changes.
type rotatingFile struct {
	mu          sync.Mutex
	dir         string
	name        string
	file        *os.File
	currentDate string
}

func openRotatingFile(dir, name string) (*rotatingFile, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, name), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return &rotatingFile{
		dir:         dir,
		name:        name,
		file:        f,
		currentDate: time.Now().Format("2006-01-02"),
	}, nil
}

func (r *rotatingFile) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return len(p), nil
	}
	return r.file.Write(p)
}

func (r *rotatingFile) rotateIfNeeded(now time.Time) bool {
	today := now.Format("2006-01-02")

	r.mu.Lock()
	defer r.mu.Unlock()
	if today == r.currentDate || r.file == nil {
		return false
	}

	_ = r.file.Close()
	current := filepath.Join(r.dir, r.name)
	ext := filepath.Ext(r.name)
	archived := filepath.Join(r.dir, fmt.Sprintf("%s-%s%s", strings.TrimSuffix(r.name, ext), r.currentDate, ext))
	_ = os.Rename(current, archived)

	f, err := os.OpenFile(current, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		r.file = nil
		return false
	}
	r.file = f
	r.currentDate = today
	return true
}

func (r *rotatingFile) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
