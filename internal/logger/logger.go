// Package logger provides the broker's structured logging: a compact
// colorized console format over log/slog, written to stdout and a daily
// log file under a configured directory. Files older than the retention
// window are pruned whenever a new day's file is opened.
package logger

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
)

// LevelFatal marks errors the broker cannot continue past.
const LevelFatal slog.Level = slog.LevelError + 4

// retention is how long rotated daily files are kept.
const retention = 30 * 24 * time.Hour

func levelTag(l slog.Level) string {
	switch {
	case l >= LevelFatal:
		return color.HiRedString("FTL")
	case l >= slog.LevelError:
		return color.RedString("ERR")
	case l >= slog.LevelWarn:
		return color.YellowString("WRN")
	case l >= slog.LevelInfo:
		return color.GreenString("INF")
	default:
		return color.MagentaString("DBG")
	}
}

// handler renders each record as one console line and writes it to stdout
// and the current day's file. slog handlers must be safe for concurrent
// use; one shared mutex serializes the writes of every derived handler.
type handler struct {
	mu     *sync.Mutex
	level  slog.Level
	file   *dailyFile
	attrs  string // pre-rendered " k=v" suffix accumulated by WithAttrs
	groups []string
}

func (h *handler) Enabled(_ context.Context, l slog.Level) bool {
	return l >= h.level
}

func (h *handler) Handle(_ context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(color.New(color.Faint).Sprint(r.Time.Format("15:04:05.000")))
	b.WriteByte(' ')
	b.WriteString(levelTag(r.Level))
	b.WriteByte(' ')
	b.WriteString(r.Message)
	b.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		b.WriteString(h.formatAttr(a))
		return true
	})
	b.WriteByte('\n')
	line := []byte(b.String())

	h.mu.Lock()
	defer h.mu.Unlock()
	_, _ = os.Stdout.Write(line)
	if h.file != nil {
		_, _ = h.file.Write(line)
	}
	return nil
}

func (h *handler) formatAttr(a slog.Attr) string {
	key := a.Key
	if len(h.groups) > 0 {
		key = strings.Join(h.groups, ".") + "." + key
	}
	return " " + color.CyanString(key) + "=" + a.Value.String()
}

func (h *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	nh := *h
	for _, a := range attrs {
		nh.attrs += h.formatAttr(a)
	}
	return &nh
}

func (h *handler) WithGroup(name string) slog.Handler {
	nh := *h
	nh.groups = append(append([]string(nil), h.groups...), name)
	return &nh
}

// dailyFile appends to <dir>/<yyyy-mm-dd>.log, switching files when the
// date changes. Opening a new day's file also prunes files past the
// retention window. Callers serialize Write; see handler.mu.
type dailyFile struct {
	dir string
	day string
	f   *os.File
}

func (d *dailyFile) Write(p []byte) (int, error) {
	day := time.Now().Format("2006-01-02")
	if d.f == nil || day != d.day {
		if d.f != nil {
			_ = d.f.Close()
		}
		if err := os.MkdirAll(d.dir, 0o755); err != nil {
			return 0, err
		}
		f, err := os.OpenFile(filepath.Join(d.dir, day+".log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return 0, err
		}
		d.f, d.day = f, day
		d.prune()
	}
	return d.f.Write(p)
}

// prune removes daily files whose date falls before the retention cutoff.
// Dates in the yyyy-mm-dd file names compare correctly as strings.
func (d *dailyFile) prune() {
	cutoff := time.Now().Add(-retention).Format("2006-01-02")
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return
	}
	for _, e := range entries {
		name := e.Name()
		if strings.HasSuffix(name, ".log") && strings.TrimSuffix(name, ".log") < cutoff {
			_ = os.Remove(filepath.Join(d.dir, name))
		}
	}
}

func (d *dailyFile) Close() error {
	if d.f == nil {
		return nil
	}
	_ = d.f.Sync()
	return d.f.Close()
}

// Shutdown closes the logger's file; registered with the process's
// graceful-shutdown path.
type Shutdown struct {
	file *dailyFile
}

func (s *Shutdown) Close() error {
	return s.file.Close()
}

// Init installs the broker's default slog logger, writing to dir, at
// Debug level if debugMode is set, Info level otherwise.
func Init(dir string, debugMode bool) *Shutdown {
	level := slog.LevelInfo
	if debugMode {
		level = slog.LevelDebug
	}
	h := &handler{mu: new(sync.Mutex), level: level, file: &dailyFile{dir: dir}}
	slog.SetDefault(slog.New(h))
	slog.Debug("logger initialized", "dir", dir)
	return &Shutdown{file: h.file}
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

func Fatal(msg string, args ...any) {
	slog.Log(context.Background(), LevelFatal, msg, args...)
}
