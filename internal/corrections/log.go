package corrections

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/basaa-mt/translator-api/pkg/log"
	"github.com/google/uuid"
)

// DefaultPath is the log file used when none is configured.
const DefaultPath = "corrections.log"

var separator = strings.Repeat("-", 50)

// Log appends human-readable correction blocks to a plain text file.
// Appends are serialised, so concurrent submissions never interleave.
type Log struct {
	path   string
	mirror Mirror
	now    func() time.Time

	mu sync.Mutex
}

type Option func(*Log)

// WithMirror also stores every record in m. Mirror failures are logged and
// do not fail the append.
func WithMirror(m Mirror) Option {
	return func(l *Log) {
		l.mirror = m
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(l *Log) {
		l.now = now
	}
}

func NewLog(path string, opts ...Option) *Log {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath
	}
	l := &Log{
		path: path,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *Log) Path() string {
	return l.path
}

// Append stamps rec and writes it. The returned record carries the assigned
// ID and timestamp.
func (l *Log) Append(ctx context.Context, rec Record) (Record, error) {
	rec.ID = uuid.NewString()
	rec.Timestamp = l.now()

	if err := l.write(FormatBlock(rec)); err != nil {
		return rec, err
	}

	if l.mirror != nil {
		if err := l.mirror.SaveCorrection(ctx, rec); err != nil {
			log.Warn("Failed to mirror correction %s: %v", rec.ID, err)
		}
	}
	return rec, nil
}

func (l *Log) write(block string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create correction log directory: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open correction log: %w", err)
	}
	if _, err := f.WriteString(block); err != nil {
		_ = f.Close()
		return fmt.Errorf("write correction log: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close correction log: %w", err)
	}
	return nil
}

// FormatBlock renders rec as a log block. The timestamp uses the ANSI C
// layout ("Mon Jan  2 15:04:05 2006").
func FormatBlock(rec Record) string {
	var b strings.Builder
	b.WriteString("\n")
	fmt.Fprintf(&b, "[Correction] %s\n", rec.Timestamp.Format(time.ANSIC))
	fmt.Fprintf(&b, "Direction: %s\n", rec.Direction)
	fmt.Fprintf(&b, "Original: %s\n", rec.Original)
	fmt.Fprintf(&b, "Traduction: %s\n", rec.Translation)
	fmt.Fprintf(&b, "Correction: %s\n", rec.Correction)
	b.WriteString(separator)
	b.WriteString("\n")
	return b.String()
}
