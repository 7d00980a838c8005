package archive

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"voxeldestruct/internal/destruction"
)

const logPrefix = "events"

// EventLog appends completed-event records as zstd-compressed JSON lines,
// one file per UTC hour of completion.
type EventLog struct {
	dir string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewEventLog(dir string) *EventLog {
	return &EventLog{dir: dir}
}

func (l *EventLog) Write(rec destruction.EventRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	hour := rec.CompletedAt.UTC().Format("2006-01-02-15")
	if hour != l.curHour {
		if err := l.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode %s: %w", rec.ID, err)
	}
	if _, err := l.w.Write(b); err != nil {
		return err
	}
	if err := l.w.WriteByte('\n'); err != nil {
		return err
	}
	if err := l.w.Flush(); err != nil {
		return err
	}
	// Push the pending zstd block to the file so a crash keeps the record.
	return l.enc.Flush()
}

// PathForHour returns the file that holds records completed in hour,
// formatted as 2006-01-02-15.
func (l *EventLog) PathForHour(hour string) string {
	return filepath.Join(l.dir, fmt.Sprintf("%s-%s.jsonl.zst", logPrefix, hour))
}

// Files lists the log files in the directory, oldest first.
func (l *EventLog) Files() ([]string, error) {
	return filepath.Glob(filepath.Join(l.dir, logPrefix+"-*.jsonl.zst"))
}

func (l *EventLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closeLocked()
}

func (l *EventLog) rotateLocked(hour string) error {
	if err := l.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.PathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	l.f = f
	l.enc = enc
	l.w = bufio.NewWriterSize(enc, 64*1024)
	l.curHour = hour
	return nil
}

func (l *EventLog) closeLocked() error {
	var errs []error
	if l.w != nil {
		if err := l.w.Flush(); err != nil {
			errs = append(errs, fmt.Errorf("flush: %w", err))
		}
	}
	if l.enc != nil {
		if err := l.enc.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close encoder: %w", err))
		}
		l.enc = nil
	}
	if l.f != nil {
		if err := l.f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close file: %w", err))
		}
		l.f = nil
	}
	l.w = nil
	l.curHour = ""
	return errors.Join(errs...)
}

// ReadLog decodes every record in a log file. Files that were appended to
// across runs hold several zstd frames; they are read as one stream.
func ReadLog(path string) ([]destruction.EventRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer dec.Close()

	var out []destruction.EventRecord
	scanner := bufio.NewScanner(dec)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var rec destruction.EventRecord
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			return out, fmt.Errorf("%s:%d: %w", path, line, err)
		}
		out = append(out, rec)
	}
	if err := scanner.Err(); err != nil {
		return out, fmt.Errorf("read %s: %w", path, err)
	}
	return out, nil
}
