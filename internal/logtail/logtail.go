package logtail

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"
)

const maxLineBytes = 1024 * 1024

// Read returns at most maxLines from the end of the file at path. A
// non-positive maxLines returns every line. A missing file yields no lines.
func Read(path string, maxLines int) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	if maxLines <= 0 {
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read log: %w", err)
		}
		return lines, nil
	}

	ring := make([]string, maxLines)
	count := 0
	idx := 0
	for scanner.Scan() {
		ring[idx] = scanner.Text()
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	lines := make([]string, count)
	if count == maxLines {
		for i := 0; i < count; i++ {
			lines[i] = ring[(idx+i)%maxLines]
		}
	} else {
		copy(lines, ring[:count])
	}
	return lines, nil
}

// Follower reads lines appended to a file since the previous call. It is not
// safe for concurrent use.
type Follower struct {
	path    string
	offset  int64
	partial []byte
}

// NewFollower starts following path from its beginning.
func NewFollower(path string) *Follower {
	return &Follower{path: path}
}

// Path returns the followed file.
func (f *Follower) Path() string {
	return f.path
}

// SkipToEnd moves the follower past everything currently in the file, so
// only lines written afterwards are returned by Next.
func (f *Follower) SkipToEnd() error {
	info, err := os.Stat(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.offset = 0
			f.partial = nil
			return nil
		}
		return fmt.Errorf("stat log: %w", err)
	}
	f.offset = info.Size()
	f.partial = nil
	return nil
}

// Next returns complete lines written since the last call. A trailing line
// without a newline is held back until it is finished. When the file shrank
// (truncated or rotated) reading restarts from the top.
func (f *Follower) Next() ([]string, error) {
	file, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			f.offset = 0
			f.partial = nil
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat log: %w", err)
	}
	if info.Size() < f.offset {
		f.offset = 0
		f.partial = nil
	}
	if info.Size() == f.offset {
		return nil, nil
	}

	if _, err := file.Seek(f.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek log: %w", err)
	}
	chunk, err := io.ReadAll(io.LimitReader(file, info.Size()-f.offset))
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	f.offset += int64(len(chunk))

	data := append(f.partial, chunk...)
	last := bytes.LastIndexByte(data, '\n')
	if last < 0 {
		f.partial = data
		return nil, nil
	}
	f.partial = append([]byte(nil), data[last+1:]...)

	raw := strings.Split(string(data[:last]), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		lines = append(lines, strings.TrimRight(line, "\r"))
	}
	return lines, nil
}

// Entry is one decoded structured log record.
type Entry struct {
	Time    time.Time
	Level   string
	Message string
	Attrs   map[string]string
	Raw     string
}

// Parse decodes a JSON log line as written by slog's JSON handler. Lines that
// are not JSON objects come back with only Raw and Message set.
func Parse(line string) Entry {
	entry := Entry{Raw: line, Message: strings.TrimSpace(line)}
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "{") {
		return entry
	}

	var fields map[string]any
	dec := json.NewDecoder(strings.NewReader(trimmed))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return entry
	}

	if ts, ok := fields["time"].(string); ok {
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			entry.Time = parsed
		}
	}
	if lvl, ok := fields["level"].(string); ok {
		entry.Level = strings.ToUpper(lvl)
	}
	if msg, ok := fields["msg"].(string); ok {
		entry.Message = msg
	}
	delete(fields, "time")
	delete(fields, "level")
	delete(fields, "msg")

	if len(fields) > 0 {
		entry.Attrs = make(map[string]string, len(fields))
		for k, v := range fields {
			entry.Attrs[k] = attrString(v)
		}
	}
	return entry
}

func attrString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case json.Number:
		return val.String()
	case nil:
		return "null"
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(data)
	}
}

// Format renders the entry on one line: time, level, message, then attrs in
// key order.
func (e Entry) Format() string {
	if e.Level == "" && e.Time.IsZero() && len(e.Attrs) == 0 {
		return e.Raw
	}
	var b strings.Builder
	if !e.Time.IsZero() {
		b.WriteString(e.Time.In(time.Local).Format("2006-01-02 15:04:05"))
		b.WriteByte(' ')
	}
	level := e.Level
	if level == "" {
		level = "INFO"
	}
	b.WriteString(level)
	if e.Message != "" {
		b.WriteString(" – ")
		b.WriteString(e.Message)
	}
	keys := make([]string, 0, len(e.Attrs))
	for k := range e.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(e.Attrs[k])
	}
	return b.String()
}
