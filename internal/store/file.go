package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// FileLog appends entries to a JSON-lines file.
type FileLog struct {
	mu   sync.Mutex
	path string
}

func NewFileLog(path string) (*FileLog, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("message log dir: %w", err)
	}
	return &FileLog{path: path}, nil
}

func (f *FileLog) Append(_ context.Context, e Entry) (Entry, error) {
	e = stamp(e)
	line, err := json.Marshal(e)
	if err != nil {
		return Entry{}, fmt.Errorf("encode entry: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, err := os.OpenFile(f.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return Entry{}, fmt.Errorf("open message log: %w", err)
	}
	defer fh.Close()
	if _, err := fh.Write(append(line, '\n')); err != nil {
		return Entry{}, fmt.Errorf("write message log: %w", err)
	}
	return e, nil
}

// Recent scans the whole file; lines that do not decode are skipped.
func (f *FileLog) Recent(_ context.Context, chatKey string, limit int) ([]Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fh, err := os.Open(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open message log: %w", err)
	}
	defer fh.Close()

	var matched []Entry
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 64*1024), 2<<20)
	for sc.Scan() {
		var e Entry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil || e.ChatKey != chatKey {
			continue
		}
		matched = append(matched, e)
		if limit > 0 && len(matched) > limit {
			matched = matched[1:]
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read message log: %w", err)
	}
	return reversed(matched), nil
}
