package sqlite

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// readJSONL streams the JSON lines of the file at path into fn. Lines have
// no length cap, since a single note body may be arbitrarily large. Blank
// and malformed lines are skipped and counted. An error from fn stops the
// read and is returned as is.
func readJSONL(path string, fn func(json.RawMessage) error) (skipped int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	for {
		line, readErr := r.ReadBytes('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return skipped, fmt.Errorf("reading %s: %w", path, readErr)
		}
		line = bytes.TrimRight(line, "\r\n")
		switch {
		case len(line) == 0:
		case !json.Valid(line):
			skipped++
		default:
			if err := fn(json.RawMessage(line)); err != nil {
				return skipped, err
			}
		}
		if readErr != nil {
			return skipped, nil
		}
	}
}

// writeJSONL replaces the file at path with the lines produced by fill.
// Output goes to a temp file in the same directory that is synced and then
// renamed over path, so a reader never sees a partial export.
func writeJSONL(path string, fill func(enc *json.Encoder) error) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	w := bufio.NewWriter(tmp)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := fill(enc); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
