// Dump readers: NDJSON (one document per line) and parquet. Both feed
// documents to a callback; returning false stops the read.
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"
)

// docCallback receives one decoded document. Returns false to stop.
type docCallback func(doc map[string]any) bool

// readDump dispatches on the file extension.
func readDump(path string, cb docCallback) error {
	if filepath.Ext(path) == ".parquet" {
		return readParquet(path, cb)
	}
	return readNDJSON(path, cb)
}

// readNDJSON streams a newline-delimited JSON dump. Undecodable lines are
// skipped and counted, not fatal.
func readNDJSON(path string, cb docCallback) error {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	// Movie plots can make lines long.
	sc.Buffer(make([]byte, 0, 1<<20), 16<<20)

	var skipped int
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}

		var doc map[string]any
		if err := json.Unmarshal(line, &doc); err != nil {
			skipped++
			continue
		}
		if !cb(doc) {
			break
		}
	}
	if skipped > 0 {
		log.Printf("%s: skipped %d undecodable lines", filepath.Base(path), skipped)
	}

	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	return nil
}

// readParquet reads a parquet dump with a generic row reader, rebuilding
// nested documents from dotted leaf column paths. Repeated leaves become
// JSON arrays.
func readParquet(path string, cb docCallback) error {
	h, err := openParquet(path)
	if err != nil {
		return err
	}
	defer h.Close()

	columns := h.pf.Schema().Columns()

	for _, rg := range h.pf.RowGroups() {
		rows := parquet.NewRowGroupReader(rg)
		buf := make([]parquet.Row, 1000)

		for {
			n, readErr := rows.ReadRows(buf)
			for i := 0; i < n; i++ {
				if !cb(rowToDoc(buf[i], columns)) {
					return nil
				}
			}

			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					break
				}
				return fmt.Errorf("read rows: %w", readErr)
			}
		}
	}
	return nil
}

// rowToDoc rebuilds one document from a generic parquet row. A leaf seen
// more than once in a row is promoted to an array.
func rowToDoc(row parquet.Row, columns [][]string) map[string]any {
	doc := make(map[string]any)
	seen := make(map[int]bool)

	for _, v := range row {
		col := v.Column()
		if col < 0 || col >= len(columns) || v.IsNull() {
			continue
		}
		setDocPath(doc, columns[col], leafValue(v), seen[col])
		seen[col] = true
	}
	return doc
}

func leafValue(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return float64(v.Int32())
	case parquet.Int64:
		return float64(v.Int64())
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	default:
		return v.String()
	}
}

// setDocPath writes a leaf value at a column path, creating intermediate
// maps. When repeat is set the existing value grows into an array.
func setDocPath(doc map[string]any, path []string, value any, repeat bool) {
	// parquet list leaves end in .list.element; collapse to the list name.
	if n := len(path); n >= 3 && path[n-2] == "list" && path[n-1] == "element" {
		path = path[:n-2]
	}

	cur := doc
	for _, part := range path[:len(path)-1] {
		next, ok := cur[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[part] = next
		}
		cur = next
	}

	leaf := path[len(path)-1]
	if !repeat {
		cur[leaf] = value
		return
	}
	switch existing := cur[leaf].(type) {
	case []any:
		cur[leaf] = append(existing, value)
	default:
		cur[leaf] = []any{existing, value}
	}
}

// parquetHandle wraps parquet.File + underlying os.File for proper cleanup.
type parquetHandle struct {
	pf   *parquet.File
	file *os.File
}

func (h *parquetHandle) Close() {
	_ = h.file.Close()
}

func openParquet(path string) (*parquetHandle, error) {
	cleanPath := filepath.Clean(path)
	f, err := os.Open(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat: %w", err)
	}

	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	return &parquetHandle{pf: pf, file: f}, nil
}
