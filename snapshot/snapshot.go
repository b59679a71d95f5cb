/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package snapshot

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/xid"
	"github.com/spf13/afero"

	"github.com/acronis/go-appkit/log"
)

// DefaultMaxRecordSize is the default limit for a single snapshot line.
const DefaultMaxRecordSize = 1024 * 1024

// Source is a cache whose entries may be exported.
// Range must not count as a use of the iterated keys.
type Source[K comparable, V any] interface {
	Range(fn func(key K, value V) bool)
}

// Sink is a cache that imported records are replayed into.
// Put reports whether storing the record evicted another entry.
type Sink[K comparable, V any] interface {
	Put(key K, value V) (evicted bool)
}

// ImportOpts represents options for Import and Load.
type ImportOpts struct {
	// MaxRecordSize limits the length of a single line. A longer line aborts the import with an error.
	// DefaultMaxRecordSize is used if it's not positive.
	MaxRecordSize int

	// Logger is used for reporting skipped records at debug level. It can be nil.
	Logger log.FieldLogger
}

// ImportStats describes the outcome of replaying a snapshot.
type ImportStats struct {
	// Applied is the number of records stored in the cache.
	Applied int
	// Skipped is the number of non-empty lines that could not be parsed.
	Skipped int
	// Evicted is the number of entries evicted while replaying (e.g., the snapshot is larger than the cache).
	Evicted int
}

// LoadResult describes the outcome of Load.
type LoadResult struct {
	// Found is false if the snapshot file doesn't exist. In this case nothing is loaded and no error is returned.
	Found bool
	ImportStats
}

// Export writes one record per entry of src to w and returns the number of written records.
// Entries are written from the least to the most recently used one,
// so that importing them into an empty cache reproduces the same recency order.
func Export[K comparable, V any](w io.Writer, src Source[K, V], keyCodec Codec[K], valueCodec Codec[V]) (int, error) {
	bw := bufio.NewWriter(w)
	var sb strings.Builder
	var written int
	var writeErr error
	src.Range(func(key K, value V) bool {
		sb.Reset()
		encodeRecord(&sb, keyCodec.Format(key), valueCodec.Format(value))
		if _, writeErr = bw.WriteString(sb.String()); writeErr != nil {
			return false
		}
		written++
		return true
	})
	if writeErr != nil {
		return written, writeErr
	}
	if err := bw.Flush(); err != nil {
		return written, err
	}
	return written, nil
}

// Import reads records from r line by line and stores every parsed one in dst, in file order.
// Lines that cannot be parsed are skipped, blank lines are ignored.
// Only a failure to read from r is returned as an error.
func Import[K comparable, V any](
	r io.Reader, dst Sink[K, V], keyCodec Codec[K], valueCodec Codec[V], opts ImportOpts,
) (ImportStats, error) {
	maxRecordSize := opts.MaxRecordSize
	if maxRecordSize <= 0 {
		maxRecordSize = DefaultMaxRecordSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewDisabledLogger()
	}

	var stats ImportStats
	skip := func(lineNum int, err error) {
		stats.Skipped++
		logger.Debug("snapshot record skipped", log.Int("line", lineNum), log.Error(err))
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, minInt(4096, maxRecordSize)), maxRecordSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" {
			continue
		}

		keyStr, valueStr, err := decodeRecord(line)
		if err != nil {
			skip(lineNum, err)
			continue
		}
		key, err := keyCodec.Parse(keyStr)
		if err != nil {
			skip(lineNum, fmt.Errorf("parse key: %w", err))
			continue
		}
		value, err := valueCodec.Parse(valueStr)
		if err != nil {
			skip(lineNum, fmt.Errorf("parse value: %w", err))
			continue
		}

		if dst.Put(key, value) {
			stats.Evicted++
		}
		stats.Applied++
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("read snapshot (line %d): %w", lineNum+1, err)
	}
	return stats, nil
}

// Save writes a full snapshot of src to the file at path, replacing its previous content.
// The snapshot is written to a temporary file in the same directory first and then renamed,
// so a failed save never leaves a truncated snapshot at path.
// Errors are returned as is, Save doesn't retry.
func Save[K comparable, V any](
	fs afero.Fs, path string, src Source[K, V], keyCodec Codec[K], valueCodec Codec[V],
) (int, error) {
	tmpPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+xid.New().String()+".tmp")
	f, err := fs.Create(tmpPath)
	if err != nil {
		return 0, fmt.Errorf("create snapshot file: %w", err)
	}

	written, err := Export(f, src, keyCodec, valueCodec)
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = fs.Remove(tmpPath)
		return 0, fmt.Errorf("write snapshot file: %w", err)
	}

	if err = fs.Rename(tmpPath, path); err != nil {
		_ = fs.Remove(tmpPath)
		return 0, fmt.Errorf("replace snapshot file: %w", err)
	}
	return written, nil
}

// Load imports the snapshot file at path into dst.
// A missing file is not an error: LoadResult.Found is false and dst is not touched.
// Any other failure to open or read the file is returned.
func Load[K comparable, V any](
	fs afero.Fs, path string, dst Sink[K, V], keyCodec Codec[K], valueCodec Codec[V], opts ImportOpts,
) (LoadResult, error) {
	f, err := fs.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return LoadResult{}, nil
		}
		return LoadResult{}, fmt.Errorf("open snapshot file: %w", err)
	}
	defer func() { _ = f.Close() }()

	stats, err := Import(f, dst, keyCodec, valueCodec, opts)
	return LoadResult{Found: true, ImportStats: stats}, err
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
