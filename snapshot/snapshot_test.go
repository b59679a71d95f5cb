/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package snapshot

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/acronis/go-appkit/log"
	"github.com/acronis/go-appkit/log/logtest"
	"github.com/acronis/go-lrustore/lrucache"
)

func newTestCache[K comparable, V any](t *testing.T, capacity int) *lrucache.LRUCache[K, V] {
	t.Helper()
	cache, err := lrucache.New[K, V](capacity, nil)
	require.NoError(t, err)
	return cache
}

func findAllEntries(logRecorder *logtest.Recorder, msg string) []logtest.RecordedEntry {
	return logRecorder.FindAllEntriesByFilter(func(entry logtest.RecordedEntry) bool {
		return entry.Text == msg
	})
}

func TestExport(t *testing.T) {
	cache := newTestCache[string, string](t, 3)
	cache.Put("A", "value_a")
	cache.Put("B", "value:b")
	cache.Put("C", "value\nc")
	cache.Get("A")

	var buf bytes.Buffer
	written, err := Export[string, string](&buf, cache, StringCodec, StringCodec)
	require.NoError(t, err)
	require.Equal(t, 3, written)
	require.Equal(t, "B:value\\:b\nC:value\\nc\nA:value_a\n", buf.String())
	require.Equal(t, []string{"B", "C", "A"}, cache.Keys(), "export must not change the ordering")

	buf.Reset()
	written, err = Export[string, string](&buf, newTestCache[string, string](t, 1), StringCodec, StringCodec)
	require.NoError(t, err)
	require.Zero(t, written)
	require.Empty(t, buf.String())
}

func TestExport_WriteError(t *testing.T) {
	cache := newTestCache[int, int](t, 10)
	for i := 0; i < 10; i++ {
		cache.Put(i, i)
	}
	errWrite := errors.New("disk is full")
	_, err := Export[int, int](&failingWriter{err: errWrite}, cache, IntCodec, IntCodec)
	require.ErrorIs(t, err, errWrite)
}

func TestImport(t *testing.T) {
	tests := []struct {
		name      string
		capacity  int
		data      string
		wantKeys  []string
		wantStats ImportStats
	}{
		{
			name:      "empty input",
			capacity:  3,
			data:      "",
			wantKeys:  []string{},
			wantStats: ImportStats{},
		},
		{
			name:      "records are replayed in file order",
			capacity:  3,
			data:      "A:value_a\nB:value_b\nC:value_c\n",
			wantKeys:  []string{"A", "B", "C"},
			wantStats: ImportStats{Applied: 3},
		},
		{
			name:      "last line without line break",
			capacity:  3,
			data:      "A:value_a\nB:value_b",
			wantKeys:  []string{"A", "B"},
			wantStats: ImportStats{Applied: 2},
		},
		{
			name:      "blank lines are ignored",
			capacity:  3,
			data:      "\nA:value_a\n\n\nB:value_b\n\n",
			wantKeys:  []string{"A", "B"},
			wantStats: ImportStats{Applied: 2},
		},
		{
			name:      "malformed lines are skipped",
			capacity:  3,
			data:      "A:value_a\ngarbage\nB:value_b\nbad\\escape:x\n",
			wantKeys:  []string{"A", "B"},
			wantStats: ImportStats{Applied: 2, Skipped: 2},
		},
		{
			name:      "snapshot larger than capacity keeps the last records",
			capacity:  2,
			data:      "A:value_a\nB:value_b\nC:value_c\nD:value_d\n",
			wantKeys:  []string{"C", "D"},
			wantStats: ImportStats{Applied: 4, Evicted: 2},
		},
		{
			name:      "duplicate keys update the value and recency",
			capacity:  3,
			data:      "A:1\nB:2\nA:3\n",
			wantKeys:  []string{"B", "A"},
			wantStats: ImportStats{Applied: 3},
		},
		{
			name:      "CRLF line endings",
			capacity:  3,
			data:      "A:value_a\r\nB:value_b\r\n",
			wantKeys:  []string{"A", "B"},
			wantStats: ImportStats{Applied: 2},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cache := newTestCache[string, string](t, tt.capacity)
			stats, err := Import[string, string](strings.NewReader(tt.data), cache, StringCodec, StringCodec, ImportOpts{})
			require.NoError(t, err)
			require.Equal(t, tt.wantStats, stats)
			require.Equal(t, tt.wantKeys, cache.Keys())
		})
	}
}

func TestImport_ValueWithDelimiter(t *testing.T) {
	cache := newTestCache[string, string](t, 3)
	_, err := Import[string, string](strings.NewReader("url:http://example.com:8080\n"), cache, StringCodec, StringCodec, ImportOpts{})
	require.NoError(t, err)
	val, found := cache.Peek("url")
	require.True(t, found)
	require.Equal(t, "http://example.com:8080", val)

	// "A:B:C" is the key "A" with the value "B:C".
	cache = newTestCache[string, string](t, 3)
	_, err = Import[string, string](strings.NewReader("A:B:C\n"), cache, StringCodec, StringCodec, ImportOpts{})
	require.NoError(t, err)
	val, found = cache.Peek("A")
	require.True(t, found)
	require.Equal(t, "B:C", val)
}

func TestImport_UnparsableValuesAreSkipped(t *testing.T) {
	logRecorder := logtest.NewRecorder()
	cache := newTestCache[string, int](t, 5)
	stats, err := Import[string, int](strings.NewReader("a:1\nb:two\nc:3\n"), cache, StringCodec, IntCodec,
		ImportOpts{Logger: logRecorder})
	require.NoError(t, err)
	require.Equal(t, ImportStats{Applied: 2, Skipped: 1}, stats)
	require.Equal(t, []string{"a", "c"}, cache.Keys())

	entries := findAllEntries(logRecorder, "snapshot record skipped")
	require.Len(t, entries, 1)
	require.Equal(t, log.LevelDebug, entries[0].Level)
	lineField, found := entries[0].FindField("line")
	require.True(t, found)
	require.EqualValues(t, 2, lineField.Int)
}

func TestImport_TooLongRecord(t *testing.T) {
	cache := newTestCache[string, string](t, 3)
	data := "A:value_a\nB:" + strings.Repeat("b", 64) + "\nC:value_c\n"
	stats, err := Import[string, string](strings.NewReader(data), cache, StringCodec, StringCodec, ImportOpts{MaxRecordSize: 32})
	require.ErrorIs(t, err, bufio.ErrTooLong)
	require.Contains(t, err.Error(), "line 2")
	require.Equal(t, 1, stats.Applied)

	cache = newTestCache[string, string](t, 3)
	stats, err = Import[string, string](strings.NewReader(data), cache, StringCodec, StringCodec, ImportOpts{})
	require.NoError(t, err)
	require.Equal(t, 3, stats.Applied)
}

func TestImport_ReadError(t *testing.T) {
	errRead := errors.New("connection reset")
	cache := newTestCache[string, string](t, 3)
	r := io.MultiReader(strings.NewReader("A:value_a\n"), iotest.ErrReader(errRead))
	stats, err := Import[string, string](r, cache, StringCodec, StringCodec, ImportOpts{})
	require.ErrorIs(t, err, errRead)
	require.Equal(t, 1, stats.Applied)
	require.Equal(t, []string{"A"}, cache.Keys())
}

func TestSaveLoad(t *testing.T) {
	const path = "/data/cache_data.txt"
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o755))

	src := newTestCache[string, string](t, 3)
	src.Put("A", "value_a")
	src.Put("B", "value_b")
	src.Put("C", "value_c")
	src.Get("A")

	written, err := Save[string, string](fs, path, src, StringCodec, StringCodec)
	require.NoError(t, err)
	require.Equal(t, 3, written)

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.Equal(t, "B:value_b\nC:value_c\nA:value_a\n", string(data))
	requireNoTempFiles(t, fs, "/data")

	dst := newTestCache[string, string](t, 3)
	res, err := Load[string, string](fs, path, dst, StringCodec, StringCodec, ImportOpts{})
	require.NoError(t, err)
	require.Equal(t, LoadResult{Found: true, ImportStats: ImportStats{Applied: 3}}, res)
	require.Equal(t, src.Keys(), dst.Keys())

	// Saving again replaces the whole file.
	src.Put("D", "value_d")
	_, err = Save[string, string](fs, path, src, StringCodec, StringCodec)
	require.NoError(t, err)
	data, err = afero.ReadFile(fs, path)
	require.NoError(t, err)
	require.Equal(t, "C:value_c\nA:value_a\nD:value_d\n", string(data))
	requireNoTempFiles(t, fs, "/data")
}

func TestLoad_MissingFile(t *testing.T) {
	cache := newTestCache[string, string](t, 3)
	res, err := Load[string, string](afero.NewMemMapFs(), "/no/such/file.txt", cache, StringCodec, StringCodec, ImportOpts{})
	require.NoError(t, err)
	require.False(t, res.Found)
	require.Zero(t, res.Applied)
	require.Zero(t, cache.Len())
}

func TestLoad_OpenError(t *testing.T) {
	errOpen := os.ErrPermission
	fs := &faultyFs{Fs: afero.NewMemMapFs(), openErr: errOpen}
	cache := newTestCache[string, string](t, 3)
	res, err := Load[string, string](fs, "/cache_data.txt", cache, StringCodec, StringCodec, ImportOpts{})
	require.ErrorIs(t, err, errOpen)
	require.False(t, res.Found)
}

func TestSave_Errors(t *testing.T) {
	const path = "/cache_data.txt"
	src := newTestCache[string, string](t, 3)
	src.Put("A", "new_value")

	t.Run("read-only filesystem", func(t *testing.T) {
		base := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(base, path, []byte("A:old_value\n"), 0o644))

		_, err := Save[string, string](afero.NewReadOnlyFs(base), path, src, StringCodec, StringCodec)
		require.Error(t, err)
		require.Contains(t, err.Error(), "create snapshot file")

		data, err := afero.ReadFile(base, path)
		require.NoError(t, err)
		require.Equal(t, "A:old_value\n", string(data))
	})

	t.Run("rename failure keeps the previous snapshot", func(t *testing.T) {
		errRename := errors.New("rename is not allowed")
		base := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(base, path, []byte("A:old_value\n"), 0o644))

		_, err := Save[string, string](&faultyFs{Fs: base, renameErr: errRename}, path, src, StringCodec, StringCodec)
		require.ErrorIs(t, err, errRename)

		data, err := afero.ReadFile(base, path)
		require.NoError(t, err)
		require.Equal(t, "A:old_value\n", string(data))
		requireNoTempFiles(t, base, "/")
	})
}

func requireNoTempFiles(t *testing.T, fs afero.Fs, dir string) {
	t.Helper()
	infos, err := afero.ReadDir(fs, dir)
	require.NoError(t, err)
	for _, info := range infos {
		require.False(t, strings.HasSuffix(info.Name(), ".tmp"), "temporary file %s is left", info.Name())
	}
}

type faultyFs struct {
	afero.Fs
	openErr   error
	renameErr error
}

func (fs *faultyFs) Open(name string) (afero.File, error) {
	if fs.openErr != nil {
		return nil, &os.PathError{Op: "open", Path: name, Err: fs.openErr}
	}
	return fs.Fs.Open(name)
}

func (fs *faultyFs) Rename(oldname, newname string) error {
	if fs.renameErr != nil {
		return &os.LinkError{Op: "rename", Old: oldname, New: newname, Err: fs.renameErr}
	}
	return fs.Fs.Rename(oldname, newname)
}

type failingWriter struct {
	err error
}

func (w *failingWriter) Write([]byte) (int, error) {
	return 0, w.err
}
