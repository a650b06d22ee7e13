// Package archive reads, writes and merges APK (zip) archives.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"time"

	"github.com/mholt/archives"
)

// Entry is one file of an in-memory archive.
type Entry struct {
	Name    string
	Data    []byte
	Mode    fs.FileMode
	ModTime time.Time
}

// ReadEntries returns every regular file of a zip archive in archive order.
func ReadEntries(ctx context.Context, data []byte) ([]Entry, error) {
	var entries []Entry
	err := archives.Zip{}.Extract(ctx, bytes.NewReader(data), func(_ context.Context, fi archives.FileInfo) error {
		if fi.IsDir() {
			return nil
		}
		f, err := fi.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", fi.NameInArchive, err)
		}
		defer func() { _ = f.Close() }()

		content, err := io.ReadAll(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", fi.NameInArchive, err)
		}
		entries = append(entries, Entry{
			Name:    fi.NameInArchive,
			Data:    content,
			Mode:    fi.Mode(),
			ModTime: fi.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read archive: %w", err)
	}
	return entries, nil
}

// WriteEntries writes entries as a deflated zip archive, sorted by name.
func WriteEntries(ctx context.Context, w io.Writer, entries []Entry) error {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	files := make([]archives.FileInfo, 0, len(sorted))
	for _, e := range sorted {
		info := memInfo{
			name: path.Base(e.Name),
			size: int64(len(e.Data)),
			mode: e.Mode,
			mod:  e.ModTime,
		}
		if info.mode == 0 {
			info.mode = 0o644
		}
		if info.mod.IsZero() {
			info.mod = time.Date(1981, 1, 1, 1, 1, 2, 0, time.UTC)
		}
		data := e.Data
		files = append(files, archives.FileInfo{
			FileInfo:      info,
			NameInArchive: e.Name,
			Open: func() (fs.File, error) {
				return &memFile{Reader: bytes.NewReader(data), info: info}, nil
			},
		})
	}

	if err := (archives.Zip{Compression: zip.Deflate}).Archive(ctx, w, files); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}
	return nil
}

// memInfo is the fs.FileInfo of an in-memory entry.
type memInfo struct {
	name string
	size int64
	mode fs.FileMode
	mod  time.Time
}

func (m memInfo) Name() string       { return m.name }
func (m memInfo) Size() int64        { return m.size }
func (m memInfo) Mode() fs.FileMode  { return m.mode }
func (m memInfo) ModTime() time.Time { return m.mod }
func (m memInfo) IsDir() bool        { return false }
func (m memInfo) Sys() any           { return nil }

type memFile struct {
	*bytes.Reader
	info memInfo
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f.info, nil }
func (f *memFile) Close() error               { return nil }
