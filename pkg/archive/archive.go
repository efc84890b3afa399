// Package archive extracts client log bundles and locates the Glog
// files inside them. Bundles are plain ZIP archives; the container
// decoding itself lives in pkg/glog.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsafePath reports a ZIP entry that would escape the destination
// directory.
var ErrUnsafePath = errors.New("archive: entry path escapes destination")

const (
	// glogPrefix/glogSuffix match the client's daily log files,
	// async-YYYYMMdd.glog.
	glogPrefix = "async-"
	glogSuffix = ".glog"

	// mmapSuffix matches the client's memory-mapped buffer files that
	// hold the newest, not-yet-rotated entries.
	mmapSuffix = ".glogmmap"
)

// ExtractZip unpacks the bundle at zipPath into destDir and returns
// the number of entries written. Entry paths are validated so a
// crafted bundle cannot write outside destDir.
func ExtractZip(zipPath, destDir string) (int, error) {
	zr, err := zip.OpenReader(zipPath)
	if err != nil && !errors.Is(err, zip.ErrInsecurePath) {
		return 0, fmt.Errorf("open bundle %s: %w", zipPath, err)
	}
	defer zr.Close()

	extracted := 0
	for _, entry := range zr.File {
		if err := extractEntry(entry, destDir); err != nil {
			return extracted, err
		}
		extracted++
	}
	return extracted, nil
}

func extractEntry(entry *zip.File, destDir string) error {
	name := filepath.FromSlash(entry.Name)
	if !filepath.IsLocal(name) {
		return fmt.Errorf("%w: %s", ErrUnsafePath, entry.Name)
	}
	outPath := filepath.Join(destDir, name)

	if entry.FileInfo().IsDir() {
		return os.MkdirAll(outPath, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	in, err := entry.Open()
	if err != nil {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	defer in.Close()

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("extract %s: %w", entry.Name, err)
	}
	return nil
}

// CollectGlogFiles walks root for daily log files and returns them
// sorted ascending by the date embedded in the file name, so decoded
// output comes out in chronological order.
func CollectGlogFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if strings.HasPrefix(name, glogPrefix) && strings.HasSuffix(name, glogSuffix) && len(name) >= len("async-YYYYMMdd.glog") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return glogDate(files[i]) < glogDate(files[j])
	})
	return files, nil
}

// glogDate pulls the YYYYMMdd portion out of an async-YYYYMMdd.glog
// file name.
func glogDate(path string) string {
	name := filepath.Base(path)
	if len(name) < len(glogPrefix)+8 {
		return ""
	}
	return name[len(glogPrefix) : len(glogPrefix)+8]
}

// CollectMmapFiles walks root for mmap buffer files and returns them
// newest first, by modification time.
func CollectMmapFiles(root string) ([]string, error) {
	type stamped struct {
		path  string
		mtime int64
	}
	var files []stamped

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), mmapSuffix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, stamped{path: path, mtime: info.ModTime().UnixNano()})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(files, func(i, j int) bool {
		return files[i].mtime > files[j].mtime
	})

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.path
	}
	return paths, nil
}
