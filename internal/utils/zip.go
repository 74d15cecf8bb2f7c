package utils

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ZipFiles bundles the given files into a flat archive at target.
// Entries are named by base name; a repeated base name gets a numeric suffix.
func ZipFiles(target string, paths []string) (err error) {
	if len(paths) == 0 {
		return fmt.Errorf("nothing to archive")
	}

	zipFile, err := os.Create(target)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := zipFile.Close(); err == nil {
			err = cerr
		}
	}()

	archive := zip.NewWriter(zipFile)
	defer func() {
		if cerr := archive.Close(); err == nil {
			err = cerr
		}
	}()

	seen := make(map[string]int)
	for _, path := range paths {
		if err := addToArchive(archive, path, entryName(seen, filepath.Base(path))); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func entryName(seen map[string]int, name string) string {
	n := seen[name]
	seen[name] = n + 1
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	return fmt.Sprintf("%s (%d)%s", name[:len(name)-len(ext)], n, ext)
}

func addToArchive(archive *zip.Writer, path, name string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	writer, err := archive.CreateHeader(header)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = io.Copy(writer, file)
	return err
}
