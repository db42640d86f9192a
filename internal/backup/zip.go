// Package backup zips a project folder and uploads the archive to Google Drive.
package backup

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// ArchiveTimeLayout is the timestamp format in archive names.
const ArchiveTimeLayout = "2006-01-02_15-04-05"

// ArchiveName returns "<prefix>_<timestamp>.zip".
func ArchiveName(prefix string, at time.Time) string {
	return fmt.Sprintf("%s_%s.zip", prefix, at.Format(ArchiveTimeLayout))
}

// ZipFolder writes every regular file under source into a new archive in
// outDir, stored with paths relative to source. The archive never contains
// itself even when outDir is inside source.
func ZipFolder(source, outDir, prefix string, at time.Time) (string, error) {
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("failed to stat source folder: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("source %s is not a directory", source)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	archivePath := filepath.Join(outDir, ArchiveName(prefix, at))
	absArchive, err := filepath.Abs(archivePath)
	if err != nil {
		return "", err
	}

	out, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}

	zw := zip.NewWriter(out)
	walkErr := filepath.WalkDir(source, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if abs, err := filepath.Abs(path); err == nil && abs == absArchive {
			return nil
		}
		rel, err := filepath.Rel(source, path)
		if err != nil {
			return err
		}
		return addFile(zw, path, filepath.ToSlash(rel))
	})

	closeErr := zw.Close()
	if err := out.Close(); err != nil && closeErr == nil {
		closeErr = err
	}
	if walkErr != nil || closeErr != nil {
		_ = os.Remove(archivePath)
		if walkErr != nil {
			return "", fmt.Errorf("failed to zip %s: %w", source, walkErr)
		}
		return "", fmt.Errorf("failed to finish archive: %w", closeErr)
	}
	return archivePath, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	header.Name = name
	header.Method = zip.Deflate

	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
