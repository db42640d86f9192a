package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Options configures one backup run.
type Options struct {
	SourceDir     string
	OutputDir     string
	ArchivePrefix string
	Now           func() time.Time
}

// Run zips opts.SourceDir and hands the archive to uploader. It returns the
// archive path and the remote id.
func Run(ctx context.Context, opts Options, uploader Uploader, logger *slog.Logger) (string, string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	archive, err := ZipFolder(opts.SourceDir, opts.OutputDir, opts.ArchivePrefix, now())
	if err != nil {
		logger.Error("failed to zip project folder", "source", opts.SourceDir, "error", err)
		return "", "", err
	}
	logger.Info("project folder zipped", "archive", archive)

	id, err := uploader.Upload(ctx, archive)
	if err != nil {
		logger.Error("failed to upload archive", "archive", archive, "error", err)
		return archive, "", fmt.Errorf("upload failed: %w", err)
	}
	logger.Info("archive uploaded", "archive", archive, "file_id", id)
	return archive, id, nil
}
