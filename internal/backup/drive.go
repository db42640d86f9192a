package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Uploader stores an archive remotely and returns its remote id.
type Uploader interface {
	Upload(ctx context.Context, archivePath string) (string, error)
}

// DriveUploader uploads files into one Google Drive folder.
type DriveUploader struct {
	files    *drive.FilesService
	folderID string
}

// NewDriveUploader creates an uploader for folderID. Authentication comes
// from opts, typically option.WithCredentialsFile for a service account.
func NewDriveUploader(ctx context.Context, folderID string, opts ...option.ClientOption) (*DriveUploader, error) {
	if folderID == "" {
		return nil, errors.New("drive folder id is required")
	}
	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}
	return &DriveUploader{files: svc.Files, folderID: folderID}, nil
}

// Upload implements Uploader.
func (u *DriveUploader) Upload(ctx context.Context, archivePath string) (string, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	meta := &drive.File{
		Name:    filepath.Base(archivePath),
		Parents: []string{u.folderID},
	}
	created, err := u.files.Create(meta).Media(f).Fields("id", "name").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", meta.Name, err)
	}
	return created.Id, nil
}
