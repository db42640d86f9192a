package backup

import (
	"archive/zip"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deeper"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "a.txt"), []byte("alpha"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "b.json"), []byte(`{"b":1}`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "sub", "deeper", "c.csv"), []byte("x,y\n"), 0644))
	return root
}

func zipEntries(t *testing.T, path string) map[string]string {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	entries := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		entries[f.Name] = string(data)
	}
	return entries
}

func TestArchiveName(t *testing.T) {
	at := time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "PythonTraining_2024-03-01_09-05-07.zip", ArchiveName("PythonTraining", at))
}

func TestZipFolder(t *testing.T) {
	root := makeTree(t)
	at := time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)

	// Output inside the source: the archive must not include itself.
	archive, err := ZipFolder(root, root, "backup", at)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "backup_2024-03-01_09-05-07.zip"), archive)

	entries := zipEntries(t, archive)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.txt", "sub/b.json", "sub/deeper/c.csv"}, names)
	assert.Equal(t, "alpha", entries["a.txt"])
}

func TestZipFolder_Errors(t *testing.T) {
	_, err := ZipFolder(filepath.Join(t.TempDir(), "missing"), t.TempDir(), "x", time.Now())
	assert.Error(t, err)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = ZipFolder(file, t.TempDir(), "x", time.Now())
	assert.ErrorContains(t, err, "not a directory")
}

func TestDriveUploader(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, "files")
		body, _ := io.ReadAll(r.Body)
		gotBody = string(body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id": "file-123", "name": "archive.zip"}`))
	}))
	defer server.Close()

	ctx := context.Background()
	uploader, err := NewDriveUploader(ctx, "folder-abc",
		option.WithEndpoint(server.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(server.Client()))
	require.NoError(t, err)

	archive := filepath.Join(t.TempDir(), "archive.zip")
	require.NoError(t, os.WriteFile(archive, []byte("zip-bytes"), 0644))

	id, err := uploader.Upload(ctx, archive)
	require.NoError(t, err)
	assert.Equal(t, "file-123", id)
	assert.Contains(t, gotBody, "folder-abc")
	assert.Contains(t, gotBody, "zip-bytes")
}

func TestNewDriveUploader_RequiresFolder(t *testing.T) {
	_, err := NewDriveUploader(context.Background(), "", option.WithoutAuthentication())
	assert.Error(t, err)
}

type fakeUploader struct {
	got string
	err error
}

func (f *fakeUploader) Upload(_ context.Context, path string) (string, error) {
	f.got = path
	return "remote-1", f.err
}

func TestRun(t *testing.T) {
	root := makeTree(t)
	out := t.TempDir()
	at := time.Date(2024, 3, 1, 9, 5, 7, 0, time.UTC)
	opts := Options{SourceDir: root, OutputDir: out, ArchivePrefix: "PythonTraining", Now: func() time.Time { return at }}

	up := &fakeUploader{}
	archive, id, err := Run(context.Background(), opts, up, discard)
	require.NoError(t, err)
	assert.Equal(t, "remote-1", id)
	assert.Equal(t, archive, up.got)
	assert.True(t, strings.HasSuffix(archive, "PythonTraining_2024-03-01_09-05-07.zip"))

	failing := &fakeUploader{err: errors.New("quota exceeded")}
	_, _, err = Run(context.Background(), opts, failing, discard)
	assert.ErrorContains(t, err, "quota exceeded")
}
