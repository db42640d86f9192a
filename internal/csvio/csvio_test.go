package csvio

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRead_UTF8WithBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.csv")
	require.NoError(t, os.WriteFile(path, []byte("\uFEFFKeyword,LastDateFetched\nwidgets,\n"), 0644))

	table, err := Read(path, EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Column("Keyword"))
	assert.Equal(t, 1, table.Column("lastdatefetched"))
	assert.Equal(t, -1, table.Column("missing"))
	assert.Equal(t, [][]string{{"widgets", ""}}, table.Rows)
}

func TestRead_CP1252(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.csv")
	// 0xE9 is "é" in Windows-1252.
	require.NoError(t, os.WriteFile(path, []byte("Keyword\ncaf\xe9\n"), 0644))

	table, err := Read(path, EncodingCP1252)
	require.NoError(t, err)
	assert.Equal(t, "café", table.Rows[0][0])
}

func TestRead_BOMWithCP1252(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keywords.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xEF\xBB\xBFKeyword,Note\ncaf\xC3\xA9,x\n"), 0644))

	table, err := Read(path, EncodingCP1252)
	require.NoError(t, err)
	assert.Equal(t, 0, table.Column("Keyword"))
	assert.Equal(t, "café", table.Rows[0][0])
}

func TestOpen_StripsBOM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domains.txt")
	require.NoError(t, os.WriteFile(path, []byte("\uFEFFexample.com\n"), 0644))

	r, err := Open(path, EncodingUTF8)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "example.com\n", string(data))
}

func TestRead_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := Read(filepath.Join(dir, "missing.csv"), "")
	assert.Error(t, err)

	empty := filepath.Join(dir, "empty.csv")
	require.NoError(t, os.WriteFile(empty, nil, 0644))
	_, err = Read(empty, "")
	assert.Error(t, err)

	_, err = Read(empty, "latin-9")
	assert.Error(t, err)
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	in := &Table{Header: []string{"Keyword", "LastDateFetched"}, Rows: [][]string{{"a, b", "2024-01-01_00-00-00"}}}
	require.NoError(t, Write(path, in))

	out, err := Read(path, "")
	require.NoError(t, err)
	assert.Equal(t, in.Header, out.Header)
	assert.Equal(t, in.Rows, out.Rows)
}

func TestValue(t *testing.T) {
	row := []string{" a ", "b"}
	assert.Equal(t, "a", Value(row, 0))
	assert.Equal(t, "", Value(row, 5))
	assert.Equal(t, "", Value(row, -1))
}
