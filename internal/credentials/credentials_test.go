package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/api-harvester/internal/types"
)

const sampleCSV = "API_Name,AddAPI_URL,AddAPI_API_Key,AddAPI_Password,AddAPI_Description,AddAPI_AdditionalNotesDrop\n" +
	"API_Ninja_DNS,https://old.example.com/dns,ninja-key,,DNS records,\n" +
	"API_Ninja_Who_Is,,ninja-key,,WHOIS records,\n" +
	"API_Domain_Location,,ninja-key,,Server location,\n" +
	"Google_Search_API_Google_Search_Text,https://www.googleapis.com/customsearch/v1,g-key,cx-123,Google search \x96 text,\n" +
	"Cloud Backup,folder-xyz,,,Drive folder,/secrets/sa.json\n" +
	",,,,,\n"

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "APIFetchData.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	records, err := Load(writeCSV(t, sampleCSV), "cp1252")
	require.NoError(t, err)
	require.Len(t, records, 5)

	google, ok := Find(records, "Google_Search_API_Google_Search_Text")
	require.True(t, ok)
	assert.Equal(t, "g-key", google.Key)
	assert.Equal(t, "cx-123", google.Password)
	assert.Equal(t, "Google search – text", google.Description)

	backup, ok := Find(records, "Cloud Backup")
	require.True(t, ok)
	assert.Equal(t, "folder-xyz", backup.URL)
	assert.Equal(t, "/secrets/sa.json", backup.Notes)
	assert.Empty(t, backup.Username)

	_, ok = Find(records, "Unknown")
	assert.False(t, ok)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.csv"), "")
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	assert.Contains(t, err.Error(), "failed to read credentials")

	_, err = Load(writeCSV(t, "API_Name,AddAPI_URL\nx,y\n"), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AddAPI_API_Key")
}

func TestEndpoints(t *testing.T) {
	records, err := Load(writeCSV(t, sampleCSV), "cp1252")
	require.NoError(t, err)

	endpoints, err := Endpoints(records, []string{"API_Ninja_DNS", "API_Domain_Location", "Google_Search_API_Google_Search_Text"})
	require.NoError(t, err)
	require.Len(t, endpoints, 3)

	dns := endpoints[0]
	assert.Equal(t, "https://api.api-ninjas.com/v1/dnslookup?domain=", dns.URLTemplate)
	assert.Equal(t, types.ParamPath, dns.Style)
	assert.Equal(t, "ninja-key", dns.Key)
	assert.Empty(t, dns.SubjectPrefix)

	location := endpoints[1]
	assert.Equal(t, "https://api.api-ninjas.com/v1/urllookup?url=", location.URLTemplate)
	assert.Equal(t, "http://", location.SubjectPrefix)

	google := endpoints[2]
	assert.Equal(t, types.ParamQuery, google.Style)
	assert.Equal(t, "cx-123", google.Secret)
	assert.Equal(t, "https://www.googleapis.com/customsearch/v1", google.URLTemplate)
}

func TestEndpoints_Errors(t *testing.T) {
	records, err := Load(writeCSV(t, sampleCSV), "cp1252")
	require.NoError(t, err)

	_, err = Endpoints(records, []string{"Missing_API"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `no credential row named "Missing_API"`)

	// "Cloud Backup" stores a folder id, not a URL.
	_, err = Endpoints(records, []string{"Cloud Backup"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid endpoint")
}
