package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEndpoint_Validate(t *testing.T) {
	tests := []struct {
		name     string
		endpoint Endpoint
		wantErr  bool
	}{
		{
			name: "valid path endpoint",
			endpoint: Endpoint{
				Name:        "API_Ninja_DNS",
				URLTemplate: "https://api.api-ninjas.com/v1/dnslookup?domain=",
				Style:       ParamPath,
			},
		},
		{
			name: "valid query endpoint",
			endpoint: Endpoint{
				Name:        "Google_Search",
				URLTemplate: "https://www.googleapis.com/customsearch/v1",
				Style:       ParamQuery,
			},
		},
		{
			name:     "missing name",
			endpoint: Endpoint{URLTemplate: "https://example.com", Style: ParamPath},
			wantErr:  true,
		},
		{
			name:     "name with slash",
			endpoint: Endpoint{Name: "a/b", URLTemplate: "https://example.com", Style: ParamPath},
			wantErr:  true,
		},
		{
			name:     "bad url",
			endpoint: Endpoint{Name: "x", URLTemplate: "not a url", Style: ParamPath},
			wantErr:  true,
		},
		{
			name:     "unknown style",
			endpoint: Endpoint{Name: "x", URLTemplate: "https://example.com", Style: "header"},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.endpoint.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEndpoint_HasPlaceholder(t *testing.T) {
	e := Endpoint{URLTemplate: "https://example.com/lookup/{subject}"}
	assert.True(t, e.HasPlaceholder())

	e.URLTemplate = "https://example.com/lookup?domain="
	assert.False(t, e.HasPlaceholder())
}

func TestFetchKey_String(t *testing.T) {
	k := FetchKey{Subject: "example.com", Endpoint: "API_Ninja_DNS"}
	assert.Equal(t, "example.com|API_Ninja_DNS", k.String())
}
