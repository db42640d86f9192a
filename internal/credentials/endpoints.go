package credentials

import (
	"fmt"

	"github.com/jonathan/api-harvester/internal/types"
)

// Override replaces the URL stored in the credentials file for a known API.
type Override struct {
	URL    string
	Style  types.ParamStyle
	Prefix string
}

// KnownEndpoints are the API Ninja URLs used regardless of the spreadsheet.
var KnownEndpoints = map[string]Override{
	"API_Ninja_DNS":       {URL: "https://api.api-ninjas.com/v1/dnslookup?domain=", Style: types.ParamPath},
	"API_Ninja_Who_Is":    {URL: "https://api.api-ninjas.com/v1/whois?domain=", Style: types.ParamPath},
	"API_Domain_Location": {URL: "https://api.api-ninjas.com/v1/urllookup?url=", Style: types.ParamPath, Prefix: "http://"},
}

// ToEndpoint converts a record into an endpoint. Records with a search
// engine id in AddAPI_Password use query-string parameters; all others
// append the subject to the URL and send the key as a header.
func (r Record) ToEndpoint() types.Endpoint {
	ep := types.Endpoint{
		Name:        r.Name,
		URLTemplate: r.URL,
		Key:         r.Key,
		Secret:      r.Password,
		Style:       types.ParamPath,
		Description: r.Description,
	}
	if r.Password != "" {
		ep.Style = types.ParamQuery
	}
	if o, ok := KnownEndpoints[r.Name]; ok {
		ep.URLTemplate = o.URL
		ep.Style = o.Style
		ep.SubjectPrefix = o.Prefix
	}
	return ep
}

// Endpoints resolves names against records, in the order given. A missing
// or invalid endpoint is an error.
func Endpoints(records []Record, names []string) ([]types.Endpoint, error) {
	endpoints := make([]types.Endpoint, 0, len(names))
	for _, name := range names {
		rec, ok := Find(records, name)
		if !ok {
			return nil, &LoadError{Message: fmt.Sprintf("no credential row named %q", name)}
		}
		ep := rec.ToEndpoint()
		if err := ep.Validate(); err != nil {
			return nil, &LoadError{Message: fmt.Sprintf("invalid endpoint %q", name), Cause: err}
		}
		endpoints = append(endpoints, ep)
	}
	return endpoints, nil
}
