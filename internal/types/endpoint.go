// Package types provides the data model shared by the harvester pipelines:
// endpoints, subjects, fetch keys and error records.
package types

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ParamStyle describes how a subject is passed to an endpoint.
type ParamStyle string

const (
	// ParamPath appends the subject to the URL and sends the key as an X-Api-Key header.
	ParamPath ParamStyle = "path"
	// ParamQuery passes key, secret and subject as query-string parameters.
	ParamQuery ParamStyle = "query"
)

// SubjectPlaceholder marks where the subject goes in a URL template.
const SubjectPlaceholder = "{subject}"

// Endpoint is one configured third-party API.
type Endpoint struct {
	Name          string     `json:"name" validate:"required,excludesall=/\\"`
	URLTemplate   string     `json:"url_template" validate:"required,url"`
	Key           string     `json:"-"`
	Secret        string     `json:"-"`
	Style         ParamStyle `json:"style" validate:"required,oneof=path query"`
	SubjectPrefix string     `json:"subject_prefix,omitempty"`
	Description   string     `json:"description,omitempty"`
}

// Validate checks the endpoint fields.
func (e *Endpoint) Validate() error {
	validate := validator.New()
	if err := validate.Struct(e); err != nil {
		return fmt.Errorf("endpoint %q: %w", e.Name, err)
	}
	return nil
}

// HasPlaceholder reports whether the URL template carries a subject placeholder.
func (e *Endpoint) HasPlaceholder() bool {
	return strings.Contains(e.URLTemplate, SubjectPlaceholder)
}

// String returns the endpoint name.
func (e Endpoint) String() string {
	return e.Name
}
