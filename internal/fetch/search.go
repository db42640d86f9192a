package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/api-harvester/internal/types"
	"google.golang.org/api/customsearch/v1"
	"google.golang.org/api/option"
)

// SearchRequester calls Google Custom Search through the generated client.
// The endpoint's Key is the API key and its Secret the search engine ID (cx).
type SearchRequester struct {
	opts []option.ClientOption
	svcs map[string]*customsearch.Service
}

// NewSearchRequester creates a requester; extra options are passed to every
// service it builds (for example option.WithEndpoint).
func NewSearchRequester(opts ...option.ClientOption) *SearchRequester {
	return &SearchRequester{opts: opts, svcs: make(map[string]*customsearch.Service)}
}

func (r *SearchRequester) service(ctx context.Context, apiKey string) (*customsearch.Service, error) {
	if svc, ok := r.svcs[apiKey]; ok {
		return svc, nil
	}
	opts := append([]option.ClientOption{option.WithAPIKey(apiKey)}, r.opts...)
	svc, err := customsearch.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create customsearch service: %w", err)
	}
	r.svcs[apiKey] = svc
	return svc, nil
}

// Request runs one search for subject and returns the response as a JSON object.
func (r *SearchRequester) Request(ctx context.Context, subject types.Subject, endpoint types.Endpoint) (any, error) {
	svc, err := r.service(ctx, endpoint.Key)
	if err != nil {
		return nil, &Error{Endpoint: endpoint.Name, Message: "search client unavailable", Cause: err}
	}

	resp, err := svc.Cse.List().Cx(endpoint.Secret).Q(endpoint.SubjectPrefix + subject).Context(ctx).Do()
	if err != nil {
		return nil, &Error{Endpoint: endpoint.Name, Message: "search failed", Cause: err}
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return nil, &Error{Endpoint: endpoint.Name, Message: "failed to encode search response", Cause: err}
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &Error{Endpoint: endpoint.Name, Message: "failed to decode search response", Cause: err}
	}
	return payload, nil
}
