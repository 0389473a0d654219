package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/desertthunder/ytwatch/internal/shared"
)

// APIResponse is a raw API payload fetched through the access layer.
type APIResponse struct {
	Endpoint string
	Body     []byte
	IsJSON   bool
	JSONData any
}

// Raw fetches an arbitrary endpoint with the given parameters, sharing the cache, coalescing and key rotation
// of the typed calls. Entries live as long as video details do.
func (y *YouTube) Raw(ctx context.Context, endpoint string, params url.Values) (*APIResponse, error) {
	endpoint = strings.Trim(strings.TrimSpace(endpoint), "/")
	if endpoint == "" {
		return nil, fmt.Errorf("%w: endpoint", shared.ErrMissingArgument)
	}
	if params == nil {
		params = url.Values{}
	}
	params.Del("key")

	body, err := y.get(ctx, endpoint, params, y.ttl.Details)
	if err != nil {
		return nil, err
	}

	resp := &APIResponse{Endpoint: endpoint, Body: body}
	var data any
	if err := json.Unmarshal(body, &data); err == nil {
		resp.IsJSON = true
		resp.JSONData = data
	}
	return resp, nil
}

// ParseParams turns k=v pairs into query parameters.
func ParseParams(pairs []string) (url.Values, error) {
	params := url.Values{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", shared.ErrInvalidArgument, pair)
		}
		params.Add(strings.TrimSpace(k), v)
	}
	return params, nil
}
