package requests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
)

// ExternalAPIService is a struct representing a configurable external service
type ExternalAPIService struct {
	client *http.Client
}

// NewExternalAPIService creates a new instance of ExternalAPIService
func NewExternalAPIService(client *http.Client) *ExternalAPIService {
	if client == nil {
		client = &http.Client{}
	}
	return &ExternalAPIService{client: client}
}

// makeRequest is a helper function to make HTTP requests, supporting optional
// query parameters, a JSON body and extra headers. The request is bound to
// ctx so caller timeouts cancel it in flight.
func (s *ExternalAPIService) makeRequest(ctx context.Context, method, endpoint string, params url.Values, body interface{}, headers map[string]string) (*http.Response, error) {
	if params != nil {
		endpoint = endpoint + "?" + params.Encode()
	}

	var err error
	var jsonBody []byte
	if body != nil {
		jsonBody, err = json.Marshal(body)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return s.client.Do(req)
}

// Get makes a GET request to the external service, accepting optional query parameters
func (s *ExternalAPIService) Get(ctx context.Context, endpoint string, params url.Values, headers map[string]string) (*http.Response, error) {
	return s.makeRequest(ctx, "GET", endpoint, params, nil, headers)
}

// Post makes a POST request to the external service, accepting optional query parameters
func (s *ExternalAPIService) Post(ctx context.Context, endpoint string, params url.Values, body interface{}, headers map[string]string) (*http.Response, error) {
	return s.makeRequest(ctx, "POST", endpoint, params, body, headers)
}

// Put makes a PUT request to the external service, accepting optional query parameters
func (s *ExternalAPIService) Put(ctx context.Context, endpoint string, params url.Values, body interface{}, headers map[string]string) (*http.Response, error) {
	return s.makeRequest(ctx, "PUT", endpoint, params, body, headers)
}

// Delete makes a DELETE request to the external service. Some aggregation
// endpoints expect a JSON body on DELETE, so one is supported.
func (s *ExternalAPIService) Delete(ctx context.Context, endpoint string, params url.Values, body interface{}, headers map[string]string) (*http.Response, error) {
	return s.makeRequest(ctx, "DELETE", endpoint, params, body, headers)
}
