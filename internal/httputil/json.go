// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package httputil

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
)

// StatusError reports a non-200 response from an upstream API.
type StatusError struct {
	API        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s API returned HTTP %d", e.API, e.StatusCode)
}

// GetJSON issues a GET to reqURL with retries and decodes the JSON body into
// v. api names the upstream in error messages.
func GetJSON(ctx context.Context, client *http.Client, api, reqURL string, header http.Header, maxRetries int, v any) error {
	return get(ctx, client, api, reqURL, header, "application/json", maxRetries, func(r io.Reader) error {
		return json.NewDecoder(r).Decode(v)
	})
}

// GetXML is GetJSON for XML bodies such as Atom feeds.
func GetXML(ctx context.Context, client *http.Client, api, reqURL string, header http.Header, maxRetries int, v any) error {
	return get(ctx, client, api, reqURL, header, "application/atom+xml, application/xml", maxRetries, func(r io.Reader) error {
		return xml.NewDecoder(r).Decode(v)
	})
}

func get(ctx context.Context, client *http.Client, api, reqURL string, header http.Header, accept string, maxRetries int, decode func(io.Reader) error) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	for k, vals := range header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	req.Header.Set("Accept", accept)

	resp, err := DoWithRetry(ctx, client, req, maxRetries)
	if err != nil {
		return fmt.Errorf("%s API request: %w", api, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return &StatusError{API: api, StatusCode: resp.StatusCode}
	}

	if err := decode(resp.Body); err != nil {
		return fmt.Errorf("parsing %s response: %w", api, err)
	}
	return nil
}
