package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"routeopt/internal/apperror"
)

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (g *Gateway) newRequest(ctx context.Context, method, url string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.cfg.ProjectID != "" {
		req.Header.Set("X-Goog-User-Project", g.cfg.ProjectID)
	}
	return req, nil
}

func (g *Gateway) do(req *http.Request) (*http.Response, error) {
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		return nil, &httpStatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}
	return resp, nil
}

// post sends in as JSON and decodes the response into out.
func (g *Gateway) post(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "encode optimizeTours request")
	}
	req, err := g.newRequest(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return apperror.Wrap(err, apperror.CodeGatewayFailed, "build optimizeTours request")
	}
	resp, err := g.do(req)
	if err != nil {
		ae := apperror.Wrap(err, apperror.CodeGatewayFailed, "optimizeTours call failed")
		if he, ok := err.(*httpStatusError); ok {
			ae.WithDetail("status", he.Code)
		}
		return ae
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperror.Wrap(err, apperror.CodeGatewayFailed, "decode optimizeTours response")
	}
	return nil
}
