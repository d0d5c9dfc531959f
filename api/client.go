// Package api is the wire surface and HTTP client for the sampling server.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/kherud/llama-sampling/envconfig"
)

type Client struct {
	base *url.URL
	http *http.Client
}

// NewClient targets host, falling back to the configured default when host
// is empty.
func NewClient(host string) *Client {
	if host == "" {
		host = envconfig.Host
	}
	return &Client{
		base: &url.URL{Scheme: "http", Host: host},
		http: http.DefaultClient,
	}
}

func checkError(resp *http.Response, body []byte) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	apiError := StatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	if err := json.Unmarshal(body, &apiError); err != nil {
		apiError.ErrorMessage = string(body)
	}
	return apiError
}

func (c *Client) do(ctx context.Context, method, path string, reqData, respData any) error {
	var reqBody io.Reader
	if reqData != nil {
		data, err := json.Marshal(reqData)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.base.JoinPath(path).String(), reqBody)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	respBody, err := io.ReadAll(response.Body)
	if err != nil {
		return err
	}

	if err := checkError(response, respBody); err != nil {
		return err
	}

	if respData != nil && len(respBody) > 0 {
		return json.Unmarshal(respBody, respData)
	}
	return nil
}

func (c *Client) CreateSession(ctx context.Context, req *CreateSessionRequest) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, "/api/sessions", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Session(ctx context.Context, id string) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/sessions/%s", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Process(ctx context.Context, id string, req *ProcessRequest) (*ProcessResponse, error) {
	var resp ProcessResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%s/tokens", id), req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) ResetSession(ctx context.Context, id string) (*SessionResponse, error) {
	var resp SessionResponse
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/sessions/%s/reset", id), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/sessions/%s", id), nil, nil)
}

func (c *Client) Detect(ctx context.Context, req *DetectRequest) (*DetectResponse, error) {
	var resp DetectResponse
	if err := c.do(ctx, http.MethodPost, "/api/detect", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Presets(ctx context.Context) (*PresetsResponse, error) {
	var resp PresetsResponse
	if err := c.do(ctx, http.MethodGet, "/api/presets", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
