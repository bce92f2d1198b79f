package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"

	"github.com/pipeworks/taskmesh/internal/auth"
)

// doPostJSON POSTs body (already-marshaled JSON) to url carrying the
// caller's API key, mirroring the teacher's doPostJSON/doGet helpers.
func doPostJSON(url string, body []byte) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if apiKeyFlag != "" {
		req.Header.Set(auth.APIKeyHeader, apiKeyFlag)
	}
	return doRequest(req)
}

// doGet issues a GET carrying the caller's API key.
func doGet(url string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if apiKeyFlag != "" {
		req.Header.Set(auth.APIKeyHeader, apiKeyFlag)
	}
	return doRequest(req)
}

func doRequest(req *http.Request) ([]byte, error) {
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
