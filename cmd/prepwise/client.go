package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/auth"
	"github.com/felixgeelhaar/prepwise/internal/config"
	"github.com/golang-jwt/jwt/v5"
)

const tokenFile = "token"

// errNotLoggedIn means no token is stored yet
var errNotLoggedIn = errors.New("not logged in (run 'prepwise login <email>')")

// client talks to the daemon's HTTP API
type client struct {
	baseURL string
	token   string
	http    *http.Client
}

// apiError is a non-2xx daemon reply
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("daemon returned %d: %s", e.Status, e.Message)
}

// daemonAddr builds the daemon URL from config.yaml
func daemonAddr() string {
	cfg, err := config.LoadLocalConfig()
	if err != nil {
		cfg = config.DefaultLocalConfig()
	}
	return fmt.Sprintf("http://%s:%d", cfg.Daemon.Bind, cfg.Daemon.Port)
}

func newClient(baseURL, token string) *client {
	return &client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// authedClient returns a client carrying the stored token
func authedClient() (*client, error) {
	token, err := loadToken()
	if err != nil {
		return nil, err
	}
	return newClient(daemonAddr(), token), nil
}

// do sends body as JSON and decodes the reply into out. Either may be nil.
func (c *client) do(method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, r)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w (is the daemon running? try 'prepwise start')", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var e struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &apiError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// isRunning checks if the daemon is running by calling the health endpoint
func isRunning() bool {
	resp, err := http.Get(daemonAddr() + "/v1/health")
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func tokenPath() (string, error) {
	dir, err := config.PrepwiseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, tokenFile), nil
}

func saveToken(token string) error {
	path, err := tokenPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create prepwise dir: %w", err)
	}
	return os.WriteFile(path, []byte(token+"\n"), 0600)
}

func loadToken() (string, error) {
	path, err := tokenPath()
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return "", errNotLoggedIn
	}
	if err != nil {
		return "", fmt.Errorf("read token: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", errNotLoggedIn
	}
	return token, nil
}

// tokenClaims reads the claims of a stored token without verifying the
// signature. The daemon verifies; the CLI only needs to know who it is.
func tokenClaims(token string) (*auth.Claims, error) {
	claims := &auth.Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	return claims, nil
}
