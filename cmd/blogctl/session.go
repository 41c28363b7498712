package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/f1blog/internal/client"
)

type storedCookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Expires time.Time `json:"expires,omitempty"`
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".blogctl-session.json"
	}
	return filepath.Join(dir, "f1blog", "session.json")
}

// newClient creates an API client with the saved session restored
func newClient(opts *globalOptions) (*client.Client, error) {
	c, err := client.New(opts.server, opts.timeout)
	if err != nil {
		return nil, err
	}

	cookies, err := loadCookies(opts.sessionFile)
	if err != nil {
		return nil, err
	}
	c.SetCookies(cookies)
	return c, nil
}

func loadCookies(path string) ([]*http.Cookie, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var stored []storedCookie
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("corrupt session file %s: %w", path, err)
	}

	cookies := make([]*http.Cookie, 0, len(stored))
	for _, sc := range stored {
		if !sc.Expires.IsZero() && sc.Expires.Before(time.Now()) {
			continue
		}
		cookies = append(cookies, &http.Cookie{Name: sc.Name, Value: sc.Value, Path: "/", Expires: sc.Expires})
	}
	return cookies, nil
}

// saveCookies writes the client's cookies with owner-only permissions.
// An empty jar removes the file.
func saveCookies(path string, c *client.Client) error {
	cookies := c.Cookies()
	if len(cookies) == 0 {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove session file: %w", err)
		}
		return nil
	}

	stored := make([]storedCookie, 0, len(cookies))
	for _, ck := range cookies {
		stored = append(stored, storedCookie{Name: ck.Name, Value: ck.Value, Expires: ck.Expires})
	}

	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	return nil
}
