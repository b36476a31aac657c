package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/JonMunkholm/dsimport/internal/client"
	"github.com/JonMunkholm/dsimport/internal/config"
	"github.com/JonMunkholm/dsimport/internal/core"
)

// connect loads the configuration and builds a backend client. Without a
// configured API key an interactive terminal is asked for one.
func connect(stderr io.Writer) (*config.Config, *client.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	if cfg.Backend.APIKey == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprint(stderr, "API key: ")
		key, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(stderr)
		if err != nil {
			return nil, nil, fmt.Errorf("read API key: %w", err)
		}
		cfg.Backend.APIKey = strings.TrimSpace(string(key))
	}

	c, err := client.New(client.Options{
		BaseURL:   cfg.Backend.URL,
		APIKey:    cfg.Backend.APIKey,
		ProjectID: cfg.Backend.ProjectID,
		Timeout:   cfg.Backend.Timeout,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, c, nil
}

// readFile reads a CSV file through core.ReadContent's size and encoding
// checks.
func readFile(path string, maxSize int64) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return core.ReadContent(f, maxSize)
}
