package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// OAuthClientConfig is a Google OAuth client file. Desktop clients carry an "installed"
// section and web clients a "web" section; exactly one is expected.
type OAuthClientConfig struct {
	Installed *OAuthClient `json:"installed,omitempty"`
	Web       *OAuthClient `json:"web,omitempty"`
}

// OAuthClient holds the credentials of one client section
type OAuthClient struct {
	ClientID     string   `json:"client_id" validate:"required"`
	ProjectID    string   `json:"project_id,omitempty"`
	AuthURI      string   `json:"auth_uri" validate:"required,url"`
	TokenURI     string   `json:"token_uri" validate:"required,url"`
	ClientSecret string   `json:"client_secret" validate:"required"`
	RedirectURIs []string `json:"redirect_uris,omitempty" validate:"dive,uri"`

	AuthProviderX509CertURL string `json:"auth_provider_x509_cert_url,omitempty" validate:"omitempty,url"`
}

// Client returns whichever section is set
func (c *OAuthClientConfig) Client() *OAuthClient {
	if c.Installed != nil {
		return c.Installed
	}
	return c.Web
}

// JSON re-encodes the client file in the layout Google's helpers expect
func (c *OAuthClientConfig) JSON() ([]byte, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to encode oauth client: %w", err)
	}
	return data, nil
}

// LoadOAuthClientWithEnv loads the OAuth client file for an environment,
// e.g. env="test" looks for "oauthClient.test.json"
func LoadOAuthClientWithEnv(envName string) (*OAuthClientConfig, error) {
	fileName := "oauthClient.json"
	if envName != "" {
		fileName = "oauthClient." + envName + ".json"
	}

	path, err := findFile(fileName)
	if err != nil {
		return nil, fmt.Errorf("failed to find oauth client file: %w", err)
	}

	return LoadOAuthClientFromPath(path)
}

// LoadOAuthClientFromPath loads and validates an OAuth client file
func LoadOAuthClientFromPath(path string) (*OAuthClientConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read oauth client file: %w", err)
	}

	var cfg OAuthClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse oauth client file: %w", err)
	}

	if err := ValidateOAuthClient(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// ValidateOAuthClient checks that exactly one client section is present and complete
func ValidateOAuthClient(cfg *OAuthClientConfig) error {
	if (cfg.Installed == nil) == (cfg.Web == nil) {
		return fmt.Errorf("oauth client validation failed: expected exactly one of installed or web")
	}
	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("oauth client validation failed: %w", err)
	}
	return nil
}

// findFile looks for a file in the current directory, then in the home directory
func findFile(name string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	path := filepath.Join(homeDir, name)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("%s not found in current directory or home directory", name)
}
