package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient() *OAuthClient {
	return &OAuthClient{
		ClientID:     "roster-client.apps.googleusercontent.com",
		ProjectID:    "roster",
		AuthURI:      "https://accounts.google.com/o/oauth2/auth",
		TokenURI:     "https://oauth2.googleapis.com/token",
		ClientSecret: "secret",
		RedirectURIs: []string{"http://localhost"},
	}
}

func TestValidateOAuthClient_Installed(t *testing.T) {
	cfg := &OAuthClientConfig{Installed: testClient()}
	require.NoError(t, ValidateOAuthClient(cfg))
	assert.Same(t, cfg.Installed, cfg.Client())
}

func TestValidateOAuthClient_Web(t *testing.T) {
	cfg := &OAuthClientConfig{Web: testClient()}
	require.NoError(t, ValidateOAuthClient(cfg))
	assert.Same(t, cfg.Web, cfg.Client())
}

func TestValidateOAuthClient_NeedsExactlyOneSection(t *testing.T) {
	err := ValidateOAuthClient(&OAuthClientConfig{})
	assert.ErrorContains(t, err, "exactly one")

	err = ValidateOAuthClient(&OAuthClientConfig{Installed: testClient(), Web: testClient()})
	assert.ErrorContains(t, err, "exactly one")
}

func TestValidateOAuthClient_InvalidFields(t *testing.T) {
	missingID := testClient()
	missingID.ClientID = ""
	assert.ErrorContains(t, ValidateOAuthClient(&OAuthClientConfig{Installed: missingID}), "validation failed")

	badURL := testClient()
	badURL.TokenURI = "not-a-valid-url"
	assert.ErrorContains(t, ValidateOAuthClient(&OAuthClientConfig{Installed: badURL}), "validation failed")
}

func TestLoadOAuthClientFromPath(t *testing.T) {
	data, err := json.Marshal(&OAuthClientConfig{Installed: testClient()})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "oauthClient.json")
	require.NoError(t, os.WriteFile(path, data, 0600))

	cfg, err := LoadOAuthClientFromPath(path)
	require.NoError(t, err)
	assert.Equal(t, "roster-client.apps.googleusercontent.com", cfg.Client().ClientID)

	out, err := cfg.JSON()
	require.NoError(t, err)
	assert.Contains(t, string(out), `"installed"`)
	assert.NotContains(t, string(out), `"web"`)
}

func TestLoadOAuthClientFromPath_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "oauthClient.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0600))

	_, err := LoadOAuthClientFromPath(path)
	assert.ErrorContains(t, err, "failed to parse oauth client file")
}

func TestLoadOAuthClientWithEnv(t *testing.T) {
	dir := t.TempDir()
	data, err := json.Marshal(&OAuthClientConfig{Web: testClient()})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "oauthClient.test.json"), data, 0600))
	t.Chdir(dir)

	cfg, err := LoadOAuthClientWithEnv("test")
	require.NoError(t, err)
	assert.NotNil(t, cfg.Web)
}
