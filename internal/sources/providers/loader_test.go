package providers

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	t.Setenv("GITLAB_SECRET", "s3cret")

	path := writeFile(t, `
providers:
  GitLab:
    auth_url: https://gitlab.example.test/oauth/authorize
    token_url: https://gitlab.example.test/oauth/token
    userinfo_url: https://gitlab.example.test/oauth/userinfo
    client_id: gl-client
    client_secret: ${GITLAB_SECRET}
    scopes: [openid, email]
    claims:
      name: nickname
`)

	catalogue, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	gl, ok := catalogue.Get("gitlab")
	if !ok {
		t.Fatal("gitlab provider missing")
	}
	if gl.ClientSecret != "s3cret" {
		t.Errorf("ClientSecret = %q, want expanded env value", gl.ClientSecret)
	}
	if gl.Label != "Gitlab" {
		t.Errorf("Label = %q, want %q", gl.Label, "Gitlab")
	}
	if gl.Claims.ID != "sub" || gl.Claims.Name != "nickname" {
		t.Errorf("Claims = %+v, want defaults with name override", gl.Claims)
	}

	if _, ok := catalogue.Get(Google); !ok {
		t.Error("built-in google provider should survive a catalogue file")
	}
}

func TestLoaderLoadNoFile(t *testing.T) {
	catalogue, err := NewLoader("").Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := catalogue.Names(); len(got) != 1 || got[0] != Google {
		t.Errorf("Names() = %v, want [google]", got)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	_, err := NewLoader("/nonexistent/path/providers.yaml").Load()
	if err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestLoaderLoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "malformed yaml",
			content: "providers: [",
		},
		{
			name: "missing token url",
			content: `
providers:
  acme:
    auth_url: https://acme.test/auth
    userinfo_url: https://acme.test/me
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLoader(writeFile(t, tt.content)).Load(); err == nil {
				t.Error("Load() should fail")
			}
		})
	}
}

func TestCatalogueWithCredentials(t *testing.T) {
	c := Builtin().merge(Catalogue{"acme": {ClientID: "own"}}).WithCredentials("default-id", "default-secret")

	google, _ := c.Get("Google")
	if google.ClientID != "default-id" || google.ClientSecret != "default-secret" {
		t.Errorf("google credentials = %q/%q, want defaults", google.ClientID, google.ClientSecret)
	}
	acme, _ := c.Get("acme")
	if acme.ClientID != "own" {
		t.Errorf("acme ClientID = %q, want own value kept", acme.ClientID)
	}
}
