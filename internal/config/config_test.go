package config

import (
	"os"
	"testing"
	"time"
)

func TestRequireEnv(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		shouldSet bool
		wantPanic bool
	}{
		{
			name:      "variable set",
			key:       "TEST_VAR",
			value:     "test_value",
			shouldSet: true,
			wantPanic: false,
		},
		{
			name:      "variable not set",
			key:       "TEST_VAR_MISSING",
			shouldSet: false,
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.shouldSet {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnv() should have panicked")
					}
				}()
			}

			result := requireEnv(tt.key)
			if !tt.wantPanic && result != tt.value {
				t.Errorf("requireEnv() = %v, want %v", result, tt.value)
			}
		})
	}
}

func TestRequireEnvInt(t *testing.T) {
	tests := []struct {
		name      string
		key       string
		value     string
		expected  int
		wantPanic bool
	}{
		{
			name:      "valid integer",
			key:       "TEST_INT",
			value:     "42",
			expected:  42,
			wantPanic: false,
		},
		{
			name:      "invalid integer",
			key:       "TEST_INT_INVALID",
			value:     "not_a_number",
			wantPanic: true,
		},
		{
			name:      "missing variable",
			key:       "TEST_INT_MISSING",
			value:     "",
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("requireEnvInt() should have panicked")
					}
				}()
			}

			result := requireEnvInt(tt.key)
			if !tt.wantPanic && result != tt.expected {
				t.Errorf("requireEnvInt() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestPublicHost(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		expected  string
		wantPanic bool
	}{
		{
			name:     "https hostname",
			url:      "https://marks.domain.ext",
			expected: "marks.domain.ext",
		},
		{
			name:     "hostname with port",
			url:      "http://localhost:8080",
			expected: "localhost:8080",
		},
		{
			name:      "relative url",
			url:       "marks.domain.ext",
			wantPanic: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.wantPanic {
				defer func() {
					if r := recover(); r == nil {
						t.Errorf("publicHost() should have panicked")
					}
				}()
			}

			result := publicHost(tt.url)
			if !tt.wantPanic && result != tt.expected {
				t.Errorf("publicHost() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestRedactURL(t *testing.T) {
	got := redactURL("postgres://marks:secret@db:5432/marks")
	if got != "postgres://marks:xxxxx@db:5432/marks" {
		t.Errorf("redactURL() = %v", got)
	}
}

func setRequired(t *testing.T) {
	t.Setenv("MARKS_PUBLIC_URL", "https://marks.domain.ext/")
	t.Setenv("MARKS_DATABASE_URL", "postgres://marks:secret@db:5432/marks")
	t.Setenv("MARKS_REDIS_ADDR", "redis:6379")
	t.Setenv("MARKS_REDIS_DB", "0")
	t.Setenv("MARKS_OAUTH_CLIENT_ID", "client")
	t.Setenv("MARKS_OAUTH_CLIENT_SECRET", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	if cfg.PublicURL != "https://marks.domain.ext" {
		t.Errorf("PublicURL = %v", cfg.PublicURL)
	}
	if cfg.RedirectURL() != "https://marks.domain.ext/auth/callback" {
		t.Errorf("RedirectURL() = %v", cfg.RedirectURL())
	}
	if cfg.OAuthProvider != "google" {
		t.Errorf("OAuthProvider = %v, want google", cfg.OAuthProvider)
	}
	if !cfg.CookieSecure {
		t.Errorf("CookieSecure should default to true for https")
	}
	if cfg.CookieName != "marks_sid" {
		t.Errorf("CookieName = %v", cfg.CookieName)
	}
	if len(cfg.AllowedHosts) != 1 || cfg.AllowedHosts[0] != "marks.domain.ext" {
		t.Errorf("AllowedHosts = %v", cfg.AllowedHosts)
	}
	if cfg.Heartbeat != 30*time.Second {
		t.Errorf("Heartbeat = %v", cfg.Heartbeat)
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("MARKS_PUBLIC_URL", "http://localhost:8080")
	t.Setenv("MARKS_OAUTH_PROVIDER", "GitHub")
	t.Setenv("MARKS_ALLOWED_HOSTS", "localhost:8080, 127.0.0.1:8080")
	t.Setenv("MARKS_SESSION_TTL", "1h")

	cfg := Load()

	if cfg.CookieSecure {
		t.Errorf("CookieSecure should default to false for http")
	}
	if cfg.OAuthProvider != "github" {
		t.Errorf("OAuthProvider = %v, want github", cfg.OAuthProvider)
	}
	if len(cfg.AllowedHosts) != 2 {
		t.Errorf("AllowedHosts = %v", cfg.AllowedHosts)
	}
	if cfg.SessionTTL != time.Hour {
		t.Errorf("SessionTTL = %v", cfg.SessionTTL)
	}
}

func TestLoadRequiresRedisPassword(t *testing.T) {
	setRequired(t)
	t.Setenv("MARKS_REDIS_PASSWORD_REQUIRED", "true")

	defer func() {
		if r := recover(); r == nil {
			t.Errorf("Load() should have panicked")
		}
	}()
	Load()
}

func TestMustDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      time.Duration
		expected time.Duration
	}{
		{
			name:     "valid duration",
			key:      "TEST_DURATION",
			value:    "5s",
			def:      1 * time.Second,
			expected: 5 * time.Second,
		},
		{
			name:     "invalid duration uses default",
			key:      "TEST_DURATION_INVALID",
			value:    "invalid",
			def:      10 * time.Second,
			expected: 10 * time.Second,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_DURATION_MISSING",
			value:    "",
			def:      15 * time.Second,
			expected: 15 * time.Second,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustDuration(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustDuration() = %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMustBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		def      bool
		expected bool
	}{
		{
			name:     "true value",
			key:      "TEST_BOOL",
			value:    "true",
			def:      false,
			expected: true,
		},
		{
			name:     "false value",
			key:      "TEST_BOOL_FALSE",
			value:    "false",
			def:      true,
			expected: false,
		},
		{
			name:     "invalid value uses default",
			key:      "TEST_BOOL_INVALID",
			value:    "invalid",
			def:      true,
			expected: true,
		},
		{
			name:     "missing variable uses default",
			key:      "TEST_BOOL_MISSING",
			value:    "",
			def:      false,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				if err := os.Setenv(tt.key, tt.value); err != nil {
					t.Fatalf("failed to set env var: %v", err)
				}
				defer func() {
					if err := os.Unsetenv(tt.key); err != nil {
						t.Errorf("failed to unset env var: %v", err)
					}
				}()
			}

			result := mustBool(tt.key, tt.def)
			if result != tt.expected {
				t.Errorf("mustBool() = %v, want %v", result, tt.expected)
			}
		})
	}
}
