package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.CMS.Enabled() {
		t.Error("default config should not enable the CMS")
	}
}

func TestLinksConfig_EmptySourceDefaultsFile(t *testing.T) {
	cfg := LinksConfig{File: "links.yaml"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Source != "file" {
		t.Errorf("source = %q, want file", cfg.Source)
	}
}

func TestLinksConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  LinksConfig
		want string
	}{
		{"unknown source", LinksConfig{Source: "ldap"}, "links"},
		{"file without path", LinksConfig{Source: "file"}, "file is empty"},
		{"negative cap", LinksConfig{Source: "cms", MaxTotalLinks: -1}, "links"},
		{"negative ttl", LinksConfig{Source: "cms", CacheTTL: -1}, "links"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestCMSConfig_BaseURL(t *testing.T) {
	for _, u := range []string{"", "http://cms:3000", "https://cms.example.com/"} {
		cfg := CMSConfig{BaseURL: u}
		if err := cfg.Validate(); err != nil {
			t.Errorf("%q: unexpected error %v", u, err)
		}
	}
	for _, u := range []string{"cms.example.com", "ftp://cms.example.com", "http://"} {
		cfg := CMSConfig{BaseURL: u}
		if err := cfg.Validate(); err == nil {
			t.Errorf("%q: expected error", u)
		}
	}
}

func TestFullConfig_CMSSourceNeedsBaseURL(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Links.Source = "cms"
	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "cms.base_url") {
		t.Fatalf("err = %v, want cms.base_url error", err)
	}

	cfg.CMS.BaseURL = "http://cms:3000"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("cms config with base url: %v", err)
	}
}

func TestMetricsConfig_Path(t *testing.T) {
	cfg := MetricsConfig{}
	if err := cfg.Validate(); err != nil || cfg.Path != "/metrics" {
		t.Fatalf("empty path: %v, %q", err, cfg.Path)
	}
	for _, p := range []string{"metrics", "/api/metrics"} {
		cfg := MetricsConfig{Path: p}
		if err := cfg.Validate(); err == nil {
			t.Errorf("%q: expected error", p)
		}
	}
}

func TestHTTPConfig_Port(t *testing.T) {
	cfg := HTTPConfig{Port: 70000}
	if err := cfg.Validate(); err == nil {
		t.Error("port above 65535 should fail")
	}
	cfg.Port = 9000
	if got := cfg.Address(); got != ":9000" {
		t.Errorf("Address() = %q", got)
	}
}
