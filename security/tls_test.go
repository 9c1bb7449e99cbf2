package security_test

import (
	"crypto/tls"
	"strings"
	"testing"

	"github.com/kbukum/npuflow/security"
	"github.com/kbukum/npuflow/security/tlstest"
)

func TestDisabled(t *testing.T) {
	for _, cfg := range []*security.TLSConfig{nil, {}} {
		if cfg.Enabled() {
			t.Error("Enabled() = true")
		}
		got, err := cfg.Build()
		if err != nil || got != nil {
			t.Errorf("Build() = %v, %v; want nil, nil", got, err)
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  security.TLSConfig
		want string
	}{
		{"empty", security.TLSConfig{}, ""},
		{"pair", security.TLSConfig{CertFile: "c", KeyFile: "k"}, ""},
		{"cert only", security.TLSConfig{CertFile: "c"}, "set together"},
		{"key only", security.TLSConfig{KeyFile: "k"}, "set together"},
		{"client CA without cert", security.TLSConfig{ClientCAFile: "ca"}, "requires cert_file"},
		{"bad version", security.TLSConfig{CertFile: "c", KeyFile: "k", MinVersion: "1.0"}, "min_version"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("err = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	certs := tlstest.Generate(t)

	cfg := security.TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile, MinVersion: "1.3"}
	got, err := cfg.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(got.Certificates) != 1 {
		t.Errorf("certificates = %d", len(got.Certificates))
	}
	if got.MinVersion != tls.VersionTLS13 {
		t.Errorf("MinVersion = %x", got.MinVersion)
	}
	if got.ClientAuth != tls.NoClientCert {
		t.Errorf("ClientAuth = %v", got.ClientAuth)
	}

	cfg.ClientCAFile = certs.CAFile
	got, err = cfg.Build()
	if err != nil {
		t.Fatalf("Build with client CA: %v", err)
	}
	if got.ClientAuth != tls.RequireAndVerifyClientCert || got.ClientCAs == nil {
		t.Errorf("mTLS not configured: %v", got.ClientAuth)
	}
}

func TestBuildErrors(t *testing.T) {
	certs := tlstest.Generate(t)
	invalid := tlstest.WriteFile(t, "bad.pem", "-----BEGIN CERTIFICATE-----\nnot-base64\n-----END CERTIFICATE-----\n")

	tests := []struct {
		name string
		cfg  security.TLSConfig
	}{
		{"missing cert", security.TLSConfig{CertFile: "/nonexistent/cert.pem", KeyFile: certs.KeyFile}},
		{"invalid client CA", security.TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile, ClientCAFile: invalid}},
		{"missing client CA", security.TLSConfig{CertFile: certs.CertFile, KeyFile: certs.KeyFile, ClientCAFile: "/nonexistent/ca.pem"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.Build(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
