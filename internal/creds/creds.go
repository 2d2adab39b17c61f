// Package creds resolves Google service-account credentials from the several
// deployment formats operators actually use: a key file, individual fields,
// a base64 blob, or inline JSON. The rest of the program only ever sees the
// resolved client options.
package creds

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"

	"linelogger/internal/config"
)

// Provider yields ready-to-use service-account JSON.
type Provider interface {
	Name() string
	Credentials() ([]byte, error)
}

// Resolve picks the first applicable provider per the priority order
// file > fields > base64 > json, and returns its resolved key material
// validated against the given scopes.
func Resolve(ctx context.Context, cfg config.CredentialsConfig, logger *slog.Logger, scopes ...string) ([]option.ClientOption, error) {
	for _, p := range providers(cfg) {
		data, err := p.Credentials()
		if err != nil {
			return nil, fmt.Errorf("credentials from %s: %w", p.Name(), err)
		}

		// Fail at startup, not on the first API call.
		if _, err := google.CredentialsFromJSON(ctx, data, scopes...); err != nil {
			return nil, fmt.Errorf("invalid service-account JSON from %s: %w", p.Name(), err)
		}

		logger.Info("google credentials resolved", "source", p.Name())
		return []option.ClientOption{option.WithCredentialsJSON(data)}, nil
	}
	return nil, fmt.Errorf("no credential source configured")
}

func providers(cfg config.CredentialsConfig) []Provider {
	var out []Provider
	if cfg.File != "" {
		out = append(out, FromFile{Path: cfg.File})
	}
	f := cfg.Fields
	if f.ProjectID != "" && f.ClientEmail != "" && f.PrivateKey != "" {
		out = append(out, FromFields{Fields: f})
	}
	if cfg.Base64 != "" {
		out = append(out, FromEncodedBlob{Blob: cfg.Base64})
	}
	if cfg.JSON != "" {
		out = append(out, FromJSONBlob{JSON: cfg.JSON})
	}
	return out
}

// FromFile reads a service-account key file.
type FromFile struct {
	Path string
}

func (p FromFile) Name() string { return "file" }

func (p FromFile) Credentials() ([]byte, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	return data, nil
}

// FromFields assembles a service-account document from individual values,
// the format long env vars end up in on PaaS deployments.
type FromFields struct {
	Fields config.CredentialFieldsConfig
}

func (p FromFields) Name() string { return "fields" }

func (p FromFields) Credentials() ([]byte, error) {
	f := p.Fields

	// Private keys pasted into env vars carry literal \n sequences.
	privateKey := strings.ReplaceAll(f.PrivateKey, `\n`, "\n")

	doc := map[string]string{
		"type":                        "service_account",
		"project_id":                  f.ProjectID,
		"private_key_id":              f.PrivateKeyID,
		"private_key":                 privateKey,
		"client_email":                f.ClientEmail,
		"client_id":                   f.ClientID,
		"auth_uri":                    "https://accounts.google.com/o/oauth2/auth",
		"token_uri":                   "https://oauth2.googleapis.com/token",
		"auth_provider_x509_cert_url": "https://www.googleapis.com/oauth2/v1/certs",
		"client_x509_cert_url": "https://www.googleapis.com/robot/v1/metadata/x509/" +
			strings.ReplaceAll(f.ClientEmail, "@", "%40"),
	}
	return json.Marshal(doc)
}

// FromEncodedBlob decodes a base64-encoded service-account document. Blobs
// that traveled through env vars tend to lose padding and pick up control
// characters, so both are repaired before parsing.
type FromEncodedBlob struct {
	Blob string
}

func (p FromEncodedBlob) Name() string { return "base64" }

func (p FromEncodedBlob) Credentials() ([]byte, error) {
	blob := strings.TrimSpace(p.Blob)
	if missing := len(blob) % 4; missing != 0 {
		blob += strings.Repeat("=", 4-missing)
	}

	decoded, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}

	cleaned := strings.Map(func(r rune) rune {
		if r >= 32 || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, string(decoded))
	cleaned = strings.TrimSpace(cleaned)

	if !json.Valid([]byte(cleaned)) {
		return nil, fmt.Errorf("decoded blob is not valid JSON")
	}
	return []byte(cleaned), nil
}

// FromJSONBlob passes through an inline service-account document.
type FromJSONBlob struct {
	JSON string
}

func (p FromJSONBlob) Name() string { return "json" }

func (p FromJSONBlob) Credentials() ([]byte, error) {
	data := []byte(strings.TrimSpace(p.JSON))
	if !json.Valid(data) {
		return nil, fmt.Errorf("inline credentials are not valid JSON")
	}
	return data, nil
}
