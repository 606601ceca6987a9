// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads NCBI credentials from a directory of plain-text files.
// Each recognised file holds one value; its contents are trimmed.
//
//	ncbi-api-key   E-utilities API key (raises the request rate to 10/s)
//	ncbi-email     contact address sent with every request
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

// DefaultDir is where the CLI looks for credential files.
const DefaultDir = ".secrets/"

// Recognised credential file names.
const (
	APIKeyFile = "ncbi-api-key"
	EmailFile  = "ncbi-email"
)

// Credentials are the optional NCBI identity values.
type Credentials struct {
	APIKey string
	Email  string
}

// Empty reports whether no credential was found.
func (c Credentials) Empty() bool {
	return c.APIKey == "" && c.Email == ""
}

// Names lists the credential files that supplied a value, for logging.
// Values are never included.
func (c Credentials) Names() []string {
	var names []string
	if c.APIKey != "" {
		names = append(names, APIKeyFile)
	}
	if c.Email != "" {
		names = append(names, EmailFile)
	}
	return names
}

// Load reads the credential files in dir. A missing directory or missing
// files yield empty Credentials. An unreadable file is logged and skipped.
// Files other than the recognised names are ignored.
func Load(dir string, logger zerolog.Logger) (Credentials, error) {
	var creds Credentials

	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return creds, nil
		}
		return creds, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}
	if !info.IsDir() {
		return creds, fmt.Errorf("secrets path %s is not a directory", dir)
	}

	targets := map[string]*string{
		APIKeyFile: &creds.APIKey,
		EmailFile:  &creds.Email,
	}
	for name, dst := range targets {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			if !os.IsNotExist(err) {
				logger.Warn().Err(err).Str("file", name).Msg("could not read secret")
			}
			continue
		}
		*dst = strings.TrimSpace(string(data))
	}

	return creds, nil
}
