package credentials

import (
	"errors"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// ErrNotFound is returned by a Source that has nothing to offer; the chain
// moves on to the next source.
var ErrNotFound = errors.New("credentials: not found")

// Credentials is an archive identity/secret pair: email + API key for RDA,
// UID + API key for CDS.
type Credentials struct {
	Identity string
	Secret   string
}

func (c Credentials) complete() bool {
	return c.Identity != "" && c.Secret != ""
}

// Source yields credentials from one backing store.
type Source interface {
	Resolve() (Credentials, error)
}

// EnvSource reads an identity/secret pair from two environment variables.
type EnvSource struct {
	IdentityVar string
	SecretVar   string
}

func (s EnvSource) Resolve() (Credentials, error) {
	creds := Credentials{
		Identity: os.Getenv(s.IdentityVar),
		Secret:   os.Getenv(s.SecretVar),
	}

	if !creds.complete() {
		return Credentials{}, ErrNotFound
	}

	return creds, nil
}

// FileSource reads an identity/secret pair from a named section of a TOML
// credentials file, e.g.
//
//	[rda]
//	identity = "someone@example.org"
//	secret = "0123456789abcdef"
type FileSource struct {
	Path    string
	Section string
}

type fileSection struct {
	Identity string `toml:"identity"`
	Secret   string `toml:"secret"`
}

func (s FileSource) Resolve() (Credentials, error) {
	if _, err := os.Stat(s.Path); err != nil {
		return Credentials{}, ErrNotFound
	}

	var sections map[string]fileSection
	if _, err := toml.DecodeFile(s.Path, &sections); err != nil {
		return Credentials{}, fmt.Errorf("failed to parse credentials file %s: %w", s.Path, err)
	}

	sec, ok := sections[s.Section]
	if !ok {
		return Credentials{}, ErrNotFound
	}

	creds := Credentials{Identity: sec.Identity, Secret: sec.Secret}
	if !creds.complete() {
		return Credentials{}, ErrNotFound
	}

	return creds, nil
}

// Chain tries each source in order and returns the first complete pair.
// Environment sources are listed before file sources so the environment
// always wins.
type Chain []Source

func (c Chain) Resolve() (Credentials, error) {
	for _, src := range c {
		creds, err := src.Resolve()
		if err == nil {
			return creds, nil
		}

		if !errors.Is(err, ErrNotFound) {
			return Credentials{}, err
		}
	}

	return Credentials{}, ErrNotFound
}
