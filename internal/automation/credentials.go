package automation

import (
	"context"
	"errors"
	"os"
)

// Credentials is a remote-system identity/secret pair.
type Credentials struct {
	Identity string
	Secret   string
}

// CredentialProvider supplies the credentials used for federated login.
type CredentialProvider interface {
	Get(ctx context.Context) (Credentials, error)
}

// EnvCredentialProvider reads credentials from a pair of environment
// variables at call time, so rotated values are picked up without restart.
type EnvCredentialProvider struct {
	IdentityKey string
	SecretKey   string
}

func (p EnvCredentialProvider) Get(context.Context) (Credentials, error) {
	identity := os.Getenv(p.IdentityKey)
	secret := os.Getenv(p.SecretKey)
	if identity == "" || secret == "" {
		return Credentials{}, errors.New("automation: credentials not configured")
	}
	return Credentials{Identity: identity, Secret: secret}, nil
}

// StaticCredentialProvider returns fixed credentials; used by the account
// store after unsealing and by tests.
type StaticCredentialProvider struct {
	Credentials Credentials
}

func (p StaticCredentialProvider) Get(context.Context) (Credentials, error) {
	if p.Credentials.Identity == "" {
		return Credentials{}, errors.New("automation: credentials not configured")
	}
	return p.Credentials, nil
}
