package cli

import (
	"errors"
	"os"

	"github.com/zalando/go-keyring"
)

const credentialService = "meetai"

// loadToken returns the session token stored for server. MEETAI_TOKEN
// overrides the keychain. A missing token is not an error.
func loadToken(server string) (string, error) {
	if tok := os.Getenv("MEETAI_TOKEN"); tok != "" {
		return tok, nil
	}
	tok, err := keyring.Get(credentialService, server)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", nil
	}
	return tok, err
}

// storeToken saves the session token for server in the OS keychain.
func storeToken(server, token string) error {
	if token == "" {
		return keyring.ErrNotFound
	}
	return keyring.Set(credentialService, server, token)
}

// deleteToken forgets the session token for server.
func deleteToken(server string) error {
	err := keyring.Delete(credentialService, server)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
