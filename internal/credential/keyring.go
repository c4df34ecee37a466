// Package credential stores app passwords in the system keyring, keyed by
// account address. Storage is opt-in; the in-session Credentials object
// never touches it unless the user enabled remember_credentials.
package credential

import (
	"fmt"

	"github.com/99designs/keyring"
)

const serviceName = "email-assassin"

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/email-assassin/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("email-assassin-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves the stored app password for an address. A missing entry
// is returned as an error by the backend.
func Get(address string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(address)
	if err != nil {
		return "", fmt.Errorf("getting credential for %q: %w", address, err)
	}

	return string(item.Data), nil
}

// Set stores the app password for an address.
func Set(address, secret string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  address,
		Data: []byte(secret),
	})
	if err != nil {
		return fmt.Errorf("setting credential for %q: %w", address, err)
	}

	return nil
}

// Delete removes the stored app password for an address.
func Delete(address string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	if err := ring.Remove(address); err != nil {
		return fmt.Errorf("deleting credential for %q: %w", address, err)
	}

	return nil
}
