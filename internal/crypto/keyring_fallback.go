//go:build !darwin

package crypto

import (
	"errors"
	"fmt"
	"os"
)

type fallbackKeyring struct{}

func newPlatformKeyring() Keyring {
	return &fallbackKeyring{}
}

// GetKey retrieves the encryption key from KAITENBILL_DB_KEY
func (k *fallbackKeyring) GetKey() (string, error) {
	key := os.Getenv(KeyEnvVar)
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", KeyEnvVar)
	}
	return key, nil
}

// SetKey returns an error suggesting to set the environment variable
func (k *fallbackKeyring) SetKey(password string) error {
	if password == "" {
		return errors.New("password cannot be empty")
	}
	return fmt.Errorf("keyring not available on this platform: please set %s environment variable to '%s'", KeyEnvVar, password)
}

// DeleteKey returns an error suggesting to unset the environment variable
func (k *fallbackKeyring) DeleteKey() error {
	return fmt.Errorf("keyring not available on this platform: please unset %s environment variable manually", KeyEnvVar)
}

// GetToken retrieves the Kaiten token from KAITENBILL_API_TOKEN
func (k *fallbackKeyring) GetToken() (string, error) {
	token := os.Getenv(TokenEnvVar)
	if token == "" {
		return "", fmt.Errorf("%s environment variable not set", TokenEnvVar)
	}
	return token, nil
}

func (k *fallbackKeyring) SetToken(token string) error {
	if token == "" {
		return errors.New("API token cannot be empty")
	}
	return fmt.Errorf("keyring not available on this platform: set %s or kaiten.api_token in the config file", TokenEnvVar)
}

// IsAvailable checks if the KAITENBILL_DB_KEY environment variable is set
func (k *fallbackKeyring) IsAvailable() bool {
	return os.Getenv(KeyEnvVar) != ""
}
