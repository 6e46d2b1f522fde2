package credsource

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// Service is the keyring service name under which sudo secrets are
// stored, one entry per remote account.
const Service = "push-image-to-k8s"

// KeyringStore implements [domain.SecretStore] against the OS keyring.
// A missing entry is not an error; resolution falls through to the
// passwordless path.
type KeyringStore struct {
	Service string
}

func (s KeyringStore) Lookup(account string) ([]byte, bool, error) {
	service := s.Service
	if service == "" {
		service = Service
	}

	secret, err := keyring.Get(service, account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("keyring get %s/%s: %w", service, account, err)
	}
	return []byte(secret), true, nil
}
