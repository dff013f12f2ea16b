package auth

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// APIKeyStore matches presented API keys against bcrypt hashes.
type APIKeyStore struct {
	hashes [][]byte
}

// NewAPIKeyStore validates and loads the configured hashes.
func NewAPIKeyStore(hashes []string) (*APIKeyStore, error) {
	s := &APIKeyStore{}
	for i, h := range hashes {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return nil, fmt.Errorf("api key hash %d: %w", i, err)
		}
		s.hashes = append(s.hashes, []byte(h))
	}
	return s, nil
}

// Len returns the number of configured keys.
func (s *APIKeyStore) Len() int {
	if s == nil {
		return 0
	}
	return len(s.hashes)
}

// Match reports whether key matches any configured hash.
func (s *APIKeyStore) Match(key string) bool {
	if s == nil || key == "" {
		return false
	}
	for _, h := range s.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			return true
		}
	}
	return false
}

// HashAPIKey returns the bcrypt hash to place in auth.api_key_hashes.
func HashAPIKey(key string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash api key: %w", err)
	}
	return string(h), nil
}
