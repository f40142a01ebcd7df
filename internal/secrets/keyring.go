// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package secrets

import (
	"encoding/json"
	"errors"
	"log/slog"
	"slices"

	"github.com/zalando/go-keyring"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

// indexSuffix names the entry holding a service's JSON key list; go-keyring
// cannot enumerate keys itself.
const indexSuffix = "::keys-index"

// KeyringStore implements Store on the OS keyring (Keychain, secret-service
// or Credential Manager).
type KeyringStore struct{}

// NewKeyringStore returns a KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

func checkKey(op, service, key string) error {
	if service == "" {
		return slotherr.Errorf(slotherr.CodeSecretInvalidInput, "secret %s: service must not be empty", op)
	}
	if key == "" {
		return slotherr.Errorf(slotherr.CodeSecretInvalidInput, "secret %s: key must not be empty", op)
	}
	return nil
}

func (s *KeyringStore) Store(service, key, value string) error {
	if err := checkKey("store", service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return slotherr.Wrapf(err, slotherr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return s.updateIndex(service, func(keys []string) []string {
		if slices.Contains(keys, key) {
			return keys
		}
		return append(keys, key)
	})
}

func (s *KeyringStore) Retrieve(service, key string) (string, error) {
	if err := checkKey("retrieve", service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return "", slotherr.Errorf(slotherr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return "", slotherr.Wrapf(err, slotherr.CodeSecretStoreFailure, "retrieving secret %s/%s", service, key)
	}
	return val, nil
}

func (s *KeyringStore) Delete(service, key string) error {
	if err := checkKey("delete", service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	switch {
	case errors.Is(err, keyring.ErrNotFound):
		return slotherr.Errorf(slotherr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	case err != nil:
		return slotherr.Wrapf(err, slotherr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return s.updateIndex(service, func(keys []string) []string {
		return slices.DeleteFunc(keys, func(k string) bool { return k == key })
	})
}

func (s *KeyringStore) List(service string) ([]string, error) {
	raw, err := keyring.Get(service, service+indexSuffix)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, slotherr.Wrapf(err, slotherr.CodeSecretStoreFailure, "loading key index for %s", service)
	}
	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		return nil, slotherr.Wrapf(err, slotherr.CodeSecretStoreFailure, "decoding key index for %s", service)
	}
	return keys, nil
}

func (s *KeyringStore) updateIndex(service string, edit func([]string) []string) error {
	keys, err := s.List(service)
	if err != nil {
		return err
	}
	keys = edit(keys)

	indexKey := service + indexSuffix
	if len(keys) == 0 {
		if err := keyring.Delete(service, indexKey); err != nil && !errors.Is(err, keyring.ErrNotFound) {
			slog.Debug("failed to remove empty key index", "service", service, "error", err)
		}
		return nil
	}

	data, err := json.Marshal(keys)
	if err != nil {
		return slotherr.Wrapf(err, slotherr.CodeSecretStoreFailure, "encoding key index for %s", service)
	}
	if err := keyring.Set(service, indexKey, string(data)); err != nil {
		return slotherr.Wrapf(err, slotherr.CodeSecretStoreFailure, "saving key index for %s", service)
	}
	return nil
}
