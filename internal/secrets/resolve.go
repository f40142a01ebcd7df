// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package secrets

import (
	"errors"
	"strings"

	"github.com/spf13/viper"

	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

const keyringScheme = "keyring://"

// Ref builds the keyring URI for a key under Service.
func Ref(key string) string {
	return keyringScheme + Service + "/" + key
}

// IsKeyringURI reports whether value uses the keyring:// scheme.
func IsKeyringURI(value string) bool {
	return strings.HasPrefix(value, keyringScheme)
}

// ParseKeyringURI splits keyring://service/key. The key may contain '/'.
func ParseKeyringURI(uri string) (service, key string, err error) {
	if !IsKeyringURI(uri) {
		return "", "", slotherr.Errorf(slotherr.CodeSecretInvalidInput, "not a keyring URI: %q", uri)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(uri, keyringScheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", slotherr.Errorf(slotherr.CodeSecretInvalidInput,
			"invalid keyring URI %q: expected keyring://service/key", uri)
	}
	return service, key, nil
}

// ResolveKeyringURI returns the secret a keyring URI points at, or value
// unchanged when it is not a keyring URI.
func ResolveKeyringURI(store Store, value string) (string, error) {
	if !IsKeyringURI(value) {
		return value, nil
	}
	service, key, err := ParseKeyringURI(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Retrieve(service, key)
	if err != nil {
		return "", slotherr.Wrapf(err, slotherr.CodeSecretResolveFailure, "resolving keyring URI %q", value)
	}
	return secret, nil
}

// ResolveViperSecrets replaces every keyring:// string in v with the secret
// it names. All failures are returned together, each naming its config key.
func ResolveViperSecrets(v *viper.Viper, store Store) error {
	var errs []error
	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if !IsKeyringURI(val) {
			continue
		}
		resolved, err := ResolveKeyringURI(store, val)
		if err != nil {
			errs = append(errs, slotherr.Wrapf(err, slotherr.CodeSecretResolveFailure, "config key %s", key))
			continue
		}
		v.Set(key, resolved)
	}
	return errors.Join(errs...)
}
