// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package secrets_test

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothbot-dev/slothbot/internal/secrets"
	slotherr "github.com/slothbot-dev/slothbot/pkg/errors"
)

func TestRef(t *testing.T) {
	assert.Equal(t, "keyring://slothbot/line-channel-secret", secrets.Ref(secrets.KeyChannelSecret))
	assert.True(t, secrets.IsKeyringURI(secrets.Ref("x")))
}

func TestParseKeyringURI(t *testing.T) {
	tests := []struct {
		uri         string
		wantService string
		wantKey     string
		wantErr     bool
	}{
		{"keyring://slothbot/line-channel-secret", "slothbot", "line-channel-secret", false},
		{"keyring://slothbot/path/to/key", "slothbot", "path/to/key", false},
		{"vault://secret/key", "", "", true},
		{"keyring://slothbot", "", "", true},
		{"keyring:///key", "", "", true},
		{"keyring://slothbot/", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			svc, key, err := secrets.ParseKeyringURI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, slotherr.HasCode(err, slotherr.CodeSecretInvalidInput))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantService, svc)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestResolveKeyringURI(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store(secrets.Service, "resolve-test", "resolved"))

	val, err := secrets.ResolveKeyringURI(ks, secrets.Ref("resolve-test"))
	require.NoError(t, err)
	assert.Equal(t, "resolved", val)

	val, err = secrets.ResolveKeyringURI(ks, "literal-token")
	require.NoError(t, err)
	assert.Equal(t, "literal-token", val)

	_, err = secrets.ResolveKeyringURI(ks, secrets.Ref("absent"))
	require.Error(t, err)
	assert.True(t, slotherr.HasCode(err, slotherr.CodeSecretNotFound), "innermost code is kept")
}

func TestResolveViperSecrets(t *testing.T) {
	ks := secrets.NewKeyringStore()
	require.NoError(t, ks.Store(secrets.Service, secrets.KeyChannelSecret, "sec"))
	require.NoError(t, ks.Store(secrets.Service, secrets.KeyChannelAccessToken, "tok"))

	v := viper.New()
	for name, configKey := range secrets.ConfigKeys {
		if name != secrets.KeyGCSCredentials {
			v.Set(configKey, secrets.Ref(name))
		}
	}
	v.Set("networking.listen", "127.0.0.1:18790")

	require.NoError(t, secrets.ResolveViperSecrets(v, ks))
	assert.Equal(t, "sec", v.GetString("line.channel_secret"))
	assert.Equal(t, "tok", v.GetString("line.channel_access_token"))
	assert.Equal(t, "127.0.0.1:18790", v.GetString("networking.listen"))
}

func TestResolveViperSecrets_ReportsEveryFailure(t *testing.T) {
	ks := secrets.NewKeyringStore()

	v := viper.New()
	v.Set("line.channel_secret", "keyring://slothbot/missing-secret")
	v.Set("blobs.gcs.credentials_json", "keyring://broken")

	err := secrets.ResolveViperSecrets(v, ks)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line.channel_secret")
	assert.Contains(t, err.Error(), "blobs.gcs.credentials_json")
	assert.Equal(t, "keyring://slothbot/missing-secret", v.GetString("line.channel_secret"), "unresolved values stay in place")
}
