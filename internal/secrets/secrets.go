// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

// Package secrets keeps the bot's credentials out of the config file.
// Config values written as keyring://<service>/<key> are resolved against
// a Store after the config is read.
package secrets

// Service is the keyring service slothbot stores its own secrets under.
const Service = "slothbot"

// Well-known secret names under Service.
const (
	KeyChannelSecret      = "line-channel-secret"
	KeyChannelAccessToken = "line-channel-access-token"
	KeyGCSCredentials     = "gcs-credentials-json"
)

// ConfigKeys maps each well-known secret to the config key it fills.
var ConfigKeys = map[string]string{
	KeyChannelSecret:      "line.channel_secret",
	KeyChannelAccessToken: "line.channel_access_token",
	KeyGCSCredentials:     "blobs.gcs.credentials_json",
}

// Store provides secret storage. Retrieve and Delete report a missing key
// with CodeSecretNotFound.
type Store interface {
	Store(service, key, value string) error
	Retrieve(service, key string) (string, error)
	Delete(service, key string) error
	List(service string) ([]string, error)
}
