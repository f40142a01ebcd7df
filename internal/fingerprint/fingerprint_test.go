// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package fingerprint_test

import (
	"bytes"
	"errors"
	"testing"

	"github.com/slothbot-dev/slothbot/internal/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumDeterministic(t *testing.T) {
	a := fingerprint.Sum([]byte("sloth"))
	b := fingerprint.Sum([]byte("sloth"))
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, fingerprint.Sum([]byte("sloth!")))
	assert.True(t, fingerprint.Valid(a))
}

func TestSumEmptyInput(t *testing.T) {
	assert.Equal(t,
		"sha256:e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		fingerprint.Sum(nil))
}

func TestReaderMatchesSum(t *testing.T) {
	data := bytes.Repeat([]byte{0xff, 0xd8, 0x00}, 100_000)
	got, n, err := fingerprint.Reader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, fingerprint.Sum(data), got)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestReaderPropagatesError(t *testing.T) {
	_, _, err := fingerprint.Reader(failingReader{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{fingerprint.Sum([]byte("x")), true},
		{"sha256:abc", false},
		{"md5:" + string(bytes.Repeat([]byte("a"), 64)), false},
		{"sha256:" + string(bytes.Repeat([]byte("z"), 64)), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fingerprint.Valid(tt.in), tt.in)
	}
}

func TestShort(t *testing.T) {
	assert.Len(t, fingerprint.Short(fingerprint.Sum([]byte("x"))), 12)
	assert.Equal(t, "abc", fingerprint.Short("sha256:abc"))
}
