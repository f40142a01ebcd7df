// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slothbot-dev/slothbot/internal/command"
)

func TestCatalogResolve(t *testing.T) {
	c := command.NewCatalog(command.DefaultCategories(), false)

	for _, word := range []string{"doll", "DOLL", "Dolls", "娃娃", "玩偶"} {
		cat, ok := c.Resolve(word)
		require.True(t, ok, word)
		assert.Equal(t, "doll", cat.Name, word)
		assert.Equal(t, "dolls", cat.Prefix, word)
	}

	cat, ok := c.Resolve("Robot Toys")
	require.True(t, ok)
	assert.Equal(t, "Robot Toys", cat.Name)
	assert.Equal(t, "robot-toys", cat.Prefix)

	_, ok = c.Resolve("  ")
	assert.False(t, ok)

	for _, word := range []string{"unknown", "Unknown", " UNKNOWN "} {
		_, ok = c.Resolve(word)
		assert.False(t, ok, word)
	}
}

func TestCatalogStrict(t *testing.T) {
	c := command.NewCatalog([]command.Category{{Name: "car"}}, true)

	cat, ok := c.Resolve("car")
	require.True(t, ok)
	assert.Equal(t, "car", cat.Prefix, "prefix defaults to the derived name")

	_, ok = c.Resolve("doll")
	assert.False(t, ok)
	assert.Equal(t, []string{"car"}, c.Names())
}

func TestPrefixFor(t *testing.T) {
	tests := map[string]string{
		"doll":        "doll",
		"Robot Toys":  "robot-toys",
		"a/../b":      "a-b",
		"娃娃":          "娃娃",
		"!!!":         "misc",
		"  trailing!": "trailing",
	}
	for in, want := range tests {
		assert.Equal(t, want, command.PrefixFor(in), in)
	}
}
