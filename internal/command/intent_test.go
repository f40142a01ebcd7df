// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package command_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slothbot-dev/slothbot/internal/command"
)

func TestParse(t *testing.T) {
	tests := []struct {
		text string
		kind command.Kind
		arg  string
	}{
		{"清單", command.KindListNamed, ""},
		{"  list  ", command.KindListNamed, ""},
		{"LIST", command.KindListNamed, ""},
		{"list dolls", command.KindFallback, "list dolls"},

		{"搜尋 小熊", command.KindSearch, "小熊"},
		{"搜尋小熊", command.KindSearch, "小熊"},
		{"搜尋：小熊", command.KindSearch, "小熊"},
		{"search Bunny", command.KindSearch, "Bunny"},
		{"search", command.KindFallback, "search"},
		{"searching for x", command.KindFallback, "searching for x"},

		{"classify as doll", command.KindClassify, "doll"},
		{"Classify as doll", command.KindClassify, "doll"},
		{"classify doll", command.KindClassify, "doll"},
		{"分類：娃娃", command.KindClassify, "娃娃"},
		{"分類為娃娃", command.KindClassify, "娃娃"},
		{"分類 doll", command.KindClassify, "doll"},
		{"classified", command.KindFallback, "classified"},

		{"命名：小熊", command.KindName, "小熊"},
		{"命名:小熊", command.KindName, "小熊"},
		{"name: Bunny", command.KindName, "Bunny"},
		{"name Bunny Rabbit", command.KindName, "Bunny Rabbit"},
		{"named it", command.KindFallback, "named it"},
		{"命名：", command.KindFallback, "命名："},

		{"描述：軟軟的", command.KindDescribe, "軟軟的"},
		{"describe: soft toy", command.KindDescribe, "soft toy"},

		{"更新圖片", command.KindUpdateImagePrompt, ""},
		{"update image", command.KindUpdateImagePrompt, ""},

		{"完成", command.KindMarkDone, ""},
		{"done", command.KindMarkDone, ""},

		{"hello", command.KindFallback, "hello"},
		{"", command.KindFallback, ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := command.Parse(tt.text)
			assert.Equal(t, tt.kind, got.Kind, "kind")
			assert.Equal(t, tt.arg, got.Arg, "arg")
		})
	}
}

func TestParseIsOrdered(t *testing.T) {
	// "search" is checked before "name", so a search for a name stays a search.
	assert.Equal(t, command.KindSearch, command.Parse("search name: x").Kind)
	assert.Equal(t, command.KindName, command.Parse("name: search x").Kind)
}

func TestParseKeepsOriginalText(t *testing.T) {
	assert.Equal(t, "命名：小熊", command.Parse("  命名：小熊 ").Text)
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "classify", command.KindClassify.String())
	assert.Equal(t, "fallback", command.KindFallback.String())
	assert.Equal(t, "unknown", command.Kind(99).String())
}
