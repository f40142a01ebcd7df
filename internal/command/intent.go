// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package command

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Kind identifies what a line of operator text asks for.
type Kind int

const (
	KindFallback Kind = iota
	KindListNamed
	KindSearch
	KindClassify
	KindName
	KindDescribe
	KindUpdateImagePrompt
	KindMarkDone
)

var kindNames = map[Kind]string{
	KindFallback:          "fallback",
	KindListNamed:         "list_named",
	KindSearch:            "search",
	KindClassify:          "classify",
	KindName:              "name",
	KindDescribe:          "describe",
	KindUpdateImagePrompt: "update_image_prompt",
	KindMarkDone:          "mark_done",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Intent is the parsed form of one operator message. Arg carries the
// keyword, category or free text the intent operates on; Text is the
// original trimmed message.
type Intent struct {
	Kind Kind
	Arg  string
	Text string
}

type rule struct {
	kind     Kind
	keywords []string
	exact    bool // the whole message must equal a keyword
}

// rules are evaluated top to bottom; the first match wins. Longer keywords
// precede their prefixes ("classify as" before "classify").
var rules = []rule{
	{kind: KindListNamed, keywords: []string{"清單", "列表", "list"}, exact: true},
	{kind: KindSearch, keywords: []string{"搜尋", "搜索", "search"}},
	{kind: KindClassify, keywords: []string{"分類為", "分類", "classify as", "classify"}},
	{kind: KindName, keywords: []string{"命名", "name"}},
	{kind: KindDescribe, keywords: []string{"描述", "describe"}},
	{kind: KindUpdateImagePrompt, keywords: []string{"更新圖片", "update image"}, exact: true},
	{kind: KindMarkDone, keywords: []string{"完成", "done"}, exact: true},
}

// Parse classifies text. It never fails: anything unrecognised, including a
// recognised keyword with no argument, is KindFallback.
func Parse(text string) Intent {
	t := strings.TrimSpace(text)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if r.exact {
				if strings.EqualFold(t, kw) {
					return Intent{Kind: r.kind, Text: t}
				}
				continue
			}
			if arg, ok := cutKeyword(t, kw); ok {
				if arg == "" {
					return Intent{Kind: KindFallback, Arg: t, Text: t}
				}
				return Intent{Kind: r.kind, Arg: arg, Text: t}
			}
		}
	}
	return Intent{Kind: KindFallback, Arg: t, Text: t}
}

// cutKeyword matches kw at the start of t (ASCII case-insensitively) and
// returns the argument after it. ASCII keywords must be followed by a space
// or colon so "named" does not match "name"; CJK keywords need no separator.
func cutKeyword(t, kw string) (string, bool) {
	if len(t) < len(kw) || !strings.EqualFold(t[:len(kw)], kw) {
		return "", false
	}
	rest := t[len(kw):]
	if rest == "" {
		return "", true
	}
	next, _ := utf8.DecodeRuneInString(rest)
	if isASCIIWord(kw) && !isSeparator(next) {
		return "", false
	}
	return strings.TrimSpace(strings.TrimLeftFunc(rest, isSeparator)), true
}

func isSeparator(r rune) bool {
	return r == ':' || r == '：' || unicode.IsSpace(r)
}

func isASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
