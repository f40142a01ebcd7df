// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Slothbot Contributors

package command

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/slothbot-dev/slothbot/internal/store"
)

// Category is a classification target. Classified blobs move under Prefix.
type Category struct {
	Name    string   `mapstructure:"name" yaml:"name" json:"name"`
	Prefix  string   `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	Aliases []string `mapstructure:"aliases" yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// DefaultCategories is used when none are configured.
func DefaultCategories() []Category {
	return []Category{{Name: "doll", Prefix: "dolls", Aliases: []string{"dolls", "娃娃", "玩偶"}}}
}

// Catalog resolves operator-typed category words.
type Catalog struct {
	byKey  map[string]Category
	names  []string
	strict bool
}

// NewCatalog indexes categories by case-folded name and alias. In strict
// mode only listed categories resolve.
func NewCatalog(categories []Category, strict bool) *Catalog {
	c := &Catalog{byKey: map[string]Category{}, strict: strict}
	for _, cat := range categories {
		if cat.Name == "" {
			continue
		}
		if cat.Prefix == "" {
			cat.Prefix = PrefixFor(cat.Name)
		}
		c.names = append(c.names, cat.Name)
		c.byKey[foldKey(cat.Name)] = cat
		for _, alias := range cat.Aliases {
			if _, taken := c.byKey[foldKey(alias)]; !taken {
				c.byKey[foldKey(alias)] = cat
			}
		}
	}
	return c
}

// Resolve maps a typed word to a category. Outside strict mode an unlisted
// word becomes its own category with a derived prefix. The placeholder
// category of pending records never resolves.
func (c *Catalog) Resolve(word string) (Category, bool) {
	word = strings.TrimSpace(word)
	if word == "" || foldKey(word) == foldKey(store.CategoryUnknown) {
		return Category{}, false
	}
	if cat, ok := c.byKey[foldKey(word)]; ok {
		return cat, true
	}
	if c.strict {
		return Category{}, false
	}
	return Category{Name: word, Prefix: PrefixFor(word)}, true
}

// Names lists configured category names in configuration order.
func (c *Catalog) Names() []string {
	return c.names
}

// PrefixFor derives an object prefix from a category name: lower-cased,
// letters and digits kept, everything else collapsed to '-'.
func PrefixFor(name string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimRight(b.String(), "-")
	if out == "" {
		return "misc"
	}
	return out
}

func foldKey(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}
