// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify assigns a topical category to a record by weighted
// keyword scoring. Title matches weigh three times as much as body matches.
package classify

import (
	"strings"
)

const (
	// DefaultCategory is returned when no category wins outright.
	DefaultCategory = "general"

	titleWeight = 3
	bodyWeight  = 1
)

// Category is one entry of the keyword table.
type Category struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
}

// Table is an ordered keyword table. Order only affects iteration, never
// the outcome: ties always resolve to Default.
type Table struct {
	Default    string     `yaml:"default"`
	Categories []Category `yaml:"categories"`
}

// Result is a classification outcome. It is never persisted; only
// Category is attached to the record.
type Result struct {
	Category string
	Score    int
}

// Classifier scores text against a keyword table. It holds no mutable
// state and is safe for concurrent use.
type Classifier struct {
	defaultCategory string
	categories      []Category
}

// New builds a Classifier over t. Keywords are lowercased once here;
// blank keywords are dropped.
func New(t Table) *Classifier {
	c := &Classifier{defaultCategory: t.Default}
	if c.defaultCategory == "" {
		c.defaultCategory = DefaultCategory
	}
	for _, cat := range t.Categories {
		lowered := Category{Name: cat.Name}
		for _, kw := range cat.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				lowered.Keywords = append(lowered.Keywords, kw)
			}
		}
		c.categories = append(c.categories, lowered)
	}
	return c
}

// NewDefault builds a Classifier over the built-in table.
func NewDefault() *Classifier {
	return New(DefaultTable())
}

// Classify returns the category with the strictly highest score. When the
// top score is zero or shared by two or more categories the default
// category wins.
func (c *Classifier) Classify(title, body string) Result {
	title = strings.ToLower(title)
	body = strings.ToLower(body)

	best := Result{Category: c.defaultCategory}
	tied := false
	for _, cat := range c.categories {
		score := 0
		for _, kw := range cat.Keywords {
			score += titleWeight*strings.Count(title, kw) + bodyWeight*strings.Count(body, kw)
		}
		switch {
		case score > best.Score:
			best = Result{Category: cat.Name, Score: score}
			tied = false
		case score == best.Score && score > 0:
			tied = true
		}
	}
	if best.Score == 0 || tied {
		return Result{Category: c.defaultCategory, Score: best.Score}
	}
	return best
}

// Categories returns the category names in table order.
func (c *Classifier) Categories() []string {
	names := make([]string, 0, len(c.categories))
	for _, cat := range c.categories {
		names = append(names, cat.Name)
	}
	return names
}
