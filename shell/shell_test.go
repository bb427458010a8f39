package shell

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCarouselWraps(t *testing.T) {
	tests := []struct {
		index    int
		expected int
		next     int
		prev     int
	}{
		{0, 0, 1, 7},
		{7, 7, 0, 6},
		{8, 0, 1, 7},
		{-1, 7, 0, 6},
		{-9, 7, 0, 6},
		{17, 1, 2, 0},
	}

	for _, tt := range tests {
		c := NewCarousel(tt.index)
		if c.Index != tt.expected {
			t.Errorf("NewCarousel(%d).Index = %d; want %d", tt.index, c.Index, tt.expected)
		}
		if got := c.Next(); got != tt.next {
			t.Errorf("NewCarousel(%d).Next() = %d; want %d", tt.index, got, tt.next)
		}
		if got := c.Prev(); got != tt.prev {
			t.Errorf("NewCarousel(%d).Prev() = %d; want %d", tt.index, got, tt.prev)
		}
	}
}

func TestCarousel(t *testing.T) {
	c := NewCarousel(4)

	assert.Len(t, c.Quotes, 8)
	assert.Equal(t, "Steve Jobs", c.Current().Name)
	assert.Equal(t, 5, c.Position())
	assert.Equal(t, int64(6000), c.IntervalMillis())
}

func TestQuotesReturnsCopy(t *testing.T) {
	q := Quotes()
	q[0].Name = "changed"
	assert.Equal(t, "Virgil Abloh", Quotes()[0].Name)
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
		excludes string
	}{
		{"emphasis", "Loves *tea*", "<em>tea</em>", ""},
		{"link kept", "[site](https://cozycurated.com)", `href="https://cozycurated.com"`, ""},
		{"script stripped", "hi <script>alert(1)</script>", "hi", "<script>"},
		{"javascript link stripped", "[x](javascript:alert(1))", "x", "javascript:"},
		{"line breaks", "one\ntwo", "<br", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := string(Markdown(tt.input))
			assert.Contains(t, got, tt.contains)
			if tt.excludes != "" {
				assert.NotContains(t, got, tt.excludes)
			}
		})
	}
}

func TestInitial(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"jane", "J"},
		{"  zoë", "Z"},
		{"éva", "É"},
		{"", "?"},
		{"   ", "?"},
	}
	for _, tt := range tests {
		if got := Initial(tt.name); got != tt.expected {
			t.Errorf("Initial(%q) = %q; want %q", tt.name, got, tt.expected)
		}
	}
}

func TestFuncMap(t *testing.T) {
	fm := FuncMap()
	for _, name := range []string{"markdown", "initial", "year", "millis", "orDefault", "dict"} {
		assert.Contains(t, fm, name)
	}
	orDefault := fm["orDefault"].(func(string, string) string)
	assert.Equal(t, "Member", orDefault("Member", " "))
	assert.Equal(t, "Curator", orDefault("Member", "Curator"))
}

func TestDict(t *testing.T) {
	m, err := dict("Text", "saved", "Delay", 3)
	assert.NoError(t, err)
	assert.Equal(t, map[string]any{"Text": "saved", "Delay": 3}, m)

	_, err = dict("odd")
	assert.Error(t, err)
	_, err = dict(1, "x")
	assert.Error(t, err)
}

func TestNav(t *testing.T) {
	var paths []string
	for _, l := range Nav() {
		paths = append(paths, l.Path)
	}
	assert.Equal(t, "/ /contact /profile", strings.Join(paths, " "))
}
