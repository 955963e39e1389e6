package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions_EmbeddedListsLoad(t *testing.T) {
	opts, err := Options()
	require.NoError(t, err)

	assert.Greater(t, len(opts.Categories), MaxCategories)
	assert.Greater(t, len(opts.Countries), MaxCountries)
	assert.Greater(t, len(opts.Languages), MaxLanguages)
	assert.NotEmpty(t, opts.SensitiveCategories)
	assert.Equal(t, 5, opts.Limits.Keywords)
	assert.True(t, opts.IsCategory("Technology"))
	assert.False(t, opts.IsCountry("Atlantis"))
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse([]byte("categories: [unterminated"))
	assert.Error(t, err)
}

func TestSelection_SilentlyCaps(t *testing.T) {
	opts, err := Options()
	require.NoError(t, err)

	tests := []struct {
		name    string
		max     int
		options []string
	}{
		{"Categories", MaxCategories, opts.Categories},
		{"Countries", MaxCountries, opts.Countries},
		{"Languages", MaxLanguages, opts.Languages},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel := NewSelection(tt.max)
			for _, o := range tt.options {
				sel.Add(o)
			}
			assert.Len(t, sel.Values(), tt.max)
			assert.True(t, sel.Full())
			assert.False(t, sel.Add(tt.options[len(tt.options)-1]))
			assert.Equal(t, tt.options[:tt.max], sel.Values())
		})
	}
}

func TestSelection_IgnoresDuplicatesAndEmpty(t *testing.T) {
	sel := NewSelection(MaxKeywords)
	assert.True(t, sel.Add("seo"))
	assert.False(t, sel.Add("seo"))
	assert.False(t, sel.Add(""))
	assert.Equal(t, []string{"seo"}, sel.Values())

	sel.Remove("seo")
	assert.Empty(t, sel.Values())
}

func TestCap(t *testing.T) {
	got := Cap([]string{"a", "b", "a", "c", "d", "e", "f", "g"}, MaxKeywords)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, got)
}
