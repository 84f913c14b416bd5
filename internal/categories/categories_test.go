package categories

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Known category", input: "sports", expected: "sports"},
		{name: "Mixed case and spaces", input: "  Health ", expected: "health"},
		{name: "Empty", input: "", expected: "all"},
		{name: "Unknown category", input: "politics", expected: "all"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name     string
		title    string
		fallback string
		expected string
	}{
		{name: "Sports keyword", title: "Cricket final ends in a tie", fallback: "trending", expected: "sports"},
		{name: "First matching set wins", title: "India wins the cricket match", fallback: "trending", expected: "india"},
		{name: "No keyword", title: "Quarterly earnings beat estimates", fallback: "trending", expected: "trending"},
		{name: "Fallback category", title: "Quarterly earnings beat estimates", fallback: "food", expected: "food"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Infer(tt.title, tt.fallback))
		})
	}
}

func TestMatches(t *testing.T) {
	assert.True(t, Matches("anything at all", All))
	assert.True(t, Matches("anything at all", Trending))
	assert.True(t, Matches("NBA playoffs tonight", "sports"))
	assert.False(t, Matches("New vaccine approved", "sports"))
}

func TestAvailable(t *testing.T) {
	available := Available()
	assert.Len(t, available, len(Order))
	assert.Equal(t, Category{ID: "all", Label: "All"}, available[0])
	assert.Equal(t, "events", available[len(available)-1].ID)
	assert.NotContains(t, Specific(), All)
}

func TestFallbackFor(t *testing.T) {
	assert.Equal(t, Trending, FallbackFor(All))
	assert.Equal(t, "food", FallbackFor("food"))
}
