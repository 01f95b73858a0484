package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeTitle(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{
			name:  "lowercase and punctuation",
			title: "The Witcher 3: Wild Hunt",
			want:  "the witcher 3 wild hunt",
		},
		{
			name:  "dash separator equals colon separator",
			title: "The Witcher 3 - Wild Hunt",
			want:  "the witcher 3 wild hunt",
		},
		{
			name:  "goty suffix in parentheses",
			title: "The Witcher 3 - Wild Hunt (Game of the Year Edition)",
			want:  "the witcher 3 wild hunt",
		},
		{
			name:  "definitive edition suffix",
			title: "Death Stranding Definitive Edition",
			want:  "death stranding",
		},
		{
			name:  "trademark glyphs dropped",
			title: "DOOM® Eternal™",
			want:  "doom eternal",
		},
		{
			name:  "whitespace collapsed",
			title: "  Hades   ",
			want:  "hades",
		},
		{
			name:  "diacritics folded",
			title: "Pokémon",
			want:  "pokemon",
		},
		{
			name:  "suffix-only title survives",
			title: "Remastered",
			want:  "remastered",
		},
		{
			name:  "apostrophes removed",
			title: "Assassin's Creed",
			want:  "assassin s creed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTitle(tt.title))
		})
	}
}

func TestNormalizeTitleDeterministic(t *testing.T) {
	a := NormalizeTitle("The Witcher® 3: Wild Hunt — GOTY")
	b := NormalizeTitle("The Witcher® 3: Wild Hunt — GOTY")
	assert.Equal(t, a, b)
}

func TestSimilarityRatio(t *testing.T) {
	assert.Equal(t, 1.0, SimilarityRatio("hades", "hades"))
	assert.Equal(t, 1.0, SimilarityRatio("", ""))
	assert.InDelta(t, 0.8, SimilarityRatio("abcde", "abcdf"), 0.001)
	assert.Greater(t, SimilarityRatio("the witcher 3 wild hunt", "the witcher 3 wildhunt"), FuzzyThreshold)
	assert.Less(t, SimilarityRatio("hades", "celeste"), FuzzyThreshold)
}
