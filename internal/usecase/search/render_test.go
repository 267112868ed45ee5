package search

import (
	"strings"
	"testing"

	"github.com/cellarpress/sommelier/internal/domain"
)

func strPtr(s string) *string { return &s }

func f64Ptr(f float64) *float64 { return &f }

func TestFormatForPromptEmpty(t *testing.T) {
	if got := FormatForPrompt(nil); got != "" {
		t.Fatalf("FormatForPrompt(nil) = %q, want empty", got)
	}
	if got := FormatForPrompt([]domain.Review{}); got != "" {
		t.Fatalf("FormatForPrompt(empty) = %q, want empty", got)
	}
}

func TestFormatForPromptFullEntry(t *testing.T) {
	reviews := []domain.Review{{
		ID:          1,
		Title:       "Nicosia 2013 Vulkà Bianco",
		Winery:      strPtr("Nicosia"),
		Variety:     strPtr("White Blend"),
		Province:    strPtr("Sicily & Sardinia"),
		Country:     strPtr("Italy"),
		Points:      87,
		Price:       f64Ptr(15.5),
		TasterName:  strPtr("Kerin O'Keefe"),
		Description: "Aromas include tropical fruit and broom.",
	}}

	got := FormatForPrompt(reviews)
	want := "1. **Nicosia 2013 Vulkà Bianco** (Nicosia)\n" +
		"   Variety: White Blend | Location: Sicily & Sardinia, Italy\n" +
		"   Points: 87 | Price: $15.5 | Reviewer: Kerin O'Keefe\n" +
		"   Description: Aromas include tropical fruit and broom."
	if got != want {
		t.Fatalf("got:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatForPromptMissingFields(t *testing.T) {
	reviews := []domain.Review{{
		ID:          2,
		Title:       "Mystery Red",
		Points:      90,
		Description: "No provenance at all.",
	}}

	got := FormatForPrompt(reviews)
	for _, fragment := range []string{
		"Variety: N/A",
		"Price: N/A",
		"Reviewer: Unknown",
		"Location: \n",
	} {
		if !strings.Contains(got, fragment) {
			t.Fatalf("output missing %q:\n%s", fragment, got)
		}
	}
}

func TestFormatForPromptNumberingAndSeparator(t *testing.T) {
	reviews := []domain.Review{
		{ID: 1, Title: "First", Points: 85, Description: "a"},
		{ID: 2, Title: "Second", Points: 86, Description: "b"},
		{ID: 3, Title: "Third", Points: 87, Description: "c"},
	}

	got := FormatForPrompt(reviews)
	blocks := strings.Split(got, "\n\n")
	if len(blocks) != 3 {
		t.Fatalf("got %d blocks, want 3", len(blocks))
	}
	for i, prefix := range []string{"1. **First**", "2. **Second**", "3. **Third**"} {
		if !strings.HasPrefix(blocks[i], prefix) {
			t.Fatalf("block %d = %q, want prefix %q", i, blocks[i], prefix)
		}
	}
}

func TestFormatForPromptLocationSingleSide(t *testing.T) {
	countryOnly := FormatForPrompt([]domain.Review{{
		Title: "A", Country: strPtr("France"), Points: 88, Description: "d",
	}})
	if !strings.Contains(countryOnly, "Location: France\n") {
		t.Fatalf("country-only location wrong:\n%s", countryOnly)
	}

	provinceOnly := FormatForPrompt([]domain.Review{{
		Title: "B", Province: strPtr("Alsace"), Points: 88, Description: "d",
	}})
	if !strings.Contains(provinceOnly, "Location: Alsace\n") {
		t.Fatalf("province-only location wrong:\n%s", provinceOnly)
	}
}
