package openai

import (
	"errors"
	"testing"

	"github.com/cellarpress/sommelier/internal/domain"
)

func TestDecodeClassification_Semantic(t *testing.T) {
	content := `{"type":"semantic","taster_name":null,"min_points":null,"max_points":null,"min_price":null,"max_price":null}`

	c, err := decodeClassification(content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Type != domain.TypeSemantic {
		t.Errorf("type: got %q", c.Type)
	}
	if c.HasFilters() {
		t.Error("expected no filters")
	}
}

func TestDecodeClassification_KeywordWithFilters(t *testing.T) {
	content := `{"type":"keyword","taster_name":"Roger Voss","min_points":95}`

	c, err := decodeClassification(content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Type != domain.TypeKeyword {
		t.Errorf("type: got %q", c.Type)
	}
	if c.TasterName == nil || *c.TasterName != "Roger Voss" {
		t.Errorf("taster_name: got %v", c.TasterName)
	}
	if c.MinPoints == nil || *c.MinPoints != 95 {
		t.Errorf("min_points: got %v", c.MinPoints)
	}
	if c.MaxPoints != nil || c.MinPrice != nil || c.MaxPrice != nil {
		t.Error("unmentioned filters must stay nil")
	}
}

func TestDecodeClassification_CodeFence(t *testing.T) {
	content := "```json\n{\"type\":\"semantic\"}\n```"

	c, err := decodeClassification(content)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if c.Type != domain.TypeSemantic {
		t.Errorf("type: got %q", c.Type)
	}
}

func TestDecodeClassification_Malformed(t *testing.T) {
	for _, content := range []string{
		"not json at all",
		`{"type":"vibes"}`,
		`{"min_points":90}`, // missing type
	} {
		_, err := decodeClassification(content)
		if !errors.Is(err, domain.ErrClassifierError) {
			t.Errorf("content %q: expected ErrClassifierError, got %v", content, err)
		}
	}
}
