package generator

import (
	"strings"
	"testing"

	"github.com/samber/lo"
)

func TestPromptForResolvesCatalogStyle(t *testing.T) {
	got := promptFor("anime", "ignored free text")
	if !strings.Contains(got, "anime style sticker") {
		t.Fatalf("promptFor anime = %q", got)
	}
}

func TestPromptForIsCaseInsensitive(t *testing.T) {
	if promptFor(" Anime ", "") != promptFor("anime", "") {
		t.Fatal("style lookup should normalize case and whitespace")
	}
}

func TestPromptForFallsBackToUserText(t *testing.T) {
	got := promptFor("not-a-style", "a happy robot sticker")
	if got != "a happy robot sticker" {
		t.Fatalf("promptFor = %q", got)
	}
}

func TestPromptForDefaultsWhenEmpty(t *testing.T) {
	if got := promptFor("", "  "); got != defaultPhotoPrompt {
		t.Fatalf("promptFor = %q", got)
	}
}

func TestPromptForKnowsTextIdeas(t *testing.T) {
	got := promptFor("meme", "")
	if !strings.Contains(got, "meme style sticker") {
		t.Fatalf("promptFor meme = %q", got)
	}
}

func TestCatalogIDsAreUnique(t *testing.T) {
	var ids []string
	for _, s := range append(append([]StylePrompt{}, PhotoStyles...), TextIdeas...) {
		ids = append(ids, s.ID)
	}
	if len(lo.Uniq(ids)) != len(ids) {
		t.Fatalf("duplicate catalog ids: %v", ids)
	}
}
