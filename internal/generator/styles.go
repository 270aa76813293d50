package generator

import (
	"strings"

	"github.com/samber/lo"
)

// StylePrompt is one entry of the curated prompt catalog.
type StylePrompt struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Prompt string `json:"prompt"`
}

// PhotoStyles work best with a face photo: the style-transfer model turns
// the detected face into this art style.
var PhotoStyles = []StylePrompt{
	{ID: "anime", Label: "Anime", Prompt: "anime style sticker, kawaii, clean vector, white background"},
	{ID: "3d-pixar", Label: "3D Pixar", Prompt: "3D Pixar style sticker, cartoon character, soft lighting, white background"},
	{ID: "comic", Label: "Comic", Prompt: "comic book style sticker, bold outlines, halftone dots, white background"},
	{ID: "pop-art", Label: "Pop Art", Prompt: "pop art style sticker, bold colors, Roy Lichtenstein style, white background"},
	{ID: "watercolor", Label: "Watercolor", Prompt: "watercolor style sticker, soft edges, painterly, white background"},
	{ID: "sketch", Label: "Pencil Sketch", Prompt: "pencil sketch style sticker, detailed shading, hand-drawn look, white background"},
	{ID: "vintage", Label: "Vintage", Prompt: "vintage style sticker, retro aesthetic, soft tones, white background"},
}

// TextIdeas are prompt-only starting points for the text-to-image model.
var TextIdeas = []StylePrompt{
	{ID: "cute-char", Label: "Cute character", Prompt: "cute kawaii character sticker, simple background, sticker style"},
	{ID: "funny-animal", Label: "Funny animal", Prompt: "funny cartoon animal sticker, expressive, cute, simple background"},
	{ID: "fantasy", Label: "Fantasy creature", Prompt: "fantasy creature sticker, magical, detailed, sticker style"},
	{ID: "food-mascot", Label: "Food mascot", Prompt: "cute food character sticker, mascot style, simple background"},
	{ID: "anime-scene", Label: "Anime style", Prompt: "anime style sticker, kawaii, clean vector, simple background"},
	{ID: "meme", Label: "Meme style", Prompt: "meme style sticker, bold, funny, simple background"},
	{ID: "minimal", Label: "Minimal cute", Prompt: "minimal cute sticker, simple shapes, pastel colors, clean background"},
}

const defaultPhotoPrompt = "clean vector sticker, simple shapes, white background"

// promptFor resolves the effective generation prompt: a catalog style wins,
// then free user text, then a safe default for the photo pipeline.
func promptFor(style, userPrompt string) string {
	style = strings.ToLower(strings.TrimSpace(style))
	if style != "" {
		if entry, ok := lo.Find(PhotoStyles, func(s StylePrompt) bool { return s.ID == style }); ok {
			return entry.Prompt
		}
		if entry, ok := lo.Find(TextIdeas, func(s StylePrompt) bool { return s.ID == style }); ok {
			return entry.Prompt
		}
	}
	if userPrompt = strings.TrimSpace(userPrompt); userPrompt != "" {
		return userPrompt
	}
	return defaultPhotoPrompt
}
