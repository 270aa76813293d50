package replicate

import "strings"

// Pinned model versions. The sticker pipeline drives at most four distinct
// models: style transfer conditioned on a face photo, face detection with
// crop, background removal, and plain text-to-image.
const (
	// FaceToStickerVersion is the InstantID-based style-transfer model.
	FaceToStickerVersion = "fofr/face-to-sticker:a99a32fdaa9a9650cfc7900d54323d0d247dac69f7abb05eac0e742687a25662"
	// DetectCropFaceVersion crops the photo to the detected face region.
	DetectCropFaceVersion = "ahmdyassr/detect-crop-face:23ef97b1c72422837f0b25aacad4ec5fa8e2423e2660bc4599347287e14cf94d"
	// RemoveBackgroundVersion isolates the subject on a transparent background.
	RemoveBackgroundVersion = "lucataco/remove-bg:95fcc2a26d3899cd6c2691c900465aaeff466285a65c14638cc5f36f34befaf1"
	// TextToImageVersion generates an image from a prompt alone.
	TextToImageVersion = "black-forest-labs/flux-schnell:bf2f2e683d03a9549f484a37a0df158f1c1f41ef9b2b5b0285a7575ee9f77b63"
)

// FaceToStickerInput builds the style-transfer payload. The weights mirror
// what works best for sticker output at 512px.
func FaceToStickerInput(imageRef, prompt string) map[string]any {
	return map[string]any{
		"image":               imageRef,
		"prompt":              prompt,
		"instant_id_strength": 1,
		"ip_adapter_weight":   0.2,
		"ip_adapter_noise":    0.5,
		"prompt_strength":     7,
		"width":               512,
		"height":              512,
		"steps":               20,
	}
}

// DetectCropFaceInput builds the face-detection payload. Padding keeps some
// context around the face so the sticker does not feel cramped.
func DetectCropFaceInput(imageRef string) map[string]any {
	return map[string]any{
		"image":   imageRef,
		"padding": 0.2,
	}
}

// RemoveBackgroundInput builds the background-removal payload.
func RemoveBackgroundInput(imageRef string) map[string]any {
	return map[string]any{"image": imageRef}
}

// TextToImageInput builds the prompt-only generation payload.
func TextToImageInput(prompt string) map[string]any {
	return map[string]any{
		"prompt":        prompt,
		"aspect_ratio":  "1:1",
		"output_format": "png",
	}
}

// modelName strips the pinned version hash for metric labels.
func modelName(version string) string {
	if i := strings.IndexByte(version, ':'); i > 0 {
		return version[:i]
	}
	return version
}
