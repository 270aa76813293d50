// Package generator composes the sticker pipeline: prepare the photo, run
// the optional face-detection and background-removal enhancement jobs,
// invoke the generation model chosen by provider policy, normalize the
// output, and materialize every resulting URL into an export-ready file.
package generator

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"funmoji/internal/domain"
	"funmoji/internal/imaging"
	"funmoji/internal/infra"
	"funmoji/internal/infra/metrics"
	"funmoji/internal/providers/grok"
	"funmoji/internal/providers/normalize"
	"funmoji/internal/providers/replicate"
	"funmoji/internal/sticker"
)

// State is one step of the per-request pipeline. States only ever advance;
// any unhandled error jumps straight to StateFailed.
type State string

const (
	StateIdle               State = "idle"
	StatePreparing          State = "preparing"
	StateFaceDetecting      State = "face_detecting"
	StateBackgroundRemoving State = "background_removing"
	StateGenerating         State = "generating"
	StateMaterializing      State = "materializing"
	StateDone               State = "done"
	StateFailed             State = "failed"
)

// defaultMaxFaces bounds per-face branching so one group selfie cannot fan
// out into dozens of generation jobs.
const defaultMaxFaces = 4

// Options wires the orchestrator's collaborators.
type Options struct {
	Replicate    *replicate.Client
	Grok         *grok.Client
	Materializer *sticker.Materializer
	Recents      domain.RecentStickerRepository
	Logger       *infra.Logger
	// OnTransition lets a presentation layer observe state changes. Called
	// synchronously on the request goroutine.
	OnTransition func(requestID string, state State)
	MaxFaces     int
}

// Orchestrator runs one generation request end to end. It holds no mutable
// per-request state, so overlapping requests from the same process are safe.
type Orchestrator struct {
	replicate    *replicate.Client
	grok         *grok.Client
	materializer *sticker.Materializer
	recents      domain.RecentStickerRepository
	logger       *infra.Logger
	onTransition func(string, State)
	maxFaces     int
}

// Result is the successful outcome of one request.
type Result struct {
	Provider domain.Provider
	Stickers []domain.StickerArtifact
}

// New constructs an orchestrator. The materializer is the only hard
// requirement; providers without credentials are skipped by policy.
func New(opts Options) (*Orchestrator, error) {
	if opts.Materializer == nil {
		return nil, fmt.Errorf("generator: materializer is required")
	}
	logger := opts.Logger
	if logger == nil {
		discard := zerolog.Nop()
		l := infra.Logger(discard)
		logger = &l
	}
	maxFaces := opts.MaxFaces
	if maxFaces <= 0 {
		maxFaces = defaultMaxFaces
	}
	return &Orchestrator{
		replicate:    opts.Replicate,
		grok:         opts.Grok,
		materializer: opts.Materializer,
		recents:      opts.Recents,
		logger:       logger,
		onTransition: opts.OnTransition,
		maxFaces:     maxFaces,
	}, nil
}

// Generate runs the full pipeline for one request. It blocks until the
// request is done, failed, or timed out; there is no partial progress
// beyond the state transition hook.
func (o *Orchestrator) Generate(ctx context.Context, req domain.GenerationRequest) (*Result, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	start := time.Now()
	log := o.logger.With().Str("request_id", req.RequestID).Logger()

	if err := req.Validate(); err != nil {
		return nil, o.fail(req, "none", start, err)
	}
	provider, err := o.selectProvider(req.Provider)
	if err != nil {
		return nil, o.fail(req, "none", start, err)
	}
	log = log.With().Str("provider", string(provider)).Logger()

	o.transition(req, StatePreparing)
	imageRef := ""
	if req.HasPhoto() {
		imageRef, err = o.prepare(req, &log)
		if err != nil {
			return nil, o.fail(req, provider, start, err)
		}
	}

	faceRefs := []string{imageRef}
	if imageRef != "" && provider == domain.ProviderReplicate {
		o.transition(req, StateFaceDetecting)
		if refs, detectErr := o.detectFaces(ctx, imageRef); detectErr != nil || len(refs) == 0 {
			// Face detection is a quality enhancement, not a hard
			// dependency: fall back to the prepared photo.
			log.Warn().AnErr("err", detectErr).Msg("face detection unavailable, using prepared photo")
		} else {
			if len(refs) > o.maxFaces {
				refs = refs[:o.maxFaces]
			}
			faceRefs = refs
		}

		o.transition(req, StateBackgroundRemoving)
		for i, ref := range faceRefs {
			cut, cutErr := o.removeBackground(ctx, ref)
			if cutErr != nil {
				log.Warn().Err(cutErr).Msg("background removal unavailable, keeping original")
				continue
			}
			faceRefs[i] = cut
		}
	}

	o.transition(req, StateGenerating)
	urls, diag, err := o.generate(ctx, provider, req, imageRef, faceRefs)
	if err != nil {
		return nil, o.fail(req, provider, start, err)
	}
	if len(urls) == 0 {
		return nil, o.fail(req, provider, start, fmt.Errorf("%w: %s", domain.ErrEmptyOutput, diag))
	}

	o.transition(req, StateMaterializing)
	artifacts := make([]domain.StickerArtifact, 0, len(urls))
	for _, url := range urls {
		path, dlErr := o.materializer.Download(ctx, url, o.downloadAuth(provider))
		if dlErr != nil {
			return nil, o.fail(req, provider, start, dlErr)
		}
		art, fmtErr := o.materializer.Format(ctx, path, req.Destination)
		if fmtErr != nil {
			return nil, o.fail(req, provider, start, fmtErr)
		}
		art.Provider = provider
		artifacts = append(artifacts, art)
	}
	o.recordRecents(ctx, provider, artifacts, &log)

	o.transition(req, StateDone)
	metrics.ObserveGeneration(string(provider), "success", time.Since(start))
	log.Info().Int("stickers", len(artifacts)).Dur("elapsed", time.Since(start)).Msg("generation complete")
	return &Result{Provider: provider, Stickers: artifacts}, nil
}

// HasAnyProvider reports whether at least one provider credential is
// usable; callers can surface this before accepting work.
func (o *Orchestrator) HasAnyProvider() bool {
	_, err := o.selectProvider("")
	return err == nil
}

// selectProvider applies the fallback policy: honor the preference when its
// credential is usable, otherwise fall back to the alternate.
func (o *Orchestrator) selectProvider(pref domain.Provider) (domain.Provider, error) {
	order := []domain.Provider{domain.ProviderReplicate, domain.ProviderGrok}
	if p := pref.Normalize(); p == domain.ProviderGrok {
		order = []domain.Provider{domain.ProviderGrok, domain.ProviderReplicate}
	}
	for _, p := range order {
		switch p {
		case domain.ProviderReplicate:
			if o.replicate != nil && o.replicate.HasCredentials() {
				return p, nil
			}
		case domain.ProviderGrok:
			if o.grok != nil && o.grok.HasCredentials() {
				return p, nil
			}
		}
	}
	return "", domain.ErrNoProvider
}

// prepare resolves the photo input to an image reference a provider can
// consume: remote and embedded references pass through, local files are
// center-cropped, bounded, and inlined as a data URI. A photo that cannot
// be decoded is inlined unmodified rather than blocking generation.
func (o *Orchestrator) prepare(req domain.GenerationRequest, log *zerolog.Logger) (string, error) {
	uri := strings.TrimSpace(req.PhotoURI)
	if len(req.PhotoData) == 0 {
		if strings.HasPrefix(uri, "http://") || strings.HasPrefix(uri, "https://") || strings.HasPrefix(uri, "data:") {
			return uri, nil
		}
		data, err := os.ReadFile(strings.TrimPrefix(uri, "file://"))
		if err != nil {
			return "", fmt.Errorf("%w: read photo: %v", domain.ErrInvalidRequest, err)
		}
		req.PhotoData = data
	}
	prepared, err := imaging.PrepareForUpload(req.PhotoData)
	if err != nil {
		log.Warn().Err(err).Msg("photo prepare failed, uploading original")
		prepared = req.PhotoData
	}
	return imaging.DataURI(prepared), nil
}

func (o *Orchestrator) detectFaces(ctx context.Context, imageRef string) ([]string, error) {
	job, err := o.replicate.Run(ctx, replicate.DetectCropFaceVersion, replicate.DetectCropFaceInput(imageRef))
	if err != nil {
		return nil, err
	}
	return normalize.Normalize(job.RawOutput).URLs, nil
}

func (o *Orchestrator) removeBackground(ctx context.Context, imageRef string) (string, error) {
	job, err := o.replicate.Run(ctx, replicate.RemoveBackgroundVersion, replicate.RemoveBackgroundInput(imageRef))
	if err != nil {
		return "", err
	}
	res := normalize.Normalize(job.RawOutput)
	if len(res.URLs) == 0 {
		return "", fmt.Errorf("%w: %s", domain.ErrEmptyOutput, res.Diagnostic)
	}
	return res.URLs[0], nil
}

// generate invokes the model chosen for the request shape: photo-conditioned
// style transfer per face, or text-to-image when only a prompt was given.
// It returns the normalized URLs plus a diagnostic for the empty case.
func (o *Orchestrator) generate(ctx context.Context, provider domain.Provider, req domain.GenerationRequest, imageRef string, faceRefs []string) ([]string, string, error) {
	prompt := promptFor(req.Style, req.Prompt)
	var urls []string
	var diags []string

	switch {
	case provider == domain.ProviderReplicate && imageRef != "":
		for _, ref := range faceRefs {
			job, err := o.replicate.Run(ctx, replicate.FaceToStickerVersion, replicate.FaceToStickerInput(ref, prompt))
			if err != nil {
				return nil, "", err
			}
			res := normalize.Normalize(job.RawOutput)
			urls = append(urls, res.URLs...)
			if res.Diagnostic != "" {
				diags = append(diags, res.Diagnostic)
			}
		}
	case provider == domain.ProviderReplicate:
		job, err := o.replicate.Run(ctx, replicate.TextToImageVersion, replicate.TextToImageInput(prompt))
		if err != nil {
			return nil, "", err
		}
		res := normalize.Normalize(job.RawOutput)
		urls, diags = res.URLs, appendDiag(diags, res.Diagnostic)
	case imageRef != "":
		job, err := o.grok.Generate(ctx, grok.BuildStickerPrompt(userPromptText(req)), imageRef)
		if err != nil {
			return nil, "", err
		}
		res := normalize.Normalize(job.RawOutput)
		urls, diags = res.URLs, appendDiag(diags, res.Diagnostic)
	default:
		job, err := o.grok.Generate(ctx, prompt, "")
		if err != nil {
			return nil, "", err
		}
		res := normalize.Normalize(job.RawOutput)
		urls, diags = res.URLs, appendDiag(diags, res.Diagnostic)
	}
	return lo.Uniq(urls), strings.Join(diags, "; "), nil
}

func appendDiag(diags []string, d string) []string {
	if d == "" {
		return diags
	}
	return append(diags, d)
}

// userPromptText keeps the Grok wrapper close to what the user typed: a
// catalog style resolves to its prompt, free text passes through, and an
// empty result lets BuildStickerPrompt use its own default.
func userPromptText(req domain.GenerationRequest) string {
	if strings.TrimSpace(req.Style) == "" && strings.TrimSpace(req.Prompt) == "" {
		return ""
	}
	return promptFor(req.Style, req.Prompt)
}

// downloadAuth attaches credentials only for providers whose result URLs
// are not publicly fetchable. Replicate delivery URLs are public.
func (o *Orchestrator) downloadAuth(provider domain.Provider) string {
	if provider == domain.ProviderGrok {
		return o.grok.AuthHeader()
	}
	return ""
}

// recordRecents appends artifacts to the capped recents list. A store
// failure is logged, never surfaced: recents are a convenience, the user
// already has the sticker.
func (o *Orchestrator) recordRecents(ctx context.Context, provider domain.Provider, artifacts []domain.StickerArtifact, log *zerolog.Logger) {
	if o.recents == nil {
		return
	}
	for _, art := range artifacts {
		entry := domain.RecentSticker{
			ID:        uuid.NewString(),
			FileURI:   art.LocalFileURI,
			Provider:  provider,
			CreatedAt: art.CreatedAt,
		}
		if err := o.recents.Append(ctx, entry); err != nil {
			log.Warn().Err(err).Msg("failed to record recent sticker")
		}
	}
}

func (o *Orchestrator) transition(req domain.GenerationRequest, state State) {
	o.logger.Debug().Str("request_id", req.RequestID).Str("state", string(state)).Msg("pipeline transition")
	if o.onTransition != nil {
		o.onTransition(req.RequestID, state)
	}
}

func (o *Orchestrator) fail(req domain.GenerationRequest, provider domain.Provider, start time.Time, err error) error {
	o.transition(req, StateFailed)
	label := string(provider)
	if label == "" {
		label = "none"
	}
	metrics.ObserveGeneration(label, "failure", time.Since(start))
	o.logger.Error().Str("request_id", req.RequestID).Err(err).Msg("generation failed")
	return err
}
