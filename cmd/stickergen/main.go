// Command stickergen runs one generation request from the terminal, without
// the HTTP server. Handy for trying prompts and checking provider setups.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"funmoji/internal/domain"
	"funmoji/internal/generator"
	"funmoji/internal/infra"
	"funmoji/internal/providers/grok"
	"funmoji/internal/providers/replicate"
	"funmoji/internal/sticker"
	"funmoji/internal/storage"
)

func main() {
	var (
		photoFlag    string
		promptFlag   string
		styleFlag    string
		providerFlag string
		destFlag     string
		outFlag      string
		timeoutFlag  time.Duration
	)

	flag.StringVar(&photoFlag, "photo", "", "path or URL of the source photo (optional)")
	flag.StringVar(&promptFlag, "prompt", "", "text prompt (optional when -photo is set)")
	flag.StringVar(&styleFlag, "style", "", "photo style id, see -list-styles")
	flag.StringVar(&providerFlag, "provider", "", "preferred provider (replicate, grok)")
	flag.StringVar(&destFlag, "dest", "whatsapp", "destination app (whatsapp, telegram)")
	flag.StringVar(&outFlag, "out", "", "output directory (defaults to OUTPUT_DIR)")
	flag.DurationVar(&timeoutFlag, "timeout", 5*time.Minute, "overall request timeout")
	listStyles := flag.Bool("list-styles", false, "print the style catalog and exit")
	flag.Parse()

	if *listStyles {
		for _, s := range generator.PhotoStyles {
			fmt.Printf("%-12s %s\n", s.ID, s.Label)
		}
		return
	}

	if strings.TrimSpace(photoFlag) == "" && strings.TrimSpace(promptFlag) == "" {
		exitWithError(errors.New("either -photo or -prompt must be provided"))
	}

	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		exitWithError(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	outDir := strings.TrimSpace(outFlag)
	if outDir == "" {
		outDir = cfg.OutputDir
	}
	store, err := storage.NewFileStore(outDir)
	if err != nil {
		exitWithError(err)
	}
	materializer, err := sticker.NewMaterializer(sticker.Options{Store: store, Logger: &logger})
	if err != nil {
		exitWithError(err)
	}

	orchestrator, err := generator.New(generator.Options{
		Replicate: replicate.NewClient(replicate.Options{
			APIToken:        cfg.ReplicateAPIToken,
			BaseURL:         cfg.ReplicateBaseURL,
			Logger:          &logger,
			PollInterval:    cfg.PollInterval,
			PollMaxAttempts: cfg.PollMaxAttempts,
		}),
		Grok: grok.NewClient(grok.Options{
			APIKey:  cfg.XAIAPIKey,
			BaseURL: cfg.XAIBaseURL,
			Logger:  &logger,
		}),
		Materializer: materializer,
		Logger:       &logger,
		OnTransition: func(_ string, state generator.State) {
			fmt.Fprintf(os.Stderr, "... %s\n", state)
		},
	})
	if err != nil {
		exitWithError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeoutFlag)
	defer cancel()

	result, err := orchestrator.Generate(ctx, domain.GenerationRequest{
		PhotoURI:    strings.TrimSpace(photoFlag),
		Prompt:      promptFlag,
		Style:       styleFlag,
		Provider:    domain.Provider(providerFlag),
		Destination: domain.Destination(destFlag),
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, generator.FriendlyMessage(err, cfg.DefaultLocale))
		exitWithError(err)
	}
	for _, s := range result.Stickers {
		fmt.Println(s.LocalFileURI)
	}
}

func exitWithError(err error) {
	fmt.Fprintf(os.Stderr, "stickergen: %v\n", err)
	os.Exit(1)
}
