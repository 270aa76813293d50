package generator

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"funmoji/internal/domain"
)

func TestFriendlyMessageClassifiesSentinels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "invalid request", err: fmt.Errorf("%w: nothing to do", domain.ErrInvalidRequest), want: messagesEN.invalidRequest},
		{name: "no provider", err: domain.ErrNoProvider, want: messagesEN.noProvider},
		{name: "key missing", err: fmt.Errorf("%w: replicate API token is required", domain.ErrAuth), want: messagesEN.keyMissing},
		{name: "key rejected", err: fmt.Errorf("%w: provider returned 401", domain.ErrAuth), want: messagesEN.keyRejected},
		{name: "rate limited", err: fmt.Errorf("%w: throttled twice", domain.ErrRateLimited), want: messagesEN.rateLimited},
		{name: "timeout", err: fmt.Errorf("%w after 60 attempts", domain.ErrJobTimeout), want: messagesEN.timedOut},
		{name: "empty output", err: fmt.Errorf("%w: object keys [note]", domain.ErrEmptyOutput), want: messagesEN.emptyOutput},
		{name: "download failed", err: fmt.Errorf("%w: status 502", domain.ErrDownloadFailed), want: messagesEN.downloadFailed},
		{name: "bad source", err: fmt.Errorf("%w: ftp://x", domain.ErrInvalidSource), want: messagesEN.downloadFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FriendlyMessage(tt.err, "en"); got != tt.want {
				t.Fatalf("FriendlyMessage = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFriendlyMessageSurfacesJobFailureReason(t *testing.T) {
	err := fmt.Errorf("%w: NSFW content detected", domain.ErrJobFailed)
	got := FriendlyMessage(err, "en")
	if !strings.Contains(got, "NSFW content detected") {
		t.Fatalf("reason lost: %q", got)
	}
	if !strings.HasPrefix(got, messagesEN.jobFailedPrefix) {
		t.Fatalf("missing prefix: %q", got)
	}
}

func TestFriendlyMessageLocalizesToIndonesian(t *testing.T) {
	got := FriendlyMessage(domain.ErrNoProvider, "id-ID")
	if got != messagesID.noProvider {
		t.Fatalf("FriendlyMessage = %q", got)
	}
}

func TestFriendlyMessageDetectsTransportErrors(t *testing.T) {
	err := errors.New(`Post "https://api.replicate.com/v1/predictions": dial tcp: lookup api.replicate.com: no such host`)
	if got := FriendlyMessage(err, "en"); got != messagesEN.network {
		t.Fatalf("FriendlyMessage = %q", got)
	}
}

func TestFriendlyMessagePassesThroughUnknownErrors(t *testing.T) {
	err := errors.New("some completely novel condition")
	if got := FriendlyMessage(err, "en"); got != err.Error() {
		t.Fatalf("FriendlyMessage = %q", got)
	}
}
