package generator

import (
	"errors"
	"strings"

	"funmoji/internal/domain"
)

// FriendlyMessage maps a pipeline error to a user-presentable string in the
// given locale. Classification of transport errors is best-effort substring
// matching against known failure text, so genuinely novel errors fall
// through verbatim.
func FriendlyMessage(err error, locale string) string {
	if err == nil {
		return ""
	}
	msgs := messagesEN
	if strings.HasPrefix(strings.ToLower(locale), "id") {
		msgs = messagesID
	}

	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		return msgs.invalidRequest
	case errors.Is(err, domain.ErrNoProvider):
		return msgs.noProvider
	case errors.Is(err, domain.ErrAuth):
		if containsAny(err.Error(), "required", "missing") {
			return msgs.keyMissing
		}
		return msgs.keyRejected
	case errors.Is(err, domain.ErrRateLimited):
		return msgs.rateLimited
	case errors.Is(err, domain.ErrJobTimeout):
		return msgs.timedOut
	case errors.Is(err, domain.ErrJobFailed):
		if reason := failureReason(err); reason != "" {
			return msgs.jobFailedPrefix + reason
		}
		return msgs.jobFailedPrefix + msgs.jobFailedGeneric
	case errors.Is(err, domain.ErrEmptyOutput):
		return msgs.emptyOutput
	case errors.Is(err, domain.ErrInvalidSource), errors.Is(err, domain.ErrDownloadFailed):
		return msgs.downloadFailed
	case containsAny(err.Error(), "connection refused", "no such host", "dial tcp", "network is unreachable", "i/o timeout", "tls handshake"):
		return msgs.network
	default:
		return err.Error()
	}
}

func failureReason(err error) string {
	_, reason, found := strings.Cut(err.Error(), domain.ErrJobFailed.Error()+": ")
	if !found {
		return ""
	}
	return strings.TrimSpace(reason)
}

func containsAny(s string, subs ...string) bool {
	s = strings.ToLower(s)
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

type messageSet struct {
	invalidRequest   string
	noProvider       string
	keyMissing       string
	keyRejected      string
	rateLimited      string
	timedOut         string
	jobFailedPrefix  string
	jobFailedGeneric string
	emptyOutput      string
	downloadFailed   string
	network          string
}

var messagesEN = messageSet{
	invalidRequest:   "Add a photo or a prompt first.",
	noProvider:       "No image provider is configured. Set REPLICATE_API_TOKEN or XAI_API_KEY and restart.",
	keyMissing:       "The provider API key is not set. Add it to your .env and restart the server.",
	keyRejected:      "The provider rejected the API key. Check the token in your provider account settings.",
	rateLimited:      "The provider is rate limiting us right now. Wait a moment and try again.",
	timedOut:         "The generation took too long and timed out. Try again.",
	jobFailedPrefix:  "Generation failed: ",
	jobFailedGeneric: "the model could not process this input.",
	emptyOutput:      "The provider finished but returned no image. Try a different photo or prompt.",
	downloadFailed:   "The generated image could not be saved. Try again.",
	network:          "Network error. Check your connection and try again.",
}

var messagesID = messageSet{
	invalidRequest:   "Tambahkan foto atau prompt terlebih dahulu.",
	noProvider:       "Belum ada provider gambar yang dikonfigurasi. Atur REPLICATE_API_TOKEN atau XAI_API_KEY lalu mulai ulang.",
	keyMissing:       "API key provider belum diatur. Tambahkan ke file .env lalu mulai ulang server.",
	keyRejected:      "Provider menolak API key. Periksa token di pengaturan akun provider Anda.",
	rateLimited:      "Provider sedang membatasi permintaan. Tunggu sebentar lalu coba lagi.",
	timedOut:         "Proses pembuatan terlalu lama dan kehabisan waktu. Coba lagi.",
	jobFailedPrefix:  "Pembuatan gagal: ",
	jobFailedGeneric: "model tidak dapat memproses input ini.",
	emptyOutput:      "Provider selesai tetapi tidak mengembalikan gambar. Coba foto atau prompt lain.",
	downloadFailed:   "Gambar hasil tidak dapat disimpan. Coba lagi.",
	network:          "Kesalahan jaringan. Periksa koneksi Anda lalu coba lagi.",
}
