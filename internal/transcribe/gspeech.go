package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"linelogger/internal/domain"
)

// encodingGuess is one recognition config tried against the clip. LINE does
// not advertise the codec of downloaded audio, so configs are guessed in a
// fixed order until one yields results.
type encodingGuess struct {
	name       string
	encoding   speechpb.RecognitionConfig_AudioEncoding
	sampleRate int32
}

var defaultGuesses = []encodingGuess{
	{name: "auto", encoding: speechpb.RecognitionConfig_ENCODING_UNSPECIFIED},
	{name: "ogg-opus-16k", encoding: speechpb.RecognitionConfig_OGG_OPUS, sampleRate: 16000},
	{name: "mp3-16k", encoding: speechpb.RecognitionConfig_MP3, sampleRate: 16000},
	{name: "linear16-16k", encoding: speechpb.RecognitionConfig_LINEAR16, sampleRate: 16000},
}

// GoogleBackend recognizes speech through the Cloud Speech-to-Text API,
// trying several encoding configurations as sub-attempts.
type GoogleBackend struct {
	client   *speech.Client
	language string
	guesses  []encodingGuess
	logger   *slog.Logger
}

// NewGoogleBackend creates the Cloud Speech backend.
func NewGoogleBackend(ctx context.Context, language string, logger *slog.Logger, opts ...option.ClientOption) (*GoogleBackend, error) {
	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	if language == "" {
		language = "zh-TW"
	}
	return &GoogleBackend{
		client:   client,
		language: language,
		guesses:  defaultGuesses,
		logger:   logger,
	}, nil
}

func (g *GoogleBackend) Name() string { return "google-speech" }

func (g *GoogleBackend) Close() error {
	if g == nil || g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Recognize tries each encoding guess in order. An auth/permission error from
// any guess aborts immediately; other errors move on to the next guess. A
// guess that completes cleanly with zero results ends this backend's search
// as no-speech.
func (g *GoogleBackend) Recognize(ctx context.Context, audio []byte) ([]domain.SpeechHit, error) {
	if len(audio) == 0 {
		return nil, nil
	}

	var lastErr error
	for _, guess := range g.guesses {
		req := &speechpb.RecognizeRequest{
			Config: &speechpb.RecognitionConfig{
				Encoding:                   guess.encoding,
				SampleRateHertz:            guess.sampleRate,
				LanguageCode:               g.language,
				EnableAutomaticPunctuation: true,
			},
			Audio: &speechpb.RecognitionAudio{
				AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
			},
		}

		resp, err := g.client.Recognize(ctx, req)
		if err != nil {
			switch status.Code(err) {
			case codes.Unauthenticated, codes.PermissionDenied:
				return nil, domain.AuthFailure(fmt.Errorf("speech recognize (%s): %w", guess.name, err))
			}
			lastErr = err
			g.logger.Warn("speech config failed, trying next",
				"config", guess.name,
				"error", err,
			)
			continue
		}

		hits := parseRecognizeResponse(resp)
		if len(hits) == 0 {
			g.logger.Info("speech config completed with no results", "config", guess.name)
			return nil, nil
		}
		return hits, nil
	}

	return nil, fmt.Errorf("all encoding configs failed: %w", lastErr)
}

func parseRecognizeResponse(resp *speechpb.RecognizeResponse) []domain.SpeechHit {
	if resp == nil {
		return nil
	}
	var hits []domain.SpeechHit
	for _, r := range resp.Results {
		if r == nil || len(r.Alternatives) == 0 || r.Alternatives[0] == nil {
			continue
		}
		alt := r.Alternatives[0]
		if strings.TrimSpace(alt.Transcript) == "" {
			continue
		}
		hits = append(hits, domain.SpeechHit{
			Text:       strings.TrimSpace(alt.Transcript),
			Confidence: float64(alt.Confidence),
		})
	}
	return hits
}
