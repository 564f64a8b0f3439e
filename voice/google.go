package voice

import (
	"context"
	"fmt"
	"strings"
	"time"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
)

type SpeechConfig struct {
	// Language is a short code ("hi") or a BCP-47 tag ("hi-IN").
	Language        string
	Encoding        string
	SampleRateHertz int
	Timeout         time.Duration
}

// GoogleTranscriber transcribes short utterances with Google Cloud
// Speech-to-Text synchronous recognition.
type GoogleTranscriber struct {
	recognize func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error)
	close     func() error
	cfg       SpeechConfig
}

var _ Transcriber = (*GoogleTranscriber)(nil)

// NewGoogleTranscriber dials the speech API with application default
// credentials.
func NewGoogleTranscriber(ctx context.Context, cfg SpeechConfig) (*GoogleTranscriber, error) {
	client, err := speech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("speech client: %w", err)
	}
	return &GoogleTranscriber{
		recognize: func(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
			return client.Recognize(ctx, req)
		},
		close: client.Close,
		cfg:   cfg,
	}, nil
}

func (g *GoogleTranscriber) Close() error {
	if g == nil || g.close == nil {
		return nil
	}
	return g.close()
}

func (g *GoogleTranscriber) Transcribe(ctx context.Context, audio []byte) (string, error) {
	if len(audio) == 0 {
		return "", ErrNoSpeech
	}
	timeout := g.cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := g.recognize(ctx, g.request(audio))
	if err != nil {
		return "", fmt.Errorf("speech recognize: %w", err)
	}
	var parts []string
	for _, r := range resp.GetResults() {
		if len(r.GetAlternatives()) == 0 {
			continue
		}
		if t := strings.TrimSpace(r.GetAlternatives()[0].GetTranscript()); t != "" {
			parts = append(parts, t)
		}
	}
	if len(parts) == 0 {
		return "", ErrNoSpeech
	}
	return strings.Join(parts, " "), nil
}

func (g *GoogleTranscriber) request(audio []byte) *speechpb.RecognizeRequest {
	return &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   speechEncoding(g.cfg.Encoding),
			SampleRateHertz:            int32(max(g.cfg.SampleRateHertz, 0)),
			LanguageCode:               RecognitionLanguage(g.cfg.Language),
			EnableAutomaticPunctuation: true,
			MaxAlternatives:            1,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	}
}

func speechEncoding(name string) speechpb.RecognitionConfig_AudioEncoding {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "linear16", "wav", "pcm":
		return speechpb.RecognitionConfig_LINEAR16
	case "flac":
		return speechpb.RecognitionConfig_FLAC
	case "mp3":
		return speechpb.RecognitionConfig_MP3
	case "ogg", "ogg_opus", "opus":
		return speechpb.RecognitionConfig_OGG_OPUS
	case "webm", "webm_opus":
		return speechpb.RecognitionConfig_WEBM_OPUS
	default:
		return speechpb.RecognitionConfig_ENCODING_UNSPECIFIED
	}
}
