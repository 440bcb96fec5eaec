// internal/common/gcp/speech.go
package gcp

import (
	"context"

	speech "cloud.google.com/go/speech/apiv1"
	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"

	"craftconnect/internal/common/config"
)

type SpeechClient struct {
	client *speech.Client
}

// NewSpeechClient dials Cloud Speech-to-Text. Without a credentials path it falls back to
// application default credentials.
func NewSpeechClient(ctx context.Context, cfg config.GoogleConfig) (*SpeechClient, error) {
	var opts []option.ClientOption
	if cfg.HasCredentials() {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsPath))
	}
	if cfg.HasProject() {
		opts = append(opts, option.WithQuotaProject(cfg.ProjectID))
	}

	client, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &SpeechClient{client: client}, nil
}

func (s *SpeechClient) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return s.client.Recognize(ctx, req)
}

func (s *SpeechClient) Close() error {
	return s.client.Close()
}
