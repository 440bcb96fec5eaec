// internal/common/gcp/unavailable.go
package gcp

import (
	"context"

	"cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// UnavailableSpeech stands in for the speech client when it could not be constructed at startup.
// Every call reports codes.Unavailable so the API answers 503.
type UnavailableSpeech struct {
	Reason string
}

func (u UnavailableSpeech) Recognize(ctx context.Context, req *speechpb.RecognizeRequest) (*speechpb.RecognizeResponse, error) {
	return nil, status.Errorf(codes.Unavailable, "speech client not initialized: %s", u.Reason)
}

// UnavailableGenAI is the generative counterpart of UnavailableSpeech.
type UnavailableGenAI struct {
	Reason string
}

func (u UnavailableGenAI) Generate(ctx context.Context, prompt string) (string, error) {
	return "", status.Errorf(codes.Unavailable, "generative client not initialized: %s", u.Reason)
}
