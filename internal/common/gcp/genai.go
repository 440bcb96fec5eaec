// internal/common/gcp/genai.go
package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/auth/credentials"
	"google.golang.org/genai"

	"craftconnect/internal/common/config"
)

const cloudPlatformScope = "https://www.googleapis.com/auth/cloud-platform"

// GenAIClient generates text with a Gemini model hosted on Vertex AI.
type GenAIClient struct {
	client *genai.Client
	model  string
}

func NewGenAIClient(ctx context.Context, cfg config.GoogleConfig) (*GenAIClient, error) {
	if !cfg.HasProject() {
		return nil, fmt.Errorf("google project id is not configured")
	}

	clientCfg := &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: cfg.Location,
		Backend:  genai.BackendVertexAI,
	}

	if cfg.HasCredentials() {
		creds, err := credentials.DetectDefault(&credentials.DetectOptions{
			Scopes:          []string{cloudPlatformScope},
			CredentialsFile: cfg.CredentialsPath,
		})
		if err != nil {
			return nil, fmt.Errorf("load credentials from %s: %w", cfg.CredentialsPath, err)
		}
		clientCfg.Credentials = creds
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, err
	}
	return &GenAIClient{client: client, model: cfg.VertexModel}, nil
}

// Generate sends a single text prompt and returns the concatenated text of the first candidate.
func (g *GenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (g *GenAIClient) Model() string {
	return g.model
}
