package embedding

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// DefaultModelID is the Titan multimodal embedding model, which accepts text, an image, or both.
const DefaultModelID = "amazon.titan-embed-image-v1"

// modelInvoker is the part of the Bedrock runtime client the provider uses.
type modelInvoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// BedrockProvider embeds text and images with an Amazon Titan multimodal model.
type BedrockProvider struct {
	client     modelInvoker
	modelID    string
	dimensions int
}

type titanEmbeddingConfig struct {
	OutputEmbeddingLength int `json:"outputEmbeddingLength"`
}

type titanMultimodalRequest struct {
	InputText       string                `json:"inputText,omitempty"`
	InputImage      string                `json:"inputImage,omitempty"`
	EmbeddingConfig *titanEmbeddingConfig `json:"embeddingConfig,omitempty"`
}

type titanMultimodalResponse struct {
	Embedding           []float32 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
	Message             string    `json:"message,omitempty"`
}

// NewBedrockProvider loads the default AWS credential chain for region and
// returns a provider for modelID producing vectors of the given dimension
// (Titan multimodal supports 256, 384 and 1024).
func NewBedrockProvider(ctx context.Context, region, modelID string, dimensions int) (*BedrockProvider, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newBedrockProvider(bedrockruntime.NewFromConfig(cfg), modelID, dimensions)
}

func newBedrockProvider(client modelInvoker, modelID string, dimensions int) (*BedrockProvider, error) {
	switch dimensions {
	case 256, 384, 1024:
	default:
		return nil, fmt.Errorf("unsupported Titan embedding length %d (supported: 256, 384, 1024)", dimensions)
	}
	if modelID == "" {
		modelID = DefaultModelID
	}
	return &BedrockProvider{client: client, modelID: modelID, dimensions: dimensions}, nil
}

// Embed sends the text and base64-encoded image in one request.
func (p *BedrockProvider) Embed(ctx context.Context, in Input) ([]float32, error) {
	if in.Empty() {
		return nil, ErrEmptyInput
	}
	req := titanMultimodalRequest{
		InputText:       in.Text,
		EmbeddingConfig: &titanEmbeddingConfig{OutputEmbeddingLength: p.dimensions},
	}
	if len(in.Image) > 0 {
		req.InputImage = base64.StdEncoding.EncodeToString(in.Image)
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	output, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(p.modelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke model: %w", err)
	}
	var resp titanMultimodalResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse Titan response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		if resp.Message != "" {
			return nil, fmt.Errorf("no embedding in response: %s", resp.Message)
		}
		return nil, fmt.Errorf("no embedding in response")
	}
	if len(resp.Embedding) != p.dimensions {
		return nil, fmt.Errorf("model returned dimension %d, expected %d", len(resp.Embedding), p.dimensions)
	}
	return resp.Embedding, nil
}

// Dimensions returns the configured output embedding length.
func (p *BedrockProvider) Dimensions() int { return p.dimensions }

// ModelID returns the Bedrock model id.
func (p *BedrockProvider) ModelID() string { return p.modelID }

// Close is a no-op; the AWS client holds no resources that need releasing.
func (p *BedrockProvider) Close() error { return nil }
