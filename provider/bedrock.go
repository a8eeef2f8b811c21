package provider

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/rivalscan/rivalscan/flow"
)

// Bedrock is a Completer backed by Amazon Bedrock foundation models through
// the Converse API.
//
// The full AWS credential chain is supported: explicit keys, shared
// profiles, environment variables, and IAM roles.
//
// Example:
//
//	llm, err := NewBedrock(ctx, BedrockConfig{
//	    ModelID: "anthropic.claude-3-5-sonnet-20241022-v2:0",
//	    Region:  "us-west-2",
//	})
type Bedrock struct {
	client  *bedrockruntime.Client
	modelID string
}

// BedrockConfig holds adapter configuration.
type BedrockConfig struct {
	// ModelID is the Bedrock model identifier.
	ModelID string

	// Region is the AWS region (default: us-east-1).
	Region string

	// Profile is an optional AWS shared-config profile name.
	Profile string

	// AccessKeyID, SecretAccessKey, and SessionToken override the default
	// credential chain when set.
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

var _ Completer = (*Bedrock)(nil)

// NewBedrock creates a new Bedrock completion adapter.
func NewBedrock(ctx context.Context, cfg BedrockConfig) (*Bedrock, error) {
	if cfg.ModelID == "" {
		cfg.ModelID = "anthropic.claude-3-5-sonnet-20241022-v2:0"
	}
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	configOpts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		configOpts = append(configOpts, config.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		configOpts = append(configOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsConfig, err := config.LoadDefaultConfig(ctx, configOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Bedrock{
		client:  bedrockruntime.NewFromConfig(awsConfig),
		modelID: cfg.ModelID,
	}, nil
}

// Model returns the Bedrock model identifier.
func (b *Bedrock) Model() string {
	return b.modelID
}

// Complete generates a completion via the Converse API.
func (b *Bedrock) Complete(ctx context.Context, req Request) (string, error) {
	inferenceConfig := &types.InferenceConfiguration{
		MaxTokens: aws.Int32(4096),
	}
	if req.Temperature > 0 {
		inferenceConfig.Temperature = aws.Float32(req.Temperature)
	}
	if req.MaxTokens > 0 {
		inferenceConfig.MaxTokens = aws.Int32(int32(req.MaxTokens))
	}

	input := &bedrockruntime.ConverseInput{
		ModelId: aws.String(b.modelID),
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberText{Value: req.Prompt},
				},
			},
		},
		InferenceConfig: inferenceConfig,
	}
	if req.System != "" {
		input.System = []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: req.System},
		}
	}

	output, err := b.client.Converse(ctx, input)
	if err != nil {
		return "", wrapErr("bedrock", "converse failed", err)
	}

	var text string
	if output.Output != nil {
		if msg, ok := output.Output.(*types.ConverseOutputMemberMessage); ok {
			for _, block := range msg.Value.Content {
				if textBlock, ok := block.(*types.ContentBlockMemberText); ok {
					text += textBlock.Value
				}
			}
		}
	}
	if text == "" {
		return "", flow.NewProviderError("bedrock", "response contained no text blocks", nil)
	}
	return text, nil
}
