package llm

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/raphaelgruber/docforge/internal/conversation"
)

// Bedrock is a Completer over the Bedrock Converse API.
type Bedrock struct {
	client *bedrockruntime.Client
	model  string
}

var _ Completer = (*Bedrock)(nil)

// NewBedrock loads AWS credentials from the default chain.
func NewBedrock(ctx context.Context, region, model string) (*Bedrock, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &Bedrock{client: bedrockruntime.NewFromConfig(cfg), model: model}, nil
}

// Complete converts turns to Converse messages. Converse requires alternating
// roles, so adjacent user turns (framing plus images) are merged first.
func (b *Bedrock) Complete(ctx context.Context, model string, turns []conversation.Turn) (Response, error) {
	if model == "" {
		model = b.model
	}

	input := &bedrockruntime.ConverseInput{ModelId: aws.String(model)}
	for _, t := range mergeConsecutive(turns) {
		if t.Role == conversation.RoleSystem {
			input.System = append(input.System, &types.SystemContentBlockMemberText{Value: t.Text()})
			continue
		}
		blocks, err := bedrockBlocks(t.Segments)
		if err != nil {
			return Response{}, err
		}
		role := types.ConversationRoleUser
		if t.Role == conversation.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		input.Messages = append(input.Messages, types.Message{Role: role, Content: blocks})
	}

	out, err := b.client.Converse(ctx, input)
	if err != nil {
		return Response{}, fmt.Errorf("converse: %w", wrapFatalError(err))
	}

	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return Response{}, fmt.Errorf("unexpected converse output %T", out.Output)
	}
	var resp Response
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			resp.Text += text.Value
		}
	}
	if out.Usage != nil {
		resp.InputTokens = int64(aws.ToInt32(out.Usage.InputTokens))
		resp.OutputTokens = int64(aws.ToInt32(out.Usage.OutputTokens))
	}
	return resp, nil
}

func bedrockBlocks(segs []conversation.Segment) ([]types.ContentBlock, error) {
	blocks := make([]types.ContentBlock, 0, len(segs))
	for _, s := range segs {
		switch s.Kind {
		case conversation.SegmentText:
			blocks = append(blocks, &types.ContentBlockMemberText{Value: s.Text})
		case conversation.SegmentImage:
			data, err := s.Decode()
			if err != nil {
				return nil, fmt.Errorf("decode image: %w", err)
			}
			format := types.ImageFormatPng
			if s.MIMEType == "image/jpeg" {
				format = types.ImageFormatJpeg
			}
			blocks = append(blocks, &types.ContentBlockMemberImage{Value: types.ImageBlock{
				Format: format,
				Source: &types.ImageSourceMemberBytes{Value: data},
			}})
		}
	}
	return blocks, nil
}
