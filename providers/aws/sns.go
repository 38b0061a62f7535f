package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

func (p *Provider) createTopic(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	input := &sns.CreateTopicInput{
		Name: aws.String(getString(attrs, "name")),
	}
	for k, v := range getStringMap(attrs, "tags") {
		input.Tags = append(input.Tags, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}

	resp, err := p.snsClient.CreateTopic(ctx, input)
	if err != nil {
		return "", nil, err
	}
	arn := aws.ToString(resp.TopicArn)

	return arn, map[string]any{
		"id":   arn,
		"arn":  arn,
		"name": getString(attrs, "name"),
	}, nil
}

func (p *Provider) destroyTopic(ctx context.Context, id string) error {
	_, err := p.snsClient.DeleteTopic(ctx, &sns.DeleteTopicInput{TopicArn: aws.String(id)})
	return err
}
