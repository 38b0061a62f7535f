package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling/types"
)

func asgTags(name string, tags map[string]string) []types.Tag {
	var out []types.Tag
	for k, v := range tags {
		out = append(out, types.Tag{
			Key:               aws.String(k),
			Value:             aws.String(v),
			ResourceId:        aws.String(name),
			ResourceType:      aws.String("auto-scaling-group"),
			PropagateAtLaunch: aws.Bool(true),
		})
	}
	return out
}

func joinSubnets(ids []string) *string {
	if len(ids) == 0 {
		return nil
	}
	joined := ids[0]
	for _, id := range ids[1:] {
		joined += "," + id
	}
	return aws.String(joined)
}

func (p *Provider) createAutoScalingGroup(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	name := getString(attrs, "name")

	input := &autoscaling.CreateAutoScalingGroupInput{
		AutoScalingGroupName: aws.String(name),
		MinSize:              aws.Int32(getInt32(attrs, "minSize")),
		MaxSize:              aws.Int32(getInt32(attrs, "maxSize")),
		LaunchTemplate: &types.LaunchTemplateSpecification{
			LaunchTemplateId: aws.String(getString(attrs, "launchTemplateId")),
			Version:          aws.String("$Default"),
		},
		VPCZoneIdentifier: joinSubnets(getStringSlice(attrs, "subnetIds")),
	}
	if has(attrs, "desiredCapacity") {
		input.DesiredCapacity = aws.Int32(getInt32(attrs, "desiredCapacity"))
	}
	if arns := getStringSlice(attrs, "targetGroupArns"); len(arns) > 0 {
		input.TargetGroupARNs = arns
	}
	if tags := getStringMap(attrs, "tags"); len(tags) > 0 {
		input.Tags = asgTags(name, tags)
	}

	if _, err := p.autoscalingClient.CreateAutoScalingGroup(ctx, input); err != nil {
		return "", nil, err
	}

	// The group name is its identifier; there is no separate ID.
	return name, map[string]any{"id": name, "name": name}, nil
}

func (p *Provider) updateAutoScalingGroup(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	input := &autoscaling.UpdateAutoScalingGroupInput{
		AutoScalingGroupName: aws.String(id),
		MinSize:              aws.Int32(getInt32(attrs, "minSize")),
		MaxSize:              aws.Int32(getInt32(attrs, "maxSize")),
		LaunchTemplate: &types.LaunchTemplateSpecification{
			LaunchTemplateId: aws.String(getString(attrs, "launchTemplateId")),
			Version:          aws.String("$Default"),
		},
		VPCZoneIdentifier: joinSubnets(getStringSlice(attrs, "subnetIds")),
	}
	if has(attrs, "desiredCapacity") {
		input.DesiredCapacity = aws.Int32(getInt32(attrs, "desiredCapacity"))
	}

	if _, err := p.autoscalingClient.UpdateAutoScalingGroup(ctx, input); err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "name": id}, nil
}

func (p *Provider) destroyAutoScalingGroup(ctx context.Context, id string) error {
	_, err := p.autoscalingClient.DeleteAutoScalingGroup(ctx, &autoscaling.DeleteAutoScalingGroupInput{
		AutoScalingGroupName: aws.String(id),
		ForceDelete:          aws.Bool(true),
	})
	return err
}
