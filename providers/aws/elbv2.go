package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"
)

func elbv2Tags(tags map[string]string) []types.Tag {
	var out []types.Tag
	for k, v := range tags {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out
}

func (p *Provider) createLoadBalancer(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	input := &elbv2.CreateLoadBalancerInput{
		Name:    aws.String(getString(attrs, "name")),
		Subnets: getStringSlice(attrs, "subnets"),
		Type:    types.LoadBalancerTypeEnumApplication,
		Scheme:  types.LoadBalancerSchemeEnumInternetFacing,
	}
	if lbType := getString(attrs, "type"); lbType != "" {
		input.Type = types.LoadBalancerTypeEnum(lbType)
	}
	if getBool(attrs, "internal") {
		input.Scheme = types.LoadBalancerSchemeEnumInternal
	}
	if sgs := getStringSlice(attrs, "securityGroups"); len(sgs) > 0 {
		input.SecurityGroups = sgs
	}
	if tags := getStringMap(attrs, "tags"); len(tags) > 0 {
		input.Tags = elbv2Tags(tags)
	}

	resp, err := p.elbv2Client.CreateLoadBalancer(ctx, input)
	if err != nil {
		return "", nil, err
	}
	lb := resp.LoadBalancers[0]
	arn := aws.ToString(lb.LoadBalancerArn)

	return arn, map[string]any{
		"id":      arn,
		"arn":     arn,
		"dnsName": aws.ToString(lb.DNSName),
	}, nil
}

func (p *Provider) updateLoadBalancer(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	if sgs := getStringSlice(attrs, "securityGroups"); len(sgs) > 0 {
		_, err := p.elbv2Client.SetSecurityGroups(ctx, &elbv2.SetSecurityGroupsInput{
			LoadBalancerArn: aws.String(id),
			SecurityGroups:  sgs,
		})
		if err != nil {
			return nil, err
		}
	}
	if subnets := getStringSlice(attrs, "subnets"); len(subnets) > 0 {
		_, err := p.elbv2Client.SetSubnets(ctx, &elbv2.SetSubnetsInput{
			LoadBalancerArn: aws.String(id),
			Subnets:         subnets,
		})
		if err != nil {
			return nil, err
		}
	}
	return map[string]any{"id": id, "arn": id}, nil
}

func (p *Provider) destroyLoadBalancer(ctx context.Context, id string) error {
	_, err := p.elbv2Client.DeleteLoadBalancer(ctx, &elbv2.DeleteLoadBalancerInput{
		LoadBalancerArn: aws.String(id),
	})
	return err
}

func (p *Provider) createTargetGroup(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	input := &elbv2.CreateTargetGroupInput{
		Name:     aws.String(getString(attrs, "name")),
		Port:     aws.Int32(getInt32(attrs, "port")),
		Protocol: types.ProtocolEnum(getString(attrs, "protocol")),
		VpcId:    aws.String(getString(attrs, "vpcId")),
	}
	if path := getString(attrs, "healthCheckPath"); path != "" {
		input.HealthCheckPath = aws.String(path)
	}

	resp, err := p.elbv2Client.CreateTargetGroup(ctx, input)
	if err != nil {
		return "", nil, err
	}
	arn := aws.ToString(resp.TargetGroups[0].TargetGroupArn)

	return arn, map[string]any{
		"id":  arn,
		"arn": arn,
	}, nil
}

func (p *Provider) updateTargetGroup(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	input := &elbv2.ModifyTargetGroupInput{
		TargetGroupArn: aws.String(id),
	}
	if path := getString(attrs, "healthCheckPath"); path != "" {
		input.HealthCheckPath = aws.String(path)
	}
	if _, err := p.elbv2Client.ModifyTargetGroup(ctx, input); err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "arn": id}, nil
}

func (p *Provider) destroyTargetGroup(ctx context.Context, id string) error {
	_, err := p.elbv2Client.DeleteTargetGroup(ctx, &elbv2.DeleteTargetGroupInput{
		TargetGroupArn: aws.String(id),
	})
	return err
}

func forwardAction(targetGroupArn string) []types.Action {
	return []types.Action{{
		Type:           types.ActionTypeEnumForward,
		TargetGroupArn: aws.String(targetGroupArn),
	}}
}

func (p *Provider) createListener(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	resp, err := p.elbv2Client.CreateListener(ctx, &elbv2.CreateListenerInput{
		LoadBalancerArn: aws.String(getString(attrs, "loadBalancerArn")),
		Port:            aws.Int32(getInt32(attrs, "port")),
		Protocol:        types.ProtocolEnum(getString(attrs, "protocol")),
		DefaultActions:  forwardAction(getString(attrs, "targetGroupArn")),
	})
	if err != nil {
		return "", nil, err
	}
	arn := aws.ToString(resp.Listeners[0].ListenerArn)

	return arn, map[string]any{
		"id":  arn,
		"arn": arn,
	}, nil
}

func (p *Provider) updateListener(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	_, err := p.elbv2Client.ModifyListener(ctx, &elbv2.ModifyListenerInput{
		ListenerArn:    aws.String(id),
		Port:           aws.Int32(getInt32(attrs, "port")),
		Protocol:       types.ProtocolEnum(getString(attrs, "protocol")),
		DefaultActions: forwardAction(getString(attrs, "targetGroupArn")),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "arn": id}, nil
}

func (p *Provider) destroyListener(ctx context.Context, id string) error {
	_, err := p.elbv2Client.DeleteListener(ctx, &elbv2.DeleteListenerInput{
		ListenerArn: aws.String(id),
	})
	return err
}
