// Package aws implements the provider client for the supported AWS resource
// kinds on top of aws-sdk-go-v2.
package aws

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

type Provider struct {
	mu sync.Mutex

	region string

	ec2Client         *ec2.Client
	elbv2Client       *elasticloadbalancingv2.Client
	autoscalingClient *autoscaling.Client
	iamClient         *iam.Client
	s3Client          *s3.Client
	rdsClient         *rds.Client
	snsClient         *sns.Client
}

func New() *Provider {
	return &Provider{}
}

// ensureClients lazily builds all service clients from the default credential
// chain on first use.
func (p *Provider) ensureClients(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ec2Client != nil {
		return nil
	}

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("unable to load AWS config: %w", err)
	}

	p.region = cfg.Region
	p.ec2Client = ec2.NewFromConfig(cfg)
	p.elbv2Client = elasticloadbalancingv2.NewFromConfig(cfg)
	p.autoscalingClient = autoscaling.NewFromConfig(cfg)
	p.iamClient = iam.NewFromConfig(cfg)
	p.s3Client = s3.NewFromConfig(cfg)
	p.rdsClient = rds.NewFromConfig(cfg)
	p.snsClient = sns.NewFromConfig(cfg)
	return nil
}

func (p *Provider) Create(ctx context.Context, kind string, attrs map[string]any) (string, map[string]any, error) {
	if err := p.ensureClients(ctx); err != nil {
		return "", nil, err
	}

	var (
		id      string
		outputs map[string]any
		err     error
	)
	switch kind {
	case "aws.ec2.Vpc":
		id, outputs, err = p.createVpc(ctx, attrs)
	case "aws.ec2.Subnet":
		id, outputs, err = p.createSubnet(ctx, attrs)
	case "aws.ec2.InternetGateway":
		id, outputs, err = p.createInternetGateway(ctx, attrs)
	case "aws.ec2.RouteTable":
		id, outputs, err = p.createRouteTable(ctx, attrs)
	case "aws.ec2.Route":
		id, outputs, err = p.createRoute(ctx, attrs)
	case "aws.ec2.RouteTableAssociation":
		id, outputs, err = p.createRouteTableAssociation(ctx, attrs)
	case "aws.ec2.ElasticIp":
		id, outputs, err = p.createElasticIp(ctx, attrs)
	case "aws.ec2.NatGateway":
		id, outputs, err = p.createNatGateway(ctx, attrs)
	case "aws.ec2.SecurityGroup":
		id, outputs, err = p.createSecurityGroup(ctx, attrs)
	case "aws.ec2.LaunchTemplate":
		id, outputs, err = p.createLaunchTemplate(ctx, attrs)
	case "aws.elbv2.LoadBalancer":
		id, outputs, err = p.createLoadBalancer(ctx, attrs)
	case "aws.elbv2.TargetGroup":
		id, outputs, err = p.createTargetGroup(ctx, attrs)
	case "aws.elbv2.Listener":
		id, outputs, err = p.createListener(ctx, attrs)
	case "aws.autoscaling.Group":
		id, outputs, err = p.createAutoScalingGroup(ctx, attrs)
	case "aws.iam.Role":
		id, outputs, err = p.createRole(ctx, attrs)
	case "aws.iam.RolePolicy":
		id, outputs, err = p.createRolePolicy(ctx, attrs)
	case "aws.iam.InstanceProfile":
		id, outputs, err = p.createInstanceProfile(ctx, attrs)
	case "aws.s3.Bucket":
		id, outputs, err = p.createBucket(ctx, attrs)
	case "aws.rds.Instance":
		id, outputs, err = p.createDBInstance(ctx, attrs)
	case "aws.sns.Topic":
		id, outputs, err = p.createTopic(ctx, attrs)
	default:
		return "", nil, fmt.Errorf("unsupported resource kind %q", kind)
	}
	if err != nil {
		return "", nil, wrapErr("create", kind, err)
	}
	return id, outputs, nil
}

func (p *Provider) Update(ctx context.Context, kind string, id string, attrs map[string]any) (map[string]any, error) {
	if err := p.ensureClients(ctx); err != nil {
		return nil, err
	}

	var (
		outputs map[string]any
		err     error
	)
	switch kind {
	case "aws.ec2.Vpc":
		outputs, err = p.updateVpc(ctx, id, attrs)
	case "aws.ec2.Subnet":
		outputs, err = p.updateSubnet(ctx, id, attrs)
	case "aws.ec2.InternetGateway", "aws.ec2.RouteTable", "aws.ec2.ElasticIp", "aws.ec2.NatGateway":
		outputs, err = p.updateTags(ctx, id, attrs)
	case "aws.ec2.SecurityGroup":
		outputs, err = p.updateSecurityGroup(ctx, id, attrs)
	case "aws.ec2.LaunchTemplate":
		outputs, err = p.updateLaunchTemplate(ctx, id, attrs)
	case "aws.elbv2.LoadBalancer":
		outputs, err = p.updateLoadBalancer(ctx, id, attrs)
	case "aws.elbv2.TargetGroup":
		outputs, err = p.updateTargetGroup(ctx, id, attrs)
	case "aws.elbv2.Listener":
		outputs, err = p.updateListener(ctx, id, attrs)
	case "aws.autoscaling.Group":
		outputs, err = p.updateAutoScalingGroup(ctx, id, attrs)
	case "aws.iam.Role":
		outputs, err = p.updateRole(ctx, id, attrs)
	case "aws.iam.RolePolicy":
		outputs, err = p.updateRolePolicy(ctx, id, attrs)
	case "aws.s3.Bucket":
		outputs, err = p.updateBucket(ctx, id, attrs)
	case "aws.rds.Instance":
		outputs, err = p.updateDBInstance(ctx, id, attrs)
	default:
		return nil, fmt.Errorf("resource kind %q does not support in-place update", kind)
	}
	if err != nil {
		return nil, wrapErr("update", kind, err)
	}
	return outputs, nil
}

func (p *Provider) Destroy(ctx context.Context, kind string, id string) error {
	if err := p.ensureClients(ctx); err != nil {
		return err
	}

	var err error
	switch kind {
	case "aws.ec2.Vpc":
		err = p.destroyVpc(ctx, id)
	case "aws.ec2.Subnet":
		err = p.destroySubnet(ctx, id)
	case "aws.ec2.InternetGateway":
		err = p.destroyInternetGateway(ctx, id)
	case "aws.ec2.RouteTable":
		err = p.destroyRouteTable(ctx, id)
	case "aws.ec2.Route":
		err = p.destroyRoute(ctx, id)
	case "aws.ec2.RouteTableAssociation":
		err = p.destroyRouteTableAssociation(ctx, id)
	case "aws.ec2.ElasticIp":
		err = p.destroyElasticIp(ctx, id)
	case "aws.ec2.NatGateway":
		err = p.destroyNatGateway(ctx, id)
	case "aws.ec2.SecurityGroup":
		err = p.destroySecurityGroup(ctx, id)
	case "aws.ec2.LaunchTemplate":
		err = p.destroyLaunchTemplate(ctx, id)
	case "aws.elbv2.LoadBalancer":
		err = p.destroyLoadBalancer(ctx, id)
	case "aws.elbv2.TargetGroup":
		err = p.destroyTargetGroup(ctx, id)
	case "aws.elbv2.Listener":
		err = p.destroyListener(ctx, id)
	case "aws.autoscaling.Group":
		err = p.destroyAutoScalingGroup(ctx, id)
	case "aws.iam.Role":
		err = p.destroyRole(ctx, id)
	case "aws.iam.RolePolicy":
		err = p.destroyRolePolicy(ctx, id)
	case "aws.iam.InstanceProfile":
		err = p.destroyInstanceProfile(ctx, id)
	case "aws.s3.Bucket":
		err = p.destroyBucket(ctx, id)
	case "aws.rds.Instance":
		err = p.destroyDBInstance(ctx, id)
	case "aws.sns.Topic":
		err = p.destroyTopic(ctx, id)
	default:
		return fmt.Errorf("unsupported resource kind %q", kind)
	}
	if err != nil {
		return wrapErr("destroy", kind, err)
	}
	return nil
}
