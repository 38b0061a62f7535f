package aws

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
)

func ec2Tags(tags map[string]string) []types.Tag {
	var out []types.Tag
	for k, v := range tags {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out
}

func (p *Provider) applyEc2Tags(ctx context.Context, id string, tags map[string]string) error {
	if len(tags) == 0 {
		return nil
	}
	_, err := p.ec2Client.CreateTags(ctx, &ec2.CreateTagsInput{
		Resources: []string{id},
		Tags:      ec2Tags(tags),
	})
	return err
}

func (p *Provider) createVpc(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	resp, err := p.ec2Client.CreateVpc(ctx, &ec2.CreateVpcInput{
		CidrBlock: aws.String(getString(attrs, "cidrBlock")),
	})
	if err != nil {
		return "", nil, err
	}
	id := aws.ToString(resp.Vpc.VpcId)

	if err := p.modifyVpcDns(ctx, id, attrs); err != nil {
		return "", nil, err
	}
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return "", nil, err
	}

	return id, map[string]any{
		"id":        id,
		"cidrBlock": aws.ToString(resp.Vpc.CidrBlock),
	}, nil
}

func (p *Provider) modifyVpcDns(ctx context.Context, id string, attrs map[string]any) error {
	if has(attrs, "enableDnsSupport") {
		_, err := p.ec2Client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:            aws.String(id),
			EnableDnsSupport: &types.AttributeBooleanValue{Value: aws.Bool(getBool(attrs, "enableDnsSupport"))},
		})
		if err != nil {
			return err
		}
	}
	if has(attrs, "enableDnsHostnames") {
		_, err := p.ec2Client.ModifyVpcAttribute(ctx, &ec2.ModifyVpcAttributeInput{
			VpcId:              aws.String(id),
			EnableDnsHostnames: &types.AttributeBooleanValue{Value: aws.Bool(getBool(attrs, "enableDnsHostnames"))},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) updateVpc(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	if err := p.modifyVpcDns(ctx, id, attrs); err != nil {
		return nil, err
	}
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "cidrBlock": getString(attrs, "cidrBlock")}, nil
}

func (p *Provider) destroyVpc(ctx context.Context, id string) error {
	_, err := p.ec2Client.DeleteVpc(ctx, &ec2.DeleteVpcInput{VpcId: aws.String(id)})
	return err
}

func (p *Provider) createSubnet(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	input := &ec2.CreateSubnetInput{
		VpcId:     aws.String(getString(attrs, "vpcId")),
		CidrBlock: aws.String(getString(attrs, "cidrBlock")),
	}
	if az := getString(attrs, "availabilityZone"); az != "" {
		input.AvailabilityZone = aws.String(az)
	}

	resp, err := p.ec2Client.CreateSubnet(ctx, input)
	if err != nil {
		return "", nil, err
	}
	id := aws.ToString(resp.Subnet.SubnetId)

	if getBool(attrs, "mapPublicIpOnLaunch") {
		_, err := p.ec2Client.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
			SubnetId:            aws.String(id),
			MapPublicIpOnLaunch: &types.AttributeBooleanValue{Value: aws.Bool(true)},
		})
		if err != nil {
			return "", nil, err
		}
	}
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return "", nil, err
	}

	return id, map[string]any{
		"id":               id,
		"vpcId":            aws.ToString(resp.Subnet.VpcId),
		"availabilityZone": aws.ToString(resp.Subnet.AvailabilityZone),
	}, nil
}

func (p *Provider) updateSubnet(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	_, err := p.ec2Client.ModifySubnetAttribute(ctx, &ec2.ModifySubnetAttributeInput{
		SubnetId:            aws.String(id),
		MapPublicIpOnLaunch: &types.AttributeBooleanValue{Value: aws.Bool(getBool(attrs, "mapPublicIpOnLaunch"))},
	})
	if err != nil {
		return nil, err
	}
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "vpcId": getString(attrs, "vpcId")}, nil
}

func (p *Provider) destroySubnet(ctx context.Context, id string) error {
	_, err := p.ec2Client.DeleteSubnet(ctx, &ec2.DeleteSubnetInput{SubnetId: aws.String(id)})
	return err
}

func (p *Provider) createInternetGateway(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	resp, err := p.ec2Client.CreateInternetGateway(ctx, &ec2.CreateInternetGatewayInput{})
	if err != nil {
		return "", nil, err
	}
	id := aws.ToString(resp.InternetGateway.InternetGatewayId)

	vpcID := getString(attrs, "vpcId")
	_, err = p.ec2Client.AttachInternetGateway(ctx, &ec2.AttachInternetGatewayInput{
		InternetGatewayId: aws.String(id),
		VpcId:             aws.String(vpcID),
	})
	if err != nil {
		return "", nil, err
	}
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return "", nil, err
	}

	return id, map[string]any{"id": id, "vpcId": vpcID}, nil
}

func (p *Provider) destroyInternetGateway(ctx context.Context, id string) error {
	// The gateway must be detached before it can be deleted; the attachment
	// is looked up since only the ID survives in state.
	resp, err := p.ec2Client.DescribeInternetGateways(ctx, &ec2.DescribeInternetGatewaysInput{
		InternetGatewayIds: []string{id},
	})
	if err != nil {
		return err
	}
	for _, igw := range resp.InternetGateways {
		for _, att := range igw.Attachments {
			_, err := p.ec2Client.DetachInternetGateway(ctx, &ec2.DetachInternetGatewayInput{
				InternetGatewayId: aws.String(id),
				VpcId:             att.VpcId,
			})
			if err != nil {
				return err
			}
		}
	}
	_, err = p.ec2Client.DeleteInternetGateway(ctx, &ec2.DeleteInternetGatewayInput{
		InternetGatewayId: aws.String(id),
	})
	return err
}

func (p *Provider) createRouteTable(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	resp, err := p.ec2Client.CreateRouteTable(ctx, &ec2.CreateRouteTableInput{
		VpcId: aws.String(getString(attrs, "vpcId")),
	})
	if err != nil {
		return "", nil, err
	}
	id := aws.ToString(resp.RouteTable.RouteTableId)
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return "", nil, err
	}
	return id, map[string]any{"id": id, "vpcId": getString(attrs, "vpcId")}, nil
}

func (p *Provider) destroyRouteTable(ctx context.Context, id string) error {
	_, err := p.ec2Client.DeleteRouteTable(ctx, &ec2.DeleteRouteTableInput{RouteTableId: aws.String(id)})
	return err
}

// Routes have no provider ID of their own; the ID is the owning route table
// and destination CIDR joined, enough to delete the route later.
func routeID(routeTableID, cidr string) string {
	return routeTableID + "_" + cidr
}

func (p *Provider) createRoute(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	rtb := getString(attrs, "routeTableId")
	cidr := getString(attrs, "destinationCidrBlock")

	input := &ec2.CreateRouteInput{
		RouteTableId:         aws.String(rtb),
		DestinationCidrBlock: aws.String(cidr),
	}
	if gw := getString(attrs, "gatewayId"); gw != "" {
		input.GatewayId = aws.String(gw)
	}
	if nat := getString(attrs, "natGatewayId"); nat != "" {
		input.NatGatewayId = aws.String(nat)
	}

	if _, err := p.ec2Client.CreateRoute(ctx, input); err != nil {
		return "", nil, err
	}
	id := routeID(rtb, cidr)
	return id, map[string]any{"id": id, "routeTableId": rtb, "destinationCidrBlock": cidr}, nil
}

func (p *Provider) destroyRoute(ctx context.Context, id string) error {
	rtb, cidr, ok := strings.Cut(id, "_")
	if !ok {
		return fmt.Errorf("malformed route id %q", id)
	}
	_, err := p.ec2Client.DeleteRoute(ctx, &ec2.DeleteRouteInput{
		RouteTableId:         aws.String(rtb),
		DestinationCidrBlock: aws.String(cidr),
	})
	return err
}

func (p *Provider) createRouteTableAssociation(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	resp, err := p.ec2Client.AssociateRouteTable(ctx, &ec2.AssociateRouteTableInput{
		RouteTableId: aws.String(getString(attrs, "routeTableId")),
		SubnetId:     aws.String(getString(attrs, "subnetId")),
	})
	if err != nil {
		return "", nil, err
	}
	id := aws.ToString(resp.AssociationId)
	return id, map[string]any{"id": id}, nil
}

func (p *Provider) destroyRouteTableAssociation(ctx context.Context, id string) error {
	_, err := p.ec2Client.DisassociateRouteTable(ctx, &ec2.DisassociateRouteTableInput{
		AssociationId: aws.String(id),
	})
	return err
}

func (p *Provider) createElasticIp(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	resp, err := p.ec2Client.AllocateAddress(ctx, &ec2.AllocateAddressInput{
		Domain: types.DomainTypeVpc,
	})
	if err != nil {
		return "", nil, err
	}
	id := aws.ToString(resp.AllocationId)
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return "", nil, err
	}
	return id, map[string]any{
		"id":       id,
		"publicIp": aws.ToString(resp.PublicIp),
	}, nil
}

func (p *Provider) destroyElasticIp(ctx context.Context, id string) error {
	_, err := p.ec2Client.ReleaseAddress(ctx, &ec2.ReleaseAddressInput{AllocationId: aws.String(id)})
	return err
}

func (p *Provider) createNatGateway(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	resp, err := p.ec2Client.CreateNatGateway(ctx, &ec2.CreateNatGatewayInput{
		SubnetId:     aws.String(getString(attrs, "subnetId")),
		AllocationId: aws.String(getString(attrs, "allocationId")),
	})
	if err != nil {
		return "", nil, err
	}
	id := aws.ToString(resp.NatGateway.NatGatewayId)
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return "", nil, err
	}
	return id, map[string]any{"id": id, "subnetId": getString(attrs, "subnetId")}, nil
}

func (p *Provider) destroyNatGateway(ctx context.Context, id string) error {
	_, err := p.ec2Client.DeleteNatGateway(ctx, &ec2.DeleteNatGatewayInput{NatGatewayId: aws.String(id)})
	return err
}

// ipPermissions converts declared rule maps into EC2 permissions.
func ipPermissions(raw []any) []types.IpPermission {
	var perms []types.IpPermission
	for _, item := range raw {
		rule, ok := item.(map[string]any)
		if !ok {
			continue
		}
		perm := types.IpPermission{
			FromPort:   aws.Int32(getInt32(rule, "fromPort")),
			ToPort:     aws.Int32(getInt32(rule, "toPort")),
			IpProtocol: aws.String(getString(rule, "protocol")),
		}
		for _, cidr := range getStringSlice(rule, "cidrBlocks") {
			perm.IpRanges = append(perm.IpRanges, types.IpRange{CidrIp: aws.String(cidr)})
		}
		perms = append(perms, perm)
	}
	return perms
}

func (p *Provider) createSecurityGroup(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	resp, err := p.ec2Client.CreateSecurityGroup(ctx, &ec2.CreateSecurityGroupInput{
		GroupName:   aws.String(getString(attrs, "name")),
		Description: aws.String(getString(attrs, "description")),
		VpcId:       aws.String(getString(attrs, "vpcId")),
	})
	if err != nil {
		return "", nil, err
	}
	id := aws.ToString(resp.GroupId)

	if err := p.authorizeRules(ctx, id, attrs); err != nil {
		return "", nil, err
	}
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return "", nil, err
	}

	return id, map[string]any{"id": id, "name": getString(attrs, "name")}, nil
}

func (p *Provider) authorizeRules(ctx context.Context, id string, attrs map[string]any) error {
	if ingress, ok := attrs["ingress"].([]any); ok && len(ingress) > 0 {
		_, err := p.ec2Client.AuthorizeSecurityGroupIngress(ctx, &ec2.AuthorizeSecurityGroupIngressInput{
			GroupId:       aws.String(id),
			IpPermissions: ipPermissions(ingress),
		})
		if err != nil {
			return err
		}
	}
	if egress, ok := attrs["egress"].([]any); ok && len(egress) > 0 {
		_, err := p.ec2Client.AuthorizeSecurityGroupEgress(ctx, &ec2.AuthorizeSecurityGroupEgressInput{
			GroupId:       aws.String(id),
			IpPermissions: ipPermissions(egress),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// updateSecurityGroup reconciles rules by revoking whatever is currently
// authorized and re-authorizing the declared set.
func (p *Provider) updateSecurityGroup(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	resp, err := p.ec2Client.DescribeSecurityGroups(ctx, &ec2.DescribeSecurityGroupsInput{
		GroupIds: []string{id},
	})
	if err != nil {
		return nil, err
	}

	for _, group := range resp.SecurityGroups {
		if len(group.IpPermissions) > 0 {
			_, err := p.ec2Client.RevokeSecurityGroupIngress(ctx, &ec2.RevokeSecurityGroupIngressInput{
				GroupId:       aws.String(id),
				IpPermissions: group.IpPermissions,
			})
			if err != nil {
				return nil, err
			}
		}
		if len(group.IpPermissionsEgress) > 0 {
			_, err := p.ec2Client.RevokeSecurityGroupEgress(ctx, &ec2.RevokeSecurityGroupEgressInput{
				GroupId:       aws.String(id),
				IpPermissions: group.IpPermissionsEgress,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	if err := p.authorizeRules(ctx, id, attrs); err != nil {
		return nil, err
	}
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return nil, err
	}
	return map[string]any{"id": id, "name": getString(attrs, "name")}, nil
}

func (p *Provider) destroySecurityGroup(ctx context.Context, id string) error {
	_, err := p.ec2Client.DeleteSecurityGroup(ctx, &ec2.DeleteSecurityGroupInput{GroupId: aws.String(id)})
	return err
}

func (p *Provider) launchTemplateData(attrs map[string]any) *types.RequestLaunchTemplateData {
	data := &types.RequestLaunchTemplateData{
		ImageId:      aws.String(getString(attrs, "imageId")),
		InstanceType: types.InstanceType(getString(attrs, "instanceType")),
	}
	if key := getString(attrs, "keyName"); key != "" {
		data.KeyName = aws.String(key)
	}
	if sgs := getStringSlice(attrs, "securityGroupIds"); len(sgs) > 0 {
		data.SecurityGroupIds = sgs
	}
	if userData := getString(attrs, "userData"); userData != "" {
		data.UserData = aws.String(base64.StdEncoding.EncodeToString([]byte(userData)))
	}
	if profile := getString(attrs, "iamInstanceProfile"); profile != "" {
		data.IamInstanceProfile = &types.LaunchTemplateIamInstanceProfileSpecificationRequest{
			Name: aws.String(profile),
		}
	}
	return data
}

func (p *Provider) createLaunchTemplate(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	resp, err := p.ec2Client.CreateLaunchTemplate(ctx, &ec2.CreateLaunchTemplateInput{
		LaunchTemplateName: aws.String(getString(attrs, "name")),
		LaunchTemplateData: p.launchTemplateData(attrs),
	})
	if err != nil {
		return "", nil, err
	}
	id := aws.ToString(resp.LaunchTemplate.LaunchTemplateId)
	return id, map[string]any{
		"id":            id,
		"name":          getString(attrs, "name"),
		"latestVersion": resp.LaunchTemplate.LatestVersionNumber,
	}, nil
}

// updateLaunchTemplate publishes a new version and makes it the default.
func (p *Provider) updateLaunchTemplate(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	resp, err := p.ec2Client.CreateLaunchTemplateVersion(ctx, &ec2.CreateLaunchTemplateVersionInput{
		LaunchTemplateId:   aws.String(id),
		LaunchTemplateData: p.launchTemplateData(attrs),
	})
	if err != nil {
		return nil, err
	}

	version := fmt.Sprintf("%d", aws.ToInt64(resp.LaunchTemplateVersion.VersionNumber))
	_, err = p.ec2Client.ModifyLaunchTemplate(ctx, &ec2.ModifyLaunchTemplateInput{
		LaunchTemplateId: aws.String(id),
		DefaultVersion:   aws.String(version),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":            id,
		"name":          getString(attrs, "name"),
		"latestVersion": aws.ToInt64(resp.LaunchTemplateVersion.VersionNumber),
	}, nil
}

func (p *Provider) destroyLaunchTemplate(ctx context.Context, id string) error {
	_, err := p.ec2Client.DeleteLaunchTemplate(ctx, &ec2.DeleteLaunchTemplateInput{
		LaunchTemplateId: aws.String(id),
	})
	return err
}

// updateTags is the in-place update for kinds whose only mutable attribute
// is their tag set.
func (p *Provider) updateTags(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	if err := p.applyEc2Tags(ctx, id, getStringMap(attrs, "tags")); err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}
