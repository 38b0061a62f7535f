package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/iam/types"
)

func iamTags(tags map[string]string) []types.Tag {
	var out []types.Tag
	for k, v := range tags {
		out = append(out, types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return out
}

func (p *Provider) createRole(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	name := getString(attrs, "name")

	input := &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(getString(attrs, "assumeRolePolicy")),
	}
	if desc := getString(attrs, "description"); desc != "" {
		input.Description = aws.String(desc)
	}
	if tags := getStringMap(attrs, "tags"); len(tags) > 0 {
		input.Tags = iamTags(tags)
	}

	resp, err := p.iamClient.CreateRole(ctx, input)
	if err != nil {
		return "", nil, err
	}

	return name, map[string]any{
		"id":   name,
		"name": name,
		"arn":  aws.ToString(resp.Role.Arn),
	}, nil
}

func (p *Provider) updateRole(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	_, err := p.iamClient.UpdateAssumeRolePolicy(ctx, &iam.UpdateAssumeRolePolicyInput{
		RoleName:       aws.String(id),
		PolicyDocument: aws.String(getString(attrs, "assumeRolePolicy")),
	})
	if err != nil {
		return nil, err
	}
	if desc := getString(attrs, "description"); desc != "" {
		_, err := p.iamClient.UpdateRole(ctx, &iam.UpdateRoleInput{
			RoleName:    aws.String(id),
			Description: aws.String(desc),
		})
		if err != nil {
			return nil, err
		}
	}
	return map[string]any{"id": id, "name": id}, nil
}

func (p *Provider) destroyRole(ctx context.Context, id string) error {
	_, err := p.iamClient.DeleteRole(ctx, &iam.DeleteRoleInput{RoleName: aws.String(id)})
	return err
}

// Inline role policies have no ARN; the ID carries both halves needed to
// address the policy later.
func rolePolicyID(role, name string) string {
	return role + ":" + name
}

func (p *Provider) createRolePolicy(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	role := getString(attrs, "role")
	name := getString(attrs, "name")

	_, err := p.iamClient.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(role),
		PolicyName:     aws.String(name),
		PolicyDocument: aws.String(getString(attrs, "policy")),
	})
	if err != nil {
		return "", nil, err
	}

	id := rolePolicyID(role, name)
	return id, map[string]any{"id": id, "role": role, "name": name}, nil
}

func (p *Provider) updateRolePolicy(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	// PutRolePolicy overwrites, so update and create are the same call.
	_, err := p.iamClient.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(getString(attrs, "role")),
		PolicyName:     aws.String(getString(attrs, "name")),
		PolicyDocument: aws.String(getString(attrs, "policy")),
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{"id": id}, nil
}

func (p *Provider) destroyRolePolicy(ctx context.Context, id string) error {
	role, name, ok := strings.Cut(id, ":")
	if !ok {
		return fmt.Errorf("malformed role policy id %q", id)
	}
	_, err := p.iamClient.DeleteRolePolicy(ctx, &iam.DeleteRolePolicyInput{
		RoleName:   aws.String(role),
		PolicyName: aws.String(name),
	})
	return err
}

func (p *Provider) createInstanceProfile(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	name := getString(attrs, "name")

	resp, err := p.iamClient.CreateInstanceProfile(ctx, &iam.CreateInstanceProfileInput{
		InstanceProfileName: aws.String(name),
	})
	if err != nil {
		return "", nil, err
	}

	_, err = p.iamClient.AddRoleToInstanceProfile(ctx, &iam.AddRoleToInstanceProfileInput{
		InstanceProfileName: aws.String(name),
		RoleName:            aws.String(getString(attrs, "role")),
	})
	if err != nil {
		return "", nil, err
	}

	return name, map[string]any{
		"id":   name,
		"name": name,
		"arn":  aws.ToString(resp.InstanceProfile.Arn),
	}, nil
}

func (p *Provider) destroyInstanceProfile(ctx context.Context, id string) error {
	resp, err := p.iamClient.GetInstanceProfile(ctx, &iam.GetInstanceProfileInput{
		InstanceProfileName: aws.String(id),
	})
	if err == nil {
		for _, role := range resp.InstanceProfile.Roles {
			_, err := p.iamClient.RemoveRoleFromInstanceProfile(ctx, &iam.RemoveRoleFromInstanceProfileInput{
				InstanceProfileName: aws.String(id),
				RoleName:            role.RoleName,
			})
			if err != nil {
				return err
			}
		}
	}
	_, err = p.iamClient.DeleteInstanceProfile(ctx, &iam.DeleteInstanceProfileInput{
		InstanceProfileName: aws.String(id),
	})
	return err
}
