package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
)

func (p *Provider) createDBInstance(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	identifier := getString(attrs, "identifier")

	input := &rds.CreateDBInstanceInput{
		DBInstanceIdentifier: aws.String(identifier),
		Engine:               aws.String(getString(attrs, "engine")),
		DBInstanceClass:      aws.String(getString(attrs, "instanceClass")),
		AllocatedStorage:     aws.Int32(getInt32(attrs, "allocatedStorage")),
	}
	if v := getString(attrs, "engineVersion"); v != "" {
		input.EngineVersion = aws.String(v)
	}
	if name := getString(attrs, "dbName"); name != "" {
		input.DBName = aws.String(name)
	}
	if user := getString(attrs, "username"); user != "" {
		input.MasterUsername = aws.String(user)
	}
	if pass := getString(attrs, "password"); pass != "" {
		input.MasterUserPassword = aws.String(pass)
	}
	if sgs := getStringSlice(attrs, "vpcSecurityGroupIds"); len(sgs) > 0 {
		input.VpcSecurityGroupIds = sgs
	}
	if has(attrs, "multiAz") {
		input.MultiAZ = aws.Bool(getBool(attrs, "multiAz"))
	}

	resp, err := p.rdsClient.CreateDBInstance(ctx, input)
	if err != nil {
		return "", nil, err
	}

	outputs := map[string]any{
		"id":  identifier,
		"arn": aws.ToString(resp.DBInstance.DBInstanceArn),
	}
	// The endpoint is only present once the instance leaves "creating".
	if resp.DBInstance.Endpoint != nil {
		outputs["endpoint"] = aws.ToString(resp.DBInstance.Endpoint.Address)
	}
	return identifier, outputs, nil
}

func (p *Provider) updateDBInstance(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	input := &rds.ModifyDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
		DBInstanceClass:      aws.String(getString(attrs, "instanceClass")),
		AllocatedStorage:     aws.Int32(getInt32(attrs, "allocatedStorage")),
		ApplyImmediately:     aws.Bool(true),
	}
	if v := getString(attrs, "engineVersion"); v != "" {
		input.EngineVersion = aws.String(v)
	}
	if pass := getString(attrs, "password"); pass != "" {
		input.MasterUserPassword = aws.String(pass)
	}
	if sgs := getStringSlice(attrs, "vpcSecurityGroupIds"); len(sgs) > 0 {
		input.VpcSecurityGroupIds = sgs
	}
	if has(attrs, "multiAz") {
		input.MultiAZ = aws.Bool(getBool(attrs, "multiAz"))
	}

	resp, err := p.rdsClient.ModifyDBInstance(ctx, input)
	if err != nil {
		return nil, err
	}

	outputs := map[string]any{
		"id":  id,
		"arn": aws.ToString(resp.DBInstance.DBInstanceArn),
	}
	if resp.DBInstance.Endpoint != nil {
		outputs["endpoint"] = aws.ToString(resp.DBInstance.Endpoint.Address)
	}
	return outputs, nil
}

func (p *Provider) destroyDBInstance(ctx context.Context, id string) error {
	_, err := p.rdsClient.DeleteDBInstance(ctx, &rds.DeleteDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
		SkipFinalSnapshot:    aws.Bool(true),
	})
	return err
}
