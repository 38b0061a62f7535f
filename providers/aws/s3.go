package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func (p *Provider) createBucket(ctx context.Context, attrs map[string]any) (string, map[string]any, error) {
	name := getString(attrs, "bucket")

	input := &s3.CreateBucketInput{Bucket: aws.String(name)}
	if p.region != "" && p.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(p.region),
		}
	}

	if _, err := p.s3Client.CreateBucket(ctx, input); err != nil {
		return "", nil, err
	}

	if err := p.configureBucket(ctx, name, attrs); err != nil {
		return "", nil, err
	}

	return name, map[string]any{
		"id":     name,
		"bucket": name,
		"arn":    "arn:aws:s3:::" + name,
	}, nil
}

func (p *Provider) configureBucket(ctx context.Context, name string, attrs map[string]any) error {
	if has(attrs, "versioning") {
		status := types.BucketVersioningStatusSuspended
		if getBool(attrs, "versioning") {
			status = types.BucketVersioningStatusEnabled
		}
		_, err := p.s3Client.PutBucketVersioning(ctx, &s3.PutBucketVersioningInput{
			Bucket:                  aws.String(name),
			VersioningConfiguration: &types.VersioningConfiguration{Status: status},
		})
		if err != nil {
			return err
		}
	}
	if tags := getStringMap(attrs, "tags"); len(tags) > 0 {
		var set []types.Tag
		for k, v := range tags {
			set = append(set, types.Tag{Key: aws.String(k), Value: aws.String(v)})
		}
		_, err := p.s3Client.PutBucketTagging(ctx, &s3.PutBucketTaggingInput{
			Bucket:  aws.String(name),
			Tagging: &types.Tagging{TagSet: set},
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Provider) updateBucket(ctx context.Context, id string, attrs map[string]any) (map[string]any, error) {
	if err := p.configureBucket(ctx, id, attrs); err != nil {
		return nil, err
	}
	return map[string]any{
		"id":     id,
		"bucket": id,
		"arn":    "arn:aws:s3:::" + id,
	}, nil
}

func (p *Provider) destroyBucket(ctx context.Context, id string) error {
	_, err := p.s3Client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(id)})
	return err
}
