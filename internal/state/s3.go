package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/stackform-io/stackform/internal/ir"
)

// s3Store keeps applied state in an S3 object, with the single-writer lock
// implemented as a conditional put into a DynamoDB table.
type s3Store struct {
	bucket        string
	key           string
	region        string
	dynamoDBTable string

	s3Client *s3.Client
	dbClient *dynamodb.Client

	mu     sync.Mutex
	cached *ir.AppliedState
	lockID string
}

func newS3Store(cfg Config) (Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 state backend requires a bucket")
	}
	key := cfg.Key
	if key == "" {
		key = "stackform/state.json"
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(region))
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS config: %w", err)
	}

	st := &s3Store{
		bucket:        cfg.Bucket,
		key:           key,
		region:        region,
		dynamoDBTable: cfg.DynamoDBTable,
		s3Client:      s3.NewFromConfig(awsCfg),
	}
	if st.dynamoDBTable != "" {
		st.dbClient = dynamodb.NewFromConfig(awsCfg)
	}
	return st, nil
}

func (s *s3Store) Load(ctx context.Context) (*ir.AppliedState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		var nsk *s3types.NoSuchKey
		if errors.As(err, &nsk) {
			s.cached = ir.NewAppliedState()
			return s.cached.Copy(), nil
		}
		return nil, fmt.Errorf("failed to read state from s3://%s/%s: %w", s.bucket, s.key, err)
	}
	defer result.Body.Close()

	raw, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read S3 object body: %w", err)
	}
	raw, err = DecryptState(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt remote state: %w", err)
	}

	var st ir.AppliedState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("failed to parse remote state: %w", err)
	}
	s.cached = &st
	return s.cached.Copy(), nil
}

func (s *s3Store) Save(ctx context.Context, res *ir.ResourceState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil {
		s.cached = ir.NewAppliedState()
	}
	s.cached.Upsert(res)
	s.cached.Serial++
	return s.persistLocked(ctx)
}

func (s *s3Store) Delete(ctx context.Context, addr ir.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil {
		s.cached = ir.NewAppliedState()
	}
	s.cached.Remove(addr)
	s.cached.Serial++
	return s.persistLocked(ctx)
}

func (s *s3Store) Snapshot() *ir.AppliedState {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached == nil {
		return ir.NewAppliedState()
	}
	return s.cached.Copy()
}

func (s *s3Store) persistLocked(ctx context.Context) error {
	raw, err := json.MarshalIndent(s.cached, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	raw, err = EncryptState(raw)
	if err != nil {
		return err
	}

	_, err = s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(s.key),
		Body:                 bytes.NewReader(raw),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return fmt.Errorf("failed to write state to s3://%s/%s: %w", s.bucket, s.key, err)
	}
	return nil
}

// Lock takes the advisory lock via a conditional DynamoDB put. Without a
// configured table there is no remote locking.
func (s *s3Store) Lock() error {
	if s.dynamoDBTable == "" {
		return nil
	}

	s.lockID = fmt.Sprintf("stackform-%d-%d", os.Getpid(), time.Now().UnixNano())
	_, err := s.dbClient.PutItem(context.Background(), &dynamodb.PutItemInput{
		TableName: aws.String(s.dynamoDBTable),
		Item: map[string]dbtypes.AttributeValue{
			"LockID":  &dbtypes.AttributeValueMemberS{Value: s.key},
			"Info":    &dbtypes.AttributeValueMemberS{Value: s.lockID},
			"Created": &dbtypes.AttributeValueMemberS{Value: time.Now().UTC().Format(time.RFC3339)},
		},
		ConditionExpression: aws.String("attribute_not_exists(LockID)"),
	})
	if err != nil {
		var ccf *dbtypes.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return fmt.Errorf("state is locked by another process; delete the lock item "+
				"with LockID=%q from DynamoDB table %q if no other run is active", s.key, s.dynamoDBTable)
		}
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	return nil
}

func (s *s3Store) Unlock() error {
	if s.dynamoDBTable == "" {
		return nil
	}

	_, err := s.dbClient.DeleteItem(context.Background(), &dynamodb.DeleteItemInput{
		TableName: aws.String(s.dynamoDBTable),
		Key: map[string]dbtypes.AttributeValue{
			"LockID": &dbtypes.AttributeValueMemberS{Value: s.key},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
