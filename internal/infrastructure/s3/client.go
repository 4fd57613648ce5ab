package s3infra

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/biopass-web/internal/config"
	"github.com/biopass-web/internal/pkg/id"
)

// API is the subset of the S3 client used by the diagnostics store.
type API interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// NewClient creates an S3 client. When cfg.AWSEndpointURL is set (LocalStack),
// it overrides the endpoint and enables path-style addressing.
func NewClient(cfg *config.Config) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AWSAccessKeyID, cfg.AWSSecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config for S3: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.AWSEndpointURL != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.AWSEndpointURL)
			o.UsePathStyle = true
		})
	}
	return s3.NewFromConfig(awsCfg, clientOpts...), nil
}

// DiagnosticsStore keeps images of failed face matches.
type DiagnosticsStore struct {
	client API
	bucket string
	newID  func() string
}

func NewDiagnosticsStore(client API, bucket string) *DiagnosticsStore {
	return &DiagnosticsStore{client: client, bucket: bucket, newID: id.New}
}

// SaveFailedMatch uploads png under diagnostics/<client_id>/<ulid>.png.
func (s *DiagnosticsStore) SaveFailedMatch(ctx context.Context, clientID string, png []byte) error {
	key := diagnosticsKey(clientID, s.newID())
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
		Metadata:    map[string]string{"client-id": clientID, "reason": "face-match-failed"},
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

func diagnosticsKey(clientID, objectID string) string {
	return fmt.Sprintf("diagnostics/%s/%s.png", clientID, objectID)
}
