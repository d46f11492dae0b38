// Package s3 reads bitstream payloads from S3 compatible object storage.
package s3

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/kosarko/dspace-rest-import/pkg/dspace"
)

var (
	// ErrObjectNotFound indicates the bucket or key does not exist
	ErrObjectNotFound = errors.New("object not found")

	// ErrAccessDenied indicates the credentials may not read the object
	ErrAccessDenied = errors.New("access denied")
)

// Config options for the S3 source
type Config struct {
	Region          string // AWS region
	Bucket          string // Bucket used for refs that do not name one
	AccessKeyID     string // AWS access key ID
	SecretAccessKey string // AWS secret access key
	Endpoint        string // Optional custom endpoint for S3-compatible services
	UsePathStyle    bool   // Use path-style addressing (MinIO)
}

// GetObjectAPI is the part of the S3 client the source needs.
type GetObjectAPI interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Source opens S3 objects as bitstream payloads. It implements dspace.BitstreamSource.
type Source struct {
	client GetObjectAPI
	bucket string
}

var _ dspace.BitstreamSource = (*Source)(nil)

// New creates a Source with an S3 client built from config.
func New(ctx context.Context, config Config) (*Source, error) {
	if config.Region == "" {
		config.Region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(config.Region),
	}
	if config.AccessKeyID != "" && config.SecretAccessKey != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKeyID, config.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Options []func(*s3.Options)
	if config.Endpoint != "" {
		s3Options = append(s3Options, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = config.UsePathStyle
		})
	}

	return NewWithClient(s3.NewFromConfig(awsCfg, s3Options...), config.Bucket), nil
}

// NewWithClient creates a Source on top of an existing client. bucket may be empty when
// every ref names its bucket.
func NewWithClient(client GetObjectAPI, bucket string) *Source {
	return &Source{client: client, bucket: bucket}
}

// Open fetches ref, either a key in the configured bucket or s3://bucket/key. The blob
// is named after the last path segment of the key and streams the object body.
func (s *Source) Open(ctx context.Context, ref string) (*dspace.Blob, error) {
	bucket, key, err := s.resolve(ref)
	if err != nil {
		return nil, &dspace.FileError{Op: "open", Path: ref, Err: err}
	}

	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, &dspace.FileError{Op: "open", Path: "s3://" + bucket + "/" + key, Err: classify(err)}
	}

	size := int64(-1)
	if result.ContentLength != nil && *result.ContentLength >= 0 {
		size = *result.ContentLength
	}

	return &dspace.Blob{
		Name: path.Base(key),
		Size: size,
		Body: result.Body,
	}, nil
}

func (s *Source) resolve(ref string) (bucket, key string, err error) {
	if rest, ok := strings.CutPrefix(ref, "s3://"); ok {
		bucket, key, _ = strings.Cut(rest, "/")
		if bucket == "" {
			return "", "", errors.New("missing bucket")
		}
	} else {
		bucket, key = s.bucket, strings.TrimPrefix(ref, "/")
		if bucket == "" {
			return "", "", errors.New("no bucket configured and none in reference")
		}
	}

	if key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("invalid object key %q", key)
	}
	return bucket, key, nil
}

// classify maps S3 API error codes onto the package errors, keeping the original in the chain.
func classify(err error) error {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return err
	}

	switch apiErr.ErrorCode() {
	case "NoSuchKey", "NoSuchBucket", "NotFound":
		return fmt.Errorf("%w: %w", ErrObjectNotFound, err)
	case "AccessDenied", "Forbidden":
		return fmt.Errorf("%w: %w", ErrAccessDenied, err)
	default:
		return err
	}
}
