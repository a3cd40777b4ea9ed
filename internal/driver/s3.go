package driver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	"go.uber.org/zap"
)

const sha256MetadataKey = "sha256"

// S3API is the subset of the S3 client used by the driver.
type S3API interface {
	manager.UploadAPIClient
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

type S3 struct {
	bucket   string
	logger   *zap.Logger
	s3       S3API
	uploader *manager.Uploader
}

var _ Driver = (*S3)(nil)

type S3Opts struct {
	AccessKey    string
	Bucket       string
	Endpoint     string
	Region       string
	SecretKey    string
	UsePathStyle bool
}

type endpointResolver struct {
	URL string
}

func (r *endpointResolver) ResolveEndpoint(service, region string, options ...interface{}) (aws.Endpoint, error) {
	return aws.Endpoint{
		URL: r.URL,
	}, nil
}

func newS3Driver(ctx context.Context, logger *zap.Logger, opts *S3Opts) (Driver, error) {
	if opts == nil || opts.Bucket == "" {
		return nil, fmt.Errorf("invalid s3 credentials")
	}

	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(opts.Region),
	}

	if opts.AccessKey != "" {
		cred := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, ""))
		loadOpts = append(loadOpts, config.WithCredentialsProvider(cred))
	}

	if opts.Endpoint != "" {
		loadOpts = append(loadOpts, config.WithEndpointResolverWithOptions(&endpointResolver{
			URL: opts.Endpoint,
		}))
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = opts.UsePathStyle
	})

	return NewS3Driver(logger, opts.Bucket, client), nil
}

func NewS3Driver(logger *zap.Logger, bucket string, client S3API) *S3 {
	return &S3{
		bucket:   bucket,
		logger:   logger,
		s3:       client,
		uploader: manager.NewUploader(client),
	}
}

func (d *S3) SaveArtifact(ctx context.Context, name, sha256 string, body io.Reader) error {
	key := artifactKey(name)
	if sha256 != "" {
		head, err := d.s3.HeadObject(ctx, &s3.HeadObjectInput{
			Bucket: aws.String(d.bucket),
			Key:    aws.String(key),
		})
		if err != nil && !isNotFound(err) {
			return err
		}

		if err == nil && head.Metadata[sha256MetadataKey] == sha256 {
			d.logger.Debug("artifact already mirrored to amazon s3", zap.String("key", key))
			return nil
		}
	}

	return d.upload(ctx, key, body, map[string]string{
		sha256MetadataKey: sha256,
	})
}

func (d *S3) SaveLock(ctx context.Context, name string, body io.Reader) error {
	return d.upload(ctx, name, body, nil)
}

func (d *S3) upload(ctx context.Context, key string, body io.Reader, metadata map[string]string) error {
	res, err := d.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:   aws.String(d.bucket),
		Key:      aws.String(key),
		Body:     body,
		Metadata: metadata,
	})
	if err != nil {
		return err
	}

	d.logger.Debug("saved file to amazon s3", zap.String("location", res.Location))
	return nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NotFound", "NoSuchKey":
			return true
		}
	}

	return false
}
