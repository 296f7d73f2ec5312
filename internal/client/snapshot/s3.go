package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/dmitrijs2005/weeklog/internal/common"
	"github.com/dmitrijs2005/weeklog/internal/logging"
	"github.com/google/uuid"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Config locates the bucket snapshots are kept in. Endpoint, AccessKey
// and SecretKey are optional; when Endpoint is set path-style addressing is
// used so S3-compatible servers work.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// S3API is the part of the S3 client the store needs.
type S3API interface {
	manager.UploadAPIClient
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type S3Store struct {
	client   S3API
	uploader *manager.Uploader
	bucket   string
	now      func() time.Time
}

func NewS3Store(client S3API, bucket string) (*S3Store, error) {
	if client == nil {
		return nil, errors.New("s3 client is nil")
	}
	if bucket == "" {
		return nil, errors.New("bucket is empty")
	}
	return &S3Store{
		client:   client,
		uploader: manager.NewUploader(client),
		bucket:   bucket,
		now:      time.Now,
	}, nil
}

// OpenS3Store builds an S3 client from cfg and the default AWS credential
// chain.
func OpenS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Store(client, cfg.Bucket)
}

// NewKey returns a fresh object key under snapshots/{yyyy}/{mm}/{dd}/.
func (s *S3Store) NewKey() string {
	d := s.now().UTC()
	return fmt.Sprintf("snapshots/%04d/%02d/%02d/%s.json", d.Year(), d.Month(), d.Day(), uuid.New())
}

// Upload stores data under a new key and returns the key.
func (s *S3Store) Upload(ctx context.Context, data []byte) (string, error) {
	key := s.NewKey()
	_, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload failed key=[%s], bucket=[%s]: %w", key, s.bucket, err)
	}
	return key, nil
}

// Download returns the object stored under key. A missing object is
// reported as common.ErrorNotFound.
func (s *S3Store) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", common.ErrorNotFound, key)
		}
		return nil, fmt.Errorf("download failed key=[%s], bucket=[%s]: %w", key, s.bucket, err)
	}
	return out.Body, nil
}

// ExportS3 uploads a snapshot of src and returns its object key.
func ExportS3(ctx context.Context, src WeekLister, store *S3Store, passphrase []byte) (string, int, error) {
	var buf bytes.Buffer
	n, err := Export(ctx, src, &buf, store.now(), passphrase)
	if err != nil {
		return "", 0, err
	}
	key, err := store.Upload(ctx, buf.Bytes())
	if err != nil {
		return "", 0, err
	}
	return key, n, nil
}

// RestoreS3 replays the snapshot stored under key.
func RestoreS3(ctx context.Context, dst WeekSaver, store *S3Store, key string, passphrase PassphraseFunc, log logging.Logger) (Result, error) {
	body, err := store.Download(ctx, key)
	if err != nil {
		return Result{}, err
	}
	defer body.Close() //nolint:errcheck

	return Restore(ctx, dst, body, passphrase, log)
}
