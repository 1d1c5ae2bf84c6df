// Package offsite copies archives to an S3-compatible bucket and applies the
// same retention window to the remote copies.
package offsite

import (
	"context"
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"

	"github.com/raoulx24/media-backup/internal/config"
	"github.com/raoulx24/media-backup/internal/logging"
)

// API is the part of the S3 client the uploader needs.
type API interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// NewClient builds an S3 client from the offsite settings. Static
// credentials are used when set, the default AWS chain otherwise.
func NewClient(ctx context.Context, cfg config.OffsiteConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	}), nil
}

type Uploader struct {
	api      API
	fs       afero.Fs
	log      logging.Logger
	bucket   string
	prefix   string
	maxCount int
}

func New(api API, fsys afero.Fs, log logging.Logger, cfg config.OffsiteConfig) *Uploader {
	return &Uploader{
		api:      api,
		fs:       fsys,
		log:      log,
		bucket:   cfg.Bucket,
		prefix:   strings.Trim(cfg.Prefix, "/"),
		maxCount: cfg.MaxCount,
	}
}

// Object is one remote archive copy.
type Object struct {
	Key          string
	Size         int64
	LastModified time.Time
}

type Result struct {
	Key       string
	Deleted   []Object
	Remaining []Object
	Warnings  []error
}

// Sync uploads the archive and prunes remote copies matching pattern.
// Nothing here is fatal; every failure ends up in Result.Warnings.
func (u *Uploader) Sync(ctx context.Context, archivePath, pattern string) Result {
	var res Result

	key, err := u.Upload(ctx, archivePath)
	if err != nil {
		res.Warnings = append(res.Warnings, err)
		return res
	}
	res.Key = key

	res.Deleted, res.Remaining, err = u.Prune(ctx, pattern)
	if err != nil {
		res.Warnings = append(res.Warnings, err)
	}
	return res
}

func (u *Uploader) key(name string) string {
	if u.prefix == "" {
		return name
	}
	return path.Join(u.prefix, name)
}

// Upload copies one local file and returns its object key.
func (u *Uploader) Upload(ctx context.Context, localPath string) (string, error) {
	f, err := u.fs.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", localPath, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", localPath, err)
	}

	key := u.key(filepath.Base(localPath))
	u.log.Info("uploading archive offsite", "bucket", u.bucket, "key", key, "size", st.Size())

	_, err = u.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String("application/octet-stream"),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", u.bucket, key, err)
	}
	return key, nil
}

// List returns the remote objects whose base name matches pattern, oldest first.
func (u *Uploader) List(ctx context.Context, pattern string) ([]Object, error) {
	listPrefix := ""
	if u.prefix != "" {
		listPrefix = u.prefix + "/"
	}

	var out []Object
	p := s3.NewListObjectsV2Paginator(u.api, &s3.ListObjectsV2Input{
		Bucket: aws.String(u.bucket),
		Prefix: aws.String(listPrefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list s3://%s/%s: %w", u.bucket, listPrefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			name := strings.TrimPrefix(key, listPrefix)
			if strings.Contains(name, "/") {
				continue
			}
			if ok, _ := doublestar.Match(pattern, name); !ok {
				continue
			}
			out = append(out, Object{
				Key:          key,
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].LastModified.Equal(out[j].LastModified) {
			return out[i].Key < out[j].Key
		}
		return out[i].LastModified.Before(out[j].LastModified)
	})
	return out, nil
}

// Prune deletes the oldest remote copies beyond the configured count.
func (u *Uploader) Prune(ctx context.Context, pattern string) (deleted, remaining []Object, err error) {
	if u.maxCount < 1 {
		return nil, nil, fmt.Errorf("offsite retention must keep at least one object, got %d", u.maxCount)
	}

	objects, err := u.List(ctx, pattern)
	if err != nil {
		return nil, nil, err
	}

	excess := len(objects) - u.maxCount
	if excess <= 0 {
		return nil, objects, nil
	}

	var errs []error
	for _, obj := range objects[:excess] {
		_, derr := u.api.DeleteObject(ctx, &s3.DeleteObjectInput{
			Bucket: aws.String(u.bucket),
			Key:    aws.String(obj.Key),
		})
		if derr != nil {
			errs = append(errs, fmt.Errorf("delete s3://%s/%s: %w", u.bucket, obj.Key, derr))
			remaining = append(remaining, obj)
			continue
		}
		u.log.Info("pruned offsite archive", "key", obj.Key)
		deleted = append(deleted, obj)
	}
	remaining = append(remaining, objects[excess:]...)
	return deleted, remaining, errors.Join(errs...)
}
