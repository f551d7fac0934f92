package transfer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/config"
	"github.com/FelixdelasPozas/SuperDuck/pkg/superduck/types"
)

// deleteBatchSize is the DeleteObjects per-call limit.
const deleteBatchSize = 1000

// S3API is the subset of the S3 client used here.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
	ListObjectsV2(ctx context.Context, in *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// NewS3Client builds an S3 client from cfg. Empty credentials fall back to
// the default AWS credential chain. Retries use the standard retryer with
// cfg.MaxAttempts attempts.
func NewS3Client(ctx context.Context, cfg config.AWSConfig) (*s3.Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = config.DefaultMaxAttempts
	}
	opts = append(opts, awsconfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxAttempts
		})
	}))

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// MinIO and friends want path-style addressing
			o.UsePathStyle = true
		}
	}), nil
}

// S3Executor performs requests against one bucket.
type S3Executor struct {
	client S3API
	bucket string
}

// NewS3Executor returns an executor for bucket.
func NewS3Executor(client S3API, bucket string) *S3Executor {
	return &S3Executor{client: client, bucket: bucket}
}

// Execute implements Executor.
func (e *S3Executor) Execute(ctx context.Context, req Request, report func(Progress)) Result {
	res := Result{Request: req}
	switch req.Kind {
	case Delete:
		e.deleteAll(ctx, req, &res, report)
	case Download:
		e.each(ctx, req, &res, report, e.download)
	case Upload:
		e.each(ctx, req, &res, report, e.upload)
	case CreateDirectory:
		e.each(ctx, req, &res, report, e.mkdir)
	default:
		for _, it := range req.Items {
			res.fail(it, fmt.Errorf("unsupported operation %s", req.Kind))
		}
	}
	return res
}

type itemFunc func(ctx context.Context, req Request, it Item) error

func (e *S3Executor) each(ctx context.Context, req Request, res *Result, report func(Progress), fn itemFunc) {
	p := Progress{RequestID: req.ID, Kind: req.Kind, Total: len(req.Items), TotalBytes: req.TotalBytes()}
	for _, it := range req.Items {
		if ctx.Err() != nil {
			res.Aborted = true
			return
		}
		p.Path = it.Path
		report(p)

		if err := fn(ctx, req, it); err != nil {
			res.fail(it, err)
			if ctx.Err() != nil {
				res.Aborted = true
				return
			}
		} else {
			res.Succeeded = append(res.Succeeded, it)
		}
		p.Done++
		p.Bytes += it.Size
		report(p)
	}
}

// LocalTarget returns the local file a Download item is written to.
func LocalTarget(req Request, it Item) string {
	if req.FullPaths {
		return filepath.Join(req.Destination, filepath.FromSlash(it.Path))
	}
	return filepath.Join(req.Destination, path.Base(it.Path))
}

func (e *S3Executor) download(ctx context.Context, req Request, it Item) error {
	if it.IsDir() {
		if !req.FullPaths {
			return nil
		}
		return os.MkdirAll(LocalTarget(req, it), 0o755)
	}

	target := LocalTarget(req, it)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(target), err)
	}

	out, err := e.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(e.bucket),
		Key:    aws.String(it.Path),
	})
	if err != nil {
		return fmt.Errorf("get %s: %w", it.Path, err)
	}
	defer out.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(target), ".download-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, out.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("reading %s: %w", it.Path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), target)
}

func (e *S3Executor) upload(ctx context.Context, req Request, it Item) error {
	key := req.Key(it)
	if it.IsDir() {
		return e.putMarker(ctx, key)
	}

	f, err := os.Open(it.Local)
	if err != nil {
		return fmt.Errorf("opening %s: %w", it.Local, err)
	}
	defer f.Close()

	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(it.Size),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (e *S3Executor) mkdir(ctx context.Context, req Request, it Item) error {
	return e.putMarker(ctx, req.Key(it))
}

// putMarker writes the empty object that makes a directory exist on its own.
func (e *S3Executor) putMarker(ctx context.Context, key string) error {
	_, err := e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(e.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (e *S3Executor) deleteAll(ctx context.Context, req Request, res *Result, report func(Progress)) {
	p := Progress{RequestID: req.ID, Kind: req.Kind, Total: len(req.Items)}
	for start := 0; start < len(req.Items); start += deleteBatchSize {
		if ctx.Err() != nil {
			res.Aborted = true
			return
		}
		end := min(start+deleteBatchSize, len(req.Items))
		batch := req.Items[start:end]

		objects := make([]s3types.ObjectIdentifier, len(batch))
		for i, it := range batch {
			objects[i] = s3types.ObjectIdentifier{Key: aws.String(it.Path)}
		}
		p.Path = batch[0].Path
		report(p)

		out, err := e.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(e.bucket),
			Delete: &s3types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			for _, it := range batch {
				res.fail(it, fmt.Errorf("delete: %w", err))
			}
			if ctx.Err() != nil {
				res.Aborted = true
				return
			}
			p.Done += len(batch)
			continue
		}

		failed := make(map[string]error, len(out.Errors))
		for _, oe := range out.Errors {
			failed[aws.ToString(oe.Key)] = fmt.Errorf("%s: %s", aws.ToString(oe.Code), aws.ToString(oe.Message))
		}
		for _, it := range batch {
			if err, ok := failed[it.Path]; ok {
				res.fail(it, err)
			} else {
				res.Succeeded = append(res.Succeeded, it)
			}
		}
		p.Done += len(batch)
		report(p)
	}
}

// List returns every object under prefix as (key, size) pairs.
func (e *S3Executor) List(ctx context.Context, prefix string) ([]types.Entry, error) {
	return ListBucket(ctx, e.client, e.bucket, prefix)
}

// ListBucket lists every object of bucket under prefix.
func ListBucket(ctx context.Context, client s3.ListObjectsV2APIClient, bucket, prefix string) ([]types.Entry, error) {
	in := &s3.ListObjectsV2Input{Bucket: aws.String(bucket)}
	if prefix != "" {
		in.Prefix = aws.String(prefix)
	}

	var entries []types.Entry
	paginator := s3.NewListObjectsV2Paginator(client, in)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}
		for _, obj := range page.Contents {
			if obj.Key == nil {
				continue
			}
			entries = append(entries, types.Entry{Path: *obj.Key, Size: aws.ToInt64(obj.Size)})
		}
		logger.Debug("listed page", "bucket", bucket, "objects", len(entries))
	}
	return entries, nil
}
