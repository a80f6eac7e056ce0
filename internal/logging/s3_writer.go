package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"hoc_companion/internal/utils"
)

// ObjectPutter is the part of the S3 client the writer uses
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Writer handles writing batches of log entries to S3
type S3Writer struct {
	client  ObjectPutter
	bucket  string
	prefix  string
	podName string
	logger  *utils.Logger
	now     func() time.Time
}

// NewS3Writer creates a new S3 writer. A non-empty endpoint switches to
// path-style addressing against that endpoint (MinIO and friends).
func NewS3Writer(ctx context.Context, bucket, region, prefix, podName, endpoint string, logger *utils.Logger) (*S3Writer, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return NewS3WriterWithClient(client, bucket, prefix, podName, logger), nil
}

// NewS3WriterWithClient creates a writer on an existing client
func NewS3WriterWithClient(client ObjectPutter, bucket, prefix, podName string, logger *utils.Logger) *S3Writer {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &S3Writer{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		podName: podName,
		logger:  logger,
		now:     time.Now,
	}
}

// WriteBatch writes a batch of log entries to S3 as a JSON Lines file
// Returns the S3 key where the data was written
func (w *S3Writer) WriteBatch(ctx context.Context, entries []*LogEntry) (string, error) {
	if len(entries) == 0 {
		return "", nil
	}

	// Format: logs/2025/03/14/companion-0-20250314-143022-123456789.jsonl
	now := w.now().UTC()
	key := fmt.Sprintf("%s%04d/%02d/%02d/%s-%s-%09d.jsonl",
		w.prefix,
		now.Year(),
		now.Month(),
		now.Day(),
		w.podName,
		now.Format("20060102-150405"),
		now.Nanosecond(),
	)

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	for _, entry := range entries {
		if err := encoder.Encode(entry); err != nil {
			w.logger.Error("Failed to encode log entry", "error", err)
			continue
		}
	}

	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("application/x-ndjson"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	w.logger.Info("Wrote batch to S3", "key", key, "count", len(entries), "bytes", buf.Len())
	return key, nil
}
