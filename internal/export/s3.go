// Package export uploads chat transcripts to an S3-compatible bucket
package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"rebot/internal/config"
	"rebot/internal/model"
)

// TimestampFormat is the timestamp embedded in transcript keys
const TimestampFormat = "2006-01-02_15-04-05"

// PutObjectAPI is the part of the S3 client the exporter needs
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Transcript is the document written for one session
type Transcript struct {
	SessionID string          `json:"session_id"`
	Timestamp string          `json:"timestamp"`
	Messages  []model.Message `json:"messages"`
	ZipCodes  []string        `json:"zipCodes"`
}

// S3Exporter writes transcripts as JSON objects
type S3Exporter struct {
	client PutObjectAPI
	bucket string
	prefix string
	now    func() time.Time
	log    *zap.Logger
}

// NewS3Exporter creates an exporter around an existing client
func NewS3Exporter(client PutObjectAPI, bucket, prefix string, logger *zap.Logger) *S3Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &S3Exporter{
		client: client,
		bucket: bucket,
		prefix: prefix,
		now:    time.Now,
		log:    logger.Named("export"),
	}
}

// NewFromConfig builds the S3 client from cfg. A custom endpoint (R2,
// MinIO) switches to path-style addressing; static keys, when set,
// replace the default credential chain.
func NewFromConfig(ctx context.Context, cfg *config.ExportConfig, logger *zap.Logger) (*S3Exporter, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewS3Exporter(client, cfg.Bucket, cfg.Prefix, logger), nil
}

// Key returns the object key for a session exported at t
func (e *S3Exporter) Key(sessionID string, t time.Time) string {
	return fmt.Sprintf("%schat_%s_%s.json", e.prefix, sessionID, t.Format(TimestampFormat))
}

// Export uploads the transcript. An upload failure is reported through
// Uploaded=false with the key that would have been written, not as an
// error; only encoding problems fail the call.
func (e *S3Exporter) Export(ctx context.Context, sessionID string, messages []model.Message, zipCodes []string) (model.ExportResponse, error) {
	now := e.now()
	doc := Transcript{
		SessionID: sessionID,
		Timestamp: now.Format(TimestampFormat),
		Messages:  messages,
		ZipCodes:  zipCodes,
	}
	if doc.Messages == nil {
		doc.Messages = []model.Message{}
	}
	if doc.ZipCodes == nil {
		doc.ZipCodes = []string{}
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return model.ExportResponse{}, fmt.Errorf("failed to encode transcript: %w", err)
	}

	key := e.Key(sessionID, now)
	resp := model.ExportResponse{Success: true, FileKey: key, Timestamp: doc.Timestamp}

	start := time.Now()
	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		e.log.Error("transcript upload failed",
			zap.String("bucket", e.bucket), zap.String("key", key), zap.Error(err))
		return resp, nil
	}

	e.log.Info("transcript uploaded",
		zap.String("bucket", e.bucket),
		zap.String("key", key),
		zap.Int("messages", len(doc.Messages)),
		zap.Duration("took", time.Since(start)))
	resp.Uploaded = true
	return resp, nil
}
