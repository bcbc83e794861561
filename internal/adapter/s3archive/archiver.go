// Package s3archive copies finished reports to an S3 compatible bucket.
package s3archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"gitlab.com/testhub.net/internal/config"
	"gitlab.com/testhub.net/internal/core/ports/primary"
	"gitlab.com/testhub.net/internal/core/ports/secondary"
	"gitlab.com/testhub.net/internal/domain"
	"gitlab.com/testhub.net/internal/static/errs"
)

var _ secondary.ReportArchiver = (*Archiver)(nil)

type Archiver struct {
	client *s3.Client
	bucket string
	prefix string
	logger primary.Logger
}

// New builds the client from cfg. Static keys are used when both are set,
// otherwise the default AWS credential chain applies.
func New(ctx context.Context, cfg *config.ArchiveConfig, logger primary.Logger) (*Archiver, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required: %w", errs.InvalidArgument)
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		logger.Error("Failed to load AWS config", "error", err)
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = cfg.UsePathStyle
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	return &Archiver{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
		logger: logger,
	}, nil
}

// Key is <prefix>/<suite id>/<report id>.json.
func (a *Archiver) Key(report *domain.TestReport) string {
	return path.Join(strings.Trim(a.prefix, "/"), report.SuiteID.String(), report.ID.String()+".json")
}

func (a *Archiver) ArchiveReport(ctx context.Context, report *domain.TestReport) error {
	body, err := json.Marshal(report)
	if err != nil {
		a.logger.Error("Failed to marshal report", "reportId", report.ID, "error", err)
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	key := a.Key(report)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"suite-name": report.SuiteName,
			"status":     string(report.Status),
		},
	})
	if err != nil {
		a.logger.Error("Failed to archive report", "reportId", report.ID, "bucket", a.bucket, "key", key, "error", err)
		return fmt.Errorf("failed to archive report: %w", err)
	}

	a.logger.Debug("Report archived", "reportId", report.ID, "key", key)
	return nil
}
