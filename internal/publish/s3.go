package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/model"
	"github.com/hbarsky00/barsky-design-canvas-sub005/internal/util/compression"
)

// Archiver mirrors published snapshots to secondary storage. Archival is
// best-effort: a failed mirror never fails a publish.
type Archiver interface {
	Archive(ctx context.Context, snap *model.PublishedSnapshot) error
}

// S3Archiver writes each snapshot as a compressed JSON object under
// snapshots/{project}/{id}.json.zst.
type S3Archiver struct {
	client *s3.Client
	bucket string

	compressor compression.Compressor
	log        zerolog.Logger
}

func NewS3Archiver(accessKeyID, accessKeySecret, baseEndpoint, bucket string, log zerolog.Logger) (*S3Archiver, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, accessKeySecret, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("error initializing S3 client: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(baseEndpoint)
	})

	return &S3Archiver{
		client:     client,
		bucket:     bucket,
		compressor: compression.ZstdCompressor{},
		log:        log,
	}, nil
}

func (a *S3Archiver) Archive(ctx context.Context, snap *model.PublishedSnapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("error encoding snapshot for archive: %w", err)
	}

	compressed, err := a.compressor.Compress(raw)
	if err != nil {
		return fmt.Errorf("error compressing snapshot for archive: %w", err)
	}

	key := fmt.Sprintf("snapshots/%s/%s.json.zst", snap.ProjectID, snap.ID)
	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(compressed),
	})
	if err != nil {
		return fmt.Errorf("error archiving snapshot %s: %w", snap.ID, err)
	}

	a.log.Info().Str("key", key).Str("snapshot_id", snap.ID).Msg("Snapshot archived")
	return nil
}
