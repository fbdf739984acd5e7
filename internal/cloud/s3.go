package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/smart-city-data-generator/internal/simulation"
)

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores every tick as a JSON object, building a raw data lake of
// generated readings.
type S3Archiver struct {
	svc    objectPutter
	bucket string
	prefix string
	log    zerolog.Logger
}

var _ simulation.TickObserver = (*S3Archiver)(nil)

func NewS3Archiver(cfg aws.Config, bucket string, log zerolog.Logger) *S3Archiver {
	return &S3Archiver{svc: s3.NewFromConfig(cfg), bucket: bucket, prefix: "ticks", log: log}
}

// TickKey is the object key for a tick at res.Timestamp (UTC).
func (a *S3Archiver) TickKey(res simulation.TickResult) string {
	return path.Join(a.prefix, res.Timestamp.UTC().Format("2006/01/02/150405")+".json")
}

// Archive uploads res and returns the object key.
func (a *S3Archiver) Archive(ctx context.Context, res simulation.TickResult) (string, error) {
	data, err := json.Marshal(res)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tick: %w", err)
	}
	key := a.TickKey(res)
	_, err = a.svc.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload tick to S3: %w", err)
	}
	return key, nil
}

func (a *S3Archiver) ObserveTick(ctx context.Context, res simulation.TickResult) {
	key, err := a.Archive(ctx, res)
	if err != nil {
		a.log.Error().Err(err).Str("bucket", a.bucket).Msg("tick archive failed")
		return
	}
	a.log.Debug().Str("bucket", a.bucket).Str("key", key).Msg("tick archived")
}
