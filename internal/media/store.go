// Package media tracks attachment metadata and probes the external object
// store for readiness. The bytes themselves are uploaded out-of-band; an
// attachment is ready once its object exists in the bucket.
package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	config "github.com/sagarpkr/multipost/configs"
	"github.com/sagarpkr/multipost/internal/models"
	"github.com/sagarpkr/multipost/internal/repository"
	"github.com/sagarpkr/multipost/internal/transfer"
)

type Store struct {
	cfg config.Config
	ma  repository.MediaAttachmentRepository

	clientOnce sync.Once
	client     *s3.Client
	clientErr  error
}

func NewStore(cfg config.Config, ma repository.MediaAttachmentRepository) *Store {
	return &Store{cfg: cfg, ma: ma}
}

func (s *Store) s3Client(ctx context.Context) (*s3.Client, error) {
	s.clientOnce.Do(func() {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(s.cfg.S3.AccessKey, s.cfg.S3.SecretKey, "")),
			awsconfig.WithRegion("auto"),
		)
		if err != nil {
			slog.Info(err.Error())
			s.clientErr = err
			return
		}

		s.client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.cfg.S3.AccountID))
		})
	})
	return s.client, s.clientErr
}

// Register records attachment metadata for media the caller already pushed
// to storage. Readiness is resolved lazily by IsReady.
func (s *Store) Register(ctx context.Context, userID int64, reg *transfer.MediaRegistration) (int64, error) {
	if reg.StorageKey == "" {
		return 0, errors.New("storage key is required")
	}
	if reg.Type != models.MediaTypeImage && reg.Type != models.MediaTypeVideo {
		return 0, fmt.Errorf("unsupported media type %q", reg.Type)
	}

	ma := &models.MediaAttachment{
		UserID:     userID,
		StorageKey: reg.StorageKey,
		Type:       reg.Type,
		Width:      reg.Width,
		Height:     reg.Height,
		Duration:   reg.Duration,
	}
	return s.ma.Create(ctx, nil, ma)
}

func (s *Store) GetByID(ctx context.Context, id int64) (*models.MediaAttachment, error) {
	return s.ma.GetByID(ctx, id)
}

func (s *Store) ListByUserID(ctx context.Context, userID int64) ([]*models.MediaAttachment, error) {
	return s.ma.ListByUserID(ctx, userID)
}

func (s *Store) ListByPostID(ctx context.Context, postID int64) ([]*models.MediaAttachment, error) {
	return s.ma.ListByPostID(ctx, postID)
}

// IsReady reports whether the attachment's object exists in the bucket. The
// first positive probe is cached on the row so later dispatches skip the
// round trip.
func (s *Store) IsReady(ctx context.Context, attachmentID int64) (bool, error) {
	ma, err := s.ma.GetByID(ctx, attachmentID)
	if err != nil {
		return false, err
	}
	if ma == nil {
		return false, fmt.Errorf("media attachment %d not found", attachmentID)
	}
	if ma.Ready {
		return true, nil
	}

	client, err := s.s3Client(ctx)
	if err != nil {
		return false, err
	}

	_, err = client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.cfg.S3.BucketName),
		Key:    aws.String(ma.StorageKey),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	if err := s.ma.MarkReady(ctx, attachmentID); err != nil {
		slog.Info(err.Error())
	}
	return true, nil
}
