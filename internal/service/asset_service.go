package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/h2non/filetype"
	gonanoid "github.com/matoous/go-nanoid/v2"
	cfg "github.com/postpulse/postpulse/configs"
	"github.com/postpulse/postpulse/internal/models"
	"github.com/postpulse/postpulse/internal/repository"
)

// AssetService stores post media in R2 and records the asset rows that
// publish content is assembled from.
type AssetService struct {
	config cfg.Config
	ma     repository.MediaAssetRepository
}

func NewAssetService(config cfg.Config, ma repository.MediaAssetRepository) *AssetService {
	return &AssetService{config: config, ma: ma}
}

func (s *AssetService) client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(s.config.R2.AccessKey, s.config.R2.SecretKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", s.config.R2.AccountID))
	}), nil
}

// Store sniffs the file type, uploads the bytes to R2 under a generated
// key, and records the asset linked to the post.
func (s *AssetService) Store(ctx context.Context, tx *sql.Tx, userID, postID int64, order int, file *multipart.FileHeader) (*models.MediaAsset, error) {
	src, err := file.Open()
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}

	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		err = errors.New("unsupported file type")
		slog.Info(err.Error())
		return nil, err
	}
	if !filetype.IsImage(data) && !filetype.IsVideo(data) {
		err = errors.New("only image and video uploads are allowed")
		slog.Info(err.Error())
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, err
	}
	key := fmt.Sprintf("%d/%s.%s", userID, id, kind.Extension)

	if err := s.upload(ctx, key, data, kind.MIME.Value); err != nil {
		return nil, err
	}

	asset := &models.MediaAsset{
		UserID:   userID,
		FileName: file.Filename,
		FileType: kind.MIME.Value,
		FileSize: int64(len(data)),
		FileURL:  fmt.Sprintf("https://%s.r2.cloudflarestorage.com/%s/%s", s.config.R2.AccountID, s.config.R2.BucketName, key),
	}

	assetID, err := s.ma.Create(ctx, tx, asset)
	if err != nil {
		return nil, err
	}
	asset.ID = assetID

	if err := s.ma.LinkToPost(ctx, tx, &models.PostMedia{
		PostID:       postID,
		AssetID:      assetID,
		DisplayOrder: order,
	}); err != nil {
		return nil, err
	}

	return asset, nil
}

func (s *AssetService) upload(ctx context.Context, key string, data []byte, contentType string) error {
	client, err := s.client(ctx)
	if err != nil {
		return err
	}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.config.R2.BucketName),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	}

	if _, err := client.PutObject(ctx, input); err != nil {
		slog.Info(err.Error())
		return err
	}

	return nil
}
