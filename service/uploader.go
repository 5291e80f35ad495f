package service

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"ScriptToVideo-server/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// AssetFile is one local artifact to promote to the CDN.
type AssetFile struct {
	LocalPath   string `json:"localPath"`
	Type        string `json:"type"` // image | audio | video | merged_video
	SceneNumber int    `json:"sceneNumber"`
}

type UploadedAsset struct {
	SceneNumber int    `json:"sceneNumber"`
	Type        string `json:"type"`
	CdnUrl      string `json:"cdnUrl"`
}

type UploadResult struct {
	Uploaded int             `json:"uploaded"`
	Uploads  []UploadedAsset `json:"uploads"`
}

// AssetUploader promotes local artifacts to durable CDN URLs in one batch.
type AssetUploader interface {
	UploadBatch(ctx context.Context, projectID string, files []AssetFile) (*UploadResult, error)
}

// minioUploader stores assets in a MinIO bucket and serves them from the
// configured public domain (presigned URL fallback when no domain is set).
type minioUploader struct {
	client *minio.Client
	bucket string
	domain string
	log    zerolog.Logger
}

func NewMinioUploader(logger zerolog.Logger) (AssetUploader, error) {
	cfg := config.AppConfig.MinIO
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio init failed: %w", err)
	}
	return &minioUploader{
		client: client,
		bucket: cfg.Bucket,
		domain: cfg.Domain,
		log:    logger,
	}, nil
}

func (u *minioUploader) UploadBatch(ctx context.Context, projectID string, files []AssetFile) (*UploadResult, error) {
	if err := u.ensureBucket(ctx); err != nil {
		return nil, err
	}

	result := &UploadResult{}
	for _, f := range files {
		objectName := fmt.Sprintf("projects/%s/scene_%03d_%s%s",
			projectID, f.SceneNumber, f.Type, filepath.Ext(f.LocalPath))

		_, err := u.client.FPutObject(ctx, u.bucket, objectName, f.LocalPath, minio.PutObjectOptions{
			ContentType: contentTypeForExt(filepath.Ext(f.LocalPath)),
		})
		if err != nil {
			u.log.Warn().Err(err).
				Str("local_path", f.LocalPath).
				Int("scene_number", f.SceneNumber).
				Msg("asset upload failed")
			continue
		}

		cdnUrl, err := u.publicURL(ctx, objectName)
		if err != nil {
			u.log.Warn().Err(err).Str("object", objectName).Msg("failed to build asset URL")
			continue
		}

		result.Uploaded++
		result.Uploads = append(result.Uploads, UploadedAsset{
			SceneNumber: f.SceneNumber,
			Type:        f.Type,
			CdnUrl:      cdnUrl,
		})
	}

	u.log.Info().
		Str("project_id", projectID).
		Int("uploaded", result.Uploaded).
		Int("requested", len(files)).
		Msg("asset batch uploaded")
	return result, nil
}

func (u *minioUploader) ensureBucket(ctx context.Context) error {
	exists, err := u.client.BucketExists(ctx, u.bucket)
	if err != nil {
		return fmt.Errorf("bucket check failed: %w", err)
	}
	if !exists {
		if err := u.client.MakeBucket(ctx, u.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("bucket create failed: %w", err)
		}
	}
	return nil
}

func (u *minioUploader) publicURL(ctx context.Context, objectName string) (string, error) {
	if u.domain != "" {
		return strings.TrimRight(u.domain, "/") + "/" + objectName, nil
	}
	presigned, err := u.client.PresignedGetObject(ctx, u.bucket, objectName, 72*time.Hour, make(url.Values))
	if err != nil {
		return "", err
	}
	return presigned.String(), nil
}

func contentTypeForExt(ext string) string {
	switch ext {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".mp4":
		return "video/mp4"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	}
	return "application/octet-stream"
}
