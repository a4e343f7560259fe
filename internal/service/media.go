package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"bhandaraboard/internal/config"
	"bhandaraboard/internal/model"
)

// PhotoUploader stores listing photos in the blob store and returns their
// public URLs. Split out as an interface so ListingService can be tested
// without a bucket.
type PhotoUploader interface {
	UploadListingPhoto(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error)
}

// MediaService uploads photos to an S3-compatible bucket (Cloudflare R2).
type MediaService struct {
	client    *s3.Client
	bucket    string
	publicURL string
}

// NewMediaService creates a MediaService from R2 credentials in cfg.
func NewMediaService(cfg *config.Config) (*MediaService, error) {
	r2Resolver := aws.EndpointResolverWithOptionsFunc(
		func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{
				URL: fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.R2AccountID),
			}, nil
		})

	awsCfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithEndpointResolverWithOptions(r2Resolver),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.R2AccessKeyID, cfg.R2SecretAccessKey, "")),
		awsconfig.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}

	return &MediaService{
		client:    s3.NewFromConfig(awsCfg),
		bucket:    cfg.R2BucketName,
		publicURL: cfg.R2PublicURL,
	}, nil
}

// UploadListingPhoto validates, normalizes, and stores one listing photo.
// Input images of any accepted type are re-encoded as bounded JPEGs so the
// bucket never serves oversized originals.
func (s *MediaService) UploadListingPhoto(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*model.UploadResult, error) {
	start := time.Now()

	data, err := readAndValidatePhoto(file, header)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeToJPEG(data)
	if err != nil {
		return nil, fmt.Errorf("process image: %w", err)
	}

	key := fmt.Sprintf("%s/%s%s", model.ListingPhotoFolder, uuid.New().String(), model.ListingPhotoExt)
	if err := s.putObject(ctx, key, normalized); err != nil {
		return nil, err
	}

	log.Printf("[Media] UploadListingPhoto OK: key=%s size=%d duration=%v", key, len(normalized), time.Since(start))

	return &model.UploadResult{
		URL: fmt.Sprintf("%s/%s", s.publicURL, key),
		Key: key,
	}, nil
}

// DeleteObject removes a stored photo by key. Listing deletion does not call
// this; expired listings leave their blobs behind and rely on bucket
// lifecycle rules.
func (s *MediaService) DeleteObject(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("[Media] DeleteObject FAILED: key=%s err=%v", key, err)
		return fmt.Errorf("delete object: %w", err)
	}
	log.Printf("[Media] DeleteObject OK: key=%s", key)
	return nil
}

func (s *MediaService) putObject(ctx context.Context, key string, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(data),
		ContentType:  aws.String(model.ContentTypeJPEG),
		CacheControl: aws.String(model.ListingPhotoCacheControl),
	})
	if err != nil {
		log.Printf("[Media] putObject FAILED: key=%s err=%v", key, err)
		return fmt.Errorf("upload to r2: %w", err)
	}
	return nil
}

func readAndValidatePhoto(file multipart.File, header *multipart.FileHeader) ([]byte, error) {
	if header.Size > model.MaxListingPhotoSize {
		return nil, model.ErrFileTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if !model.IsAllowedImageType(contentType) {
		return nil, model.ErrInvalidImageType
	}

	data, err := io.ReadAll(io.LimitReader(file, model.MaxListingPhotoSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > model.MaxListingPhotoSize {
		return nil, model.ErrFileTooLarge
	}
	return data, nil
}

// normalizeToJPEG decodes the image, shrinks it to fit the photo bounding box
// if needed, and re-encodes as JPEG.
func normalizeToJPEG(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > model.ListingPhotoMaxWidth || bounds.Dy() > model.ListingPhotoMaxHeight {
		img = imaging.Fit(img, model.ListingPhotoMaxWidth, model.ListingPhotoMaxHeight, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
