package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"git.solsynth.dev/hypernet/chat/pkg/internal/models"
	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

var (
	storageUploader *manager.Uploader
	storageBucket   string
	storagePublic   string
)

// NewStorage connects the attachment bucket. Any S3 compatible endpoint
// works when storage.endpoint is set.
func NewStorage(ctx context.Context) error {
	storageBucket = viper.GetString("storage.bucket")
	if len(storageBucket) == 0 {
		log.Warn().Msg("No storage bucket configured, attachment uploads are disabled.")
		return nil
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(viper.GetString("storage.region")),
	}
	if key := viper.GetString("storage.access_key"); len(key) > 0 {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, viper.GetString("storage.secret_key"), ""),
		))
	}
	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return err
	}

	endpoint := viper.GetString("storage.endpoint")
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if len(endpoint) > 0 {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	storageUploader = manager.NewUploader(client)

	storagePublic = strings.TrimRight(viper.GetString("storage.public_url"), "/")
	if len(storagePublic) == 0 {
		storagePublic = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", storageBucket, cfg.Region)
	}
	return nil
}

// AttachmentTypeOf maps a mime type to the attachment type tag.
func AttachmentTypeOf(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return models.AttachmentTypeImage
	case strings.HasPrefix(contentType, "video/"):
		return models.AttachmentTypeVideo
	case strings.HasPrefix(contentType, "audio/"):
		return models.AttachmentTypeAudio
	default:
		return models.AttachmentTypeFile
	}
}

func AttachmentKey(user string, filename string, at time.Time) string {
	return fmt.Sprintf("attachments/%s/%s/%s%s", at.Format("2006/01/02"), user, uuid.NewString(), strings.ToLower(filepath.Ext(filename)))
}

// UploadAttachment stores the blob and returns its public url and type tag.
func UploadAttachment(ctx context.Context, user string, filename string, contentType string, body io.Reader) (string, string, error) {
	if storageUploader == nil {
		return "", "", ErrStorageDisabled
	}

	key := AttachmentKey(user, filename, time.Now())
	if _, err := storageUploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(storageBucket),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	}); err != nil {
		return "", "", fmt.Errorf("unable to upload attachment: %v", err)
	}

	return fmt.Sprintf("%s/%s", storagePublic, key), AttachmentTypeOf(contentType), nil
}
