package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const UploadTag = "servicehub"

// CloudinaryUploader uploads base64 data URIs, remote URLs or local paths to Cloudinary.
type CloudinaryUploader struct {
	cld    *cloudinary.Cloudinary
	logger *slog.Logger
}

func NewCloudinaryUploader(cld *cloudinary.Cloudinary, logger *slog.Logger) *CloudinaryUploader {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudinaryUploader{cld: cld, logger: logger}
}

func (cu *CloudinaryUploader) UploadImages(ctx context.Context, images []string, folder string) ([]string, error) {
	urls := make([]string, 0, len(images))
	for i, img := range images {
		if strings.TrimSpace(img) == "" {
			cu.logger.Debug("Skipping empty image", "index", i)
			continue
		}
		res, err := cu.cld.Upload.Upload(ctx, img, uploader.UploadParams{
			Folder: folder,
			Tags:   []string{UploadTag},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to upload image %d: %w", i, err)
		}
		if res.SecureURL == "" {
			return nil, fmt.Errorf("upload of image %d returned no URL", i)
		}
		urls = append(urls, res.SecureURL)
	}
	return urls, nil
}
