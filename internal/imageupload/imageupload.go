// Package imageupload validates images and hands them to the hosting service.
package imageupload

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
)

const MaxSize = 10 << 20

var (
	ErrInvalidFile    = errors.New("please upload an image file")
	ErrFileTooLarge   = errors.New("image must be 10MB or smaller")
	ErrMissingConfig  = errors.New("image upload service is not configured")
	ErrUploadRejected = errors.New("image upload was rejected")
)

type Uploader interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

// Validate checks the sniffed content type and the size before any upload is attempted.
func Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrInvalidFile
	}
	if len(data) > MaxSize {
		return "", ErrFileTooLarge
	}
	mime := mimetype.Detect(data).String()
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%w: detected %s", ErrInvalidFile, mime)
	}
	return mime, nil
}

type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type Cloudinary struct {
	cld    *cloudinary.Cloudinary
	folder string
	log    *zerolog.Logger
}

// NewCloudinary fails with ErrMissingConfig when credentials are absent.
func NewCloudinary(cfg Config, log *zerolog.Logger) (*Cloudinary, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, ErrMissingConfig
	}
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}
	return &Cloudinary{cld: cld, folder: cfg.Folder, log: log}, nil
}

func (c *Cloudinary) Upload(ctx context.Context, filename string, data []byte) (string, error) {
	if _, err := Validate(data); err != nil {
		return "", err
	}
	res, err := c.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder: c.folder,
	})
	if err != nil {
		c.log.Error().Err(err).Str("filename", filename).Msg("cloudinary upload failed")
		return "", fmt.Errorf("%w: %v", ErrUploadRejected, err)
	}
	if res.Error.Message != "" {
		c.log.Error().Str("filename", filename).Str("reason", res.Error.Message).Msg("cloudinary rejected upload")
		return "", fmt.Errorf("%w: %s", ErrUploadRejected, res.Error.Message)
	}
	if res.SecureURL == "" {
		return "", fmt.Errorf("%w: empty url in response", ErrUploadRejected)
	}
	return res.SecureURL, nil
}

// Unconfigured is used when no credentials are set; every upload fails with ErrMissingConfig.
type Unconfigured struct{}

func (Unconfigured) Upload(context.Context, string, []byte) (string, error) {
	return "", ErrMissingConfig
}
