package service

import (
	"context"

	"mttsite/internal/imageupload"
)

// UploadImage rejects non-images and oversized files before contacting the host.
func (s *service) UploadImage(ctx context.Context, filename string, data []byte) (string, error) {
	mime, err := imageupload.Validate(data)
	if err != nil {
		return "", err
	}
	url, err := s.uploader.Upload(ctx, filename, data)
	if err != nil {
		s.log.Error().Err(err).Str("filename", filename).Msg("image upload failed")
		return "", err
	}
	s.log.Info().Str("filename", filename).Str("mime", mime).Msg("image uploaded")
	return url, nil
}
