package cloudinary

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Config contains credentials required to talk to Cloudinary.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// Enabled reports whether all credentials are present.
func (c Config) Enabled() bool {
	return c.CloudName != "" && c.APIKey != "" && c.APISecret != ""
}

// Storage stores submission attachments and assignment briefs in Cloudinary.
type Storage struct {
	client *cloudinary.Cloudinary
	folder string
	logger zerolog.Logger
}

// New constructs a Cloudinary-backed storage.
func New(cfg Config, logger zerolog.Logger) (*Storage, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("cloudinary credentials must be provided")
	}

	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cloudinary: %w", err)
	}

	return &Storage{
		client: cld,
		folder: strings.Trim(cfg.Folder, "/"),
		logger: logger.With().Str("component", "cloudinary").Logger(),
	}, nil
}

// Upload sends the file and returns its secure URL. Documents and archives are
// stored as raw assets so the original extension survives in the URL.
func (s *Storage) Upload(ctx context.Context, name string, reader io.Reader) (string, error) {
	publicID, resourceType := buildPublicID(name, uuid.NewString())

	overwrite := false
	params := uploader.UploadParams{
		Folder:         s.folder,
		PublicID:       publicID,
		ResourceType:   resourceType,
		Overwrite:      &overwrite,
		UseFilename:    &overwrite,
		UniqueFilename: &overwrite,
	}

	result, err := s.client.Upload.Upload(ctx, reader, params)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	if result.Error.Message != "" {
		return "", fmt.Errorf("cloudinary rejected %s: %s", name, result.Error.Message)
	}

	s.logger.Info().Str("public_id", result.PublicID).Str("resource_type", resourceType).Int("bytes", result.Bytes).Msg("file uploaded to cloudinary")

	return result.SecureURL, nil
}

var mediaExtensions = map[string]struct{}{
	".jpg": {}, ".jpeg": {}, ".png": {}, ".gif": {}, ".webp": {},
	".mp4": {}, ".mov": {}, ".webm": {}, ".mp3": {}, ".wav": {},
}

// buildPublicID returns a collision-free public id and the Cloudinary resource
// type for name. Raw assets keep their extension in the id.
func buildPublicID(name, suffix string) (string, string) {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, base)
	base = strings.Trim(base, "-")
	if base == "" {
		base = "upload"
	}
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}

	id := fmt.Sprintf("%s-%s", base, suffix)
	if _, ok := mediaExtensions[ext]; ok || ext == "" {
		return id, "auto"
	}
	return id + ext, "raw"
}
