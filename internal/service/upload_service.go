package service

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-classroom/internal/dto"
	"github.com/noah-isme/gema-classroom/internal/models"
	"github.com/noah-isme/gema-classroom/internal/observability"
	"github.com/noah-isme/gema-classroom/internal/repository"
	"github.com/noah-isme/gema-classroom/internal/submission"
)

var (
	// ErrUploadTooLarge indicates the payload exceeded the configured limit.
	ErrUploadTooLarge = errors.New("file exceeds maximum allowed size")
	// ErrUploadTypeNotAllowed indicates the content or extension is not permitted.
	ErrUploadTypeNotAllowed = errors.New("file type not allowed")
	// ErrUploadScanFailed indicates validation of the file failed.
	ErrUploadScanFailed = errors.New("file scanning failed")
	// ErrUploadMissing indicates the request carried no file.
	ErrUploadMissing = errors.New("file is required")
	// ErrStorageUnavailable indicates no file storage backend is configured.
	ErrStorageUnavailable = errors.New("file storage is not configured")
)

// zip archives may expand to at most this multiple of the upload limit.
const maxZipExpansion = 20

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// UploadRequest carries one attachment. With an AssignmentID the file must
// also match that assignment's extension allow-list.
type UploadRequest struct {
	File         *multipart.FileHeader
	UserID       *uint
	AssignmentID *uint
}

// UploadService validates submission attachments, stores them and returns the
// file descriptor submissions reference.
type UploadService interface {
	Upload(ctx context.Context, req UploadRequest) (dto.UploadResponse, error)
}

type uploadService struct {
	storage     FileStorage
	repo        repository.UploadRepository
	assignments repository.AssignmentRepository
	logger      zerolog.Logger
	maxSize     int64
	tracer      trace.Tracer
}

// NewUploadService constructs an upload service. With a nil storage every new
// upload fails with ErrStorageUnavailable; with nil assignments the per
// assignment allow-list is not enforced.
func NewUploadService(storage FileStorage, repo repository.UploadRepository, assignments repository.AssignmentRepository, maxSizeMB int, logger zerolog.Logger) UploadService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &uploadService{
		storage:     storage,
		repo:        repo,
		assignments: assignments,
		logger:      logger.With().Str("component", "upload_service").Logger(),
		maxSize:     int64(maxSizeMB) * 1024 * 1024,
		tracer:      otel.Tracer("github.com/noah-isme/gema-classroom/internal/service/upload"),
	}
}

func (s *uploadService) Upload(ctx context.Context, req UploadRequest) (dto.UploadResponse, error) {
	ctx, span := s.tracer.Start(ctx, "upload.store")
	defer span.End()

	start := time.Now()
	defer func() {
		observability.UploadLatency().Observe(time.Since(start).Seconds())
	}()

	span.SetAttributes(attribute.Int64("upload.max_bytes", s.maxSize))
	if req.File == nil {
		return dto.UploadResponse{}, s.fail(span, "", ErrUploadMissing)
	}
	span.SetAttributes(
		attribute.String("upload.original_name", strings.TrimSpace(req.File.Filename)),
		attribute.Int64("upload.request_size", req.File.Size),
	)

	rules := submission.FileRules{MaxSize: s.maxSize}
	if req.AssignmentID != nil && s.assignments != nil {
		span.SetAttributes(attribute.Int("upload.assignment_id", int(*req.AssignmentID)))
		assignment, err := s.assignments.GetByID(ctx, *req.AssignmentID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				err = ErrAssignmentNotFound
			}
			return dto.UploadResponse{}, s.fail(span, "", err)
		}
		rules.AllowedTypes = assignment.AllowedFileTypes
	}

	if err := rules.Validate(req.File.Filename, req.File.Size); err != nil {
		return dto.UploadResponse{}, s.reject(span, err)
	}

	payload, err := s.readPayload(req.File)
	if err != nil {
		return dto.UploadResponse{}, s.reject(span, err)
	}

	fileType := normalizeMime(mimetype.Detect(payload).String())
	span.SetAttributes(attribute.String("upload.detected_mime", fileType))
	if !isAllowedType(fileType) {
		return dto.UploadResponse{}, s.fail(span, "type", ErrUploadTypeNotAllowed)
	}
	if err := s.scan(payload, fileType); err != nil {
		return dto.UploadResponse{}, s.fail(span, "scan", err)
	}

	sum := sha256.Sum256(payload)
	record := models.UploadRecord{
		UserID:       req.UserID,
		AssignmentID: req.AssignmentID,
		FileName:     sanitizeFileName(req.File.Filename),
		MimeType:     fileType,
		SizeBytes:    int64(len(payload)),
		Checksum:     hex.EncodeToString(sum[:]),
	}
	span.SetAttributes(
		attribute.String("upload.sanitized_name", record.FileName),
		attribute.Int64("upload.size_bytes", record.SizeBytes),
	)

	if existing, ok := s.previousUpload(ctx, record); ok {
		span.SetAttributes(attribute.Bool("upload.deduplicated", true))
		observability.UploadRequests().WithLabelValues(fileType).Inc()
		return newUploadResponse(existing), nil
	}

	if s.storage == nil {
		return dto.UploadResponse{}, s.fail(span, "", ErrStorageUnavailable)
	}
	record.URL, err = s.storage.Upload(ctx, record.FileName, bytes.NewReader(payload))
	if err != nil {
		return dto.UploadResponse{}, s.fail(span, "storage", err)
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		return dto.UploadResponse{}, s.fail(span, "", err)
	}

	observability.UploadRequests().WithLabelValues(fileType).Inc()
	span.SetStatus(codes.Ok, "stored")
	s.logger.Info().
		Str("file_name", record.FileName).
		Int64("size", record.SizeBytes).
		Msg("file uploaded")

	return newUploadResponse(record), nil
}

// readPayload reads at most one byte past the limit so oversized bodies are
// caught even when the multipart header understated the size.
func (s *uploadService) readPayload(file *multipart.FileHeader) ([]byte, error) {
	handle, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer handle.Close()

	payload, err := io.ReadAll(io.LimitReader(handle, s.maxSize+1))
	if err != nil {
		return nil, err
	}
	if int64(len(payload)) > s.maxSize {
		return nil, ErrUploadTooLarge
	}
	return payload, nil
}

func (s *uploadService) previousUpload(ctx context.Context, record models.UploadRecord) (models.UploadRecord, bool) {
	if record.UserID == nil {
		return models.UploadRecord{}, false
	}
	existing, err := s.repo.FindByChecksum(ctx, *record.UserID, record.Checksum)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Warn().Err(err).Msg("failed to look up previous upload")
		}
		return models.UploadRecord{}, false
	}
	return existing, true
}

// reject maps file rule violations onto upload errors and counts them.
func (s *uploadService) reject(span trace.Span, err error) error {
	switch {
	case errors.Is(err, submission.ErrFileTooLarge), errors.Is(err, ErrUploadTooLarge):
		return s.fail(span, "size", fmt.Errorf("%w: %v", ErrUploadTooLarge, err))
	case errors.Is(err, submission.ErrFileTypeNotAllowed):
		return s.fail(span, "extension", fmt.Errorf("%w: %v", ErrUploadTypeNotAllowed, err))
	default:
		return s.fail(span, "", err)
	}
}

func (s *uploadService) fail(span trace.Span, reason string, err error) error {
	if reason != "" {
		observability.UploadRejected().WithLabelValues(reason).Inc()
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func newUploadResponse(record models.UploadRecord) dto.UploadResponse {
	return dto.UploadResponse{
		Name:     record.FileName,
		URL:      record.URL,
		Size:     record.SizeBytes,
		MimeType: record.MimeType,
		Checksum: record.Checksum,
	}
}

func (s *uploadService) scan(payload []byte, mime string) error {
	if mime != "application/zip" {
		return nil
	}
	reader, err := zip.NewReader(bytes.NewReader(payload), int64(len(payload)))
	if err != nil {
		return ErrUploadScanFailed
	}
	var total uint64
	for _, f := range reader.File {
		if strings.Contains(f.Name, "..") || strings.HasPrefix(f.Name, "/") {
			return fmt.Errorf("zip entry %q escapes the archive: %w", f.Name, ErrUploadScanFailed)
		}
		total += f.UncompressedSize64
		if total > uint64(s.maxSize*maxZipExpansion) {
			return fmt.Errorf("zip archive uncompressed size too large: %w", ErrUploadScanFailed)
		}
	}
	return nil
}

func sanitizeFileName(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	base := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, strings.ToLower(strings.TrimSuffix(name, filepath.Ext(name))))
	base = strings.Trim(base, "-")
	if base == "" {
		base = fmt.Sprintf("upload-%d", time.Now().Unix())
	}
	if ext == "" {
		ext = ".bin"
	}
	return base + ext
}

func normalizeMime(m string) string {
	lower := strings.ToLower(strings.TrimSpace(m))
	if idx := strings.Index(lower, ";"); idx >= 0 {
		lower = strings.TrimSpace(lower[:idx])
	}
	switch {
	case strings.HasPrefix(lower, "image/"):
		return "image"
	case strings.HasPrefix(lower, "text/"):
		return "text"
	case lower == "application/x-zip-compressed":
		return "application/zip"
	default:
		return lower
	}
}

func isAllowedType(m string) bool {
	switch m {
	case "image", "text", "application/pdf", "application/zip", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return true
	}
	return false
}
