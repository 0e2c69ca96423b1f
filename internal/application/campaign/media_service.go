package campaign

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/donation/backend/internal/domain/campaign"
	"github.com/donation/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MediaKind says whether an upload becomes the cover image or a supporting document
type MediaKind string

const (
	MediaKindImage    MediaKind = "image"
	MediaKindDocument MediaKind = "document"
)

// SVG is excluded because it can carry script
var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var documentContentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"image/jpeg":         true,
	"image/png":          true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
}

// ObjectStorage is the object store holding campaign media
type ObjectStorage interface {
	// GenerateUploadURL returns a presigned PUT URL and its expiry
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)
	// GenerateDownloadURL returns a presigned GET URL and its expiry
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
	// ObjectExists checks whether an object has been uploaded
	ObjectExists(ctx context.Context, storageKey string) (bool, error)
}

// MediaConfig holds media upload settings
type MediaConfig struct {
	UploadURLExpiry   time.Duration
	DownloadURLExpiry time.Duration
	MaxUploadSize     int64
}

// DefaultMediaConfig returns the default media settings
func DefaultMediaConfig() MediaConfig {
	return MediaConfig{
		UploadURLExpiry:   15 * time.Minute,
		DownloadURLExpiry: time.Hour,
		MaxUploadSize:     10 << 20,
	}
}

// UploadURLRequest asks for a presigned upload URL
type UploadURLRequest struct {
	Kind        MediaKind `json:"kind" binding:"required,oneof=image document"`
	FileName    string    `json:"fileName" binding:"required,max=255"`
	ContentType string    `json:"contentType" binding:"required"`
	Size        int64     `json:"size" binding:"required,gt=0"`
}

// UploadURLResponse is the presigned upload target
type UploadURLResponse struct {
	Key       string    `json:"key"`
	UploadURL string    `json:"uploadUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// AttachMediaRequest attaches an uploaded object to a campaign
type AttachMediaRequest struct {
	Kind MediaKind `json:"kind" binding:"required,oneof=image document"`
	Key  string    `json:"key" binding:"required"`
}

// MediaResponse is an attached object with a temporary download URL
type MediaResponse struct {
	Key         string                `json:"key"`
	DownloadURL string                `json:"downloadUrl"`
	ExpiresAt   time.Time             `json:"expiresAt"`
	Campaign    AdminCampaignResponse `json:"campaign"`
}

// MediaService hands out presigned upload URLs for campaign media and
// attaches finished uploads to campaigns
type MediaService struct {
	campaignRepo campaign.Repository
	storage      ObjectStorage
	config       MediaConfig
	logger       *zap.Logger
	now          func() time.Time
}

// NewMediaService creates a new MediaService
func NewMediaService(campaignRepo campaign.Repository, storage ObjectStorage, config MediaConfig, logger *zap.Logger) *MediaService {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultMediaConfig()
	if config.UploadURLExpiry <= 0 {
		config.UploadURLExpiry = def.UploadURLExpiry
	}
	if config.DownloadURLExpiry <= 0 {
		config.DownloadURLExpiry = def.DownloadURLExpiry
	}
	if config.MaxUploadSize <= 0 {
		config.MaxUploadSize = def.MaxUploadSize
	}
	return &MediaService{
		campaignRepo: campaignRepo,
		storage:      storage,
		config:       config,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateUploadURL validates the file and returns a presigned URL under the
// campaign's key prefix
func (s *MediaService) CreateUploadURL(ctx context.Context, campaignID uuid.UUID, req UploadURLRequest) (*UploadURLResponse, error) {
	var verrs shared.ValidationErrors
	contentType := strings.ToLower(strings.TrimSpace(req.ContentType))
	allowed := imageContentTypes
	if req.Kind == MediaKindDocument {
		allowed = documentContentTypes
	}
	if !allowed[contentType] {
		verrs.Add("contentType", fmt.Sprintf("Content type %q is not allowed for %s uploads", req.ContentType, req.Kind))
	}
	if req.Size > s.config.MaxUploadSize {
		verrs.Add("size", fmt.Sprintf("File cannot exceed %d bytes", s.config.MaxUploadSize))
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	if _, err := s.campaignRepo.FindByID(ctx, campaignID); err != nil {
		return nil, err
	}

	key := mediaKey(campaignID, req.Kind, req.FileName)
	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, contentType, s.config.UploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate upload url: %w", err)
	}
	return &UploadURLResponse{Key: key, UploadURL: url, ExpiresAt: expiresAt}, nil
}

// Attach records an uploaded object on the campaign. The object must live
// under the campaign's prefix and exist in storage.
func (s *MediaService) Attach(ctx context.Context, campaignID uuid.UUID, req AttachMediaRequest) (*MediaResponse, error) {
	prefix := mediaPrefix(campaignID, req.Kind)
	if !strings.HasPrefix(req.Key, prefix) || strings.Contains(req.Key, "..") {
		return nil, shared.NewValidationError([]shared.FieldError{{Field: "key", Message: "Key does not belong to this campaign"}})
	}

	c, err := s.campaignRepo.FindByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}

	exists, err := s.storage.ObjectExists(ctx, req.Key)
	if err != nil {
		return nil, fmt.Errorf("check uploaded object: %w", err)
	}
	if !exists {
		return nil, shared.NewInvalidStateError("Upload has not completed")
	}

	expected := c.GetVersion()
	now := s.now()
	switch req.Kind {
	case MediaKindImage:
		c.SetImage(req.Key, now)
	default:
		if err := c.AddDocument(req.Key, now); err != nil {
			return nil, err
		}
	}
	if err := s.campaignRepo.Update(ctx, c, expected); err != nil {
		return nil, err
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, req.Key, s.config.DownloadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate download url: %w", err)
	}

	s.logger.Info("campaign media attached",
		zap.String("campaign_id", campaignID.String()),
		zap.String("kind", string(req.Kind)),
		zap.String("key", req.Key),
	)
	return &MediaResponse{
		Key:         req.Key,
		DownloadURL: url,
		ExpiresAt:   expiresAt,
		Campaign:    ToAdminCampaignResponse(c, now),
	}, nil
}

func mediaPrefix(campaignID uuid.UUID, kind MediaKind) string {
	return fmt.Sprintf("campaigns/%s/%ss/", campaignID, kind)
}

func mediaKey(campaignID uuid.UUID, kind MediaKind, fileName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(fileName)))
	if len(ext) > 10 {
		ext = ""
	}
	return mediaPrefix(campaignID, kind) + uuid.NewString() + ext
}
