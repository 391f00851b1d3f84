package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/keito-ux/advent-calendar-bolt/internal/domain/enums"
	"github.com/keito-ux/advent-calendar-bolt/internal/domain/model"
)

var (
	ErrValidation       = errors.New("validation error")
	ErrUnsupportedType  = errors.New("unsupported content type")
	ErrTooLarge         = errors.New("file too large")
	ErrDependenciesNil  = errors.New("media dependencies are not configured")
	ErrForeignObjectURL = errors.New("url does not point at this bucket")
)

const (
	MaxUploadBytes = 10 << 20
	objectRoot     = "users"
)

type Store interface {
	CreateMedia(ctx context.Context, media model.Media) (model.Media, error)
	EnqueueDeletions(ctx context.Context, objectKeys []string) error
}

type ObjectStorage interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// Deletion is a queued object removal. Attempts counts failed tries.
type Deletion struct {
	ID        int64
	ObjectKey string
	Attempts  int
}

// Upload is one file received from a client.
type Upload struct {
	FileName    string
	ContentType string
	Body        io.Reader
	Size        int64
}

type Service struct {
	store         Store
	storage       ObjectStorage
	publicBaseURL string
	now           func() time.Time
}

func NewService(store Store, storage ObjectStorage, publicBaseURL string) *Service {
	return &Service{
		store:         store,
		storage:       storage,
		publicBaseURL: strings.TrimRight(strings.TrimSpace(publicBaseURL), "/"),
		now:           time.Now,
	}
}

func (s *Service) Upload(ctx context.Context, ownerID uuid.UUID, kind enums.MediaKind, in Upload) (model.Media, error) {
	if ownerID == uuid.Nil || !kind.Valid() || in.Body == nil || in.Size <= 0 {
		return model.Media{}, ErrValidation
	}
	if in.Size > MaxUploadBytes {
		return model.Media{}, ErrTooLarge
	}
	contentType := strings.ToLower(strings.TrimSpace(in.ContentType))
	if !strings.HasPrefix(contentType, "image/") {
		return model.Media{}, ErrUnsupportedType
	}
	if s.store == nil || s.storage == nil {
		return model.Media{}, ErrDependenciesNil
	}

	if err := s.storage.EnsureBucket(ctx); err != nil {
		return model.Media{}, fmt.Errorf("ensure bucket: %w", err)
	}

	objectKey, err := buildObjectKey(ownerID, kind, in.FileName, s.now())
	if err != nil {
		return model.Media{}, fmt.Errorf("build object key: %w", err)
	}

	if err := s.storage.Put(ctx, objectKey, in.Body, in.Size, contentType); err != nil {
		return model.Media{}, fmt.Errorf("put object: %w", err)
	}

	record, err := s.store.CreateMedia(ctx, model.Media{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Kind:      kind,
		ObjectKey: objectKey,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		_ = s.storage.Delete(ctx, objectKey)
		return model.Media{}, fmt.Errorf("create media record: %w", err)
	}

	record.URL = s.URLFor(record.ObjectKey)
	return record, nil
}

// Release queues the objects behind the given public URLs for deletion.
// URLs that do not belong to this bucket are skipped.
func (s *Service) Release(ctx context.Context, urls ...string) error {
	if s.store == nil {
		return ErrDependenciesNil
	}

	keys := make([]string, 0, len(urls))
	for _, raw := range urls {
		if key, err := s.KeyFromURL(raw); err == nil {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := s.store.EnqueueDeletions(ctx, keys); err != nil {
		return fmt.Errorf("enqueue media deletions: %w", err)
	}
	return nil
}

func (s *Service) URLFor(objectKey string) string {
	return s.publicBaseURL + "/" + strings.TrimLeft(objectKey, "/")
}

func (s *Service) KeyFromURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	prefix := s.publicBaseURL + "/"
	if raw == "" || s.publicBaseURL == "" || !strings.HasPrefix(raw, prefix) {
		return "", ErrForeignObjectURL
	}
	key := strings.TrimPrefix(raw, prefix)
	if !strings.HasPrefix(key, objectRoot+"/") || strings.Contains(key, "..") {
		return "", ErrForeignObjectURL
	}
	return key, nil
}

func buildObjectKey(ownerID uuid.UUID, kind enums.MediaKind, fileName string, now time.Time) (string, error) {
	rnd := make([]byte, 8)
	if _, err := rand.Read(rnd); err != nil {
		return "", err
	}

	ext := strings.ToLower(path.Ext(strings.TrimSpace(fileName)))
	if ext == "" || len(ext) > 6 {
		ext = ".bin"
	}

	stamp := now.UTC().Format("20060102T150405")
	return fmt.Sprintf("%s/%s/%s/%s_%s%s", objectRoot, ownerID, kind, stamp, hex.EncodeToString(rnd), ext), nil
}
