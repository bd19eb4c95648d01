package media

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"sync"

	"github.com/zeebo/blake3"

	"github.com/alfredjeanlab/formdesk/internal/model"
	"github.com/alfredjeanlab/formdesk/internal/store"
)

// ObjectStore persists upload bodies and returns their public URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (url string, err error)
}

// Request is one incoming upload.
type Request struct {
	Type     model.UploadType
	Filename string
	Body     io.Reader
	Actor    string
}

// Service validates uploads, stores them, and records them.
type Service struct {
	objects  ObjectStore
	store    store.Store
	policies map[model.UploadType]Policy
}

// NewService creates a media service using DefaultPolicies.
func NewService(objects ObjectStore, s store.Store) *Service {
	return &Service{objects: objects, store: s, policies: DefaultPolicies}
}

// Key returns the content-addressed object key for data.
func Key(t model.UploadType, contentType string, data []byte) string {
	sum := blake3.Sum256(data)
	return fmt.Sprintf("%s/%s%s", t, hex.EncodeToString(sum[:]), Extension(contentType))
}

// Sniff detects the MIME type of data and strips parameters such as charset.
func Sniff(data []byte) string {
	ct := http.DetectContentType(data)
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return ct
}

// Upload reads the body up to the type's limit, checks it against the
// policy, stores it under its content hash and records it. Identical content
// uploaded twice yields the same key.
func (s *Service) Upload(ctx context.Context, req Request) (*model.Upload, error) {
	policy, err := PolicyFor(s.policies, req.Type)
	if err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(req.Body, policy.MaxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if int64(len(data)) > policy.MaxBytes {
		return nil, fmt.Errorf("%w: limit for %s is %d bytes", ErrTooLarge, req.Type, policy.MaxBytes)
	}

	contentType := Sniff(data)
	if !policy.Allows(contentType) {
		return nil, fmt.Errorf("%w: %s for %s", ErrTypeNotAllowed, contentType, req.Type)
	}

	key := Key(req.Type, contentType, data)
	url, err := s.objects.Put(ctx, key, contentType, data)
	if err != nil {
		return nil, fmt.Errorf("store object: %w", err)
	}

	u := &model.Upload{
		Key:         key,
		URL:         url,
		UploadType:  req.Type,
		ContentType: contentType,
		Size:        int64(len(data)),
		Filename:    req.Filename,
		CreatedBy:   req.Actor,
	}
	if err := s.store.RecordUpload(ctx, u); err != nil {
		return nil, fmt.Errorf("record upload: %w", err)
	}
	slog.Info("media: stored upload", "key", key, "type", req.Type, "size", u.Size)
	return u, nil
}

// MemoryStore keeps objects in memory. It backs tests and servers started
// without an S3 bucket.
type MemoryStore struct {
	BaseURL string

	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: baseURL, objects: make(map[string][]byte)}
}

func (m *MemoryStore) Put(ctx context.Context, key, contentType string, data []byte) (string, error) {
	m.mu.Lock()
	m.objects[key] = bytes.Clone(data)
	m.mu.Unlock()
	return m.BaseURL + "/" + key, nil
}

// Get returns a stored object.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}
