// Package media stores uploaded files under content-addressed keys.
package media

import (
	"errors"
	"fmt"
	"slices"

	"github.com/alfredjeanlab/formdesk/internal/model"
)

var (
	// ErrTooLarge is returned when an upload exceeds its type's size limit.
	ErrTooLarge = errors.New("file too large")
	// ErrTypeNotAllowed is returned when the sniffed MIME type is not allowed
	// for the upload type.
	ErrTypeNotAllowed = errors.New("file type not allowed")
	// ErrEmpty is returned for zero-byte uploads.
	ErrEmpty = errors.New("file is empty")
	// ErrUnknownType is returned for an upload type without a policy.
	ErrUnknownType = errors.New("unknown upload_type")
)

const mib = 1 << 20

// Policy limits what may be uploaded for one upload type.
type Policy struct {
	MaxBytes int64
	Allowed  []string // MIME types, without parameters
}

// Allows reports whether contentType is on the policy's allowlist.
func (p Policy) Allows(contentType string) bool {
	return slices.Contains(p.Allowed, contentType)
}

var images = []string{"image/png", "image/jpeg", "image/gif", "image/webp"}

// DefaultPolicies is the built-in policy table.
var DefaultPolicies = map[model.UploadType]Policy{
	model.UploadTicketAttachment: {
		MaxBytes: 10 * mib,
		Allowed:  append(slices.Clone(images), "application/pdf", "text/plain", "video/mp4", "application/zip"),
	},
	model.UploadKnowledgebase: {
		MaxBytes: 20 * mib,
		Allowed:  append(slices.Clone(images), "application/pdf", "video/mp4"),
	},
	model.UploadAvatar: {
		MaxBytes: 2 * mib,
		Allowed:  slices.Clone(images),
	},
}

// extensions maps allowed MIME types to the extension used in object keys.
var extensions = map[string]string{
	"image/png":       ".png",
	"image/jpeg":      ".jpg",
	"image/gif":       ".gif",
	"image/webp":      ".webp",
	"application/pdf": ".pdf",
	"text/plain":      ".txt",
	"video/mp4":       ".mp4",
	"application/zip": ".zip",
}

// Extension returns the key extension for contentType, or ".bin".
func Extension(contentType string) string {
	if ext, ok := extensions[contentType]; ok {
		return ext
	}
	return ".bin"
}

// PolicyFor looks up the policy for an upload type.
func PolicyFor(policies map[model.UploadType]Policy, t model.UploadType) (Policy, error) {
	p, ok := policies[t]
	if !t.IsValid() || !ok {
		return Policy{}, fmt.Errorf("%w %q", ErrUnknownType, t)
	}
	return p, nil
}

// MaxBytes returns the largest size limit in policies.
func MaxBytes(policies map[model.UploadType]Policy) int64 {
	var n int64
	for _, p := range policies {
		n = max(n, p.MaxBytes)
	}
	return n
}
