package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-decisions"
)

var (
	// ErrPersistence matches every I/O failure raised by a Store.
	ErrPersistence = errors.New("state: persistence failure")
	// ErrETagMismatch is returned by Mutate when the stored record changed.
	ErrETagMismatch = errors.New("state: etag mismatch")
	// ErrInvalidClientID rejects client ids that cannot be used as keys.
	ErrInvalidClientID = errors.New("state: invalid client id")
	// ErrNotFound is returned by Mutate when no record is stored.
	ErrNotFound = errors.New("state: record not found")
)

// Ref identifies the persisted context of one client.
type Ref struct {
	ClientID string
}

// Meta is storage-owned metadata used for audit and concurrency control.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	Version    int               `json:"version,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads and saves one record for a single client reference. Load
// reports ok=false when nothing is stored.
type Store interface {
	Load(ctx context.Context, ref Ref) (record decisions.ContextRecord, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, record decisions.ContextRecord, meta Meta) (Meta, error)
}

// Error wraps a storage failure with the operation and key involved.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Key == "" {
		return fmt.Sprintf("state: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("state: %s %s: %v", e.Op, e.Key, e.Err)
}

// Unwrap exposes both ErrPersistence and the underlying error.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{ErrPersistence, e.Err}
}

// WrapError builds an *Error, passing nil through.
func WrapError(op, key string, err error) error {
	if err == nil {
		return nil
	}
	var stateErr *Error
	if errors.As(err, &stateErr) {
		return err
	}
	return &Error{Op: op, Key: key, Err: err}
}

// Identifier returns the storage key for r.
func (r Ref) Identifier() (string, error) {
	return ClientKey(r.ClientID)
}

// ClientKey validates clientID for use as a file name or primary key.
func ClientKey(clientID string) (string, error) {
	key := strings.TrimSpace(clientID)
	switch {
	case key == "":
		return "", fmt.Errorf("%w: client id is required", ErrInvalidClientID)
	case strings.ContainsAny(key, `/\`+"\x00"):
		return "", fmt.Errorf("%w: %q contains a path separator", ErrInvalidClientID, clientID)
	case strings.HasPrefix(key, "."):
		return "", fmt.Errorf("%w: %q must not start with a dot", ErrInvalidClientID, clientID)
	}
	return key, nil
}

// ETag returns the concurrency tag of record. Versions only grow within a
// context, so the context id and version identify a revision.
func ETag(record decisions.ContextRecord) string {
	return fmt.Sprintf("%s/v%d", record.Meta.ContextID, record.Meta.Version)
}

// MetaFor derives storage metadata from record.
func MetaFor(record decisions.ContextRecord, updatedAt time.Time) Meta {
	return Meta{
		SnapshotID: record.Meta.ContextID,
		Version:    record.Meta.Version,
		ETag:       ETag(record),
		UpdatedAt:  updatedAt.UTC(),
	}
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.Version != 0 {
		out.Version = override.Version
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return cloneMeta(out)
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
