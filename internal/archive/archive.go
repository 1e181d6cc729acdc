// Package archive keeps named session documents in a blob store so a ship
// can be saved, listed and restored later. It doubles as the export
// clipboard for headless deployments.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"shipyard/internal/blob"
)

const (
	keyPrefix     = "sessions/"
	keySuffix     = ".json"
	contentType   = "application/json"
	formatKey     = "format"
	formatValue   = "shipyard-session"
	clipboardName = "clipboard"
	urlExpiry     = 15 * time.Minute
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]{0,63}$`)

var (
	// ErrInvalidName rejects names outside [A-Za-z0-9._-], up to 64 chars.
	ErrInvalidName = errors.New("invalid archive name")
	// ErrNotFound reports a missing archive entry.
	ErrNotFound = blob.ErrNotFound
	// ErrExists reports a create-only save over an existing entry.
	ErrExists = blob.ErrExists
)

// Entry describes one stored document.
type Entry struct {
	Name      string    `json:"name"`
	Size      int64     `json:"size_bytes"`
	ETag      string    `json:"etag,omitempty"`
	URL       string    `json:"url,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Archive stores documents under sessions/<name>.json.
type Archive struct {
	store blob.Store
}

// New wraps store.
func New(store blob.Store) *Archive {
	return &Archive{store: store}
}

// Driver reports the backing blob driver.
func (a *Archive) Driver() blob.Driver { return a.store.Driver() }

// ValidName reports whether name can be used as an archive entry.
func ValidName(name string) bool {
	return namePattern.MatchString(name) && !strings.Contains(name, "..")
}

func keyFor(name string) (string, error) {
	if !ValidName(name) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return keyPrefix + name + keySuffix, nil
}

// Save stores doc under name. Without overwrite an existing entry yields
// ErrExists.
func (a *Archive) Save(ctx context.Context, name string, doc []byte, overwrite bool) (Entry, error) {
	key, err := keyFor(name)
	if err != nil {
		return Entry{}, err
	}
	info, err := a.store.Put(ctx, key, bytes.NewReader(doc), blob.PutOptions{
		ContentType: contentType,
		Metadata:    map[string]string{formatKey: formatValue},
		Overwrite:   overwrite,
	})
	if err != nil {
		return Entry{}, fmt.Errorf("save %s: %w", name, err)
	}
	return a.entry(ctx, name, info), nil
}

// Load returns the stored document and its entry.
func (a *Archive) Load(ctx context.Context, name string) ([]byte, Entry, error) {
	key, err := keyFor(name)
	if err != nil {
		return nil, Entry{}, err
	}
	info, rc, err := a.store.Get(ctx, key)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("load %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()
	doc, err := io.ReadAll(rc)
	if err != nil {
		return nil, Entry{}, fmt.Errorf("read %s: %w", name, err)
	}
	if info.Size == 0 {
		info.Size = int64(len(doc))
	}
	return doc, a.entry(ctx, name, info), nil
}

// List returns every stored entry ordered by name.
func (a *Archive) List(ctx context.Context) ([]Entry, error) {
	infos, err := a.store.List(ctx, keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	out := make([]Entry, 0, len(infos))
	for _, info := range infos {
		name, ok := nameFor(info.Key)
		if !ok {
			continue
		}
		out = append(out, Entry{Name: name, Size: info.Size, ETag: info.ETag, UpdatedAt: info.LastModified})
	}
	return out, nil
}

// Delete removes name, reporting whether it existed.
func (a *Archive) Delete(ctx context.Context, name string) (bool, error) {
	key, err := keyFor(name)
	if err != nil {
		return false, err
	}
	existed, err := a.store.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("delete %s: %w", name, err)
	}
	return existed, nil
}

// WriteText overwrites the clipboard entry with text.
func (a *Archive) WriteText(ctx context.Context, text string) error {
	_, err := a.Save(ctx, clipboardName, []byte(text), true)
	return err
}

// entry builds an Entry, attaching a download URL when the driver can
// presign one.
func (a *Archive) entry(ctx context.Context, name string, info blob.Info) Entry {
	e := Entry{Name: name, Size: info.Size, ETag: info.ETag, UpdatedAt: info.LastModified}
	if url, err := a.store.PresignURL(ctx, info.Key, blob.SignedURLOptions{Method: "GET", Expiry: urlExpiry}); err == nil {
		e.URL = url
	}
	return e
}

func nameFor(key string) (string, bool) {
	if !strings.HasPrefix(key, keyPrefix) || !strings.HasSuffix(key, keySuffix) {
		return "", false
	}
	name := strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), keySuffix)
	if !ValidName(name) {
		return "", false
	}
	return name, true
}
