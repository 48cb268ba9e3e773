package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/renameio/v2"

	"github.com/checkcells/checkcells/internal/log"
)

// DiskStore persists recordings under the local data directory. It is
// the fallback target when no object store is configured.
type DiskStore struct {
	root string
	base string
	now  func() time.Time
}

// NewDiskStore creates the data directory if needed. base is the public
// base URL under which /uploads/ is served.
func NewDiskStore(root, base string) (*DiskStore, error) {
	// #nosec G301 -- served directory
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("storage: create data dir: %w", err)
	}
	return &DiskStore{
		root: root,
		base: strings.TrimSuffix(base, "/"),
		now:  time.Now,
	}, nil
}

// Root returns the data directory path.
func (d *DiskStore) Root() string { return d.root }

// Put writes one take atomically and returns its relative path and URL.
// The filename scheme mirrors the object-store keys so the two storage
// modes stay interchangeable; mimeType and metadata are accepted for
// interface parity but a plain filesystem has nowhere to keep them.
func (d *DiskStore) Put(ctx context.Context, sampleID string, takeIndex int, data []byte, _, ext string, _ map[string]string) (StoredObject, error) {
	logger := log.WithContext(ctx, log.WithComponent("storage"))

	dir := filepath.Join(d.root, SanitizeSampleID(sampleID))
	// #nosec G301 -- served directory
	if err := os.MkdirAll(dir, 0755); err != nil {
		return StoredObject{}, fmt.Errorf("storage: create sample dir: %w", err)
	}

	name := fmt.Sprintf("recording_%d_%d%s", takeIndex, d.now().UnixMilli(), ext)
	path := filepath.Join(dir, name)

	pendingFile, err := renameio.NewPendingFile(path)
	if err != nil {
		return StoredObject{}, fmt.Errorf("storage: create pending file: %w", err)
	}
	defer func() {
		if err := pendingFile.Cleanup(); err != nil {
			logger.Debug().Err(err).Msg("cleanup pending recording file")
		}
	}()

	if _, err := pendingFile.Write(data); err != nil {
		return StoredObject{}, fmt.Errorf("storage: write recording: %w", err)
	}
	if err := pendingFile.CloseAtomicallyReplace(); err != nil {
		return StoredObject{}, fmt.Errorf("storage: atomically replace recording: %w", err)
	}

	rel := filepath.ToSlash(filepath.Join(SanitizeSampleID(sampleID), name))
	obj := StoredObject{
		Key:          rel,
		URL:          d.base + "/uploads/" + rel,
		SizeBytes:    int64(len(data)),
		LastModified: d.now(),
	}
	logger.Info().
		Str(log.FieldPath, path).
		Int64(log.FieldBytes, obj.SizeBytes).
		Msg("recording saved to disk")
	return obj, nil
}

// List returns all saved recordings for a sample, sorted by filename.
func (d *DiskStore) List(_ context.Context, sampleID string) ([]StoredObject, error) {
	dir := filepath.Join(d.root, SanitizeSampleID(sampleID))
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("storage: list recordings: %w", err)
	}

	var objects []StoredObject
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		rel := filepath.ToSlash(filepath.Join(SanitizeSampleID(sampleID), entry.Name()))
		objects = append(objects, StoredObject{
			Key:          rel,
			URL:          d.base + "/uploads/" + rel,
			SizeBytes:    info.Size(),
			LastModified: info.ModTime(),
		})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}
