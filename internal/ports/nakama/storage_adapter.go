package nakama

import (
	"context"
	"fmt"
	"strings"

	"frenchdomino/internal/ports"

	"github.com/heroiclabs/nakama-common/runtime"
)

const storageListPageSize = 100

// NakamaStorageAdapter persists engine records as system-owned Nakama storage objects.
type NakamaStorageAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaStorageAdapter creates a new storage adapter.
func NewNakamaStorageAdapter(nk runtime.NakamaModule) *NakamaStorageAdapter {
	return &NakamaStorageAdapter{nk: nk}
}

// Get reads one record.
func (a *NakamaStorageAdapter) Get(ctx context.Context, key string) ([]byte, bool, error) {
	objects, err := a.nk.StorageRead(ctx, []*runtime.StorageRead{
		{Collection: StorageCollection, Key: key},
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read storage object %s: %w", key, err)
	}
	if len(objects) == 0 {
		return nil, false, nil
	}
	return []byte(objects[0].Value), true, nil
}

// Set writes one record unconditionally. Concurrent writers resolve last-write-wins.
func (a *NakamaStorageAdapter) Set(ctx context.Context, key string, value []byte) error {
	_, err := a.nk.StorageWrite(ctx, []*runtime.StorageWrite{
		{
			Collection:      StorageCollection,
			Key:             key,
			Value:           string(value),
			PermissionRead:  runtime.STORAGE_PERMISSION_NO_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write storage object %s: %w", key, err)
	}
	return nil
}

// List returns every key in the collection that starts with prefix.
func (a *NakamaStorageAdapter) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	cursor := ""
	for {
		objects, next, err := a.nk.StorageList(ctx, "", "", StorageCollection, storageListPageSize, cursor)
		if err != nil {
			return nil, fmt.Errorf("failed to list storage objects: %w", err)
		}
		for _, obj := range objects {
			if strings.HasPrefix(obj.Key, prefix) {
				keys = append(keys, obj.Key)
			}
		}
		if next == "" || next == cursor {
			return keys, nil
		}
		cursor = next
	}
}

var _ ports.Store = (*NakamaStorageAdapter)(nil)
