package nakama

import (
	"context"
	"sort"
	"sync"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

// fakeNakama keeps storage objects in memory and records published events.
// Unimplemented NakamaModule methods panic through the nil embedded interface.
type fakeNakama struct {
	runtime.NakamaModule

	mu      sync.Mutex
	objects map[string]*api.StorageObject
	events  []*api.Event
}

func newFakeNakama() *fakeNakama {
	return &fakeNakama{objects: map[string]*api.StorageObject{}}
}

func (f *fakeNakama) StorageRead(_ context.Context, reads []*runtime.StorageRead) ([]*api.StorageObject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*api.StorageObject
	for _, r := range reads {
		if obj, ok := f.objects[r.Collection+"|"+r.Key]; ok {
			out = append(out, obj)
		}
	}
	return out, nil
}

func (f *fakeNakama) StorageWrite(_ context.Context, writes []*runtime.StorageWrite) ([]*api.StorageObjectAck, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	acks := make([]*api.StorageObjectAck, 0, len(writes))
	for _, w := range writes {
		f.objects[w.Collection+"|"+w.Key] = &api.StorageObject{
			Collection:      w.Collection,
			Key:             w.Key,
			UserId:          w.UserID,
			Value:           w.Value,
			PermissionRead:  int32(w.PermissionRead),
			PermissionWrite: int32(w.PermissionWrite),
		}
		acks = append(acks, &api.StorageObjectAck{Collection: w.Collection, Key: w.Key})
	}
	return acks, nil
}

// StorageList pages one object at a time to exercise cursor handling.
func (f *fakeNakama) StorageList(_ context.Context, callerID, userID, collection string, limit int, cursor string) ([]*api.StorageObject, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var keys []string
	for _, obj := range f.objects {
		if obj.Collection == collection {
			keys = append(keys, obj.Key)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k > cursor {
			return []*api.StorageObject{f.objects[collection+"|"+k]}, k, nil
		}
	}
	return nil, "", nil
}

func (f *fakeNakama) put(key, value string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[StorageCollection+"|"+key] = &api.StorageObject{Collection: StorageCollection, Key: key, Value: value}
}

func (f *fakeNakama) Event(_ context.Context, evt *api.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, evt)
	return nil
}

func (f *fakeNakama) eventNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]string, 0, len(f.events))
	for _, e := range f.events {
		names = append(names, e.Name)
	}
	return names
}
