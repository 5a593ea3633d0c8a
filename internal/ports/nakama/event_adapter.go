package nakama

import (
	"context"
	"fmt"

	"frenchdomino/internal/ports"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// NakamaEventAdapter publishes engine events to Nakama's event pipeline.
type NakamaEventAdapter struct {
	nk runtime.NakamaModule
}

// NewNakamaEventAdapter creates a new event adapter.
func NewNakamaEventAdapter(nk runtime.NakamaModule) *NakamaEventAdapter {
	return &NakamaEventAdapter{nk: nk}
}

// Publish sends one event. Names are prefixed so the event handler can pick ours out.
func (a *NakamaEventAdapter) Publish(ctx context.Context, name string, properties map[string]string) error {
	err := a.nk.Event(ctx, &api.Event{
		Name:       EventNamePrefix + name,
		Properties: properties,
		Timestamp:  timestamppb.Now(),
		External:   false,
	})
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", name, err)
	}
	return nil
}

var _ ports.EventPublisher = (*NakamaEventAdapter)(nil)
