package hub

import "context"

// Fabric carries published events to every hub subscribed to it, including the
// publishing one.
type Fabric interface {
	Publish(ctx context.Context, ev *Event) error
	// Run delivers received events until ctx is done.
	Run(ctx context.Context, deliver func(*Event)) error
}

// MemoryFabric connects a single process to itself.
type MemoryFabric struct {
	events chan *Event
}

func NewMemoryFabric(buffer int) *MemoryFabric {
	return &MemoryFabric{events: make(chan *Event, buffer)}
}

func (f *MemoryFabric) Publish(ctx context.Context, ev *Event) error {
	select {
	case f.events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *MemoryFabric) Run(ctx context.Context, deliver func(*Event)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-f.events:
			deliver(ev)
		}
	}
}
