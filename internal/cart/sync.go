package cart

import (
	"context"

	"github.com/mishafoods/storefront-backend/pkg/events"
	"github.com/mishafoods/storefront-backend/pkg/logger"
	"github.com/mishafoods/storefront-backend/pkg/metrics"
)

// Synchronizer applies slot change events from other contexts to the local
// store. Events from this context's own origin are echo and ignored, as
// are events for other slots.
type Synchronizer struct {
	store     *Store
	persister *Persister
	origin    string
	logg      *logger.Logger
	metrics   *metrics.CartMetrics
}

// NewSynchronizer wires a store and its persister to the event stream.
func NewSynchronizer(store *Store, persister *Persister, origin string, logg *logger.Logger, m *metrics.CartMetrics) *Synchronizer {
	return &Synchronizer{
		store:     store,
		persister: persister,
		origin:    origin,
		logg:      logg,
		metrics:   m,
	}
}

// Handle is the event handler to subscribe on the bus.
func (s *Synchronizer) Handle(ctx context.Context, ev events.Event) {
	if ev.Origin == s.origin || ev.Key != s.persister.Key() {
		return
	}

	switch ev.Kind {
	case events.KindCleared:
		s.store.Replace(ctx, nil)
		s.metrics.IncSync(string(ev.Kind))
		if s.logg != nil {
			s.logg.Info(ctx, "cart.sync cleared by another context")
		}
	case events.KindUpdated:
		items, err := s.persister.Load(ctx)
		if err != nil {
			if s.logg != nil {
				s.logg.Error(ctx, "cart.sync reload failed", err)
			}
			return
		}
		before := s.store.Items()
		s.store.Replace(ctx, items)
		s.metrics.IncSync(string(ev.Kind))
		s.logDiff(ctx, before, items)
	default:
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "kind", string(ev.Kind)), "cart.sync unknown event kind")
		}
	}
}

func (s *Synchronizer) logDiff(ctx context.Context, before, after []Item) {
	if s.logg == nil {
		return
	}
	diff := Diff(before, after)
	if len(diff.Added) == 0 && len(diff.Removed) == 0 && len(diff.Changed) == 0 {
		return
	}
	ctx = s.logg.WithFields(ctx, map[string]any{
		"added":   len(diff.Added),
		"removed": len(diff.Removed),
		"changed": len(diff.Changed),
	})
	s.logg.Info(ctx, "cart.sync applied remote changes")
}
