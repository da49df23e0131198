package cart

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/mishafoods/storefront-backend/pkg/errors"
	"github.com/mishafoods/storefront-backend/pkg/events"
	"github.com/mishafoods/storefront-backend/pkg/logger"
	"github.com/mishafoods/storefront-backend/pkg/metrics"
)

// EngineParams groups the dependencies of an Engine.
type EngineParams struct {
	Store     *Store
	Persister *Persister
	Bus       events.Bus
	Logger    *logger.Logger
	Metrics   *metrics.CartMetrics
	Now       func() time.Time
}

// Engine is the cart facade: every mutation goes through it so state,
// persistence and cross-context notification stay in step. One engine per
// slot key.
type Engine struct {
	store     *Store
	persister *Persister
	bus       events.Bus
	origin    string
	logg      *logger.Logger
	metrics   *metrics.CartMetrics
	now       func() time.Time

	unsubscribe func()
}

// NewEngine builds an engine over an already constructed store and
// persister.
func NewEngine(params EngineParams) (*Engine, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart store is required")
	}
	if params.Persister == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "persister is required")
	}
	if params.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event bus is required")
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Engine{
		store:     params.Store,
		persister: params.Persister,
		bus:       params.Bus,
		origin:    uuid.NewString(),
		logg:      params.Logger,
		metrics:   params.Metrics,
		now:       params.Now,
	}, nil
}

// Origin identifies this engine on the event bus.
func (e *Engine) Origin() string {
	return e.origin
}

// Init loads persisted state into the store. Corrupt or missing state
// resolves to a valid cart, so Init only fails when the backing store is
// unreachable.
func (e *Engine) Init(ctx context.Context) error {
	items, err := e.persister.Load(ctx)
	if err != nil {
		return err
	}
	e.store.Replace(ctx, items)
	return nil
}

// StartSync subscribes to the event bus and applies remote changes until
// Stop is called.
func (e *Engine) StartSync(ctx context.Context) error {
	sync := NewSynchronizer(e.store, e.persister, e.origin, e.logg, e.metrics)
	cancel, err := e.bus.Subscribe(ctx, sync.Handle)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "subscribing to cart events")
	}
	e.unsubscribe = cancel
	return nil
}

// Stop detaches the engine from the event bus.
func (e *Engine) Stop() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
}

// Add adds a product by id, with an optional explicit quantity.
func (e *Engine) Add(ctx context.Context, id string, quantity *int) (bool, error) {
	if !e.store.AddItem(ctx, id, quantity) {
		return false, nil
	}
	e.metrics.IncOperation("add")
	return true, e.persistAndNotify(ctx, events.KindUpdated)
}

// UpdateQuantity sets a line's quantity; below one removes the line.
func (e *Engine) UpdateQuantity(ctx context.Context, id string, quantity int) (bool, error) {
	if !e.store.UpdateQuantity(ctx, id, quantity) {
		return false, nil
	}
	e.metrics.IncOperation("update")
	return true, e.persistAndNotify(ctx, events.KindUpdated)
}

// Remove deletes a line.
func (e *Engine) Remove(ctx context.Context, id string) (bool, error) {
	if !e.store.RemoveItem(ctx, id) {
		return false, nil
	}
	e.metrics.IncOperation("remove")
	return true, e.persistAndNotify(ctx, events.KindUpdated)
}

// Clear empties the cart and erases the slot. Emptying by removals keeps
// the envelope; only Clear deletes it. Backups go too when clearBackups
// is set.
func (e *Engine) Clear(ctx context.Context, clearBackups bool) error {
	e.store.Clear(ctx)
	if err := e.persister.Erase(ctx, clearBackups); err != nil {
		return err
	}
	e.metrics.IncOperation("clear")
	e.notify(ctx, events.KindCleared)
	return nil
}

// Import merges an export document into the cart.
func (e *Engine) Import(ctx context.Context, raw []byte) (ImportResult, error) {
	result := Import(ctx, e.store, raw)
	if !result.Success {
		return result, nil
	}
	e.metrics.IncOperation("import")
	return result, e.persistAndNotify(ctx, events.KindUpdated)
}

// Export snapshots the cart into a document.
func (e *Engine) Export(ctx context.Context, notes string) ExportDocument {
	e.metrics.IncOperation("export")
	return Export(e.store.Items(), e.store.Summary(), e.now(), notes)
}

// Items returns the cart lines in display order.
func (e *Engine) Items() []Item {
	return e.store.Items()
}

// Summary returns the recomputed order summary.
func (e *Engine) Summary() Summary {
	return e.store.Summary()
}

// Stats returns the cart statistics block, stamped with the last save
// time when known.
func (e *Engine) Stats() Stats {
	stats := e.store.Stats()
	stats.LastSavedAt = e.persister.LastSavedAt()
	return stats
}

// IsInCart reports whether a product id has a line.
func (e *Engine) IsInCart(id string) bool {
	return e.store.IsInCart(id)
}

// QuantityOf returns the line quantity, or zero when absent.
func (e *Engine) QuantityOf(id string) int {
	return e.store.QuantityOf(id)
}

func (e *Engine) persistAndNotify(ctx context.Context, kind events.Kind) error {
	if err := e.persister.Save(ctx, e.store.Items()); err != nil {
		return err
	}
	e.notify(ctx, kind)
	return nil
}

// notify is best-effort: a lost event means another context misses a
// doorbell, not that state is wrong.
func (e *Engine) notify(ctx context.Context, kind events.Kind) {
	if err := e.bus.Publish(ctx, events.Event{
		Kind:   kind,
		Key:    e.persister.Key(),
		Origin: e.origin,
	}); err != nil && e.logg != nil {
		e.logg.Error(ctx, "cart.notify publish failed", err)
	}
}
