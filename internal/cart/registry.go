package cart

import (
	"context"
	"sync"
	"time"

	"github.com/mishafoods/storefront-backend/internal/catalog"
	"github.com/mishafoods/storefront-backend/internal/pricing"
	pkgerrors "github.com/mishafoods/storefront-backend/pkg/errors"
	"github.com/mishafoods/storefront-backend/pkg/events"
	"github.com/mishafoods/storefront-backend/pkg/kv"
	"github.com/mishafoods/storefront-backend/pkg/logger"
	"github.com/mishafoods/storefront-backend/pkg/metrics"
)

// RegistryParams groups the shared dependencies each session engine is
// built from.
type RegistryParams struct {
	KV          kv.Store
	Bus         events.Bus
	Catalog     catalog.Lookup
	Policy      *pricing.Policy
	Region      pricing.Region
	BaseKey     string
	BackupKeep  int
	Logger      *logger.Logger
	Metrics     *metrics.CartMetrics
	Now         func() time.Time
	WarnOnClamp bool
}

// Registry hands out one engine per session. Sessions share the kv store
// and bus but each gets its own slot key, so carts never bleed between
// sessions.
type Registry struct {
	params RegistryParams

	// subscriptions outlive the request that first touched a session, so
	// they attach to the registry's context, not the caller's.
	subCtx    context.Context
	subCancel context.CancelFunc

	mu      sync.Mutex
	engines map[string]*Engine
}

// NewRegistry builds an empty session registry.
func NewRegistry(params RegistryParams) (*Registry, error) {
	if params.KV == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kv store is required")
	}
	if params.Bus == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "event bus is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog lookup is required")
	}
	if params.Policy == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pricing policy is required")
	}
	if params.BaseKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "base storage key is required")
	}
	subCtx, subCancel := context.WithCancel(context.Background())
	return &Registry{
		params:    params,
		subCtx:    subCtx,
		subCancel: subCancel,
		engines:   map[string]*Engine{},
	}, nil
}

// SlotKey maps a session id to its slot key. The empty session shares the
// base slot, matching a storefront with no session header.
func (r *Registry) SlotKey(session string) string {
	if session == "" {
		return r.params.BaseKey
	}
	return r.params.BaseKey + ":" + session
}

// Engine returns the session's engine, constructing, initializing and
// subscribing it on first use.
func (r *Registry) Engine(ctx context.Context, session string) (*Engine, error) {
	key := r.SlotKey(session)

	r.mu.Lock()
	defer r.mu.Unlock()

	if engine, ok := r.engines[key]; ok {
		return engine, nil
	}

	engine, err := r.build(key)
	if err != nil {
		return nil, err
	}
	if err := engine.Init(ctx); err != nil {
		return nil, err
	}
	if err := engine.StartSync(r.subCtx); err != nil {
		return nil, err
	}
	r.engines[key] = engine
	return engine, nil
}

func (r *Registry) build(key string) (*Engine, error) {
	var onClamp ClampHook
	if r.params.WarnOnClamp && r.params.Logger != nil {
		logg := r.params.Logger
		onClamp = func(id string, requested, applied int) {
			ctx := logg.WithFields(context.Background(), map[string]any{
				"product_id": id,
				"requested":  requested,
				"applied":    applied,
			})
			logg.Warn(ctx, "cart.quantity clamped")
		}
	}

	store, err := NewStore(StoreParams{
		Catalog: r.params.Catalog,
		Policy:  r.params.Policy,
		Region:  r.params.Region,
		Logger:  r.params.Logger,
		Now:     r.params.Now,
		OnClamp: onClamp,
	})
	if err != nil {
		return nil, err
	}

	persister, err := NewPersister(PersisterParams{
		Store:      r.params.KV,
		Catalog:    r.params.Catalog,
		Key:        key,
		BackupKeep: r.params.BackupKeep,
		Logger:     r.params.Logger,
		Metrics:    r.params.Metrics,
		Now:        r.params.Now,
		OnClamp:    onClamp,
	})
	if err != nil {
		return nil, err
	}

	return NewEngine(EngineParams{
		Store:     store,
		Persister: persister,
		Bus:       r.params.Bus,
		Logger:    r.params.Logger,
		Metrics:   r.params.Metrics,
		Now:       r.params.Now,
	})
}

// Shutdown detaches every engine from the event bus and cancels the
// subscription context.
func (r *Registry) Shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, engine := range r.engines {
		engine.Stop()
	}
	r.engines = map[string]*Engine{}
	r.subCancel()
}
