package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mishafoods/storefront-backend/internal/catalog"
	pkgerrors "github.com/mishafoods/storefront-backend/pkg/errors"
	"github.com/mishafoods/storefront-backend/pkg/kv"
	"github.com/mishafoods/storefront-backend/pkg/logger"
	"github.com/mishafoods/storefront-backend/pkg/metrics"
)

// driftThreshold is the relative price change on a migrated line that is
// worth telling the operator about.
var driftThreshold = decimal.NewFromFloat(0.10)

// PersisterParams groups the dependencies of a Persister.
type PersisterParams struct {
	Store      kv.Store
	Catalog    catalog.Lookup
	Key        string
	BackupKeep int
	Logger     *logger.Logger
	Metrics    *metrics.CartMetrics
	Now        func() time.Time
	OnClamp    ClampHook
}

// Persister reads and writes the cart envelope in one durable slot,
// rotating dated backups on every save and falling back to the newest
// parseable backup when the primary is corrupt.
type Persister struct {
	store      kv.Store
	catalog    catalog.Lookup
	key        string
	backupKeep int
	logg       *logger.Logger
	metrics    *metrics.CartMetrics
	now        func() time.Time
	onClamp    ClampHook

	// savedMu guards lastSavedAt: handlers read it while the synchronizer
	// or another handler saves.
	savedMu     sync.Mutex
	lastSavedAt *time.Time
}

// NewPersister builds a persistence adapter for one slot key.
func NewPersister(params PersisterParams) (*Persister, error) {
	if params.Store == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "kv store is required")
	}
	if params.Catalog == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "catalog lookup is required")
	}
	if params.Key == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot key is required")
	}
	if params.BackupKeep <= 0 {
		params.BackupKeep = 3
	}
	if params.Now == nil {
		params.Now = time.Now
	}
	return &Persister{
		store:      params.Store,
		catalog:    params.Catalog,
		key:        params.Key,
		backupKeep: params.BackupKeep,
		logg:       params.Logger,
		metrics:    params.Metrics,
		now:        params.Now,
		onClamp:    params.OnClamp,
	}, nil
}

// Key returns the primary slot key.
func (p *Persister) Key() string {
	return p.key
}

// LastSavedAt reports when this process last wrote the slot, or nil if it
// has not.
func (p *Persister) LastSavedAt() *time.Time {
	p.savedMu.Lock()
	defer p.savedMu.Unlock()
	return p.lastSavedAt
}

func (p *Persister) backupPrefix() string {
	return p.key + "_backup_"
}

func (p *Persister) backupKey(now time.Time) string {
	return p.backupPrefix() + now.UTC().Format("2006-01-02")
}

// Save writes the envelope to the primary slot and to today's backup slot,
// then prunes older backups beyond the retention count. A failed backup
// write is logged and swallowed: the primary is the source of truth, the
// backups are the safety net.
func (p *Persister) Save(ctx context.Context, items []Item) error {
	now := p.now()
	raw, err := json.Marshal(envelopeFrom(items, now))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart envelope")
	}

	if err := p.store.Set(ctx, p.key, string(raw)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "saving cart")
	}
	saved := now
	p.savedMu.Lock()
	p.lastSavedAt = &saved
	p.savedMu.Unlock()

	if err := p.store.Set(ctx, p.backupKey(now), string(raw)); err != nil {
		if p.logg != nil {
			p.logg.Error(ctx, "cart.backup write failed", err)
		}
		return nil
	}
	p.pruneBackups(ctx)
	return nil
}

// pruneBackups keeps the newest backupKeep backup slots. Backup keys embed
// the date, so lexical order is chronological order.
func (p *Persister) pruneBackups(ctx context.Context) {
	keys, err := p.store.Keys(ctx, p.backupPrefix())
	if err != nil {
		if p.logg != nil {
			p.logg.Error(ctx, "cart.backup listing failed", err)
		}
		return
	}
	if len(keys) <= p.backupKeep {
		return
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	if err := p.store.Del(ctx, keys[p.backupKeep:]...); err != nil && p.logg != nil {
		p.logg.Error(ctx, "cart.backup prune failed", err)
	}
}

// Load reads the slot and hydrates it against the catalog. A missing slot
// is an empty cart. A corrupt primary is cleared and the newest parseable
// backup takes its place; with no usable backup the cart starts empty.
// Load never fails on bad data, only on a broken store.
func (p *Persister) Load(ctx context.Context) ([]Item, error) {
	raw, err := p.store.Get(ctx, p.key)
	if errors.Is(err, kv.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading cart")
	}

	env, snapshots, decodeErr := decodeEnvelope([]byte(raw))
	if decodeErr == nil {
		return p.hydrate(ctx, env, snapshots), nil
	}

	if p.logg != nil {
		p.logg.Error(ctx, "cart.load corrupt envelope, trying backups", decodeErr)
	}
	if delErr := p.store.Del(ctx, p.key); delErr != nil && p.logg != nil {
		p.logg.Error(ctx, "cart.load clearing corrupt slot failed", delErr)
	}

	items, ok := p.loadFromBackups(ctx)
	if ok {
		p.metrics.IncRecovery("backup")
		return items, nil
	}
	p.metrics.IncRecovery("empty")
	return nil, nil
}

// loadFromBackups walks backups newest first and returns the first one
// that parses.
func (p *Persister) loadFromBackups(ctx context.Context) ([]Item, bool) {
	keys, err := p.store.Keys(ctx, p.backupPrefix())
	if err != nil || len(keys) == 0 {
		return nil, false
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	for _, key := range keys {
		raw, err := p.store.Get(ctx, key)
		if err != nil {
			continue
		}
		env, snapshots, err := decodeEnvelope([]byte(raw))
		if err != nil {
			if p.logg != nil {
				p.logg.Warn(p.logg.WithField(ctx, "backup_key", key), "cart.recover unparseable backup skipped")
			}
			continue
		}
		if p.logg != nil {
			p.logg.Info(p.logg.WithField(ctx, "backup_key", key), "cart.recover restored from backup")
		}
		return p.hydrate(ctx, env, snapshots), true
	}
	return nil, false
}

// hydrate resolves envelope lines against the catalog. Unresolvable ids
// are dropped with a log line, quantities are clamped back into bounds,
// and migrated lines whose price drifted past the threshold since their
// snapshot get a warning.
func (p *Persister) hydrate(ctx context.Context, env envelope, snapshots map[string]string) []Item {
	items := make([]Item, 0, len(env.Items))
	for _, line := range env.Items {
		product, ok := p.catalog.GetByID(line.ID)
		if !ok {
			if p.logg != nil {
				p.logg.Warn(p.logg.WithProductID(ctx, line.ID), "cart.load dropping unknown product")
			}
			continue
		}

		quantity := clampQuantity(line.Quantity)
		if quantity != line.Quantity && p.onClamp != nil {
			p.onClamp(line.ID, line.Quantity, quantity)
		}

		if snapshot, has := snapshots[line.ID]; has {
			p.warnPriceDrift(ctx, product, snapshot)
		}

		items = append(items, Item{
			Product:     product,
			Quantity:    quantity,
			AddedAt:     parseTimestamp(line.AddedAt, p.now),
			LastUpdated: parseTimestamp(line.LastUpdated, p.now),
		})
	}
	return items
}

func (p *Persister) warnPriceDrift(ctx context.Context, product catalog.Product, snapshot string) {
	old, err := decimal.NewFromString(strings.TrimSpace(snapshot))
	if err != nil || old.IsZero() {
		return
	}
	drift := product.Amount.Sub(old).Abs().Div(old)
	if drift.LessThanOrEqual(driftThreshold) {
		return
	}
	if p.logg != nil {
		ctx = p.logg.WithFields(ctx, map[string]any{
			"product_id": product.ID,
			"old_price":  old.String(),
			"new_price":  product.Amount.String(),
		})
		p.logg.Warn(ctx, fmt.Sprintf("cart.migrate price changed more than %s%%",
			driftThreshold.Mul(decimal.NewFromInt(100)).String()))
	}
}

// Erase deletes the primary slot, and the backups too when clearBackups is
// set. Backups survive an ordinary clear so a cleared cart can still be
// recovered by hand.
func (p *Persister) Erase(ctx context.Context, clearBackups bool) error {
	if err := p.store.Del(ctx, p.key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart")
	}
	p.savedMu.Lock()
	p.lastSavedAt = nil
	p.savedMu.Unlock()
	if !clearBackups {
		return nil
	}
	keys, err := p.store.Keys(ctx, p.backupPrefix())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "listing cart backups")
	}
	if len(keys) == 0 {
		return nil
	}
	if err := p.store.Del(ctx, keys...); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clearing cart backups")
	}
	return nil
}

func parseTimestamp(value string, now func() time.Time) time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return now()
	}
	return ts
}
