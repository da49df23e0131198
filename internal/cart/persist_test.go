package cart

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mishafoods/storefront-backend/internal/catalog"
	"github.com/mishafoods/storefront-backend/pkg/kv"
	"github.com/mishafoods/storefront-backend/pkg/logger"
)

func testPersister(t *testing.T, store kv.Store, now func() time.Time) *Persister {
	t.Helper()
	p, err := NewPersister(PersisterParams{
		Store:      store,
		Catalog:    testCatalog(t),
		Key:        "misha_foodstuffs_cart_v2",
		BackupKeep: 3,
		Now:        now,
	})
	require.NoError(t, err)
	return p
}

func fixedClock(day int) func() time.Time {
	return func() time.Time {
		return time.Date(2026, time.March, day, 12, 0, 0, 0, time.UTC)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	slot := kv.NewMemory()
	p := testPersister(t, slot, fixedClock(1))

	store := testStore(t)
	store.AddItem(ctx, "ramen-shin", intPtr(4))
	store.AddItem(ctx, "kimchi-classic", nil)

	require.NoError(t, p.Save(ctx, store.Items()))
	require.NotNil(t, p.LastSavedAt())

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, "ramen-shin", loaded[0].ID)
	assert.Equal(t, 4, loaded[0].Quantity)
	assert.Equal(t, "KES 250", loaded[0].Price)
	assert.Equal(t, "kimchi-classic", loaded[1].ID)
	assert.Equal(t, 1, loaded[1].Quantity)
}

func TestLoadMissingSlotIsEmptyCart(t *testing.T) {
	t.Parallel()
	p := testPersister(t, kv.NewMemory(), fixedClock(1))

	items, err := p.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestSaveRotatesBackups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	slot := kv.NewMemory()

	store := testStore(t)
	store.AddItem(ctx, "ramen-shin", nil)

	for day := 1; day <= 5; day++ {
		p := testPersister(t, slot, fixedClock(day))
		require.NoError(t, p.Save(ctx, store.Items()))
	}

	keys, err := slot.Keys(ctx, "misha_foodstuffs_cart_v2_backup_")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"misha_foodstuffs_cart_v2_backup_2026-03-03",
		"misha_foodstuffs_cart_v2_backup_2026-03-04",
		"misha_foodstuffs_cart_v2_backup_2026-03-05",
	}, keys)
}

func TestLoadRecoversFromNewestBackup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	slot := kv.NewMemory()

	store := testStore(t)
	store.AddItem(ctx, "gochujang", intPtr(2))
	p := testPersister(t, slot, fixedClock(1))
	require.NoError(t, p.Save(ctx, store.Items()))

	store.AddItem(ctx, "gochujang", intPtr(7))
	p2 := testPersister(t, slot, fixedClock(2))
	require.NoError(t, p2.Save(ctx, store.Items()))

	require.NoError(t, slot.Set(ctx, "misha_foodstuffs_cart_v2", "{not json"))

	loaded, err := p2.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, 7, loaded[0].Quantity, "newest backup wins")

	_, err = slot.Get(ctx, "misha_foodstuffs_cart_v2")
	assert.ErrorIs(t, err, kv.ErrNotFound, "corrupt primary must be cleared")
}

func TestLoadSkipsUnparseableBackups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	slot := kv.NewMemory()
	p := testPersister(t, slot, fixedClock(3))

	store := testStore(t)
	store.AddItem(ctx, "ramen-shin", intPtr(3))
	require.NoError(t, p.Save(ctx, store.Items()))

	require.NoError(t, slot.Set(ctx, "misha_foodstuffs_cart_v2", "garbage"))
	require.NoError(t, slot.Set(ctx, "misha_foodstuffs_cart_v2_backup_2026-03-04", "also garbage"))

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "ramen-shin", loaded[0].ID)
}

func TestLoadFallsBackToEmptyWithoutBackups(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	slot := kv.NewMemory()
	p := testPersister(t, slot, fixedClock(1))

	require.NoError(t, slot.Set(ctx, "misha_foodstuffs_cart_v2", "garbage"))

	items, err := p.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestLoadDropsUnknownAndClamps(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	slot := kv.NewMemory()
	p := testPersister(t, slot, fixedClock(1))

	payload := `{"schemaVersion":"2.0","timestamp":"2026-03-01T12:00:00Z","items":[` +
		`{"id":"ramen-shin","quantity":250,"addedAt":"2026-03-01T12:00:00Z","lastUpdated":"2026-03-01T12:00:00Z"},` +
		`{"id":"discontinued","quantity":1,"addedAt":"2026-03-01T12:00:00Z","lastUpdated":"2026-03-01T12:00:00Z"}]}`
	require.NoError(t, slot.Set(ctx, "misha_foodstuffs_cart_v2", payload))

	loaded, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, MaxQuantity, loaded[0].Quantity)
}

func TestEraseKeepsBackupsByDefault(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	slot := kv.NewMemory()
	p := testPersister(t, slot, fixedClock(1))

	store := testStore(t)
	store.AddItem(ctx, "ramen-shin", nil)
	require.NoError(t, p.Save(ctx, store.Items()))

	require.NoError(t, p.Erase(ctx, false))
	assert.Nil(t, p.LastSavedAt())

	_, err := slot.Get(ctx, "misha_foodstuffs_cart_v2")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	keys, err := slot.Keys(ctx, "misha_foodstuffs_cart_v2_backup_")
	require.NoError(t, err)
	assert.Len(t, keys, 1)

	require.NoError(t, p.Erase(ctx, true))
	keys, err = slot.Keys(ctx, "misha_foodstuffs_cart_v2_backup_")
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func loggingPersister(t *testing.T, store kv.Store) (*Persister, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	p, err := NewPersister(PersisterParams{
		Store:   store,
		Catalog: testCatalog(t),
		Key:     "misha_foodstuffs_cart_v2",
		Logger:  logg,
		Now:     fixedClock(1),
	})
	require.NoError(t, err)
	return p, &buf
}

func TestLoadWarnsOnMigratedPriceDrift(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	slot := kv.NewMemory()

	// v1 lines: gochujang is KES 1,200 now, a 20% move from its snapshot;
	// kimchi moved 6.25%, under the threshold.
	require.NoError(t, slot.Set(ctx, "misha_foodstuffs_cart_v2",
		`[{"productId":"gochujang","quantity":2,"priceSnapshot":"1000"},`+
			`{"id":"kimchi-classic","quantity":1,"priceSnapshot":"800"}]`))

	p, buf := loggingPersister(t, slot)
	items, err := p.Load(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	logs := buf.String()
	assert.Equal(t, 1, strings.Count(logs, "price changed more than 10%"))
	assert.Contains(t, logs, `"product_id":"gochujang"`)
	assert.NotContains(t, logs, `"product_id":"kimchi-classic"`)
}

func TestPriceDriftThresholdAndBadSnapshots(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p, buf := loggingPersister(t, kv.NewMemory())

	product := catalog.Product{ID: "gochujang", Amount: decimal.NewFromInt(110)}

	p.warnPriceDrift(ctx, product, "100")
	assert.Empty(t, buf.String(), "a move of exactly ten percent stays quiet")

	p.warnPriceDrift(ctx, product, "99")
	assert.Contains(t, buf.String(), "price changed more than 10%")

	buf.Reset()
	p.warnPriceDrift(ctx, product, "0")
	p.warnPriceDrift(ctx, product, "oops")
	p.warnPriceDrift(ctx, product, " ")
	assert.Empty(t, buf.String(), "zero or unparseable snapshots stay quiet")
}

func TestLastSavedAtSafeUnderConcurrentSaves(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	p := testPersister(t, kv.NewMemory(), fixedClock(1))

	store := testStore(t)
	store.AddItem(ctx, "ramen-shin", nil)
	items := store.Items()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = p.Save(ctx, items)
				_ = p.LastSavedAt()
			}
		}()
	}
	wg.Wait()
	require.NotNil(t, p.LastSavedAt())
}
