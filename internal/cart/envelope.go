package cart

import (
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is the current persisted envelope version.
const SchemaVersion = "2.0"

// envelope is the versioned container written to the durable slot. Only
// the minimal per-line fields are persisted; pricing and display fields
// are re-hydrated from the catalog on load so a catalog price change can
// never desynchronize a saved cart.
type envelope struct {
	SchemaVersion string         `json:"schemaVersion"`
	Timestamp     string         `json:"timestamp"`
	Items         []envelopeItem `json:"items"`
}

type envelopeItem struct {
	ID          string `json:"id"`
	Quantity    int    `json:"quantity"`
	AddedAt     string `json:"addedAt"`
	LastUpdated string `json:"lastUpdated"`
}

func envelopeFrom(items []Item, now time.Time) envelope {
	env := envelope{
		SchemaVersion: SchemaVersion,
		Timestamp:     now.UTC().Format(time.RFC3339),
		Items:         make([]envelopeItem, 0, len(items)),
	}
	for _, item := range items {
		added := item.AddedAt
		if added.IsZero() {
			added = now
		}
		env.Items = append(env.Items, envelopeItem{
			ID:          item.ID,
			Quantity:    item.Quantity,
			AddedAt:     added.UTC().Format(time.RFC3339),
			LastUpdated: now.UTC().Format(time.RFC3339),
		})
	}
	return env
}

// migrateFunc upgrades a raw payload one version step. priceSnapshots
// carries any per-line price strings older schemas stored, so the loader
// can warn about price drift after hydration.
type migrateFunc func(raw []byte) (out envelope, priceSnapshots map[string]string, err error)

// migrations maps a stored schema version to its upgrade step. Versions
// walk the chain until they reach SchemaVersion.
var migrations = map[string]migrateFunc{
	"1.0": migrateV1,
}

// decodeEnvelope parses a stored payload of any supported version into a
// current-version envelope. Unversioned payloads (plain line arrays, or
// objects without a version field) are treated as v1, which is what the
// storefront wrote before envelopes were versioned.
func decodeEnvelope(raw []byte) (envelope, map[string]string, error) {
	var probe struct {
		SchemaVersion string `json:"schemaVersion"`
		Version       string `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		// A top-level array is still a valid legacy cart.
		var lines []json.RawMessage
		if arrErr := json.Unmarshal(raw, &lines); arrErr != nil {
			return envelope{}, nil, fmt.Errorf("parsing envelope: %w", err)
		}
		return migrateV1(raw)
	}

	version := probe.SchemaVersion
	if version == "" {
		version = probe.Version
	}

	if version == SchemaVersion {
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return envelope{}, nil, fmt.Errorf("parsing envelope: %w", err)
		}
		return env, nil, nil
	}

	step, ok := migrations[version]
	if !ok && version != "" {
		return envelope{}, nil, fmt.Errorf("unsupported schema version %q", version)
	}
	if step == nil {
		step = migrateV1
	}
	return step(raw)
}

// migrateV1 upgrades the original unversioned/v1 format: items keyed by
// either "id" or the legacy "productId", optionally carrying a price
// snapshot, wrapped in an object or stored as a bare array.
func migrateV1(raw []byte) (envelope, map[string]string, error) {
	type legacyItem struct {
		ID            string `json:"id"`
		ProductID     string `json:"productId"`
		Quantity      int    `json:"quantity"`
		AddedAt       string `json:"addedAt"`
		LastUpdated   string `json:"lastUpdated"`
		PriceSnapshot string `json:"priceSnapshot"`
	}

	var items []legacyItem
	if err := json.Unmarshal(raw, &items); err != nil {
		var wrapper struct {
			Timestamp string       `json:"timestamp"`
			Items     []legacyItem `json:"items"`
		}
		if err := json.Unmarshal(raw, &wrapper); err != nil {
			return envelope{}, nil, fmt.Errorf("parsing legacy envelope: %w", err)
		}
		items = wrapper.Items
	}

	env := envelope{
		SchemaVersion: SchemaVersion,
		Items:         make([]envelopeItem, 0, len(items)),
	}
	snapshots := map[string]string{}
	for _, item := range items {
		id := item.ID
		if id == "" {
			id = item.ProductID
		}
		if id == "" {
			continue
		}
		env.Items = append(env.Items, envelopeItem{
			ID:          id,
			Quantity:    item.Quantity,
			AddedAt:     item.AddedAt,
			LastUpdated: item.LastUpdated,
		})
		if item.PriceSnapshot != "" {
			snapshots[id] = item.PriceSnapshot
		}
	}
	return env, snapshots, nil
}
