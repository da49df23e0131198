package cart

import (
	"context"
	"encoding/json"
	"time"
)

// ExportSource identifies documents produced by this engine.
const ExportSource = "Misha Foodstuffs Cart Export"

// ExportDocument is the self-describing cart snapshot handed to the user.
// Money fields are plain numbers: the document crosses into spreadsheets
// and other tooling that will not parse decimal strings.
type ExportDocument struct {
	SchemaVersion string        `json:"schemaVersion"`
	ExportedAt    string        `json:"exportedAt"`
	Source        string        `json:"source"`
	Items         []ExportLine  `json:"items"`
	Summary       ExportSummary `json:"summary"`
	Notes         string        `json:"notes,omitempty"`
}

// ExportLine is one cart line in the export document.
type ExportLine struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Quantity int     `json:"quantity"`
	Price    string  `json:"price"`
	Size     string  `json:"size,omitempty"`
	Total    float64 `json:"total"`
}

// ExportSummary mirrors the order summary with numeric money fields.
type ExportSummary struct {
	TotalItems         int     `json:"totalItems"`
	Subtotal           float64 `json:"subtotal"`
	DiscountPercent    int     `json:"discountPercent"`
	DiscountAmount     float64 `json:"discountAmount"`
	DiscountedSubtotal float64 `json:"discountedSubtotal"`
	DeliveryFee        float64 `json:"deliveryFee"`
	FinalTotal         float64 `json:"finalTotal"`
}

// ImportResult reports the outcome of an import attempt. Message is safe
// to show verbatim.
type ImportResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	ImportedCount int    `json:"importedCount"`
}

// Export snapshots the cart into a document.
func Export(items []Item, summary Summary, now time.Time, notes string) ExportDocument {
	doc := ExportDocument{
		SchemaVersion: SchemaVersion,
		ExportedAt:    now.UTC().Format(time.RFC3339),
		Source:        ExportSource,
		Items:         make([]ExportLine, 0, len(items)),
		Notes:         notes,
	}
	for _, item := range items {
		doc.Items = append(doc.Items, ExportLine{
			ID:       item.ID,
			Name:     item.Name,
			Category: string(item.Category),
			Quantity: item.Quantity,
			Price:    item.Price,
			Size:     item.Size,
			Total:    item.Total().InexactFloat64(),
		})
	}
	doc.Summary = ExportSummary{
		TotalItems:         summary.TotalItems,
		Subtotal:           summary.Subtotal.InexactFloat64(),
		DiscountPercent:    summary.DiscountPercent,
		DiscountAmount:     summary.DiscountAmount.InexactFloat64(),
		DiscountedSubtotal: summary.DiscountedSubtotal.InexactFloat64(),
		DeliveryFee:        summary.DeliveryFee.InexactFloat64(),
		FinalTotal:         summary.FinalTotal.InexactFloat64(),
	}
	return doc
}

// Import parses a document and merges its lines into the store. A
// malformed document fails as a whole, individual lines that do not
// resolve against the catalog are dropped, and the merge keeps the larger
// quantity per id.
func Import(ctx context.Context, store *Store, raw []byte) ImportResult {
	var doc struct {
		Items []struct {
			ID        string `json:"id"`
			ProductID string `json:"productId"`
			Quantity  int    `json:"quantity"`
		} `json:"items"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Items == nil {
		return ImportResult{Message: "Invalid cart format"}
	}

	incoming := make([]Item, 0, len(doc.Items))
	for _, line := range doc.Items {
		id := line.ID
		if id == "" {
			id = line.ProductID
		}
		product, ok := store.catalog.GetByID(id)
		if !ok {
			continue
		}
		incoming = append(incoming, Item{
			Product:  product,
			Quantity: clampQuantity(line.Quantity),
		})
	}
	if len(incoming) == 0 {
		return ImportResult{Message: "No valid products found in import"}
	}

	merged := store.MergeItems(ctx, incoming)
	return ImportResult{
		Success:       true,
		Message:       "Cart imported",
		ImportedCount: merged,
	}
}
