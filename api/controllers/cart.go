package controllers

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mishafoods/storefront-backend/api/middleware"
	"github.com/mishafoods/storefront-backend/api/responses"
	"github.com/mishafoods/storefront-backend/api/validators"
	cartsvc "github.com/mishafoods/storefront-backend/internal/cart"
	pkgerrors "github.com/mishafoods/storefront-backend/pkg/errors"
	"github.com/mishafoods/storefront-backend/pkg/logger"
	"github.com/mishafoods/storefront-backend/pkg/money"
)

// maxImportBody bounds import payloads; an export document is a few KB.
const maxImportBody = 1 << 20

// CartEngine is the per-session cart surface the handlers drive.
type CartEngine interface {
	Items() []cartsvc.Item
	Summary() cartsvc.Summary
	Stats() cartsvc.Stats
	Add(ctx context.Context, id string, quantity *int) (bool, error)
	UpdateQuantity(ctx context.Context, id string, quantity int) (bool, error)
	Remove(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context, clearBackups bool) error
	Import(ctx context.Context, raw []byte) (cartsvc.ImportResult, error)
	Export(ctx context.Context, notes string) cartsvc.ExportDocument
}

// EngineProvider resolves the engine for a browsing session.
type EngineProvider func(ctx context.Context, session string) (CartEngine, error)

func resolveEngine(r *http.Request, provider EngineProvider) (CartEngine, error) {
	if provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable")
	}
	return provider(r.Context(), middleware.SessionIDFromContext(r.Context()))
}

// CartFetch returns the cart lines with the recomputed summary.
func CartFetch(provider EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := resolveEngine(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(engine))
	}
}

// CartAddItem adds a product to the cart, optionally at an explicit
// quantity.
func CartAddItem(provider EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := resolveEngine(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		added, err := engine.Add(r.Context(), payload.ID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !added {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(engine))
	}
}

// CartUpdateItem sets a line's quantity; zero and below removes the line.
func CartUpdateItem(provider EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := resolveEngine(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		productID := chi.URLParam(r, "productId")

		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := engine.UpdateQuantity(r.Context(), productID, payload.Quantity)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !updated && payload.Quantity >= cartsvc.MinQuantity {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart"))
			return
		}
		responses.WriteSuccess(w, newCartResponse(engine))
	}
}

// CartRemoveItem deletes a line; removing an absent line still succeeds.
func CartRemoveItem(provider EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := resolveEngine(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if _, err := engine.Remove(r.Context(), chi.URLParam(r, "productId")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(engine))
	}
}

// CartClear empties the cart. ?backups=true drops the backup slots too.
func CartClear(provider EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := resolveEngine(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		clearBackups := r.URL.Query().Get("backups") == "true"
		if err := engine.Clear(r.Context(), clearBackups); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newCartResponse(engine))
	}
}

// CartSummary returns the order summary alone.
func CartSummary(provider EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := resolveEngine(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, newSummaryResponse(engine.Summary()))
	}
}

// CartStats returns the cart statistics block.
func CartStats(provider EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := resolveEngine(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Stats())
	}
}

// CartExport returns the portable cart document.
func CartExport(provider EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := resolveEngine(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, engine.Export(r.Context(), r.URL.Query().Get("notes")))
	}
}

// CartImport merges an export document posted as the raw request body.
func CartImport(provider EngineProvider, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		engine, err := resolveEngine(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		raw, err := io.ReadAll(io.LimitReader(r.Body, maxImportBody))
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Wrap(pkgerrors.CodeValidation, err, "reading import body"))
			return
		}

		result, err := engine.Import(r.Context(), raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if !result.Success {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, result.Message))
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type addItemRequest struct {
	ID       string `json:"id" validate:"required"`
	Quantity *int   `json:"quantity,omitempty"`
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type cartItemResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Price       string    `json:"price"`
	Size        string    `json:"size,omitempty"`
	Quantity    int       `json:"quantity"`
	Total       string    `json:"total"`
	AddedAt     time.Time `json:"addedAt"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type summaryResponse struct {
	TotalItems         int    `json:"totalItems"`
	Subtotal           string `json:"subtotal"`
	DiscountPercent    int    `json:"discountPercent"`
	DiscountAmount     string `json:"discountAmount"`
	DiscountedSubtotal string `json:"discountedSubtotal"`
	DeliveryFee        string `json:"deliveryFee"`
	FinalTotal         string `json:"finalTotal"`
}

type cartResponse struct {
	Items   []cartItemResponse `json:"items"`
	Summary summaryResponse    `json:"summary"`
}

func newCartResponse(engine CartEngine) cartResponse {
	items := engine.Items()
	resp := cartResponse{
		Items:   make([]cartItemResponse, 0, len(items)),
		Summary: newSummaryResponse(engine.Summary()),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, cartItemResponse{
			ID:          item.ID,
			Name:        item.Name,
			Category:    string(item.Category),
			Price:       item.Price,
			Size:        item.Size,
			Quantity:    item.Quantity,
			Total:       money.Format(item.Total()),
			AddedAt:     item.AddedAt,
			LastUpdated: item.LastUpdated,
		})
	}
	return resp
}

func newSummaryResponse(summary cartsvc.Summary) summaryResponse {
	return summaryResponse{
		TotalItems:         summary.TotalItems,
		Subtotal:           money.Format(summary.Subtotal),
		DiscountPercent:    summary.DiscountPercent,
		DiscountAmount:     money.Format(summary.DiscountAmount),
		DiscountedSubtotal: money.Format(summary.DiscountedSubtotal),
		DeliveryFee:        money.Format(summary.DeliveryFee),
		FinalTotal:         money.Format(summary.FinalTotal),
	}
}
