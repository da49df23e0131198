package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mishafoods/storefront-backend/api/responses"
	"github.com/mishafoods/storefront-backend/internal/catalog"
	pkgerrors "github.com/mishafoods/storefront-backend/pkg/errors"
	"github.com/mishafoods/storefront-backend/pkg/logger"
)

type productResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Category    string `json:"category"`
	CategoryMsg string `json:"categoryLabel"`
	Price       string `json:"price"`
	Size        string `json:"size"`
	Featured    bool   `json:"featured,omitempty"`
	Description string `json:"description,omitempty"`
}

func newProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Category:    string(p.Category),
		CategoryMsg: p.Category.Display(),
		Price:       p.Price,
		Size:        p.Size,
		Featured:    p.Featured,
		Description: p.Description,
	}
}

// ProductsList returns the whole catalog, optionally filtered by category.
func ProductsList(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := catalog.Category(r.URL.Query().Get("category"))
		if filter != "" && !filter.Valid() {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown category"))
			return
		}

		products := cat.List()
		out := make([]productResponse, 0, len(products))
		for _, p := range products {
			if filter != "" && p.Category != filter {
				continue
			}
			out = append(out, newProductResponse(p))
		}
		responses.WriteSuccess(w, out)
	}
}

// ProductsGet returns one catalog record.
func ProductsGet(cat *catalog.Catalog, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, ok := cat.GetByID(chi.URLParam(r, "productId"))
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "product not found"))
			return
		}
		responses.WriteSuccess(w, newProductResponse(product))
	}
}
