package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mishafoods/storefront-backend/internal/catalog"
)

func testControllerCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.New([]catalog.Product{
		{ID: "kimchi-classic", Name: "Classic Kimchi", Category: catalog.CategoryKimchi, Price: "KES 850", Size: "500g"},
		{ID: "ramen-shin", Name: "Shin Ramyun", Category: catalog.CategoryRamen, Price: "KES 250", Size: "120g"},
	})
	require.NoError(t, err)
	return cat
}

func TestProductsListFiltersByCategory(t *testing.T) {
	handler := ProductsList(testControllerCatalog(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=ramen", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)

	var envelope struct {
		Data []productResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "ramen-shin", envelope.Data[0].ID)
	assert.Equal(t, "Ramen & Instant Noodles", envelope.Data[0].CategoryMsg)
}

func TestProductsListUnknownCategory(t *testing.T) {
	handler := ProductsList(testControllerCatalog(t), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products?category=nope", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestProductsGetNotFound(t *testing.T) {
	handler := ProductsGet(testControllerCatalog(t), nil)

	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("productId", "nope")
	req := httptest.NewRequest(http.MethodGet, "/api/v1/products/nope", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}
