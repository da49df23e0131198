package controllers

import (
	"net/http"

	"github.com/mishafoods/storefront-backend/api/responses"
	"github.com/mishafoods/storefront-backend/internal/checkout"
	pkgerrors "github.com/mishafoods/storefront-backend/pkg/errors"
	"github.com/mishafoods/storefront-backend/pkg/logger"
)

// CartCheckout renders the WhatsApp handoff for the current cart.
func CartCheckout(provider EngineProvider, builder *checkout.Builder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if builder == nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeInternal, "checkout unavailable"))
			return
		}

		engine, err := resolveEngine(r, provider)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		handoff, err := builder.Build(engine.Items(), engine.Summary())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, handoff)
	}
}
