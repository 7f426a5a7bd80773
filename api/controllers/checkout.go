package controllers

import (
	"net/http"

	"github.com/crumbhouse/bakery-backend/api/responses"
	"github.com/crumbhouse/bakery-backend/api/validators"
	"github.com/crumbhouse/bakery-backend/internal/checkout"
	"github.com/crumbhouse/bakery-backend/pkg/logger"
)

// CheckoutQuote prices a cart against a saved address without persisting anything.
func CheckoutQuote(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "checkout service")
			return
		}
		userID, _, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body checkout.Request
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quote)
	}
}

// Checkout places the order. Replays are answered by the idempotency middleware.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "checkout service")
			return
		}
		userID, _, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body checkout.Request
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		confirmation, err := svc.Confirm(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, confirmation)
	}
}
