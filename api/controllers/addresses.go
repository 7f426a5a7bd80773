package controllers

import (
	"net/http"

	"github.com/crumbhouse/bakery-backend/api/responses"
	"github.com/crumbhouse/bakery-backend/api/validators"
	"github.com/crumbhouse/bakery-backend/internal/address"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
	"github.com/crumbhouse/bakery-backend/pkg/logger"
)

// AddressAutocomplete proxies place suggestions so the maps key stays server-side.
func AddressAutocomplete(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "address service")
			return
		}

		query := validators.SanitizeString(r.URL.Query().Get("q"), 200)
		if query == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "q is required"))
			return
		}

		suggestions, err := svc.Suggest(r.Context(), address.SuggestRequest{
			Query:    query,
			Language: validators.SanitizeString(r.URL.Query().Get("lang"), 10),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, suggestions)
	}
}

func AddressList(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "address service")
			return
		}
		userID, _, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		list, err := svc.List(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AddressCreate(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "address service")
			return
		}
		userID, _, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var body address.CreateAddressInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), userID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AddressDetail(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "address service")
			return
		}
		userID, _, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "addressId", "address id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		found, err := svc.Get(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, found)
	}
}

// AddressRefreshDistance recomputes the route distance for a saved address.
func AddressRefreshDistance(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "address service")
			return
		}
		userID, _, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "addressId", "address id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		refreshed, err := svc.RefreshDistance(r.Context(), userID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, refreshed)
	}
}

func AddressDelete(svc address.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "address service")
			return
		}
		userID, _, ok := requireActor(w, r, logg)
		if !ok {
			return
		}
		id, err := validators.ParseUUIDParam(r, "addressId", "address id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
