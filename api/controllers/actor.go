package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/crumbhouse/bakery-backend/api/middleware"
	"github.com/crumbhouse/bakery-backend/api/responses"
	"github.com/crumbhouse/bakery-backend/api/validators"
	"github.com/crumbhouse/bakery-backend/pkg/enums"
	pkgerrors "github.com/crumbhouse/bakery-backend/pkg/errors"
	"github.com/crumbhouse/bakery-backend/pkg/logger"
	"github.com/crumbhouse/bakery-backend/pkg/pagination"
)

// requireActor writes a 401 and reports false when the request carries no usable identity.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, enums.UserRole, bool) {
	id, role, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, "", false
	}
	return id, role, true
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: validators.SanitizeString(r.URL.Query().Get("cursor"), 512),
	}, nil
}

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" unavailable"))
}
