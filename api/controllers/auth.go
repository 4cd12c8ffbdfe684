package controllers

import (
	"net/http"

	"github.com/contentforge/contentforge-backend/api/middleware"
	"github.com/contentforge/contentforge-backend/api/responses"
	"github.com/contentforge/contentforge-backend/api/validators"
	"github.com/contentforge/contentforge-backend/internal/auth"
	"github.com/contentforge/contentforge-backend/pkg/logger"
)

// AuthLogin exchanges credentials for a token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Login(r.Context(), body, middleware.ClientIP(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
