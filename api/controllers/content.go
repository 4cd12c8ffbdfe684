package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/contentforge/contentforge-backend/api/responses"
	"github.com/contentforge/contentforge-backend/api/validators"
	"github.com/contentforge/contentforge-backend/internal/content"
	"github.com/contentforge/contentforge-backend/pkg/db/models"
	"github.com/contentforge/contentforge-backend/pkg/enums"
	pkgerrors "github.com/contentforge/contentforge-backend/pkg/errors"
	"github.com/contentforge/contentforge-backend/pkg/logger"
	"github.com/contentforge/contentforge-backend/pkg/pagination"
)

type ContentService interface {
	Get(ctx context.Context, userID, contentID uuid.UUID) (*models.Content, error)
	List(ctx context.Context, userID uuid.UUID, filters content.ListFilters, page pagination.Params) (*content.ListResult, error)
	Update(ctx context.Context, userID, contentID uuid.UUID, req content.UpdateRequest) (*models.Content, error)
	ToggleFavorite(ctx context.Context, userID, contentID uuid.UUID) (*models.Content, error)
	Delete(ctx context.Context, userID, contentID uuid.UUID) error
}

// ContentList pages through the caller's saved library.
func ContentList(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := userIDFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := content.ListFilters{
			FavoriteOnly: r.URL.Query().Get("favorite_only") == "true",
			Query:        validators.SanitizeString(r.URL.Query().Get("q"), 256),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("type")); raw != "" {
			contentType, parseErr := enums.ParseContentType(raw)
			if parseErr != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, parseErr, "invalid content type"))
				return
			}
			filters.Type = &contentType
		}

		result, err := svc.List(r.Context(), userID, filters, pagination.Params{
			Limit:  limit,
			Cursor: r.URL.Query().Get("cursor"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ContentGet loads one owned item.
func ContentGet(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, contentID, err := contentRequestIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Get(r.Context(), userID, contentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

// ContentUpdate applies a partial edit to an owned item.
func ContentUpdate(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, contentID, err := contentRequestIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body content.UpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Update(r.Context(), userID, contentID, body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

// ContentToggleFavorite flips the favorite bit on an owned item.
func ContentToggleFavorite(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, contentID, err := contentRequestIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.ToggleFavorite(r.Context(), userID, contentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, row)
	}
}

// ContentDelete removes an owned item.
func ContentDelete(svc ContentService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, contentID, err := contentRequestIDs(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), userID, contentID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}

func contentRequestIDs(r *http.Request) (uuid.UUID, uuid.UUID, error) {
	userID, err := userIDFromRequest(r)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	contentID, err := urlParamUUID(r, "contentId")
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, contentID, nil
}
