package cards

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/predictionlabs/prediction-oracle/pkg/app/errors"
	apphttp "github.com/predictionlabs/prediction-oracle/pkg/app/http"
)

// HTTP handles HTTP requests for the cards API
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the cards routes on the given router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Get("/card/list", apphttp.HandleError(h.list))
	r.Get("/card/details", apphttp.HandleError(h.details))
}

// standardResponse is the envelope every cards endpoint wraps its payload in.
type standardResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	req, err := parseListRequest(r)
	if err != nil {
		return err
	}

	resp, err := h.service.ListCards(r.Context(), req)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, resp)
}

func (h *HTTP) details(w http.ResponseWriter, r *http.Request) error {
	id := r.URL.Query().Get("id")
	if id == "" {
		return apperrors.BadRequestError(nil, "id is required")
	}

	resp, err := h.service.CardDetails(r.Context(), id)
	if err != nil {
		return err
	}

	return writeJSON(w, http.StatusOK, resp)
}

// parseListRequest validates the list query parameters. Absent parameters
// fall back to the service defaults; present but invalid ones reject the
// request.
func parseListRequest(r *http.Request) (ListRequest, error) {
	q := r.URL.Query()
	var req ListRequest

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			return ListRequest{}, apperrors.BadRequestError(err, "page must be an integer greater than or equal to 1")
		}
		req.Page = page
	}

	if raw := q.Get("pageSize"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil || size < 1 || size > maxPageSize {
			return ListRequest{}, apperrors.BadRequestError(err, "pageSize must be an integer between 1 and 100")
		}
		req.PageSize = size
	}

	if raw := q.Get("tagId"); raw != "" {
		if _, err := strconv.Atoi(raw); err != nil {
			return ListRequest{}, apperrors.BadRequestError(err, "tagId must be an integer")
		}
		req.TagID = raw
	}

	if raw := q.Get("sortBy"); raw != "" {
		if raw != SortByVolume && raw != SortByLiquidity {
			return ListRequest{}, apperrors.BadRequestError(nil, "sortBy must be volume or liquidity")
		}
		req.SortBy = raw
	}

	if raw := q.Get("order"); raw != "" {
		if raw != OrderAsc && raw != OrderDesc {
			return ListRequest{}, apperrors.BadRequestError(nil, "order must be asc or desc")
		}
		req.Order = raw
	}

	return req, nil
}

func writeJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(standardResponse{
		Code:    status,
		Message: "success",
		Data:    data,
	})
}
