package controllers

import (
	"net/http"

	"github.com/brickline/estimator-backend/api/responses"
	"github.com/brickline/estimator-backend/api/validators"
	"github.com/brickline/estimator-backend/internal/takeoff"
	"github.com/brickline/estimator-backend/pkg/logger"
)

type ingestExtractionRequest struct {
	Sections []takeoff.ExtractedSection `json:"sections" validate:"required,min=1"`
}

type assignNormRequest struct {
	NormCode string `json:"norm_code"`
}

// TakeoffIngest accepts the AI extraction payload and loads it into the
// takeoff tree, tolerating bad rows.
func TakeoffIngest(svc takeoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req ingestExtractionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.IngestExtraction(r.Context(), projectID, req.Sections)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func TakeoffList(svc takeoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID, err := uuidParam(r, "projectID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items, err := svc.List(r.Context(), projectID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

// TakeoffAssignNorm maps (or unmaps, with an empty code) a takeoff item to a
// norm code.
func TakeoffAssignNorm(svc takeoff.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID, err := uuidParam(r, "itemID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req assignNormRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.AssignNorm(r.Context(), itemID, req.NormCode); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}
