package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openlearnhq/learning-paths/api/responses"
	"github.com/openlearnhq/learning-paths/api/validators"
	"github.com/openlearnhq/learning-paths/internal/paths"
	"github.com/openlearnhq/learning-paths/pkg/db/models"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	pkgerrors "github.com/openlearnhq/learning-paths/pkg/errors"
	"github.com/openlearnhq/learning-paths/pkg/logger"
)

type createPathRequest struct {
	Key            string `json:"key" validate:"required"`
	DisplayName    string `json:"display_name" validate:"required"`
	Subtitle       string `json:"subtitle"`
	Description    string `json:"description"`
	Level          string `json:"level"`
	Duration       string `json:"duration"`
	TimeCommitment string `json:"time_commitment"`
	Sequential     bool   `json:"sequential"`
	InviteOnly     *bool  `json:"invite_only"`
}

func (r createPathRequest) toInput() paths.CreatePathInput {
	return paths.CreatePathInput{
		Key:            strings.TrimSpace(r.Key),
		DisplayName:    strings.TrimSpace(r.DisplayName),
		Subtitle:       strings.TrimSpace(r.Subtitle),
		Description:    strings.TrimSpace(r.Description),
		Level:          enums.PathLevel(strings.TrimSpace(r.Level)),
		Duration:       strings.TrimSpace(r.Duration),
		TimeCommitment: strings.TrimSpace(r.TimeCommitment),
		Sequential:     r.Sequential,
		InviteOnly:     r.InviteOnly,
	}
}

type pathResponse struct {
	ID             uuid.UUID       `json:"id"`
	Key            string          `json:"key"`
	DisplayName    string          `json:"display_name"`
	Subtitle       string          `json:"subtitle"`
	Description    string          `json:"description"`
	Level          enums.PathLevel `json:"level"`
	Duration       string          `json:"duration"`
	TimeCommitment string          `json:"time_commitment"`
	Sequential     bool            `json:"sequential"`
	InviteOnly     bool            `json:"invite_only"`
	Created        time.Time       `json:"created"`
}

func toPathResponse(row *models.LearningPath) pathResponse {
	return pathResponse{
		ID:             row.ID,
		Key:            row.Key,
		DisplayName:    row.DisplayName,
		Subtitle:       row.Subtitle,
		Description:    row.Description,
		Level:          row.Level,
		Duration:       row.Duration,
		TimeCommitment: row.TimeCommitment,
		Sequential:     row.Sequential,
		InviteOnly:     row.InviteOnly,
		Created:        row.CreatedAt,
	}
}

// CreatePath registers a new learning path in the catalog.
func CreatePath(svc paths.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createPathRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.CreatePath(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, toPathResponse(row))
	}
}

// GetPath looks up one learning path by its key.
func GetPath(svc paths.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "pathKey")

		row, err := svc.GetPath(r.Context(), key)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, toPathResponse(row))
	}
}

// VisiblePaths returns the catalog as one user sees it: enrolled paths first,
// invite-only paths hidden unless enrolled, everything for staff.
func VisiblePaths(svc paths.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("user_id")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
			return
		}

		rows, err := svc.VisiblePaths(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type addStepRequest struct {
	CourseKey string  `json:"course_key" validate:"required"`
	Position  *int    `json:"position"`
	Weight    float64 `json:"weight"`
}

// AddStep appends a course step to a learning path.
func AddStep(svc paths.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathID, err := uuid.Parse(chi.URLParam(r, "pathId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid learning path id"))
			return
		}

		var payload addStepRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.AddStep(r.Context(), pathID, paths.CreateStepInput{
			CourseKey: strings.TrimSpace(payload.CourseKey),
			Position:  payload.Position,
			Weight:    payload.Weight,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, paths.StepDetail{
			ID:        row.ID,
			CourseKey: row.CourseKey,
			Position:  row.Position,
			Weight:    row.Weight,
		})
	}
}

// ListSteps returns the ordered course steps of a path.
func ListSteps(svc paths.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathID, err := uuid.Parse(chi.URLParam(r, "pathId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid learning path id"))
			return
		}

		rows, err := svc.Steps(r.Context(), pathID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

// AggregateGrade computes one user's weighted grade across a path.
func AggregateGrade(svc paths.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathID, err := uuid.Parse(chi.URLParam(r, "pathId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid learning path id"))
			return
		}
		userID, err := uuid.Parse(strings.TrimSpace(r.URL.Query().Get("user_id")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
			return
		}

		grade, err := svc.AggregateGrade(r.Context(), userID, pathID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, grade)
	}
}
