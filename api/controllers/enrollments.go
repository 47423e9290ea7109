package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openlearnhq/learning-paths/api/responses"
	"github.com/openlearnhq/learning-paths/api/validators"
	"github.com/openlearnhq/learning-paths/internal/enrollments"
	"github.com/openlearnhq/learning-paths/internal/paths"
	pkgerrors "github.com/openlearnhq/learning-paths/pkg/errors"
	"github.com/openlearnhq/learning-paths/pkg/logger"
)

type enrollRequest struct {
	LearningPathKey string `json:"learning_path_key" validate:"required"`
	UserID          string `json:"user_id" validate:"required"`
	ActorID         string `json:"actor_id"`
	Reason          string `json:"reason"`
	Org             string `json:"org"`
	Role            string `json:"role"`
}

func (r enrollRequest) toInput() (uuid.UUID, enrollments.TransitionInput, error) {
	userID, err := uuid.Parse(strings.TrimSpace(r.UserID))
	if err != nil {
		return uuid.Nil, enrollments.TransitionInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id")
	}
	in := enrollments.TransitionInput{
		Reason: strings.TrimSpace(r.Reason),
		Org:    strings.TrimSpace(r.Org),
		Role:   strings.TrimSpace(r.Role),
	}
	if actor := strings.TrimSpace(r.ActorID); actor != "" {
		actorID, err := uuid.Parse(actor)
		if err != nil {
			return uuid.Nil, enrollments.TransitionInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor_id")
		}
		in.ActorID = &actorID
	}
	return userID, in, nil
}

type enrollmentResponse struct {
	ID              uuid.UUID `json:"id"`
	UserID          uuid.UUID `json:"user_id"`
	LearningPathID  uuid.UUID `json:"learning_path_id"`
	LearningPathKey string    `json:"learning_path_key"`
	IsActive        bool      `json:"is_active"`
	Created         time.Time `json:"created"`
}

// Enroll activates a single user's enrollment in a learning path.
func Enroll(svc enrollments.Service, pathsSvc paths.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload enrollRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, in, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		path, err := pathsSvc.GetPath(r.Context(), strings.TrimSpace(payload.LearningPathKey))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, created, err := svc.Enroll(r.Context(), path.ID, userID, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status := http.StatusOK
		if created {
			status = http.StatusCreated
		}
		responses.WriteSuccessStatus(w, status, enrollmentResponse{
			ID:              row.ID,
			UserID:          row.UserID,
			LearningPathID:  row.LearningPathID,
			LearningPathKey: path.Key,
			IsActive:        row.IsActive,
			Created:         row.CreatedAt,
		})
	}
}

// Unenroll deactivates a single user's enrollment in a learning path.
func Unenroll(svc enrollments.Service, pathsSvc paths.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload enrollRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, in, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		path, err := pathsSvc.GetPath(r.Context(), strings.TrimSpace(payload.LearningPathKey))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.Unenroll(r.Context(), path.ID, userID, in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, enrollmentResponse{
			ID:              row.ID,
			UserID:          row.UserID,
			LearningPathID:  row.LearningPathID,
			LearningPathKey: path.Key,
			IsActive:        row.IsActive,
			Created:         row.CreatedAt,
		})
	}
}

type bulkRequest struct {
	LearningPaths string `json:"learning_paths" validate:"required"`
	Emails        string `json:"emails"`
	GroupIDs      string `json:"group_ids"`
	Reason        string `json:"reason"`
	Org           string `json:"org"`
	Role          string `json:"role"`
	ActorID       string `json:"actor_id"`
}

func (r bulkRequest) toRequest() (enrollments.BulkRequest, error) {
	req := enrollments.BulkRequest{
		LearningPaths: r.LearningPaths,
		Emails:        r.Emails,
		GroupIDs:      r.GroupIDs,
		Reason:        strings.TrimSpace(r.Reason),
		Org:           strings.TrimSpace(r.Org),
		Role:          strings.TrimSpace(r.Role),
	}
	if actor := strings.TrimSpace(r.ActorID); actor != "" {
		actorID, err := uuid.Parse(actor)
		if err != nil {
			return enrollments.BulkRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor_id")
		}
		req.ActorID = &actorID
	}
	return req, nil
}

// BulkEnroll enrolls many emails and group members across many paths.
func BulkEnroll(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload bulkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := payload.toRequest()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkEnroll(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// BulkUnenroll deactivates many enrollments and pre-registrations.
func BulkUnenroll(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload bulkRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := payload.toRequest()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkUnenroll(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ListEnrollments returns the enrollment read model, optionally filtered.
func ListEnrollments(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filter := enrollments.ListFilter{
			Username:   strings.TrimSpace(r.URL.Query().Get("username")),
			ActiveOnly: r.URL.Query().Get("active") == "true",
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("user_id")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
				return
			}
			filter.UserID = &id
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("learning_path_id")); raw != "" {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid learning_path_id"))
				return
			}
			filter.PathID = &id
		}

		rows, err := svc.ListEnrollments(r.Context(), filter)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type auditResponse struct {
	ID              uuid.UUID  `json:"id"`
	StateTransition string     `json:"state_transition"`
	ActorID         *uuid.UUID `json:"actor_id,omitempty"`
	Reason          string     `json:"reason"`
	Org             string     `json:"org"`
	Role            string     `json:"role"`
	Created         time.Time  `json:"created"`
}

// EnrollmentHistory returns the full audit ledger of one enrollment.
func EnrollmentHistory(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		enrollmentID, err := uuid.Parse(chi.URLParam(r, "enrollmentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid enrollment id"))
			return
		}

		rows, err := svc.History(r.Context(), enrollmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history := make([]auditResponse, 0, len(rows))
		for _, row := range rows {
			history = append(history, auditResponse{
				ID:              row.ID,
				StateTransition: row.StateTransition.String(),
				ActorID:         row.ActorID,
				Reason:          row.Reason,
				Org:             row.Org,
				Role:            row.Role,
				Created:         row.CreatedAt,
			})
		}
		responses.WriteSuccess(w, history)
	}
}

// AllowedHistory returns the full audit ledger of one pre-registration.
func AllowedHistory(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		allowedID, err := uuid.Parse(chi.URLParam(r, "allowedId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pre-registration id"))
			return
		}

		rows, err := svc.AllowedHistory(r.Context(), allowedID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history := make([]auditResponse, 0, len(rows))
		for _, row := range rows {
			history = append(history, auditResponse{
				ID:              row.ID,
				StateTransition: row.StateTransition.String(),
				ActorID:         row.ActorID,
				Reason:          row.Reason,
				Org:             row.Org,
				Role:            row.Role,
				Created:         row.CreatedAt,
			})
		}
		responses.WriteSuccess(w, history)
	}
}

type courseEnrollRequest struct {
	UserID    string `json:"user_id" validate:"required"`
	CourseKey string `json:"course_key" validate:"required"`
}

// EnrollInPathCourse enrolls a path learner in one of the path's courses.
func EnrollInPathCourse(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pathID, err := uuid.Parse(chi.URLParam(r, "pathId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid learning path id"))
			return
		}

		var payload courseEnrollRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(strings.TrimSpace(payload.UserID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
			return
		}

		if err := svc.EnrollInPathCourse(r.Context(), pathID, userID, strings.TrimSpace(payload.CourseKey)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "enrolled"})
	}
}

// ResolvePendingEnrollments promotes the user's pending pre-registrations.
func ResolvePendingEnrollments(svc enrollments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		created, err := svc.ResolvePending(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"enrollments_created": created})
	}
}
