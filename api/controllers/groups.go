package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/openlearnhq/learning-paths/api/responses"
	"github.com/openlearnhq/learning-paths/api/validators"
	"github.com/openlearnhq/learning-paths/internal/groupsync"
	"github.com/openlearnhq/learning-paths/pkg/enums"
	pkgerrors "github.com/openlearnhq/learning-paths/pkg/errors"
	"github.com/openlearnhq/learning-paths/pkg/logger"
)

// ListGroups returns every group with its member count.
func ListGroups(svc groupsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups, err := svc.ListGroups(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, groups)
	}
}

type membershipRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// AddGroupMember adds a user to a group and runs its auto-enroll assignments.
func AddGroupMember(svc groupsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := uuid.Parse(chi.URLParam(r, "groupId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group id"))
			return
		}

		var payload membershipRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := uuid.Parse(strings.TrimSpace(payload.UserID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user_id"))
			return
		}

		if err := svc.AddMember(r.Context(), groupID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"status": "member added"})
	}
}

// RemoveGroupMember removes a user from a group and unenrolls them from the
// group's course assignments.
func RemoveGroupMember(svc groupsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groupID, err := uuid.Parse(chi.URLParam(r, "groupId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group id"))
			return
		}
		userID, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
			return
		}

		if err := svc.RemoveMember(r.Context(), groupID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "member removed"})
	}
}

type createAssignmentRequest struct {
	GroupID        string `json:"group_id" validate:"required"`
	CourseKey      string `json:"course_key" validate:"required"`
	EnrollmentMode string `json:"enrollment_mode"`
	AutoEnroll     *bool  `json:"auto_enroll"`
	Reason         string `json:"reason"`
	ActorID        string `json:"actor_id"`
}

func (r createAssignmentRequest) toInput() (groupsync.CreateAssignmentInput, error) {
	groupID, err := uuid.Parse(strings.TrimSpace(r.GroupID))
	if err != nil {
		return groupsync.CreateAssignmentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group_id")
	}
	in := groupsync.CreateAssignmentInput{
		GroupID:        groupID,
		CourseKey:      strings.TrimSpace(r.CourseKey),
		EnrollmentMode: enums.EnrollmentMode(strings.TrimSpace(r.EnrollmentMode)),
		AutoEnroll:     r.AutoEnroll,
		Reason:         strings.TrimSpace(r.Reason),
	}
	if actor := strings.TrimSpace(r.ActorID); actor != "" {
		actorID, err := uuid.Parse(actor)
		if err != nil {
			return groupsync.CreateAssignmentInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor_id")
		}
		in.ActorID = &actorID
	}
	return in, nil
}

// CreateAssignment binds a group to a course.
func CreateAssignment(svc groupsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createAssignmentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		in, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		row, err := svc.CreateAssignment(r.Context(), in)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, row)
	}
}

// ListAssignments returns every group-course assignment with group names
// resolved.
func ListAssignments(svc groupsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := svc.ListAssignments(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rows)
	}
}

type deleteAssignmentRequest struct {
	ActorID string `json:"actor_id"`
}

// DeleteAssignment removes a group-course assignment and unenrolls the
// group's members from the course.
func DeleteAssignment(svc groupsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID, err := uuid.Parse(chi.URLParam(r, "assignmentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assignment id"))
			return
		}

		var actorID *uuid.UUID
		if r.ContentLength > 0 {
			var payload deleteAssignmentRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if actor := strings.TrimSpace(payload.ActorID); actor != "" {
				id, err := uuid.Parse(actor)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor_id"))
					return
				}
				actorID = &id
			}
		}

		if err := svc.DeleteAssignment(r.Context(), assignmentID, actorID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "assignment deleted"})
	}
}

type groupAuditResponse struct {
	ID           uuid.UUID  `json:"id"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	Email        string     `json:"email"`
	Status       string     `json:"status"`
	ErrorMessage string     `json:"error_message,omitempty"`
	Reason       string     `json:"reason"`
	Created      time.Time  `json:"created"`
}

// AssignmentHistory returns the per-user enrollment audit trail for one
// assignment.
func AssignmentHistory(svc groupsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assignmentID, err := uuid.Parse(chi.URLParam(r, "assignmentId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assignment id"))
			return
		}

		rows, err := svc.AssignmentHistory(r.Context(), assignmentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history := make([]groupAuditResponse, 0, len(rows))
		for _, row := range rows {
			history = append(history, groupAuditResponse{
				ID:           row.ID,
				UserID:       row.UserID,
				Email:        row.Email,
				Status:       string(row.Status),
				ErrorMessage: row.ErrorMessage,
				Reason:       row.Reason,
				Created:      row.CreatedAt,
			})
		}
		responses.WriteSuccess(w, history)
	}
}

type bulkGroupEnrollRequest struct {
	GroupIDs          []string `json:"group_ids" validate:"required,min=1"`
	CourseKeys        []string `json:"course_keys" validate:"required,min=1"`
	EnrollmentMode    string   `json:"enrollment_mode"`
	CreateAssignments bool     `json:"create_assignments"`
	Reason            string   `json:"reason"`
	ActorID           string   `json:"actor_id"`
}

func (r bulkGroupEnrollRequest) toRequest() (groupsync.BulkGroupEnrollRequest, error) {
	req := groupsync.BulkGroupEnrollRequest{
		CourseKeys:        r.CourseKeys,
		EnrollmentMode:    enums.EnrollmentMode(strings.TrimSpace(r.EnrollmentMode)),
		CreateAssignments: r.CreateAssignments,
		Reason:            strings.TrimSpace(r.Reason),
	}
	for _, raw := range r.GroupIDs {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			return groupsync.BulkGroupEnrollRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid group id")
		}
		req.GroupIDs = append(req.GroupIDs, id)
	}
	if actor := strings.TrimSpace(r.ActorID); actor != "" {
		actorID, err := uuid.Parse(actor)
		if err != nil {
			return groupsync.BulkGroupEnrollRequest{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor_id")
		}
		req.ActorID = &actorID
	}
	return req, nil
}

// BulkEnrollGroups enrolls the members of the named groups into the named
// courses.
func BulkEnrollGroups(svc groupsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload bulkGroupEnrollRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := payload.toRequest()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.BulkEnrollGroups(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type syncAssignmentsRequest struct {
	AssignmentIDs []string `json:"assignment_ids"`
	ActorID       string   `json:"actor_id"`
}

// SyncAssignments reconciles group memberships against course enrollments.
func SyncAssignments(svc groupsync.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req := groupsync.SyncRequest{}
		if r.ContentLength > 0 {
			var payload syncAssignmentsRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			for _, raw := range payload.AssignmentIDs {
				id, err := uuid.Parse(strings.TrimSpace(raw))
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid assignment id"))
					return
				}
				req.AssignmentIDs = append(req.AssignmentIDs, id)
			}
			if actor := strings.TrimSpace(payload.ActorID); actor != "" {
				actorID, err := uuid.Parse(actor)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid actor_id"))
					return
				}
				req.ActorID = &actorID
			}
		}

		result, err := svc.SyncAssignments(r.Context(), req)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
