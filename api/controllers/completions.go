package controllers

import (
	"net/http"
	"strings"

	"github.com/openlearnhq/learning-paths/api/responses"
	"github.com/openlearnhq/learning-paths/api/validators"
	"github.com/openlearnhq/learning-paths/internal/milestones"
	"github.com/openlearnhq/learning-paths/pkg/logger"
)

type blockCompletionRequest struct {
	Username  string `json:"username" validate:"required"`
	CourseKey string `json:"course_key" validate:"required"`
}

// BlockCompleted receives a course block completion signal from the host LMS
// and fulfills the path milestone when the learner is eligible.
func BlockCompleted(svc milestones.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload blockCompletionRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := svc.HandleBlockCompletion(r.Context(),
			strings.TrimSpace(payload.Username), strings.TrimSpace(payload.CourseKey))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"outcome": string(outcome)})
	}
}
