package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openlearnhq/learning-paths/api/controllers"
	"github.com/openlearnhq/learning-paths/api/middleware"
	"github.com/openlearnhq/learning-paths/internal/enrollments"
	"github.com/openlearnhq/learning-paths/internal/groupsync"
	"github.com/openlearnhq/learning-paths/internal/milestones"
	"github.com/openlearnhq/learning-paths/internal/paths"
	"github.com/openlearnhq/learning-paths/pkg/config"
	"github.com/openlearnhq/learning-paths/pkg/db"
	"github.com/openlearnhq/learning-paths/pkg/logger"
	"github.com/openlearnhq/learning-paths/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	pathsService paths.Service,
	enrollmentsService enrollments.Service,
	groupsyncService groupsync.Service,
	milestonesService milestones.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/paths", func(r chi.Router) {
			r.Get("/", controllers.VisiblePaths(pathsService, logg))
			r.Post("/", controllers.CreatePath(pathsService, logg))
			r.Get("/by-key/{pathKey}", controllers.GetPath(pathsService, logg))
			r.Route("/{pathId}", func(r chi.Router) {
				r.Get("/steps", controllers.ListSteps(pathsService, logg))
				r.Post("/steps", controllers.AddStep(pathsService, logg))
				r.Get("/grade", controllers.AggregateGrade(pathsService, logg))
				r.Post("/course-enrollments", controllers.EnrollInPathCourse(enrollmentsService, logg))
			})
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.Get("/", controllers.ListEnrollments(enrollmentsService, logg))
			r.Post("/", controllers.Enroll(enrollmentsService, pathsService, logg))
			r.Post("/unenroll", controllers.Unenroll(enrollmentsService, pathsService, logg))
			r.Post("/bulk", controllers.BulkEnroll(enrollmentsService, logg))
			r.Post("/bulk-unenroll", controllers.BulkUnenroll(enrollmentsService, logg))
			r.Get("/{enrollmentId}/history", controllers.EnrollmentHistory(enrollmentsService, logg))
		})
		r.Get("/enrollment-allowed/{allowedId}/history", controllers.AllowedHistory(enrollmentsService, logg))
		r.Post("/users/{userId}/resolve-pending", controllers.ResolvePendingEnrollments(enrollmentsService, logg))

		r.Route("/groups", func(r chi.Router) {
			r.Get("/", controllers.ListGroups(groupsyncService, logg))
			r.Post("/{groupId}/members", controllers.AddGroupMember(groupsyncService, logg))
			r.Delete("/{groupId}/members/{userId}", controllers.RemoveGroupMember(groupsyncService, logg))
		})

		r.Route("/group-course-assignments", func(r chi.Router) {
			r.Get("/", controllers.ListAssignments(groupsyncService, logg))
			r.Post("/", controllers.CreateAssignment(groupsyncService, logg))
			r.Post("/bulk-enroll", controllers.BulkEnrollGroups(groupsyncService, logg))
			r.Post("/sync", controllers.SyncAssignments(groupsyncService, logg))
			r.Delete("/{assignmentId}", controllers.DeleteAssignment(groupsyncService, logg))
			r.Get("/{assignmentId}/history", controllers.AssignmentHistory(groupsyncService, logg))
		})

		r.Post("/completions/blocks", controllers.BlockCompleted(milestonesService, logg))
	})

	return r
}
