package scheduler

import (
	"net/http"
	"time"

	apphttp "crm_backend/internal/http"
	"crm_backend/platform/httpkit"
	"crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

// Module exposes a manual trigger for the birthday reminder sweep. The
// periodic sweep runs in the worker process; this endpoint lets an admin
// run it on demand without waiting for the cron tick.
type Module struct {
	scheduler ReminderScheduler
	log       *logger.Logger
}

// NewModule wraps the reminder scheduler as an HTTP-facing module.
func NewModule(scheduler ReminderScheduler, log *logger.Logger) *Module {
	return &Module{scheduler: scheduler, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "scheduler"
}

// RegisterRoutes mounts the reminder trigger route.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/reminders")
	group.POST("/birthday/run", httpkit.RequireRole("admin", "manager"), m.runBirthdaySweep)
}

func (m *Module) runBirthdaySweep(c *gin.Context) {
	date := time.Now().UTC()
	if raw := c.Query("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "date must be YYYY-MM-DD", nil)
			return
		}
		date = parsed
	}

	if err := m.scheduler.EnqueueBirthdaySweep(c.Request.Context(), date); err != nil {
		m.log.Error("failed to enqueue birthday sweep", "error", err)
		httpkit.Error(c, http.StatusInternalServerError, "failed to enqueue sweep", nil)
		return
	}

	httpkit.JSON(c, http.StatusAccepted, gin.H{"scheduled": date.Format("2006-01-02")})
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
