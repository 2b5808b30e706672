package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hgp-lactario/milkbank/internal/domain/models"
	"github.com/hgp-lactario/milkbank/internal/server/handlers"
)

// Handlers groups the HTTP adapters the router mounts.
type Handlers struct {
	Donors     *handlers.DonorHandler
	Jars       *handlers.JarHandler
	Pooling    *handlers.PoolingHandler
	Batches    *handlers.BatchHandler
	Dispensing *handlers.DispensingHandler
	Reports    *handlers.ReportHandler
	Users      *handlers.UserHandler
}

// New wires the Gin engine with required routes and middlewares.
func New(h Handlers, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")

	donors := v1.Group("/donors")
	donors.POST("", h.Donors.Create)
	donors.GET("", h.Donors.List)
	donors.GET("/:id", h.Donors.Get)
	donors.POST("/:id/labs", h.Donors.RecordLab)
	donors.POST("/:id/activate", h.Donors.Activate)
	donors.POST("/:id/reactivate", h.Donors.Activate)
	donors.POST("/:id/suspend", h.Donors.SetStatus(models.DonorSuspended))
	donors.POST("/:id/reject", h.Donors.SetStatus(models.DonorRejected))
	donors.POST("/:id/deactivate", h.Donors.SetStatus(models.DonorInactive))

	jars := v1.Group("/jars")
	jars.POST("", h.Jars.Create)
	jars.GET("", h.Jars.List)
	jars.GET("/:id", h.Jars.Get)
	jars.POST("/:id/verify", h.Jars.Verify)
	jars.POST("/:id/physical", h.Jars.RecordPhysical)
	jars.POST("/:id/chemical", h.Jars.RecordChemical)

	pooling := v1.Group("/pooling/sessions")
	pooling.POST("", h.Pooling.Open)
	pooling.GET("/:id", h.Pooling.View)
	pooling.POST("/:id/select", h.Pooling.Select)
	pooling.POST("/:id/deselect", h.Pooling.Deselect)
	pooling.POST("/:id/commit", h.Pooling.Commit)
	pooling.DELETE("/:id", h.Pooling.Close)

	batches := v1.Group("/batches")
	batches.GET("", h.Batches.List)
	batches.GET("/:id", h.Batches.Get)
	batches.GET("/:id/summary", h.Batches.Summary)
	batches.POST("/:id/pasteurization", h.Batches.RecordPasteurization)
	batches.POST("/:id/microbiology", h.Batches.RecordMicrobiology)
	batches.POST("/:id/location", h.Batches.AssignLocation)
	batches.POST("/:id/discard", h.Batches.Discard)

	v1.GET("/inventory", h.Batches.Inventory)

	administrations := v1.Group("/administrations")
	administrations.POST("", h.Dispensing.Administer)
	administrations.GET("", h.Dispensing.ListAdministrations)

	receivers := v1.Group("/receivers")
	receivers.POST("", h.Dispensing.AdmitReceiver)
	receivers.GET("", h.Dispensing.ListReceivers)
	receivers.GET("/:id", h.Dispensing.GetReceiver)
	receivers.POST("/:id/prescription", h.Dispensing.UpdatePrescription)
	receivers.POST("/:id/discharge", h.Dispensing.DischargeReceiver)

	v1.GET("/reports/summary", h.Reports.Summary)

	users := v1.Group("/users")
	users.POST("", h.Users.Create)
	users.GET("", h.Users.List)
	users.GET("/:id", h.Users.Get)
	users.PUT("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	if logger != nil {
		logger.Info("router initialized")
	}

	return r
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
