package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Handlers bundles all endpoint handlers for route registration
type Handlers struct {
	Pets      *PetHandler
	CareLogs  *CareLogHandler
	Diagnosis *DiagnosisHandler
	Clinics   *ClinicHandler
	Bookings  *BookingHandler
}

// RegisterRoutes wires every endpoint onto the router
func RegisterRoutes(r *gin.Engine, h Handlers, pool *pgxpool.Pool, logger *zap.Logger) {
	r.GET("/health", healthCheck(pool, logger))

	v1 := r.Group("/api/v1")

	pets := v1.Group("/pets")
	{
		pets.POST("", h.Pets.RegisterPet)
		pets.GET("", h.Pets.ListPets)
		pets.GET("/:petId", h.Pets.GetPet)
		pets.PUT("/:petId", h.Pets.UpdatePet)
		pets.DELETE("/:petId", h.Pets.ArchivePet)

		pets.PUT("/:petId/care-logs", h.CareLogs.RecordCareLog)
		pets.GET("/:petId/care-logs", h.CareLogs.ListCareLogs)

		pets.POST("/:petId/symptom-images", h.Diagnosis.UploadSymptomImage)
		pets.POST("/:petId/diagnoses", h.Diagnosis.RunDiagnosis)
		pets.POST("/:petId/diagnoses/stream", h.Diagnosis.StreamDiagnosis)
		pets.GET("/:petId/diagnoses", h.Diagnosis.History)
	}

	diagnoses := v1.Group("/diagnoses")
	{
		diagnoses.GET("/:diagnosisId", h.Diagnosis.GetDiagnosis)
		diagnoses.PUT("/:diagnosisId/share", h.Diagnosis.Share)
		diagnoses.GET("/:diagnosisId/packet.pdf", h.Diagnosis.PacketPDF)
	}

	clinics := v1.Group("/clinics")
	{
		clinics.GET("/nearby", h.Clinics.Nearby)
		clinics.GET("/:clinicId", h.Clinics.GetClinic)
	}

	bookings := v1.Group("/bookings")
	{
		bookings.POST("", h.Bookings.RequestBooking)
		bookings.GET("", h.Bookings.ListBookings)
		bookings.POST("/:bookingId/confirm", h.Bookings.ConfirmBooking)
		bookings.POST("/:bookingId/cancel", h.Bookings.CancelBooking)
	}
}

// healthCheck reports service and database health
func healthCheck(pool *pgxpool.Pool, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		if err := pool.Ping(ctx); err != nil {
			logger.Error("health check failed: database unreachable", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "disconnected",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
			"service":  "petmily-backend",
			"version":  "1.0.0",
		})
	}
}
