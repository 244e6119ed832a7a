package routes

import (
	"github.com/gin-gonic/gin"

	"loan-review-api/controllers"
	"loan-review-api/middleware"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.POST("/auth/applicant/register", controllers.RegisterApplicant)
			public.POST("/auth/applicant/login", controllers.ApplicantLogin)
			public.POST("/auth/officer/login", controllers.OfficerLogin)

			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Loan Review API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Notifications (all authenticated users)
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.ListNotifications)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}

			// Applications
			applications := protected.Group("/applications")
			{
				applications.GET("", controllers.ListApplications)
				applications.GET("/:id", controllers.GetApplication)
				applications.GET("/:id/history", controllers.GetApplicationHistory)
				applications.GET("/:id/documents", controllers.ListDocuments)

				// Applicants submit and upload
				applications.POST("", middleware.RequireApplicant(), controllers.SubmitApplication)
				applications.POST("/:id/documents", middleware.RequireApplicant(), controllers.UploadDocument)

				// Loan officer review pipeline
				applications.POST("/:id/assign", middleware.RequireLoanRole(), controllers.AssignApplication)
				applications.POST("/:id/verification/start", middleware.RequireLoanRole(), controllers.StartDocumentVerification)
				applications.POST("/:id/verification/complete", middleware.RequireLoanRole(), controllers.CompleteDocumentVerification)
				applications.POST("/:id/verification/resubmission", middleware.RequireLoanRole(), controllers.RequestResubmission)
				applications.POST("/:id/external-verification/trigger", middleware.RequireLoanRole(), controllers.TriggerExternalVerification)
				applications.POST("/:id/external-verification/complete", middleware.RequireLoanRole(), controllers.CompleteExternalVerification)
				applications.POST("/:id/decision", middleware.RequireLoanRole(), controllers.DecideApplication)
				applications.POST("/:id/flag-compliance", middleware.RequireLoanRole(), controllers.FlagForCompliance)
				applications.POST("/:id/disburse", middleware.RequireLoanRole(), controllers.DisburseApplication)
			}

			// Compliance sub-workflow
			compliance := protected.Group("/compliance")
			compliance.Use(middleware.RequireComplianceRole())
			{
				compliance.POST("/:id/investigation/start", controllers.StartInvestigation)
				compliance.POST("/:id/documents/request", controllers.RequestComplianceDocuments)
				compliance.POST("/:id/documents/:documentId/verify", controllers.VerifyComplianceDocument)
				compliance.POST("/:id/documents/:documentId/reject", controllers.RejectComplianceDocument)
				compliance.POST("/:id/decision/trigger", controllers.TriggerComplianceDecision)
				compliance.POST("/:id/decision", controllers.SubmitComplianceDecision)
				compliance.POST("/:id/quick-clear", controllers.QuickClearApplication)
				compliance.POST("/:id/quick-reject", controllers.QuickRejectApplication)
				compliance.POST("/:id/escalate", controllers.EscalateCompliance)
				compliance.POST("/timeout-sweep", controllers.SweepComplianceTimeouts)
			}
		}
	}
}
