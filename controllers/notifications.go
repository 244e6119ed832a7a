package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"loan-review-api/config"
	"loan-review-api/middleware"
	"loan-review-api/models"
)

// ListNotifications returns the caller's notifications, newest first.
func ListNotifications(c *gin.Context) {
	kind := recipientKind(c)
	userID := currentUserID(c)

	var notifications []models.Notification
	query := config.DB.
		Where("recipient_id = ? AND recipient_kind = ?", userID, string(kind)).
		Order("created_at DESC")
	if c.Query("unread") == "true" {
		query = query.Where("is_read = ?", false)
	}
	if err := query.Find(&notifications).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load notifications"})
		return
	}

	var unread int64
	config.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND recipient_kind = ? AND is_read = ?", userID, string(kind), false).
		Count(&unread)

	c.JSON(http.StatusOK, gin.H{
		"notifications": notifications,
		"total":         len(notifications),
		"unread":        unread,
	})
}

// MarkNotificationRead marks a single notification as read.
func MarkNotificationRead(c *gin.Context) {
	notificationID, ok := pathID(c, "id")
	if !ok {
		return
	}
	kind := recipientKind(c)
	userID := currentUserID(c)

	result := config.DB.Model(&models.Notification{}).
		Where("notification_id = ? AND recipient_id = ? AND recipient_kind = ?", notificationID, userID, string(kind)).
		Update("is_read", true)
	if result.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notification"})
		return
	}
	if result.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

// MarkAllNotificationsRead marks every unread notification as read.
func MarkAllNotificationsRead(c *gin.Context) {
	kind := recipientKind(c)
	userID := currentUserID(c)

	if err := config.DB.Model(&models.Notification{}).
		Where("recipient_id = ? AND recipient_kind = ? AND is_read = ?", userID, string(kind), false).
		Update("is_read", true).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read"})
}

func recipientKind(c *gin.Context) models.RecipientKind {
	kind, _ := c.Get("kind")
	if kind == middleware.KindApplicant {
		return models.RecipientApplicant
	}
	return models.RecipientOfficer
}
