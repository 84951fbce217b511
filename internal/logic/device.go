package logic

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ElaineQian09/eggtart-backend/internal/db"
)

// RegisterDeviceHandler upserts a device keyed by its client-provided id.
func RegisterDeviceHandler(c *gin.Context) {
	var req struct {
		DeviceID    string `json:"device_id"`
		DeviceModel string `json:"device_model"`
		OS          string `json:"os"`
		Language    string `json:"language"`
		Timezone    string `json:"timezone"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.DeviceID == "" {
		c.JSON(400, gin.H{"error": "device_id required"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var devices []db.Device
	if err := db.GetDB().Where("id = ?", req.DeviceID).Limit(1).Find(&devices).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	if len(devices) > 0 {
		existing := devices[0]
		if existing.UserID != userID {
			c.JSON(409, gin.H{"error": "Device is already linked to another user"})
			return
		}
		existing.DeviceModel = req.DeviceModel
		existing.OS = req.OS
		existing.Language = req.Language
		existing.Timezone = req.Timezone
		if err := db.GetDB().Save(&existing).Error; err != nil {
			c.JSON(500, gin.H{"error": "db error"})
			return
		}
		c.JSON(200, gin.H{"message": "Device registered", "deviceId": existing.ID})
		return
	}

	device := db.Device{
		ID:          req.DeviceID,
		UserID:      userID,
		DeviceModel: req.DeviceModel,
		OS:          req.OS,
		Language:    req.Language,
		Timezone:    req.Timezone,
	}
	if err := db.GetDB().Create(&device).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"message": "Device registered", "deviceId": device.ID})
}

// SaveMemoryHandler stores one memory record.
func SaveMemoryHandler(c *gin.Context) {
	var req struct {
		Type       string  `json:"type"`
		Content    string  `json:"content"`
		Importance float64 `json:"importance"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.Type == "" || req.Content == "" {
		c.JSON(400, gin.H{"error": "type and content required"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	memory := db.Memory{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       req.Type,
		Content:    req.Content,
		Importance: req.Importance,
	}
	if err := db.GetDB().Create(&memory).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	c.JSON(200, gin.H{"message": "Memory saved"})
}
