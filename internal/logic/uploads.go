package logic

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
)

// In-memory signed upload sessions. Good enough for a single process; an
// object store with presigned URLs would replace this.
type uploadSession struct {
	Token       string
	UserID      string
	ContentType string
	ExpiresAt   time.Time
	FilePath    string
}

var (
	uploadMu       sync.Mutex
	uploadSessions = make(map[string]*uploadSession)
)

func safeExt(contentType, filename string) string {
	if filename != "" && strings.Contains(filename, ".") {
		parts := strings.Split(filename, ".")
		return strings.ToLower(parts[len(parts)-1])
	}
	switch contentType {
	case "audio/m4a":
		return "m4a"
	case "audio/mp4", "video/mp4":
		return "mp4"
	case "audio/webm":
		return "webm"
	}
	return "bin"
}

func requestBase(c *gin.Context) string {
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// CreateRecordingUploadHandler issues a short-lived signed upload URL plus
// the URL the file will be served from.
func CreateRecordingUploadHandler(c *gin.Context) {
	var req struct {
		ContentType string `json:"content_type"`
		Filename    string `json:"filename"`
		SizeBytes   int64  `json:"size_bytes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.ContentType == "" {
		c.JSON(400, gin.H{"error": "content_type required"})
		return
	}
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	if err := os.MkdirAll(common.UploadDir, 0o755); err != nil {
		c.JSON(500, gin.H{"error": "upload dir error"})
		return
	}

	uploadID := uuid.NewString()
	token := uuid.NewString()
	fileName := fmt.Sprintf("%s.%s", uploadID, safeExt(req.ContentType, req.Filename))
	expiresAt := time.Now().UTC().Add(time.Duration(common.UploadExpiresMinutes) * time.Minute)

	uploadMu.Lock()
	uploadSessions[uploadID] = &uploadSession{
		Token:       token,
		UserID:      userID,
		ContentType: req.ContentType,
		ExpiresAt:   expiresAt,
		FilePath:    filepath.Join(common.UploadDir, fileName),
	}
	uploadMu.Unlock()

	base := requestBase(c)
	c.JSON(200, gin.H{
		"uploadUrl": fmt.Sprintf("%s/v1/uploads/recording/%s?token=%s", base, uploadID, token),
		"fileUrl":   fmt.Sprintf("%s/v1/uploads/files/%s", base, uploadID),
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}

// UploadRecordingFileHandler accepts the raw body for a signed session.
func UploadRecordingFileHandler(c *gin.Context) {
	uploadID := c.Param("upload_id")
	uploadMu.Lock()
	session := uploadSessions[uploadID]
	uploadMu.Unlock()
	if session == nil {
		c.JSON(404, gin.H{"error": "Upload session not found"})
		return
	}
	if c.Query("token") != session.Token {
		c.JSON(403, gin.H{"error": "Invalid upload token"})
		return
	}
	if time.Now().UTC().After(session.ExpiresAt) {
		uploadMu.Lock()
		delete(uploadSessions, uploadID)
		uploadMu.Unlock()
		c.JSON(410, gin.H{"error": "Upload URL expired"})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		c.JSON(400, gin.H{"error": "Empty upload body"})
		return
	}
	if err := os.WriteFile(session.FilePath, body, 0o644); err != nil {
		c.JSON(500, gin.H{"error": "write failed"})
		return
	}
	c.JSON(200, gin.H{"message": "Upload completed", "fileUrl": "/v1/uploads/files/" + uploadID})
}

// GetUploadedFileHandler serves a previously uploaded file.
func GetUploadedFileHandler(c *gin.Context) {
	uploadID := c.Param("upload_id")
	uploadMu.Lock()
	session := uploadSessions[uploadID]
	uploadMu.Unlock()
	if session == nil {
		c.JSON(404, gin.H{"error": "File not found"})
		return
	}
	if _, err := os.Stat(session.FilePath); err != nil {
		c.JSON(404, gin.H{"error": "File not found"})
		return
	}
	c.Header("Content-Type", session.ContentType)
	c.File(session.FilePath)
}
