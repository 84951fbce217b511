package logic

import (
	"fmt"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
	"github.com/ElaineQian09/eggtart-backend/internal/db"
)

const tokenTTL = 30 * 24 * time.Hour

func createToken(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().Add(tokenTTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(common.JWTSecret))
}

func verifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(common.JWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("invalid token")
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}
	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return "", fmt.Errorf("token has no user_id")
	}
	return userID, nil
}

// getUserID authenticates the request. On failure it writes the 401 itself
// and returns ok=false.
func getUserID(c *gin.Context) (string, bool) {
	auth := c.GetHeader("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		c.JSON(401, gin.H{"error": "Invalid token"})
		return "", false
	}
	userID, err := verifyToken(strings.TrimPrefix(auth, "Bearer "))
	if err != nil {
		c.JSON(401, gin.H{"error": "Invalid token"})
		return "", false
	}
	return userID, true
}

// AnonymousLoginHandler creates a fresh user and issues a bearer token.
func AnonymousLoginHandler(c *gin.Context) {
	userID := uuid.NewString()
	user := db.User{ID: userID}
	if err := db.GetDB().Create(&user).Error; err != nil {
		c.JSON(500, gin.H{"error": "db error"})
		return
	}
	token, err := createToken(userID)
	if err != nil {
		c.JSON(500, gin.H{"error": "token error"})
		return
	}
	c.JSON(200, gin.H{"userId": userID, "token": token})
}
