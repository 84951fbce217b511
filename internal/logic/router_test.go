package logic

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/ElaineQian09/eggtart-backend/internal/db"
	"github.com/ElaineQian09/eggtart-backend/internal/gemini"
	"github.com/ElaineQian09/eggtart-backend/internal/pipeline"
)

// setupTestRouter wires a router against an in-memory database and a
// disabled AI client.
func setupTestRouter(t *testing.T) *gin.Engine {
	gin.SetMode(gin.TestMode)
	g, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.Migrate(g))
	db.SetDB(g)
	pipe := pipeline.New(gemini.New(gemini.Config{Model: "gemini-3-flash"}), pipeline.NewUserGuard(0))
	return SetupRouter(pipe)
}

func doJSON(router *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func loginUser(t *testing.T, router *gin.Engine) (string, string) {
	w := doJSON(router, "POST", "/v1/auth/anonymous", "", nil)
	assert.Equal(t, 200, w.Code)
	var resp map[string]string
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["userId"])
	assert.NotEmpty(t, resp["token"])
	return resp["userId"], resp["token"]
}

func registerDevice(t *testing.T, router *gin.Engine, token, deviceID string) {
	w := doJSON(router, "POST", "/v1/devices", token, map[string]string{"device_id": deviceID})
	assert.Equal(t, 200, w.Code)
}

func TestRootHandler(t *testing.T) {
	router := setupTestRouter(t)
	w := doJSON(router, "GET", "/", "", nil)
	assert.Equal(t, 200, w.Code)
}

func TestPingHandler(t *testing.T) {
	router := setupTestRouter(t)
	w := doJSON(router, "GET", "/ping", "", nil)
	assert.Equal(t, 200, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "pong", response["message"])
}

func TestAnonymousLogin(t *testing.T) {
	router := setupTestRouter(t)
	userID, token := loginUser(t, router)

	parsed, err := verifyToken(token)
	assert.NoError(t, err)
	assert.Equal(t, userID, parsed)

	var user db.User
	assert.NoError(t, db.GetDB().First(&user, "id = ?", userID).Error)
}

func TestRegisterDeviceMissingParams(t *testing.T) {
	router := setupTestRouter(t)
	_, token := loginUser(t, router)
	w := doJSON(router, "POST", "/v1/devices", token, map[string]string{})
	assert.Equal(t, 400, w.Code)
}

func TestRegisterDeviceUnauthorized(t *testing.T) {
	router := setupTestRouter(t)
	w := doJSON(router, "POST", "/v1/devices", "", map[string]string{"device_id": "d1"})
	assert.Equal(t, 401, w.Code)

	w = doJSON(router, "POST", "/v1/devices", "not-a-token", map[string]string{"device_id": "d1"})
	assert.Equal(t, 401, w.Code)
}

func TestRegisterDeviceCrossUserConflict(t *testing.T) {
	router := setupTestRouter(t)
	_, tokenA := loginUser(t, router)
	_, tokenB := loginUser(t, router)

	registerDevice(t, router, tokenA, "shared-device")
	w := doJSON(router, "POST", "/v1/devices", tokenB, map[string]string{"device_id": "shared-device"})
	assert.Equal(t, 409, w.Code)

	// Re-registering under the same user is an upsert.
	w = doJSON(router, "POST", "/v1/devices", tokenA, map[string]string{"device_id": "shared-device", "os": "ios"})
	assert.Equal(t, 200, w.Code)
}

func TestSaveMemoryHandler(t *testing.T) {
	router := setupTestRouter(t)
	userID, token := loginUser(t, router)

	w := doJSON(router, "POST", "/v1/memory", token, map[string]string{})
	assert.Equal(t, 400, w.Code)

	w = doJSON(router, "POST", "/v1/memory", token, map[string]any{
		"type": "preference", "content": "likes mornings", "importance": 0.8,
	})
	assert.Equal(t, 200, w.Code)

	var memory db.Memory
	assert.NoError(t, db.GetDB().First(&memory, "user_id = ?", userID).Error)
	assert.Equal(t, "preference", memory.Type)
}
