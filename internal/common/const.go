package common

import (
	"os"
	"strconv"
)

// Gemini endpoint configuration.
var (
	GeminiAPIKey   string
	GeminiModel    = "gemini-3-pro-preview"
	GeminiSTTModel string
	GeminiBaseURL  = "https://generativelanguage.googleapis.com/v1beta/models"
	GeminiLiveURL  = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
)

// Pipeline tuning, read from the environment once at startup.
var (
	RequestTimeoutSec     = 60.0
	RetryMaxAttempts      = 4
	RetryBaseDelaySec     = 1.0
	UserCooldownSec       = 8.0
	BatchTriggerCount     = 5
	BatchMaxWaitHours     = 12.0
	STTMaxAudioBytes      = 10 * 1024 * 1024
	TranscriptOnlyTrigger = false
	EventDebugEnabled     = false
)

// Automatic comment generation requires at least this much recorded activity
// for the day. Manual triggers bypass it.
const AutoTriggerThresholdSec = 3600

var (
	JWTSecret            = "egg-secret-key"
	UploadDir            = "/tmp/egg_uploads"
	UploadExpiresMinutes = 15
)

func init() {
	GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		GeminiModel = v
	}
	GeminiSTTModel = GeminiModel
	if v := os.Getenv("GEMINI_STT_MODEL"); v != "" {
		GeminiSTTModel = v
	}
	if v := os.Getenv("GEMINI_LIVE_WS_URL_TEMPLATE"); v != "" {
		GeminiLiveURL = v
	}
	RequestTimeoutSec = envFloat("GEMINI_REQUEST_TIMEOUT_SEC", RequestTimeoutSec)
	RetryMaxAttempts = envInt("GEMINI_RETRY_MAX_ATTEMPTS", RetryMaxAttempts)
	RetryBaseDelaySec = envFloat("GEMINI_RETRY_BASE_DELAY_SEC", RetryBaseDelaySec)
	UserCooldownSec = envFloat("AI_USER_COOLDOWN_SEC", UserCooldownSec)
	BatchTriggerCount = envInt("AUDIO_BATCH_TRIGGER_COUNT", BatchTriggerCount)
	BatchMaxWaitHours = envFloat("AUDIO_BATCH_MAX_WAIT_HOURS", BatchMaxWaitHours)
	STTMaxAudioBytes = envInt("STT_MAX_AUDIO_BYTES", STTMaxAudioBytes)
	TranscriptOnlyTrigger = os.Getenv("AI_TRIGGER_TRANSCRIPT_ONLY") == "1"
	EventDebugEnabled = os.Getenv("EVENT_DEBUG_ENABLED") == "1"
	if v := os.Getenv("EGG_JWT_SECRET"); v != "" {
		JWTSecret = v
	}
	if v := os.Getenv("UPLOAD_DIR"); v != "" {
		UploadDir = v
	}
	UploadExpiresMinutes = envInt("UPLOAD_EXPIRES_MINUTES", UploadExpiresMinutes)
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
