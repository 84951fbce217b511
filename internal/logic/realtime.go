package logic

import (
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ElaineQian09/eggtart-backend/internal/common"
)

var upgrader = websocket.Upgrader{
	// Mobile clients connect from arbitrary origins; auth is the token.
	CheckOrigin: func(r *http.Request) bool { return true },
}

func tokenFromRequest(c *gin.Context) string {
	if token := c.Query("token"); token != "" {
		return token
	}
	auth := c.GetHeader("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}

// buildLiveURL fills the API key into the upstream live endpoint URL. The
// template either carries an {api_key} placeholder or gets a key query
// parameter appended.
func buildLiveURL() (string, error) {
	if strings.Contains(common.GeminiLiveURL, "{api_key}") {
		return strings.ReplaceAll(common.GeminiLiveURL, "{api_key}", common.GeminiAPIKey), nil
	}
	parsed, err := url.Parse(common.GeminiLiveURL)
	if err != nil {
		return "", err
	}
	q := parsed.Query()
	q.Set("key", common.GeminiAPIKey)
	parsed.RawQuery = q.Encode()
	return parsed.String(), nil
}

// RealtimeLiveHandler relays websocket frames between the client and the
// upstream live endpoint. Stateless byte forwarding; no business logic.
func RealtimeLiveHandler(c *gin.Context) {
	token := tokenFromRequest(c)
	userID, err := verifyToken(token)
	if err != nil {
		c.JSON(401, gin.H{"error": "Invalid token"})
		return
	}
	if common.GeminiAPIKey == "" {
		c.JSON(503, gin.H{"error": "realtime not enabled"})
		return
	}

	liveURL, err := buildLiveURL()
	if err != nil {
		c.JSON(500, gin.H{"error": "bad live endpoint"})
		return
	}
	upstream, _, err := websocket.DefaultDialer.Dial(liveURL, nil)
	if err != nil {
		log.Printf("realtime upstream dial failed for user %s: %v", userID, err)
		c.JSON(502, gin.H{"error": "upstream connect failed"})
		return
	}

	client, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		upstream.Close()
		return
	}
	log.Printf("realtime session started, user_id=%s", userID)

	done := make(chan struct{}, 2)
	forward := func(src, dst *websocket.Conn) {
		defer func() { done <- struct{}{} }()
		for {
			msgType, data, err := src.ReadMessage()
			if err != nil {
				return
			}
			if err := dst.WriteMessage(msgType, data); err != nil {
				return
			}
		}
	}
	go forward(client, upstream)
	go forward(upstream, client)
	<-done

	client.Close()
	upstream.Close()
	log.Printf("realtime session closed, user_id=%s", userID)
}
