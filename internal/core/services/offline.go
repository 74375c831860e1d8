package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/tably-labs/tably-cli/internal/core/ports/driven"
)

// isAPIRequest reports whether a URL targets the platform API rather
// than a static asset. API-shaped requests get a synthesized offline
// reply instead of a raw transport error.
func isAPIRequest(url string) bool {
	return strings.Contains(url, "/api/")
}

// offlinePayload is the body of a synthesized offline response.
type offlinePayload struct {
	Error     string `json:"error"`
	Offline   bool   `json:"offline"`
	Timestamp string `json:"timestamp"`
}

// offlineResponse builds a well-formed reply for API requests that
// cannot reach the network and have no cached entry.
func offlineResponse(now time.Time) *driven.Response {
	body, _ := json.Marshal(offlinePayload{
		Error:     "offline",
		Offline:   true,
		Timestamp: now.UTC().Format(time.RFC3339),
	})
	return &driven.Response{
		Status:      503,
		ContentType: "application/json",
		Body:        body,
	}
}
