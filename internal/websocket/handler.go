package websocket

import (
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/choreboard/internal/auth"
)

// HandleWebSocket upgrades the request and streams change notifications for
// the caller's household until the connection closes. It must run behind
// middleware that has resolved the household. originPatterns lists the
// allowed browser origins; an empty list allows same-origin only.
func HandleWebSocket(hub *Hub, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		householdID := auth.HouseholdID(r.Context())
		if householdID == "" {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{OriginPatterns: originPatterns})
		if err != nil {
			logger.Warn("websocket accept failed", "household_id", householdID, "error", err)
			return
		}

		logger.Debug("websocket connected", "household_id", householdID)
		NewClient(hub, conn, householdID).Run(r.Context())
		logger.Debug("websocket disconnected", "household_id", householdID)
	}
}
