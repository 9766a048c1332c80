// internal/handlers/utils.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/inkguess/inkguess/internal/auth"
	"github.com/inkguess/inkguess/internal/game"
)

// extractCookieToken extracts a named cookie value from "Cookie" header, or returns empty if not found.
func extractCookieToken(cookieHeader, cookieName string) string {
	parts := strings.Split(cookieHeader, cookieName+"=")
	if len(parts) < 2 {
		return ""
	}
	token := parts[1]
	if idx := strings.Index(token, ";"); idx != -1 {
		token = token[:idx]
	}
	return token
}

// currentUser resolves the acting player from the Authorization header or the
// auth_token cookie.
func currentUser(r *http.Request) (string, error) {
	token := ""
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		token = strings.TrimPrefix(h, "Bearer ")
	}
	if token == "" {
		token = extractCookieToken(r.Header.Get("Cookie"), "auth_token")
	}
	if token == "" {
		return "", errors.New("missing auth token")
	}
	return auth.VerifySession(token)
}

// writeJSON writes a 200 JSON response.
func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

// writeSuccess wraps a payload in the standard success envelope.
func writeSuccess(w http.ResponseWriter, fields map[string]interface{}) {
	out := map[string]interface{}{"success": true}
	for k, v := range fields {
		out[k] = v
	}
	writeJSON(w, out)
}

// writeFailure reports a game-rule failure. These are HTTP 200 with
// success=false so clients distinguish rule violations from transport errors.
func writeFailure(w http.ResponseWriter, message string) {
	writeJSON(w, map[string]interface{}{"success": false, "message": message})
}

// failureMessage maps core errors onto client-facing text.
func failureMessage(err error) string {
	switch {
	case errors.Is(err, game.ErrRoomNotFound):
		return "房间不存在"
	case errors.Is(err, game.ErrNotInRoom):
		return "你不在该房间中"
	case errors.Is(err, game.ErrNotAuthorized):
		return "只有房主可以执行此操作"
	case errors.Is(err, game.ErrRoomFull):
		return "房间已满"
	case errors.Is(err, game.ErrAlreadyInOtherRoom):
		return "你已在其他房间中"
	case errors.Is(err, game.ErrInvalidPhase):
		return "当前阶段不允许此操作"
	case errors.Is(err, game.ErrPlayersNotReady):
		return "还有玩家未准备"
	case errors.Is(err, game.ErrMissingConfiguration):
		return "缺少必要的配置"
	case errors.Is(err, game.ErrDrawerCannotGuess):
		return "画手不能猜词"
	case errors.Is(err, game.ErrNotDrawer):
		return "只有画手可以执行此操作"
	case errors.Is(err, game.ErrDrawerNotInRoom):
		return "指定的画手不在房间中"
	case errors.Is(err, game.ErrAlreadyResolved):
		return "本回合你已完成猜词"
	case errors.Is(err, game.ErrNoImageAvailable):
		return "没有可识别的画作"
	case errors.Is(err, game.ErrTurnSuperseded):
		return "回合已切换，结果作废"
	default:
		return err.Error()
	}
}

// parseRoomID pulls room_id out of a decoded request body or query string.
func parseRoomID(r *http.Request, body map[string]interface{}) (uuid.UUID, error) {
	raw, _ := body["room_id"].(string)
	if raw == "" {
		raw = r.URL.Query().Get("room_id")
	}
	return uuid.Parse(raw)
}

// decodeBody decodes a JSON body into a loose map; an empty body is fine.
func decodeBody(r *http.Request) map[string]interface{} {
	out := map[string]interface{}{}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&out)
	}
	return out
}

func bodyString(body map[string]interface{}, key string) string {
	s, _ := body[key].(string)
	return s
}
