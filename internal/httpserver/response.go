package httpserver

import (
	"encoding/json"
	"net/http"
)

type errorEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// WriteJSON сериализует v с указанным статусом.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteJSONError возвращает ошибку в едином формате {ok:false, error}.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, errorEnvelope{OK: false, Error: message})
}

// WriteText возвращает плоский текст; формат, который понимает urlfetch
// чатовых ботов.
func WriteText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}
