package v1

import (
    "encoding/json"
    "net/http"
    "strings"
)

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}

// requireJSON ensures the request has Content-Type application/json (optionally with params).
// Writes 415 if not JSON and returns false; otherwise returns true.
func requireJSON(w http.ResponseWriter, r *http.Request) bool {
    mime := strings.ToLower(strings.TrimSpace(strings.Split(r.Header.Get("Content-Type"), ";")[0]))
    if mime != "application/json" {
        writeErr(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "unsupported_media_type")
        return false
    }
    return true
}

// decodeJSON reads the body into v, rejecting unknown fields. It writes the
// error response itself and reports whether the handler should go on.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
    if !requireJSON(w, r) { return false }
    dec := json.NewDecoder(r.Body)
    dec.DisallowUnknownFields()
    if err := dec.Decode(v); err != nil {
        badRequest(w, "invalid JSON: "+err.Error())
        return false
    }
    return true
}
