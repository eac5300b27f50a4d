package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/b0bbywan/go-odio-players/logger"
)

// JSONHandler answers with the JSON encoding of what h returns, or with the
// status its error maps to. The body is encoded before anything is written,
// so a value that cannot be encoded still gets a clean 500.
func JSONHandler(h func(http.ResponseWriter, *http.Request) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, err := h(w, r)
		if err != nil {
			writeError(w, err)
			return
		}
		body, err := json.Marshal(data)
		if err != nil {
			logger.Error("[api] failed to encode %s response: %v", r.URL.Path, err)
			http.Error(w, "failed to encode response", http.StatusInternalServerError)
			return
		}
		body = append(body, '\n')
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}
}
