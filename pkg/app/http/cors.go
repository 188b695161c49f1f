package http

import "net/http"

// CORS applies permissive cross-origin headers and answers preflight
// requests directly. Allowed headers must stay "*" so clients behind
// tunneling proxies that inject custom headers (ngrok-skip-browser-warning)
// still pass preflight.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
