package http

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows the configured origins. "*" allows any origin without credentials.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	allowCredentials := true
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowCredentials = false
		}
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", razorpaySignatureHeader, razorpayEventIDHeader},
		AllowCredentials: allowCredentials,
		MaxAge:           300,
	})
}
