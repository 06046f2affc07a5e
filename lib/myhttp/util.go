package myhttp

import (
	"fmt"
	"net/http"
	"os"
)

// GuessHostnameWithScheme derives the public base URL outside a request
// context, for pubsub push subscriptions.
func GuessHostnameWithScheme() string {
	if publicURL := os.Getenv("PUBLIC_URL"); publicURL != "" {
		return publicURL
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return fmt.Sprintf("http://localhost:%s", port)
}

func HostnameWithScheme(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}

	return fmt.Sprintf("%s://%s", scheme, r.Host)
}
