package metrics

import (
	"fmt"
	"net/http"
	"time"
)

// NewServer builds the scrape server. The caller owns its lifecycle.
func (m *Metrics) NewServer(port int) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprintf(w, `<html><body><h1>NitiSetu Metrics</h1><p><a href="/metrics">/metrics</a></p></body></html>`)
	})

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
}
