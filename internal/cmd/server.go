package main

import (
	"fmt"
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

func setupServer(config *Config, services *Services) *http.Server {
	mux := http.NewServeMux()

	c := cors.New(cors.Options{
		AllowedMethods: []string{
			http.MethodHead,
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
		},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})

	services.Gateway.RegisterRoutes(mux)
	services.API.RegisterRoutes(mux)
	setupHealthCheck(mux)

	handler := c.Handler(mux)

	return &http.Server{
		Addr:    fmt.Sprintf(":%s", getEnv("PORT", config.Server.Port)),
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}

func setupHealthCheck(mux *http.ServeMux) {
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}
