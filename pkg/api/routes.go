package api

import (
	"net/http"
	"time"

	health "github.com/docker/go-healthcheck"
	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/stackrox/mongo-tenant-manager/pkg/logger"
)

// SetupRoutes configures API route mapping
func SetupRoutes(tenantHandler *TenantHandler, healthRegistry *health.Registry) http.Handler {
	router := mux.NewRouter()

	router.NotFoundHandler = http.HandlerFunc(sendNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(sendMethodNotAllowed)

	// Operation IDs are set first so that the request log carries them.
	router.Use(
		logger.OperationIDMiddleware,
		RequestLoggingMiddleware,
	)

	router.HandleFunc("/health", healthHandler(healthRegistry)).Methods(http.MethodGet).Name("health")
	router.HandleFunc("/tenants", tenantHandler.ListTenants).Methods(http.MethodGet).Name("tenants")
	router.Handle("/create", EnsureTenantContentType(http.HandlerFunc(tenantHandler.Create))).Methods(http.MethodPost).Name("create")
	router.Handle("/delete", EnsureTenantContentType(http.HandlerFunc(tenantHandler.Delete))).Methods(http.MethodPost).Name("delete")

	var mainHandler http.Handler = router

	mainHandler = gorillahandlers.CORS(
		gorillahandlers.AllowedMethods([]string{
			http.MethodGet,
			http.MethodPost,
		}),
		gorillahandlers.AllowedHeaders([]string{
			"Accept",
			"Content-Type",
			logger.OperationIDHeader,
		}),
		gorillahandlers.MaxAge(int((10 * time.Minute).Seconds())),
	)(mainHandler)

	mainHandler = gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(glogRecoveryLogger{}),
		gorillahandlers.PrintRecoveryStack(true),
	)(mainHandler)

	return mainHandler
}
