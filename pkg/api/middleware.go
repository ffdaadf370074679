package api

import (
	"mime"
	"net/http"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/stackrox/mongo-tenant-manager/pkg/logger"
	"github.com/stackrox/mongo-tenant-manager/pkg/provisioning"
)

// EnsureTenantContentType accepts only JSON and URL encoded form bodies.
func EnsureTenantContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType := r.Header.Get("Content-Type")

		if contentType == "" {
			sendError(w, r, provisioning.ReasonInvalidRequest, "empty Content-Type", http.StatusUnsupportedMediaType)
			return
		}
		mt, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			sendError(w, r, provisioning.ReasonInvalidRequest, "malformed Content-Type header", http.StatusBadRequest)
			return
		}
		if mt != contentTypeJSON && mt != contentTypeForm {
			sendError(w, r, provisioning.ReasonInvalidRequest,
				"Content-Type header must be application/json or application/x-www-form-urlencoded", http.StatusUnsupportedMediaType)
			return
		}

		next.ServeHTTP(w, r)
	})
}

type loggingWriter struct {
	http.ResponseWriter
	responseStatus int
}

func (writer *loggingWriter) WriteHeader(status int) {
	writer.responseStatus = status
	writer.ResponseWriter.WriteHeader(status)
}

func (writer *loggingWriter) Write(body []byte) (int, error) {
	if writer.responseStatus == 0 {
		writer.responseStatus = http.StatusOK
	}
	return writer.ResponseWriter.Write(body)
}

// RequestLoggingMiddleware logs every request and the status of its response.
func RequestLoggingMiddleware(handler http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		var namedRoute string
		if route := mux.CurrentRoute(request); route != nil {
			namedRoute = route.GetName()
		}
		prefix := logger.Prefix(request.Context())

		glog.V(1).Infof("%sRequest received: %s %s from %s", prefix, request.Method, request.URL.Path, request.RemoteAddr)
		loggingWriter := &loggingWriter{ResponseWriter: writer}
		before := time.Now()
		handler.ServeHTTP(loggingWriter, request)
		glog.Infof("%sResponse sent: route=%s method=%s path=%s status=%d elapsed=%s",
			prefix, namedRoute, request.Method, request.URL.Path, loggingWriter.responseStatus, time.Since(before))
	})
}

type glogRecoveryLogger struct{}

func (glogRecoveryLogger) Println(v ...interface{}) {
	glog.Errorln(v...)
}
