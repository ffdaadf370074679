// Package api exposes the tenant workflows over HTTP
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/patrickmn/go-cache"
	"github.com/stackrox/mongo-tenant-manager/pkg/directory"
	"github.com/stackrox/mongo-tenant-manager/pkg/logger"
	"github.com/stackrox/mongo-tenant-manager/pkg/provisioning"
)

const (
	contentTypeJSON = "application/json"
	contentTypeForm = "application/x-www-form-urlencoded"

	tenantListCacheKeyPrefix = "tenants:"
)

// Provisioner creates tenants.
type Provisioner interface {
	Provision(ctx context.Context, req provisioning.Request) (*provisioning.Result, error)
}

// Deprovisioner deletes tenants.
type Deprovisioner interface {
	Deprovision(ctx context.Context, req provisioning.Request) (*provisioning.Result, error)
}

// Lister lists tenants.
type Lister interface {
	ListTenants(ctx context.Context, owner string) ([]directory.Tenant, error)
}

// CacheRecorder counts tenant listings served from the cache.
type CacheRecorder interface {
	IncTenantListCacheHits()
}

// TenantRequest is the body of /create and /delete requests, sent either as JSON or as a form.
type TenantRequest struct {
	DBName   string `json:"dbName"`
	User     string `json:"user"`
	Password string `json:"password"`
}

// TenantList is the body of a GET /tenants response.
type TenantList struct {
	Items []TenantItem `json:"items"`
	Size  int          `json:"size"`
}

// TenantItem is one tenant in a TenantList.
type TenantItem struct {
	DBName string `json:"dbName"`
	User   string `json:"user"`
}

// TenantHandler serves the tenant endpoints.
type TenantHandler struct {
	provisioner   Provisioner
	deprovisioner Deprovisioner
	lister        Lister
	cache         *cache.Cache
	cacheRecorder CacheRecorder
}

// NewTenantHandler creates a TenantHandler. Tenant listings are cached for cacheTTL; a non-positive
// cacheTTL disables the cache.
func NewTenantHandler(provisioner Provisioner, deprovisioner Deprovisioner, lister Lister, cacheTTL time.Duration, cacheRecorder CacheRecorder) *TenantHandler {
	h := &TenantHandler{
		provisioner:   provisioner,
		deprovisioner: deprovisioner,
		lister:        lister,
		cacheRecorder: cacheRecorder,
	}
	if cacheTTL > 0 {
		h.cache = cache.New(cacheTTL, 2*cacheTTL)
	}
	return h
}

// Create handles POST /create.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTenantRequest(r)
	if err != nil {
		sendError(w, r, provisioning.ReasonInvalidRequest, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.provisioner.Provision(r.Context(), req)
	if err == nil && result.Outcome == provisioning.OutcomeCreated {
		h.invalidateTenantList()
	}
	if !sendWorkflowResponse(w, r, result, err) && err == nil && result.Outcome == provisioning.OutcomeCreated {
		glog.Errorf("%sDatabase %q was created for %q but the client was not told", logger.Prefix(r.Context()), req.Database, req.User)
	}
}

// Delete handles POST /delete.
func (h *TenantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	req, err := decodeTenantRequest(r)
	if err != nil {
		sendError(w, r, provisioning.ReasonInvalidRequest, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.deprovisioner.Deprovision(r.Context(), req)
	// A failed teardown may still have dropped the database.
	if err == nil || provisioning.KindOf(err) == provisioning.MutationError {
		h.invalidateTenantList()
	}
	sendWorkflowResponse(w, r, result, err)
}

// ListTenants handles GET /tenants. The optional user query parameter restricts the listing to one owner.
func (h *TenantHandler) ListTenants(w http.ResponseWriter, r *http.Request) {
	owner := r.URL.Query().Get("user")
	cacheKey := tenantListCacheKeyPrefix + owner

	if h.cache != nil {
		if cached, ok := h.cache.Get(cacheKey); ok {
			if h.cacheRecorder != nil {
				h.cacheRecorder.IncTenantListCacheHits()
			}
			h.sendTenantList(w, r, cached.(TenantList))
			return
		}
	}

	tenants, err := h.lister.ListTenants(r.Context(), owner)
	if err != nil {
		sendResponse(w, r, newErrorResponse(r, err), statusCodeForReason(provisioning.ReasonOf(err)))
		return
	}

	list := TenantList{Items: make([]TenantItem, 0, len(tenants)), Size: len(tenants)}
	for _, tenant := range tenants {
		list.Items = append(list.Items, TenantItem{DBName: tenant.Database, User: tenant.Owner})
	}
	if h.cache != nil {
		h.cache.Set(cacheKey, list, cache.DefaultExpiration)
	}
	h.sendTenantList(w, r, list)
}

// sendTenantList writes the listing as JSON, or as one "dbName user" line per tenant when the client
// asks for text/plain.
func (h *TenantHandler) sendTenantList(w http.ResponseWriter, r *http.Request, list TenantList) {
	if wantsPlainText(r) {
		var b strings.Builder
		for _, item := range list.Items {
			fmt.Fprintf(&b, "%s %s\n", item.DBName, item.User)
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(b.String())); err != nil {
			glog.Errorf("%sFailed writing text response: %v", logger.Prefix(r.Context()), err)
		}
		return
	}
	if err := jsonResponse(w, list, http.StatusOK); err != nil {
		glog.Errorf("%sFailed creating json response: %v", logger.Prefix(r.Context()), err)
	}
}

func (h *TenantHandler) invalidateTenantList() {
	if h.cache != nil {
		h.cache.Flush()
	}
}

func decodeTenantRequest(r *http.Request) (provisioning.Request, error) {
	var body TenantRequest

	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return provisioning.Request{}, fmt.Errorf("malformed Content-Type header: %w", err)
	}

	switch mt {
	case contentTypeJSON:
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return provisioning.Request{}, fmt.Errorf("cannot decode request payload: %w", err)
		}
	case contentTypeForm:
		if err := r.ParseForm(); err != nil {
			return provisioning.Request{}, fmt.Errorf("cannot decode request form: %w", err)
		}
		body.DBName = r.PostForm.Get("dbName")
		body.User = r.PostForm.Get("user")
		body.Password = r.PostForm.Get("password")
	default:
		return provisioning.Request{}, fmt.Errorf("unsupported Content-Type %q", mt)
	}

	return provisioning.Request{
		Database: body.DBName,
		User:     body.User,
		Password: body.Password,
	}, nil
}
