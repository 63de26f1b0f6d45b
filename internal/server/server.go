// Package server provides the Core's own HTTP surface (spec §6 [AMBIENT]
// "server wiring"): the webhook receiver plus /healthz and /metrics. General
// read/write API wiring for a web UI is out of scope per spec §1's
// Non-goals; this is only the ambient surface any running service needs,
// built the same stdlib `http.Handle` + `http.ListenAndServe` way the
// teacher's cmd/warren/main.go starts its metrics/health listener.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/komodo-io/komodo-core/internal/domain"
	"github.com/komodo-io/komodo-core/internal/exec"
	"github.com/komodo-io/komodo-core/internal/logging"
	"github.com/komodo-io/komodo-core/internal/metrics"
	"github.com/komodo-io/komodo-core/internal/store"
	"github.com/komodo-io/komodo-core/internal/webhook"
)

var (
	errDisabled          = errors.New("webhook not enabled for this resource")
	errUnsupportedKind   = errors.New("unsupported listener kind")
	errUnsupportedAction = errors.New("unsupported listener action")
)

// webhookOperator is the synthetic identity every webhook-triggered
// operation runs under, distinct from exec.SyncOperator's deploy-cache fan
// out so journal entries show what actually started the chain.
const webhookOperator = "webhook"

// Server holds the dependencies the HTTP surface needs to route webhook
// deliveries to the execution engine.
type Server struct {
	Store         *store.Store
	Engine        *exec.Engine
	WebhookSecret string // core-wide fallback (spec §6 "resource's override or core-wide webhook_secret")
}

// Handler builds the root http.Handler: request logging and panic recovery
// wrap every route, matching the teacher's middleware-light, handler-per-
// concern shape in pkg/api/server.go.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/listener/", s.handleListener)
	return recoverMiddleware(logMiddleware(mux))
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleListener implements "POST /listener/{provider}/{kind}/{id}/{action}"
// (spec §6). provider is accepted but not yet branched on — every configured
// git/scm provider delivers the same shape of payload this receiver cares
// about (a push/refresh trigger), so provider only affects signature
// verification conventions a future provider-specific Verify would use.
func (s *Server) handleListener(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/listener/"), "/"), "/")
	if len(parts) != 4 {
		http.Error(w, "malformed listener path, want /listener/{provider}/{kind}/{id}/{action}", http.StatusBadRequest)
		return
	}
	_, kind, id, action := parts[0], parts[1], parts[2], parts[3]

	_, secret, err := s.resolveWebhook(domain.Kind(kind), id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	rawBody, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if !webhook.Verify(secret, rawBody, r.Header.Get("X-Hub-Signature-256")) {
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	if err := s.dispatch(domain.Kind(kind), id, action); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

// resolveWebhook looks up the target resource's per-resource webhook secret,
// falling back to the core-wide one (spec §6 "resource's override or
// core-wide webhook_secret").
func (s *Server) resolveWebhook(kind domain.Kind, id string) (enabled bool, secret string, err error) {
	switch kind {
	case domain.KindResourceSync:
		sync, getErr := s.Store.GetResourceSync(id)
		if getErr != nil {
			sync, getErr = s.Store.GetResourceSyncByName(id)
		}
		if getErr != nil {
			return false, "", getErr
		}
		if !sync.Config.WebhookEnabled {
			return false, "", errDisabled
		}
		return true, defaultSecret(sync.Config.WebhookSecret, s.WebhookSecret), nil
	case domain.KindStack:
		st, getErr := s.Store.GetStack(id)
		if getErr != nil {
			st, getErr = s.Store.GetStackByName(id)
		}
		if getErr != nil {
			return false, "", getErr
		}
		if !st.Config.WebhookEnabled {
			return false, "", errDisabled
		}
		return true, defaultSecret(st.Config.WebhookSecret, s.WebhookSecret), nil
	default:
		return false, "", errUnsupportedKind
	}
}

// dispatch runs the operation action names against id (spec §6 "action in
// {refresh, sync} for syncs, etc").
func (s *Server) dispatch(kind domain.Kind, id, action string) error {
	switch {
	case kind == domain.KindResourceSync && (action == "sync" || action == "refresh"):
		_, err := s.Engine.RunSync(id, webhookOperator)
		return err
	case kind == domain.KindStack && (action == "sync" || action == "refresh" || action == "deploy"):
		_, err := s.Engine.DeployStackIfChanged(id, webhookOperator)
		return err
	default:
		return errUnsupportedAction
	}
}

func defaultSecret(resourceSecret, coreSecret string) string {
	if resourceSecret != "" {
		return resourceSecret
	}
	return coreSecret
}

func recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.Logger.Error().Interface("panic", rec).Str("path", r.URL.Path).Msg("recovered from panic in HTTP handler")
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}
