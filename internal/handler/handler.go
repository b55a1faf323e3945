package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/anisimovdk/cloud-range-blocker/internal/config"
	"github.com/anisimovdk/cloud-range-blocker/internal/ipdata"
	"github.com/anisimovdk/cloud-range-blocker/internal/prefix"
)

// Handler handles HTTP requests for the provider range service
type Handler struct {
	processor ipdata.IPProcessor
	config    *config.Config
}

// NewHandler creates a new handler
func NewHandler(processor ipdata.IPProcessor, cfg *config.Config) *Handler {
	return &Handler{
		processor: processor,
		config:    cfg,
	}
}

// RegisterRoutes registers the HTTP routes for the handler
func (h *Handler) RegisterRoutes() {
	h.RegisterRoutesOn(http.DefaultServeMux)
}

// RegisterRoutesOn registers the HTTP routes for the handler on the provided mux.
func (h *Handler) RegisterRoutesOn(mux *http.ServeMux) {
	mux.HandleFunc("/get", h.getPrefixListHandler)
}

// getPrefixListHandler writes the prefixes of one provider, one CIDR per line
func (h *Handler) getPrefixListHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	query := r.URL.Query()
	provider := query.Get("provider")
	auth := query.Get("auth")

	if provider == "" {
		http.Error(w, "Missing provider parameter", http.StatusBadRequest)
		return
	}

	// Only check authentication if an AuthToken is configured
	if h.config.AuthToken != "" && auth != h.config.AuthToken {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	family, ok := parseFamily(query.Get("family"))
	if !ok {
		http.Error(w, "Invalid family parameter, expected 4 or 6", http.StatusBadRequest)
		return
	}

	prefixes, err := h.processor.GetPrefixes(r.Context(), provider)
	if errors.Is(err, ipdata.ErrUnknownProvider) {
		http.Error(w, "Unknown provider, expected one of: "+strings.Join(ipdata.Providers(), ", "), http.StatusBadRequest)
		return
	}
	if err != nil {
		log.Error("Failed to load provider ranges", "provider", provider, "error", err)
		http.Error(w, "Error processing request: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain")

	var b strings.Builder
	for _, p := range prefixes {
		if family != 0 && p.Family() != family {
			continue
		}
		b.WriteString(p.String())
		b.WriteByte('\n')
	}
	w.Write([]byte(b.String()))
}

// parseFamily maps "", "4" and "6" to a family filter; 0 means no filter.
func parseFamily(raw string) (prefix.Family, bool) {
	switch raw {
	case "":
		return 0, true
	case "4":
		return prefix.IPv4, true
	case "6":
		return prefix.IPv6, true
	default:
		return 0, false
	}
}
