package server

import (
	"net/http"
)

func (h *Handler) servePrincipal(w http.ResponseWriter, r *http.Request, rc *RequestContext) {
	switch r.Method {
	case http.MethodOptions:
		setOptions(w, principalMethods)
	case "PROPFIND":
		h.handlePropfind(w, r, rc)
	default:
		h.missing(w, r, rc, "method handler not found: "+r.Method)
	}
}
