// Package middleware holds the HTTP wrappers applied around the lookup
// handler.
package middleware

import (
	"net/http"
)

const (
	originHeader           = "Origin"
	requestMethodHeader    = "Access-Control-Request-Method"
	requestHeadersHeader   = "Access-Control-Request-Headers"
	allowOriginHeader      = "Access-Control-Allow-Origin"
	allowMethodsHeader     = "Access-Control-Allow-Methods"
	allowHeadersHeader     = "Access-Control-Allow-Headers"
	allowCredentialsHeader = "Access-Control-Allow-Credentials"
	maxAgeHeader           = "Access-Control-Max-Age"
)

// CORSMiddleware allows cross-origin calls from any origin with any
// method and any headers, credentials included. The requesting origin is
// echoed back rather than wildcarded because wildcards and credentials
// don't mix.
type CORSMiddleware struct {
	next http.Handler
}

func NewCORSMiddleware(next http.Handler) *CORSMiddleware {
	return &CORSMiddleware{
		next: next,
	}
}

func (m *CORSMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	origin := r.Header.Get(originHeader)
	if origin != "" {
		h := w.Header()
		h.Set(allowOriginHeader, origin)
		h.Set(allowCredentialsHeader, "true")
		h.Add("Vary", originHeader)
	}

	if r.Method == http.MethodOptions && r.Header.Get(requestMethodHeader) != "" {
		h := w.Header()
		h.Set(allowMethodsHeader, r.Header.Get(requestMethodHeader))
		if reqHeaders := r.Header.Get(requestHeadersHeader); reqHeaders != "" {
			h.Set(allowHeadersHeader, reqHeaders)
		}
		h.Set(maxAgeHeader, "86400")
		w.WriteHeader(http.StatusOK)
		return
	}

	m.next.ServeHTTP(w, r)
}
