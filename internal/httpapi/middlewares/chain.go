package middlewares

import "net/http"

// Middleware decorates an http.Handler. The signature matches chi's
// middleware contract, so these compose through the router's Use/With.
type Middleware func(http.Handler) http.Handler
