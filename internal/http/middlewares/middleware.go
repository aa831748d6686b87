package middlewares

import "net/http"

// Middleware decorates an http.Handler. Every constructor in this
// package returns one, and the router mounts them through chi's Use.
type Middleware func(http.Handler) http.Handler
