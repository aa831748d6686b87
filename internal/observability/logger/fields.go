package logger

import (
	"time"

	"go.uber.org/zap"

	"github.com/tastebase/auth/internal/util"
)

// =================================================================================
// STANDARD FIELDS - HTTP
// =================================================================================

// RequestID creates a field for the request id.
func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

// Method creates a field for the HTTP method.
func Method(v string) zap.Field {
	return zap.String("method", v)
}

// Path creates a field for the request path.
func Path(v string) zap.Field {
	return zap.String("path", v)
}

// Status creates a field for the HTTP status code.
func Status(v int) zap.Field {
	return zap.Int("status", v)
}

// Duration creates a field for the request duration.
func Duration(v time.Duration) zap.Field {
	return zap.Duration("duration", v)
}

// Bytes creates a field for the response size.
func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// ClientIP creates a field for the client IP.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// =================================================================================
// STANDARD FIELDS - DOMAIN
// =================================================================================

// UserID creates a field for the user id.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// SessionID creates a field for the session id.
func SessionID(v string) zap.Field {
	return zap.String("session_id", v)
}

// Identifier creates a field for a login identifier, masked so raw
// emails and phone numbers stay out of the logs.
func Identifier(v string) zap.Field {
	return zap.String("identifier", util.MaskIdentifier(v))
}

// CodeType creates a field for a verification code type.
func CodeType(v string) zap.Field {
	return zap.String("code_type", v)
}

// Region creates a field for the opaque region tag.
func Region(v string) zap.Field {
	return zap.String("region", v)
}

// =================================================================================
// STANDARD FIELDS - SYSTEM
// =================================================================================

// Component creates a field for the component/module.
func Component(v string) zap.Field {
	return zap.String("component", v)
}

// Op creates a field for the current operation.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer creates a field for the layer (controller, service, repository).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err creates a field for an error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// =================================================================================
// GENERIC FIELDS
// =================================================================================

// Count creates a field for a count.
func Count(v int) zap.Field {
	return zap.Int("count", v)
}

// String creates a generic string field.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int creates a generic int field.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Bool creates a generic bool field.
func Bool(key string, v bool) zap.Field {
	return zap.Bool(key, v)
}

// Any creates a generic field for any value.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}
