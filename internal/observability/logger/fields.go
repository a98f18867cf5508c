package logger

import (
	"time"

	"go.uber.org/zap"
)

// Standard fields - HTTP

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

// ClientIP creates a field for the client address.
func ClientIP(v string) zap.Field {
	return zap.String("client_ip", v)
}

// Standard fields - domain

// PlatformID creates a field for the OAuth client / platform id.
func PlatformID(v string) zap.Field {
	return zap.String("platform_id", v)
}

// UserID creates a field for the user id.
func UserID(v string) zap.Field {
	return zap.String("user_id", v)
}

// Subject creates a field for a token subject.
func Subject(v string) zap.Field {
	return zap.String("subject", v)
}

// Grant creates a field for the OAuth grant type.
func Grant(v string) zap.Field {
	return zap.String("grant_type", v)
}

// Scope creates a field for a scope set.
func Scope(v []string) zap.Field {
	return zap.Strings("scope", v)
}

// Standard fields - system

// Op creates a field for the current operation.
func Op(v string) zap.Field {
	return zap.String("op", v)
}

// Layer creates a field for the layer (controller, service, store).
func Layer(v string) zap.Field {
	return zap.String("layer", v)
}

// Err creates a field for an error.
func Err(err error) zap.Field {
	return zap.Error(err)
}

// Generic fields

// String creates a generic string field.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}

// Int creates a generic int field.
func Int(key string, v int) zap.Field {
	return zap.Int(key, v)
}

// Any creates a generic field for any value.
func Any(key string, v any) zap.Field {
	return zap.Any(key, v)
}
