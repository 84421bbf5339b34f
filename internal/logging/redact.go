package logging

import (
	"log/slog"
	"strings"
)

const redactedValue = "[REDACTED]"

// sensitiveKeys match a whole key or its last underscore-separated part, so
// "token" also covers "refresh_token" and "share_token".
var sensitiveKeys = map[string]struct{}{
	"password":       {},
	"password_hash":  {},
	"token":          {},
	"secret":         {},
	"encryption_key": {},
	"plaintext":      {},
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	if _, ok := sensitiveKeys[key]; ok {
		return true
	}
	if i := strings.LastIndexByte(key, '_'); i >= 0 {
		_, ok := sensitiveKeys[key[i+1:]]
		return ok
	}
	return false
}

// redact returns args with the values of credential keys replaced. args
// follows the slog convention: key-value pairs mixed with slog.Attr values.
// The input slice is never modified.
func redact(args []any) []any {
	var out []any
	set := func(i int, v any) {
		if out == nil {
			out = append([]any(nil), args...)
		}
		out[i] = v
	}

	for i := 0; i < len(args); i++ {
		switch k := args[i].(type) {
		case slog.Attr:
			if isSensitive(k.Key) {
				set(i, slog.String(k.Key, redactedValue))
			}
		case string:
			if i+1 < len(args) && isSensitive(k) {
				set(i+1, redactedValue)
			}
			i++
		default:
			i++
		}
	}

	if out == nil {
		return args
	}
	return out
}
