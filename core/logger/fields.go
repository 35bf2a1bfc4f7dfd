package logger

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
)

// defaultKeyOrder puts identity first, then the bot's domain keys, then
// errors. Keys not listed follow alphabetically.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "status",
	"rid", "rid_full", "ts_unix_nano", "update_id", "user_id", "chat_id", "chat_type",
	"handler", "op", "cb_key", "outcome", "duration_ms", "messages", "kb",
	"jio_ts", "stage", "index", "total", "count", "payload", "username",
	"action", "endpoint", "mode", "listen", "public_url", "driver", "version", "applied",
	"err", "err_code", "error_kind", "cause", "attempt", "attempts",
}

var knownStatus = map[string]bool{
	"ok": true, "fail": true, "skip": true, "retry": true, "rate_limited": true, "cancelled": true,
}

var knownOutcome = map[string]bool{
	"ok": true, "fail": true, "cancelled": true, "rate_limited": true,
}

// fields is one log line before rendering.
type fields map[string]any

func (f fields) add(prefix string, a slog.Attr) {
	key := a.Key
	switch {
	case key == "":
		key = prefix
	case prefix != "":
		key = prefix + "." + key
	}
	v := a.Value.Resolve()
	if v.Kind() == slog.KindGroup {
		for _, child := range v.Group() {
			f.add(key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if k, val, ok := normalize(key, v); ok {
		f[k] = val
	}
}

// normalize renders durations as whole milliseconds under a "_ms" key and
// flattens errors and stringers to text.
func normalize(key string, v slog.Value) (string, any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return key, strings.TrimSpace(v.String()), true
	case slog.KindDuration:
		if !strings.HasSuffix(key, "_ms") {
			key += "_ms"
		}
		return key, RoundMS(v.Duration()).Milliseconds(), true
	case slog.KindTime:
		return key, v.Time().UTC().Format(time.RFC3339Nano), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return key, int64(u), true
		}
	case slog.KindAny:
		switch x := v.Any().(type) {
		case nil:
			return "", nil, false
		case error:
			return key, x.Error(), true
		case fmt.Stringer:
			return key, x.String(), true
		default:
			return key, fmt.Sprint(x), true
		}
	}
	return key, v.Any(), true
}

// fromContext fills identity fields the caller did not set explicitly.
func (f fields) fromContext(ctx context.Context) {
	m := metaFrom(ctx)
	f.setDefault("rid", m.rid, m.rid != "")
	f.setDefault("op", m.op, m.op != "")
	f.setDefault("user_id", m.userID, m.userID != 0)
	f.setDefault("update_id", m.updateID, m.updateID != 0)
	f.setDefault("chat_id", m.chatID, m.chatID != 0)
	f.setDefault("handler", m.handler, m.handler != "")
}

func (f fields) setDefault(key string, val any, present bool) {
	if _, ok := f[key]; !ok && present {
		f[key] = val
	}
}

func (f fields) str(key string) string {
	s, _ := f[key].(string)
	return s
}

// finish applies the line invariants: compact rid, event and component
// always present, enumerations normalised, empties dropped.
func (f fields) finish(msg string, keepFullRID bool) {
	if rid := f.str("rid"); rid != "" {
		if compact := CompactRID(rid); compact != rid {
			if keepFullRID {
				f.setDefault("rid_full", rid, true)
			}
			f["rid"] = compact
		}
	}
	if f.str("event") == "" {
		if msg == "" {
			msg = "unknown"
		}
		f["event"] = msg
	}
	if f.str("component") == "" {
		f["component"] = "app"
	}
	if s := strings.ToLower(f.str("status")); knownStatus[s] {
		f["status"] = s
	}
	if o, ok := f["outcome"].(string); ok && !knownOutcome[strings.ToLower(o)] {
		delete(f, "outcome")
	}
	for k, v := range f {
		if v == nil || v == "" {
			delete(f, k)
		}
	}
}

func levelName(l slog.Level) string {
	switch {
	case l >= slog.LevelError:
		return "ERROR"
	case l >= slog.LevelWarn:
		return "WARN"
	case l >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
