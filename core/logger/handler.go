package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
)

type logFormat uint8

const (
	formatJSON logFormat = iota
	formatKV
)

const tsLayout = "2006-01-02T15:04:05.000Z07:00"

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders every record as one line with a stable key
// order. It is shared by all loggers derived from L.
type structuredHandler struct {
	cfg    handlerConfig
	rank   map[string]int
	attrs  []slog.Attr
	prefix string
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	rank := make(map[string]int, len(cfg.keyOrder))
	for i, k := range cfg.keyOrder {
		if _, dup := rank[k]; !dup {
			rank[k] = i
		}
	}
	return &structuredHandler{cfg: cfg, rank: rank}
}

func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errors.New("logger: writer not initialised")
	}
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.UTC()

	f := make(fields, 16)
	f["ts"] = ts.Truncate(time.Millisecond).Format(tsLayout)
	f["level"] = levelName(r.Level)
	for _, a := range h.attrs {
		f.add("", a)
	}
	r.Attrs(func(a slog.Attr) bool {
		f.add(h.prefix, a)
		return true
	})
	f.fromContext(ctx)

	asJSON := h.cfg.format == formatJSON
	if asJSON {
		f["ts_unix_nano"] = ts.UnixNano()
	}
	f.finish(r.Message, asJSON)

	var line []byte
	if asJSON {
		var err error
		if line, err = h.renderJSON(f); err != nil {
			return err
		}
	} else {
		line = h.renderKV(f)
	}
	return h.cfg.writer.Write(append(line, '\n'))
}

func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next.attrs = append(append(next.attrs, h.attrs...), attrs...)
	if h.prefix != "" {
		for i := len(h.attrs); i < len(next.attrs); i++ {
			next.attrs[i].Key = h.prefix + "." + next.attrs[i].Key
		}
	}
	return &next
}

func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	if next.prefix == "" {
		next.prefix = name
	} else {
		next.prefix += "." + name
	}
	return &next
}

// keys sorts by configured rank, unranked keys last in name order.
func (h *structuredHandler) keys(f fields) []string {
	out := make([]string, 0, len(f))
	for k := range f {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		ri, iok := h.rank[out[i]]
		rj, jok := h.rank[out[j]]
		switch {
		case iok && jok:
			return ri < rj
		case iok != jok:
			return iok
		}
		return out[i] < out[j]
	})
	return out
}

func (h *structuredHandler) renderJSON(f fields) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range h.keys(f) {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		vb, err := json.Marshal(f[k])
		if err != nil {
			vb, _ = json.Marshal(fmt.Sprint(f[k]))
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (h *structuredHandler) renderKV(f fields) []byte {
	var buf bytes.Buffer
	for i, k := range h.keys(f) {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(k)
		buf.WriteByte('=')
		buf.WriteString(kvValue(f[k]))
	}
	return buf.Bytes()
}

func kvValue(v any) string {
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		s = fmt.Sprint(x)
	}
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
