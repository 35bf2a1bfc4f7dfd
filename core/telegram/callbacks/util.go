package callbacks

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// tokenSep separates the operation prefix of a raw flow token from the rest.
const tokenSep = "_"

// ParseCallbackData splits callback data into a routing key and payload.
//
// Two encodings are accepted. Telebot's own "\f<unique>|<payload>" yields
// unique and payload. Anything else is a raw flow token such as
// "additem_-100123_0_2": the key is the text before the first underscore and
// the payload is the whole token, since handlers decode it end to end.
func ParseCallbackData(cb *tele.Callback) (string, string) {
	if cb == nil {
		return "", ""
	}
	if cb.Unique != "" {
		return cb.Unique, cb.Data
	}
	raw := strings.TrimSpace(cb.Data)
	if rest, ok := strings.CutPrefix(raw, "\f"); ok {
		unique, payload, _ := strings.Cut(rest, "|")
		return strings.TrimSpace(unique), payload
	}
	key, _, _ := strings.Cut(raw, tokenSep)
	return key, raw
}

// CallbackKey returns the routing key of the current callback.
func CallbackKey(c tele.Context) string {
	k, _ := ParseCallbackData(c.Callback())
	return k
}

// CallbackPayload returns the payload of the current callback.
func CallbackPayload(c tele.Context) string {
	_, payload := ParseCallbackData(c.Callback())
	return payload
}
