package sender

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"regexp"

	tele "gopkg.in/telebot.v4"
)

var tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)

// redact strips bot tokens that net/http embeds in request URLs.
func redact(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}

// classify buckets a send failure for the error_kind log field.
func classify(err error) string {
	var (
		netErr  net.Error
		dnsErr  *net.DNSError
		opErr   *net.OpError
		tlsErr  tls.AlertError
		apiErr  *tele.Error
		flood   tele.FloodError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &dnsErr):
		return "dns"
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return "dial"
	case errors.As(err, &tlsErr):
		return "tls"
	case errors.As(err, &flood):
		return "flood"
	case errors.As(err, &apiErr) && apiErr.Code >= 500:
		return "http_5xx"
	case errors.As(err, &apiErr) && apiErr.Code >= 400:
		return "http_4xx"
	}
	return "unknown"
}
