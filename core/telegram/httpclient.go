package telegram

import (
	"net"
	"net/http"
	"time"
)

const (
	defaultDialTimeout       = 5 * time.Second
	defaultTLSHandshake      = 5 * time.Second
	defaultIdleConnTimeout   = 30 * time.Second
	defaultResponseSlack     = 10 * time.Second
	defaultKeepAliveInterval = 30 * time.Second
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// longPoll is the getUpdates timeout; headers and the whole request are
// allowed that long plus some slack so idle polls are not cut short.
// Retries live in the sender dispatcher, not in the transport, because
// a repeated sendMessage would post twice.
func BuildHTTPClient(longPoll time.Duration) *http.Client {
	if longPoll < 0 {
		longPoll = 0
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: defaultDialTimeout, KeepAlive: defaultKeepAliveInterval}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       defaultIdleConnTimeout,
		TLSHandshakeTimeout:   defaultTLSHandshake,
		ResponseHeaderTimeout: longPoll + defaultResponseSlack,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Timeout:   longPoll + 2*defaultResponseSlack,
		Transport: transport,
	}
}
