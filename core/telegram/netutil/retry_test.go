package netutil

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	tele "gopkg.in/telebot.v4"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestShouldRetry(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"chat not found", tele.ErrChatNotFound, false},
		{"server error", &tele.Error{Code: 502, Description: "Bad Gateway"}, true},
		{"flood", tele.FloodError{RetryAfter: 3}, true},
		{"dial", &net.OpError{Op: "dial", Err: errors.New("refused")}, true},
		{"timeout", timeoutErr{}, true},
		{"url wrapped dial", &url.Error{Op: "Post", URL: "https://api.telegram.org", Err: &net.OpError{Op: "dial", Err: errors.New("refused")}}, true},
		{"wrapped", fmt.Errorf("send: %w", &tele.Error{Code: 500}), true},
		{"canceled", context.Canceled, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ShouldRetry(tc.err))
		})
	}
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, 3*time.Second, RetryAfter(tele.FloodError{RetryAfter: 3}))
	assert.Zero(t, RetryAfter(errors.New("boom")))
}
