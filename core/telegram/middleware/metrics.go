package middleware

import tele "gopkg.in/telebot.v4"

const countersKey = "reply_counters"

// counters tallies what a handler sent back for the handler.handled line.
type counters struct {
	messages int
	keyboard bool
}

func countersOf(c tele.Context) *counters {
	if n, ok := c.Get(countersKey).(*counters); ok {
		return n
	}
	n := &counters{}
	c.Set(countersKey, n)
	return n
}

// countingContext intercepts Send and Edit to feed counters.
type countingContext struct{ tele.Context }

func (c countingContext) Send(what any, opts ...any) error {
	if err := c.Context.Send(what, opts...); err != nil {
		return err
	}
	CountMessage(c.Context, withMarkup(opts))
	return nil
}

func (c countingContext) Edit(what any, opts ...any) error {
	if err := c.Context.Edit(what, opts...); err != nil {
		return err
	}
	CountMessage(c.Context, withMarkup(opts))
	return nil
}

func withMarkup(opts []any) bool {
	for _, o := range opts {
		switch v := o.(type) {
		case *tele.ReplyMarkup:
			return v != nil
		case *tele.SendOptions:
			return v != nil && v.ReplyMarkup != nil
		}
	}
	return false
}

// MessageMetricsMiddleware resets the reply counters and hands the handler
// a context that counts its Send and Edit calls.
func MessageMetricsMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(countersKey, &counters{})
		return next(countingContext{Context: c})
	}
}

// CountMessage records one reply sent outside c, for example through the
// bot API by a messenger.
func CountMessage(c tele.Context, hasKB bool) {
	if c == nil {
		return
	}
	n := countersOf(c)
	n.messages++
	n.keyboard = n.keyboard || hasKB
}

// GetCounters returns the replies sent so far and whether any had a keyboard.
func GetCounters(c tele.Context) (int, bool) {
	n, ok := c.Get(countersKey).(*counters)
	if !ok {
		return 0, false
	}
	return n.messages, n.keyboard
}
