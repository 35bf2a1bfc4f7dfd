package jio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/supperbot/core/logger"
	"github.com/m3rciful/supperbot/internal/money"
	"github.com/m3rciful/supperbot/internal/settle"
)

const component = "jio"

// DefaultWindow is how far back an Open record still counts as the chat's
// current jio.
const DefaultWindow = 4 * time.Hour

// DefaultDelivery is the delivery fee in cents charged to every jio.
const DefaultDelivery int64 = 300

var (
	// ErrJioExists is returned by Create when the chat already has one.
	ErrJioExists = errors.New("jio: already open in chat")
	// ErrNoJio is returned when the jio vanished or closed under the caller.
	ErrNoJio = errors.New("jio: no open jio")
	// ErrNotStarter is returned when someone other than the starter closes.
	ErrNotStarter = errors.New("jio: only the starter can close")
	// ErrItemIndex is returned when a removal index is out of bounds.
	ErrItemIndex = errors.New("jio: item index out of range")
)

// Service enforces the jio lifecycle on top of a Store.
type Service struct {
	store          Store
	now            func() time.Time
	window         time.Duration
	establishments []string
	gstRate        decimal.Decimal
	escape         func(string) string
}

// Option customises a Service.
type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithWindow overrides the lookback window.
func WithWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithGSTRate overrides the GST rate used at settlement.
func WithGSTRate(rate decimal.Decimal) Option {
	return func(s *Service) {
		if rate.IsPositive() {
			s.gstRate = rate
		}
	}
}

// WithEscaper sets the function applied to names in rendered summaries,
// typically a markup escaper for the transport's parse mode.
func WithEscaper(fn func(string) string) Option {
	return func(s *Service) {
		s.escape = fn
	}
}

// NewService builds a Service. establishments is the set Create accepts.
func NewService(store Store, establishments []string, opts ...Option) *Service {
	s := &Service{
		store:          store,
		now:            time.Now,
		window:         DefaultWindow,
		establishments: append([]string(nil), establishments...),
		gstRate:        money.DefaultGSTRate,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Establishments returns the accepted establishment names in display order.
func (s *Service) Establishments() []string {
	return append([]string(nil), s.establishments...)
}

// maxKeyRetries bounds how far Create moves the timestamp past a key taken
// by a jio closed in the same second.
const maxKeyRetries = 3

func (s *Service) since() int64 {
	return s.now().Add(-s.window).Unix()
}

// Exists returns the chat's current Open jio or nil.
func (s *Service) Exists(ctx context.Context, chatID int64) (*Jio, error) {
	j, err := s.store.FindOpen(ctx, chatID, s.since())
	if err != nil {
		return nil, fmt.Errorf("find open jio: %w", err)
	}
	return j, nil
}

// Create opens a jio for chatID unless one is already open.
func (s *Service) Create(ctx context.Context, chatID, starterID int64, p Params) (*Jio, error) {
	if err := p.Validate(s.establishments); err != nil {
		return nil, err
	}
	j := &Jio{
		ChatID:        chatID,
		Timestamp:     s.now().Unix(),
		StarterID:     starterID,
		Status:        StatusOpen,
		Establishment: p.Establishment,
		Closes:        p.Closes,
		Split:         p.Split,
		GST:           p.GST,
		Delivery:      p.Delivery,
		Orders:        Orders{},
	}
	since := s.since()
	for attempt := 0; ; attempt++ {
		ok, err := s.store.CreateIfAbsent(ctx, j, since)
		if err != nil {
			return nil, fmt.Errorf("create jio: %w", err)
		}
		if ok {
			break
		}
		// A refusal with nothing open means the key is held by a jio
		// closed within the same second.
		cur, err := s.store.FindOpen(ctx, chatID, since)
		if err != nil {
			return nil, fmt.Errorf("find open jio: %w", err)
		}
		if cur != nil || attempt == maxKeyRetries {
			return nil, ErrJioExists
		}
		j.Timestamp++
	}
	logger.Info(ctx, component, "jio.create",
		slog.Int64("jio_ts", j.Timestamp),
		slog.String("establishment", j.Establishment),
		slog.String("split", string(j.Split)),
		slog.String("gst", string(j.GST)),
	)
	return j, nil
}

// AddItem appends item to the user's order.
func (s *Service) AddItem(ctx context.Context, j *Jio, userID int64, firstName string, item Item) error {
	if item.Price < 0 {
		return fmt.Errorf("%w: negative price %d", ErrInvalidParams, item.Price)
	}
	ok, err := s.store.AppendToList(ctx, j.Key(), ParticipantKey(userID), firstName, item)
	if err != nil {
		return fmt.Errorf("append item: %w", err)
	}
	if !ok {
		return ErrNoJio
	}
	logger.Debug(ctx, component, "jio.item_add", slog.String("item", item.Name), slog.Int64("price", item.Price))
	return nil
}

// RemoveItem drops the item at index from the user's order. The index is
// checked against the stored list, not the caller's snapshot.
func (s *Service) RemoveItem(ctx context.Context, j *Jio, userID int64, index int) error {
	if index < 0 {
		return ErrItemIndex
	}
	ok, err := s.store.RemoveAtIndex(ctx, j.Key(), ParticipantKey(userID), index)
	if err != nil {
		return fmt.Errorf("remove item: %w", err)
	}
	if !ok {
		cur, err := s.store.FindOpen(ctx, j.ChatID, s.since())
		if err != nil {
			return fmt.Errorf("find open jio: %w", err)
		}
		if cur == nil || cur.Key() != j.Key() {
			return ErrNoJio
		}
		return ErrItemIndex
	}
	logger.Debug(ctx, component, "jio.item_remove", slog.Int("index", index))
	return nil
}

// Close settles j and marks it Closed. Only the starter may close, and only
// the first close to reach the store wins; a loser gets ErrNoJio and must
// not broadcast the result.
func (s *Service) Close(ctx context.Context, j *Jio, userID int64) (settle.Result, error) {
	if j.StarterID != userID {
		return settle.Result{}, ErrNotStarter
	}
	in := j.SettlementInput(s.gstRate)
	in.Escape = s.escape
	res := settle.Compute(in)
	ok, err := s.store.SetStatus(ctx, j.Key(), StatusOpen, StatusClosed)
	if err != nil {
		return settle.Result{}, fmt.Errorf("close jio: %w", err)
	}
	if !ok {
		return settle.Result{}, ErrNoJio
	}
	logger.Info(ctx, component, "jio.close",
		slog.Int64("jio_ts", j.Timestamp),
		slog.Int("count", len(res.Shares)),
		slog.Int64("total", res.GrandTotal),
	)
	return res, nil
}

// OrderSummary lists each participant's items grouped by name and price,
// or "None so far".
func (s *Service) OrderSummary(j *Jio) string {
	esc := s.escape
	if esc == nil {
		esc = func(v string) string { return v }
	}
	var lines []string
	for _, id := range j.participantIDs() {
		o := j.Orders[id]
		var (
			order  []Item
			counts = map[Item]int{}
		)
		for _, it := range o.Items {
			if _, seen := counts[it]; !seen {
				order = append(order, it)
			}
			counts[it]++
		}
		for _, it := range order {
			lines = append(lines, fmt.Sprintf("%s - %s x %d", esc(o.FirstName), esc(it.Name), counts[it]))
		}
	}
	if len(lines) == 0 {
		return "None so far"
	}
	return strings.Join(lines, "\n")
}
