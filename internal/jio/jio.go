// Package jio holds the group order session ("jio"): its persisted record,
// the keyed-store contract it is mutated through, and the service that
// enforces the session lifecycle.
package jio

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/supperbot/internal/settle"
)

// Status is monotonic: Open -> Closed.
type Status string

const (
	StatusOpen   Status = "Open"
	StatusClosed Status = "Closed"
)

// SplitPolicy decides how the delivery fee is shared.
type SplitPolicy string

const (
	SplitEqually  SplitPolicy = "Split Equally"
	SplitWeighted SplitPolicy = "Weighted"
	SplitFree     SplitPolicy = "Free"
)

// GSTPolicy decides whether GST is charged on top of item prices.
type GSTPolicy string

const (
	GSTIncluded    GSTPolicy = "Included"
	GSTNotIncluded GSTPolicy = "Not Included"
)

// Option sets offered by the open flow, in display order.
var (
	ClosingDelays = []int{15, 30, 45, 60, 90}
	SplitPolicies = []SplitPolicy{SplitEqually, SplitWeighted, SplitFree}
	GSTPolicies   = []GSTPolicy{GSTIncluded, GSTNotIncluded}
)

// Item is one ordered line.
type Item struct {
	Name  string `json:"item"`
	Price int64  `json:"price"`
}

// Order is one participant's entry.
type Order struct {
	FirstName string `json:"firstname"`
	Items     []Item `json:"items"`
}

// Orders maps participant id (decimal string) to their order.
type Orders map[string]Order

// Value implements driver.Valuer for the JSONB column.
func (o Orders) Value() (driver.Value, error) {
	if o == nil {
		return "{}", nil
	}
	b, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for the JSONB column.
func (o *Orders) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*o = Orders{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("jio: cannot scan %T into Orders", src)
	}
	out := Orders{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("jio: decode orders: %w", err)
	}
	*o = out
	return nil
}

// Key is the composite identity every mutation is keyed on.
type Key struct {
	ChatID    int64
	Timestamp int64
}

// Jio is the persisted session record.
type Jio struct {
	ChatID        int64       `db:"chat_id"`
	Timestamp     int64       `db:"timestamp"`
	StarterID     int64       `db:"starter_id"`
	Status        Status      `db:"status"`
	Establishment string      `db:"type"`
	Closes        int         `db:"closes"`
	Split         SplitPolicy `db:"split"`
	GST           GSTPolicy   `db:"gst"`
	Delivery      int64       `db:"delivery"`
	Orders        Orders      `db:"orders"`
}

// Key returns the record identity.
func (j *Jio) Key() Key {
	return Key{ChatID: j.ChatID, Timestamp: j.Timestamp}
}

// Items returns the participant's items in the loaded snapshot.
func (j *Jio) Items(userID int64) []Item {
	return j.Orders[ParticipantKey(userID)].Items
}

// Clone deep-copies the record.
func (j *Jio) Clone() *Jio {
	cp := *j
	cp.Orders = make(Orders, len(j.Orders))
	for id, o := range j.Orders {
		cp.Orders[id] = Order{FirstName: o.FirstName, Items: slices.Clone(o.Items)}
	}
	return &cp
}

// ParticipantKey is the orders map key for a user id.
func ParticipantKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

// participantIDs lists order keys numerically ascending so that summaries
// are rendered in a stable order.
func (j *Jio) participantIDs() []string {
	ids := make([]string, 0, len(j.Orders))
	for id := range j.Orders {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(a, b int) bool {
		x, errX := strconv.ParseInt(ids[a], 10, 64)
		y, errY := strconv.ParseInt(ids[b], 10, 64)
		if errX != nil || errY != nil {
			return ids[a] < ids[b]
		}
		return x < y
	})
	return ids
}

// SettlementInput converts the snapshot for the settlement engine.
func (j *Jio) SettlementInput(gstRate decimal.Decimal) settle.Input {
	in := settle.Input{
		Delivery:    j.Delivery,
		GSTIncluded: j.GST == GSTIncluded,
		GSTRate:     gstRate,
	}
	switch j.Split {
	case SplitWeighted:
		in.Split = settle.SplitWeighted
	case SplitFree:
		in.Split = settle.SplitFree
	default:
		in.Split = settle.SplitEqual
	}
	for _, id := range j.participantIDs() {
		o := j.Orders[id]
		p := settle.Participant{ID: id, Name: o.FirstName}
		for _, it := range o.Items {
			p.Items = append(p.Items, settle.Line{Name: it.Name, Price: it.Price})
		}
		in.Participants = append(in.Participants, p)
	}
	return in
}

// Params are the immutable options fixed when a jio opens.
type Params struct {
	Establishment string
	Closes        int
	Split         SplitPolicy
	GST           GSTPolicy
	Delivery      int64
}

// ErrInvalidParams is returned for options outside the offered sets.
var ErrInvalidParams = errors.New("jio: invalid parameters")

// Validate checks every option against its offered set.
func (p Params) Validate(establishments []string) error {
	if !slices.Contains(establishments, p.Establishment) {
		return fmt.Errorf("%w: establishment %q", ErrInvalidParams, p.Establishment)
	}
	if !slices.Contains(ClosingDelays, p.Closes) {
		return fmt.Errorf("%w: closing delay %d", ErrInvalidParams, p.Closes)
	}
	if !slices.Contains(SplitPolicies, p.Split) {
		return fmt.Errorf("%w: split %q", ErrInvalidParams, p.Split)
	}
	if !slices.Contains(GSTPolicies, p.GST) {
		return fmt.Errorf("%w: gst %q", ErrInvalidParams, p.GST)
	}
	if p.Delivery < 0 {
		return fmt.Errorf("%w: delivery %d", ErrInvalidParams, p.Delivery)
	}
	return nil
}

// ParamsFromSelections maps the open flow's four answer indices onto Params.
func ParamsFromSelections(establishments []string, sel []int, delivery int64) (Params, error) {
	if len(sel) != 4 {
		return Params{}, fmt.Errorf("%w: want 4 selections, got %d", ErrInvalidParams, len(sel))
	}
	pick := func(i, n int) bool { return sel[i] >= 0 && sel[i] < n }
	if !pick(0, len(establishments)) || !pick(1, len(ClosingDelays)) ||
		!pick(2, len(SplitPolicies)) || !pick(3, len(GSTPolicies)) {
		return Params{}, fmt.Errorf("%w: selection out of range %v", ErrInvalidParams, sel)
	}
	return Params{
		Establishment: establishments[sel[0]],
		Closes:        ClosingDelays[sel[1]],
		Split:         SplitPolicies[sel[2]],
		GST:           GSTPolicies[sel[3]],
		Delivery:      delivery,
	}, nil
}
