// Package settle turns a closed jio's line items into a broadcast order
// summary and per-participant bills. It is pure: no I/O, no clock.
package settle

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/m3rciful/supperbot/internal/money"
)

// NoItemsSummary is broadcast when nobody ordered anything.
const NoItemsSummary = "Jio is closed! There were no items ordered."

// SplitPolicy decides how the delivery fee is shared.
type SplitPolicy int

const (
	SplitEqual SplitPolicy = iota
	SplitWeighted
	SplitFree
)

// Line is one ordered item.
type Line struct {
	Name  string
	Price int64
}

// Participant is one person's order, in the order it should be reported.
type Participant struct {
	ID    string
	Name  string
	Items []Line
}

// Input is the snapshot settlement works on.
type Input struct {
	Participants []Participant
	Delivery     int64
	Split        SplitPolicy
	GSTIncluded  bool
	// GSTRate defaults to money.DefaultGSTRate when zero.
	GSTRate decimal.Decimal
	// Escape is applied to item and participant names in the summary.
	Escape func(string) string
}

// Share is one participant's bill.
type Share struct {
	ID       string
	Name     string
	Subtotal int64
	GST      int64
	Delivery int64
	Total    int64
}

// Result is the settlement outcome.
type Result struct {
	Summary string
	// Private maps participant id to their private bill message.
	Private       map[string]string
	Shares        []Share
	GrandSubtotal int64
	GrandGST      int64
	GrandTotal    int64
}

type itemKey struct {
	name  string
	price int64
}

// Compute settles the snapshot. Every per-participant rounding is an
// independent ceiling, so the collected delivery and GST may exceed the
// grand figures by up to one cent per participant.
func Compute(in Input) Result {
	rate := in.GSTRate
	if rate.IsZero() {
		rate = money.DefaultGSTRate
	}

	res := Result{Private: map[string]string{}}
	esc := in.Escape
	if esc == nil {
		esc = func(s string) string { return s }
	}

	var (
		order  []itemKey
		counts = map[itemKey]int{}
		payers []Participant
	)
	for _, p := range in.Participants {
		if len(p.Items) == 0 {
			continue
		}
		payers = append(payers, p)
		for _, it := range p.Items {
			k := itemKey{name: it.Name, price: it.Price}
			if _, seen := counts[k]; !seen {
				order = append(order, k)
			}
			counts[k]++
		}
	}
	if len(payers) == 0 {
		res.Summary = NoItemsSummary
		return res
	}

	lines := []string{"Jio is closed! Here are the items ordered:\n"}
	for _, k := range order {
		lines = append(lines, fmt.Sprintf("%s x %d", esc(k.name), counts[k]))
	}
	lines = append(lines, "\nPlease pay per person total:\n")

	for _, p := range payers {
		s := Share{ID: p.ID, Name: p.Name}
		for _, it := range p.Items {
			s.Subtotal += it.Price
		}
		if in.GSTIncluded {
			s.GST = money.CeilMul(s.Subtotal, rate)
		}
		res.GrandSubtotal += s.Subtotal
		res.Shares = append(res.Shares, s)
	}

	n := int64(len(res.Shares))
	for i := range res.Shares {
		s := &res.Shares[i]
		switch in.Split {
		case SplitEqual:
			s.Delivery = money.CeilDiv(in.Delivery, n)
		case SplitWeighted:
			s.Delivery = money.CeilDiv(in.Delivery*s.Subtotal, res.GrandSubtotal)
		case SplitFree:
			s.Delivery = 0
		}
		s.Total = s.Subtotal + s.GST + s.Delivery

		incl := inclusions(in, s.Delivery, s.GST)
		lines = append(lines, fmt.Sprintf("%s - %s%s", esc(s.Name), money.Format(s.Total), incl))
		res.Private[s.ID] = fmt.Sprintf("Your food order costs *%s* in total%s", money.Format(s.Total), incl)
	}

	res.GrandTotal = res.GrandSubtotal + in.Delivery
	var grand string
	if in.GSTIncluded {
		res.GrandGST = money.CeilMul(res.GrandSubtotal, rate)
		res.GrandTotal += res.GrandGST
		grand = fmt.Sprintf("\n*Grand Total* - %s (GST %s included)", money.Format(res.GrandTotal), money.Format(res.GrandGST))
	} else {
		grand = fmt.Sprintf("\n*Grand Total* - %s (GST not included)", money.Format(res.GrandTotal))
	}
	lines = append(lines, grand)

	res.Summary = strings.Join(lines, "\n")
	return res
}

// inclusions renders " (incl. $x delivery & $y GST)" with the clauses that
// apply, or "" when neither does.
func inclusions(in Input, delivery, gst int64) string {
	var parts []string
	if in.Split != SplitFree {
		parts = append(parts, money.Format(delivery)+" delivery")
	}
	if in.GSTIncluded {
		parts = append(parts, money.Format(gst)+" GST")
	}
	if len(parts) == 0 {
		return ""
	}
	return " (incl. " + strings.Join(parts, " & ") + ")"
}
