package flow

import (
	"fmt"

	"github.com/m3rciful/supperbot/internal/menu"
)

// PromptAddItem is shown at every non-terminal step of the item-add flow.
const PromptAddItem = "Please choose an item:"

// Kind tells the caller what a decoded step asks it to do.
type Kind int

const (
	// KindPrompt asks the user to pick one of Options.
	KindPrompt Kind = iota + 1
	// KindOpen finalizes the open flow with Selections.
	KindOpen
	// KindItem resolves a menu leaf into Item.
	KindItem
)

// Option is one selectable button: its label and the token it leads to.
type Option struct {
	Label string
	Data  string
}

// Step is the result of decoding a token.
type Step struct {
	Kind    Kind
	Token   Token
	Prompt  string
	Options []Option
	// Back is the encoded previous step, empty at stage 0.
	Back       string
	Selections []int
	Item       menu.Item
}

// Options encodes one option per label by appending its index to t.
func Options(t Token, labels []string) []Option {
	opts := make([]Option, 0, len(labels))
	for i, label := range labels {
		opts = append(opts, Option{Label: label, Data: t.Append(i).String()})
	}
	return opts
}

func prompt(t Token, text string, labels []string) Step {
	st := Step{
		Kind:    KindPrompt,
		Token:   t,
		Prompt:  text,
		Options: Options(t, labels),
	}
	if prev, ok := t.Back(); ok {
		st.Back = prev.String()
	}
	return st
}

// Question is one fixed step of the open flow.
type Question struct {
	Prompt  string
	Choices []string
}

// OpenFlow is the ordered list of questions asked before a jio opens.
type OpenFlow []Question

// Next decodes an openjio token: the question at its stage, or the
// terminal KindOpen step once every question has an answer.
func (f OpenFlow) Next(t Token) (Step, error) {
	if t.Command != CommandOpenJio {
		return Step{}, fmt.Errorf("%w: %s is not an open flow token", ErrMalformedToken, t.Command)
	}
	if t.Stage() > len(f) {
		return Step{}, fmt.Errorf("%w: stage %d beyond %d questions", ErrMalformedToken, t.Stage(), len(f))
	}
	for i, sel := range t.Path {
		if sel >= len(f[i].Choices) {
			return Step{}, fmt.Errorf("%w: answer %d out of range for question %d", ErrMalformedToken, sel, i)
		}
	}
	if t.Stage() == len(f) {
		sel := make([]int, len(t.Path))
		copy(sel, t.Path)
		return Step{Kind: KindOpen, Token: t, Selections: sel}, nil
	}
	q := f[t.Stage()]
	return prompt(t, q.Prompt, q.Choices), nil
}

// BrowseMenu decodes an additem token against the catalog: the choices of
// the reached category, or KindItem when a leaf is selected.
func BrowseMenu(t Token, c *menu.Catalog) (Step, error) {
	if t.Command != CommandAddItem {
		return Step{}, fmt.Errorf("%w: %s is not an item flow token", ErrMalformedToken, t.Command)
	}
	if c == nil {
		return Step{}, fmt.Errorf("flow: no catalog for chat %d", t.ChatID)
	}
	nodes, item, err := c.Browse(t.Path)
	if err != nil {
		return Step{}, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if item != nil {
		return Step{Kind: KindItem, Token: t, Item: *item}, nil
	}
	labels := make([]string, 0, len(nodes))
	for _, n := range nodes {
		labels = append(labels, n.Choice())
	}
	return prompt(t, PromptAddItem, labels), nil
}

// RemoveIndex decodes a removeitem token into the selected position.
func RemoveIndex(t Token) (int, error) {
	if t.Command != CommandRemoveItem {
		return 0, fmt.Errorf("%w: %s is not a remove token", ErrMalformedToken, t.Command)
	}
	if len(t.Path) == 0 {
		return 0, fmt.Errorf("%w: remove token without index", ErrMalformedToken)
	}
	return t.Path[0], nil
}
