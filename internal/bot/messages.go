package bot

import (
	"fmt"
	"strings"

	"github.com/m3rciful/supperbot/internal/flow"
	"github.com/m3rciful/supperbot/internal/jio"
	"github.com/m3rciful/supperbot/internal/money"
)

const commandHelp = "/additem to add item to order\n/removeitem to remove item from order\n/vieworder to check order"

// Fixed replies.
const (
	MessageError            = "Something went wrong."
	MessageInvalidCommand   = "Command not recognised."
	MessageJioExists        = "There is already a Supper Jio going on.\n\n" + commandHelp
	MessageJioExistsPrivate = "There is already a Supper Jio going on."
	MessageNoJio            = "There is no Supper Jio going on!\n\n/openjio to start a Supper Jio"
	MessageNoJioPrivate     = "There is no Supper Jio going on!"
	MessageNotJioStarter    = "Sorry, only the person who started it can close the Supper Jio!"
	MessageSendToGroup      = "Please send your commands in a group chat!"
	MessageStartChat        = "Hi there, please start a chat with me first!"
	MessageCancelled        = "Cancelled!"
	MessageJioStarted       = "Supper Jio started!"
	MessageChooseRemoval    = "Please choose an item to remove:"
	MessageItemRemoved      = "Item removed!"
	MessageNoItems          = "You have no items to remove!"
	MessageItemGone         = "That item is no longer in your order."
)

const (
	buttonCancel     = "Cancel"
	buttonBack       = "Back"
	buttonStartChat  = "Start chat!"
	buttonAddAnother = "Add another item"
)

// openQuestions is the open flow in the order it is asked.
func openQuestions(establishments []string) flow.OpenFlow {
	closes := make([]string, 0, len(jio.ClosingDelays))
	for _, c := range jio.ClosingDelays {
		closes = append(closes, fmt.Sprint(c))
	}
	splits := make([]string, 0, len(jio.SplitPolicies))
	for _, s := range jio.SplitPolicies {
		splits = append(splits, string(s))
	}
	gsts := make([]string, 0, len(jio.GSTPolicies))
	for _, g := range jio.GSTPolicies {
		gsts = append(gsts, string(g))
	}
	return flow.OpenFlow{
		{Prompt: "Ordering supper from which establishment?", Choices: establishments},
		{Prompt: "How long before closing the Supper Jio? (You will still need to tell me with /closejio)", Choices: closes},
		{Prompt: "How do you want to split the delivery fee?", Choices: splits},
		{Prompt: "Do you want to include 7% GST?", Choices: gsts},
	}
}

// announcement and itemAdded are sent as Markdown, so user and menu names
// go through esc.
func announcement(esc func(string) string, starter string, j *jio.Jio) string {
	return fmt.Sprintf(
		"*%s* has started a Supper Jio for *%s*, closing in *%d mins*. Delivery cost of %s will be *%s*, GST is *%s*.\n\n%s",
		esc(starter), esc(j.Establishment), j.Closes, money.Format(j.Delivery),
		strings.ToLower(string(j.Split)), strings.ToLower(string(j.GST)), commandHelp,
	)
}

func itemAdded(esc func(string) string, it jio.Item) string {
	return fmt.Sprintf("Item added - %s (%s)", esc(it.Name), money.Format(it.Price))
}

func itemChoice(it jio.Item) string {
	return fmt.Sprintf("%s - (%s)", it.Name, money.Format(it.Price))
}

func cancelRow() []Button {
	return []Button{{Text: buttonCancel, Data: flow.Cancel().String()}}
}

// stepKeyboard puts every option on its own row, then Back when the step
// has a predecessor, then Cancel.
func stepKeyboard(st flow.Step) Keyboard {
	kb := optionRows(st.Options)
	if st.Back != "" {
		kb = append(kb, []Button{{Text: buttonBack, Data: st.Back}})
	}
	return append(kb, cancelRow())
}

func optionRows(opts []flow.Option) Keyboard {
	kb := make(Keyboard, 0, len(opts)+2)
	for _, o := range opts {
		kb = append(kb, []Button{{Text: o.Label, Data: o.Data}})
	}
	return kb
}
