package keyboard

import tele "gopkg.in/telebot.v4"

// InlineBtn describes a convenience wrapper for inline button properties.
// URL wins over callback data. With Unique set the button carries telebot's
// "\f<unique>|<data>" form; otherwise Data is sent as is.
type InlineBtn struct {
	Text   string
	Unique string
	Data   string
	URL    string
}

func (b InlineBtn) inline(markup *tele.ReplyMarkup) tele.InlineButton {
	switch {
	case b.URL != "":
		return tele.InlineButton{Text: b.Text, URL: b.URL}
	case b.Unique != "":
		return *markup.Data(b.Text, b.Unique, b.Data).Inline()
	default:
		return tele.InlineButton{Text: b.Text, Data: b.Data}
	}
}

// InlineButtons builds an inline keyboard where each provided button is placed on its own row.
func InlineButtons(buttons []InlineBtn) *tele.ReplyMarkup {
	rows := make([][]InlineBtn, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []InlineBtn{b})
	}
	return InlineButtonsRows(rows...)
}

// InlineButtonsRows builds an inline keyboard from rows of InlineBtn.
// Empty rows are skipped; no buttons at all yields nil so edits drop the
// existing keyboard.
func InlineButtonsRows(rows ...[]InlineBtn) *tele.ReplyMarkup {
	markup := &tele.ReplyMarkup{}
	inline := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		r := make([]tele.InlineButton, len(row))
		for j, btn := range row {
			r[j] = btn.inline(markup)
		}
		inline = append(inline, r)
	}
	if len(inline) == 0 {
		return nil
	}
	markup.InlineKeyboard = inline
	return markup
}

// InlineButtonsNPerRow splits a flat list of buttons into rows with up to n buttons per row.
// If n <= 1, it behaves like InlineButtons (one per row).
func InlineButtonsNPerRow(buttons []InlineBtn, n int) *tele.ReplyMarkup {
	if n <= 1 {
		return InlineButtons(buttons)
	}
	var rows [][]InlineBtn
	for i := 0; i < len(buttons); i += n {
		end := min(i+n, len(buttons))
		rows = append(rows, buttons[i:end])
	}
	return InlineButtonsRows(rows...)
}
