package flow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/supperbot/internal/menu"
)

var testOpenFlow = OpenFlow{
	{Prompt: "Which establishment?", Choices: []string{"Al Amaan", "Zam Zam"}},
	{Prompt: "How long?", Choices: []string{"15", "30", "45", "60", "90"}},
	{Prompt: "Split?", Choices: []string{"Split Equally", "Weighted", "Free"}},
	{Prompt: "GST?", Choices: []string{"Included", "Not Included"}},
}

const testMenu = `
name: Test Kitchen
menu:
  Prata:
    Plain Prata: 120
    Egg Prata: 180
  Murtabak:
    Chicken:
      Small: 600
      Large: 900
  Teh Tarik: 160
`

func TestParseRoundTrip(t *testing.T) {
	cases := []string{
		"openjio_-100123_0_2",
		"additem_42",
		"removeitem_-5_3",
		"cancel",
	}
	for _, raw := range cases {
		tok, err := Parse(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, raw, tok.String())
	}
}

func TestParseCancelIgnoresRest(t *testing.T) {
	tok, err := Parse("cancel_123_4")
	require.NoError(t, err)
	assert.Equal(t, Cancel(), tok)
	assert.Equal(t, "cancel", tok.String())
}

func TestParseMalformed(t *testing.T) {
	for _, raw := range []string{"", "closejio_1", "openjio", "openjio_abc", "openjio_1_x", "additem_1_-2", "openjio_1__0"} {
		_, err := Parse(raw)
		assert.True(t, errors.Is(err, ErrMalformedToken), raw)
	}
}

func TestAppendAndBackDoNotAlias(t *testing.T) {
	base := New(CommandOpenJio, 7).Append(1)
	a := base.Append(2)
	b := base.Append(3)
	assert.Equal(t, "openjio_7_1_2", a.String())
	assert.Equal(t, "openjio_7_1_3", b.String())

	prev, ok := a.Back()
	require.True(t, ok)
	assert.Equal(t, "openjio_7_1", prev.String())
	assert.Equal(t, "openjio_7_1_2", a.String())

	_, ok = New(CommandAddItem, 7).Back()
	assert.False(t, ok)
}

func TestOpenFlowEveryStage(t *testing.T) {
	tok := New(CommandOpenJio, -100)
	answers := []int{1, 3, 2, 0}

	for stage, answer := range answers {
		step, err := testOpenFlow.Next(tok)
		require.NoError(t, err)
		require.Equal(t, KindPrompt, step.Kind)
		assert.Equal(t, testOpenFlow[stage].Prompt, step.Prompt)
		require.Len(t, step.Options, len(testOpenFlow[stage].Choices))
		for i, opt := range step.Options {
			assert.Equal(t, testOpenFlow[stage].Choices[i], opt.Label)
		}
		if stage == 0 {
			assert.Empty(t, step.Back)
		} else {
			back, err := Parse(step.Back)
			require.NoError(t, err)
			backStep, err := testOpenFlow.Next(back)
			require.NoError(t, err)
			assert.Equal(t, testOpenFlow[stage-1].Prompt, backStep.Prompt)
		}

		// the chosen button's data is the next token on the wire
		next, err := Parse(step.Options[answer].Data)
		require.NoError(t, err)
		tok = next
	}

	step, err := testOpenFlow.Next(tok)
	require.NoError(t, err)
	assert.Equal(t, KindOpen, step.Kind)
	assert.Equal(t, answers, step.Selections)
	assert.Equal(t, int64(-100), step.Token.ChatID)
}

func TestOpenFlowRejectsBadTokens(t *testing.T) {
	_, err := testOpenFlow.Next(Token{Command: CommandOpenJio, ChatID: 1, Path: []int{0, 9}})
	assert.True(t, errors.Is(err, ErrMalformedToken))

	_, err = testOpenFlow.Next(Token{Command: CommandOpenJio, ChatID: 1, Path: []int{0, 0, 0, 0, 0}})
	assert.True(t, errors.Is(err, ErrMalformedToken))

	_, err = testOpenFlow.Next(New(CommandAddItem, 1))
	assert.True(t, errors.Is(err, ErrMalformedToken))
}

func TestBrowseMenuEveryStage(t *testing.T) {
	c, err := menu.Parse([]byte(testMenu))
	require.NoError(t, err)

	tok := New(CommandAddItem, 55)
	step, err := BrowseMenu(tok, c)
	require.NoError(t, err)
	require.Equal(t, KindPrompt, step.Kind)
	assert.Equal(t, PromptAddItem, step.Prompt)
	assert.Empty(t, step.Back)
	assert.Equal(t, []Option{
		{Label: "Prata", Data: "additem_55_0"},
		{Label: "Murtabak", Data: "additem_55_1"},
		{Label: "Teh Tarik - ($1.60)", Data: "additem_55_2"},
	}, step.Options)

	tok, err = Parse(step.Options[1].Data)
	require.NoError(t, err)
	step, err = BrowseMenu(tok, c)
	require.NoError(t, err)
	assert.Equal(t, "additem_55", step.Back)
	assert.Equal(t, "Chicken", step.Options[0].Label)

	tok, err = Parse(step.Options[0].Data)
	require.NoError(t, err)
	step, err = BrowseMenu(tok, c)
	require.NoError(t, err)
	assert.Equal(t, "additem_55_1", step.Back)
	assert.Equal(t, "Large - ($9.00)", step.Options[1].Label)

	tok, err = Parse(step.Options[1].Data)
	require.NoError(t, err)
	step, err = BrowseMenu(tok, c)
	require.NoError(t, err)
	assert.Equal(t, KindItem, step.Kind)
	assert.Equal(t, menu.Item{Name: "Large", Price: 900}, step.Item)
}

func TestBrowseMenuLeafBeforeTokenEnds(t *testing.T) {
	c, err := menu.Parse([]byte(testMenu))
	require.NoError(t, err)

	step, err := BrowseMenu(Token{Command: CommandAddItem, ChatID: 1, Path: []int{2, 4, 4}}, c)
	require.NoError(t, err)
	assert.Equal(t, KindItem, step.Kind)
	assert.Equal(t, menu.Item{Name: "Teh Tarik", Price: 160}, step.Item)
}

func TestBrowseMenuOutOfRange(t *testing.T) {
	c, err := menu.Parse([]byte(testMenu))
	require.NoError(t, err)

	_, err = BrowseMenu(Token{Command: CommandAddItem, ChatID: 1, Path: []int{3}}, c)
	assert.True(t, errors.Is(err, ErrMalformedToken))
}

func TestRemoveIndex(t *testing.T) {
	idx, err := RemoveIndex(Token{Command: CommandRemoveItem, ChatID: 1, Path: []int{2}})
	require.NoError(t, err)
	assert.Equal(t, 2, idx)

	_, err = RemoveIndex(New(CommandRemoveItem, 1))
	assert.True(t, errors.Is(err, ErrMalformedToken))
	_, err = RemoveIndex(New(CommandOpenJio, 1).Append(0))
	assert.True(t, errors.Is(err, ErrMalformedToken))
}

func TestOptions(t *testing.T) {
	opts := Options(New(CommandRemoveItem, 9), []string{"a", "b"})
	assert.Equal(t, []Option{{Label: "a", Data: "removeitem_9_0"}, {Label: "b", Data: "removeitem_9_1"}}, opts)
}
