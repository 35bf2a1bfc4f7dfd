package bot_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/m3rciful/supperbot/core/telegram/format"
	"github.com/m3rciful/supperbot/internal/bot"
	"github.com/m3rciful/supperbot/internal/bot/mocks"
	"github.com/m3rciful/supperbot/internal/jio"
	"github.com/m3rciful/supperbot/internal/jio/memstore"
	"github.com/m3rciful/supperbot/internal/menu"
)

const (
	group   = int64(-100777)
	starter = int64(11)
	other   = int64(22)
	botURL  = "https://t.me/supper_test_bot"
)

type fixture struct {
	ctrl *bot.Controller
	out  *mocks.MockMessenger
	svc  *jio.Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	now := time.Unix(1_700_000_000, 0)
	menus := menu.NewSet(menu.Default())
	svc := jio.NewService(memstore.New(), menus.Names(),
		jio.WithClock(func() time.Time { return now }),
		jio.WithEscaper(format.EscapeV1),
	)
	out := mocks.NewMockMessenger(gomock.NewController(t))
	ctrl := bot.NewController(svc, menus, out, bot.Options{
		OwnerID: 99,
		BotURL:  botURL,
		Escape:  format.EscapeV1,
	})
	return fixture{ctrl: ctrl, out: out, svc: svc}
}

func command(name string, user int64) bot.Event {
	return bot.Event{Command: name, ChatID: group, UserID: user, FirstName: fmt.Sprintf("user_%d", user)}
}

func press(token string, user int64) bot.Event {
	return bot.Event{Token: token, ChatID: user, UserID: user, MessageID: 5, FirstName: fmt.Sprintf("user_%d", user)}
}

func (f fixture) openJio(t *testing.T) {
	t.Helper()
	_, err := f.svc.Create(context.Background(), group, starter, jio.Params{
		Establishment: "Al Amaan",
		Closes:        30,
		Split:         jio.SplitEqually,
		GST:           jio.GSTNotIncluded,
		Delivery:      300,
	})
	require.NoError(t, err)
}

func TestPrivateCommandRedirectsToGroup(t *testing.T) {
	f := newFixture(t)
	ev := command(bot.CommandOpenJio, starter)
	ev.ChatID, ev.Private = starter, true
	f.out.EXPECT().Send(gomock.Any(), starter, bot.MessageSendToGroup, gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), ev))
}

func TestStartOffersPrivateChatLink(t *testing.T) {
	f := newFixture(t)
	f.out.EXPECT().Send(gomock.Any(), group, bot.MessageStartChat, bot.Keyboard{{{Text: "Start chat!", URL: botURL}}}).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), command(bot.CommandStart, starter)))
}

func TestOpenJioSendsFirstQuestionPrivately(t *testing.T) {
	f := newFixture(t)
	var kb bot.Keyboard
	f.out.EXPECT().Send(gomock.Any(), starter, "Ordering supper from which establishment?", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, _ string, k bot.Keyboard) error {
			kb = k
			return nil
		})

	require.NoError(t, f.ctrl.Handle(context.Background(), command(bot.CommandOpenJio, starter)))
	require.Len(t, kb, 2)
	assert.Equal(t, bot.Button{Text: "Al Amaan", Data: fmt.Sprintf("openjio_%d_0", group)}, kb[0][0])
	assert.Equal(t, bot.Button{Text: "Cancel", Data: "cancel"}, kb[1][0])
}

func TestOpenJioFallsBackToGroupWhenPrivateFails(t *testing.T) {
	f := newFixture(t)
	gomock.InOrder(
		f.out.EXPECT().Send(gomock.Any(), starter, gomock.Any(), gomock.Any()).Return(errors.New("forbidden: bot can't initiate conversation")),
		f.out.EXPECT().Send(gomock.Any(), group, bot.MessageStartChat, gomock.Len(1)).Return(nil),
	)

	require.NoError(t, f.ctrl.Handle(context.Background(), command(bot.CommandOpenJio, starter)))
}

func TestOpenJioWhenOneExists(t *testing.T) {
	f := newFixture(t)
	f.openJio(t)
	f.out.EXPECT().Send(gomock.Any(), group, bot.MessageJioExists, gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), command(bot.CommandOpenJio, other)))
}

func TestOpenFlowMiddleStepHasBack(t *testing.T) {
	f := newFixture(t)
	var kb bot.Keyboard
	f.out.EXPECT().Edit(gomock.Any(), starter, 5, gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, _ int, _ string, k bot.Keyboard) error {
			kb = k
			return nil
		})

	require.NoError(t, f.ctrl.Handle(context.Background(), press(fmt.Sprintf("openjio_%d_0", group), starter)))
	require.Len(t, kb, 7)
	assert.Equal(t, fmt.Sprintf("openjio_%d_0_1", group), kb[1][0].Data)
	assert.Equal(t, bot.Button{Text: "Back", Data: fmt.Sprintf("openjio_%d", group)}, kb[5][0])
	assert.Equal(t, "cancel", kb[6][0].Data)
}

func TestOpenFlowTerminalCreatesAndAnnounces(t *testing.T) {
	f := newFixture(t)
	gomock.InOrder(
		f.out.EXPECT().Edit(gomock.Any(), starter, 5, bot.MessageJioStarted, gomock.Nil()).Return(nil),
		f.out.EXPECT().Send(gomock.Any(), group, gomock.Any(), gomock.Nil()).
			DoAndReturn(func(_ context.Context, _ int64, text string, _ bot.Keyboard) error {
				assert.Contains(t, text, `*user\_11* has started a Supper Jio for *Al Amaan*, closing in *30 mins*`)
				assert.Contains(t, text, "Delivery cost of $3.00 will be *split equally*, GST is *included*.")
				return nil
			}),
	)

	require.NoError(t, f.ctrl.Handle(context.Background(), press(fmt.Sprintf("openjio_%d_0_1_0_0", group), starter)))

	j, err := f.svc.Exists(context.Background(), group)
	require.NoError(t, err)
	require.NotNil(t, j)
	assert.Equal(t, starter, j.StarterID)
	assert.Equal(t, 30, j.Closes)
	assert.Equal(t, jio.DefaultDelivery, j.Delivery)
}

func TestOpenFlowStaleAfterJioOpened(t *testing.T) {
	f := newFixture(t)
	f.openJio(t)
	f.out.EXPECT().Edit(gomock.Any(), other, 5, bot.MessageJioExistsPrivate, gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), press(fmt.Sprintf("openjio_%d_0_1", group), other)))
}

func TestMalformedTokenEditsError(t *testing.T) {
	f := newFixture(t)
	f.out.EXPECT().Edit(gomock.Any(), starter, 5, bot.MessageError, gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), press("openjio_notachat", starter)))
}

func TestOutOfRangeSelectionEditsError(t *testing.T) {
	f := newFixture(t)
	f.out.EXPECT().Edit(gomock.Any(), starter, 5, bot.MessageError, gomock.Nil()).Return(nil)

	err := f.ctrl.Handle(context.Background(), press(fmt.Sprintf("openjio_%d_9", group), starter))
	assert.Error(t, err)
}

func TestCancelCallback(t *testing.T) {
	f := newFixture(t)
	f.out.EXPECT().Edit(gomock.Any(), starter, 5, bot.MessageCancelled, gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), press("cancel", starter)))
}

func TestAddItemLeafRecordsItem(t *testing.T) {
	f := newFixture(t)
	f.openJio(t)
	f.out.EXPECT().Edit(gomock.Any(), other, 5, "Item added - Plain Prata ($1.20)", bot.Keyboard{{
		{Text: "Add another item", Data: fmt.Sprintf("additem_%d", group)},
		{Text: "Cancel", Data: "cancel"},
	}}).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), press(fmt.Sprintf("additem_%d_0_0", group), other)))

	j, err := f.svc.Exists(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, []jio.Item{{Name: "Plain Prata", Price: 120}}, j.Items(other))
}

func TestMenuNamesEscapedInMarkdown(t *testing.T) {
	catalog, err := menu.Parse([]byte("name: Ah_Seng\nmenu:\n  Drinks:\n    Kopi_O: 150\n"))
	require.NoError(t, err)
	menus := menu.NewSet(catalog)
	svc := jio.NewService(memstore.New(), menus.Names(),
		jio.WithClock(func() time.Time { return time.Unix(1_700_000_000, 0) }),
		jio.WithEscaper(format.EscapeV1),
	)
	out := mocks.NewMockMessenger(gomock.NewController(t))
	ctrl := bot.NewController(svc, menus, out, bot.Options{OwnerID: 99, BotURL: botURL, Escape: format.EscapeV1})

	gomock.InOrder(
		out.EXPECT().Edit(gomock.Any(), starter, 5, bot.MessageJioStarted, gomock.Nil()).Return(nil),
		out.EXPECT().Send(gomock.Any(), group, gomock.Any(), gomock.Nil()).
			DoAndReturn(func(_ context.Context, _ int64, text string, _ bot.Keyboard) error {
				assert.Contains(t, text, `has started a Supper Jio for *Ah\_Seng*`)
				return nil
			}),
		out.EXPECT().Edit(gomock.Any(), other, 5, `Item added - Kopi\_O ($1.50)`, gomock.Any()).Return(nil),
	)

	require.NoError(t, ctrl.Handle(context.Background(), press(fmt.Sprintf("openjio_%d_0_1_0_0", group), starter)))
	require.NoError(t, ctrl.Handle(context.Background(), press(fmt.Sprintf("additem_%d_0_0", group), other)))

	j, err := svc.Exists(context.Background(), group)
	require.NoError(t, err)
	assert.Equal(t, "Ah_Seng", j.Establishment)
	assert.Equal(t, []jio.Item{{Name: "Kopi_O", Price: 150}}, j.Items(other))
}

func TestAddItemWithoutJio(t *testing.T) {
	f := newFixture(t)
	f.out.EXPECT().Send(gomock.Any(), group, bot.MessageNoJio, gomock.Nil()).Return(nil)
	f.out.EXPECT().Edit(gomock.Any(), other, 5, bot.MessageNoJioPrivate, gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), command(bot.CommandAddItem, other)))
	require.NoError(t, f.ctrl.Handle(context.Background(), press(fmt.Sprintf("additem_%d_0", group), other)))
}

func TestAddItemOpensMenuPrivately(t *testing.T) {
	f := newFixture(t)
	f.openJio(t)
	f.out.EXPECT().Send(gomock.Any(), other, "Please choose an item:", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ int64, _ string, kb bot.Keyboard) error {
			assert.Equal(t, "Prata", kb[0][0].Text)
			assert.Equal(t, fmt.Sprintf("additem_%d_0", group), kb[0][0].Data)
			return nil
		})

	require.NoError(t, f.ctrl.Handle(context.Background(), command(bot.CommandAddItem, other)))
}

func TestRemoveItemFlow(t *testing.T) {
	f := newFixture(t)
	f.openJio(t)
	ctx := context.Background()
	j, err := f.svc.Exists(ctx, group)
	require.NoError(t, err)
	require.NoError(t, f.svc.AddItem(ctx, j, other, "user_22", jio.Item{Name: "Kopi", Price: 150}))

	f.out.EXPECT().Send(gomock.Any(), other, bot.MessageChooseRemoval, bot.Keyboard{
		{{Text: "Kopi - ($1.50)", Data: fmt.Sprintf("removeitem_%d_0", group)}},
		{{Text: "Cancel", Data: "cancel"}},
	}).Return(nil)
	require.NoError(t, f.ctrl.Handle(ctx, command(bot.CommandRemoveItem, other)))

	f.out.EXPECT().Edit(gomock.Any(), other, 5, bot.MessageItemRemoved, gomock.Nil()).Return(nil)
	require.NoError(t, f.ctrl.Handle(ctx, press(fmt.Sprintf("removeitem_%d_0", group), other)))

	f.out.EXPECT().Edit(gomock.Any(), other, 5, bot.MessageItemGone, gomock.Nil()).Return(nil)
	require.NoError(t, f.ctrl.Handle(ctx, press(fmt.Sprintf("removeitem_%d_0", group), other)))

	f.out.EXPECT().Send(gomock.Any(), group, bot.MessageNoItems, gomock.Nil()).Return(nil)
	require.NoError(t, f.ctrl.Handle(ctx, command(bot.CommandRemoveItem, other)))
}

func TestViewOrder(t *testing.T) {
	f := newFixture(t)
	f.openJio(t)
	f.out.EXPECT().Send(gomock.Any(), group, "Items ordered:\n\nNone so far", gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), command(bot.CommandViewOrder, other)))
}

func TestCloseJioOnlyStarter(t *testing.T) {
	f := newFixture(t)
	f.openJio(t)
	f.out.EXPECT().Send(gomock.Any(), group, bot.MessageNotJioStarter, gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), command(bot.CommandCloseJio, other)))
}

func TestCloseJioSettlesAndNotifies(t *testing.T) {
	f := newFixture(t)
	f.openJio(t)
	ctx := context.Background()
	j, err := f.svc.Exists(ctx, group)
	require.NoError(t, err)
	require.NoError(t, f.svc.AddItem(ctx, j, other, "user_22", jio.Item{Name: "Kopi", Price: 150}))
	require.NoError(t, f.svc.AddItem(ctx, j, starter, "user_11", jio.Item{Name: "Teh Tarik", Price: 160}))

	gomock.InOrder(
		f.out.EXPECT().Send(gomock.Any(), group, gomock.Any(), gomock.Nil()).
			DoAndReturn(func(_ context.Context, _ int64, text string, _ bot.Keyboard) error {
				assert.Contains(t, text, "Jio is closed! Here are the items ordered:")
				assert.Contains(t, text, "user\\_11 - $3.10 (incl. $1.50 delivery)")
				assert.Contains(t, text, "*Grand Total* - $6.10 (GST not included)")
				return nil
			}),
		f.out.EXPECT().Notify(gomock.Any(), starter, "Your food order costs *$3.10* in total (incl. $1.50 delivery)").Return(nil),
		f.out.EXPECT().Notify(gomock.Any(), other, "Your food order costs *$3.00* in total (incl. $1.50 delivery)").Return(nil),
	)
	require.NoError(t, f.ctrl.Handle(ctx, command(bot.CommandCloseJio, starter)))

	f.out.EXPECT().Send(gomock.Any(), group, bot.MessageNoJio, gomock.Nil()).Return(nil)
	require.NoError(t, f.ctrl.Handle(ctx, command(bot.CommandCloseJio, starter)))
}

func TestCloseJioWithoutItems(t *testing.T) {
	f := newFixture(t)
	f.openJio(t)
	f.out.EXPECT().Send(gomock.Any(), group, "Jio is closed! There were no items ordered.", gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), command(bot.CommandCloseJio, starter)))
}

func TestUnknownCommandRepliesPrivately(t *testing.T) {
	f := newFixture(t)
	f.out.EXPECT().Send(gomock.Any(), other, bot.MessageInvalidCommand, gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.Handle(context.Background(), command("pizza", other)))
}

func TestMembershipNotifiesOwner(t *testing.T) {
	f := newFixture(t)
	ev := bot.Event{ChatID: group, ChatTitle: "night_owls"}
	f.out.EXPECT().Send(gomock.Any(), int64(99), `Added to chat: night\_owls`, gomock.Nil()).Return(nil)
	f.out.EXPECT().Send(gomock.Any(), int64(99), `Removed from chat: night\_owls`, gomock.Nil()).Return(nil)

	require.NoError(t, f.ctrl.BotAdded(context.Background(), ev))
	require.NoError(t, f.ctrl.BotRemoved(context.Background(), ev))
}

func TestCommandName(t *testing.T) {
	cases := map[string]string{
		"/additem":                "additem",
		"/AddItem@supper_bot":     "additem",
		"/closejio now":           "closejio",
		"  /vieworder@x_bot  all": "vieworder",
	}
	for in, want := range cases {
		assert.Equal(t, want, bot.CommandName(in), in)
	}
}
