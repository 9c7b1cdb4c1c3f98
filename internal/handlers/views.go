package handlers

import (
	"fmt"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Kerhoff/ShoplistBot/internal/models"
)

// Callback actions.
const (
	actionList             = "list"
	actionArchive          = "archive"
	actionTrash            = "trash"
	actionBuy              = "buy"
	actionRestoreArchive   = "restore_archive"
	actionRestoreTrash     = "restore_trash"
	actionPurge            = "purge"
	actionClearTrash       = "clear_trash"
	actionRebuildTemplates = "rebuild_templates"
	actionTemplates        = "templates"
	actionTemplate         = "template"
	actionCreateFamily     = "create_family"
	actionJoinFamily       = "join_family"
	actionAdmin            = "admin"
	actionMembers          = "members"
	actionRemove           = "remove"
	actionPromote          = "promote"
	actionRename           = "rename"
)

// ItemActions lists the callback actions served by ItemCallbacks.
var ItemActions = []string{
	actionList, actionArchive, actionTrash, actionBuy, actionRestoreArchive,
	actionRestoreTrash, actionPurge, actionClearTrash, actionTemplates, actionTemplate,
	actionRebuildTemplates,
}

// FamilyActions lists the callback actions served by FamilyCallbacks.
var FamilyActions = []string{
	actionCreateFamily, actionJoinFamily, actionAdmin, actionMembers,
	actionRemove, actionPromote, actionRename,
}

const (
	// Telegram rejects callback data longer than 64 bytes.
	maxCallbackData = 64
	buttonTextRunes = 28
	historyLimit    = 20
)

func button(text, action string, arg ...any) tgbotapi.InlineKeyboardButton {
	data := action
	if len(arg) > 0 {
		data = fmt.Sprintf("%s:%v", action, arg[0])
	}
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func short(s string) string {
	if utf8.RuneCountInString(s) <= buttonTextRunes {
		return s
	}
	return string([]rune(s)[:buttonTextRunes-1]) + "…"
}

func keyboard(rows ...[]tgbotapi.InlineKeyboardButton) *tgbotapi.InlineKeyboardMarkup {
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func welcomeView(name string) view {
	greeting := "👋 Hi!"
	if name != "" {
		greeting = fmt.Sprintf("👋 Hi, %s!", esc(name))
	}
	return view{
		text: greeting + "\n\nI keep one shopping list for the whole family. " +
			"Create a family, or send me the invite code you got from a family member.",
		keyboard: keyboard(
			tgbotapi.NewInlineKeyboardRow(
				button("🏠 Create family", actionCreateFamily),
				button("🔑 Join with code", actionJoinFamily),
			),
		),
	}
}

func listView(family *models.Family, user *models.User, items []*models.ActiveItem) view {
	var b strings.Builder
	fmt.Fprintf(&b, "🛒 <b>%s</b>\n\n", esc(family.Name))

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+2)
	if len(items) == 0 {
		b.WriteString("The list is empty. Send me what to buy, one item per line.")
	}
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s", i+1, esc(item.Text))
		if item.AddedByName != "" {
			fmt.Fprintf(&b, " <i>(%s)</i>", esc(item.AddedByName))
		}
		b.WriteString("\n")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("✅ "+short(item.Text), actionBuy, item.ID),
			button("🗑", actionTrash, item.ID),
		))
	}

	footer := tgbotapi.NewInlineKeyboardRow(
		button("📦 Bought", actionArchive),
		button("🗑 Trash", actionTrash),
		button("⭐ Frequent", actionTemplates),
	)
	rows = append(rows, footer)
	if user.IsAdmin {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⚙️ Family", actionAdmin)))
	}

	return view{text: strings.TrimRight(b.String(), "\n"), keyboard: keyboard(rows...)}
}

func archiveView(items []*models.ArchivedItem) view {
	var b strings.Builder
	b.WriteString("📦 <b>Recently bought</b>\n\n")

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+1)
	if len(items) == 0 {
		b.WriteString("Nothing bought yet.")
	}
	for _, item := range items {
		fmt.Fprintf(&b, "• %s", esc(item.Text))
		if item.BoughtByName != "" {
			fmt.Fprintf(&b, " <i>(%s, %s)</i>", esc(item.BoughtByName), item.BoughtAt.Format("02 Jan"))
		}
		b.WriteString("\n")
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button("↩️ "+short(item.Text), actionRestoreArchive, item.ID),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⬅️ List", actionList)))

	return view{text: strings.TrimRight(b.String(), "\n"), keyboard: keyboard(rows...)}
}

func trashView(user *models.User, items []*models.TrashedItem) view {
	var b strings.Builder
	b.WriteString("🗑 <b>Trash</b>\n\n")

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(items)+1)
	if len(items) == 0 {
		b.WriteString("The trash is empty.")
	}
	for _, item := range items {
		fmt.Fprintf(&b, "• %s", esc(item.Text))
		if item.DeletedByName != "" {
			fmt.Fprintf(&b, " <i>(%s)</i>", esc(item.DeletedByName))
		}
		b.WriteString("\n")
		row := tgbotapi.NewInlineKeyboardRow(button("↩️ "+short(item.Text), actionRestoreTrash, item.ID))
		if user.IsAdmin {
			row = append(row, button("❌", actionPurge, item.ID))
		}
		rows = append(rows, row)
	}

	footer := tgbotapi.NewInlineKeyboardRow(button("⬅️ List", actionList))
	if user.IsAdmin && len(items) > 0 {
		footer = append(footer, button("🧹 Clear old", actionClearTrash))
	}
	rows = append(rows, footer)

	return view{text: strings.TrimRight(b.String(), "\n"), keyboard: keyboard(rows...)}
}

func templatesView(user *models.User, templates []*models.Template) view {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(templates)+1)
	for _, t := range templates {
		data := actionTemplate + ":" + t.ItemText
		if len(data) > maxCallbackData {
			continue
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("➕ "+short(t.ItemText), data),
		))
	}

	text := "⭐ <b>Frequently bought</b>\n\nTap an item to put it on the list."
	if len(rows) == 0 {
		text = "⭐ <b>Frequently bought</b>\n\nNothing yet. Items you buy often will show up here."
	}
	footer := tgbotapi.NewInlineKeyboardRow(button("⬅️ List", actionList))
	if user.IsAdmin {
		footer = append(footer, button("🔄 Update", actionRebuildTemplates))
	}
	rows = append(rows, footer)

	return view{text: text, keyboard: keyboard(rows...)}
}

func familyView(family *models.Family, members []*models.User) view {
	text := fmt.Sprintf("⚙️ <b>%s</b>\n\nInvite code: <code>%s</code>\nMembers: %d\n\n"+
		"Share the code: whoever sends it to me joins the family.",
		esc(family.Name), esc(family.InviteCode), len(members))

	return view{
		text: text,
		keyboard: keyboard(
			tgbotapi.NewInlineKeyboardRow(
				button("👥 Members", actionMembers),
				button("✏️ Rename", actionRename),
			),
			tgbotapi.NewInlineKeyboardRow(
				button("⭐ Update frequent items", actionRebuildTemplates),
				button("🧹 Clear old trash", actionClearTrash),
			),
			tgbotapi.NewInlineKeyboardRow(button("⬅️ List", actionList)),
		),
	}
}

func membersView(family *models.Family, viewer *models.User, members []*models.User) view {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 <b>%s</b>\n\n", esc(family.Name))

	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(members)+1)
	for _, m := range members {
		b.WriteString("• " + esc(m.Label()))
		if m.IsAdmin {
			b.WriteString(" 👑")
		}
		b.WriteString("\n")

		if viewer.IsAdmin && m.ID != viewer.ID {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				button("🚫 "+short(m.Label()), actionRemove, m.ID),
				button("👑 Make admin", actionPromote, m.ID),
			))
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(button("⬅️ List", actionList)))

	return view{text: strings.TrimRight(b.String(), "\n"), keyboard: keyboard(rows...)}
}

func promptView(text string) view {
	return view{text: text + "\n\n<i>/cancel to stop</i>"}
}
