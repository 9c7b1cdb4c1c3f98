package handlers

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/ShoplistBot/internal/models"
	"github.com/Kerhoff/ShoplistBot/internal/service"
	"github.com/Kerhoff/ShoplistBot/internal/telegram"
)

// ItemCallbacks handles the buttons of the list, archive, trash and
// frequent-items screens.
type ItemCallbacks struct {
	svc            *service.Service
	retentionDays  int
	templatesCount int
	logger         *logrus.Logger
}

// NewItemCallbacks creates a new ItemCallbacks handler. Clearing the trash
// keeps items deleted within retentionDays; rebuilding the frequent items
// keeps templatesCount of them.
func NewItemCallbacks(svc *service.Service, retentionDays, templatesCount int, logger *logrus.Logger) *ItemCallbacks {
	return &ItemCallbacks{
		svc:            svc,
		retentionDays:  retentionDays,
		templatesCount: templatesCount,
		logger:         logger,
	}
}

// HandleCallback applies the pressed button and redraws the screen.
func (h *ItemCallbacks) HandleCallback(ctx context.Context, bot telegram.Sender, query *tgbotapi.CallbackQuery, action, arg string) error {
	user, err := ensureUser(ctx, h.svc, query.From)
	if err != nil {
		return err
	}
	if !user.HasFamily() {
		return show(bot, query, welcomeView(user.Label()))
	}

	screen, note, err := h.apply(ctx, user, action, arg)
	if err != nil {
		return err
	}

	v, err := h.render(ctx, user, screen)
	if err != nil {
		return fmt.Errorf("render %s: %w", screen, err)
	}
	if note != "" {
		v = notice(v, note)
	}
	return show(bot, query, v)
}

// apply runs the action and returns the screen to show next. Recoverable
// failures come back as a note for the user.
func (h *ItemCallbacks) apply(ctx context.Context, user *models.User, action, arg string) (screen, note string, err error) {
	familyID := *user.FamilyID

	var opErr error
	switch action {
	case actionList, actionArchive, actionTemplates:
		return action, "", nil
	case actionTrash:
		if arg == "" {
			return actionTrash, "", nil
		}
		id, err := parseID(arg)
		if err != nil {
			return "", "", err
		}
		screen, note = actionList, "🗑 Moved to trash."
		opErr = h.svc.Delete(ctx, familyID, user.ID, id)
	case actionBuy:
		id, err := parseID(arg)
		if err != nil {
			return "", "", err
		}
		screen, note = actionList, "✅ Marked as bought."
		opErr = h.svc.MarkBought(ctx, familyID, user.ID, id)
	case actionRestoreArchive:
		id, err := parseID(arg)
		if err != nil {
			return "", "", err
		}
		screen, note = actionArchive, "↩️ Back on the list."
		opErr = h.svc.Restore(ctx, familyID, id, models.StateArchived)
	case actionRestoreTrash:
		id, err := parseID(arg)
		if err != nil {
			return "", "", err
		}
		screen, note = actionTrash, "↩️ Back on the list."
		opErr = h.svc.Restore(ctx, familyID, id, models.StateTrashed)
	case actionPurge:
		id, err := parseID(arg)
		if err != nil {
			return "", "", err
		}
		screen, note = actionTrash, "❌ Deleted for good."
		opErr = h.svc.Purge(ctx, familyID, user.ID, id)
	case actionClearTrash:
		screen = actionTrash
		var purged int64
		purged, opErr = h.svc.PurgeFamilyTrash(ctx, familyID, user.ID, h.retentionDays)
		note = fmt.Sprintf("🧹 Removed %d items older than %d days.", purged, h.retentionDays)
	case actionRebuildTemplates:
		screen = actionTemplates
		var stored int
		stored, opErr = h.rebuildTemplates(ctx, user)
		note = fmt.Sprintf("🔄 Frequent items updated: %d.", stored)
	case actionTemplate:
		screen, note = actionList, "✅ Added."
		_, opErr = h.svc.AddItem(ctx, familyID, user.ID, arg)
	default:
		return "", "", fmt.Errorf("unknown item action %q", action)
	}

	if opErr != nil {
		text, ok := userError(opErr)
		if !ok {
			return "", "", fmt.Errorf("%s: %w", action, opErr)
		}
		note = text
	}

	h.logger.WithFields(logrus.Fields{
		"user_id":   user.ID,
		"family_id": familyID,
		"action":    action,
		"ok":        opErr == nil,
	}).Info("Item action handled")

	return screen, note, nil
}

// rebuildTemplates refreshes the family's frequent items. Admins only.
func (h *ItemCallbacks) rebuildTemplates(ctx context.Context, user *models.User) (int, error) {
	if !user.IsAdmin {
		return 0, service.ErrNotAdmin
	}
	return h.svc.RebuildTemplates(ctx, *user.FamilyID, h.templatesCount)
}

func (h *ItemCallbacks) render(ctx context.Context, user *models.User, screen string) (view, error) {
	familyID := *user.FamilyID

	switch screen {
	case actionArchive:
		items, err := h.svc.ListArchived(ctx, familyID, historyLimit)
		if err != nil {
			return view{}, err
		}
		return archiveView(items), nil
	case actionTrash:
		items, err := h.svc.ListTrashed(ctx, familyID, historyLimit)
		if err != nil {
			return view{}, err
		}
		return trashView(user, items), nil
	case actionTemplates:
		templates, err := h.svc.Templates(ctx, familyID)
		if err != nil {
			return view{}, err
		}
		return templatesView(user, templates), nil
	default:
		return listScreen(ctx, h.svc, user)
	}
}
