package sqlstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/Kerhoff/ShoplistBot/internal/models"
)

type templateRepository struct {
	q sqlx.ExtContext
}

// Replace rebuilds the family's shortlist from its archived items, grouping
// texts case-insensitively. Run it inside a transaction.
func (r *templateRepository) Replace(ctx context.Context, familyID int64, limit int, now time.Time) (int, error) {
	if _, err := exec(ctx, r.q, `DELETE FROM templates WHERE family_id = ?`, familyID); err != nil {
		return 0, fmt.Errorf("failed to clear templates: %w", err)
	}

	query := `
		SELECT MIN(text) AS item_text, COUNT(*) AS hits
		FROM archived_items
		WHERE family_id = ?
		GROUP BY lower(text)
		ORDER BY hits DESC, item_text ASC
		LIMIT ?`

	var ranked []struct {
		ItemText string `db:"item_text"`
		Hits     int    `db:"hits"`
	}
	if err := sqlx.SelectContext(ctx, r.q, &ranked, r.q.Rebind(query), familyID, limit); err != nil {
		return 0, fmt.Errorf("failed to rank archived items: %w", err)
	}

	insert := `INSERT INTO templates (family_id, item_text, hits, last_updated) VALUES (?, ?, ?, ?)`
	for _, t := range ranked {
		if _, err := exec(ctx, r.q, insert, familyID, t.ItemText, t.Hits, now.UTC()); err != nil {
			return 0, wrapWrite(err, "insert template")
		}
	}

	return len(ranked), nil
}

func (r *templateRepository) List(ctx context.Context, familyID int64, limit int) ([]*models.Template, error) {
	query := `
		SELECT family_id, item_text, hits, last_updated
		FROM templates
		WHERE family_id = ?
		ORDER BY hits DESC, item_text ASC
		LIMIT ?`

	var templates []*models.Template
	if err := sqlx.SelectContext(ctx, r.q, &templates, r.q.Rebind(query), familyID, limit); err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	return templates, nil
}
