package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/campuslost/lostfound/internal/mail"
	"github.com/campuslost/lostfound/internal/metrics"
	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/store"
)

// MatchFinder finds approved opposite-type items whose titles contain, or
// are contained in, the source title.
type MatchFinder struct {
	DB      *sql.DB
	Metrics *metrics.Metrics
}

// TitlesMatch reports whether one trimmed title is a case-insensitive
// substring of the other. Blank titles match nothing.
func TitlesMatch(a, b string) bool {
	a = strings.ToLower(strings.TrimSpace(a))
	b = strings.ToLower(strings.TrimSpace(b))
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

// Find returns the approved items of the opposite type matching item's
// title, newest first. The item itself is never returned.
func (m *MatchFinder) Find(ctx context.Context, item *model.Item) ([]model.Item, error) {
	if strings.TrimSpace(item.Title) == "" || !model.ValidType(item.Type) {
		return nil, nil
	}

	approved := true
	candidates, _, err := store.ListItems(ctx, m.DB, store.ItemFilter{
		Type:     model.OppositeType(item.Type),
		Approved: &approved,
	}, store.Page{})
	if err != nil {
		return nil, fmt.Errorf("loading match candidates: %w", err)
	}

	var matches []model.Item
	for _, c := range candidates {
		if c.ID == item.ID {
			continue
		}
		if TitlesMatch(item.Title, c.Title) {
			matches = append(matches, c)
		}
	}
	m.Metrics.Matches(len(matches))
	return matches, nil
}

// fanOut runs the match finder for a newly eligible item and notifies the
// lost-item side of every match.
type fanOut struct {
	matches   *MatchFinder
	notifier  *Dispatcher
	templates *mail.Renderer
	logger    *slog.Logger
	fx        *effects
}

// notify is best effort: failures are logged and the returned count only
// covers notifications that were stored.
func (f *fanOut) notify(ctx context.Context, op string, source *model.Item) int {
	sent := 0
	f.fx.run(ctx, op+".match", func(ctx context.Context) error {
		matches, err := f.matches.Find(ctx, source)
		if err != nil {
			return err
		}
		f.logger.InfoContext(ctx, "matches found", "op", op, "item", source.ID, "type", source.Type, "matches", len(matches))

		for i := range matches {
			lost, found := source, &matches[i]
			if source.Type == model.ItemTypeFound {
				lost, found = &matches[i], source
			}
			if f.notifyMatch(ctx, op, lost, found) {
				sent++
			}
		}
		return nil
	}, "item", source.ID)
	return sent
}

func (f *fanOut) notifyMatch(ctx context.Context, op string, lost, found *model.Item) bool {
	message := fmt.Sprintf(`A found item "%s" matches your lost item "%s". Check it out!`, found.Title, lost.Title)
	n := f.notifier.Notify(ctx, op, Notice{
		UserID:  lost.PostedBy,
		ItemID:  found.ID,
		Message: message,
		Email: func(recipient *model.User) (*mail.Email, error) {
			return f.templates.Match(mail.TemplateData{
				RecipientName: recipient.Name,
				ItemID:        found.ID,
				FoundTitle:    found.Title,
				LostTitle:     lost.Title,
			})
		},
	})
	return n != nil
}
