package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campuslost/lostfound/internal/db"
	"github.com/campuslost/lostfound/internal/mail"
	"github.com/campuslost/lostfound/internal/model"
	"github.com/campuslost/lostfound/internal/store"
)

type sentMail struct {
	To, Subject, HTML string
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, HTML: html})
	return nil
}

func (m *recordingMailer) to(addr string) []sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentMail
	for _, s := range m.sent {
		if s.To == addr {
			out = append(out, s)
		}
	}
	return out
}

type fixture struct {
	t      *testing.T
	ctx    context.Context
	db     *sql.DB
	svc    *Service
	mailer *recordingMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	database := db.NewTestDB(t)
	mailer := &recordingMailer{}
	templates, err := mail.NewRenderer("http://lost.test")
	require.NoError(t, err)

	svc, err := New(database, Options{
		Mailer:    mailer,
		Templates: templates,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		JWTSecret: "test-secret",
	})
	require.NoError(t, err)

	return &fixture{t: t, ctx: context.Background(), db: database, svc: svc, mailer: mailer}
}

func (f *fixture) user(name, email string) Actor {
	f.t.Helper()
	u, err := store.CreateUser(f.ctx, f.db, name, email, "hash", model.RoleUser)
	require.NoError(f.t, err)
	return ActorOf(u)
}

func (f *fixture) admin() Actor {
	f.t.Helper()
	u, err := store.CreateUser(f.ctx, f.db, "Admin", "admin@campus.edu", "hash", model.RoleAdmin)
	require.NoError(f.t, err)
	return ActorOf(u)
}

func (f *fixture) item(owner Actor, title, itemType string) *model.Item {
	f.t.Helper()
	item, err := f.svc.Items.Create(f.ctx, owner, NewItem{
		Fields: model.ItemFields{
			Title:       title,
			Description: "Seen around campus",
			Category:    "Others",
			Location:    "Library",
		},
		Type: itemType,
	})
	require.NoError(f.t, err)
	return item
}

func (f *fixture) approvedItem(owner, admin Actor, title, itemType string) *model.Item {
	f.t.Helper()
	item := f.item(owner, title, itemType)
	approved, err := f.svc.Moderation.ApproveItem(f.ctx, admin, item.ID)
	require.NoError(f.t, err)
	return approved
}

func (f *fixture) notifications(a Actor) []model.Notification {
	f.t.Helper()
	list, _, _, err := store.ListNotifications(f.ctx, f.db, a.ID, store.Page{})
	require.NoError(f.t, err)
	return list
}

func (f *fixture) breakNotifications() {
	f.t.Helper()
	_, err := f.db.Exec(`DROP TABLE notifications`)
	require.NoError(f.t, err)
}

var errMailDown = errors.New("smtp: connection refused")
