// Package service holds the lost-and-found core: matching, notification
// dispatch, the claim lifecycle and moderation, plus the account and item
// operations the HTTP layer exposes.
package service

import (
	"database/sql"
	"log/slog"

	"github.com/campuslost/lostfound/internal/auth"
	"github.com/campuslost/lostfound/internal/blob"
	"github.com/campuslost/lostfound/internal/mail"
	"github.com/campuslost/lostfound/internal/metrics"
)

// Options are the collaborators wired into a Service.
type Options struct {
	Mailer    mail.Mailer
	Templates *mail.Renderer
	Blobs     blob.Store
	Metrics   *metrics.Metrics
	Logger    *slog.Logger
	Revoker   auth.Revoker
	JWTSecret string
	// AsyncEmail sends emails on background goroutines.
	AsyncEmail bool
}

// Service bundles the core components over one database.
type Service struct {
	Matches    *MatchFinder
	Notifier   *Dispatcher
	Claims     *ClaimManager
	Moderation *ModerationGate
	Items      *ItemService
	Accounts   *AccountService
	Inbox      *Inbox

	fx *effects
}

// New wires the components. A nil Mailer disables email; a nil Logger uses slog.Default.
func New(db *sql.DB, opts Options) (*Service, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	templates := opts.Templates
	if templates == nil {
		var err error
		templates, err = mail.NewRenderer("http://localhost:5173")
		if err != nil {
			return nil, err
		}
	}
	revoker := opts.Revoker
	if revoker == nil {
		revoker = &auth.SQLiteRevoker{DB: db}
	}

	fx := &effects{logger: logger, async: opts.AsyncEmail}
	matches := &MatchFinder{DB: db, Metrics: opts.Metrics}
	notifier := &Dispatcher{
		DB:        db,
		Mailer:    opts.Mailer,
		Templates: templates,
		Metrics:   opts.Metrics,
		logger:    logger,
		fx:        fx,
	}
	fan := &fanOut{matches: matches, notifier: notifier, templates: templates, logger: logger, fx: fx}

	return &Service{
		Matches:  matches,
		Notifier: notifier,
		Claims: &ClaimManager{
			DB:        db,
			Notifier:  notifier,
			Templates: templates,
			Metrics:   opts.Metrics,
			logger:    logger,
		},
		Moderation: &ModerationGate{DB: db, fan: fan, logger: logger},
		Items:      &ItemService{DB: db, Blobs: opts.Blobs, fan: fan, logger: logger},
		Accounts:   &AccountService{DB: db, Secret: opts.JWTSecret, Revoker: revoker, logger: logger},
		Inbox:      &Inbox{DB: db},
		fx:         fx,
	}, nil
}

// Wait blocks until background side effects have finished.
func (s *Service) Wait() {
	s.fx.wait()
}
