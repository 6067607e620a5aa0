package authbridge

import (
	"context"
	"database/sql"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// oneShotTokenTTL bounds the token handed to the account-initialization
// UI right after a registration code is redeemed.
const oneShotTokenTTL = 10 * time.Minute

// FlowOutcome tells the HTTP layer where to send the browser and
// whether a fresh session cookie must be set.
type FlowOutcome struct {
	Location string
	Session  *Session
}

// Flow drives the redirect-authentication state machine behind the
// authenticate, initialize, and redirect entry points.
type Flow struct {
	repo     RepositoryManager
	tokens   *TokenService
	postback *PostbackClient
	events   *EventRecorder
	cfg      Config
	logger   Logger
}

// NewFlow wires the orchestrator.
func NewFlow(repo RepositoryManager, tokens *TokenService, postback *PostbackClient, events *EventRecorder, cfg Config, logger Logger) *Flow {
	if logger == nil {
		logger = defLogger{}
	}
	return &Flow{
		repo:     repo,
		tokens:   tokens,
		postback: postback,
		events:   events,
		cfg:      cfg,
		logger:   logger,
	}
}

// Authenticate handles the relying party's entry point. An
// authenticated session gets its token immediately, delivered by
// postback or by redirect query parameters. Anyone else gets an
// anonymous session (created or reused), a pending redirect recording
// the intent, and a trip to the re-authentication UI.
func (f *Flow) Authenticate(ctx context.Context, rawSessionID, redirectURL, postbackURL, state string) (*FlowOutcome, error) {
	if redirectURL == "" {
		return nil, ErrMissingParameter
	}
	if err := validateAbsoluteURL(redirectURL); err != nil {
		return nil, err
	}
	if postbackURL != "" {
		if err := validateAbsoluteURL(postbackURL); err != nil {
			return nil, err
		}
	}

	session := f.lookupSession(ctx, rawSessionID)

	if session != nil && !session.IsAnonymous() {
		location, err := f.deliverToken(ctx, session.ID, redirectURL, optional(postbackURL), optional(state))
		if err != nil {
			return nil, err
		}

		f.events.Record(EventAuthenticate, &session.ID, "token delivered")
		return &FlowOutcome{Location: location}, nil
	}

	outcome := &FlowOutcome{Location: f.cfg.GetReauthURL()}

	if session == nil {
		created, err := f.repo.Sessions().CreateAnonymous(ctx)
		if err != nil {
			return nil, err
		}
		session = created
		outcome.Session = created
	}

	ttl := time.Duration(f.cfg.GetPendingRedirectTTL()) * time.Second
	if _, err := f.repo.PendingRedirects().Create(ctx, session.ID, redirectURL, optional(postbackURL), optional(state), ttl); err != nil {
		return nil, err
	}

	f.events.Record(EventAuthenticate, &session.ID, "pending redirect created")
	return outcome, nil
}

// Initialize redeems a registration code. The code is consumed and the
// authenticated session created in one transaction, so a code can
// authorize exactly one account bootstrap. A pending redirect captured
// from the visitor's anonymous session is carried onto the new one.
func (f *Flow) Initialize(ctx context.Context, rawSessionID, regCode string) (*FlowOutcome, error) {
	if regCode == "" {
		return nil, ErrMissingParameter
	}

	record, err := f.repo.RegistrationCodes().Resolve(ctx, regCode)
	if err != nil {
		return nil, err
	}

	var captured *PendingRedirect

	if existing := f.lookupSession(ctx, rawSessionID); existing != nil {
		if !existing.IsAnonymous() {
			user, err := f.repo.Users().GetUser(ctx, *existing.UserID)
			if err == nil && user.IsInitialized {
				// already set up; nothing to redeem, keep the session
				if has, _ := f.repo.PendingRedirects().HasPending(ctx, existing.ID); has {
					return &FlowOutcome{Location: "/redirect"}, nil
				}
				return &FlowOutcome{Location: f.cfg.GetPortalURL()}, nil
			}
		} else {
			if pending, err := f.repo.PendingRedirects().Latest(ctx, existing.ID); err == nil {
				captured = pending
			}
		}
	}

	var session *Session
	err = f.repo.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if err := f.repo.RegistrationCodes().ConsumeTx(ctx, tx, record.Code); err != nil {
			return err
		}

		created, err := f.repo.Sessions().CreateAuthenticatedTx(ctx, tx, record.UserID)
		if err != nil {
			return err
		}
		session = created

		if captured != nil {
			return f.repo.PendingRedirects().ReattachTx(ctx, tx, captured.ID, created.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	claims, err := f.tokens.MakeClaims(ctx, session.ID, WithTTL(oneShotTokenTTL))
	if err != nil {
		return nil, ErrRedirectFailed
	}

	token, err := f.tokens.IssueToken(claims)
	if err != nil {
		return nil, ErrRedirectFailed
	}

	f.events.Record(EventInitialize, &session.ID, "registration code redeemed")
	return &FlowOutcome{
		Location: appendTokenParams(f.cfg.GetInitializeURL(), token, ""),
		Session:  session,
	}, nil
}

// Resume completes a parked authentication intent. The pending redirect
// is deleted after the attempt whether delivery succeeded or not, so a
// resumption can happen at most once.
func (f *Flow) Resume(ctx context.Context, rawSessionID string) (*FlowOutcome, error) {
	if rawSessionID == "" {
		return nil, ErrSessionMissing
	}

	sessionID, err := uuid.Parse(rawSessionID)
	if err != nil {
		return nil, ErrSessionMissing
	}

	pending, err := f.repo.PendingRedirects().Latest(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrPendingRedirectNotFound) {
			return nil, err
		}
		return nil, ErrRedirectFailed
	}

	if pending.Expired(time.Now()) {
		f.cleanup(ctx, pending)
		return nil, ErrPendingRedirectNotFound
	}

	if err := validateAbsoluteURL(pending.RedirectURL); err != nil {
		f.cleanup(ctx, pending)
		return nil, err
	}
	if pending.PostbackURL != nil {
		if err := validateAbsoluteURL(*pending.PostbackURL); err != nil {
			f.cleanup(ctx, pending)
			return nil, err
		}
	}

	location, err := f.deliverToken(ctx, sessionID, pending.RedirectURL, pending.PostbackURL, pending.State)
	f.cleanup(ctx, pending)
	if err != nil {
		return nil, err
	}

	f.events.Record(EventRedirect, &sessionID, "pending redirect resumed")
	return &FlowOutcome{Location: location}, nil
}

// deliverToken mints a token for the session and applies the
// postback-vs-query branching: when a postback URL exists the token
// travels server-to-server and the browser gets the bare redirect URL,
// keeping the token out of browser history and referrer headers.
func (f *Flow) deliverToken(ctx context.Context, sessionID uuid.UUID, redirectURL string, postbackURL, state *string) (string, error) {
	claims, err := f.tokens.MakeClaims(ctx, sessionID)
	if err != nil {
		f.logger.Error("claim construction failed for session %s: %v", sessionID, err)
		return "", ErrRedirectFailed
	}

	token, err := f.tokens.IssueToken(claims)
	if err != nil {
		return "", ErrRedirectFailed
	}

	if postbackURL != nil {
		if err := f.postback.Deliver(ctx, *postbackURL, token, state); err != nil {
			f.logger.Error("postback to %s failed: %v", *postbackURL, err)
			return "", ErrPostbackFailed
		}
		return redirectURL, nil
	}

	return appendTokenParams(redirectURL, token, deref(state)), nil
}

func (f *Flow) cleanup(ctx context.Context, pending *PendingRedirect) {
	if err := f.repo.PendingRedirects().Delete(ctx, pending.ID); err != nil {
		f.logger.Error("failed to delete pending redirect %s: %v", pending.ID, err)
	}
}

// lookupSession resolves the cookie value to a session, treating a
// missing, malformed, or unknown id all as "no session".
func (f *Flow) lookupSession(ctx context.Context, rawSessionID string) *Session {
	if rawSessionID == "" {
		return nil
	}

	id, err := uuid.Parse(rawSessionID)
	if err != nil {
		return nil
	}

	session, err := f.repo.Sessions().Get(ctx, id)
	if err != nil {
		return nil
	}

	return session
}

func validateAbsoluteURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidURL
	}
	return nil
}

// appendTokenParams appends token (and state, when present) preserving
// parameter order: relying parties match on token-first locations.
func appendTokenParams(rawURL, token, state string) string {
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}

	location := rawURL + sep + "token=" + url.QueryEscape(token)
	if state != "" {
		location += "&state=" + url.QueryEscape(state)
	}
	return location
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
