package service

import (
	"context"
	"crypto/subtle"

	"go.uber.org/zap"

	"github.com/noah-isme/content-vault-api/internal/models"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
)

// SessionStore remembers which batch tokens a browser session created.
type SessionStore interface {
	Remember(ctx context.Context, sessionID, batchID, token string) error
	Recall(ctx context.Context, sessionID, batchID string) (string, bool, error)
	Forget(ctx context.Context, sessionID, batchID string) error
}

// Credentials are what a caller presents for a batch.
type Credentials struct {
	Token     string
	SessionID string
}

// AccessMode distinguishes reads from mutations.
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
)

var errAccessDenied = appErrors.Clone(appErrors.ErrForbidden, "access denied")

// AccessGate decides whether a caller may touch a batch. Approved batches are
// public for reads. Everything else needs the presented token to equal the
// stored token and the token the caller's session remembered for the batch.
type AccessGate struct {
	sessions SessionStore
	logger   *zap.Logger
}

// NewAccessGate constructs the gate.
func NewAccessGate(sessions SessionStore, logger *zap.Logger) *AccessGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccessGate{sessions: sessions, logger: logger}
}

// Authorize returns nil when access is granted. Every denial is the same 403.
// Writes to an approved batch by the token holder yield ErrBatchLocked.
func (g *AccessGate) Authorize(ctx context.Context, batch *models.Batch, creds Credentials, mode AccessMode) error {
	if batch == nil {
		return errAccessDenied
	}
	if mode == AccessRead && batch.Status == models.StatusApproved {
		return nil
	}
	if err := g.match(ctx, batch, creds); err != nil {
		return err
	}
	if mode == AccessWrite && batch.Status == models.StatusApproved {
		return appErrors.ErrBatchLocked
	}
	return nil
}

// Remember binds a freshly minted token to the caller's session.
func (g *AccessGate) Remember(ctx context.Context, sessionID, batchID, token string) error {
	if sessionID == "" {
		return appErrors.Clone(appErrors.ErrValidation, "session required")
	}
	if err := g.sessions.Remember(ctx, sessionID, batchID, token); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remember batch token")
	}
	return nil
}

// Forget drops the session's binding for batchID.
func (g *AccessGate) Forget(ctx context.Context, sessionID, batchID string) error {
	if sessionID == "" {
		return nil
	}
	return g.sessions.Forget(ctx, sessionID, batchID)
}

func (g *AccessGate) match(ctx context.Context, batch *models.Batch, creds Credentials) error {
	if creds.Token == "" || creds.SessionID == "" || batch.AccessToken == "" {
		return errAccessDenied
	}
	if !tokensEqual(creds.Token, batch.AccessToken) {
		return errAccessDenied
	}
	remembered, ok, err := g.sessions.Recall(ctx, creds.SessionID, batch.ID)
	if err != nil {
		g.logger.Error("session recall failed", zap.String("batch_id", batch.ID), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check session")
	}
	if !ok || !tokensEqual(remembered, batch.AccessToken) {
		return errAccessDenied
	}
	return nil
}

func tokensEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
