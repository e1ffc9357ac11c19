package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/content-vault-api/internal/models"
	"github.com/noah-isme/content-vault-api/internal/repository"
	appErrors "github.com/noah-isme/content-vault-api/pkg/errors"
)

type failingSessions struct{}

func (failingSessions) Remember(ctx context.Context, sessionID, batchID, token string) error {
	return errors.New("redis down")
}

func (failingSessions) Recall(ctx context.Context, sessionID, batchID string) (string, bool, error) {
	return "", false, errors.New("redis down")
}

func (failingSessions) Forget(ctx context.Context, sessionID, batchID string) error { return nil }

func TestAccessGateAuthorize(t *testing.T) {
	ctx := context.Background()
	sessions := repository.NewMemorySessionStore(16, 0)
	gate := NewAccessGate(sessions, nil)
	require.NoError(t, gate.Remember(ctx, "sess", "b1", "tok"))

	pending := &models.Batch{ID: "b1", AccessToken: "tok", Status: models.StatusPending}
	approved := &models.Batch{ID: "b1", AccessToken: "tok", Status: models.StatusApproved}
	owner := Credentials{Token: "tok", SessionID: "sess"}

	cases := []struct {
		name  string
		batch *models.Batch
		creds Credentials
		mode  AccessMode
		want  *appErrors.Error
	}{
		{"owner reads pending", pending, owner, AccessRead, nil},
		{"owner writes pending", pending, owner, AccessWrite, nil},
		{"anyone reads approved", approved, Credentials{}, AccessRead, nil},
		{"owner writes approved", approved, owner, AccessWrite, appErrors.ErrBatchLocked},
		{"stranger writes approved", approved, Credentials{}, AccessWrite, appErrors.ErrForbidden},
		{"wrong token", pending, Credentials{Token: "nope", SessionID: "sess"}, AccessRead, appErrors.ErrForbidden},
		{"other session", pending, Credentials{Token: "tok", SessionID: "other"}, AccessRead, appErrors.ErrForbidden},
		{"no session", pending, Credentials{Token: "tok"}, AccessRead, appErrors.ErrForbidden},
		{"nil batch", nil, owner, AccessRead, appErrors.ErrForbidden},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := gate.Authorize(ctx, tc.batch, tc.creds, tc.mode)
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestAccessGateStoreFailureIsInternal(t *testing.T) {
	gate := NewAccessGate(failingSessions{}, nil)
	batch := &models.Batch{ID: "b1", AccessToken: "tok", Status: models.StatusPending}

	err := gate.Authorize(context.Background(), batch, Credentials{Token: "tok", SessionID: "sess"}, AccessRead)
	require.Error(t, err)
	assert.True(t, appErrors.IsInternal(err))

	err = gate.Remember(context.Background(), "sess", "b1", "tok")
	assert.True(t, appErrors.IsInternal(err))
	err = gate.Remember(context.Background(), "", "b1", "tok")
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}
