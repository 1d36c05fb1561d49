package docstore

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	dErrors "hirelane/pkg/domain-errors"
	"hirelane/pkg/platform/sentinel"
)

func newStore(t *testing.T) *Memory {
	t.Helper()
	signer := NewURLSigner([]byte("test-signing-secret"), "https://files.example.com/documents")
	return NewMemory(signer)
}

func tokenFrom(t *testing.T, signed string) string {
	t.Helper()
	u, err := url.Parse(signed)
	require.NoError(t, err)
	return u.Query().Get("token")
}

func TestStoreAndPresign(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	ref, err := store.Store(ctx, []byte("resume body"), "resume", "owner-1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(ref, "resume-"))

	content, ok := store.Content(ref)
	require.True(t, ok)
	require.Equal(t, []byte("resume body"), content)

	signed, err := store.PresignedURL(ctx, ref, 10*time.Minute)
	require.NoError(t, err)
	require.Contains(t, signed, "https://files.example.com/documents/"+ref)

	gotRef, gotPurpose, err := store.signer.VerifyURLToken(tokenFrom(t, signed))
	require.NoError(t, err)
	require.Equal(t, ref, gotRef)
	require.Equal(t, "resume", gotPurpose)
}

func TestPresignUnknownRef(t *testing.T) {
	store := newStore(t)
	_, err := store.PresignedURL(context.Background(), "resume-missing", time.Minute)
	require.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestExpiredTokenRejected(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	ref, err := store.Store(ctx, []byte("cover letter"), "cover_letter", "owner-1")
	require.NoError(t, err)

	signed, err := store.PresignedURL(ctx, ref, -time.Minute)
	require.NoError(t, err)

	_, _, err = store.signer.VerifyURLToken(tokenFrom(t, signed))
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestForeignSecretRejected(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	ref, err := store.Store(ctx, []byte("portfolio"), "portfolio", "owner-1")
	require.NoError(t, err)

	foreign := NewURLSigner([]byte("some-other-secret"), "https://files.example.com/documents")
	signed, err := foreign.SignURL(ref, "portfolio", time.Minute)
	require.NoError(t, err)

	_, _, err = store.signer.VerifyURLToken(tokenFrom(t, signed))
	require.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	ref, err := store.Store(ctx, []byte("resume body"), "resume", "owner-1")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, ref))
	_, ok := store.Content(ref)
	require.False(t, ok)

	require.ErrorIs(t, store.Delete(ctx, ref), sentinel.ErrNotFound)
}
