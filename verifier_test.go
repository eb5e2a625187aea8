package auth_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	auth "github.com/urvue/go-auth"
)

func TestExtractLoginCredential(t *testing.T) {
	tests := []struct {
		name          string
		authorization string
		want          string
		wantErr       bool
	}{
		{"well formed", "Bearer abc.def.ghi", "abc.def.ghi", false},
		{"empty header", "", "", true},
		{"no scheme", "abc.def.ghi", "", true},
		// the login contract is case-sensitive; lowercase belongs to the gates
		{"lowercase scheme", "bearer abc.def.ghi", "", true},
		{"scheme only", "Bearer ", "", true},
		{"scheme with blank token", "Bearer    ", "", true},
		{"missing space", "Bearerabc", "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := auth.ExtractLoginCredential(tc.authorization)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, auth.ErrCredentialMissing))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestVerifyPassesCredentialVerdictsThrough(t *testing.T) {
	for _, verdict := range []error{
		auth.ErrCredentialInvalid,
		auth.ErrCredentialExpired,
		auth.ErrCredentialRevoked,
	} {
		provider := new(MockIdentityProvider)
		provider.On("VerifyCredential", mock.Anything, "some-credential", true).
			Return(nil, verdict)

		verifier := auth.NewCredentialVerifier(provider)
		_, err := verifier.Verify(context.Background(), "some-credential")
		require.Error(t, err)
		assert.True(t, errors.Is(err, verdict), "expected %v, got %v", verdict, err)
	}
}

func TestVerifyWrapsUnclassifiedErrors(t *testing.T) {
	provider := new(MockIdentityProvider)
	provider.On("VerifyCredential", mock.Anything, "some-credential", true).
		Return(nil, fmt.Errorf("connection reset"))

	verifier := auth.NewCredentialVerifier(provider)
	_, err := verifier.Verify(context.Background(), "some-credential")
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrProviderUnavailable))
	assert.False(t, auth.IsCredentialError(err))
}

func TestVerifyRejectsEmptyIdentity(t *testing.T) {
	provider := new(MockIdentityProvider)
	provider.On("VerifyCredential", mock.Anything, "some-credential", true).
		Return(&auth.ExternalIdentity{}, nil)

	verifier := auth.NewCredentialVerifier(provider)
	_, err := verifier.Verify(context.Background(), "some-credential")
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrProviderUnavailable))
}

func TestVerifyHeaderChecksRevocation(t *testing.T) {
	provider := new(MockIdentityProvider)
	provider.On("VerifyCredential", mock.Anything, "abc", true).
		Return(&auth.ExternalIdentity{ExternalID: "ext-1", DisplayName: "Ada"}, nil)

	verifier := auth.NewCredentialVerifier(provider)
	identity, err := verifier.VerifyHeader(context.Background(), "Bearer abc")
	require.NoError(t, err)
	assert.Equal(t, "ext-1", identity.ExternalID)
	provider.AssertCalled(t, "VerifyCredential", mock.Anything, "abc", true)
}
