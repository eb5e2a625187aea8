package auth_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	auth "github.com/urvue/go-auth"
)

func newControllerFixture(t *testing.T) (*auth.HTTPController, auth.RepositoryManager, *MockIdentityProvider) {
	t.Helper()
	db := newTestDB(t)
	repo := auth.NewRepositoryManager(db)
	provider := new(MockIdentityProvider)
	auther := auth.NewAuthenticator(provider, repo, newTestConfig())
	revoker := auth.NewRevoker(provider, repo.SessionTokens())
	controller := auth.NewHTTPController(auther, revoker, auth.HTTPConfig{})
	return controller, repo, provider
}

func TestHTTPControllerLoginSuccess(t *testing.T) {
	controller, _, provider := newControllerFixture(t)

	expectIdentity(provider, "cred-1", &auth.ExternalIdentity{
		ExternalID:  "ext-1",
		DisplayName: "Ada Lovelace",
	})

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer cred-1")
	ctx.On("GetString", "X-Client-Platform", "").Return("")
	ctx.On("Context").Return(context.Background())

	var payload map[string]any
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.Login(ctx))
	require.NotNil(t, payload)

	assert.Equal(t, true, payload["success"])
	assert.NotEmpty(t, payload["token"])
	assert.Equal(t, true, payload["new_user"])
	assert.Equal(t, false, payload["admin"])

	profile, ok := payload["profile"].(auth.Profile)
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", profile.Name)
	assert.Equal(t, "UR1", profile.RefCode)
}

func TestHTTPControllerLoginRejectsBadCredential(t *testing.T) {
	controller, _, provider := newControllerFixture(t)

	provider.On("VerifyCredential", mock.Anything, "bad-cred", true).
		Return(nil, auth.ErrCredentialInvalid)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("Bearer bad-cred")
	ctx.On("GetString", "X-Client-Platform", "").Return("")
	ctx.On("Context").Return(context.Background())

	var payload map[string]any
	ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.Login(ctx))
	require.NotNil(t, payload)

	assert.Equal(t, false, payload["success"])
	assert.Equal(t, auth.TextCodeCredentialInvalid, payload["code"])
}

func TestHTTPControllerLoginMissingHeader(t *testing.T) {
	controller, _, _ := newControllerFixture(t)

	ctx := router.NewMockContext()
	ctx.On("GetString", "Authorization", "").Return("")
	ctx.On("GetString", "X-Client-Platform", "").Return("")
	ctx.On("Context").Return(context.Background())
	ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Return(nil)

	require.NoError(t, controller.Login(ctx))
	ctx.AssertCalled(t, "JSON", router.StatusUnauthorized, mock.Anything)
}

func TestHTTPControllerLogout(t *testing.T) {
	controller, repo, provider := newControllerFixture(t)
	bg := context.Background()

	user := seedUser(t, repo.Users(), "ext-1", "UR1")
	_, err := repo.SessionTokens().Create(bg, &auth.SessionToken{Token: "token-a", UserID: user.ID})
	require.NoError(t, err)

	provider.On("RevokeRefreshTokens", mock.Anything, "ext-1").Return(nil)

	ctx := router.NewMockContext()
	ctx.LocalsMock["user"] = &auth.Actor{User: user}
	ctx.On("Context").Return(bg)

	var payload map[string]any
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.Logout(ctx))
	require.NotNil(t, payload)
	assert.Equal(t, true, payload["success"])

	_, err = repo.SessionTokens().FindWithUser(bg, "token-a", user.ID)
	require.Error(t, err)
}

func TestHTTPControllerLogoutWithoutActor(t *testing.T) {
	controller, _, _ := newControllerFixture(t)

	ctx := router.NewMockContext()
	ctx.On("JSON", router.StatusUnauthorized, mock.Anything).Return(nil)

	require.NoError(t, controller.Logout(ctx))
	ctx.AssertCalled(t, "JSON", router.StatusUnauthorized, mock.Anything)
}

func TestHTTPControllerMe(t *testing.T) {
	controller, _, _ := newControllerFixture(t)

	user := &auth.User{DisplayName: "Ada", ReferralCode: "UR1"}

	ctx := router.NewMockContext()
	ctx.LocalsMock["user"] = &auth.Actor{User: user}

	var payload map[string]any
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		payload = args.Get(1).(map[string]any)
	}).Return(nil)

	require.NoError(t, controller.Me(ctx))
	require.NotNil(t, payload)

	profile, ok := payload["profile"].(auth.Profile)
	require.True(t, ok)
	assert.Equal(t, "Ada", profile.Name)
	assert.Equal(t, "UR1", profile.RefCode)
}
