package store

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/internal/transport"
	"github.com/agentstation/evently/pkg/api"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/logging"
	"github.com/agentstation/evently/pkg/types"
)

func TestAuthStore_CheckAuthWithoutSession(t *testing.T) {
	f := newFixture(t)
	s := NewAuthStore(f.svc.Auth, quiet())

	assert.False(t, s.CheckAuth(context.Background()))

	st := s.State()
	assert.True(t, st.Checked)
	assert.False(t, st.IsAuthenticated)
	assert.Nil(t, st.User)
	assert.Equal(t, PhaseAnonymous, st.Phase)
	assert.Empty(t, st.Error, "a missing session is not an error")
	assert.False(t, st.Loading)
}

func TestAuthStore_CheckAuthWithSession(t *testing.T) {
	f := newFixture(t)
	u := f.loginAs(t, types.RoleUser)
	s := NewAuthStore(f.svc.Auth, quiet())

	require.True(t, s.CheckAuth(context.Background()))

	got, ok := s.User()
	require.True(t, ok)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, PhaseAuthenticated, s.Phase())
}

func TestAuthStore_CheckAuthSharesOneRequest(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	r := requesterFunc(func(_ context.Context, req transport.Request, out any) error {
		calls.Add(1)
		<-release
		*out.(*types.User) = types.User{ID: 1, Name: "Ada"}
		return nil
	})
	s := NewAuthStore(api.New(r).Auth, quiet())

	var wg sync.WaitGroup
	results := make([]bool, 5)
	for i := range results {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = s.CheckAuth(context.Background())
		}()
	}
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	assert.Equal(t, []bool{true, true, true, true, true}, results)
	assert.True(t, s.IsAuthenticated())
}

func TestAuthStore_LoginFlow(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser(types.User{Name: "Ada", Email: "ada@evently.test"}, "secret")
	s := NewAuthStore(f.svc.Auth, quiet())
	notified := changes(s)
	ctx := context.Background()

	_, err := s.Login(ctx, types.LoginCredentials{Email: "ada@evently.test", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, errors.KindAuthentication, errors.KindOf(err))
	assert.Equal(t, errors.MsgAuthentication, s.Err())
	assert.Equal(t, PhaseAnonymous, s.Phase())

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid email or password", apiErr.Message)

	u, err := s.Login(ctx, types.LoginCredentials{Email: "ada@evently.test", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", u.Name)
	assert.True(t, s.IsAuthenticated())
	assert.Empty(t, s.Err(), "a new attempt clears the old error")
	assert.False(t, s.IsLoading())
	assert.Positive(t, notified.Load())
}

func TestAuthStore_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	s := NewAuthStore(f.svc.Auth, quiet())

	_, err := s.Register(context.Background(), types.RegisterData{Email: "bob@evently.test"})

	var ce *errors.ClassifiedError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, errors.KindValidation, ce.Kind)
	assert.Contains(t, ce.Fields, "name")
	assert.Contains(t, ce.Fields, "password")
	assert.False(t, s.IsAuthenticated())

	u, err := s.Register(context.Background(), types.RegisterData{Name: "Bob", Email: "bob@evently.test", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, types.RoleUser, u.Role)
	assert.True(t, s.IsAuthenticated())
}

func TestAuthStore_Logout(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr bool
	}{
		{name: "ok"},
		{name: "forbidden is treated as logged out", status: http.StatusForbidden},
		{name: "unauthorized is treated as logged out", status: http.StatusUnauthorized},
		{name: "server error is reported", status: http.StatusInternalServerError, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.srv.AddUser(types.User{Name: "Ada", Email: "ada@evently.test"}, "pw")
			s := NewAuthStore(f.svc.Auth, quiet())
			ctx := context.Background()
			_, err := s.Login(ctx, types.LoginCredentials{Email: "ada@evently.test", Password: "pw"})
			require.NoError(t, err)

			if tt.status != 0 {
				f.srv.Fail("POST /auth/logout", tt.status)
			}
			err = s.Logout(ctx)

			assert.False(t, s.IsAuthenticated())
			assert.Equal(t, PhaseAnonymous, s.Phase())
			assert.False(t, s.IsLoading())
			if tt.wantErr {
				assert.Equal(t, errors.KindServer, errors.KindOf(err))
				assert.Equal(t, errors.MsgServer, s.Err())
				return
			}
			assert.NoError(t, err)
			assert.Empty(t, s.Err())
		})
	}
}

func TestAuthStore_LogoutUnreachable(t *testing.T) {
	f := newFixture(t)
	s := NewAuthStore(f.svc.Auth, quiet())
	s.Restore(AuthSnapshot{User: &types.User{ID: 9}, IsAuthenticated: true})
	f.srv.Close()

	assert.NoError(t, s.Logout(context.Background()))
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.Err())
}

func TestAuthStore_RefreshToken(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser(types.User{Name: "Ada", Email: "ada@evently.test"}, "pw")
	s := NewAuthStore(f.svc.Auth, quiet())
	ctx := context.Background()
	_, err := s.Login(ctx, types.LoginCredentials{Email: "ada@evently.test", Password: "pw"})
	require.NoError(t, err)

	f.srv.ExpireSessions()
	assert.True(t, s.RefreshToken(ctx))
	assert.True(t, s.IsAuthenticated())

	f.srv.RevokeSessions()
	assert.False(t, s.RefreshToken(ctx))
	assert.Empty(t, s.Err(), "refresh failures are never recorded")
	assert.False(t, s.IsAuthenticated(), "a failed refresh signs the store out")
	_, ok := s.User()
	assert.False(t, ok)
	assert.Equal(t, PhaseAnonymous, s.State().Phase)
}

func TestAuthStore_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	f.srv.AddUser(types.User{Name: "Ada", Email: "ada@evently.test"}, "pw")
	s := NewAuthStore(f.svc.Auth, quiet())
	ctx := context.Background()
	_, err := s.Login(ctx, types.LoginCredentials{Email: "ada@evently.test", Password: "pw"})
	require.NoError(t, err)

	u, err := s.UpdateProfile(ctx, types.UpdateUserData{Name: "Ada L."})
	require.NoError(t, err)

	got, _ := s.User()
	assert.Equal(t, "Ada L.", u.Name)
	assert.Equal(t, "Ada L.", got.Name)
	assert.False(t, s.IsLoading())
}

func TestAuthStore_SnapshotRestore(t *testing.T) {
	s := NewAuthStore(nil, quiet())

	s.Restore(AuthSnapshot{User: &types.User{ID: 3, Name: "Kay"}, IsAuthenticated: true})
	snap := s.Snapshot()
	require.NotNil(t, snap.User)
	assert.Equal(t, 3, snap.User.ID)
	assert.True(t, snap.IsAuthenticated)

	s.Restore(AuthSnapshot{IsAuthenticated: true})
	assert.False(t, s.IsAuthenticated(), "a session without a user is not restored")

	s.Restore(AuthSnapshot{User: &types.User{ID: 3}, IsAuthenticated: true})
	s.ClearAuth()
	assert.Equal(t, PhaseAnonymous, s.Phase())
	_, ok := s.User()
	assert.False(t, ok)
}

func TestAuthStore_LogsCarryUser(t *testing.T) {
	f := newFixture(t)
	u := f.srv.AddUser(types.User{Name: "Noor", Email: "noor@evently.test", Role: types.RoleUser}, "pw")
	tl := logging.NewTestLogger(t)
	s := NewAuthStore(f.svc.Auth, WithLogger(tl.Logger))

	_, err := s.Login(context.Background(), types.LoginCredentials{Email: u.Email, Password: "pw"})
	require.NoError(t, err)

	entry := tl.Find("logged in")
	require.NotNil(t, entry)
	assert.EqualValues(t, u.ID, entry["user_id"])
}
