package store

import (
	"context"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/types"
)

func resume() types.File {
	return types.File{Name: "resume.pdf", Content: strings.NewReader("%PDF-1.4")}
}

func TestOrganizerStore_Submit(t *testing.T) {
	f := newFixture(t)
	u := f.loginAs(t, types.RoleUser)
	s := NewOrganizerStore(f.svc.OrganizerRequests, quiet())
	ctx := context.Background()

	req, err := s.Submit(ctx, types.CreateOrganizerRequestData{Overview: "I run meetups", Resume: resume()})
	require.NoError(t, err)
	assert.Equal(t, u.ID, req.UserID)
	assert.Equal(t, types.RequestPending, req.Status)
	assert.True(t, strings.HasSuffix(req.Resume, "resume.pdf"))

	held, ok := s.Request(req.ID)
	require.True(t, ok)
	assert.Equal(t, req, held)
	assert.False(t, s.IsMutating())

	_, err = s.Submit(ctx, types.CreateOrganizerRequestData{Overview: "again", Resume: resume()})
	require.Error(t, err)
	assert.NotEmpty(t, s.Err())
}

func TestOrganizerStore_FetchRequestsRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	f.loginAs(t, types.RoleUser)
	s := NewOrganizerStore(f.svc.OrganizerRequests, quiet())

	_, err := s.FetchRequests(context.Background(), types.OrganizerRequestQuery{})

	assert.True(t, errors.IsKind(err, errors.KindAuthorization))
	assert.Equal(t, StatusError, s.State().Status)
	assert.Equal(t, errors.MsgAuthorization, s.Err())
}

func TestOrganizerStore_Review(t *testing.T) {
	f := newFixture(t)
	applicant := f.srv.AddUser(types.User{Name: "Lin", Email: "lin@evently.test"}, "pw")
	pending := f.srv.AddRequest(types.OrganizerRequest{UserID: applicant.ID, Overview: "festivals"})
	done := f.srv.AddRequest(types.OrganizerRequest{UserID: 77, Status: types.RequestRejected})
	f.loginAs(t, types.RoleAdmin)
	s := NewOrganizerStore(f.svc.OrganizerRequests, quiet())
	ctx := context.Background()

	_, err := s.FetchRequests(ctx, types.OrganizerRequestQuery{})
	require.NoError(t, err)
	require.Len(t, s.Requests(), 2)
	require.Len(t, s.Pending(), 1)

	accepted, err := s.Review(ctx, pending.ID, types.RequestAccepted)
	require.NoError(t, err)
	assert.Equal(t, types.RequestAccepted, accepted.Status)
	assert.Empty(t, s.Pending())

	promoted, _ := f.srv.User(applicant.ID)
	assert.Equal(t, types.RoleOrganizer, promoted.Role)

	for _, tc := range []struct {
		id   int
		next types.RequestStatus
	}{
		{pending.ID, types.RequestRejected},
		{done.ID, types.RequestAccepted},
	} {
		_, err := s.Review(ctx, tc.id, tc.next)
		assert.True(t, errors.IsValidationError(err), "request %d -> %s", tc.id, tc.next)
	}
	assert.Equal(t, 1, f.srv.Calls("PUT /organizer-request/update/"+strconv.Itoa(pending.ID)))
	assert.Equal(t, 0, f.srv.Calls("PUT /organizer-request/update/"+strconv.Itoa(done.ID)))
	assert.NotEmpty(t, s.Err())
}

func TestOrganizerStore_ReviewFetchesUnknownRequest(t *testing.T) {
	f := newFixture(t)
	req := f.srv.AddRequest(types.OrganizerRequest{UserID: 40, Overview: "talks"})
	f.loginAs(t, types.RoleAdmin)
	s := NewOrganizerStore(f.svc.OrganizerRequests, quiet())

	got, err := s.Review(context.Background(), req.ID, types.RequestRejected)

	require.NoError(t, err)
	assert.Equal(t, types.RequestRejected, got.Status)
	assert.Equal(t, 1, f.srv.Calls("GET /organizer-request/get/"+strconv.Itoa(req.ID)))

	_, err = s.Review(context.Background(), 424242, types.RequestAccepted)
	assert.True(t, errors.IsNotFound(err))
}

func TestOrganizerStore_Clear(t *testing.T) {
	s := NewOrganizerStore(nil, quiet())
	s.update(func(st OrganizerState) OrganizerState {
		return st.upsert(map[int]types.OrganizerRequest{1: {ID: 1}})
	})

	s.Clear()

	assert.Empty(t, s.State().RequestsByID)
	assert.Equal(t, StatusIdle, s.State().Status)
}
