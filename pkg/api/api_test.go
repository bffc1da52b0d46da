package api_test

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/agentstation/utc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/evently/internal/apitest"
	"github.com/agentstation/evently/internal/transport"
	"github.com/agentstation/evently/pkg/api"
	"github.com/agentstation/evently/pkg/errors"
	"github.com/agentstation/evently/pkg/types"
)

func setup(t *testing.T) (*api.Services, *apitest.Server) {
	t.Helper()
	srv := apitest.New(t)
	nop := zerolog.Nop()
	c, err := transport.New(srv.URL(), transport.WithLogger(&nop))
	require.NoError(t, err)
	return api.New(c), srv
}

func login(t *testing.T, svc *api.Services, srv *apitest.Server, role types.Role) types.User {
	t.Helper()
	u := srv.AddUser(types.User{Name: "Ada", Email: string(role) + "@evently.test", Role: role}, "secret")
	got, err := svc.Auth.Login(context.Background(), types.LoginCredentials{Email: u.Email, Password: "secret"})
	require.NoError(t, err)
	return *got
}

func TestAuth_SessionFlow(t *testing.T) {
	svc, srv := setup(t)
	ctx := context.Background()

	_, err := svc.Auth.Me(ctx)
	assert.True(t, errors.IsUnauthenticated(err))

	u := login(t, svc, srv, types.RoleUser)
	assert.Equal(t, "Ada", u.Name)

	me, err := svc.Auth.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, u.ID, me.ID)

	updated, err := svc.Auth.UpdateProfile(ctx, types.UpdateUserData{Name: "Ada L."})
	require.NoError(t, err)
	assert.Equal(t, "Ada L.", updated.Name)

	require.NoError(t, svc.Auth.Logout(ctx))
	_, err = svc.Auth.Me(ctx)
	assert.True(t, errors.IsUnauthenticated(err))
}

func TestAuth_LoginRejected(t *testing.T) {
	svc, srv := setup(t)
	srv.AddUser(types.User{Email: "a@evently.test"}, "right")

	_, err := svc.Auth.Login(context.Background(), types.LoginCredentials{Email: "a@evently.test", Password: "wrong"})

	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Invalid email or password", apiErr.Message)
	assert.Equal(t, 0, srv.Calls("POST /auth/refresh-token"))
}

func TestAuth_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("json", func(t *testing.T) {
		svc, _ := setup(t)
		u, err := svc.Auth.Register(ctx, types.RegisterData{Name: "Bo", Email: "bo@evently.test", Password: "pw"})
		require.NoError(t, err)
		assert.Equal(t, types.RoleUser, u.Role)
		assert.Empty(t, u.ProfileImage)
	})

	t.Run("multipart with profile image", func(t *testing.T) {
		svc, _ := setup(t)
		img := &types.File{Name: "me.png", Content: strings.NewReader("PNG")}
		u, err := svc.Auth.Register(ctx, types.RegisterData{Name: "Cy", Email: "cy@evently.test", Password: "pw", ProfileImage: img})
		require.NoError(t, err)
		assert.Equal(t, types.ImageURL(apitest.CDN+"me.png"), u.ProfileImage)

		me, err := svc.Auth.Me(ctx)
		require.NoError(t, err)
		assert.Equal(t, u.ID, me.ID)
	})

	t.Run("validation fields", func(t *testing.T) {
		svc, _ := setup(t)
		_, err := svc.Auth.Register(ctx, types.RegisterData{Name: "Dee"})
		c := errors.Classify(err)
		assert.Equal(t, errors.KindValidation, c.Kind)
		assert.Contains(t, c.Fields, "email")
		assert.Contains(t, c.Fields, "password")
	})
}

func TestAuth_RefreshToken(t *testing.T) {
	svc, srv := setup(t)
	u := login(t, svc, srv, types.RoleUser)

	srv.ExpireSessions()
	got, err := svc.Auth.RefreshToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	srv.RevokeSessions()
	_, err = svc.Auth.RefreshToken(context.Background())
	assert.True(t, errors.IsUnauthenticated(err))
}

func TestEvents_ListAndFilters(t *testing.T) {
	svc, srv := setup(t)
	srv.AddEvent(types.Event{Title: "Jazz Night", Geo: types.Geo{City: "New York"}})
	srv.AddEvent(types.Event{Title: "Tech Talk", Geo: types.Geo{City: "Boston"}})
	srv.AddEvent(types.Event{Title: "Jazz Brunch", Geo: types.Geo{City: "New York"}})

	ctx := context.Background()
	list, err := svc.Events.List(ctx, types.EventQuery{City: "New York", Page: 1, Limit: 10})
	require.NoError(t, err)
	require.Len(t, list.Events, 2)
	require.NotNil(t, list.Meta)
	assert.Equal(t, 2, list.Meta.Total)
	assert.Equal(t, 1, list.Meta.TotalPages)

	list, err = svc.Events.List(ctx, types.EventQuery{Search: "tech"})
	require.NoError(t, err)
	require.Len(t, list.Events, 1)
	assert.Equal(t, "Tech Talk", list.Events[0].Title)

	list, err = svc.Events.List(ctx, types.EventQuery{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, list.Events, 1)
	assert.True(t, list.Meta.HasPrevPage)
	assert.False(t, list.Meta.HasNextPage)
}

func TestEvents_SortByDate(t *testing.T) {
	svc, srv := setup(t)
	day := func(d int) utc.Time { return utc.New(time.Date(2026, 5, d, 18, 0, 0, 0, time.UTC)) }
	srv.AddEvent(types.Event{Title: "Middle", Date: day(10)})
	srv.AddEvent(types.Event{Title: "Last", Date: day(20)})
	srv.AddEvent(types.Event{Title: "First", Date: day(1)})

	titles := func(list *types.EventList) []string {
		out := make([]string, 0, len(list.Events))
		for _, ev := range list.Events {
			out = append(out, ev.Title)
		}
		return out
	}

	ctx := context.Background()
	list, err := svc.Events.List(ctx, types.EventQuery{SortBy: "date", SortOrder: types.SortAsc})
	require.NoError(t, err)
	assert.Equal(t, []string{"First", "Middle", "Last"}, titles(list))

	list, err = svc.Events.List(ctx, types.EventQuery{SortBy: "date", SortOrder: types.SortDesc})
	require.NoError(t, err)
	assert.Equal(t, []string{"Last", "Middle", "First"}, titles(list))
}

func TestEvents_Nearby(t *testing.T) {
	svc, srv := setup(t)
	srv.AddEvent(types.Event{Title: "Close", Geo: types.Geo{Latitude: 40.7128, Longitude: -74.0060}})
	srv.AddEvent(types.Event{Title: "Far", Geo: types.Geo{Latitude: 34.0522, Longitude: -118.2437}})

	list, err := svc.Events.Nearby(context.Background(), types.NearbyEventsQuery{Latitude: 40.73, Longitude: -73.99, Radius: 5})
	require.NoError(t, err)
	require.Len(t, list.Events, 1)
	assert.Equal(t, "Close", list.Events[0].Title)
}

func TestEvents_Lifecycle(t *testing.T) {
	svc, srv := setup(t)
	ctx := context.Background()
	org := login(t, svc, srv, types.RoleOrganizer)

	date := utc.New(time.Date(2026, 12, 31, 20, 0, 0, 0, time.UTC))
	created, err := svc.Events.Create(ctx, types.CreateEventData{
		Title: "Gala",
		Date:  date,
		Geo:   types.Geo{City: "Paris", Latitude: 48.85, Longitude: 2.35},
		Images: []types.File{
			{Name: "a.jpg", Content: strings.NewReader("A")},
			{Name: "b.jpg", Content: strings.NewReader("B")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, org.ID, created.CreatedBy)
	assert.Equal(t, types.ImageList{apitest.CDN + "a.jpg", apitest.CDN + "b.jpg"}, created.Images)
	assert.True(t, date.Equal(created.Date))

	title := "Winter Gala"
	updated, err := svc.Events.Update(ctx, created.ID, types.UpdateEventData{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Winter Gala", updated.Title)
	assert.Equal(t, "Paris", updated.City, "server keeps fields the patch leaves out")

	mine, err := svc.Events.Mine(ctx, types.EventQuery{})
	require.NoError(t, err)
	require.Len(t, mine.Events, 1)

	reg, err := svc.Events.Book(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, reg.EventID)

	regs, err := svc.Events.Bookings(ctx, created.ID, types.RegistrationQuery{})
	require.NoError(t, err)
	assert.Len(t, regs.Registrations, 1)

	require.NoError(t, svc.Events.Delete(ctx, created.ID))
	_, err = svc.Events.Get(ctx, created.ID)
	assert.True(t, errors.IsNotFound(err))
	var missing *errors.NotFoundError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "event", missing.Resource)
	assert.Equal(t, strconv.Itoa(created.ID), missing.ID)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr, "the server's response stays reachable")
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
}

func TestEvents_CreateJSONRequiresOrganizer(t *testing.T) {
	svc, srv := setup(t)
	login(t, svc, srv, types.RoleUser)

	_, err := svc.Events.Create(context.Background(), types.CreateEventData{Title: "Nope"})
	assert.True(t, errors.IsForbidden(err))
	assert.Equal(t, errors.KindAuthorization, errors.KindOf(err))
}

func TestBookings(t *testing.T) {
	svc, srv := setup(t)
	ctx := context.Background()
	login(t, svc, srv, types.RoleUser)
	ev := srv.AddEvent(types.Event{Title: "Concert"})

	reg, err := svc.Events.Book(ctx, ev.ID)
	require.NoError(t, err)

	_, err = svc.Events.Book(ctx, ev.ID)
	var apiErr *errors.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 409, apiErr.StatusCode)

	got, err := svc.Bookings.Get(ctx, reg.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Event)
	assert.Equal(t, "Concert", got.Event.Title)

	mine, err := svc.Bookings.Mine(ctx, types.RegistrationQuery{Page: 1})
	require.NoError(t, err)
	assert.Len(t, mine.Registrations, 1)

	require.NoError(t, svc.Bookings.Cancel(ctx, reg.ID))
	assert.Empty(t, srv.Bookings())
}

func TestOrganizerRequests(t *testing.T) {
	svc, srv := setup(t)
	ctx := context.Background()

	_, err := svc.OrganizerRequests.Create(ctx, types.CreateOrganizerRequestData{Overview: "x"})
	assert.True(t, errors.IsValidationError(err))
	assert.Equal(t, 0, srv.TotalCalls(), "missing resume never reaches the API")

	applicant := login(t, svc, srv, types.RoleUser)
	req, err := svc.OrganizerRequests.Create(ctx, types.CreateOrganizerRequestData{
		Overview: "I run meetups",
		Resume:   types.File{Name: "cv.pdf", Content: strings.NewReader("%PDF")},
	})
	require.NoError(t, err)
	assert.Equal(t, types.RequestPending, req.Status)
	assert.Equal(t, applicant.ID, req.UserID)

	own, err := svc.OrganizerRequests.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "I run meetups", own.Overview)

	_, err = svc.OrganizerRequests.List(ctx, types.OrganizerRequestQuery{})
	assert.True(t, errors.IsForbidden(err))

	login(t, svc, srv, types.RoleAdmin)
	list, err := svc.OrganizerRequests.List(ctx, types.OrganizerRequestQuery{})
	require.NoError(t, err)
	require.Len(t, list.Items(), 1)

	accepted, err := svc.OrganizerRequests.UpdateStatus(ctx, req.ID, types.RequestAccepted)
	require.NoError(t, err)
	assert.Equal(t, types.RequestAccepted, accepted.Status)

	u, _ := srv.User(applicant.ID)
	assert.Equal(t, types.RoleOrganizer, u.Role)

	_, err = svc.OrganizerRequests.UpdateStatus(ctx, req.ID, types.RequestRejected)
	assert.Equal(t, errors.KindValidation, errors.KindOf(err))
}

func TestRefreshReplaysThroughServices(t *testing.T) {
	svc, srv := setup(t)
	login(t, svc, srv, types.RoleUser)
	srv.ExpireSessions()

	me, err := svc.Auth.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada", me.Name)
	assert.Equal(t, 2, srv.Calls("GET /auth/me"))
	assert.Equal(t, 1, srv.Calls("POST /auth/refresh-token"))
}
