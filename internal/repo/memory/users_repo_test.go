package memory

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/techdiscoveria/discoveria/internal/domain/user"
)

func TestCreateIfAbsent_ConcurrentRegistrationsKeepOneRecord(t *testing.T) {
	r := NewUsersRepo()
	u := user.NewFromCreateRequest(user.CreateUserRequest{Name: "A", Email: "a@x.com"})

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		inserted int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := r.CreateIfAbsent(context.Background(), u)
			require.NoError(t, err)
			if ok {
				mu.Lock()
				inserted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, inserted)

	all, err := r.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSetRoleAndMembership(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	created, _, err := r.CreateIfAbsent(ctx, user.NewFromCreateRequest(user.CreateUserRequest{Email: "a@x.com"}))
	require.NoError(t, err)

	res, err := r.SetRole(ctx, created.ID, user.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.ModifiedCount)

	res, err = r.SetRole(ctx, created.ID, user.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.MatchedCount)
	require.Equal(t, int64(0), res.ModifiedCount)

	res, err = r.SetRole(ctx, "nope", user.RoleAdmin)
	require.NoError(t, err)
	require.Equal(t, int64(0), res.MatchedCount)

	res, err = r.SetMembership(ctx, "a@x.com", user.MembershipSubscribed)
	require.NoError(t, err)
	require.Equal(t, int64(1), res.ModifiedCount)

	got, err := r.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	require.True(t, got.IsAdmin())
	require.Equal(t, user.MembershipSubscribed, got.Membership)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	r := NewUsersRepo()

	require.NoError(t, r.EnsureAdmin(ctx, "root@x.com", "Root"))
	got, err := r.GetByEmail(ctx, "root@x.com")
	require.NoError(t, err)
	require.True(t, got.IsAdmin())

	_, _, err = r.CreateIfAbsent(ctx, user.NewFromCreateRequest(user.CreateUserRequest{Email: "b@x.com"}))
	require.NoError(t, err)
	require.NoError(t, r.EnsureAdmin(ctx, "b@x.com", "B"))

	got, err = r.GetByEmail(ctx, "b@x.com")
	require.NoError(t, err)
	require.True(t, got.IsAdmin())

	_, err = r.GetByEmail(ctx, "nobody@x.com")
	require.ErrorIs(t, err, user.ErrNotFound)
}
