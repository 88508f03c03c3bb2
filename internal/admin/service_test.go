package admin

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/hitoshi/foodshare/internal/auth"
	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/repository"
	"github.com/hitoshi/foodshare/internal/security"
	"github.com/hitoshi/foodshare/internal/storage"
	"github.com/hitoshi/foodshare/internal/user"
)

const adminEmail = "admin@foodwaste.com"

var (
	adminSession = &model.Session{Token: "a", Email: adminEmail, Role: model.RoleAdmin, Name: auth.AdminName}
	donorSession = &model.Session{Token: "d", Email: "donor@example.com", Role: model.RoleDonor, Name: "Donor"}
)

// --- モック ---

type mockDeleter struct {
	deleteFn func(ctx context.Context, userID string) (*model.User, error)
}

func (m *mockDeleter) Delete(ctx context.Context, userID string) (*model.User, error) {
	return m.deleteFn(ctx, userID)
}

// --- ヘルパー ---

type fixture struct {
	svc       *Service
	users     *repository.StoreCollection[model.User]
	donations *repository.StoreCollection[model.Donation]
	requests  *repository.StoreCollection[model.Request]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	users := repository.NewUserRepository(store, nil)
	donations := repository.NewDonationRepository(store, nil)
	requests := repository.NewRequestRepository(store, nil)

	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	_, _ = users.Replace(ctx, []model.User{
		{ID: "u1", Email: "donor@example.com", Role: model.RoleDonor, CreatedAt: now},
		{ID: "u2", Email: "shelter@example.com", Role: model.RoleRecipient, CreatedAt: now},
		{ID: "u3", Email: "analyst@example.com", Role: model.RoleAnalyst, CreatedAt: now},
	}, 0)
	_, _ = donations.Replace(ctx, []model.Donation{
		{ID: "d1", DonorEmail: "donor@example.com", FoodType: "Bread", Quantity: 5, Status: model.DonationStatusClaimed},
		{ID: "d2", DonorEmail: "donor@example.com", FoodType: "Rice", Quantity: 2.5, Status: model.DonationStatusAvailable},
	}, 0)
	_, _ = requests.Replace(ctx, []model.Request{
		{ID: "r1", DonationID: "d1", RecipientEmail: "shelter@example.com", Status: model.RequestStatusCompleted},
		{ID: "r2", DonationID: "gone", RecipientEmail: "shelter@example.com", Status: model.RequestStatusRequested},
	}, 0)

	userSvc := user.NewService(users, auth.NewBcryptHasher(bcrypt.MinCost), security.NopSanitizer{}, user.ServiceConfig{})
	return &fixture{
		svc:       NewService(users, donations, requests, userSvc, adminEmail),
		users:     users,
		donations: donations,
		requests:  requests,
	}
}

func assertAPIErrorCode(t *testing.T, err error, code string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *model.APIError, got %T (%v)", err, err)
	}
	if apiErr.Code != code {
		t.Errorf("error code = %q, want %q", apiErr.Code, code)
	}
}

// --- テスト ---

func TestAuthorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Overview(ctx, nil)
	assertAPIErrorCode(t, err, model.ErrCodeUnauthorized)

	_, err = f.svc.Overview(ctx, donorSession)
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)

	// adminロールでもメールアドレスが設定と異なれば拒否する
	impostor := &model.Session{Email: "root@example.com", Role: model.RoleAdmin}
	_, err = f.svc.ListUsers(ctx, impostor)
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}

func TestOverview(t *testing.T) {
	f := newFixture(t)

	ov, err := f.svc.Overview(context.Background(), adminSession)
	if err != nil {
		t.Fatalf("Overview returned error: %v", err)
	}
	want := Overview{
		TotalUsers:         3,
		TotalDonations:     2,
		TotalRequests:      2,
		TotalFood:          7.5,
		Donors:             1,
		Recipients:         1,
		Analysts:           1,
		AvailableDonations: 1,
		ClaimedDonations:   1,
		CompletedRequests:  1,
		OrphanedRequests:   1,
	}
	if *ov != want {
		t.Errorf("overview = %+v, want %+v", *ov, want)
	}
}

func TestListAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	users, err := f.svc.ListUsers(ctx, adminSession)
	if err != nil || len(users) != 3 {
		t.Errorf("ListUsers = %d, %v", len(users), err)
	}
	donations, err := f.svc.ListDonations(ctx, adminSession)
	if err != nil || len(donations) != 2 {
		t.Errorf("ListDonations = %d, %v", len(donations), err)
	}
	requests, err := f.svc.ListRequests(ctx, adminSession)
	if err != nil || len(requests) != 2 {
		t.Errorf("ListRequests = %d, %v", len(requests), err)
	}
}

func TestDeleteUser_RemovesOnlyTargetAndNoCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.DeleteUser(ctx, adminSession, "u1", true); err != nil {
		t.Fatalf("DeleteUser returned error: %v", err)
	}

	users, _ := f.users.List(ctx)
	if len(users.Items) != 2 || users.Items[0].ID != "u2" || users.Items[1].ID != "u3" {
		t.Errorf("unexpected remaining users: %+v", users.Items)
	}
	donations, _ := f.donations.List(ctx)
	if len(donations.Items) != 2 {
		t.Errorf("donations must be untouched, got %d", len(donations.Items))
	}
}

func TestDeleteUser_RequiresConfirmation(t *testing.T) {
	called := false
	svc := NewService(nil, nil, nil, &mockDeleter{
		deleteFn: func(ctx context.Context, userID string) (*model.User, error) {
			called = true
			return &model.User{ID: userID}, nil
		},
	}, adminEmail)

	err := svc.DeleteUser(context.Background(), adminSession, "u1", false)
	assertAPIErrorCode(t, err, model.ErrCodeConfirmationRequired)
	if called {
		t.Error("unconfirmed delete must not reach the deleter")
	}
}

func TestDeleteUser_NotFound(t *testing.T) {
	f := newFixture(t)
	err := f.svc.DeleteUser(context.Background(), adminSession, "nope", true)
	assertAPIErrorCode(t, err, model.ErrCodeUserNotFound)
}

func TestDeleteDonation_KeepsRequestsAsSnapshots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.svc.DeleteDonation(ctx, adminSession, "d1", true); err != nil {
		t.Fatalf("DeleteDonation returned error: %v", err)
	}

	donations, _ := f.donations.List(ctx)
	if len(donations.Items) != 1 || donations.Items[0].ID != "d2" {
		t.Errorf("unexpected remaining donations: %+v", donations.Items)
	}
	requests, _ := f.requests.List(ctx)
	if len(requests.Items) != 2 {
		t.Errorf("requests must be kept, got %d", len(requests.Items))
	}

	ov, _ := f.svc.Overview(ctx, adminSession)
	if ov.OrphanedRequests != 2 {
		t.Errorf("orphanedRequests = %d, want 2", ov.OrphanedRequests)
	}
}

func TestDeleteDonation_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.DeleteDonation(ctx, adminSession, "d1", false)
	assertAPIErrorCode(t, err, model.ErrCodeConfirmationRequired)

	err = f.svc.DeleteDonation(ctx, adminSession, "missing", true)
	assertAPIErrorCode(t, err, model.ErrCodeDonationNotFound)

	err = f.svc.DeleteDonation(ctx, donorSession, "d1", true)
	assertAPIErrorCode(t, err, model.ErrCodeForbidden)
}
