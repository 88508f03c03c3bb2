// Package admin は管理者向けの一覧、集計、削除操作を提供する。
package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/foodshare/internal/donation"
	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/repository"
)

// UserDeleter はユーザー削除のインターフェース。
type UserDeleter interface {
	Delete(ctx context.Context, userID string) (*model.User, error)
}

// Overview は管理者ダッシュボードの集計値。
type Overview struct {
	TotalUsers         int     `json:"totalUsers"`
	TotalDonations     int     `json:"totalDonations"`
	TotalRequests      int     `json:"totalRequests"`
	TotalFood          float64 `json:"totalFood"`
	Donors             int     `json:"donors"`
	Recipients         int     `json:"recipients"`
	Analysts           int     `json:"analysts"`
	AvailableDonations int     `json:"availableDonations"`
	ClaimedDonations   int     `json:"claimedDonations"`
	CompletedRequests  int     `json:"completedRequests"`
	OrphanedRequests   int     `json:"orphanedRequests"`
}

// Service は管理者向けのサービス層。
// 全ての操作で呼び出し元が設定済みの管理者であることを確認する。
type Service struct {
	users      repository.UserRepository
	donations  repository.DonationRepository
	requests   repository.RequestRepository
	deleter    UserDeleter
	adminEmail string
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	donations repository.DonationRepository,
	requests repository.RequestRepository,
	deleter UserDeleter,
	adminEmail string,
) *Service {
	return &Service{
		users:      users,
		donations:  donations,
		requests:   requests,
		deleter:    deleter,
		adminEmail: adminEmail,
	}
}

// authorize はセッションが管理者のものかを確認する。
// ルートガードとは別に、メールアドレスまで照合する。
func (s *Service) authorize(session *model.Session) error {
	if session == nil {
		return model.NewUnauthorizedError()
	}
	if session.Role != model.RoleAdmin || !model.SameEmail(session.Email, s.adminEmail) {
		return model.NewForbiddenError()
	}
	return nil
}

// Overview は全コレクションの集計値を返す。
func (s *Service) Overview(ctx context.Context, session *model.Session) (*Overview, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	donations, err := s.donations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	requests, err := s.requests.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	ov := &Overview{
		TotalUsers:     len(users.Items),
		TotalDonations: len(donations.Items),
		TotalRequests:  len(requests.Items),
	}
	for _, u := range users.Items {
		switch u.Role {
		case model.RoleDonor:
			ov.Donors++
		case model.RoleRecipient:
			ov.Recipients++
		case model.RoleAnalyst:
			ov.Analysts++
		}
	}

	exists := make(map[string]struct{}, len(donations.Items))
	var food float64
	for _, d := range donations.Items {
		exists[d.ID] = struct{}{}
		food += float64(d.Quantity)
		switch d.Status {
		case model.DonationStatusAvailable:
			ov.AvailableDonations++
		case model.DonationStatusClaimed:
			ov.ClaimedDonations++
		}
	}
	ov.TotalFood = donation.RoundTo(food, 1)

	for _, r := range requests.Items {
		if r.Status == model.RequestStatusCompleted {
			ov.CompletedRequests++
		}
		if _, ok := exists[r.DonationID]; !ok {
			ov.OrphanedRequests++
		}
	}

	return ov, nil
}

// ListUsers は全ユーザーを登録順で返す。
func (s *Service) ListUsers(ctx context.Context, session *model.Session) ([]model.User, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	snap, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return snap.Items, nil
}

// ListDonations は全寄付を登録順で返す。
func (s *Service) ListDonations(ctx context.Context, session *model.Session) ([]model.Donation, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	snap, err := s.donations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}
	return snap.Items, nil
}

// ListRequests は全リクエストを登録順で返す。
func (s *Service) ListRequests(ctx context.Context, session *model.Session) ([]model.Request, error) {
	if err := s.authorize(session); err != nil {
		return nil, err
	}
	snap, err := s.requests.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	return snap.Items, nil
}

// DeleteUser は指定ユーザーのみを削除する。寄付とリクエストは残す。
func (s *Service) DeleteUser(ctx context.Context, session *model.Session, userID string, confirmed bool) error {
	if err := s.authorize(session); err != nil {
		return err
	}
	if !confirmed {
		return model.NewConfirmationRequiredError("delete user")
	}

	removed, err := s.deleter.Delete(ctx, userID)
	if err != nil {
		return err
	}

	slog.Info("user deleted by admin",
		slog.String("user_id", removed.ID),
		slog.String("admin_email", session.Email),
	)
	return nil
}

// DeleteDonation は指定寄付のみを削除する。所有者は問わない。
// 紐づくリクエストはスナップショットとして残す。
func (s *Service) DeleteDonation(ctx context.Context, session *model.Session, donationID string, confirmed bool) error {
	if err := s.authorize(session); err != nil {
		return err
	}
	if !confirmed {
		return model.NewConfirmationRequiredError("delete donation")
	}

	err := repository.RetryOnConflict(ctx, func() error {
		snap, err := s.donations.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list donations: %w", err)
		}

		kept := make([]model.Donation, 0, len(snap.Items))
		found := false
		for _, d := range snap.Items {
			if d.ID == donationID && !found {
				found = true
				continue
			}
			kept = append(kept, d)
		}
		if !found {
			return model.NewDonationNotFoundError(donationID)
		}
		_, err = s.donations.Replace(ctx, kept, snap.Revision)
		return err
	})
	if err != nil {
		return repository.RetryExhausted(err)
	}

	slog.Info("donation deleted by admin",
		slog.String("donation_id", donationID),
		slog.String("admin_email", session.Email),
	)
	return nil
}
