// Package claim は受け取り団体による寄付の検索、リクエスト、受け取り完了を提供する。
package claim

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/repository"
)

// Stats は受け取り団体ダッシュボードの集計値。
type Stats struct {
	TotalRequests     int `json:"totalRequests"`
	CompletedRequests int `json:"completedRequests"`
	PendingRequests   int `json:"pendingRequests"`
}

// OwnRequests は受け取り団体自身のリクエスト一覧と集計値。
type OwnRequests struct {
	Requests []model.Request `json:"requests"`
	Stats    Stats           `json:"stats"`
}

// Service は受け取り団体向けのサービス層。
type Service struct {
	donations repository.DonationRepository
	requests  repository.RequestRepository
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(donations repository.DonationRepository, requests repository.RequestRepository) *Service {
	return &Service{
		donations: donations,
		requests:  requests,
		now:       time.Now,
	}
}

// MatchesSearch は食品名または受け取り場所に検索語が含まれるかを大文字小文字を区別せずに判定する。
// 検索語が空の場合は常に一致する。
func MatchesSearch(d model.Donation, search string) bool {
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	return strings.Contains(strings.ToLower(d.FoodType), q) ||
		strings.Contains(strings.ToLower(d.PickupLocation), q)
}

// ListAvailable はリクエスト可能な寄付を登録順で返す。
func (s *Service) ListAvailable(ctx context.Context, search string) ([]model.Donation, error) {
	snap, err := s.donations.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}

	out := make([]model.Donation, 0)
	for _, d := range snap.Items {
		if d.Status == model.DonationStatusAvailable && MatchesSearch(d, search) {
			out = append(out, d)
		}
	}
	return out, nil
}

// ComputeStats はリクエスト一覧から集計値を計算する。
func ComputeStats(requests []model.Request) Stats {
	var st Stats
	for _, r := range requests {
		st.TotalRequests++
		switch r.Status {
		case model.RequestStatusCompleted:
			st.CompletedRequests++
		case model.RequestStatusRequested:
			st.PendingRequests++
		}
	}
	return st
}

// ListOwn は受け取り団体自身のリクエストを登録順で返す。
func (s *Service) ListOwn(ctx context.Context, recipientEmail string) (*OwnRequests, error) {
	snap, err := s.requests.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}

	own := make([]model.Request, 0)
	for _, r := range snap.Items {
		if model.SameEmail(r.RecipientEmail, recipientEmail) {
			own = append(own, r)
		}
	}
	return &OwnRequests{Requests: own, Stats: ComputeStats(own)}, nil
}

// RequestDonation は寄付をリクエストする。
// 寄付をclaimedにしてからリクエストを追加する。リクエストの追加に失敗した場合は
// 寄付をavailableに戻す。既にclaimedの寄付はDONATION_UNAVAILABLEを返す。
func (s *Service) RequestDonation(ctx context.Context, session *model.Session, donationID string, confirmed bool) (*model.Request, error) {
	if !confirmed {
		return nil, model.NewConfirmationRequiredError("request donation")
	}

	claimed, err := s.setDonationStatus(ctx, donationID, model.DonationStatusAvailable, model.DonationStatusClaimed)
	if err != nil {
		return nil, err
	}

	req := model.NewRequestFromDonation(*claimed, *session, s.now())
	err = repository.RetryOnConflict(ctx, func() error {
		snap, err := s.requests.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list requests: %w", err)
		}
		_, err = s.requests.Replace(ctx, append(snap.Items, req), snap.Revision)
		return err
	})
	if err != nil {
		if _, rbErr := s.setDonationStatus(ctx, donationID, model.DonationStatusClaimed, model.DonationStatusAvailable); rbErr != nil {
			slog.Error("failed to roll back donation claim",
				slog.String("donation_id", donationID),
				slog.String("error", rbErr.Error()),
			)
		}
		return nil, repository.RetryExhausted(err)
	}

	slog.Info("donation requested",
		slog.String("donation_id", donationID),
		slog.String("request_id", req.ID),
		slog.String("recipient_email", req.RecipientEmail),
	)
	return &req, nil
}

// setDonationStatus は寄付の状態をfromからtoに変更し、変更後の寄付を返す。
// 現在の状態がfromでない場合はDONATION_UNAVAILABLEを返す。
func (s *Service) setDonationStatus(ctx context.Context, donationID string, from, to model.DonationStatus) (*model.Donation, error) {
	var changed model.Donation
	err := repository.RetryOnConflict(ctx, func() error {
		snap, err := s.donations.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list donations: %w", err)
		}

		idx := -1
		for i := range snap.Items {
			if snap.Items[i].ID == donationID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.NewDonationNotFoundError(donationID)
		}
		if snap.Items[idx].Status != from {
			return model.NewDonationUnavailableError(donationID)
		}

		items := append([]model.Donation(nil), snap.Items...)
		items[idx].Status = to
		if _, err := s.donations.Replace(ctx, items, snap.Revision); err != nil {
			return err
		}
		changed = items[idx]
		return nil
	})
	if err != nil {
		return nil, repository.RetryExhausted(err)
	}
	return &changed, nil
}

// Complete は自身のリクエストを受け取り完了にし、completedAtを記録する。
// 寄付やその他のリクエストは変更しない。
func (s *Service) Complete(ctx context.Context, session *model.Session, requestID string, confirmed bool) (*model.Request, error) {
	if !confirmed {
		return nil, model.NewConfirmationRequiredError("complete request")
	}

	var completed model.Request
	err := repository.RetryOnConflict(ctx, func() error {
		snap, err := s.requests.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list requests: %w", err)
		}

		idx := -1
		for i := range snap.Items {
			if snap.Items[i].ID == requestID && model.SameEmail(snap.Items[i].RecipientEmail, session.Email) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return model.NewRequestNotFoundError(requestID)
		}
		if snap.Items[idx].Status != model.RequestStatusRequested {
			return model.NewRequestAlreadyCompletedError(requestID)
		}

		items := append([]model.Request(nil), snap.Items...)
		stamp := s.now()
		items[idx].Status = model.RequestStatusCompleted
		items[idx].CompletedAt = &stamp
		if _, err := s.requests.Replace(ctx, items, snap.Revision); err != nil {
			return err
		}
		completed = items[idx]
		return nil
	})
	if err != nil {
		return nil, repository.RetryExhausted(err)
	}

	slog.Info("request completed", slog.String("request_id", requestID))
	return &completed, nil
}
