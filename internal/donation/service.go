// Package donation は寄付者による寄付の登録、編集、削除と集計を提供する。
package donation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/repository"
	"github.com/hitoshi/foodshare/internal/security"
)

// Input は寄付フォームの入力。
type Input struct {
	FoodType       string         `json:"foodType"`
	Quantity       model.Quantity `json:"quantity"`
	Unit           string         `json:"unit"`
	ExpiryDate     string         `json:"expiryDate"`
	PickupLocation string         `json:"pickupLocation"`
	Description    string         `json:"description"`
}

// Stats は寄付者ダッシュボードの集計値。一覧の絞り込み結果から毎回計算する。
type Stats struct {
	TotalDonations     int     `json:"totalDonations"`
	TotalQuantity      float64 `json:"totalQuantity"`
	AvailableDonations int     `json:"availableDonations"`
}

// OwnDonations は寄付者自身の寄付一覧と集計値。
type OwnDonations struct {
	Donations []model.Donation `json:"donations"`
	Stats     Stats            `json:"stats"`
}

// Service は寄付者向けのサービス層。
type Service struct {
	repo      repository.DonationRepository
	sanitizer security.TextSanitizer
	now       func() time.Time
}

// NewService はServiceを生成する。
func NewService(repo repository.DonationRepository, sanitizer security.TextSanitizer) *Service {
	return &Service{
		repo:      repo,
		sanitizer: sanitizer,
		now:       time.Now,
	}
}

// Validate は寄付フォームを検証する。違反は全フィールド分まとめて返す。
// 賞味期限はtodayと同日以降であれば受け付ける。
func Validate(in Input, today time.Time) (model.Unit, error) {
	errs := model.FieldErrors{}

	if in.FoodType == "" {
		errs.Add("foodType", "Food type is required")
	}

	q := float64(in.Quantity)
	if q <= 0 || math.IsNaN(q) || q > model.MaxQuantity {
		errs.Add("quantity", "Valid quantity is required")
	}

	unit, err := model.ParseUnit(in.Unit)
	if err != nil {
		errs.Add("unit", "Unit is invalid")
	}

	if in.ExpiryDate == "" {
		errs.Add("expiryDate", "Expiry date is required")
	} else if expiry, err := time.ParseInLocation(model.DateLayout, in.ExpiryDate, today.Location()); err != nil {
		errs.Add("expiryDate", "Expiry date is invalid")
	} else if expiry.Before(startOfDay(today)) {
		errs.Add("expiryDate", "Expiry date must be in the future")
	}

	if in.PickupLocation == "" {
		errs.Add("pickupLocation", "Pickup location is required")
	}

	return unit, errs.Err()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// ComputeStats は寄付一覧から集計値を計算する。
func ComputeStats(donations []model.Donation) Stats {
	var st Stats
	var total float64
	for _, d := range donations {
		st.TotalDonations++
		total += float64(d.Quantity)
		if d.Status == model.DonationStatusAvailable {
			st.AvailableDonations++
		}
	}
	st.TotalQuantity = RoundTo(total, 1)
	return st
}

// RoundTo は小数点以下digits桁に四捨五入する。
// 桁をずらすとオーバーフローする値はそのまま返す。
func RoundTo(v float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	scaled := v * p
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return v
	}
	return math.Round(scaled) / p
}

// ListOwn は寄付者自身の寄付を登録順で返す。
func (s *Service) ListOwn(ctx context.Context, donorEmail string) (*OwnDonations, error) {
	snap, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list donations: %w", err)
	}

	own := make([]model.Donation, 0)
	for _, d := range snap.Items {
		if model.SameEmail(d.DonorEmail, donorEmail) {
			own = append(own, d)
		}
	}
	return &OwnDonations{Donations: own, Stats: ComputeStats(own)}, nil
}

// sanitize は自由記述フィールドからタグを除去した入力を返す。
func (s *Service) sanitize(in Input) Input {
	in.FoodType = s.sanitizer.Sanitize(in.FoodType)
	in.PickupLocation = s.sanitizer.Sanitize(in.PickupLocation)
	in.Description = s.sanitizer.Sanitize(in.Description)
	return in
}

// Create は寄付を登録する。状態は常にavailableで作成する。
func (s *Service) Create(ctx context.Context, session *model.Session, in Input) (*model.Donation, error) {
	in = s.sanitize(in)
	now := s.now()
	unit, err := Validate(in, now)
	if err != nil {
		return nil, err
	}

	d := model.Donation{
		ID:             model.NewID(),
		FoodType:       in.FoodType,
		Quantity:       in.Quantity,
		Unit:           unit,
		ExpiryDate:     in.ExpiryDate,
		PickupLocation: in.PickupLocation,
		Description:    in.Description,
		DonorEmail:     session.Email,
		DonorName:      session.Name,
		Status:         model.DonationStatusAvailable,
		CreatedAt:      now,
	}

	err = repository.RetryOnConflict(ctx, func() error {
		snap, err := s.repo.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list donations: %w", err)
		}
		_, err = s.repo.Replace(ctx, append(snap.Items, d), snap.Revision)
		return err
	})
	if err != nil {
		return nil, repository.RetryExhausted(err)
	}

	slog.Info("donation created",
		slog.String("donation_id", d.ID),
		slog.String("donor_email", d.DonorEmail),
	)
	return &d, nil
}

// Update は寄付の入力項目を全て上書きし、updatedAtを記録する。
// 状態と寄付者情報は変更しない。他の寄付者の寄付はDONATION_NOT_FOUNDとして扱う。
func (s *Service) Update(ctx context.Context, session *model.Session, id string, in Input) (*model.Donation, error) {
	in = s.sanitize(in)
	now := s.now()
	unit, err := Validate(in, now)
	if err != nil {
		return nil, err
	}

	var updated model.Donation
	err = repository.RetryOnConflict(ctx, func() error {
		snap, err := s.repo.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list donations: %w", err)
		}

		idx := indexOwned(snap.Items, id, session.Email)
		if idx < 0 {
			return model.NewDonationNotFoundError(id)
		}

		items := append([]model.Donation(nil), snap.Items...)
		d := items[idx]
		d.FoodType = in.FoodType
		d.Quantity = in.Quantity
		d.Unit = unit
		d.ExpiryDate = in.ExpiryDate
		d.PickupLocation = in.PickupLocation
		d.Description = in.Description
		stamp := now
		d.UpdatedAt = &stamp
		items[idx] = d

		if _, err := s.repo.Replace(ctx, items, snap.Revision); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, repository.RetryExhausted(err)
	}

	slog.Info("donation updated", slog.String("donation_id", id))
	return &updated, nil
}

// Delete は寄付者自身の寄付を削除する。confirmedがfalseの場合は何も変更しない。
// この寄付に紐づくリクエストは削除しない。
func (s *Service) Delete(ctx context.Context, session *model.Session, id string, confirmed bool) error {
	if !confirmed {
		return model.NewConfirmationRequiredError("delete donation")
	}

	err := repository.RetryOnConflict(ctx, func() error {
		snap, err := s.repo.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list donations: %w", err)
		}

		idx := indexOwned(snap.Items, id, session.Email)
		if idx < 0 {
			return model.NewDonationNotFoundError(id)
		}

		items := make([]model.Donation, 0, len(snap.Items)-1)
		items = append(items, snap.Items[:idx]...)
		items = append(items, snap.Items[idx+1:]...)
		_, err = s.repo.Replace(ctx, items, snap.Revision)
		return err
	})
	if err != nil {
		return repository.RetryExhausted(err)
	}

	slog.Info("donation deleted", slog.String("donation_id", id))
	return nil
}

// indexOwned はidかつ寄付者が一致する寄付の位置を返す。見つからない場合は-1。
func indexOwned(items []model.Donation, id, donorEmail string) int {
	for i := range items {
		if items[i].ID == id && model.SameEmail(items[i].DonorEmail, donorEmail) {
			return i
		}
	}
	return -1
}
