// Package analytics はアナリスト向けの読み取り専用集計を提供する。
package analytics

import (
	"context"
	"fmt"
	"math"

	"github.com/hitoshi/foodshare/internal/donation"
	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/repository"
)

// 1kgあたりの換算係数
const (
	mealsPerUnit = 2.5
	co2KgPerUnit = 2.5
)

// MonthPoint は月別推移の1点。
type MonthPoint struct {
	Month     string  `json:"month"`
	Donations int     `json:"donations"`
	Quantity  float64 `json:"quantity"`
}

// historicalMonths は当月より前の固定の推移値。
var historicalMonths = []MonthPoint{
	{Month: "Jan", Donations: 12, Quantity: 45},
	{Month: "Feb", Donations: 19, Quantity: 67},
	{Month: "Mar", Donations: 15, Quantity: 52},
	{Month: "Apr", Donations: 25, Quantity: 89},
	{Month: "May", Donations: 22, Quantity: 78},
}

// currentMonth は実データで置き換える月のラベル。
const currentMonth = "Jun"

// NamedValue はグラフ用の名前と件数の組。
type NamedValue struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Impact は食品ロス削減の換算値。
type Impact struct {
	MealsProvided  int64   `json:"mealsProvided"`
	CO2PreventedKg float64 `json:"co2PreventedKg"`
}

// Summary はアナリストダッシュボードの集計結果。
type Summary struct {
	Donors             int          `json:"donors"`
	Recipients         int          `json:"recipients"`
	Analysts           int          `json:"analysts"`
	TotalDonations     int          `json:"totalDonations"`
	TotalQuantity      float64      `json:"totalQuantity"`
	AvailableDonations int          `json:"availableDonations"`
	ClaimedDonations   int          `json:"claimedDonations"`
	StatusData         []NamedValue `json:"statusData"`
	TotalRequests      int          `json:"totalRequests"`
	CompletedRequests  int          `json:"completedRequests"`
	CompletionRate     float64      `json:"completionRate"`
	FoodTypeData       []NamedValue `json:"foodTypeData"`
	MonthlyData        []MonthPoint `json:"monthlyData"`
	Impact             Impact       `json:"impact"`
}

// Service はアナリスト向けのサービス層。状態を一切変更しない。
type Service struct {
	users     repository.UserRepository
	donations repository.DonationRepository
	requests  repository.RequestRepository
}

// NewService はServiceを生成する。
func NewService(
	users repository.UserRepository,
	donations repository.DonationRepository,
	requests repository.RequestRepository,
) *Service {
	return &Service{users: users, donations: donations, requests: requests}
}

// Summary は3つのコレクションを読み込み、集計結果を返す。
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
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
	return Compute(users.Items, donations.Items, requests.Items), nil
}

// Compute は与えられたコレクションから集計結果を計算する。
func Compute(users []model.User, donations []model.Donation, requests []model.Request) *Summary {
	sum := &Summary{}

	for _, u := range users {
		switch u.Role {
		case model.RoleDonor:
			sum.Donors++
		case model.RoleRecipient:
			sum.Recipients++
		case model.RoleAnalyst:
			sum.Analysts++
		}
	}

	foodIndex := map[string]int{}
	sum.FoodTypeData = make([]NamedValue, 0)
	var quantity float64
	for _, d := range donations {
		sum.TotalDonations++
		quantity += float64(d.Quantity)
		switch d.Status {
		case model.DonationStatusAvailable:
			sum.AvailableDonations++
		case model.DonationStatusClaimed:
			sum.ClaimedDonations++
		}
		// 初出順を保つ
		if i, ok := foodIndex[d.FoodType]; ok {
			sum.FoodTypeData[i].Value++
		} else {
			foodIndex[d.FoodType] = len(sum.FoodTypeData)
			sum.FoodTypeData = append(sum.FoodTypeData, NamedValue{Name: d.FoodType, Value: 1})
		}
	}
	sum.TotalQuantity = donation.RoundTo(quantity, 1)
	sum.StatusData = []NamedValue{
		{Name: "Available", Value: sum.AvailableDonations},
		{Name: "Claimed", Value: sum.ClaimedDonations},
	}

	for _, r := range requests {
		sum.TotalRequests++
		if r.Status == model.RequestStatusCompleted {
			sum.CompletedRequests++
		}
	}
	sum.CompletionRate = CompletionRate(sum.CompletedRequests, sum.TotalRequests)

	sum.MonthlyData = append(append([]MonthPoint(nil), historicalMonths...), MonthPoint{
		Month:     currentMonth,
		Donations: sum.TotalDonations,
		Quantity:  sum.TotalQuantity,
	})

	sum.Impact = Impact{
		MealsProvided:  int64(math.Round(sum.TotalQuantity * mealsPerUnit)),
		CO2PreventedKg: donation.RoundTo(sum.TotalQuantity*co2KgPerUnit, 1),
	}

	return sum
}

// CompletionRate は完了率（%）を小数第1位で返す。リクエストが無い場合は0。
func CompletionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return donation.RoundTo(float64(completed)/float64(total)*100, 1)
}
