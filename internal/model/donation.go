// Package model はドメインモデルを定義する。
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout は賞味期限などの日付フィールドの書式。
const DateLayout = "2006-01-02"

// MaxQuantity は1件の寄付で受け付ける数量の上限。
const MaxQuantity = 1e9

// Unit は寄付数量の単位を表す。
type Unit string

const (
	UnitKg       Unit = "kg"
	UnitLbs      Unit = "lbs"
	UnitUnits    Unit = "units"
	UnitServings Unit = "servings"
)

// ParseUnit は文字列をUnitに変換する。空文字はkgとして扱う。
func ParseUnit(s string) (Unit, error) {
	switch Unit(s) {
	case "":
		return UnitKg, nil
	case UnitKg, UnitLbs, UnitUnits, UnitServings:
		return Unit(s), nil
	default:
		return "", fmt.Errorf("unknown unit: %q", s)
	}
}

// DonationStatus は寄付の状態を表す。
// available → claimed の一方向にのみ遷移する。
type DonationStatus string

const (
	// DonationStatusAvailable はリクエスト受付中の状態。
	DonationStatusAvailable DonationStatus = "available"
	// DonationStatusClaimed は受け取り団体にリクエストされた状態。
	DonationStatusClaimed DonationStatus = "claimed"
)

// Quantity は寄付数量。
// 保存形式は数値だが、文字列で保存された旧データも読み込める。
type Quantity float64

// UnmarshalJSON は数値と数値文字列の両方を受け付ける。
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*q = 0
			return nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid quantity %q: %w", s, err)
		}
		*q = Quantity(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*q = Quantity(f)
	return nil
}

// Donation は寄付者が登録した食品の提供情報を表す。
type Donation struct {
	ID             string         `json:"id"`
	FoodType       string         `json:"foodType"`
	Quantity       Quantity       `json:"quantity"`
	Unit           Unit           `json:"unit"`
	ExpiryDate     string         `json:"expiryDate"`
	PickupLocation string         `json:"pickupLocation"`
	Description    string         `json:"description,omitempty"`
	DonorEmail     string         `json:"donorEmail"`
	DonorName      string         `json:"donorName"`
	Status         DonationStatus `json:"status"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      *time.Time     `json:"updatedAt,omitempty"`
}

// RequestStatus はリクエストの状態を表す。
type RequestStatus string

const (
	// RequestStatusRequested は受け取り待ちの状態。
	RequestStatusRequested RequestStatus = "requested"
	// RequestStatusCompleted は受け取りが完了した状態。
	RequestStatusCompleted RequestStatus = "completed"
)

// Request は受け取り団体による寄付のリクエストを表す。
// 食品情報はリクエスト時点のスナップショットで、元の寄付の編集は反映されない。
type Request struct {
	ID             string        `json:"id"`
	DonationID     string        `json:"donationId"`
	RecipientEmail string        `json:"recipientEmail"`
	RecipientName  string        `json:"recipientName"`
	DonorEmail     string        `json:"donorEmail"`
	DonorName      string        `json:"donorName"`
	FoodType       string        `json:"foodType"`
	Quantity       Quantity      `json:"quantity"`
	Unit           Unit          `json:"unit"`
	PickupLocation string        `json:"pickupLocation"`
	Status         RequestStatus `json:"status"`
	RequestedAt    time.Time     `json:"requestedAt"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
}

// NewRequestFromDonation は寄付のスナップショットを持つリクエストを生成する。
func NewRequestFromDonation(d Donation, recipient Session, now time.Time) Request {
	return Request{
		ID:             NewID(),
		DonationID:     d.ID,
		RecipientEmail: recipient.Email,
		RecipientName:  recipient.Name,
		DonorEmail:     d.DonorEmail,
		DonorName:      d.DonorName,
		FoodType:       d.FoodType,
		Quantity:       d.Quantity,
		Unit:           d.Unit,
		PickupLocation: d.PickupLocation,
		Status:         RequestStatusRequested,
		RequestedAt:    now,
	}
}
