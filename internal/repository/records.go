package repository

import (
	"errors"
	"log/slog"

	"github.com/hitoshi/foodshare/internal/model"
	"github.com/hitoshi/foodshare/internal/storage"
)

// NewUserRepository はusersキーのリポジトリを生成する。
func NewUserRepository(store storage.Store, logger *slog.Logger) *StoreCollection[model.User] {
	return NewStoreCollection(store, storage.KeyUsers, validateUser, logger)
}

// NewDonationRepository はdonationsキーのリポジトリを生成する。
func NewDonationRepository(store storage.Store, logger *slog.Logger) *StoreCollection[model.Donation] {
	return NewStoreCollection(store, storage.KeyDonations, validateDonation, logger)
}

// NewRequestRepository はrequestsキーのリポジトリを生成する。
func NewRequestRepository(store storage.Store, logger *slog.Logger) *StoreCollection[model.Request] {
	return NewStoreCollection(store, storage.KeyRequests, validateRequest, logger)
}

func validateUser(u model.User) error {
	if u.ID == "" {
		return errors.New("user id is empty")
	}
	if u.Email == "" {
		return errors.New("user email is empty")
	}
	if !u.Role.Registrable() {
		return errors.New("user role is not a stored role: " + string(u.Role))
	}
	return nil
}

func validateDonation(d model.Donation) error {
	if d.ID == "" {
		return errors.New("donation id is empty")
	}
	if d.DonorEmail == "" {
		return errors.New("donation donorEmail is empty")
	}
	switch d.Status {
	case model.DonationStatusAvailable, model.DonationStatusClaimed:
	default:
		return errors.New("donation status is unknown: " + string(d.Status))
	}
	if float64(d.Quantity) > model.MaxQuantity {
		return errors.New("donation quantity is out of range")
	}
	return nil
}

func validateRequest(r model.Request) error {
	if r.ID == "" {
		return errors.New("request id is empty")
	}
	if r.DonationID == "" {
		return errors.New("request donationId is empty")
	}
	if r.RecipientEmail == "" {
		return errors.New("request recipientEmail is empty")
	}
	switch r.Status {
	case model.RequestStatusRequested, model.RequestStatusCompleted:
	default:
		return errors.New("request status is unknown: " + string(r.Status))
	}
	if float64(r.Quantity) > model.MaxQuantity {
		return errors.New("request quantity is out of range")
	}
	return nil
}
