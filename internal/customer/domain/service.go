package domain

import (
	"context"
	"errors"
)

type CreateCustomerRequest struct {
	Name     string
	Email    string
	Currency string
	Country  string
	AutoPay  bool
	Chase    *bool
	Metadata map[string]any
}

type UpdateCustomerRequest struct {
	ID       string
	Name     *string
	Email    *string
	Currency *string
	Country  *string
	AutoPay  *bool
	Chase    *bool
	Metadata map[string]any
}

type GetCustomerRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreateCustomerRequest) (Customer, error)
	Update(context.Context, UpdateCustomerRequest) (Customer, error)
	GetByID(context.Context, GetCustomerRequest) (Customer, error)
}

var (
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidID           = errors.New("invalid_id")
	ErrNotFound            = errors.New("not_found")
)
