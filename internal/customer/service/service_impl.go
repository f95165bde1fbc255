package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/collecta/internal/chasing/assign"
	"github.com/smallbiznis/collecta/internal/customer/domain"
	"github.com/smallbiznis/collecta/internal/orgcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Repo     domain.Repository
	Assigner *assign.Assigner
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	repo     domain.Repository
	assigner *assign.Assigner
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("customer.service"),
		genID:    p.GenID,
		repo:     p.Repo,
		assigner: p.Assigner,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Customer{}, domain.ErrInvalidName
	}

	email := strings.TrimSpace(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.Customer{}, domain.ErrInvalidEmail
	}

	chase := true
	if req.Chase != nil {
		chase = *req.Chase
	}

	metadata := datatypes.JSONMap{}
	for key, value := range req.Metadata {
		metadata[key] = value
	}

	now := time.Now().UTC()
	customer := domain.Customer{
		ID:        s.genID.Generate(),
		OrgID:     orgID,
		Name:      name,
		Email:     email,
		Currency:  strings.TrimSpace(req.Currency),
		Country:   strings.TrimSpace(req.Country),
		AutoPay:   req.AutoPay,
		Chase:     chase,
		Metadata:  metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.assignCadence(ctx, &customer)

	if err := s.repo.Insert(ctx, s.db, &customer); err != nil {
		return domain.Customer{}, err
	}

	return customer, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	customer, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, domain.ErrNotFound
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Customer{}, domain.ErrInvalidName
		}
		customer.Name = name
	}
	if req.Email != nil {
		email := strings.TrimSpace(*req.Email)
		if email == "" || !strings.Contains(email, "@") {
			return domain.Customer{}, domain.ErrInvalidEmail
		}
		customer.Email = email
	}
	if req.Currency != nil {
		customer.Currency = strings.TrimSpace(*req.Currency)
	}
	if req.Country != nil {
		customer.Country = strings.TrimSpace(*req.Country)
	}
	if req.AutoPay != nil {
		customer.AutoPay = *req.AutoPay
	}
	if req.Chase != nil {
		customer.Chase = *req.Chase
	}
	if req.Metadata != nil {
		metadata := datatypes.JSONMap{}
		for key, value := range req.Metadata {
			metadata[key] = value
		}
		customer.Metadata = metadata
	}
	customer.UpdatedAt = time.Now().UTC()

	// Attribute changes may move the customer to a different cadence.
	s.assignCadence(ctx, customer)

	if err := s.repo.Update(ctx, s.db, customer); err != nil {
		return domain.Customer{}, err
	}

	return *customer, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetCustomerRequest) (domain.Customer, error) {
	orgID, ok := orgcontext.OrgIDFromContext(ctx)
	if !ok || orgID == 0 {
		return domain.Customer{}, domain.ErrInvalidOrganization
	}

	id, err := s.parseID(req.ID)
	if err != nil {
		return domain.Customer{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, orgID, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if item == nil {
		return domain.Customer{}, domain.ErrNotFound
	}
	return *item, nil
}

// assignCadence applies the tenant's assignment policy. Assignment never
// fails a customer write; a broken policy just leaves the customer unassigned.
func (s *Service) assignCadence(ctx context.Context, customer *domain.Customer) {
	cadence, err := s.assigner.Assign(ctx, *customer)
	if err != nil {
		s.log.Warn("cadence assignment failed",
			zap.String("customer_id", customer.ID.String()),
			zap.Error(err),
		)
		return
	}
	previous := customer.ChasingCadenceID
	if cadence != nil && previous != nil && *previous == cadence.ID {
		// Same cadence; keep the existing cursor.
		return
	}
	assign.Apply(customer, cadence)
}

func (s *Service) parseID(raw string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(raw))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
