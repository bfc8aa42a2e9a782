package subscription

import (
	"time"

	ierr "github.com/flexprice/revenue/internal/errors"
	"github.com/samber/lo"
)

// PartyRole is the role a related party plays in a subscription
type PartyRole string

const (
	PartyRoleSeller   PartyRole = "Seller"
	PartyRoleBuyer    PartyRole = "Buyer"
	PartyRoleOperator PartyRole = "Operator"
)

// RelatedParty is an organization involved in a subscription
type RelatedParty struct {
	ID   string    `json:"id" yaml:"id" validate:"required"`
	Role PartyRole `json:"role" yaml:"role" validate:"required"`
	// Name is the trading name of the party
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// PlanRef points at the plan a subscription is bound to
type PlanRef struct {
	ID   string `json:"id" yaml:"id" validate:"required"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

type Subscription struct {
	// ID is the unique identifier for the subscription
	ID string `json:"id" yaml:"id" validate:"required"`

	// Name is the display name of the subscription
	Name string `json:"name" yaml:"name"`

	// Status is the lifecycle status, ex active
	Status string `json:"status,omitempty" yaml:"status,omitempty"`

	// StartDate anchors every subscription and charge period
	StartDate time.Time `json:"startDate" yaml:"startDate" validate:"required"`

	// SubscriberID is the entity metrics are read for unless a for-each
	// bundle overrides it
	SubscriberID string `json:"subscriberId" yaml:"subscriberId" validate:"required"`

	Plan PlanRef `json:"plan" yaml:"plan" validate:"required"`

	RelatedParties []RelatedParty `json:"relatedParties,omitempty" yaml:"relatedParties,omitempty" validate:"omitempty,dive"`

	// Characteristics are free form attributes readable from plan templates
	Characteristics map[string]string `json:"characteristics,omitempty" yaml:"characteristics,omitempty"`
}

// Seller returns the related party holding the Seller role, if any
func (s *Subscription) Seller() *RelatedParty {
	p, ok := lo.Find(s.RelatedParties, func(p RelatedParty) bool {
		return p.Role == PartyRoleSeller
	})
	if !ok {
		return nil
	}
	return &p
}

// Validate checks the fields the engine depends on
func (s *Subscription) Validate() error {
	if s.ID == "" {
		return ierr.NewError("subscription id is required").
			WithHint("Subscription must have an id").
			Mark(ierr.ErrValidation)
	}
	if s.StartDate.IsZero() {
		return ierr.NewError("subscription start date is required").
			WithHintf("Subscription %s has no start date", s.ID).
			WithReportableDetails(map[string]any{
				"subscription_id": s.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	if s.SubscriberID == "" {
		return ierr.NewError("subscriber id is required").
			WithHintf("Subscription %s has no subscriber", s.ID).
			WithReportableDetails(map[string]any{
				"subscription_id": s.ID,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}
