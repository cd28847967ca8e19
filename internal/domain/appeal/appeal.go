package appeal

import (
	"time"

	"godash/internal/domain/shared"
)

// Appeal is a funding request raised for an emergency.
type Appeal struct {
	ID               int64                `json:"id"`
	AID              string               `json:"aid"`
	Code             string               `json:"code"`
	Name             string               `json:"name"`
	AType            Type                 `json:"atype"`
	Status           Status               `json:"status"`
	DType            *shared.DisasterType `json:"dtype"`
	Country          *shared.Country      `json:"country"`
	Event            *int64               `json:"event"`
	AmountRequested  float64              `json:"amount_requested"`
	AmountFunded     float64              `json:"amount_funded"`
	NumBeneficiaries int64                `json:"num_beneficiaries"`
	StartDate        shared.Date          `json:"start_date"`
	EndDate          shared.Date          `json:"end_date"`
}

// Type is the appeal mechanism.
type Type int

const (
	TypeDREF Type = iota
	TypeEmergencyAppeal
	TypeIntlAppeal
	TypeForecastBasedAction
)

var typeNames = map[Type]string{
	TypeDREF:                "DREF",
	TypeEmergencyAppeal:     "Emergency Appeal",
	TypeIntlAppeal:          "International Appeal",
	TypeForecastBasedAction: "Forecast Based Action",
}

func (t Type) String() string {
	if n, ok := typeNames[t]; ok {
		return n
	}
	return "Unknown"
}

// Status is the appeal lifecycle state.
type Status int

const (
	StatusActive Status = iota
	StatusClosed
	StatusFrozen
	StatusArchived
)

func (s Status) String() string {
	switch s {
	case StatusActive:
		return "Active"
	case StatusClosed:
		return "Closed"
	case StatusFrozen:
		return "Frozen"
	case StatusArchived:
		return "Archived"
	}
	return "Unknown"
}

// Coverage returns the funded share of the requested amount in percent, capped at 100.
func (a *Appeal) Coverage() float64 {
	return Coverage(a.AmountRequested, a.AmountFunded)
}

// IsActiveAt reports whether the appeal is open at t.
func (a *Appeal) IsActiveAt(t time.Time) bool {
	if a.Status != StatusActive {
		return false
	}
	return a.EndDate.IsZero() || a.EndDate.After(t)
}

// Coverage computes funded/requested in percent, capped at 100.
func Coverage(requested, funded float64) float64 {
	if requested <= 0 {
		return 0
	}
	pct := funded / requested * 100
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}
