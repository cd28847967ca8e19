package project

import (
	"time"

	"godash/internal/domain/shared"
)

// Project is a 3W ("who does what where") activity record.
type Project struct {
	ID                   int64           `json:"id"`
	Name                 string          `json:"name"`
	ReportingNS          *shared.Country `json:"reporting_ns_detail"`
	ProjectCountry       *shared.Country `json:"project_country_detail"`
	PrimarySector        int             `json:"primary_sector"`
	PrimarySectorDisplay string          `json:"primary_sector_display"`
	Status               Status          `json:"status"`
	StatusDisplay        string          `json:"status_display"`
	ProgrammeType        int             `json:"programme_type"`
	BudgetAmount         float64         `json:"budget_amount"`
	TargetTotal          int64           `json:"target_total"`
	ReachedTotal         int64           `json:"reached_total"`
	StartDate            shared.Date     `json:"start_date"`
	EndDate              shared.Date     `json:"end_date"`
}

// Status is the 3W project status.
type Status int

const (
	StatusPlanned Status = iota
	StatusOngoing
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusPlanned:
		return "Planned"
	case StatusOngoing:
		return "Ongoing"
	case StatusCompleted:
		return "Completed"
	}
	return "Unknown"
}

// SectorName returns the display name of the primary sector.
func (p *Project) SectorName() string {
	if p.PrimarySectorDisplay == "" {
		return "Unspecified"
	}
	return p.PrimarySectorDisplay
}

// StatusName prefers the upstream display label.
func (p *Project) StatusName() string {
	if p.StatusDisplay != "" {
		return p.StatusDisplay
	}
	return p.Status.String()
}

// IsOngoingAt reports whether t falls between the project's start and end dates.
func (p *Project) IsOngoingAt(t time.Time) bool {
	if !p.StartDate.IsZero() && t.Before(p.StartDate.Time) {
		return false
	}
	if !p.EndDate.IsZero() && t.After(p.EndDate.Time) {
		return false
	}
	return true
}
