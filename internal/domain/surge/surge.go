package surge

import (
	"time"

	"godash/internal/domain/emergency"
	"godash/internal/domain/shared"
)

// Alert is a surge deployment call for personnel.
type Alert struct {
	ID        int64               `json:"id"`
	Message   string              `json:"message"`
	Operation string              `json:"operation"`
	AType     int                 `json:"atype"`
	Category  Category            `json:"category"`
	Event     *emergency.EventRef `json:"event"`
	Country   *shared.Country     `json:"country"`
	IsActive  bool                `json:"is_active"`
	Opens     shared.Date         `json:"opens"`
	Closes    shared.Date         `json:"closes"`
	Start     shared.Date         `json:"start"`
	End       shared.Date         `json:"end"`
	CreatedAt shared.Date         `json:"created_at"`
}

// Category is the alert urgency.
type Category int

const (
	CategoryInfo Category = iota
	CategoryDeployment
	CategoryAlert
	CategoryShelter
	CategoryStandDown
)

func (c Category) String() string {
	switch c {
	case CategoryInfo:
		return "Information"
	case CategoryDeployment:
		return "Deployment"
	case CategoryAlert:
		return "Alert"
	case CategoryShelter:
		return "Shelter"
	case CategoryStandDown:
		return "Stand down"
	}
	return "Unknown"
}

// IsOpenAt reports whether applications are accepted at t.
func (a *Alert) IsOpenAt(t time.Time) bool {
	if !a.IsActive {
		return false
	}
	if !a.Opens.IsZero() && t.Before(a.Opens.Time) {
		return false
	}
	return a.Closes.IsZero() || t.Before(a.Closes.Time)
}
