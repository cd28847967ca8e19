package emergency

import (
	"strings"

	"godash/internal/domain/shared"
)

// Emergency is a disaster event tracked by the dashboard.
type Emergency struct {
	ID                int64                `json:"id"`
	Name              string               `json:"name"`
	DType             *shared.DisasterType `json:"dtype"`
	Countries         []shared.Country     `json:"countries"`
	DisasterStartDate shared.Date          `json:"disaster_start_date"`
	NumAffected       *int64               `json:"num_affected"`
	Glide             string               `json:"glide,omitempty"`
	SeverityLevel     int                  `json:"ifrc_severity_level"`
	Appeals           []AppealRef          `json:"appeals,omitempty"`
	CreatedAt         shared.Date          `json:"created_at"`
	UpdatedAt         shared.Date          `json:"updated_at"`
}

// AppealRef is the compact appeal record nested in an emergency.
type AppealRef struct {
	ID              int64   `json:"id"`
	Code            string  `json:"code"`
	AmountRequested float64 `json:"amount_requested"`
	AmountFunded    float64 `json:"amount_funded"`
}

// Severity levels.
const (
	SeverityYellow = 0
	SeverityOrange = 1
	SeverityRed    = 2
)

// DisasterTypeName returns the disaster type name or "Unknown".
func (e *Emergency) DisasterTypeName() string {
	if e.DType == nil || strings.TrimSpace(e.DType.Name) == "" {
		return "Unknown"
	}
	return e.DType.Name
}

// Affected returns the number of people affected, 0 when not reported.
func (e *Emergency) Affected() int64 {
	if e.NumAffected == nil {
		return 0
	}
	return *e.NumAffected
}

// CountryNames lists the affected country names.
func (e *Emergency) CountryNames() []string {
	names := make([]string, 0, len(e.Countries))
	for _, c := range e.Countries {
		names = append(names, c.Name)
	}
	return names
}

// FieldReport is a situation report submitted for an emergency.
type FieldReport struct {
	ID          int64                `json:"id"`
	Summary     string               `json:"summary"`
	Description string               `json:"description,omitempty"`
	DType       *shared.DisasterType `json:"dtype"`
	Countries   []shared.Country     `json:"countries"`
	Event       *EventRef            `json:"event,omitempty"`
	NumAffected *int64               `json:"num_affected"`
	NumInjured  *int64               `json:"num_injured"`
	NumDead     *int64               `json:"num_dead"`
	Visibility  int                  `json:"visibility"`
	CreatedAt   shared.Date          `json:"created_at"`
	UpdatedAt   shared.Date          `json:"updated_at"`
}

// EventRef is the compact emergency record nested in other resources.
type EventRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Field report visibility.
const (
	VisibilityMembership = 1
	VisibilityIFRC       = 2
	VisibilityPublic     = 3
)

// IsPublic reports whether the report is visible to anonymous users.
func (r *FieldReport) IsPublic() bool { return r.Visibility == VisibilityPublic }
