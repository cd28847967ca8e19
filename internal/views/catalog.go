package views

import "time"

// View names.
const (
	Emergencies  = "emergencies"
	FieldReports = "field-reports"
	Appeals      = "appeals"
	Projects     = "projects"
	Surge        = "surge"
)

// EmergencyFilter enumerates the filter keys of the emergencies view.
type EmergencyFilter string

const (
	EmergencyDType          EmergencyFilter = "dtype"
	EmergencyCountries      EmergencyFilter = "countries"
	EmergencyRegion         EmergencyFilter = "region"
	EmergencyStartDateAfter EmergencyFilter = "startDateAfter"
	EmergencySearch         EmergencyFilter = "search"
)

// FieldReportFilter enumerates the filter keys of the field reports view.
type FieldReportFilter string

const (
	FieldReportDType        FieldReportFilter = "dtype"
	FieldReportCountries    FieldReportFilter = "countries"
	FieldReportRegions      FieldReportFilter = "regions"
	FieldReportEvent        FieldReportFilter = "event"
	FieldReportCreatedAfter FieldReportFilter = "createdAfter"
	FieldReportSearch       FieldReportFilter = "search"
)

// AppealFilter enumerates the filter keys of the appeals view.
type AppealFilter string

const (
	AppealType         AppealFilter = "atype"
	AppealDType        AppealFilter = "dtype"
	AppealCountry      AppealFilter = "country"
	AppealRegion       AppealFilter = "region"
	AppealEndDateAfter AppealFilter = "endDateAfter"
)

// ProjectFilter enumerates the filter keys of the 3W projects view.
type ProjectFilter string

const (
	ProjectReportingNS   ProjectFilter = "reportingNS"
	ProjectCountry       ProjectFilter = "country"
	ProjectSector        ProjectFilter = "sector"
	ProjectStatus        ProjectFilter = "status"
	ProjectProgrammeType ProjectFilter = "programmeType"
)

// SurgeFilter enumerates the filter keys of the surge alerts view.
type SurgeFilter string

const (
	SurgeAType    SurgeFilter = "atype"
	SurgeCategory SurgeFilter = "category"
	SurgeEvent    SurgeFilter = "event"
	SurgeCountry  SurgeFilter = "country"
	SurgeIsActive SurgeFilter = "isActive"
)

// EmergencyLookback is how far back the emergencies view looks by default.
const EmergencyLookback = 30 * 24 * time.Hour

// EmergenciesView lists emergencies, by default those that started in the last
// thirty days.
func EmergenciesView() *Definition[EmergencyFilter] {
	return &Definition[EmergencyFilter]{
		Slug:       Emergencies,
		Title:      "Emergencies",
		Path:       "api/v2/event/",
		PageSize:   10,
		SortFields: []string{"disaster_start_date", "name", "num_affected", "created_at"},
		Filters: []FilterSpec[EmergencyFilter]{
			{Key: EmergencyDType, Kind: KindInt},
			{Key: EmergencyCountries, Param: "countries__in", Kind: KindIDList},
			{Key: EmergencyRegion, Param: "regions__in", Kind: KindInt},
			{Key: EmergencyStartDateAfter, Param: "disaster_start_date__gte", Kind: KindDate},
			{Key: EmergencySearch, Param: "name__icontains", Kind: KindString},
		},
		Defaults: func(now time.Time) map[EmergencyFilter]any {
			return map[EmergencyFilter]any{EmergencyStartDateAfter: Day(now.Add(-EmergencyLookback))}
		},
	}
}

// FieldReportsView lists field reports.
func FieldReportsView() *Definition[FieldReportFilter] {
	return &Definition[FieldReportFilter]{
		Slug:       FieldReports,
		Title:      "Field reports",
		Path:       "api/v2/field-report/",
		PageSize:   5,
		SortFields: []string{"created_at", "summary", "num_affected"},
		Filters: []FilterSpec[FieldReportFilter]{
			{Key: FieldReportDType, Kind: KindInt},
			{Key: FieldReportCountries, Param: "countries__in", Kind: KindIDList},
			{Key: FieldReportRegions, Param: "regions__in", Kind: KindIDList},
			{Key: FieldReportEvent, Kind: KindInt},
			{Key: FieldReportCreatedAfter, Param: "created_at__gte", Kind: KindDate},
			{Key: FieldReportSearch, Param: "summary__icontains", Kind: KindString},
		},
	}
}

// AppealsView lists appeals; by default only those still running.
func AppealsView() *Definition[AppealFilter] {
	return &Definition[AppealFilter]{
		Slug:       Appeals,
		Title:      "Appeals",
		Path:       "api/v2/appeal/",
		PageSize:   5,
		SortFields: []string{"start_date", "end_date", "amount_requested", "amount_funded", "name"},
		Filters: []FilterSpec[AppealFilter]{
			{Key: AppealType, Kind: KindInt},
			{Key: AppealDType, Kind: KindInt},
			{Key: AppealCountry, Kind: KindInt},
			{Key: AppealRegion, Kind: KindInt},
			{Key: AppealEndDateAfter, Param: "end_date__gt", Kind: KindDate},
		},
		Defaults: func(now time.Time) map[AppealFilter]any {
			return map[AppealFilter]any{AppealEndDateAfter: Day(now)}
		},
	}
}

// ProjectsView lists 3W projects.
func ProjectsView() *Definition[ProjectFilter] {
	return &Definition[ProjectFilter]{
		Slug:       Projects,
		Title:      "3W projects",
		Path:       "api/v2/project/",
		PageSize:   10,
		SortFields: []string{"name", "budget_amount", "start_date", "end_date", "status"},
		Filters: []FilterSpec[ProjectFilter]{
			{Key: ProjectReportingNS, Param: "reporting_ns", Kind: KindIDList},
			{Key: ProjectCountry, Param: "country", Kind: KindIDList},
			{Key: ProjectSector, Param: "primary_sector", Kind: KindIDList},
			{Key: ProjectStatus, Param: "status", Kind: KindIDList},
			{Key: ProjectProgrammeType, Param: "programme_type", Kind: KindInt},
		},
	}
}

// SurgeView lists surge alerts; by default only active ones.
func SurgeView() *Definition[SurgeFilter] {
	return &Definition[SurgeFilter]{
		Slug:       Surge,
		Title:      "Surge alerts",
		Path:       "api/v2/surge_alert/",
		PageSize:   5,
		SortFields: []string{"opens", "closes", "created_at"},
		Filters: []FilterSpec[SurgeFilter]{
			{Key: SurgeAType, Kind: KindInt},
			{Key: SurgeCategory, Kind: KindInt},
			{Key: SurgeEvent, Kind: KindInt},
			{Key: SurgeCountry, Kind: KindInt},
			{Key: SurgeIsActive, Param: "is_active", Kind: KindBool},
		},
		Defaults: func(time.Time) map[SurgeFilter]any {
			return map[SurgeFilter]any{SurgeIsActive: true}
		},
	}
}

// DefaultRegistry registers every dashboard view.
func DefaultRegistry() *Registry {
	return NewRegistry(
		EmergenciesView(),
		FieldReportsView(),
		AppealsView(),
		ProjectsView(),
		SurgeView(),
	)
}

// Day returns the calendar day of t, as seen in t's location, at UTC midnight.
// Filter dates are compared as instants, so every day must live in one zone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
