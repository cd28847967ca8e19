// Package aggregate computes dashboard chart series from fetched list pages.
package aggregate

import (
	"cmp"
	"math"
	"slices"

	"godash/internal/domain/appeal"
	"godash/internal/domain/emergency"
	"godash/internal/domain/project"
)

// Point is one labelled value of a chart series.
type Point struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

// TypeCount groups emergencies of one disaster type.
type TypeCount struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Affected int64  `json:"affected"`
}

// Funding is requested versus funded amounts with coverage in percent.
type Funding struct {
	Label     string  `json:"label,omitempty"`
	Count     int     `json:"count"`
	Requested float64 `json:"requested"`
	Funded    float64 `json:"funded"`
	Coverage  float64 `json:"coverage"`
}

// AppealFunding is the overall funding picture and its split per appeal type.
type AppealFunding struct {
	Total  Funding   `json:"total"`
	ByType []Funding `json:"by_type"`
}

// Group is a count and budget sum for one label.
type Group struct {
	Name   string  `json:"name"`
	Count  int     `json:"count"`
	Budget float64 `json:"budget"`
}

// ProjectBreakdown groups projects by primary sector and by status.
type ProjectBreakdown struct {
	BySector []Group `json:"by_sector"`
	ByStatus []Group `json:"by_status"`
}

// EmergenciesByType counts emergencies per disaster type, most frequent first.
func EmergenciesByType(items []emergency.Emergency) []TypeCount {
	idx := map[string]int{}
	out := []TypeCount{}
	for i := range items {
		name := items[i].DisasterTypeName()
		pos, ok := idx[name]
		if !ok {
			pos = len(out)
			idx[name] = pos
			out = append(out, TypeCount{Name: name})
		}
		out[pos].Count++
		out[pos].Affected += items[i].Affected()
	}
	slices.SortStableFunc(out, func(a, b TypeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// FundingOf sums requested and funded amounts of appeals.
func FundingOf(items []appeal.Appeal) AppealFunding {
	byType := map[appeal.Type]*Funding{}
	var total Funding
	for i := range items {
		a := &items[i]
		f, ok := byType[a.AType]
		if !ok {
			f = &Funding{Label: a.AType.String()}
			byType[a.AType] = f
		}
		f.Count++
		f.Requested += a.AmountRequested
		f.Funded += a.AmountFunded
		total.Count++
		total.Requested += a.AmountRequested
		total.Funded += a.AmountFunded
	}

	types := make([]appeal.Type, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	slices.Sort(types)

	out := AppealFunding{Total: total, ByType: make([]Funding, 0, len(types))}
	out.Total.Coverage = round2(appeal.Coverage(total.Requested, total.Funded))
	for _, t := range types {
		f := *byType[t]
		f.Coverage = round2(appeal.Coverage(f.Requested, f.Funded))
		out.ByType = append(out.ByType, f)
	}
	return out
}

// ProjectsBySector groups projects by sector and status, largest budget first.
func ProjectsBySector(items []project.Project) ProjectBreakdown {
	return ProjectBreakdown{
		BySector: groupBy(items, (*project.Project).SectorName),
		ByStatus: groupBy(items, (*project.Project).StatusName),
	}
}

func groupBy(items []project.Project, label func(*project.Project) string) []Group {
	idx := map[string]int{}
	out := []Group{}
	for i := range items {
		name := label(&items[i])
		pos, ok := idx[name]
		if !ok {
			pos = len(out)
			idx[name] = pos
			out = append(out, Group{Name: name})
		}
		out[pos].Count++
		out[pos].Budget += items[i].BudgetAmount
	}
	slices.SortStableFunc(out, func(a, b Group) int {
		if c := cmp.Compare(b.Budget, a.Budget); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// Normalize rescales a series to shares of 100, rounded to two decimals.
// Negative values count as zero; an all-zero series stays zero.
func Normalize(series []Point) []Point {
	var sum float64
	for _, p := range series {
		sum += math.Max(p.Value, 0)
	}
	out := make([]Point, len(series))
	for i, p := range series {
		out[i].Label = p.Label
		if sum > 0 {
			out[i].Value = round2(math.Max(p.Value, 0) / sum * 100)
		}
	}
	return out
}

// CountSeries turns emergency type counts into a chart series.
func CountSeries(counts []TypeCount) []Point {
	out := make([]Point, len(counts))
	for i, c := range counts {
		out[i] = Point{Label: c.Name, Value: float64(c.Count)}
	}
	return out
}

// BudgetSeries turns project groups into a chart series of budgets.
func BudgetSeries(groups []Group) []Point {
	out := make([]Point, len(groups))
	for i, g := range groups {
		out[i] = Point{Label: g.Name, Value: g.Budget}
	}
	return out
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
