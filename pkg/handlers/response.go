package handlers

import (
	"math"

	"github.com/jakechorley/oncall-roster/pkg/core/combinations"
	"github.com/jakechorley/oncall-roster/pkg/core/model"
	"github.com/jakechorley/oncall-roster/pkg/core/services"
)

type planningResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Seed      uint64 `json:"seed"`
	Success   bool   `json:"success"`
	Unfilled  int    `json:"unfilled"`
	CreatedAt string `json:"createdAt"`
}

type assignmentResponse struct {
	Date        string `json:"date"`
	Post        string `json:"post"`
	Site        string `json:"site"`
	Person      string `json:"person"`
	Stage       string `json:"stage,omitempty"`
	Combination string `json:"combination,omitempty"`
	Relaxed     bool   `json:"relaxed,omitempty"`
	Preserved   bool   `json:"preserved,omitempty"`
}

type stageResponse struct {
	Stage      string  `json:"stage"`
	Assigned   int     `json:"assigned"`
	DurationMs float64 `json:"durationMs"`
	Recovered  bool    `json:"recovered,omitempty"`
	Error      string  `json:"error,omitempty"`
}

type shortfallEntryResponse struct {
	Date            string  `json:"date"`
	Post            string  `json:"post"`
	Site            string  `json:"site"`
	Period          string  `json:"period"`
	Availability    float64 `json:"availability"`
	LowAvailability bool    `json:"lowAvailability"`
}

type shortfallResponse struct {
	Total      int                      `json:"total"`
	ByPostType map[string]int           `json:"byPostType"`
	Entries    []shortfallEntryResponse `json:"entries"`
}

type distributionResponse struct {
	Planning               planningResponse     `json:"planning"`
	Persisted              bool                 `json:"persisted"`
	Cleared                int                  `json:"cleared"`
	PreAttributionFailures int                  `json:"preAttributionFailures"`
	Stages                 []stageResponse      `json:"stages"`
	Assignments            []assignmentResponse `json:"assignments"`
	Shortfall              shortfallResponse    `json:"shortfall"`
}

func newDistributionResponse(result *services.DistributionResult) distributionResponse {
	p := result.Planning
	out := distributionResponse{
		Planning: planningResponse{
			ID: p.ID, Name: p.Name, Start: p.Start, End: p.End,
			Seed: p.Seed, Success: p.Success, Unfilled: p.Unfilled, CreatedAt: p.CreatedAt,
		},
		Persisted:              result.Persisted,
		Cleared:                result.Cleared,
		PreAttributionFailures: result.Outcome.PreAttributionFailures,
		Stages:                 make([]stageResponse, 0, len(result.Outcome.Stages)),
		Assignments:            make([]assignmentResponse, 0, len(result.Assignments)),
		Shortfall: shortfallResponse{
			ByPostType: map[string]int{},
			Entries:    []shortfallEntryResponse{},
		},
	}

	for _, st := range result.Outcome.Stages {
		out.Stages = append(out.Stages, stageResponse{
			Stage:      st.Stage.String(),
			Assigned:   st.Assigned,
			DurationMs: float64(st.Duration.Microseconds()) / 1000,
			Recovered:  st.Recovered,
			Error:      st.Error,
		})
	}

	for _, a := range result.Assignments {
		out.Assignments = append(out.Assignments, assignmentResponse{
			Date: a.Date, Post: a.PostType, Site: a.Site, Person: a.Person,
			Stage: a.Stage, Combination: a.Combination, Relaxed: a.Relaxed, Preserved: a.Preserved,
		})
	}

	if sf := result.Outcome.Shortfall; sf != nil {
		out.Shortfall.Total = sf.Total()
		for pt, n := range sf.ByPostType {
			out.Shortfall.ByPostType[string(pt)] = n
		}
		for _, e := range sf.Entries {
			out.Shortfall.Entries = append(out.Shortfall.Entries, shortfallEntryResponse{
				Date:            e.Date.Format(model.DateLayout),
				Post:            string(e.PostType),
				Site:            e.Site,
				Period:          e.Period.String(),
				Availability:    e.Availability,
				LowAvailability: e.LowAvailability,
			})
		}
	}

	return out
}

type criticalPeriodResponse struct {
	Date           string  `json:"date"`
	Period         string  `json:"period"`
	Unavailability float64 `json:"unavailability"`
	Available      int     `json:"available"`
}

type criticalPeriodsResponse struct {
	Staff   int                      `json:"staff"`
	Periods []criticalPeriodResponse `json:"periods"`
}

func newCriticalPeriodsResponse(result *services.CriticalPeriodsResult) criticalPeriodsResponse {
	out := criticalPeriodsResponse{
		Staff:   result.Staff,
		Periods: make([]criticalPeriodResponse, 0, len(result.Periods)),
	}
	for _, p := range result.Periods {
		out.Periods = append(out.Periods, criticalPeriodResponse{
			Date:           p.Date.Format(model.DateLayout),
			Period:         p.Period.String(),
			Unavailability: p.Unavailability,
			Available:      p.Available,
		})
	}
	return out
}

type combinationResponse struct {
	Code            string `json:"code"`
	Tier            string `json:"tier"`
	Opportunities   int    `json:"opportunities"`
	Demand          int    `json:"demand"`
	EligibleDoctors int    `json:"eligibleDoctors"`

	// Ratio is null when there is no demand
	Ratio  *float64 `json:"ratio"`
	Status string   `json:"status"`
}

type combinationsResponse struct {
	Combinations []combinationResponse `json:"combinations"`
	Insufficient int                   `json:"insufficient"`
}

func newCombinationsResponse(report *combinations.Report) combinationsResponse {
	out := combinationsResponse{
		Combinations: make([]combinationResponse, 0, len(report.Entries)),
		Insufficient: len(report.Insufficient()),
	}
	for _, e := range report.Entries {
		entry := combinationResponse{
			Code:            e.Code,
			Tier:            e.Tier.String(),
			Opportunities:   e.Opportunities,
			Demand:          e.Demand,
			EligibleDoctors: e.EligibleDoctors,
			Status:          string(e.Status),
		}
		if !math.IsInf(e.Ratio, 0) && !math.IsNaN(e.Ratio) {
			ratio := e.Ratio
			entry.Ratio = &ratio
		}
		out.Combinations = append(out.Combinations, entry)
	}
	return out
}
