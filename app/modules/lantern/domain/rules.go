package lanterntypes

import (
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ClampSignal keeps v within [MinSignal, MaxSignal].
func ClampSignal(v int) int {
	return min(max(v, MinSignal), MaxSignal)
}

// ClampBoost caps a requested boost at maxBoost. Callers reject boosts below 1 first.
func ClampBoost(boost, maxBoost int) int {
	return min(boost, maxBoost)
}

// NewStation returns an active, unowned station sitting at its baseline.
func NewStation(name string, baseline int, now time.Time) Station {
	baseline = ClampSignal(baseline)
	return Station{
		ID:             uuid.New(),
		Name:           name,
		SignalValue:    baseline,
		BaselineSignal: baseline,
		IsActive:       true,
		Version:        1,
		UpdatedAt:      now,
	}
}

// Capture hands the station to team with the given boost. boost must be >= 1.
func (s *Station) Capture(team uuid.UUID, boost int, now time.Time) {
	owner := team
	s.OwnerTeamID = &owner
	s.BoostingSignal = boost
	s.SignalValue = ClampSignal(s.SignalValue + boost)
	s.Version++
	s.UpdatedAt = now
}

// Reset clears ownership and returns the signal to baseline.
func (s *Station) Reset(now time.Time) {
	s.OwnerTeamID = nil
	s.BoostingSignal = 0
	s.SignalValue = ClampSignal(s.BaselineSignal)
	s.Version++
	s.UpdatedAt = now
}

// Deactivate soft-deletes the station. Ownership does not survive deactivation.
func (s *Station) Deactivate(now time.Time) {
	s.Reset(now)
	s.IsActive = false
}

// Activate restores a deactivated station.
func (s *Station) Activate(now time.Time) {
	if s.IsActive {
		return
	}
	s.IsActive = true
	s.Version++
	s.UpdatedAt = now
}

// Consistent reports whether the ownership and signal invariants hold.
func (s Station) Consistent() bool {
	if (s.OwnerTeamID == nil) != (s.BoostingSignal == 0) {
		return false
	}
	return s.SignalValue >= MinSignal && s.SignalValue <= MaxSignal
}

// ActiveAt reports whether the round is contestable at now: flagged active and within [start, end).
func (r Round) ActiveAt(now time.Time) bool {
	return r.IsActive && !now.Before(r.StartTime) && now.Before(r.EndTime)
}

// Expired reports whether an active round has reached its end time.
func (r Round) Expired(now time.Time) bool {
	return r.IsActive && !now.Before(r.EndTime)
}

// ComputeScores derives team scores from station ownership.
// Every team is listed, sorted by points descending then name.
func ComputeScores(teams []Team, stations []Station) []TeamScore {
	byID := make(map[uuid.UUID]*TeamScore, len(teams))
	scores := make([]TeamScore, len(teams))
	for i, t := range teams {
		scores[i] = TeamScore{TeamID: t.ID, Name: t.Name}
		byID[t.ID] = &scores[i]
	}

	for _, st := range stations {
		if !st.IsActive || st.OwnerTeamID == nil {
			continue
		}
		if ts, ok := byID[*st.OwnerTeamID]; ok {
			ts.Points += st.BoostingSignal
			ts.StationsHeld++
		}
	}

	sort.SliceStable(scores, func(i, j int) bool {
		if scores[i].Points != scores[j].Points {
			return scores[i].Points > scores[j].Points
		}
		return scores[i].Name < scores[j].Name
	})
	return scores
}

// View builds the client view, shuffling the real password in among the decoys.
func (h HackSession) View(rng *rand.Rand) HackSessionView {
	candidates := make([]string, 0, len(h.DecoyPasswords)+1)
	candidates = append(candidates, h.RealPassword.Value)
	for _, d := range h.DecoyPasswords {
		candidates = append(candidates, d.Value)
	}
	if rng == nil {
		rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	} else {
		rng.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })
	}

	hints := append([]string(nil), h.RealPassword.Hints...)
	return HackSessionView{
		StationID:  h.StationID,
		TriesLeft:  h.TriesLeft,
		Candidates: candidates,
		Hints:      hints,
		CreatedAt:  h.CreatedAt,
	}
}
