package lanterndb

import (
	"context"
	"slices"
	"strings"
	"sync"

	lanterntypes "github.com/Black-And-White-Club/lantern-bot/app/modules/lantern/domain"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type sessionKey struct {
	owner   string
	station uuid.UUID
}

// MemoryRepository keeps all lantern state in process. It ignores the db argument;
// callers provide station-level exclusion themselves.
type MemoryRepository struct {
	mu       sync.RWMutex
	stations map[uuid.UUID]lanterntypes.Station
	round    *lanterntypes.Round
	sessions map[sessionKey]lanterntypes.HackSession
	teams    map[uuid.UUID]lanterntypes.Team
	members  map[string]uuid.UUID
}

var _ Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stations: make(map[uuid.UUID]lanterntypes.Station),
		sessions: make(map[sessionKey]lanterntypes.HackSession),
		teams:    make(map[uuid.UUID]lanterntypes.Team),
		members:  make(map[string]uuid.UUID),
	}
}

func cloneStation(s lanterntypes.Station) *lanterntypes.Station {
	if s.OwnerTeamID != nil {
		owner := *s.OwnerTeamID
		s.OwnerTeamID = &owner
	}
	return &s
}

func cloneSession(h lanterntypes.HackSession) *lanterntypes.HackSession {
	h.RealPassword.Hints = slices.Clone(h.RealPassword.Hints)
	h.DecoyPasswords = slices.Clone(h.DecoyPasswords)
	return &h
}

func (m *MemoryRepository) GetStation(_ context.Context, _ bun.IDB, id uuid.UUID) (*lanterntypes.Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.stations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneStation(s), nil
}

func (m *MemoryRepository) ListStations(_ context.Context, _ bun.IDB, includeInactive bool) ([]lanterntypes.Station, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]lanterntypes.Station, 0, len(m.stations))
	for _, s := range m.stations {
		if !includeInactive && !s.IsActive {
			continue
		}
		out = append(out, *cloneStation(s))
	}
	slices.SortFunc(out, func(a, b lanterntypes.Station) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out, nil
}

func (m *MemoryRepository) CreateStation(_ context.Context, _ bun.IDB, station *lanterntypes.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stations[station.ID]; ok {
		return ErrDuplicate
	}
	m.stations[station.ID] = *cloneStation(*station)
	return nil
}

func (m *MemoryRepository) SaveStation(_ context.Context, _ bun.IDB, station *lanterntypes.Station) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.stations[station.ID]; !ok {
		return ErrNotFound
	}
	m.stations[station.ID] = *cloneStation(*station)
	return nil
}

func (m *MemoryRepository) LockStation(context.Context, bun.IDB, uuid.UUID) error { return nil }

func (m *MemoryRepository) GetRound(context.Context, bun.IDB) (*lanterntypes.Round, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.round == nil {
		return nil, ErrNotFound
	}
	r := *m.round
	return &r, nil
}

func (m *MemoryRepository) SaveRound(_ context.Context, _ bun.IDB, round *lanterntypes.Round) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := *round
	m.round = &r
	return nil
}

func (m *MemoryRepository) GetHackSession(_ context.Context, _ bun.IDB, ownerID string, stationID uuid.UUID) (*lanterntypes.HackSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.sessions[sessionKey{ownerID, stationID}]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneSession(h), nil
}

func (m *MemoryRepository) InsertHackSession(_ context.Context, _ bun.IDB, session *lanterntypes.HackSession) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{session.OwnerID, session.StationID}
	if _, ok := m.sessions[key]; ok {
		return false, nil
	}
	m.sessions[key] = *cloneSession(*session)
	return true, nil
}

func (m *MemoryRepository) UpdateHackSessionTries(_ context.Context, _ bun.IDB, ownerID string, stationID uuid.UUID, triesLeft int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := sessionKey{ownerID, stationID}
	h, ok := m.sessions[key]
	if !ok {
		return ErrNotFound
	}
	h.TriesLeft = triesLeft
	m.sessions[key] = h
	return nil
}

func (m *MemoryRepository) DeleteHackSession(_ context.Context, _ bun.IDB, ownerID string, stationID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey{ownerID, stationID})
	return nil
}

func (m *MemoryRepository) DeleteHackSessionsForStation(_ context.Context, _ bun.IDB, stationID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k := range m.sessions {
		if k.station == stationID {
			delete(m.sessions, k)
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) DeleteAllHackSessions(context.Context, bun.IDB) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.sessions)
	clear(m.sessions)
	return n, nil
}

func (m *MemoryRepository) CreateTeam(_ context.Context, _ bun.IDB, team *lanterntypes.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.teams {
		if t.ID == team.ID || t.Name == team.Name {
			return ErrDuplicate
		}
	}
	m.teams[team.ID] = *team
	return nil
}

func (m *MemoryRepository) GetTeam(_ context.Context, _ bun.IDB, id uuid.UUID) (*lanterntypes.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (m *MemoryRepository) ListTeams(context.Context, bun.IDB) ([]lanterntypes.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]lanterntypes.Team, 0, len(m.teams))
	for _, t := range m.teams {
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b lanterntypes.Team) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (m *MemoryRepository) AssignMember(_ context.Context, _ bun.IDB, userID string, teamID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.teams[teamID]; !ok {
		return ErrNotFound
	}
	m.members[userID] = teamID
	return nil
}

func (m *MemoryRepository) GetTeamForUser(_ context.Context, _ bun.IDB, userID string) (*lanterntypes.Team, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.members[userID]
	if !ok {
		return nil, ErrNotFound
	}
	t, ok := m.teams[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}
