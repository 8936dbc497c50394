/*
scenarios.go - Demo directory loaders for testing and demonstrations

PURPOSE:

	Provides pre-built directories that populate the store with realistic
	users and projects. Each scenario shows one aspect of leave proration
	or role resolution.

AVAILABLE SCENARIOS:

	small-team:        One admin, one team leader, a project with members
	mid-year-joiners:  Users joining this year on dates that exercise the
	                   mid-month cutoff, half days and the sick round-up
	multi-project:     Overlapping projects with different leaders

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Create users through identity.Service (leave is prorated there)
 3. Create projects and memberships

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "small-team"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx)
 3. Add it to the loaders map

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler and error helpers
  - identity/service.go: AddUser, CreateProject
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/warp/identity-engine/identity"
	"github.com/warp/identity-engine/leave"
	"github.com/warp/identity-engine/role"
)

const scenarioActor = "scenario-loader"

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-team",
		Name:        "Small Team",
		Description: "An admin, a team leader with one project, two employees and an inactive user",
	},
	{
		ID:          "mid-year-joiners",
		Name:        "Mid-Year Joiners",
		Description: "Users joining this year: mid-month cutoff, half days, sick leave round-up",
	},
	{
		ID:          "multi-project",
		Name:        "Multi-Project",
		Description: "Members shared between projects led by different team leaders",
	},
}

func (h *Handler) scenarioLoaders() map[string]func(context.Context) error {
	return map[string]func(context.Context) error{
		"small-team":       h.loadSmallTeamScenario,
		"mid-year-joiners": h.loadMidYearJoinersScenario,
		"multi-project":    h.loadMultiProjectScenario,
	}
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()

	for _, s := range scenarios {
		if s.ID == current {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	err := h.ApplyScenario(r.Context(), req.ScenarioID)
	switch {
	case errors.Is(err, errUnknownScenario):
		writeError(w, http.StatusBadRequest, "Unknown scenario", nil)
		return
	case err != nil:
		h.writeServiceError(w, r, fmt.Sprintf("Failed to load scenario %s", req.ScenarioID), err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "scenario": req.ScenarioID})
}

var errUnknownScenario = errors.New("unknown scenario")

// ApplyScenario resets the store and loads a predefined scenario.
func (h *Handler) ApplyScenario(ctx context.Context, id string) error {
	load, ok := h.scenarioLoaders()[id]
	if !ok {
		return fmt.Errorf("%w: %s", errUnknownScenario, id)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset store: %w", err)
	}
	h.currentScenario = ""

	if err := load(ctx); err != nil {
		return err
	}
	h.currentScenario = id

	h.logger.InfoContext(ctx, "scenario loaded", slog.String("scenario", id))
	return nil
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}
	h.currentScenario = ""

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

type seedUser struct {
	first, last string
	slackID     string
	joined      leave.Date
	role        role.Role
	inactive    bool
}

type seedProject struct {
	name    string
	channel string
	leader  string   // slack ID
	members []string // slack IDs
}

// seed creates users, then projects. Users and projects refer to each
// other by slack ID.
func (h *Handler) seed(ctx context.Context, users []seedUser, projects []seedProject) error {
	ids := make(map[string]string, len(users))
	for _, u := range users {
		id, err := h.Service.AddUser(ctx, identity.NewUser{
			FirstName:     u.first,
			LastName:      u.last,
			Email:         fmt.Sprintf("%s.%s@example.com", strings.ToLower(u.first), strings.ToLower(u.last)),
			JoiningDate:   u.joined,
			SlackUserName: strings.ToLower(u.first),
			SlackUserID:   u.slackID,
			IsActive:      !u.inactive,
			Role:          u.role,
		}, scenarioActor)
		if err != nil {
			return fmt.Errorf("seed user %s: %w", u.first, err)
		}
		ids[u.slackID] = id
	}

	for _, p := range projects {
		pid, err := h.Service.CreateProject(ctx, identity.NewProject{
			Name:             p.name,
			TeamLeaderID:     ids[p.leader],
			SlackChannelName: p.channel,
			IsActive:         true,
		}, scenarioActor)
		if err != nil {
			return fmt.Errorf("seed project %s: %w", p.name, err)
		}
		for _, m := range p.members {
			if err := h.Service.AddProjectMember(ctx, pid, ids[m]); err != nil {
				return fmt.Errorf("seed member %s of %s: %w", m, p.name, err)
			}
		}
	}
	return nil
}

func (h *Handler) loadSmallTeamScenario(ctx context.Context) error {
	lastYear := h.Service.ReferenceYear() - 1
	users := []seedUser{
		{first: "Grace", last: "Hopper", slackID: "U001", joined: leave.MustDate(lastYear-3, time.June, 1), role: role.Admin},
		{first: "Alan", last: "Turing", slackID: "U002", joined: leave.MustDate(lastYear-1, time.April, 1), role: role.Employee},
		{first: "Ada", last: "Lovelace", slackID: "U003", joined: leave.MustDate(lastYear, time.September, 10), role: role.Employee},
		{first: "Linus", last: "Torvalds", slackID: "U004", joined: leave.MustDate(lastYear, time.November, 20), role: role.Employee},
		{first: "Ken", last: "Thompson", slackID: "U005", joined: leave.MustDate(lastYear-2, time.January, 5), role: role.Employee, inactive: true},
	}
	projects := []seedProject{
		{name: "Apollo", channel: "apollo", leader: "U002", members: []string{"U003", "U004"}},
	}
	return h.seed(ctx, users, projects)
}

func (h *Handler) loadMidYearJoinersScenario(ctx context.Context) error {
	year := h.Service.ReferenceYear()
	users := []seedUser{
		{first: "Margaret", last: "Hamilton", slackID: "U101", joined: leave.MustDate(year-5, time.May, 2), role: role.Admin},
		// 3 months remaining
		{first: "Barbara", last: "Liskov", slackID: "U102", joined: leave.MustDate(year, time.January, 10), role: role.Employee},
		// 11 months remaining
		{first: "Dennis", last: "Ritchie", slackID: "U103", joined: leave.MustDate(year, time.April, 20), role: role.Employee},
		// 9 months remaining: half days with an even policy
		{first: "Edsger", last: "Dijkstra", slackID: "U104", joined: leave.MustDate(year, time.July, 1), role: role.Employee},
		// 6 months remaining
		{first: "Frances", last: "Allen", slackID: "U105", joined: leave.MustDate(year, time.October, 1), role: role.Employee},
		// still 6 months remaining: the 15th counts as the first half
		{first: "John", last: "Backus", slackID: "U106", joined: leave.MustDate(year, time.October, 15), role: role.Employee},
		// 0 months remaining
		{first: "Radia", last: "Perlman", slackID: "U107", joined: leave.MustDate(year, time.March, 20), role: role.Employee},
	}
	projects := []seedProject{
		{name: "Onboarding", channel: "onboarding", leader: "U103", members: []string{"U102", "U104", "U105", "U106", "U107"}},
	}
	return h.seed(ctx, users, projects)
}

func (h *Handler) loadMultiProjectScenario(ctx context.Context) error {
	lastYear := h.Service.ReferenceYear() - 1
	users := []seedUser{
		{first: "Donald", last: "Knuth", slackID: "U201", joined: leave.MustDate(lastYear-4, time.February, 1), role: role.Admin},
		{first: "Leslie", last: "Lamport", slackID: "U202", joined: leave.MustDate(lastYear-2, time.August, 1), role: role.Employee},
		{first: "Niklaus", last: "Wirth", slackID: "U203", joined: leave.MustDate(lastYear-1, time.March, 3), role: role.Employee},
		{first: "Tony", last: "Hoare", slackID: "U204", joined: leave.MustDate(lastYear, time.May, 12), role: role.Employee},
		{first: "Robin", last: "Milner", slackID: "U205", joined: leave.MustDate(lastYear, time.December, 1), role: role.Employee},
	}
	projects := []seedProject{
		{name: "Paxos", channel: "paxos", leader: "U202", members: []string{"U204", "U205"}},
		{name: "Pascal", channel: "pascal", leader: "U203", members: []string{"U204"}},
		// An admin leading a project still resolves as Admin.
		{name: "TeX", channel: "tex", leader: "U201", members: []string{"U202", "U205"}},
	}
	return h.seed(ctx, users, projects)
}
