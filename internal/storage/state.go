// Package storage holds the bot's persisted state: per-user records, weekly
// plans, and time-off requests. The whole state lives in memory for the
// process lifetime and is rewritten through a Backend after every mutation.
package storage

// UserRecord stores per-user data outside any particular week.
type UserRecord struct {
	// Avatar is the last-known profile image URL, nil when the platform
	// reported none.
	Avatar *string `json:"avatar"`
}

// PlanRecord is one submitted weekly plan. Locations maps day-slot keys
// (day_0..day_4) to location codes; a slot absent from the submission is
// absent here too.
type PlanRecord struct {
	Locations map[string]string `json:"locations"`
	// Timestamp is the submission time in epoch milliseconds, overwritten
	// on every resubmission.
	Timestamp int64 `json:"timestamp"`
}

// TimeOffRecord is one time-off request for a single date.
type TimeOffRecord struct {
	ID        string `json:"id"`
	LeaveType string `json:"leave_type"`
	Duration  string `json:"duration"`
	Timestamp int64  `json:"timestamp"`
}

// State is the entire persisted store. Plans and TimeOff are keyed by user
// identifier, then by week selector ("current"/"next") and date
// respectively.
type State struct {
	Users   map[string]*UserRecord               `json:"users"`
	Plans   map[string]map[string]*PlanRecord    `json:"plans"`
	TimeOff map[string]map[string]*TimeOffRecord `json:"timeoff"`
}

// NewState returns a State with all maps initialized.
func NewState() State {
	return State{
		Users:   make(map[string]*UserRecord),
		Plans:   make(map[string]map[string]*PlanRecord),
		TimeOff: make(map[string]map[string]*TimeOffRecord),
	}
}

// normalize initializes any nil maps after decoding a partial document.
func (s *State) normalize() {
	if s.Users == nil {
		s.Users = make(map[string]*UserRecord)
	}
	if s.Plans == nil {
		s.Plans = make(map[string]map[string]*PlanRecord)
	}
	if s.TimeOff == nil {
		s.TimeOff = make(map[string]map[string]*TimeOffRecord)
	}
}

// SetPlan replaces the plan for (userID, week) in full.
func (s *State) SetPlan(userID, week string, rec *PlanRecord) {
	if s.Plans[userID] == nil {
		s.Plans[userID] = make(map[string]*PlanRecord)
	}
	s.Plans[userID][week] = rec
}

// Plan returns the plan stored for (userID, week), or nil.
func (s State) Plan(userID, week string) *PlanRecord {
	return s.Plans[userID][week]
}

// SetTimeOff replaces the time-off record for (userID, date) in full.
func (s *State) SetTimeOff(userID, date string, rec *TimeOffRecord) {
	if s.TimeOff[userID] == nil {
		s.TimeOff[userID] = make(map[string]*TimeOffRecord)
	}
	s.TimeOff[userID][date] = rec
}

// SetAvatar writes the cached avatar URL for userID, creating the user
// record if needed.
func (s *State) SetAvatar(userID string, avatar *string) {
	u := s.Users[userID]
	if u == nil {
		u = &UserRecord{}
		s.Users[userID] = u
	}
	u.Avatar = avatar
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	out := NewState()
	for id, u := range s.Users {
		cp := &UserRecord{}
		if u != nil && u.Avatar != nil {
			av := *u.Avatar
			cp.Avatar = &av
		}
		out.Users[id] = cp
	}
	for id, weeks := range s.Plans {
		out.Plans[id] = make(map[string]*PlanRecord, len(weeks))
		for week, p := range weeks {
			if p == nil {
				continue
			}
			cp := &PlanRecord{
				Locations: make(map[string]string, len(p.Locations)),
				Timestamp: p.Timestamp,
			}
			for k, v := range p.Locations {
				cp.Locations[k] = v
			}
			out.Plans[id][week] = cp
		}
	}
	for id, dates := range s.TimeOff {
		out.TimeOff[id] = make(map[string]*TimeOffRecord, len(dates))
		for date, r := range dates {
			if r == nil {
				continue
			}
			cp := *r
			out.TimeOff[id][date] = &cp
		}
	}
	return out
}
