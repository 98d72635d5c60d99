// Package presence turns form submissions into persisted state and keeps
// the user's chat-platform status and avatar in step with it.
package presence

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/officebot/internal/forms"
	"github.com/kalambet/officebot/internal/org"
	"github.com/kalambet/officebot/internal/platform"
	"github.com/kalambet/officebot/internal/storage"
)

// API is the subset of the platform client the reconciler drives.
// Implemented by *platform.Client.
type API interface {
	GetUserProfile(ctx context.Context, userID string) (platform.Profile, error)
	SetUserStatus(ctx context.Context, userID, text, emoji string, expiration int64) error
	PostMessage(ctx context.Context, userID, text string) error
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Status is the (emoji, text) pair pushed to the platform for a location.
type Status struct {
	Emoji string
	Text  string
}

// statusByLocation is the fixed mapping from location code to status.
// Codes outside this table produce no status update.
var statusByLocation = map[string]Status{
	forms.LocationHome:    {Emoji: "🏠", Text: "Working From Home"},
	forms.LocationLondon:  {Emoji: "🇬🇧", Text: "In London Office"},
	forms.LocationPrague:  {Emoji: "🇨🇿", Text: "In Prague Office"},
	forms.LocationTravel:  {Emoji: "✈️", Text: "Traveling"},
	forms.LocationTimeOff: {Emoji: "🌴", Text: "Out Of Office"},
}

// StatusForLocations derives the status from the Monday slot of a
// locations mapping, defaulting to home when Monday is absent. The second
// return is false when the code has no table entry.
func StatusForLocations(locations map[string]string) (Status, bool) {
	code := locations[forms.DaySlotKey(0)]
	if code == "" {
		code = forms.LocationHome
	}
	s, ok := statusByLocation[code]
	return s, ok
}

// Reconciler converts submission events into store mutations and
// best-effort platform side effects.
type Reconciler struct {
	store    *storage.Store
	api      API
	managers org.Managers
	clock    Clock
}

// NewReconciler creates a Reconciler using the wall clock.
func NewReconciler(store *storage.Store, api API, managers org.Managers) *Reconciler {
	return &Reconciler{store: store, api: api, managers: managers, clock: realClock{}}
}

// NewReconcilerWithClock creates a Reconciler with a custom clock (for testing).
func NewReconcilerWithClock(store *storage.Store, api API, managers org.Managers, clock Clock) *Reconciler {
	return &Reconciler{store: store, api: api, managers: managers, clock: clock}
}

// ReconcilePlan persists a weekly plan submission and drives the avatar,
// status, and confirmation side effects. Every failure class here is
// logged and swallowed: a persistence error must not block the side
// effects, and no side-effect failure may roll back the persisted record
// or prevent the other side effects.
func (r *Reconciler) ReconcilePlan(ctx context.Context, userID, week string, fields map[string]string) {
	week = forms.NormalizeWeek(week)

	// Keep only values following the day-slot scheme; other fields may
	// appear on future form revisions and are ignored.
	locations := make(map[string]string)
	for key, code := range fields {
		if forms.IsDaySlot(key) {
			locations[key] = code
		}
	}

	rec := &storage.PlanRecord{
		Locations: locations,
		Timestamp: r.clock.Now().UnixMilli(),
	}
	if err := r.store.Update(func(st *storage.State) {
		st.SetPlan(userID, week, rec)
	}); err != nil {
		slog.Error("persisting weekly plan", "user", userID, "week", week, "error", err)
	}

	r.refreshAvatar(ctx, userID)
	r.pushStatus(ctx, userID, locations)

	confirmation := fmt.Sprintf("Saved your office plan for %s. 📍", weekLabel(week))
	if err := r.api.PostMessage(ctx, userID, confirmation); err != nil {
		slog.Warn("sending plan confirmation", "user", userID, "error", err)
	}
}

// ReconcileTimeOff persists a time-off submission. No avatar or status
// side effects; the mapped manager (if any) and the submitter each get a
// best-effort notification.
func (r *Reconciler) ReconcileTimeOff(ctx context.Context, userID, date, leaveType, duration string) {
	rec := &storage.TimeOffRecord{
		ID:        uuid.New().String(),
		LeaveType: leaveType,
		Duration:  duration,
		Timestamp: r.clock.Now().UnixMilli(),
	}
	if err := r.store.Update(func(st *storage.State) {
		st.SetTimeOff(userID, date, rec)
	}); err != nil {
		slog.Error("persisting time off", "user", userID, "date", date, "error", err)
	}

	if managerID, ok := r.managers.ManagerOf(userID); ok {
		notice := fmt.Sprintf("<@%s> requested %s time off on %s (%s).", userID, leaveType, date, duration)
		if err := r.api.PostMessage(ctx, managerID, notice); err != nil {
			slog.Warn("notifying manager", "user", userID, "manager", managerID, "error", err)
		}
	}

	confirmation := fmt.Sprintf("Your %s time-off request for %s was recorded.", leaveType, date)
	if err := r.api.PostMessage(ctx, userID, confirmation); err != nil {
		slog.Warn("sending time-off confirmation", "user", userID, "error", err)
	}
}

// refreshAvatar re-fetches the user's profile and caches the image URL.
// On fetch failure the stored avatar is left untouched.
func (r *Reconciler) refreshAvatar(ctx context.Context, userID string) {
	profile, err := r.api.GetUserProfile(ctx, userID)
	if err != nil {
		slog.Warn("refreshing avatar", "user", userID, "error", err)
		return
	}

	var avatar *string
	if profile.Image != "" {
		avatar = &profile.Image
	}
	if err := r.store.Update(func(st *storage.State) {
		st.SetAvatar(userID, avatar)
	}); err != nil {
		slog.Error("persisting avatar", "user", userID, "error", err)
	}
}

// pushStatus derives a status from the Monday slot of the just-submitted
// locations and pushes it. An unmapped code means no status call at all.
func (r *Reconciler) pushStatus(ctx context.Context, userID string, locations map[string]string) {
	status, ok := StatusForLocations(locations)
	if !ok {
		return
	}
	if err := r.api.SetUserStatus(ctx, userID, status.Text, status.Emoji, 0); err != nil {
		slog.Warn("setting status", "user", userID, "error", err)
	}
}

func weekLabel(week string) string {
	if week == forms.WeekNext {
		return "next week"
	}
	return "this week"
}
