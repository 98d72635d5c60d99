// Package api exposes the inbound webhook surface: slash commands and
// interaction payloads delivered by the chat platform, plus a health
// endpoint.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/officebot/internal/forms"
	"github.com/kalambet/officebot/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Reconciler handles parsed form submissions. Implemented by
// *presence.Reconciler.
type Reconciler interface {
	ReconcilePlan(ctx context.Context, userID, week string, fields map[string]string)
	ReconcileTimeOff(ctx context.Context, userID, date, leaveType, duration string)
}

// FormOpener opens a modal form for an interaction trigger. Implemented by
// *platform.Client.
type FormOpener interface {
	OpenForm(ctx context.Context, triggerID string, form forms.FormSpec) error
}

// Deps carries the collaborators the webhook handlers need.
type Deps struct {
	Reconciler    Reconciler
	Platform      FormOpener
	Store         *storage.Store
	SigningSecret string
}

// NewWebhookHandler returns the bot's HTTP surface. All command and
// interaction routes sit behind request-signature verification.
func NewWebhookHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(VerifySignature(deps.SigningSecret))
		r.Post("/commands", handleCommand(deps))
		r.Post("/interactions", handleInteraction(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleCommand(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid form body: %v", err)
			return
		}

		userID := r.PostFormValue("user_id")
		triggerID := r.PostFormValue("trigger_id")
		text := strings.TrimSpace(r.PostFormValue("text"))

		switch text {
		case "", "plan":
			openForm(r.Context(), w, deps, triggerID, forms.BuildWeeklyPlanForm(forms.WeekCurrent))
		case "plan next", "next":
			openForm(r.Context(), w, deps, triggerID, forms.BuildWeeklyPlanForm(forms.WeekNext))
		case "timeoff":
			openForm(r.Context(), w, deps, triggerID, forms.BuildTimeOffForm())
		case "week":
			ephemeral(w, describePlan(deps.Store, userID))
		default:
			ephemeral(w, "Usage: `plan` (this week), `plan next`, `timeoff`, or `week`.")
		}
	}
}

func openForm(ctx context.Context, w http.ResponseWriter, deps Deps, triggerID string, form forms.FormSpec) {
	if err := deps.Platform.OpenForm(ctx, triggerID, form); err != nil {
		slog.Warn("opening form", "callback", form.CallbackID, "error", err)
		ephemeral(w, "Sorry, the form could not be opened. Please try again.")
		return
	}
	w.WriteHeader(http.StatusOK)
}

// describePlan formats the caller's saved current-week plan.
func describePlan(store *storage.Store, userID string) string {
	st := store.Snapshot()
	plan := st.Plan(userID, forms.WeekCurrent)
	if plan == nil || len(plan.Locations) == 0 {
		return "No plan saved for this week yet. Run the command without arguments to submit one."
	}

	labels := make(map[string]string, len(forms.LocationCatalog))
	for _, o := range forms.LocationCatalog {
		labels[o.Code] = o.Label
	}

	days := [forms.NumDaySlots]string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	var b strings.Builder
	b.WriteString("Your plan for this week:\n")
	for i := 0; i < forms.NumDaySlots; i++ {
		code, ok := plan.Locations[forms.DaySlotKey(i)]
		if !ok {
			continue
		}
		label := labels[code]
		if label == "" {
			label = code
		}
		fmt.Fprintf(&b, "• %s: %s\n", days[i], label)
	}
	return b.String()
}

// interactionPayload mirrors the platform's interaction event JSON, limited
// to the fields the bot reads.
type interactionPayload struct {
	Type string `json:"type"`
	User struct {
		ID string `json:"id"`
	} `json:"user"`
	View struct {
		CallbackID      string `json:"callback_id"`
		PrivateMetadata string `json:"private_metadata"`
		State           struct {
			Values map[string]map[string]stateValue `json:"values"`
		} `json:"state"`
	} `json:"view"`
}

type stateValue struct {
	Type           string `json:"type"`
	Value          string `json:"value"`
	SelectedDate   string `json:"selected_date"`
	SelectedOption *struct {
		Value string `json:"value"`
	} `json:"selected_option"`
}

// fieldValues flattens the submitted view state into block-id → value.
func fieldValues(values map[string]map[string]stateValue) map[string]string {
	out := make(map[string]string, len(values))
	for blockID, actions := range values {
		for _, v := range actions {
			switch {
			case v.SelectedOption != nil && v.SelectedOption.Value != "":
				out[blockID] = v.SelectedOption.Value
			case v.SelectedDate != "":
				out[blockID] = v.SelectedDate
			case v.Value != "":
				out[blockID] = v.Value
			}
		}
	}
	return out
}

func handleInteraction(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		if err := r.ParseForm(); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid form body: %v", err)
			return
		}

		var payload interactionPayload
		if err := json.Unmarshal([]byte(r.PostFormValue("payload")), &payload); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid payload: %v", err)
			return
		}

		if payload.Type != "view_submission" {
			// Other interaction types (block actions, view closes) need no
			// handling; acknowledge so the platform stops retrying.
			w.WriteHeader(http.StatusOK)
			return
		}

		fields := fieldValues(payload.View.State.Values)
		userID := payload.User.ID

		switch payload.View.CallbackID {
		case forms.CallbackWeeklyPlan:
			week := forms.NormalizeWeek(payload.View.PrivateMetadata)
			deps.Reconciler.ReconcilePlan(r.Context(), userID, week, fields)
		case forms.CallbackTimeOff:
			deps.Reconciler.ReconcileTimeOff(
				r.Context(),
				userID,
				fields[forms.FieldDate],
				fields[forms.FieldLeaveType],
				fields[forms.FieldDuration],
			)
		default:
			slog.Debug("ignoring submission with unknown callback", "callback", payload.View.CallbackID)
		}

		w.WriteHeader(http.StatusOK)
	}
}

// ephemeral writes a command response visible only to the caller.
func ephemeral(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"response_type": "ephemeral",
		"text":          text,
	})
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
