package platform

import (
	"context"
	"fmt"

	"github.com/kalambet/officebot/internal/forms"
)

// View is the platform's modal-view JSON layout.
type View struct {
	Type            string      `json:"type"`
	CallbackID      string      `json:"callback_id"`
	PrivateMetadata string      `json:"private_metadata,omitempty"`
	Title           textObject  `json:"title"`
	Submit          *textObject `json:"submit,omitempty"`
	Blocks          []block     `json:"blocks"`
}

type textObject struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type block struct {
	Type    string     `json:"type"`
	BlockID string     `json:"block_id"`
	Label   textObject `json:"label"`
	Element element    `json:"element"`
}

type element struct {
	Type        string         `json:"type"`
	ActionID    string         `json:"action_id"`
	Placeholder *textObject    `json:"placeholder,omitempty"`
	Options     []selectOption `json:"options,omitempty"`
}

type selectOption struct {
	Text  textObject `json:"text"`
	Value string     `json:"value"`
}

// ActionID returns the element action identifier used for field key on a
// rendered form. The interaction parser relies on the same convention.
func ActionID(key string) string {
	return key + "_input"
}

// BuildView converts a platform-agnostic FormSpec into the platform's
// modal-view layout. Each field becomes one input block whose block_id is
// the field key, so submitted values map straight back onto the form fields.
func BuildView(form forms.FormSpec) View {
	blocks := make([]block, len(form.Fields))
	for i, f := range form.Fields {
		el := element{ActionID: ActionID(f.Key)}
		switch f.Type {
		case forms.FieldTypeDate:
			el.Type = "datepicker"
		default:
			el.Type = "static_select"
			el.Placeholder = &textObject{Type: "plain_text", Text: "Choose"}
			el.Options = make([]selectOption, len(f.Options))
			for j, o := range f.Options {
				el.Options[j] = selectOption{
					Text:  textObject{Type: "plain_text", Text: o.Label},
					Value: o.Code,
				}
			}
		}
		blocks[i] = block{
			Type:    "input",
			BlockID: f.Key,
			Label:   textObject{Type: "plain_text", Text: f.Label},
			Element: el,
		}
	}

	v := View{
		Type:            "modal",
		CallbackID:      form.CallbackID,
		PrivateMetadata: form.Metadata,
		Title:           textObject{Type: "plain_text", Text: form.Title},
		Blocks:          blocks,
	}
	if form.SubmitLabel != "" {
		v.Submit = &textObject{Type: "plain_text", Text: form.SubmitLabel}
	}
	return v
}

// OpenForm renders form as a modal view and opens it for the interaction
// identified by triggerID.
func (c *Client) OpenForm(ctx context.Context, triggerID string, form forms.FormSpec) error {
	payload := map[string]any{
		"trigger_id": triggerID,
		"view":       BuildView(form),
	}
	if err := c.call(ctx, "views.open", payload, nil); err != nil {
		return fmt.Errorf("opening %s form: %w", form.CallbackID, err)
	}
	return nil
}
