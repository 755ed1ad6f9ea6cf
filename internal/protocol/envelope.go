package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const (
	TypeHandshake         = "handshake"
	TypeCommand           = "command"
	TypeChatSend          = "chat_send"
	TypeChatEvent         = "chat_event"
	TypeActionRequest     = "action_request"
	TypeProgressUpdate    = "progress_update"
	TypeTelemetryUpdate   = "telemetry_update"
	TypeStateRequest      = "state_request"
	TypeStateResponse     = "state_response"
	TypeInventorySnapshot = "inventory_snapshot"
	TypeInventoryDiff     = "inventory_diff"
	TypePlan              = "plan"
	TypeSettingsUpdate    = "settings_update"
	TypeSettingsBroadcast = "settings_broadcast"
	TypeCancel            = "cancel"
)

const (
	ModeChatBridge = "chat_bridge"
	ModeModNative  = "mod_native"
)

const (
	StatusOK        = "ok"
	StatusFail      = "fail"
	StatusSkipped   = "skipped"
	StatusCancelled = "cancelled"
)

var (
	ErrMissingType = errors.New("envelope missing type")
	ErrMalformed   = errors.New("malformed envelope")
)

// Envelope is one decoded inbound message. The concrete type is selected by
// the wire "type" field.
type Envelope interface {
	EnvelopeType() string
}

type ChatSend struct {
	RequestID string
	Text      string
}

type ActionRequest struct {
	ActionID string
	Mode     string
	Op       string
	ChatText string
	Recipe   string
	Count    int
	Context  string
	Ensure   string
	Pos      []int
	Raw      json.RawMessage
}

type Plan struct {
	RequestID string
	PlanID    string
	// StepCount is -1 when the plan carries no steps array.
	StepCount int
}

type StateRequest struct {
	RequestID string
	Selector  []string
}

type SettingsUpdate struct {
	Broadcast bool
	Settings  map[string]json.RawMessage
}

type Cancel struct {
	ActionID  string
	RequestID string
}

// Target returns the id whose pending work should be cancelled.
func (c Cancel) Target() string {
	if c.ActionID != "" {
		return c.ActionID
	}
	return c.RequestID
}

type Unknown struct {
	Type string
}

func (ChatSend) EnvelopeType() string      { return TypeChatSend }
func (ActionRequest) EnvelopeType() string { return TypeActionRequest }
func (Plan) EnvelopeType() string          { return TypePlan }
func (StateRequest) EnvelopeType() string  { return TypeStateRequest }
func (s SettingsUpdate) EnvelopeType() string {
	if s.Broadcast {
		return TypeSettingsBroadcast
	}
	return TypeSettingsUpdate
}
func (Cancel) EnvelopeType() string    { return TypeCancel }
func (u Unknown) EnvelopeType() string { return u.Type }

// PeekType reads only the discriminant.
func PeekType(raw []byte) (string, error) {
	var head struct {
		Type json.RawMessage `json:"type"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if len(head.Type) == 0 {
		return "", ErrMissingType
	}
	var typ string
	if err := json.Unmarshal(head.Type, &typ); err != nil {
		return "", ErrMissingType
	}
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return "", ErrMissingType
	}
	return typ, nil
}

// Decode turns one raw frame into a typed envelope. Optional fields that are
// missing or of the wrong JSON type decode to their zero value.
func Decode(raw []byte) (Envelope, error) {
	typ, err := PeekType(raw)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch typ {
	case TypeChatSend:
		return ChatSend{
			RequestID: str(fields, "request_id"),
			Text:      str(fields, "text"),
		}, nil
	case TypeActionRequest:
		count := integer(fields, "count", 1)
		return ActionRequest{
			ActionID: str(fields, "action_id"),
			Mode:     str(fields, "mode"),
			Op:       str(fields, "op"),
			ChatText: str(fields, "chat_text"),
			Recipe:   str(fields, "recipe"),
			Count:    count,
			Context:  str(fields, "context"),
			Ensure:   str(fields, "ensure"),
			Pos:      ints(fields, "pos"),
			Raw:      append(json.RawMessage(nil), raw...),
		}, nil
	case TypePlan:
		steps := -1
		var arr []json.RawMessage
		if v, ok := fields["steps"]; ok && json.Unmarshal(v, &arr) == nil && arr != nil {
			steps = len(arr)
		}
		return Plan{
			RequestID: str(fields, "request_id"),
			PlanID:    str(fields, "plan_id"),
			StepCount: steps,
		}, nil
	case TypeStateRequest:
		var selector []string
		if v, ok := fields["selector"]; ok {
			var keys []json.RawMessage
			if json.Unmarshal(v, &keys) == nil {
				for _, k := range keys {
					var s string
					if json.Unmarshal(k, &s) == nil && s != "" {
						selector = append(selector, s)
					}
				}
			}
		}
		return StateRequest{RequestID: str(fields, "request_id"), Selector: selector}, nil
	case TypeSettingsUpdate, TypeSettingsBroadcast:
		return SettingsUpdate{
			Broadcast: typ == TypeSettingsBroadcast,
			Settings:  settingsPayload(fields),
		}, nil
	case TypeCancel:
		return Cancel{
			ActionID:  str(fields, "action_id"),
			RequestID: str(fields, "request_id"),
		}, nil
	default:
		return Unknown{Type: typ}, nil
	}
}

// IsSettings reports whether the type is applied out of band.
func IsSettings(typ string) bool {
	return typ == TypeSettingsUpdate || typ == TypeSettingsBroadcast
}

// settingsPayload accepts either {"settings": {...}} or the options inline
// next to the type field.
func settingsPayload(fields map[string]json.RawMessage) map[string]json.RawMessage {
	if nested, ok := fields["settings"]; ok {
		var out map[string]json.RawMessage
		if json.Unmarshal(nested, &out) == nil && out != nil {
			return out
		}
	}
	out := make(map[string]json.RawMessage, len(fields))
	for k, v := range fields {
		switch k {
		case "type", "request_id", "settings":
			continue
		}
		out[k] = v
	}
	return out
}

func str(fields map[string]json.RawMessage, key string) string {
	v, ok := fields[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return ""
	}
	return s
}

func integer(fields map[string]json.RawMessage, key string, def int) int {
	v, ok := fields[key]
	if !ok {
		return def
	}
	var f float64
	if err := json.Unmarshal(v, &f); err != nil {
		return def
	}
	return int(f)
}

func ints(fields map[string]json.RawMessage, key string) []int {
	v, ok := fields[key]
	if !ok {
		return nil
	}
	var out []int
	if err := json.Unmarshal(v, &out); err != nil {
		return nil
	}
	return out
}
