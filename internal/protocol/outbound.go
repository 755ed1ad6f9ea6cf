package protocol

import (
	"encoding/json"
	"time"
)

type Handshake struct {
	Type          string         `json:"type"`
	Seq           int            `json:"seq"`
	PlayerUUID    string         `json:"player_uuid"`
	PlayerName    string         `json:"player_name,omitempty"`
	Password      string         `json:"password"`
	ClientVersion string         `json:"client_version,omitempty"`
	Capabilities  map[string]any `json:"capabilities,omitempty"`
}

type Command struct {
	Type       string `json:"type"`
	RequestID  string `json:"request_id"`
	Text       string `json:"text"`
	PlayerUUID string `json:"player_uuid"`
}

type ChatEvent struct {
	Type       string `json:"type"`
	PlayerUUID string `json:"player_uuid"`
	Text       string `json:"text"`
	TS         string `json:"ts"`
}

type ProgressUpdate struct {
	Type     string `json:"type"`
	ActionID string `json:"action_id"`
	Status   string `json:"status"`
	Note     string `json:"note,omitempty"`
}

type TelemetryUpdate struct {
	Type       string         `json:"type"`
	PlayerUUID string         `json:"player_uuid"`
	TS         string         `json:"ts"`
	State      map[string]any `json:"state"`
}

type StateResponse struct {
	Type       string         `json:"type"`
	RequestID  string         `json:"request_id"`
	PlayerUUID string         `json:"player_uuid"`
	State      map[string]any `json:"state"`
}

type SlotPayload struct {
	Slot  int    `json:"slot"`
	ID    string `json:"id"`
	Count int    `json:"count"`
}

type ContainerPayload struct {
	Dim           string        `json:"dim"`
	Pos           [3]int        `json:"pos"`
	ContainerType string        `json:"container_type"`
	Version       int64         `json:"version"`
	Hash          string        `json:"hash"`
	TSISO         string        `json:"ts_iso"`
	Slots         []SlotPayload `json:"slots"`
}

type InventorySnapshot struct {
	Type       string           `json:"type"`
	PlayerUUID string           `json:"player_uuid"`
	Container  ContainerPayload `json:"container"`
}

type ContainerKey struct {
	Dim string `json:"dim"`
	Pos [3]int `json:"pos"`
}

// MovePayload is reserved; diffs currently never carry moves.
type MovePayload struct {
	From  int    `json:"from"`
	To    int    `json:"to"`
	ID    string `json:"id"`
	Count int    `json:"count"`
}

type InventoryDiff struct {
	Type         string        `json:"type"`
	PlayerUUID   string        `json:"player_uuid"`
	ContainerKey ContainerKey  `json:"container_key"`
	FromVersion  int64         `json:"from_version"`
	ToVersion    int64         `json:"to_version"`
	Adds         []SlotPayload `json:"adds"`
	Removes      []SlotPayload `json:"removes"`
	Moves        []MovePayload `json:"moves"`
}

func NewHandshake(playerUUID, playerName, password, clientVersion string, caps map[string]any) Handshake {
	return Handshake{
		Type:          TypeHandshake,
		Seq:           1,
		PlayerUUID:    playerUUID,
		PlayerName:    playerName,
		Password:      password,
		ClientVersion: clientVersion,
		Capabilities:  caps,
	}
}

func NewCommand(requestID, text, playerUUID string) Command {
	return Command{Type: TypeCommand, RequestID: requestID, Text: text, PlayerUUID: playerUUID}
}

func NewChatEvent(playerUUID, text string, at time.Time) ChatEvent {
	return ChatEvent{Type: TypeChatEvent, PlayerUUID: playerUUID, Text: text, TS: Timestamp(at)}
}

func NewProgress(actionID, status, note string) ProgressUpdate {
	return ProgressUpdate{Type: TypeProgressUpdate, ActionID: actionID, Status: status, Note: note}
}

func NewTelemetry(playerUUID string, state map[string]any, at time.Time) TelemetryUpdate {
	return TelemetryUpdate{Type: TypeTelemetryUpdate, PlayerUUID: playerUUID, TS: Timestamp(at), State: state}
}

func NewStateResponse(requestID, playerUUID string, state map[string]any) StateResponse {
	if state == nil {
		state = map[string]any{}
	}
	return StateResponse{Type: TypeStateResponse, RequestID: requestID, PlayerUUID: playerUUID, State: state}
}

func NewInventorySnapshot(playerUUID string, c ContainerPayload) InventorySnapshot {
	if c.Slots == nil {
		c.Slots = []SlotPayload{}
	}
	return InventorySnapshot{Type: TypeInventorySnapshot, PlayerUUID: playerUUID, Container: c}
}

func NewInventoryDiff(playerUUID string, key ContainerKey, from, to int64, adds, removes []SlotPayload) InventoryDiff {
	if adds == nil {
		adds = []SlotPayload{}
	}
	if removes == nil {
		removes = []SlotPayload{}
	}
	return InventoryDiff{
		Type:         TypeInventoryDiff,
		PlayerUUID:   playerUUID,
		ContainerKey: key,
		FromVersion:  from,
		ToVersion:    to,
		Adds:         adds,
		Removes:      removes,
		Moves:        []MovePayload{},
	}
}

// Timestamp formats t the way every outbound ts field is written.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// TypeOf returns the type field of an outbound value, or "" when it has none.
func TypeOf(v any) string {
	switch m := v.(type) {
	case Handshake:
		return m.Type
	case Command:
		return m.Type
	case ChatEvent:
		return m.Type
	case ProgressUpdate:
		return m.Type
	case TelemetryUpdate:
		return m.Type
	case StateResponse:
		return m.Type
	case InventorySnapshot:
		return m.Type
	case InventoryDiff:
		return m.Type
	case json.RawMessage:
		typ, _ := PeekType(m)
		return typ
	case []byte:
		typ, _ := PeekType(m)
		return typ
	}
	return ""
}
