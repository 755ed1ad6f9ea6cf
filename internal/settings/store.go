package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	TelemetryIntervalMs       = "telemetry_interval_ms"
	ChatBridgeEnabled         = "chat_bridge_enabled"
	ChatBridgeRateLimitPerSec = "chat_bridge_rate_limit_per_sec"
	CommandPrefix             = "command_prefix"
	EchoPublicDefault         = "echo_public_default"
	AckOnCommand              = "ack_on_command"
	FeedbackPrefix            = "feedback_prefix"
	MessagePumpMaxPerTick     = "message_pump_max_per_tick"
	MessagePumpQueueCap       = "message_pump_queue_cap"
	InventoryDiffDebounceMs   = "inventory_diff_debounce_ms"
	ChatMaxLength             = "chat_max_length"
	CraftingClickDelayMs      = "crafting_click_delay_ms"
)

var ErrBadValue = errors.New("setting has invalid value")

type kind int

const (
	kindInt kind = iota
	kindBool
	kindString
)

var known = map[string]kind{
	TelemetryIntervalMs:       kindInt,
	ChatBridgeEnabled:         kindBool,
	ChatBridgeRateLimitPerSec: kindInt,
	CommandPrefix:             kindString,
	EchoPublicDefault:         kindBool,
	AckOnCommand:              kindBool,
	FeedbackPrefix:            kindString,
	MessagePumpMaxPerTick:     kindInt,
	MessagePumpQueueCap:       kindInt,
	InventoryDiffDebounceMs:   kindInt,
	ChatMaxLength:             kindInt,
	CraftingClickDelayMs:      kindInt,
}

// Store holds backend-driven runtime options. Every option starts unset and
// stays set once applied; nothing here substitutes a default.
//
// Apply may run on the network goroutine while the tick goroutine reads.
type Store struct {
	mu      sync.RWMutex
	values  map[string]any
	extra   map[string]json.RawMessage
	applied bool
}

func NewStore() *Store {
	return &Store{
		values: map[string]any{},
		extra:  map[string]json.RawMessage{},
	}
}

// ApplyJSON merges a JSON object of options.
func (s *Store) ApplyJSON(raw []byte) error {
	var partial map[string]json.RawMessage
	if err := json.Unmarshal(raw, &partial); err != nil {
		return fmt.Errorf("decode settings: %w", err)
	}
	return s.Apply(partial)
}

// Apply merges present keys and leaves absent ones untouched. A key whose
// value does not decode is skipped; the remaining keys are still applied.
func (s *Store) Apply(partial map[string]json.RawMessage) error {
	if s == nil || len(partial) == 0 {
		return nil
	}
	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	s.mu.Lock()
	defer s.mu.Unlock()

	var errs error
	for _, key := range keys {
		raw := partial[key]
		if isNull(raw) {
			continue
		}
		k, ok := known[key]
		if !ok {
			s.extra[key] = append(json.RawMessage(nil), raw...)
			s.applied = true
			continue
		}
		v, err := decodeValue(k, raw)
		if err != nil {
			errs = errors.Join(errs, fmt.Errorf("%w: %s: %v", ErrBadValue, key, err))
			continue
		}
		s.values[key] = v
		s.applied = true
	}
	return errs
}

// Applied reports whether any settings payload has been merged.
func (s *Store) Applied() bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.applied
}

func (s *Store) Int(name string) (int, bool) {
	v, ok := s.get(name)
	if !ok {
		return 0, false
	}
	n, ok := v.(int)
	return n, ok
}

func (s *Store) Bool(name string) (bool, bool) {
	v, ok := s.get(name)
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

func (s *Store) String(name string) (string, bool) {
	v, ok := s.get(name)
	if !ok {
		return "", false
	}
	str, ok := v.(string)
	return str, ok
}

// Raw returns an option this client does not interpret.
func (s *Store) Raw(name string) (json.RawMessage, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.extra[name]
	return raw, ok
}

// Snapshot returns every present option, including uninterpreted ones.
func (s *Store) Snapshot() map[string]any {
	out := map[string]any{}
	if s == nil {
		return out
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for k, v := range s.values {
		out[k] = v
	}
	for k, raw := range s.extra {
		var v any
		if err := json.Unmarshal(raw, &v); err == nil {
			out[k] = v
		}
	}
	return out
}

func (s *Store) TelemetryInterval() (time.Duration, bool) {
	return s.millis(TelemetryIntervalMs)
}

func (s *Store) ChatBridgeEnabled() (bool, bool) {
	return s.Bool(ChatBridgeEnabled)
}

func (s *Store) ChatBridgeRatePerSec() (int, bool) {
	return s.Int(ChatBridgeRateLimitPerSec)
}

func (s *Store) CommandPrefix() (string, bool) {
	return s.String(CommandPrefix)
}

func (s *Store) EchoPublicDefault() (bool, bool) {
	return s.Bool(EchoPublicDefault)
}

func (s *Store) AckOnCommand() (bool, bool) {
	return s.Bool(AckOnCommand)
}

func (s *Store) FeedbackPrefix() (string, bool) {
	return s.String(FeedbackPrefix)
}

func (s *Store) PumpMaxPerTick() (int, bool) {
	return s.Int(MessagePumpMaxPerTick)
}

func (s *Store) PumpQueueCap() (int, bool) {
	return s.Int(MessagePumpQueueCap)
}

func (s *Store) InventoryDiffDebounce() (time.Duration, bool) {
	return s.millis(InventoryDiffDebounceMs)
}

func (s *Store) ChatMaxLength() (int, bool) {
	return s.Int(ChatMaxLength)
}

func (s *Store) CraftingClickDelay() (time.Duration, bool) {
	return s.millis(CraftingClickDelayMs)
}

func (s *Store) millis(name string) (time.Duration, bool) {
	n, ok := s.Int(name)
	if !ok {
		return 0, false
	}
	return time.Duration(n) * time.Millisecond, true
}

func (s *Store) get(name string) (any, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[name]
	return v, ok
}

func isNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}

func decodeValue(k kind, raw json.RawMessage) (any, error) {
	switch k {
	case kindInt:
		return decodeInt(raw)
	case kindBool:
		return decodeBool(raw)
	default:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return s, nil
	}
}

func decodeInt(raw json.RawMessage) (int, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("not an integer: %s", string(raw))
		}
		return int(f), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(s))
}

func decodeBool(raw json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "1", "true", "yes", "on":
			return true, nil
		case "0", "false", "no", "off":
			return false, nil
		}
		return false, fmt.Errorf("not a boolean: %q", s)
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0, nil
	}
	return false, fmt.Errorf("not a boolean: %s", string(raw))
}
