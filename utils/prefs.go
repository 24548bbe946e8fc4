package utils

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// PrefEntry is a single stored preference. A plain entry carries Value
// verbatim; a time-based entry carries Start and Duration and decays lazily on
// read. No entry is ever evicted: a fully decayed countdown reads as 0 until
// something overwrites it.
type PrefEntry struct {
	Value     interface{} `json:"value"`
	TimeBased bool        `json:"time_based,omitempty"`
	Start     int64       `json:"start,omitempty"`
	Duration  int64       `json:"duration,omitempty"`
}

// Remaining returns the whole seconds left on a countdown anchored at start,
// floored at zero.
func Remaining(now time.Time, start, duration int64) int64 {
	rem := duration - (now.Unix() - start)
	if rem < 0 {
		return 0
	}
	return rem
}

// PrefStore is the bot-wide preference map. Every durable value (balances,
// cooldowns, override flags) lives here so that persistence and decay
// semantics stay in one place. All access goes through the store mutex;
// compound read-modify-write sequences use Update so overlapping commands
// cannot lose writes.
type PrefStore struct {
	mu      sync.Mutex
	entries map[string]PrefEntry
	now     func() time.Time
}

// Prefs is the global preference store, loaded in main at startup.
var Prefs = NewPrefStore()

// NewPrefStore creates an empty preference store.
func NewPrefStore() *PrefStore {
	return &PrefStore{
		entries: make(map[string]PrefEntry),
		now:     time.Now,
	}
}

// Get returns the stored value for key, or def if the key is absent.
// Time-based entries yield their remaining seconds as an int64.
func (ps *PrefStore) Get(key string, def interface{}) interface{} {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.getLocked(key, def)
}

// Set stores value under key, overwriting any previous entry. With timeBased
// set, value is interpreted as a duration in seconds and the countdown is
// anchored at the current instant.
func (ps *PrefStore) Set(key string, value interface{}, timeBased bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	ps.setLocked(key, value, timeBased)
}

// GetInt is Get for integer-valued keys. Values that went through a JSON
// round-trip come back as float64, so all numeric shapes are accepted.
func (ps *PrefStore) GetInt(key string, def int64) int64 {
	return ToInt64(ps.Get(key, def))
}

// GetBool is Get for boolean-valued keys (override flags).
func (ps *PrefStore) GetBool(key string, def bool) bool {
	if b, ok := ps.Get(key, def).(bool); ok {
		return b
	}
	return def
}

// AllKeys returns every stored key. Used at shutdown to decide whether a
// persistence round-trip is worthwhile.
func (ps *PrefStore) AllKeys() []string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	keys := make([]string, 0, len(ps.entries))
	for k := range ps.entries {
		keys = append(keys, k)
	}
	return keys
}

// PrefTx provides locked access to the store inside an Update call.
type PrefTx struct {
	ps *PrefStore
}

// Get reads a value inside the transaction.
func (tx *PrefTx) Get(key string, def interface{}) interface{} {
	return tx.ps.getLocked(key, def)
}

// Set writes a value inside the transaction.
func (tx *PrefTx) Set(key string, value interface{}, timeBased bool) {
	tx.ps.setLocked(key, value, timeBased)
}

// Update runs fn with exclusive access to the store, serializing compound
// read-modify-write sequences such as a balance debit paired with a cooldown
// adjustment. fn must not call back into the store's public methods.
func (ps *PrefStore) Update(fn func(tx *PrefTx)) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	fn(&PrefTx{ps: ps})
}

// Save serializes the entire mapping to path. Load expects exactly this
// format back.
func (ps *PrefStore) Save(path string) error {
	ps.mu.Lock()
	data, err := json.MarshalIndent(ps.entries, "", "  ")
	ps.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal prefs: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write prefs file: %w", err)
	}
	return nil
}

// Load replaces the in-memory mapping wholesale with the snapshot at path.
func (ps *PrefStore) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	entries := make(map[string]PrefEntry)
	if err := json.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("failed to parse prefs file: %w", err)
	}
	ps.mu.Lock()
	ps.entries = entries
	ps.mu.Unlock()
	return nil
}

func (ps *PrefStore) getLocked(key string, def interface{}) interface{} {
	entry, ok := ps.entries[key]
	if !ok {
		return def
	}
	if entry.TimeBased {
		return Remaining(ps.now(), entry.Start, entry.Duration)
	}
	return entry.Value
}

func (ps *PrefStore) setLocked(key string, value interface{}, timeBased bool) {
	if timeBased {
		ps.entries[key] = PrefEntry{
			TimeBased: true,
			Start:     ps.now().Unix(),
			Duration:  ToInt64(value),
		}
		return
	}
	ps.entries[key] = PrefEntry{Value: value}
}

// ToInt64 normalizes the numeric shapes a preference value can take.
func ToInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}
