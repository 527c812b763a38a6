// Package catalog builds the immutable, time-sorted set of input actions a
// level asks the player to hit.
package catalog

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"math"
	"sort"

	"github.com/okian/playalong/internal/domain/model"
)

// beatEpsilon is the tolerance used when matching the bonus trigger position.
const beatEpsilon = 1e-6

// Entity is a level entity that carries an input action descriptor.
type Entity interface {
	InputAction() model.InputAction
}

// Bonus designates the action whose edge awards the bonus objective.
type Bonus struct {
	Action  model.InputAction
	OnStart bool // judged on the start edge rather than the end edge
}

// Option applies a configuration option to a Catalog.
type Option func(*Catalog)

// WithBonusBeat marks the beat of the bonus trigger.
func WithBonusBeat(beat float64) Option {
	return func(c *Catalog) {
		c.bonusBeat = beat
		c.hasBonusBeat = true
	}
}

// Catalog is the sorted action list of one level.
type Catalog struct {
	actions      []model.InputAction
	expected     int
	needsTouch   bool
	bonusBeat    float64
	hasBonusBeat bool
	bonus        *Bonus
}

// New builds a catalog from level entities. Action IDs are assigned from the
// entity order.
func New(entities []Entity, opts ...Option) *Catalog {
	actions := make([]model.InputAction, len(entities))
	for i, e := range entities {
		actions[i] = e.InputAction()
	}
	return FromActions(actions, opts...)
}

// FromActions builds a catalog directly from action descriptors. Action IDs
// are assigned from the slice order.
func FromActions(actions []model.InputAction, opts ...Option) *Catalog {
	c := &Catalog{actions: make([]model.InputAction, len(actions))}
	for _, opt := range opts {
		opt(c)
	}

	for i, a := range actions {
		a.ID = i
		c.actions[i] = a
		c.expected += a.ExpectedResults()
		if a.Input.IsTouchScreen() {
			c.needsTouch = true
		}
	}
	sort.SliceStable(c.actions, func(i, j int) bool { return c.actions[i].Less(c.actions[j]) })

	if c.hasBonusBeat {
		c.bonus = c.findBonus()
	}
	return c
}

func (c *Catalog) findBonus() *Bonus {
	for i := len(c.actions) - 1; i >= 0; i-- {
		a := c.actions[i]
		if !a.IsInstantaneous() && beatsEqual(a.EndBeat(), c.bonusBeat) {
			return &Bonus{Action: a, OnStart: false}
		}
	}
	for i := len(c.actions) - 1; i >= 0; i-- {
		a := c.actions[i]
		if beatsEqual(a.Beat, c.bonusBeat) {
			// An instantaneous action only has a start edge.
			return &Bonus{Action: a, OnStart: a.IsInstantaneous() || !beatsEqual(a.EndBeat(), c.bonusBeat)}
		}
	}
	return nil
}

func beatsEqual(a, b float64) bool {
	return math.Abs(a-b) <= beatEpsilon
}

// Actions returns the sorted actions. The returned slice must not be modified.
func (c *Catalog) Actions() []model.InputAction {
	return c.actions
}

// Len returns the number of actions.
func (c *Catalog) Len() int {
	return len(c.actions)
}

// ExpectedResults is the scoring denominator: one result per instantaneous
// action, two otherwise.
func (c *Catalog) ExpectedResults() int {
	return c.expected
}

// RequiresTouchInput reports whether any action needs a touchscreen.
func (c *Catalog) RequiresTouchInput() bool {
	return c.needsTouch
}

// GroupByBeat maps each start beat to its actions in catalog order.
func (c *Catalog) GroupByBeat() map[float64][]model.InputAction {
	groups := make(map[float64][]model.InputAction)
	for _, a := range c.actions {
		groups[a.Beat] = append(groups[a.Beat], a)
	}
	return groups
}

// Beats returns the distinct start beats in ascending order.
func (c *Catalog) Beats() []float64 {
	beats := make([]float64, 0, len(c.actions))
	for i, a := range c.actions {
		if i > 0 && c.actions[i-1].Beat == a.Beat {
			continue
		}
		beats = append(beats, a.Beat)
	}
	return beats
}

// Bonus returns the bonus objective, if the trigger coincides with an action.
func (c *Catalog) Bonus() (Bonus, bool) {
	if c.bonus == nil {
		return Bonus{}, false
	}
	return *c.bonus, true
}

// Fingerprint is a stable digest of the sorted actions, used to key stored
// sessions by chart.
func (c *Catalog) Fingerprint() string {
	h := sha256.New()
	buf := make([]byte, 8)
	for _, a := range c.actions {
		binary.LittleEndian.PutUint64(buf, math.Float64bits(a.Beat))
		h.Write(buf)
		binary.LittleEndian.PutUint64(buf, math.Float64bits(a.Duration))
		h.Write(buf)
		binary.LittleEndian.PutUint64(buf, uint64(a.Method))
		h.Write(buf)
		h.Write([]byte(a.Input))
		h.Write([]byte{0})
	}
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}
