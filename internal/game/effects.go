package game

import (
	"errors"
	"time"
)

const (
	TimeBonusSeconds   = 30
	MultiplierFactor   = 2
	MultiplierDuration = 60 * time.Second
)

var (
	ErrEffectActive      = errors.New("effect already active")
	ErrEffectUnavailable = errors.New("item has no gameplay effect")
)

// Effects is the consumable state attached to one session.
type Effects struct {
	MultiplierExpiresAt *time.Time
}

func (e Effects) MultiplierActive(now time.Time) bool {
	return e.MultiplierExpiresAt != nil && now.Before(*e.MultiplierExpiresAt)
}

// Activation describes what using one unit of an item does to a session.
type Activation struct {
	ItemID              string     `json:"itemId"`
	AddedSeconds        int        `json:"addedSeconds,omitempty"`
	MultiplierExpiresAt *time.Time `json:"multiplierExpiresAt,omitempty"`
}

// Activate resolves an item against the session's current effects. It does
// not consume anything; callers mark the unit used only on success.
func Activate(itemID string, effects Effects, now time.Time) (Activation, error) {
	switch itemID {
	case ItemTimeBonus:
		return Activation{ItemID: itemID, AddedSeconds: TimeBonusSeconds}, nil
	case ItemScoreMultiplier:
		if effects.MultiplierActive(now) {
			return Activation{}, ErrEffectActive
		}
		expiresAt := now.Add(MultiplierDuration)
		return Activation{ItemID: itemID, MultiplierExpiresAt: &expiresAt}, nil
	default:
		return Activation{}, ErrEffectUnavailable
	}
}
