package domain

import "time"

// CardState is the Kaiten lifecycle state of a card
type CardState int

const (
	CardStateQueued     CardState = 1
	CardStateInProgress CardState = 2
	CardStateDone       CardState = 3
)

// String returns the display label for the state
func (s CardState) String() string {
	switch s {
	case CardStateQueued:
		return "Queued"
	case CardStateInProgress:
		return "In Progress"
	case CardStateDone:
		return "Done"
	default:
		return "Unknown"
	}
}

// CardCondition is the Kaiten archive flag: 1 live, 2 archived
type CardCondition int

const (
	CardConditionLive     CardCondition = 1
	CardConditionArchived CardCondition = 2
)

// ConditionFor maps the archived flag onto the Kaiten condition value
func ConditionFor(archived bool) CardCondition {
	if archived {
		return CardConditionArchived
	}
	return CardConditionLive
}

type Space struct {
	ID      int64     `json:"id"`
	Title   string    `json:"title"`
	Created time.Time `json:"created"`
	Updated time.Time `json:"updated"`
}

type Board struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Created     time.Time `json:"created"`
	Updated     time.Time `json:"updated"`
}

// Tag is a card label as returned by Kaiten
type Tag struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color int    `json:"color,omitempty"`
}

type Card struct {
	ID           int64         `json:"id"`
	Title        string        `json:"title"`
	BoardID      int64         `json:"board_id"`
	ColumnID     int64         `json:"column_id"`
	LaneID       int64         `json:"lane_id,omitempty"`
	State        CardState     `json:"state"`
	Condition    CardCondition `json:"condition,omitempty"`
	Archived     bool          `json:"archived"`
	TimeSpentSum int           `json:"time_spent_sum"` // minutes reported by Kaiten
	Tags         []Tag         `json:"tags"`
	Description  string        `json:"description,omitempty"` // only on GET /cards/{id}
	Created      time.Time     `json:"created"`
	Updated      time.Time     `json:"updated"`
}

// IsArchived reports the archive state from either the flag or the condition
func (c *Card) IsArchived() bool {
	return c.Archived || c.Condition == CardConditionArchived
}

// Eligible returns true if the card may be billed: done and not archived
func (c *Card) Eligible() bool {
	return c.State == CardStateDone && !c.IsArchived()
}

// TagNames returns the tag names in order
func (c *Card) TagNames() []string {
	names := make([]string, 0, len(c.Tags))
	for _, t := range c.Tags {
		names = append(names, t.Name)
	}
	return names
}
