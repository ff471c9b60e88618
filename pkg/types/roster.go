package types

// Player is one entry of the campaign roster.
type Player struct {
	ID   string `json:"id" yaml:"id" mapstructure:"id"`
	Name string `json:"name" yaml:"name" mapstructure:"name"`
}

// Roster supplies player character names.
type Roster interface {
	PlayerName(playerID string) (string, bool)
}

// StaticRoster is a Roster backed by a fixed list of players.
type StaticRoster []Player

// PlayerName implements Roster.
func (s StaticRoster) PlayerName(playerID string) (string, bool) {
	for _, p := range s {
		if p.ID == playerID {
			return p.Name, true
		}
	}
	return "", false
}
