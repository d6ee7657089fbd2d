package domain

import "fmt"

type ModuleNode struct {
	ID       string       `json:"id,omitempty"`
	Name     string       `json:"name,omitempty"`
	FullName string       `json:"full_name,omitempty"`
	Status   string       `json:"status,omitempty"`
	Text     string       `json:"text,omitempty"`
	Children []ModuleNode `json:"modules,omitempty"`
}

// Label falls back through the naming fields the feed may omit.
func (m ModuleNode) Label() string {
	switch {
	case m.FullName != "":
		return m.FullName
	case m.Name != "":
		return m.Name
	case m.ID != "":
		return m.ID
	default:
		return "module"
	}
}

type UnitStatus struct {
	Type       string       `json:"type,omitempty"`
	OnlineType string       `json:"online_type,omitempty"`
	Modules    []ModuleNode `json:"modules,omitempty"`
	RecordedAt int64        `json:"recorded_at,omitempty"`
}

type UnitSnapshot struct {
	ID           int64        `json:"id"`
	TID          string       `json:"tid,omitempty"`
	City         string       `json:"city,omitempty"`
	Address      string       `json:"address,omitempty"`
	LocationName string       `json:"location_name,omitempty"`
	SN           string       `json:"sn,omitempty"`
	Modules      []ModuleNode `json:"modules,omitempty"`
	Status       UnitStatus   `json:"status"`
}

func (u UnitSnapshot) DisplayName() string {
	switch {
	case u.LocationName != "":
		return u.LocationName
	case u.Address != "":
		return u.Address
	default:
		return fmt.Sprintf("unit %d", u.ID)
	}
}
