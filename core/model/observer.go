package model

import "fmt"

// ObserverSnapshot is the serialized state an observer reports about itself.
// It plays the role of the observer's capability card.
type ObserverSnapshot struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	Busy     bool     `json:"busy"`
	Speed    float64  `json:"speed"`   // km/h
	Heading  float64  `json:"heading"` // degrees in [0,360)
	// Coordinates is set by observers that only know their geographic
	// location; the controller maps it onto the grid.
	Coordinates *LatLon `json:"coordinates,omitempty"`
}

// Validate checks that the snapshot is usable for placement.
func (s ObserverSnapshot) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("observer id is required")
	}
	if s.Speed < 0 {
		return fmt.Errorf("observer %s: negative speed", s.ID)
	}
	return nil
}
