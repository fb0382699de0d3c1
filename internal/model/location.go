package model

import (
	"database/sql/driver"
	"encoding/json"
	"strings"
)

// LocationInfo addresses a land unit by the cadastral hierarchy:
// province (il), district (ilce), neighborhood (mahalle), block (ada), parcel (parsel).
type LocationInfo struct {
	Il      string `json:"il"`
	Ilce    string `json:"ilce"`
	Mahalle string `json:"mahalle"`
	Ada     string `json:"ada"`
	Parsel  string `json:"parsel"`
}

// Address renders the free-text form handed to the geocoder.
func (l LocationInfo) Address() string {
	return strings.TrimSpace(l.Mahalle) + " Mahallesi, " +
		strings.TrimSpace(l.Ilce) + ", " +
		strings.TrimSpace(l.Il) + ", Türkiye"
}

func (l LocationInfo) Normalize() LocationInfo {
	return LocationInfo{
		Il:      strings.TrimSpace(l.Il),
		Ilce:    strings.TrimSpace(l.Ilce),
		Mahalle: strings.TrimSpace(l.Mahalle),
		Ada:     strings.TrimSpace(l.Ada),
		Parsel:  strings.TrimSpace(l.Parsel),
	}
}

func (l LocationInfo) Value() (driver.Value, error) {
	return json.Marshal(l)
}

func (l *LocationInfo) Scan(value any) error {
	return scanJSON(value, l)
}
