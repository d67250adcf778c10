package models

// Location is the map position of a station, in decimal degrees.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// Validate reports coordinates outside the WGS84 ranges.
func (l *Location) Validate() error {
	if l.Lat < -90 || l.Lat > 90 || l.Lon < -180 || l.Lon > 180 {
		return ErrInvalidLocation
	}
	return nil
}
