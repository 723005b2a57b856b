package enum

type ReservationStatus string

const (
	ReservationStatusActive    ReservationStatus = "active"
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusReleased  ReservationStatus = "released"
	ReservationStatusExpired   ReservationStatus = "expired"
)

// IsTerminal reports whether the status allows no further transitions.
func (s ReservationStatus) IsTerminal() bool {
	return s == ReservationStatusConfirmed || s == ReservationStatusReleased || s == ReservationStatusExpired
}
