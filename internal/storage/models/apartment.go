package models

// Apartment mirrors a rental unit known to the PMS. Rows are upserted from
// reservation payloads on every refresh; PlannedMinutes is an operator
// override for the default cleaning duration and survives refreshes.
type Apartment struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	PlannedMinutes *int   `json:"planned_minutes,omitempty"`
}
