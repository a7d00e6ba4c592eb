package request

import (
	"time"

	"github.com/bloodbank/bloodbank/internal/bloodgroup"
)

type Request struct {
	ID            string           `json:"id"`
	PatientName   string           `json:"patientName"`
	BloodGroup    bloodgroup.Group `json:"bloodGroup"`
	UnitsRequired int              `json:"unitsRequired"`
	HospitalName  string           `json:"hospitalName"`
	ContactNumber string           `json:"contactNumber"`
	RequestDate   time.Time        `json:"requestDate"`
	RequiredBy    time.Time        `json:"requiredBy"`
	Priority      Priority         `json:"priority"`
	Status        Status           `json:"status"`
	Remarks       string           `json:"remarks,omitempty"`
}

// DateRange filters requests by their creation date, inclusive on both ends.
type DateRange struct {
	Start time.Time
	End   time.Time
}
