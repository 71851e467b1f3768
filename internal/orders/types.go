package orders

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no order has the requested id.
	ErrNotFound = errors.New("order not found")
	// ErrInvalid wraps every validation failure.
	ErrInvalid = errors.New("invalid order")
)

// Measurements are the customer's body measurements, in whole units.
type Measurements struct {
	Height           int `json:"height"`
	Weight           int `json:"weight"`
	Chest            int `json:"chest"`
	Arms             int `json:"arms"`
	Bust             int `json:"bust"`
	Waist            int `json:"waist"`
	Hips             int `json:"hips"`
	Inseam           int `json:"inseam"`
	Outseam          int `json:"outseam"`
	ArmCircumference int `json:"arm_circumference"`
	LegCircumference int `json:"leg_circumference"`
}

// Order is a made-to-measure order with its shipping address.
type Order struct {
	ID             int64  `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Address        string `json:"address"`
	AddressLineTwo string `json:"address_line_two"`
	City           string `json:"city"`
	State          string `json:"state"`
	Zip            string `json:"zip"`
	Measurements
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListFilter pages through orders, newest first.
type ListFilter struct {
	Limit  int
	Offset int
}

// columns lists the writable columns in the order fields returns them.
var columns = []string{
	"first_name", "last_name", "address", "address_line_two", "city", "state", "zip",
	"height", "weight", "chest", "arms", "bust", "waist", "hips", "inseam", "outseam",
	"arm_circumference", "leg_circumference",
}

// fields returns pointers to the writable fields, matching columns.
func (o *Order) fields() []any {
	m := &o.Measurements
	return []any{
		&o.FirstName, &o.LastName, &o.Address, &o.AddressLineTwo, &o.City, &o.State, &o.Zip,
		&m.Height, &m.Weight, &m.Chest, &m.Arms, &m.Bust, &m.Waist, &m.Hips, &m.Inseam, &m.Outseam,
		&m.ArmCircumference, &m.LegCircumference,
	}
}

// Validate checks the order before it is stored. Names are required and no
// measurement may be negative.
func (o *Order) Validate() error {
	var problems []string
	if strings.TrimSpace(o.FirstName) == "" {
		problems = append(problems, "First name is required")
	}
	if strings.TrimSpace(o.LastName) == "" {
		problems = append(problems, "Last name is required")
	}
	for i, f := range o.fields() {
		if n, ok := f.(*int); ok && *n < 0 {
			problems = append(problems, fmt.Sprintf("%s must not be negative", label(columns[i])))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, ". "))
	}
	return nil
}

func label(column string) string {
	s := strings.ReplaceAll(column, "_", " ")
	return strings.ToUpper(s[:1]) + s[1:]
}
