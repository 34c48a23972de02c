package transfer

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrInvalidBoxID indicates text that is not a non-negative decimal integer.
	ErrInvalidBoxID = errors.New("transfer: invalid box id")
	// ErrNotReady indicates a record lacks the fields required for submission.
	ErrNotReady = errors.New("transfer: record not ready for submission")
	// ErrInconsistent indicates final_shipment is set without last_dump.
	ErrInconsistent = errors.New("transfer: final shipment without last dump")
)

// TimeLayout is the wire format of Record.TimeStamp: ISO-8601 in UTC with
// millisecond precision.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// BoxID identifies a box by the number written on its tag. It is kept in
// canonical decimal form (no sign, no leading zeros) and has no upper bound.
type BoxID string

// ParseBoxID validates s as a non-negative decimal integer and returns its
// canonical form.
func ParseBoxID(s string) (BoxID, error) {
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidBoxID)
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", fmt.Errorf("%w: %q", ErrInvalidBoxID, s)
		}
	}
	s = strings.TrimLeft(s, "0")
	if s == "" {
		s = "0"
	}
	return BoxID(s), nil
}

func (b BoxID) String() string { return string(b) }

// Coordinate is a WGS84 position.
type Coordinate struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Record is one box-to-box transfer. Optional fields are nil until the
// workflow reaches the step that fills them.
type Record struct {
	EmployeeID     string      `json:"employeeId"`
	FarmerID       *string     `json:"farmerId"`
	Source         BoxID       `json:"source"`
	Dest           BoxID       `json:"dest,omitempty"`
	LastDump       *bool       `json:"last_dump,omitempty"`
	FinalShipment  *bool       `json:"final_shipment,omitempty"`
	Location       *Coordinate `json:"location,omitempty"`
	TimeStamp      *time.Time  `json:"time_stamp,omitempty"`
	SourceWeightKg float64     `json:"source_weight_kg"`
}

// Key identifies a record for retry purposes. No server id exists before a
// record is accepted, so source, dest and capture time stand in for one.
type Key struct {
	Source    BoxID
	Dest      BoxID
	TimeStamp string
}

// Key returns the retry identity of r.
func (r Record) Key() Key {
	k := Key{Source: r.Source, Dest: r.Dest}
	if r.TimeStamp != nil {
		k.TimeStamp = r.TimeStamp.UTC().Format(TimeLayout)
	}
	return k
}

func (k Key) String() string {
	return fmt.Sprintf("%s->%s@%s", k.Source, k.Dest, k.TimeStamp)
}

// Validate checks the field-order invariants that hold at every stage.
func (r Record) Validate() error {
	if r.Dest != "" && r.Source == "" {
		return fmt.Errorf("transfer: dest %s without source", r.Dest)
	}
	if r.FinalShipment != nil && *r.FinalShipment && (r.LastDump == nil || !*r.LastDump) {
		return ErrInconsistent
	}
	if (r.Location != nil || r.TimeStamp != nil) && r.LastDump == nil {
		return fmt.Errorf("transfer: location or time stamp before last dump answer")
	}
	return nil
}

// Ready reports whether r can be submitted: dest and time stamp present and
// the invariants hold.
func (r Record) Ready() error {
	if r.Source == "" || r.Dest == "" || r.TimeStamp == nil {
		return ErrNotReady
	}
	return r.Validate()
}

// Clone returns a deep copy of r.
func (r Record) Clone() Record {
	c := r
	if r.FarmerID != nil {
		v := *r.FarmerID
		c.FarmerID = &v
	}
	if r.LastDump != nil {
		v := *r.LastDump
		c.LastDump = &v
	}
	if r.FinalShipment != nil {
		v := *r.FinalShipment
		c.FinalShipment = &v
	}
	if r.Location != nil {
		v := *r.Location
		c.Location = &v
	}
	if r.TimeStamp != nil {
		v := *r.TimeStamp
		c.TimeStamp = &v
	}
	return c
}
