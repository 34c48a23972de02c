package backend

import (
	"bytes"
	"encoding/json"

	"github.com/joshuapare/boxtrace/transfer"
)

// Transaction is one transfer as recorded by the backend.
type Transaction struct {
	ID            string               `json:"uuid,omitempty"`
	EmployeeID    string               `json:"employeeId,omitempty"`
	FarmerID      Text                 `json:"farmerId,omitempty"`
	Source        Text                 `json:"source"`
	Dest          Text                 `json:"dest"`
	LastDump      Text                 `json:"last_dump,omitempty"`
	FinalShipment Text                 `json:"final_shipment,omitempty"`
	TimeStamp     string               `json:"time_stamp,omitempty"`
	GPS           *transfer.Coordinate `json:"gps,omitempty"`
}

// Text accepts a JSON string, number or boolean. Query parameters reach the
// backend as strings but it may hand them back typed.
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*t = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = Text(s)
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*t = Text(b)
	return nil
}
