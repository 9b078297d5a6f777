package domain

// Direction says which participant produced a candidate. The caller
// publishes to FromCaller and consumes FromReceiver; the receiver does the
// mirror image.
type Direction string

const (
	FromCaller   Direction = "from_caller"
	FromReceiver Direction = "from_receiver"
)

func (d Direction) Valid() bool {
	return d == FromCaller || d == FromReceiver
}

func (d Direction) Opposite() Direction {
	if d == FromCaller {
		return FromReceiver
	}
	return FromCaller
}

// Candidate is a single network-reachability hint for the transport layer.
// Candidates are append-only: once published they are never edited, merged
// or deduplicated.
type Candidate struct {
	Candidate     string `json:"candidate"`
	SDPMid        string `json:"sdp_mid,omitempty"`
	SDPMLineIndex uint16 `json:"sdp_mline_index,omitempty"`
}

func (c Candidate) IsZero() bool {
	return c.Candidate == ""
}
