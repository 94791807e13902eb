package delivery

import (
	"errors"
	"time"

	"github.com/mattjoyce/hookguard/internal/signature"
)

type Status string

const (
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

// StatusFor maps a validation result onto a delivery status.
func StatusFor(res signature.Result) Status {
	if res.Valid {
		return StatusAccepted
	}
	return StatusRejected
}

// Delivery is one verification attempt as recorded in the delivery log.
type Delivery struct {
	ID             string
	Endpoint       string
	URL            string
	PayloadKind    string
	Status         Status
	Reason         string
	MatchedVariant string
	Body           []byte // only kept for accepted deliveries
	BodySize       int
	BodyDigest     string // BLAKE3 hex; correlation only, never used for auth
	RemoteAddr     string
	RequestID      string
	CreatedAt      time.Time
}

type RecordRequest struct {
	Endpoint   string
	URL        string
	Result     signature.Result
	Body       []byte
	RemoteAddr string
	RequestID  string
}

// Filter narrows List results. Zero values mean "any".
type Filter struct {
	Status   Status
	Endpoint string
	Limit    int
}

// StatRow is a count of deliveries grouped by status and reason.
type StatRow struct {
	Status Status
	Reason string
	Count  int
}

var ErrDeliveryNotFound = errors.New("delivery not found")

const DefaultListLimit = 50
