package dispatch

import "slices"

// DeliveryStatus is the per-recipient result of a delivery attempt.
type DeliveryStatus string

const (
	// StatusDelivered means the transport accepted the message.
	StatusDelivered DeliveryStatus = "delivered"
	// StatusError means the transport reported failure.
	StatusError DeliveryStatus = "error"
)

// DeliveryResult is the outcome for one resolved recipient.
type DeliveryResult struct {
	// ID is the recipient's user ID.
	ID int
	// Status is delivered or error.
	Status DeliveryStatus
}

// Outcome is the result of one Dispatch call: either a success carrying
// ordered delivery results, or a failure carrying an error kind. Never both.
//
// The zero Outcome is a success with no results.
type Outcome struct {
	failed  bool
	kind    ErrorKind
	results []DeliveryResult
}

// Success returns a successful Outcome holding results.
// A nil slice is stored as an empty one.
func Success(results []DeliveryResult) Outcome {
	if results == nil {
		results = []DeliveryResult{}
	}
	return Outcome{results: results}
}

// Failure returns a failed Outcome of the given kind.
func Failure(kind ErrorKind) Outcome {
	return Outcome{failed: true, kind: kind}
}

// IsSuccess reports whether the dispatch succeeded.
func (o Outcome) IsSuccess() bool { return !o.failed }

// IsFailure reports whether the dispatch was rejected.
func (o Outcome) IsFailure() bool { return o.failed }

// Kind returns the failure kind, or "" for a success.
func (o Outcome) Kind() ErrorKind { return o.kind }

// Results returns the delivery results in directory order.
// It is nil for a failure and never nil for a success.
func (o Outcome) Results() []DeliveryResult {
	if o.failed {
		return nil
	}
	if o.results == nil {
		return []DeliveryResult{}
	}
	return o.results
}

// Err returns a *DispatchError for a failure and nil for a success.
func (o Outcome) Err() error {
	if !o.failed {
		return nil
	}
	return &DispatchError{Kind: o.kind}
}

// Equal reports whether two outcomes hold the same variant and payload.
func (o Outcome) Equal(other Outcome) bool {
	if o.failed != other.failed {
		return false
	}
	if o.failed {
		return o.kind == other.kind
	}
	return slices.Equal(o.Results(), other.Results())
}

// clone returns an Outcome that shares no memory with o.
func (o Outcome) clone() Outcome {
	if o.failed {
		return o
	}
	return Success(slices.Clone(o.Results()))
}

// TotalCount returns the number of resolved recipients.
func (o Outcome) TotalCount() int {
	return len(o.Results())
}

// DeliveredCount returns the number of successful deliveries.
func (o Outcome) DeliveredCount() int {
	return o.count(StatusDelivered)
}

// ErrorCount returns the number of failed deliveries.
func (o Outcome) ErrorCount() int {
	return o.count(StatusError)
}

// DeliveredIDs returns the IDs of recipients that received the message.
func (o Outcome) DeliveredIDs() []int {
	return o.ids(StatusDelivered)
}

// FailedIDs returns the IDs of recipients whose delivery failed.
func (o Outcome) FailedIDs() []int {
	return o.ids(StatusError)
}

func (o Outcome) count(status DeliveryStatus) int {
	n := 0
	for _, r := range o.Results() {
		if r.Status == status {
			n++
		}
	}
	return n
}

func (o Outcome) ids(status DeliveryStatus) []int {
	var ids []int
	for _, r := range o.Results() {
		if r.Status == status {
			ids = append(ids, r.ID)
		}
	}
	return ids
}
