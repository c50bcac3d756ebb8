package market

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
)

// Deletion removes the request row instead of transitioning it, so the map
// only covers the approval edge.
var validNext = map[Status]map[Status]bool{
	StatusPending:  {StatusApproved: true},
	StatusApproved: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
