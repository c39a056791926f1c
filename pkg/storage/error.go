package storage

// NotFoundError is returned when a record doesn't exist in the store, or
// exists outside the caller's profile scope. Ownership misses are
// deliberately indistinguishable from missing records.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	if e.ID == "" {
		return e.Kind + " not found"
	}

	return e.Kind + " not found: " + e.ID
}

// ConflictError is returned by a conditional status transition when the
// capture is not currently in an eligible status.
type ConflictError struct {
	ID     string
	Status string
}

func (e ConflictError) Error() string {
	return "capture " + e.ID + " not eligible for transition from status " + e.Status
}
