package models

import "time"

// UnknownLabel is used when retrieval could not name the resource.
const UnknownLabel = "Unknown"

// TrackedResource is an (owner, source URL) pair being watched for slot changes.
// (OwnerID, URL) is unique; ID is the surrogate key slots hang off.
type TrackedResource struct {
	ID        int64     `json:"id"`
	OwnerID   int64     `json:"owner_id"`
	URL       string    `json:"url"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

// DisplayLabel returns the label, or UnknownLabel when it is blank.
func (r TrackedResource) DisplayLabel() string {
	if r.Label == "" {
		return UnknownLabel
	}
	return r.Label
}
