package notifier

import "fmt"

// NotificationError reports a failed delivery to an owner.
type NotificationError struct {
	OwnerID int64
	Err     error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to notify owner %d: %v", e.OwnerID, e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
