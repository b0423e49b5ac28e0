package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvoiceNotFound = errors.New("invoice not found")
	ErrEntryNotFound   = errors.New("time entry not found")
	ErrNoCards         = errors.New("no cards selected")
	ErrCardNotEligible = errors.New("card is not billable: it must be done and not archived")
	ErrInvalidStatus   = errors.New("invalid invoice status")
	ErrDuplicateCard   = errors.New("card selected more than once")
)

// ArchiveSyncError reports where a sync run stopped. Cards in Completed were
// already changed in Kaiten and are not rolled back.
type ArchiveSyncError struct {
	CardID    int64
	Completed []int64
	Archived  bool
	Err       error
}

func (e *ArchiveSyncError) Error() string {
	action := "unarchive"
	if e.Archived {
		action = "archive"
	}
	return fmt.Sprintf("failed to %s card %d after %d updated: %v", action, e.CardID, len(e.Completed), e.Err)
}

func (e *ArchiveSyncError) Unwrap() error {
	return e.Err
}
