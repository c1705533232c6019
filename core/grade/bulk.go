package grade

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/umoja/campus/core"
)

type (
	// BulkSkip explains why one record id could not be submitted.
	BulkSkip struct {
		ID     string `json:"id"`
		Reason string `json:"reason"`
	}

	// BulkResult reports the per-id outcome of a bulk submission.
	// Skips are not errors: resubmitting an already submitted id is
	// safe and reported as "already submitted".
	BulkResult struct {
		Succeeded []string   `json:"succeeded"`
		Skipped   []BulkSkip `json:"skipped"`
	}
)

// skipReason maps a per-item error to a stable caller-facing reason.
func skipReason(err error) string {
	switch {
	case err == ErrNotFound:
		return "not found"
	case err == ErrPermissionDenied:
		return "permission denied"
	case err == ErrDuplicate:
		return "duplicate record"
	case err == ErrVersionConflict:
		return SkipConcurrentUpdate
	}
	if tErr, ok := err.(*StateTransitionError); ok {
		switch tErr.From {
		case StatusSubmitted, StatusApproved, StatusFinal:
			return SkipAlreadySubmitted
		}
		return tErr.Error()
	}
	if vErrs, ok := err.(validator.ValidationErrors); ok {
		return fmt.Sprintf("validation failed: %v", core.TranslateValidationErrors(vErrs))
	}
	if vErr, ok := err.(*core.ValidationError); ok {
		return fmt.Sprintf("validation failed: %s", vErr.Error())
	}
	return err.Error()
}

// BulkSubmit submits each id independently, never aborting the batch
// for a per-item cause; only a systemic (shutdown) fault stops it.
// The operation is idempotent: retrying the same id set is always safe.
func (svc *Service) BulkSubmit(ctx context.Context, ids []string, actor Actor) (BulkResult, error) {
	res := BulkResult{Succeeded: []string{}, Skipped: []BulkSkip{}}

	for _, id := range ids {
		if _, err := svc.submitOne(ctx, id, actor); err != nil {
			if core.IsShutdown(err) {
				return res, err
			}
			res.Skipped = append(res.Skipped, BulkSkip{ID: id, Reason: skipReason(err)})
			continue
		}
		res.Succeeded = append(res.Succeeded, id)
	}

	if len(res.Succeeded) > 0 {
		svc.notify(actor, "Grades submitted",
			fmt.Sprintf("%d grade(s) submitted, %d skipped.", len(res.Succeeded), len(res.Skipped)))
	}
	return res, nil
}
