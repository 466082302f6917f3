// Package saveflow runs the report save workflow: conflict check, then
// create or update.
package saveflow

import (
	"context"
	"errors"

	reportstore "github.com/dalemusser/reporthub/internal/app/store/reports"
	"github.com/dalemusser/reporthub/internal/domain/models"
)

// Repository is the subset of the report store the workflow needs.
type Repository interface {
	CheckDateConflict(ctx context.Context, userID, dateISO, excludeKey string) *models.Report
	Save(ctx context.Context, userID string, d reportstore.Draft) (models.Report, error)
	Update(ctx context.Context, key string, r models.Report) (models.Report, error)
}

// Outcome classifies a save attempt.
type Outcome int

const (
	Saved Outcome = iota
	Conflict
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Saved:
		return "saved"
	case Conflict:
		return "conflict"
	default:
		return "failed"
	}
}

// Result of one attempt. Report is set when Saved, Conflicting when
// Conflict, Err when Failed.
type Result struct {
	Outcome     Outcome
	Created     bool
	Report      models.Report
	Conflicting *models.Report
	Err         error
}

// Save stores d for userID. editKey, when non-empty, names the report being
// edited: it is excluded from the conflict check and updated in place.
func Save(ctx context.Context, repo Repository, userID, editKey string, d reportstore.Draft) Result {
	if c := repo.CheckDateConflict(ctx, userID, d.Date, editKey); c != nil {
		return Result{Outcome: Conflict, Conflicting: c}
	}

	var (
		r   models.Report
		err error
	)
	if editKey != "" {
		r, err = repo.Update(ctx, editKey, models.Report{Date: d.Date, Text: d.Text, UserID: userID})
	} else {
		r, err = repo.Save(ctx, userID, d)
	}

	if errors.Is(err, reportstore.ErrDateConflict) {
		// Lost a race the pre-check could not see; report whoever won.
		if c := repo.CheckDateConflict(ctx, userID, d.Date, editKey); c != nil {
			return Result{Outcome: Conflict, Conflicting: c}
		}
	}
	if err != nil {
		return Result{Outcome: Failed, Err: err}
	}
	return Result{Outcome: Saved, Created: editKey == "", Report: r}
}
