// Package specsync reconciles the spec store into local Workflow records.
//
// The store is the source of truth. One pass lists every document, parses
// it, and upserts the mirrored Workflow. A broken document never aborts the
// pass: its failure is recorded and the rest proceeds. Re-running a pass
// over an unchanged store changes nothing.
package specsync

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidesys/dagmirror/pkg/domain"
	"github.com/tidesys/dagmirror/pkg/domain/errors/dberrors"
	"github.com/tidesys/dagmirror/pkg/domain/specstore"
	wfdb "github.com/tidesys/dagmirror/pkg/domain/workflow/db"
	"github.com/tidesys/dagmirror/pkg/domain/workflow/spec"
	"github.com/tidesys/dagmirror/pkg/utils/clock"
)

type Reconciler struct {
	store specstore.Store
	db    wfdb.Interface
	clock clock.Clock
}

func New(store specstore.Store, db wfdb.Interface, clock clock.Clock) *Reconciler {
	return &Reconciler{store: store, db: db, clock: clock}
}

// ReconcileAll performs one full reconciliation pass.
//
// Never returns an error: per-document failures are folded into the result.
// When listing the store itself fails, the result carries a single
// storage-level failure and no documents processed.
//
// Cancelling ctx stops between documents; already-written Workflows stay
// written. The pass is idempotent, so an interrupted pass is repaired by
// the next one.
func (r *Reconciler) ReconcileAll(ctx context.Context) domain.SyncResult {
	result := domain.SyncResult{
		Errors:   []domain.SyncError{},
		SyncedAt: r.clock.Now(),
	}

	paths, err := r.store.ListAllDocuments(ctx)
	if err != nil {
		result.Failed = 1
		result.Errors = append(result.Errors, domain.SyncError{
			Type:    domain.StorageError,
			Message: err.Error(),
		})
		return result
	}

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			break
		}

		result.TotalProcessed += 1

		created, serr := r.reconcileOne(ctx, path)
		if serr != nil {
			result.Failed += 1
			result.Errors = append(result.Errors, *serr)
			continue
		}
		if created {
			result.Created += 1
		} else {
			result.Updated += 1
		}
	}

	return result
}

func (r *Reconciler) reconcileOne(ctx context.Context, path string) (created bool, _ *domain.SyncError) {
	raw, err := r.store.Read(ctx, path)
	if err != nil {
		return false, &domain.SyncError{
			SpecPath: path,
			Type:     domain.StorageError,
			Message:  err.Error(),
		}
	}

	parsed, verrs := spec.Parse(raw)
	if 0 < len(verrs) {
		return false, &domain.SyncError{
			SpecPath: path,
			Type:     classify(verrs),
			Message:  message(verrs),
		}
	}

	created, err = r.db.Save(ctx, parsed.AsWorkflow(path))
	if err != nil {
		// a constraint rejection means the document itself is bad,
		// not that storage is down.
		typ := domain.StorageError
		if dberrors.AsIntegrityViolation(err) {
			typ = domain.ValidationError
		}
		return false, &domain.SyncError{
			SpecPath: path,
			Type:     typ,
			Message:  err.Error(),
		}
	}

	return created, nil
}

// a document which is not even yaml is a parse error;
// a well-formed document with bad fields is a validation error.
func classify(verrs []domain.SpecValidationError) domain.SyncErrorType {
	for _, v := range verrs {
		if v.Field == "" {
			return domain.ParseError
		}
	}
	return domain.ValidationError
}

func message(verrs []domain.SpecValidationError) string {
	ss := make([]string, len(verrs))
	for i, v := range verrs {
		ss[i] = v.String()
	}
	return fmt.Sprintf("invalid workflow spec: %s", strings.Join(ss, "; "))
}
