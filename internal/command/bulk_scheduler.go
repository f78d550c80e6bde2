package command

import (
	"context"
	"log"
	"time"

	"github.com/arkplatform/user-service/internal/cqrs"
)

// Provisioner is the single-item creation path the scheduler drives.
type Provisioner interface {
	ProvisionBulkUser(ctx context.Context, draft cqrs.BulkDraft) error
}

// BulkScheduler provisions a batch of accounts one at a time with a fixed
// delay between items, so the credential deriver and the store never see
// more than one in-flight creation per batch. One item's failure never
// aborts the rest.
//
// The batch lives only in memory for the duration of one Run; a host
// shutdown cancels the context and drops the remainder.
type BulkScheduler struct {
	provisioner Provisioner
	delay       time.Duration
}

func NewBulkScheduler(provisioner Provisioner, delay time.Duration) *BulkScheduler {
	return &BulkScheduler{provisioner: provisioner, delay: delay}
}

// Run processes drafts in input order. Callers acknowledge the batch before
// invoking Run (typically in a goroutine); there are no per-item results.
func (s *BulkScheduler) Run(ctx context.Context, drafts []cqrs.BulkDraft) {
	for i, draft := range drafts {
		if i > 0 {
			select {
			case <-ctx.Done():
				log.Printf("bulk provisioning aborted after %d of %d items: %v", i, len(drafts), ctx.Err())
				return
			case <-time.After(s.delay):
			}
		}

		if err := s.provisioner.ProvisionBulkUser(ctx, draft); err != nil {
			log.Printf("bulk provisioning: item %d (%s) failed: %v", i, draft.Mail, err)
			continue
		}
	}
	log.Printf("bulk provisioning finished: %d items", len(drafts))
}
