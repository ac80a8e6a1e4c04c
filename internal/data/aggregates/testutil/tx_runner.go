package testutil

import (
	"context"
	"errors"
	"sync"

	"gorm.io/gorm"

	"github.com/HamezGuy/libreclinicaapi-sub001/internal/data/aggregates"
	"github.com/HamezGuy/libreclinicaapi-sub001/internal/pkg/dbctx"
)

// errInjectedRollback unwinds the real transaction when a commit failure is
// injected.
var errInjectedRollback = errors.New("injected rollback")

// InjectedTxRunner is a TxRunner with failure injection. With DB set the body
// runs inside a real transaction that an injected commit failure rolls back;
// without DB the body gets a context with no transaction.
type InjectedTxRunner struct {
	DB *gorm.DB

	mu sync.Mutex

	FailBegin      error
	FailBeforeBody error
	FailCommit     error

	BeginCalls    int
	CommitCalls   int
	RollbackCalls int
}

var _ aggregates.TxRunner = (*InjectedTxRunner)(nil)

func (r *InjectedTxRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	r.mu.Lock()
	r.BeginCalls++
	failBegin := r.FailBegin
	failBeforeBody := r.FailBeforeBody
	failCommit := r.FailCommit
	r.mu.Unlock()

	if failBegin != nil {
		return failBegin
	}
	if failBeforeBody != nil {
		r.count(&r.RollbackCalls)
		return failBeforeBody
	}
	if fn == nil {
		r.count(&r.CommitCalls)
		return nil
	}

	if r.DB == nil {
		if err := fn(dbctx.Context{Ctx: ctx}); err != nil {
			r.count(&r.RollbackCalls)
			return err
		}
		if failCommit != nil {
			r.count(&r.RollbackCalls)
			return failCommit
		}
		r.count(&r.CommitCalls)
		return nil
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := fn(dbctx.Context{Ctx: ctx, Tx: tx}); err != nil {
			return err
		}
		if failCommit != nil {
			return errInjectedRollback
		}
		return nil
	})
	switch {
	case errors.Is(err, errInjectedRollback):
		r.count(&r.RollbackCalls)
		return failCommit
	case err != nil:
		r.count(&r.RollbackCalls)
		return err
	}
	r.count(&r.CommitCalls)
	return nil
}

func (r *InjectedTxRunner) count(n *int) {
	r.mu.Lock()
	*n++
	r.mu.Unlock()
}
