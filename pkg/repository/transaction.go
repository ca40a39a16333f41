package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/stephenafamo/bob"

	"github.com/mpapenbr/racetiming-analytics/pkg/repository/analysis"
	"github.com/mpapenbr/racetiming-analytics/pkg/repository/api"
	bobCtx "github.com/mpapenbr/racetiming-analytics/pkg/repository/context"
)

type bobTransaction struct {
	db bob.DB
}

var _ api.TransactionManager = (*bobTransaction)(nil)

func NewTransactionManager(db bob.DB) api.TransactionManager {
	return &bobTransaction{db: db}
}

// the contract with the repositories is:
// we put the current executor into the context, the repository should first look
// in the context for an executor and then use it to execute queries
func (b *bobTransaction) RunInTx(
	ctx context.Context,
	fn func(ctx context.Context) error,
) error {
	return b.db.RunInTx(ctx, nil, func(ctx context.Context, e bob.Executor) error {
		return fn(bobCtx.NewContext(ctx, e))
	})
}

// Repositories bundles the repositories and the transaction manager of a pool.
type Repositories struct {
	Analysis api.AnalysisRepository
	Tx       api.TransactionManager
}

func NewRepositoriesFromPool(pool *pgxpool.Pool) *Repositories {
	db := bob.NewDB(stdlib.OpenDBFromPool(pool))
	return &Repositories{
		Analysis: analysis.NewAnalysisRepository(db),
		Tx:       NewTransactionManager(db),
	}
}
