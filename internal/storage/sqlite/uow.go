package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"animehub/internal/storage"
)

// unitOfWork binds one transaction to one anime repository and one
// user repository. Both share the *sql.Tx, so operations across them
// commit or roll back together.
type unitOfWork struct {
	anime *AnimeRepo
	users *UserRepo
}

func (u *unitOfWork) Anime() storage.AnimeRepository { return u.anime }
func (u *unitOfWork) Users() storage.UserRepository  { return u.users }

// Factory opens transactional unit-of-work scopes over one shared
// connection pool. It owns the commit/rollback decision and the
// error-classification policy at the scope boundary.
type Factory struct {
	db    *sql.DB
	log   zerolog.Logger
	debug bool
}

func NewFactory(db *sql.DB, log zerolog.Logger, debug bool) *Factory {
	return &Factory{db: db, log: log, debug: debug}
}

// Do begins a transaction, constructs fresh repositories bound to it
// and runs fn. A nil return commits; any error (or panic) rolls back.
// The deferred rollback is a no-op after commit, which makes release
// safe on every exit path, including double exits and abandoned
// scopes whose context was cancelled mid-flight.
//
// Domain errors (ErrNotFound, ErrAlreadyExists, ErrHashing) propagate
// unchanged after rollback. Anything else is assumed to come from the
// storage layer and is wrapped into ErrDatabase; full detail is
// logged only when the debug flag is set, so internals never leak to
// callers in normal operation.
func (f *Factory) Do(ctx context.Context, fn func(uow storage.UnitOfWork) error) error {
	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return f.classify(fmt.Errorf("begin tx: %w", err))
	}
	defer func() {
		_ = tx.Rollback()
	}()

	uow := &unitOfWork{
		anime: NewAnimeRepo(tx),
		users: NewUserRepo(tx),
	}

	if err := fn(uow); err != nil {
		_ = tx.Rollback()
		return f.classify(err)
	}

	if err := tx.Commit(); err != nil {
		// constraint checks and I/O failures can still surface here
		return f.classify(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (f *Factory) classify(err error) error {
	if storage.IsDomainError(err) {
		return err
	}
	if f.debug {
		f.log.Error().Err(err).Msg("storage failure trapped in unit of work")
	}
	return fmt.Errorf("%w: %v", storage.ErrDatabase, err)
}
