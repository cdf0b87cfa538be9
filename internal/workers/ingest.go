package workers

import (
	"context"
	"errors"

	"github.com/hetulpatel/trackledger/internal/hashutil"
	"github.com/hetulpatel/trackledger/internal/ledger"
	"github.com/hetulpatel/trackledger/internal/logging"
	"github.com/hetulpatel/trackledger/internal/storage/sqlite"
)

// Ingestor normalizes raw venue events and upserts them into the ledger.
// Nothing it hits is fatal: a malformed event is dropped with a log line, an
// integrity conflict is surfaced for the operator and the record rejected,
// and the batch keeps going either way. Replaying a whole topic from the
// start is always safe.
type Ingestor struct {
	store *sqlite.Store
}

func NewIngestor(store *sqlite.Store) *Ingestor {
	return &Ingestor{store: store}
}

func (in *Ingestor) Handle(ctx context.Context, env *ledger.RawEnvelope) error {
	tx, err := ledger.Normalize(*env)
	if err != nil {
		var normErr *ledger.NormalizationError
		if errors.As(err, &normErr) {
			logging.Warnf("[ingest] dropping %s: %v", env.Key(), normErr)
			return nil
		}
		return err
	}

	outcome, err := in.store.Upsert(ctx, tx)
	if err != nil {
		var integrityErr *ledger.IntegrityError
		if errors.As(err, &integrityErr) {
			logging.Errorf("[ingest] rejected %s: %v (stored record kept)", tx.Ref(), integrityErr)
			return nil
		}
		return err
	}

	switch outcome {
	case sqlite.UpsertInserted:
		logging.Infof("[ingest] %s %s %q (%s)", tx.Venue, tx.Side, tx.MarketLabel,
			hashutil.Short(tx.ExternalID, 16))
	case sqlite.UpsertSkipped:
		logging.Debugf("[ingest] duplicate %s, skipped", tx.Ref())
	}
	return nil
}
