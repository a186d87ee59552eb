package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dayoonc/finbook/internal/domain"
	"github.com/dayoonc/finbook/internal/store"
)

// StageCounts reports how many candidates each pipeline stage absorbed.
type StageCounts struct {
	Paired     int `json:"paired"`
	CrossBatch int `json:"cross_batch"`
	Existing   int `json:"existing"`
	Natural    int `json:"natural"`
	Settlement int `json:"settlement"`
}

// IngestResult is the outcome of one bulk upload: the created rows, any
// pre-existing rows hit by the idempotency filter, and the stage counts.
type IngestResult struct {
	Transactions []*domain.Transaction `json:"transactions"`
	Counts       StageCounts           `json:"counts"`
}

// Ingestor runs the bulk ingestion pipeline. The stage order is fixed and
// non-reorderable: later stages assume earlier ones already removed
// duplicates.
type Ingestor struct {
	store   store.Store
	log     zerolog.Logger
	pairer  *Pairer
	matcher *Matcher
	writer  *TxWriter
}

func NewIngestor(st store.Store, writer *TxWriter, log zerolog.Logger) *Ingestor {
	return &Ingestor{
		store:   st,
		log:     log,
		pairer:  NewPairer(),
		matcher: NewMatcher(),
		writer:  writer,
	}
}

type ingestItem struct {
	cand        *domain.Candidate
	autoMatched bool
	unpairedLeg bool
}

// BulkIngest runs the whole pipeline for one upload inside a single unit of
// work: normalize ownership, pair transfer legs in-batch, match survivors
// against persisted rows, optionally override colliding rows, filter by
// external key, natural key and settlement state, then create the rest.
func (ing *Ingestor) BulkIngest(ctx context.Context, ownerID int64, cands []*domain.Candidate, override bool) (*IngestResult, error) {
	uow, err := ing.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer uow.Rollback(ctx)

	result := &IngestResult{}

	for _, c := range cands {
		c.OwnerID = ownerID
	}

	// Override keys off the raw candidates: pairing collapses two legs
	// into one record and would lose the incoming leg's external key.
	if override {
		if err := ing.overrideExisting(ctx, uow, cands); err != nil {
			return nil, err
		}
	}

	items := ing.pairInBatch(cands, &result.Counts)

	items, err = ing.dropCrossBatch(ctx, uow, items, &result.Counts)
	if err != nil {
		return nil, err
	}

	items, err = ing.filterExisting(ctx, uow, items, result)
	if err != nil {
		return nil, err
	}

	items, err = ing.filterNatural(ctx, uow, items, &result.Counts)
	if err != nil {
		return nil, err
	}

	items, err = ing.filterSettled(ctx, uow, items, &result.Counts)
	if err != nil {
		return nil, err
	}

	created := 0
	for _, it := range items {
		row, err := ing.writer.Create(ctx, uow, it.cand, it.autoMatched)
		if err != nil {
			return nil, err
		}
		result.Transactions = append(result.Transactions, row)
		created++
	}

	if err := uow.Commit(ctx); err != nil {
		return nil, err
	}

	ingestCreated.Add(float64(created))
	ingestStageDrops.WithLabelValues("paired").Add(float64(result.Counts.Paired))
	ingestStageDrops.WithLabelValues("cross_batch").Add(float64(result.Counts.CrossBatch))
	ingestStageDrops.WithLabelValues("existing").Add(float64(result.Counts.Existing))
	ingestStageDrops.WithLabelValues("natural").Add(float64(result.Counts.Natural))
	ingestStageDrops.WithLabelValues("settlement").Add(float64(result.Counts.Settlement))
	ing.log.Info().
		Int64("owner_id", ownerID).
		Int("candidates", len(cands)).
		Int("created", created).
		Int("paired", result.Counts.Paired).
		Int("cross_batch", result.Counts.CrossBatch).
		Int("existing", result.Counts.Existing).
		Msg("bulk ingest complete")
	return result, nil
}

// pairInBatch buckets transfer-like candidates by (date, time, currency) and
// runs tolerance pairing inside each bucket. Non-transfer candidates pass
// through untouched.
func (ing *Ingestor) pairInBatch(cands []*domain.Candidate, counts *StageCounts) []*ingestItem {
	buckets := make(map[string][]*domain.Candidate)
	var order []string
	var passthrough []*ingestItem

	for _, c := range cands {
		if !c.TransferLike() {
			passthrough = append(passthrough, &ingestItem{cand: c})
			continue
		}
		key := c.BucketKey()
		if _, ok := buckets[key]; !ok {
			order = append(order, key)
		}
		buckets[key] = append(buckets[key], c)
	}

	var items []*ingestItem
	for _, key := range order {
		bucket := buckets[key]
		pairs, leftovers := ing.pairer.PairTransfersWithTolerance(bucket)
		counts.Paired += len(pairs)
		for _, p := range pairs {
			items = append(items, &ingestItem{cand: p.Candidate, autoMatched: p.AutoMatched})
		}
		for _, c := range leftovers {
			items = append(items, &ingestItem{cand: c, unpairedLeg: true})
		}
	}
	return append(items, passthrough...)
}

func (ing *Ingestor) dropCrossBatch(ctx context.Context, uow store.UnitOfWork, items []*ingestItem, counts *StageCounts) ([]*ingestItem, error) {
	kept := items[:0]
	for _, it := range items {
		if !it.unpairedLeg {
			kept = append(kept, it)
			continue
		}
		matched, err := ing.matcher.Matches(ctx, uow, it.cand)
		if err != nil {
			return nil, err
		}
		if matched {
			counts.CrossBatch++
			continue
		}
		kept = append(kept, it)
	}
	return kept, nil
}

// overrideExisting deletes persisted rows sharing any uploaded candidate's
// external key, together with their paired siblings and mirrors, reverting
// balance effects first.
func (ing *Ingestor) overrideExisting(ctx context.Context, uow store.UnitOfWork, cands []*domain.Candidate) error {
	for _, c := range cands {
		if c.ExternalKey == "" {
			continue
		}
		existing, err := uow.Transactions().FindByExternalKey(ctx, c.OwnerID, c.ExternalKey)
		if err != nil {
			return fmt.Errorf("override lookup: %w", err)
		}
		if existing == nil {
			continue
		}
		if err := ing.writer.DeleteCascade(ctx, uow, existing); err != nil {
			return err
		}
	}
	return nil
}

func (ing *Ingestor) filterExisting(ctx context.Context, uow store.UnitOfWork, items []*ingestItem, result *IngestResult) ([]*ingestItem, error) {
	kept := items[:0]
	for _, it := range items {
		if it.cand.ExternalKey == "" {
			kept = append(kept, it)
			continue
		}
		existing, err := uow.Transactions().FindByExternalKey(ctx, it.cand.OwnerID, it.cand.ExternalKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency lookup: %w", err)
		}
		if existing != nil {
			result.Counts.Existing++
			result.Transactions = append(result.Transactions, existing)
			continue
		}
		kept = append(kept, it)
	}
	return kept, nil
}

// filterNatural drops import-sourced candidates whose duplicate signature
// (owner, kind, date, time, account, currency, |amount|) already exists.
// Candidates whose account cannot be resolved to an existing row cannot be
// duplicates and pass through.
func (ing *Ingestor) filterNatural(ctx context.Context, uow store.UnitOfWork, items []*ingestItem, counts *StageCounts) ([]*ingestItem, error) {
	kept := items[:0]
	for _, it := range items {
		c := it.cand
		if c.ImportSource == "" {
			kept = append(kept, it)
			continue
		}
		accID, err := resolveExistingAccountID(ctx, uow, c.OwnerID, c.AccountID, c.AccountName)
		if err != nil {
			return nil, err
		}
		if accID == nil {
			kept = append(kept, it)
			continue
		}
		exists, err := uow.Transactions().ExistsNatural(ctx, store.NaturalKey{
			OwnerID:   c.OwnerID,
			Kind:      c.Kind,
			Date:      c.Date,
			TimeOfDay: c.TimeOfDay,
			AccountID: *accID,
			Currency:  c.Currency,
			AbsAmount: absAmount(c.Amount),
		})
		if err != nil {
			return nil, fmt.Errorf("natural key lookup: %w", err)
		}
		if exists {
			counts.Natural++
			continue
		}
		kept = append(kept, it)
	}
	return kept, nil
}

func (ing *Ingestor) filterSettled(ctx context.Context, uow store.UnitOfWork, items []*ingestItem, counts *StageCounts) ([]*ingestItem, error) {
	kept := items[:0]
	for _, it := range items {
		c := it.cand
		if c.Kind != domain.TxnSettlement || c.BillingCycleID == nil {
			kept = append(kept, it)
			continue
		}
		stmt, err := uow.Statements().Get(ctx, *c.BillingCycleID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				kept = append(kept, it)
				continue
			}
			return nil, fmt.Errorf("billing cycle %d: %w", *c.BillingCycleID, err)
		}
		if stmt.Status == domain.StatementPaid || stmt.SettlementTransactionID != nil {
			counts.Settlement++
			continue
		}
		kept = append(kept, it)
	}
	return kept, nil
}
