package balances

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/meridian-books/meridian/internal/ledger/coa"
	"github.com/meridian-books/meridian/internal/ledger/vouchers"
	"github.com/meridian-books/meridian/internal/shared"
	"github.com/meridian-books/meridian/internal/tenant"
)

// FiscalYearSource resolves the fiscal year bounding a report date.
type FiscalYearSource interface {
	FiscalYearOn(ctx context.Context, tenantID int64, date time.Time) (tenant.FiscalYear, error)
}

// RunningBalance is a ledger balance expressed as a debit/credit pair
// with only one side non-zero.
type RunningBalance struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Service derives balances and statements from raw entries.
type Service struct {
	repo     Repository
	years    FiscalYearSource
	policy   vouchers.PostingPolicy
	cache    *Cache
	logger   *slog.Logger
	collator *collate.Collator
}

// NewService constructs a Service.
func NewService(repo Repository, years FiscalYearSource, policy vouchers.PostingPolicy, cache *Cache, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		years:    years,
		policy:   policy,
		cache:    cache,
		logger:   logger,
		collator: collate.New(language.Und, collate.IgnoreCase),
	}
}

// LedgerRunningBalance computes opening balance plus postable movement
// up to asOf within the fiscal year containing asOf, expressed back as
// a debit/credit pair. Pure derivation: calling it twice with no
// intervening posts yields identical results.
func (s *Service) LedgerRunningBalance(ctx context.Context, tenantID, ledgerID int64, asOf time.Time) (RunningBalance, error) {
	row, err := s.repo.GetLedgerRow(ctx, tenantID, ledgerID)
	if err != nil {
		return RunningBalance{}, err
	}
	fy, err := s.years.FiscalYearOn(ctx, tenantID, asOf)
	if err != nil {
		return RunningBalance{}, err
	}
	totals, err := s.repo.ActivityTotals(ctx, tenantID, &fy.StartDate, &asOf, s.policy.PostableStatuses(), []int64{ledgerID})
	if err != nil {
		return RunningBalance{}, err
	}
	net := row.OpeningSigned().Add(totals[ledgerID].Net())
	debit, credit := shared.SplitSigned(net)
	return RunningBalance{Debit: debit, Credit: credit}, nil
}

// CurrentBalances returns every active ledger's derived balance. It
// implements the chart-of-accounts BalanceSource for rollup queries.
func (s *Service) CurrentBalances(ctx context.Context, tenantID int64) (map[int64]coa.LedgerBalance, error) {
	ledgers, err := s.repo.ListActiveLedgers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.ActivityTotals(ctx, tenantID, nil, nil, s.policy.PostableStatuses(), nil)
	if err != nil {
		return nil, err
	}
	balances := make(map[int64]coa.LedgerBalance, len(ledgers))
	for _, row := range ledgers {
		net := row.OpeningSigned().Add(totals[row.ID].Net())
		debit, credit := shared.SplitSigned(net)
		balances[row.ID] = coa.LedgerBalance{Debit: debit, Credit: credit}
	}
	return balances, nil
}

// TrialBalance computes opening/period/closing figures for every active
// ledger as of asOf, inside the fiscal year containing asOf.
func (s *Service) TrialBalance(ctx context.Context, tenantID int64, asOf time.Time) (TrialBalance, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "tb", fmt.Sprintf("%d", tenantID), asOf.Format("2006-01-02"))
	if err != nil {
		return TrialBalance{}, err
	}
	var tb TrialBalance
	err = s.cache.FetchJSON(ctx, key, &tb, func(ctx context.Context) (any, error) {
		return s.buildTrialBalance(ctx, tenantID, asOf)
	})
	return tb, err
}

func (s *Service) buildTrialBalance(ctx context.Context, tenantID int64, asOf time.Time) (TrialBalance, error) {
	ledgers, err := s.repo.ListActiveLedgers(ctx, tenantID)
	if err != nil {
		return TrialBalance{}, err
	}
	fy, err := s.years.FiscalYearOn(ctx, tenantID, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	beforeStart := fy.StartDate.AddDate(0, 0, -1)
	statuses := s.policy.PostableStatuses()

	var opening, period map[int64]Activity
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var err error
		opening, err = s.repo.ActivityTotals(gctx, tenantID, nil, &beforeStart, statuses, nil)
		return err
	})
	group.Go(func() error {
		var err error
		period, err = s.repo.ActivityTotals(gctx, tenantID, &fy.StartDate, &asOf, statuses, nil)
		return err
	})
	if err := group.Wait(); err != nil {
		return TrialBalance{}, err
	}

	figures := make([]LedgerFigures, 0, len(ledgers))
	for _, row := range ledgers {
		figures = append(figures, LedgerFigures{
			LedgerID:      row.ID,
			Name:          row.Name,
			Nature:        row.Nature,
			DirectExpense: row.DirectExpense,
			Opening:       row.OpeningSigned().Add(opening[row.ID].Net()),
			PeriodDebit:   period[row.ID].Debit,
			PeriodCredit:  period[row.ID].Credit,
		})
	}
	tb, err := BuildTrialBalance(figures, s.less())
	if err != nil {
		var integrityErr *shared.IntegrityError
		if errors.As(err, &integrityErr) && s.logger != nil {
			s.logger.Error("trial balance integrity violation",
				slog.Int64("tenant", tenantID),
				slog.String("total_debit", integrityErr.TotalDebit.StringFixed(2)),
				slog.String("total_credit", integrityErr.TotalCredit.StringFixed(2)))
		}
		return TrialBalance{}, err
	}
	return tb, nil
}

// ProfitAndLoss sums INCOME and EXPENSES movement within [start, end].
func (s *Service) ProfitAndLoss(ctx context.Context, tenantID int64, start, end time.Time) (ProfitAndLoss, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "pl", fmt.Sprintf("%d", tenantID),
		start.Format("2006-01-02"), end.Format("2006-01-02"))
	if err != nil {
		return ProfitAndLoss{}, err
	}
	var pl ProfitAndLoss
	err = s.cache.FetchJSON(ctx, key, &pl, func(ctx context.Context) (any, error) {
		figures, err := s.figuresForWindow(ctx, tenantID, start, end)
		if err != nil {
			return nil, err
		}
		return BuildProfitAndLoss(figures), nil
	})
	return pl, err
}

// BalanceSheet derives the statement of position as of asOf.
func (s *Service) BalanceSheet(ctx context.Context, tenantID int64, asOf time.Time) (BalanceSheet, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "bs", fmt.Sprintf("%d", tenantID), asOf.Format("2006-01-02"))
	if err != nil {
		return BalanceSheet{}, err
	}
	var bs BalanceSheet
	err = s.cache.FetchJSON(ctx, key, &bs, func(ctx context.Context) (any, error) {
		ledgers, err := s.repo.ListActiveLedgers(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		totals, err := s.repo.ActivityTotals(ctx, tenantID, nil, &asOf, s.policy.PostableStatuses(), nil)
		if err != nil {
			return nil, err
		}
		figures := make([]LedgerFigures, 0, len(ledgers))
		for _, row := range ledgers {
			figures = append(figures, LedgerFigures{
				LedgerID:     row.ID,
				Name:         row.Name,
				Nature:       row.Nature,
				Opening:      row.OpeningSigned(),
				PeriodDebit:  totals[row.ID].Debit,
				PeriodCredit: totals[row.ID].Credit,
			})
		}
		return BuildBalanceSheet(figures), nil
	})
	return bs, err
}

// StatementLine is an entry line with the balance after applying it.
type StatementLine struct {
	EntryLine
	Balance decimal.Decimal `json:"balance"`
}

// LedgerStatement lists one ledger's postable entries over [from, to]
// with a running balance carried forward from everything before from.
type LedgerStatement struct {
	LedgerID int64           `json:"ledger_id"`
	Name     string          `json:"name"`
	From     time.Time       `json:"from"`
	To       time.Time       `json:"to"`
	Opening  decimal.Decimal `json:"opening"`
	Closing  decimal.Decimal `json:"closing"`
	Lines    []StatementLine `json:"lines"`
}

func (s *Service) Statement(ctx context.Context, tenantID, ledgerID int64, from, to time.Time) (LedgerStatement, error) {
	row, err := s.repo.GetLedgerRow(ctx, tenantID, ledgerID)
	if err != nil {
		return LedgerStatement{}, err
	}
	statuses := s.policy.PostableStatuses()
	beforeFrom := from.AddDate(0, 0, -1)
	prior, err := s.repo.ActivityTotals(ctx, tenantID, nil, &beforeFrom, statuses, []int64{ledgerID})
	if err != nil {
		return LedgerStatement{}, err
	}
	lines, err := s.repo.ListEntryLines(ctx, tenantID, ledgerID, from, to, statuses)
	if err != nil {
		return LedgerStatement{}, err
	}
	opening := row.OpeningSigned().Add(prior[ledgerID].Net())
	stmt := LedgerStatement{
		LedgerID: ledgerID,
		Name:     row.Name,
		From:     from,
		To:       to,
		Opening:  opening,
		Lines:    make([]StatementLine, 0, len(lines)),
	}
	running := opening
	for _, line := range lines {
		running = running.Add(line.Debit).Sub(line.Credit)
		stmt.Lines = append(stmt.Lines, StatementLine{EntryLine: line, Balance: running})
	}
	stmt.Closing = running
	return stmt, nil
}

func (s *Service) figuresForWindow(ctx context.Context, tenantID int64, start, end time.Time) ([]LedgerFigures, error) {
	ledgers, err := s.repo.ListActiveLedgers(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	totals, err := s.repo.ActivityTotals(ctx, tenantID, &start, &end, s.policy.PostableStatuses(), nil)
	if err != nil {
		return nil, err
	}
	figures := make([]LedgerFigures, 0, len(ledgers))
	for _, row := range ledgers {
		figures = append(figures, LedgerFigures{
			LedgerID:      row.ID,
			Name:          row.Name,
			Nature:        row.Nature,
			DirectExpense: row.DirectExpense,
			PeriodDebit:   totals[row.ID].Debit,
			PeriodCredit:  totals[row.ID].Credit,
		})
	}
	return figures, nil
}

func (s *Service) less() func(a, b string) bool {
	if s.collator == nil {
		return nil
	}
	return func(a, b string) bool {
		return s.collator.CompareString(a, b) < 0
	}
}
