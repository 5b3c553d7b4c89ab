package engine

import (
	"fmt"
	"time"

	"github.com/Veraticus/tally-ho/internal/common"
	"github.com/Veraticus/tally-ho/internal/model"
	"github.com/Veraticus/tally-ho/internal/validate"

	"github.com/shopspring/decimal"
)

// Session holds the ordered mapping entries for one run, exactly one per
// surviving input label. Sessions carry no internal locking; callers must
// serialize mutations themselves.
type Session struct {
	ID                  string
	CreatedAt           time.Time
	Accounts            []model.Account
	Entries             []model.MappingEntry
	requireFullCoverage bool
}

// SessionFromRecord rebuilds a session from its persisted form.
func SessionFromRecord(record *model.SessionRecord, requireFullCoverage bool) *Session {
	return &Session{
		ID:                  record.ID,
		CreatedAt:           record.CreatedAt,
		Accounts:            record.Accounts,
		Entries:             record.Entries,
		requireFullCoverage: requireFullCoverage,
	}
}

// Record converts the session to its persisted form.
func (s *Session) Record() *model.SessionRecord {
	return &model.SessionRecord{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		UpdatedAt: time.Now().UTC(),
		Accounts:  s.Accounts,
		Entries:   s.Entries,
	}
}

// ApplyEdit overrides one entry with a reviewer's choice. The account must
// exist in the session's pool by raw name. Nothing else is recomputed;
// callers run Validate explicitly once a round of edits is done.
func (s *Session) ApplyEdit(index int, accountRaw string, value decimal.Decimal) (model.MappingEntry, error) {
	if index < 0 || index >= len(s.Entries) {
		return model.MappingEntry{}, fmt.Errorf("entry %d: %w", index, common.ErrNotFound)
	}

	var account *model.Account
	for i := range s.Accounts {
		if s.Accounts[i].Raw == accountRaw {
			copied := s.Accounts[i]
			account = &copied
			break
		}
	}
	if account == nil {
		return model.MappingEntry{}, fmt.Errorf("account %q: %w", accountRaw, common.ErrNotFound)
	}

	entry := &s.Entries[index]
	entry.Account = account
	entry.Value = value
	entry.Confidence = 100
	entry.Method = model.MethodManual
	entry.Reasoning = ""

	return *entry, nil
}

// Accept commits the session and returns the final rows in label input
// order. Unmapped entries keep nil account and value cells for the
// renderer to skip, unless full coverage is required, in which case any
// remaining unmapped label blocks acceptance.
func (s *Session) Accept() ([]model.FinalRow, error) {
	if s.requireFullCoverage {
		if unmapped := s.unmappedLabels(); len(unmapped) > 0 {
			return nil, common.NewValidationBlockedError(unmapped)
		}
	}

	rows := make([]model.FinalRow, 0, len(s.Entries))
	for i := range s.Entries {
		entry := &s.Entries[i]
		row := model.FinalRow{
			LabelRaw: entry.Label.Raw,
			Category: entry.Label.Category,
			Tier:     entry.Tier(),
		}
		if entry.Account != nil {
			raw := entry.Account.Raw
			value := entry.Value
			row.AccountRaw = &raw
			row.Value = &value
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Validate recomputes the session's validation report, including the
// advisory balance check.
func (s *Session) Validate() *model.ValidationReport {
	report := validate.Report(s.Entries)
	report.Balance = validate.CheckBalance(s.Entries, validate.DefaultBalanceTolerance)
	return report
}

func (s *Session) unmappedLabels() []string {
	var unmapped []string
	for i := range s.Entries {
		if !s.Entries[i].Mapped() {
			unmapped = append(unmapped, s.Entries[i].Label.Raw)
		}
	}
	return unmapped
}
