// Package validate derives diagnostic reports from mapping results. The
// report is a pure function of the entries: building it never re-runs
// matching and never mutates the session.
package validate

import (
	"github.com/Veraticus/tally-ho/internal/model"
)

// Report builds a validation report in a single pass over the entries.
//
// Every account referenced by two or more entries is reported; judging
// whether a shared subtotal is legitimate stays with the reviewer. Mapped
// entries below the High tier are listed for review. Unmapped entries are
// listed separately and still count toward the Low tier bucket.
func Report(entries []model.MappingEntry) *model.ValidationReport {
	report := &model.ValidationReport{
		TotalEntries: len(entries),
		TierCounts:   make(map[model.ConfidenceTier]int, 3),
	}

	reuse := make(map[string]*model.AccountReuse)
	var firstUse []string

	for i := range entries {
		entry := &entries[i]
		report.TierCounts[entry.Tier()]++

		if !entry.Mapped() {
			report.UnmappedLabels = append(report.UnmappedLabels, entry.Label.Raw)
			continue
		}

		raw := entry.Account.Raw
		r, ok := reuse[raw]
		if !ok {
			r = &model.AccountReuse{AccountRaw: raw}
			reuse[raw] = r
			firstUse = append(firstUse, raw)
		}
		r.Count++
		r.Labels = append(r.Labels, entry.Label.Raw)

		if entry.Tier() != model.TierHigh {
			report.LowConfidence = append(report.LowConfidence, model.LowConfidenceEntry{
				LabelRaw:   entry.Label.Raw,
				AccountRaw: raw,
				Confidence: entry.Confidence,
				Tier:       entry.Tier(),
			})
		}
	}

	for _, raw := range firstUse {
		if r := reuse[raw]; r.Count > 1 {
			report.ReusedAccounts = append(report.ReusedAccounts, *r)
		}
	}

	return report
}
