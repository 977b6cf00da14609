package engine

import (
	"github.com/leapstack-labs/leapcalc/pkg/links"
	"github.com/leapstack-labs/leapcalc/pkg/lint"
)

// ModuleReport is the validation outcome of one module.
type ModuleReport struct {
	ModuleID string      `json:"module_id"`
	Formula  lint.Result `json:"formula"`
	Outputs  lint.Result `json:"outputs"`
}

// OK reports whether the formula and every computed output are valid.
func (r ModuleReport) OK() bool {
	return r.Formula.Valid && r.Outputs.Valid
}

// QuoteReport lists the broken links of one quote.
type QuoteReport struct {
	QuoteID     string       `json:"quote_id"`
	BrokenLinks []links.Link `json:"broken_links,omitempty"`
}

// Report is the validation outcome of a workspace.
type Report struct {
	Modules []ModuleReport `json:"modules"`
	Quotes  []QuoteReport  `json:"quotes,omitempty"`
}

// OK reports whether every module is valid and no link is broken.
func (r *Report) OK() bool {
	for _, m := range r.Modules {
		if !m.OK() {
			return false
		}
	}
	for _, q := range r.Quotes {
		if len(q.BrokenLinks) > 0 {
			return false
		}
	}
	return true
}

// ValidateModules checks the formula and computed outputs of the given
// modules, or of every module when ids is empty.
func (e *Engine) ValidateModules(ids ...string) ([]ModuleReport, error) {
	ws := e.Workspace()
	mods := e.Modules()
	if len(ids) > 0 {
		mods = mods[:0:0]
		for _, id := range ids {
			m, err := e.Module(id)
			if err != nil {
				return nil, err
			}
			mods = append(mods, *m)
		}
	}

	reports := make([]ModuleReport, 0, len(mods))
	for _, m := range mods {
		r := ModuleReport{
			ModuleID: m.ID,
			Formula:  lint.Validate(m.Formula, m.Fields, ws.Materials, e.lintOptions()...),
			Outputs:  lint.ValidateComputedOutputs(m, ws.Materials, e.lintOptions()...),
		}
		if !r.OK() {
			e.logger.Debug("module invalid", "module", m.ID, "formula", r.Formula.Error, "outputs", r.Outputs.Error)
		}
		reports = append(reports, r)
	}
	return reports, nil
}

// ValidateWorkspace checks every module and reports the broken links of
// every quote.
func (e *Engine) ValidateWorkspace() (*Report, error) {
	mods, err := e.ValidateModules()
	if err != nil {
		return nil, err
	}
	report := &Report{Modules: mods}
	ws := e.Workspace()
	for _, q := range ws.Quotes {
		arena := links.NewArena(q.Instances, ws.Modules)
		if broken := arena.BrokenLinks(); len(broken) > 0 {
			report.Quotes = append(report.Quotes, QuoteReport{QuoteID: q.ID, BrokenLinks: broken})
		}
	}
	return report, nil
}
