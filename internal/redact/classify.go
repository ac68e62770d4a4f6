package redact

import (
	"fmt"
	"strings"

	"github.com/example/statement-redactor/pkg/layout"
)

// RuleName identifies the rule that decided a fragment's fate
type RuleName string

const (
	RuleNone            RuleName = ""
	RuleWhitelist       RuleName = "whitelist"
	RuleCurrency        RuleName = "currency"
	RuleLimitOverlap    RuleName = "limit-overlap"
	RuleDescription     RuleName = "description"
	RuleUnmatchedAmount RuleName = "unmatched-amount"
)

// Decision is the outcome of the ranked rules for one fragment
type Decision struct {
	Fragment int      `json:"fragment"`
	Text     string   `json:"text"`
	Rule     RuleName `json:"rule,omitempty"`
	Marked   bool     `json:"marked"`
}

// Mark is a rectangle scheduled for blackout and the reason for it
type Mark struct {
	Rect     layout.Rect `json:"rect"`
	Fragment int         `json:"fragment"`
	Text     string      `json:"text"`
	Rule     RuleName    `json:"rule"`
}

// PagePlan is the classifier's output for one page
type PagePlan struct {
	Page       int        `json:"page"`
	SectionY   float64    `json:"section_y,omitempty"`
	HasSection bool       `json:"has_section"`
	Decisions  []Decision `json:"decisions"`
	Marks      []Mark     `json:"marks"`
}

// CountByRule tallies marks per rule
func (p *PagePlan) CountByRule() map[RuleName]int {
	counts := make(map[RuleName]int)
	for _, m := range p.Marks {
		counts[m.Rule]++
	}
	return counts
}

// LocateSectionBoundary returns the bottom edge of the first fragment
// containing title. ok is false when the title does not appear.
func LocateSectionBoundary(frags []layout.Fragment, title string) (y float64, ok bool) {
	if title == "" {
		return 0, false
	}
	for _, f := range frags {
		if strings.Contains(f.Text, title) {
			return f.BBox.Y1, true
		}
	}
	return 0, false
}

// Candidates is the first-pass record for a page. It is not modified by Decide.
type Candidates struct {
	amounts   *amountRegistry
	limits    []int
	keyword   []bool
	rows      map[int]bool
	tolerance int

	decimal []bool
	date    []bool
}

func (c *Candidates) trackedAmounts() int { return c.amounts.len() }

// RowWhitelisted reports whether key lies within tolerance of a keyword fragment's row
func (c *Candidates) RowWhitelisted(key int) bool { return c.rows[key] }

// CollectCandidates runs the first pass over a page's fragments.
func CollectCandidates(frags []layout.Fragment, p *Patterns, wl Whitelist, cfg Config) *Candidates {
	c := &Candidates{
		amounts:   newAmountRegistry(cfg.Registry),
		keyword:   make([]bool, len(frags)),
		decimal:   make([]bool, len(frags)),
		date:      make([]bool, len(frags)),
		rows:      make(map[int]bool),
		tolerance: cfg.RowTolerance,
	}

	for i, f := range frags {
		key := f.RowKey()
		c.decimal[i] = p.IsDecimal(f.Text)
		c.date[i] = p.IsDate(f.Text)

		if c.decimal[i] {
			c.amounts.add(key, i)
		}
		if p.HasLimit(f.Text) {
			c.limits = append(c.limits, i)
		}
		if wl.Matches(f.Text) {
			c.keyword[i] = true
			for k := key - c.tolerance; k <= key+c.tolerance; k++ {
				c.rows[k] = true
			}
		}
	}
	return c
}

type pageContext struct {
	frags      []layout.Fragment
	cands      *Candidates
	patterns   *Patterns
	amounts    *amountRegistry
	sectionY   float64
	hasSection bool
}

// rule is one entry of the ranked decision list. act runs only when match
// holds and reports whether the fragment itself is marked.
type rule struct {
	name  RuleName
	match func(pc *pageContext, i int) bool
	act   func(pc *pageContext, i int) bool
}

func markFragment(*pageContext, int) bool { return true }

// rules are evaluated in order; the first match wins.
var rules = []rule{
	{
		// Keyword rows keep their amounts: release every tracked amount
		// within the row tolerance of this fragment.
		name:  RuleWhitelist,
		match: func(pc *pageContext, i int) bool { return pc.cands.keyword[i] },
		act: func(pc *pageContext, i int) bool {
			pc.amounts.release(pc.frags[i].RowKey(), pc.cands.tolerance)
			return false
		},
	},
	{
		// A currency-prefixed amount outside a whitelisted row.
		name: RuleCurrency,
		match: func(pc *pageContext, i int) bool {
			return pc.patterns.IsCurrency(pc.frags[i].Text) && !pc.cands.RowWhitelisted(pc.frags[i].RowKey())
		},
		act: markFragment,
	},
	{
		// A bare figure sitting on top of a "Limit £" label.
		name: RuleLimitOverlap,
		match: func(pc *pageContext, i int) bool {
			box := pc.frags[i].BBox
			for _, j := range pc.cands.limits {
				if j != i && box.Intersects(pc.frags[j].BBox) {
					return true
				}
			}
			return false
		},
		act: markFragment,
	},
	{
		// Free text below the section header that is neither an amount nor a date.
		name: RuleDescription,
		match: func(pc *pageContext, i int) bool {
			if !pc.hasSection || strings.TrimSpace(pc.frags[i].Text) == "" {
				return false
			}
			return float64(pc.frags[i].RowKey()) > pc.sectionY &&
				!pc.cands.date[i] && !pc.cands.decimal[i]
		},
		act: markFragment,
	},
}

// Decide runs the second pass and the registry sweep. The amounts left in
// the registry once every fragment has been decided are marked as well.
func Decide(frags []layout.Fragment, c *Candidates, p *Patterns, sectionY float64, hasSection bool) *PagePlan {
	pc := &pageContext{
		frags:      frags,
		cands:      c,
		patterns:   p,
		amounts:    c.amounts.clone(),
		sectionY:   sectionY,
		hasSection: hasSection,
	}
	plan := &PagePlan{
		SectionY:   sectionY,
		HasSection: hasSection,
		Decisions:  make([]Decision, len(frags)),
	}

	for i, f := range frags {
		d := Decision{Fragment: i, Text: f.Text}
		for _, r := range rules {
			if !r.match(pc, i) {
				continue
			}
			d.Rule = r.name
			d.Marked = r.act(pc, i)
			break
		}
		if d.Marked {
			plan.Marks = append(plan.Marks, Mark{Rect: f.BBox, Fragment: i, Text: f.Text, Rule: d.Rule})
		}
		plan.Decisions[i] = d
	}

	for _, i := range pc.amounts.remaining() {
		plan.Marks = append(plan.Marks, Mark{Rect: frags[i].BBox, Fragment: i, Text: frags[i].Text, Rule: RuleUnmatchedAmount})
		if !plan.Decisions[i].Marked {
			plan.Decisions[i].Marked = true
			if plan.Decisions[i].Rule == RuleNone {
				plan.Decisions[i].Rule = RuleUnmatchedAmount
			}
		}
	}
	return plan
}

// Classifier applies the two-pass heuristic to the pages of a statement
type Classifier struct {
	cfg      Config
	patterns *Patterns
}

// NewClassifier validates cfg and compiles its patterns.
func NewClassifier(cfg Config) (*Classifier, error) {
	if cfg.RowTolerance < 0 {
		return nil, fmt.Errorf("row tolerance must not be negative, got %d", cfg.RowTolerance)
	}
	switch cfg.Registry {
	case "":
		cfg.Registry = RegistryOverwrite
	case RegistryOverwrite, RegistryMulti:
	default:
		return nil, fmt.Errorf("unknown registry mode %q", cfg.Registry)
	}
	p, err := Compile(cfg)
	if err != nil {
		return nil, err
	}
	return &Classifier{cfg: cfg, patterns: p}, nil
}

// Patterns returns the compiled patterns
func (c *Classifier) Patterns() *Patterns { return c.patterns }

// LocateSectionBoundary finds the configured section title on a page
func (c *Classifier) LocateSectionBoundary(frags []layout.Fragment) (float64, bool) {
	return LocateSectionBoundary(frags, c.cfg.SectionTitle)
}

// ClassifyPage decides which fragments of a page to black out.
func (c *Classifier) ClassifyPage(frags []layout.Fragment, wl Whitelist, sectionY float64, hasSection bool) *PagePlan {
	cands := CollectCandidates(frags, c.patterns, wl, c.cfg)
	return Decide(frags, cands, c.patterns, sectionY, hasSection)
}

// Plan locates the section boundary and classifies the page in one call
func (c *Classifier) Plan(page int, frags []layout.Fragment, wl Whitelist) *PagePlan {
	y, ok := c.LocateSectionBoundary(frags)
	plan := c.ClassifyPage(frags, wl, y, ok)
	plan.Page = page
	return plan
}
