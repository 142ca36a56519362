// Package rules turns raw names into standardized names. It is pure: the
// same name, rules, options and reference time always give the same result.
package rules

import (
	"strings"
	"time"
	"unicode"

	"vaultnorm/internal/errors"
	"vaultnorm/internal/log"
	"vaultnorm/pkg/types"

	"github.com/dlclark/regexp2"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fallback is returned when the rules reduce a name to nothing.
const Fallback = "unnamed"

// Options controls the {{DATE}} placeholder.
type Options struct {
	UseCreationDate bool
	DateFormat      string
	// Now supplies the reference time when none is given. Defaults to time.Now.
	Now func() time.Time
}

type step struct {
	rule    types.Rule
	re      *regexp2.Regexp
	replace string
}

// Pipeline is a compiled, ordered rule list. It is safe for concurrent use.
type Pipeline struct {
	steps []step
	opts  Options
}

// Compile prepares the active rules. Rules whose pattern does not compile
// are left out and reported, each as a RuleError; the others still run.
// Patterns use JavaScript regex syntax and are applied to every match.
func Compile(rs []types.Rule, opts Options) (*Pipeline, []error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	p := &Pipeline{opts: opts}
	var errs []error
	for _, r := range rs {
		if !r.Active {
			continue
		}
		re, err := regexp2.Compile(r.Pattern, regexp2.ECMAScript)
		if err != nil {
			ruleErr := errors.NewRuleError("invalid pattern", r.Name, errors.InvalidRule, err)
			log.LogWithError(ruleErr).Warn("Skipping rule with invalid pattern")
			errs = append(errs, ruleErr)
			continue
		}
		p.steps = append(p.steps, step{rule: r, re: re, replace: replacementTemplate(r.Replace)})
	}
	return p, errs
}

// Len returns the number of rules that will run.
func (p *Pipeline) Len() int {
	return len(p.steps)
}

// Apply standardizes name. ref is the timestamp rendered into {{DATE}};
// the zero time means "now".
func (p *Pipeline) Apply(name string, ref time.Time) string {
	name = Normalize(name)

	var date string
	for _, s := range p.steps {
		replacement := s.replace
		if p.opts.UseCreationDate && strings.Contains(replacement, types.DatePlaceholder) {
			if date == "" {
				if ref.IsZero() {
					ref = p.opts.Now()
				}
				date = strings.ReplaceAll(FormatDate(ref, p.opts.DateFormat), "$", "$$")
			}
			replacement = strings.ReplaceAll(replacement, types.DatePlaceholder, date)
		}

		out, err := s.re.Replace(name, replacement, -1, -1)
		if err != nil {
			ruleErr := errors.NewRuleError("rule failed", s.rule.Name, errors.InvalidRule, err)
			log.LogWithError(ruleErr).Warn("Skipping rule")
			continue
		}
		name = out
	}

	if strings.TrimSpace(name) == "" {
		return Fallback
	}
	return name
}

// replacementTemplate rewrites a JavaScript replacement string into the
// form regexp2 expands. "$<name>" becomes "${name}". "$0", "$_", "$+" and
// "${" mean something to regexp2 but are plain text in JavaScript, so their
// dollar is escaped. "$n", "$nn", "$&", "$`", "$'" and "$$" are the same in
// both.
func replacementTemplate(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i+1 == len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch next := s[i+1]; {
		case next == '$':
			b.WriteString("$$")
			i++
		case next == '<':
			end := strings.IndexByte(s[i+2:], '>')
			if end < 0 {
				b.WriteString("$$")
				continue
			}
			b.WriteString("${" + s[i+2:i+2+end] + "}")
			i += end + 2
		case next == '0' && (i+2 == len(s) || s[i+2] < '1' || s[i+2] > '9'),
			next == '_', next == '+', next == '{':
			b.WriteString("$$")
		default:
			b.WriteByte('$')
		}
	}
	return b.String()
}

// Apply compiles rs and standardizes name in one call.
func Apply(name string, rs []types.Rule, opts Options, ref time.Time) string {
	p, _ := Compile(rs, opts)
	return p.Apply(name, ref)
}

// Normalize lower-cases s, decomposes it (NFD) and drops combining
// diacritical marks (U+0300–U+036F), leaving the base letters.
func Normalize(s string) string {
	s = cases.Lower(language.Und).String(s)
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(combiningDiacritics)))
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

var combiningDiacritics = &unicode.RangeTable{
	R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}},
}
