// Package binding expands the placeholders that may appear in label text:
//
//	{{counter}}           the label's counter value
//	{{datetime}}          the label's timestamp, "%Y-%m-%d %H:%M:%S"
//	{{datetime:FORMAT}}   the timestamp in strftime notation
//	{{uuid}}              a random version 4 UUID
//	{{env:NAME}}          an environment variable
//
// Placeholders that are unknown, not closed or carry a bad datetime format
// are kept verbatim.
package binding

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/google/uuid"
	"github.com/lestrrat-go/strftime"
)

var (
	templateLexer = lexer.MustStateful(lexer.Rules{
		"Root": {
			{Name: "Open", Pattern: `\{\{`, Action: lexer.Push("Tag")},
			{Name: "Text", Pattern: `[^{]+|\{`},
		},
		"Tag": {
			{Name: "Close", Pattern: `\}\}`, Action: lexer.Pop()},
			{Name: "Name", Pattern: `[A-Za-z_]+`},
			{Name: "Arg", Pattern: `:(?:[^}]|\}[^}])*`},
			{Name: "Space", Pattern: `\s+`},
			{Name: "Junk", Pattern: `.`},
		},
	})

	templateParser = participle.MustBuild[template](
		participle.Lexer(templateLexer),
		participle.UseLookahead(2),
	)
)

type template struct {
	Segments []*segment `parser:"@@*"`
}

type segment struct {
	Text string       `parser:"  @Text"`
	Tag  *placeholder `parser:"| @@"`
}

type placeholder struct {
	Body  []string `parser:"'{{' @(Name | Arg | Space | Junk)*"`
	Close string   `parser:"@'}}'?"`
}

// Context carries the values a template can refer to.
type Context struct {
	Counter int
	// Now is used for {{datetime}}; zero means time.Now.
	Now time.Time
	// Env looks up {{env:NAME}}; nil means os.LookupEnv.
	Env func(string) (string, bool)
}

// HasPlaceholders reports whether text contains anything Expand would
// rewrite.
func HasPlaceholders(text string) bool {
	return strings.Contains(text, "{{")
}

// Expand substitutes the placeholders of text.
func Expand(text string, ctx Context) string {
	if !HasPlaceholders(text) {
		return text
	}
	tpl, err := templateParser.ParseString("", text)
	if err != nil {
		return text
	}
	var b strings.Builder
	for _, seg := range tpl.Segments {
		if seg.Tag == nil {
			b.WriteString(seg.Text)
			continue
		}
		if v, ok := seg.Tag.eval(ctx); ok {
			b.WriteString(v)
			continue
		}
		b.WriteString("{{")
		b.WriteString(strings.Join(seg.Tag.Body, ""))
		b.WriteString(seg.Tag.Close)
	}
	return b.String()
}

func (p *placeholder) eval(ctx Context) (string, bool) {
	if p.Close == "" {
		return "", false
	}
	var name, arg string
	hasArg := false
	for _, tok := range p.Body {
		switch {
		case strings.TrimSpace(tok) == "":
		case strings.HasPrefix(tok, ":") && name != "" && !hasArg:
			arg, hasArg = tok[1:], true
		case name == "" && !hasArg && isName(tok):
			name = tok
		default:
			return "", false
		}
	}
	switch strings.ToLower(name) {
	case "counter":
		if hasArg {
			return "", false
		}
		return strconv.Itoa(ctx.Counter), true
	case "datetime":
		now := ctx.Now
		if now.IsZero() {
			now = time.Now()
		}
		format := strings.TrimSpace(arg)
		if format == "" {
			format = "%Y-%m-%d %H:%M:%S"
		}
		out, err := Strftime(now, format)
		if err != nil {
			return "", false
		}
		return out, true
	case "uuid":
		if hasArg {
			return "", false
		}
		return uuid.NewString(), true
	case "env":
		key := strings.TrimSpace(arg)
		if key == "" {
			return "", false
		}
		lookup := ctx.Env
		if lookup == nil {
			lookup = os.LookupEnv
		}
		v, _ := lookup(key)
		return v, true
	}
	return "", false
}

func isName(tok string) bool {
	for _, r := range tok {
		if r != '_' && (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') {
			return false
		}
	}
	return tok != ""
}

// Strftime formats t using strftime directives. Unknown directives and a
// trailing % are errors.
func Strftime(t time.Time, format string) (string, error) {
	return strftime.Format(format, t)
}
