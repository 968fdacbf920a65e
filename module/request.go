package module

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var ErrUnterminatedQuote = errors.New("unterminated quote")

// Caller identifies who invoked a command and where.
type Caller struct {
	UserID      string
	GuildID     string
	ChannelID   string
	Permissions int64
}

// Request is what a leaf handler receives.
type Request struct {
	// Args is the raw text after the command path.
	Args    string
	Options map[string]string
	Caller  Caller
	Module  *Module
}

func (r *Request) Option(name string) string {
	return r.Options[strings.ToLower(name)]
}

func (r *Request) HasOption(name string) bool {
	_, ok := r.Options[strings.ToLower(name)]
	return ok
}

type token struct {
	text  string
	start int
}

// fields splits on whitespace and remembers where each field starts so the
// unconsumed tail can be handed over untouched.
func fields(s string) []token {
	var out []token
	start := -1
	for i, r := range s {
		if unicode.IsSpace(r) {
			if start >= 0 {
				out = append(out, token{s[start:i], start})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, token{s[start:], start})
	}
	return out
}

// splitArgs splits on whitespace outside of single or double quotes.
// Backslash escapes the next character inside double quotes.
func splitArgs(s string) ([]string, error) {
	var (
		out     []string
		cur     strings.Builder
		inField bool
		quote   rune
		escaped bool
	)
	for _, r := range s {
		switch {
		case escaped:
			cur.WriteRune(r)
			escaped = false
		case quote == '"' && r == '\\':
			escaped = true
		case quote != 0:
			if r == quote {
				quote = 0
				continue
			}
			cur.WriteRune(r)
		case r == '"' || r == '\'':
			quote = r
			inField = true
		case unicode.IsSpace(r):
			if inField {
				out = append(out, cur.String())
				cur.Reset()
				inField = false
			}
		default:
			cur.WriteRune(r)
			inField = true
		}
	}
	if quote != 0 || escaped {
		return nil, ErrUnterminatedQuote
	}
	if inField {
		out = append(out, cur.String())
	}
	return out, nil
}

// ParseOptions reads key=value pairs from args. Bare words fill the declared
// options that were not named, in order; leftover words are appended to the
// last declared option.
func ParseOptions(args string, declared []Option) (map[string]string, error) {
	words, err := splitArgs(args)
	if err != nil {
		return nil, err
	}

	opts := make(map[string]string)
	var positional []string
	for _, w := range words {
		key, value, ok := strings.Cut(w, "=")
		if ok && isOptionName(key, declared) {
			opts[strings.ToLower(key)] = value
			continue
		}
		positional = append(positional, w)
	}

	if len(declared) == 0 {
		return opts, nil
	}

	var free []Option
	for _, o := range declared {
		if _, ok := opts[o.Name]; !ok {
			free = append(free, o)
		}
	}
	for i, w := range positional {
		if len(free) == 0 {
			return nil, fmt.Errorf("unexpected argument %q", w)
		}
		if i < len(free) {
			opts[free[i].Name] = w
			continue
		}
		last := free[len(free)-1].Name
		opts[last] += " " + w
	}
	return opts, nil
}

func isOptionName(key string, declared []Option) bool {
	if len(declared) == 0 {
		return key != ""
	}
	for _, o := range declared {
		if strings.EqualFold(o.Name, key) {
			return true
		}
	}
	return false
}

var userMention = regexp.MustCompile(`^<@!?(\d+)>$`)

// TrimUserID turns a mention such as <@!123> into 123.
func TrimUserID(s string) string {
	s = strings.TrimSpace(s)
	if m := userMention.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

var snowflake = regexp.MustCompile(`^\d{15,21}$`)

// IsSnowflake reports whether s looks like a Discord id.
func IsSnowflake(s string) bool {
	return snowflake.MatchString(s)
}
