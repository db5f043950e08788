package password

import (
	"errors"
	"strings"
	"unicode"
)

const MinLen = 8

var ErrTooShort = errors.New("password must be at least 8 characters")

// Warning is advisory; weak passwords above MinLen are still accepted.
type Warning struct {
	Score       int      `json:"score"` // 0..4
	Message     string   `json:"message"`
	Suggestions []string `json:"suggestions"`
}

// Check trims pwd and rejects it only when shorter than MinLen. hints are
// user-supplied strings (name, email) that make a password predictable.
func Check(pwd string, hints ...string) (trimmed string, warn *Warning, err error) {
	trimmed = strings.TrimSpace(pwd)
	if len([]rune(trimmed)) < MinLen {
		return trimmed, nil, ErrTooShort
	}
	if score, msg, sugg := strength(trimmed, hints...); score < 3 {
		warn = &Warning{Score: score, Message: msg, Suggestions: sugg}
	}
	return trimmed, warn, nil
}

func charClasses(pwd string) int {
	var lower, upper, digit, other bool
	for _, r := range pwd {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			other = true
		}
	}
	n := 0
	for _, b := range []bool{lower, upper, digit, other} {
		if b {
			n++
		}
	}
	return n
}

func strength(pwd string, hints ...string) (int, string, []string) {
	l := len([]rune(pwd))
	classes := charClasses(pwd)

	lp := strings.ToLower(pwd)
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if local, _, ok := strings.Cut(h, "@"); ok {
			h = local
		}
		if len(h) >= 3 && strings.Contains(lp, h) && l < 16 && classes > 1 {
			classes--
			break
		}
	}

	switch {
	case l >= 14 && classes >= 3:
		return 4, "", nil
	case l >= 12 && classes >= 3:
		return 3, "", []string{"Consider a longer passphrase."}
	case l >= 10 && classes >= 2:
		return 2, "Short or low variety.", []string{"Add length and mix letters, numbers and symbols."}
	default:
		return 1, "Too short or predictable.", []string{"Use at least 12 characters with mixed types."}
	}
}
