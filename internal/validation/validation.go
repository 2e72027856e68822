// Package validation holds the field rules applied to user and request input.
// Every validator is pure and reports failures as *Error.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	apperrors "github.com/spec-kit/maintenance-tracker/pkg/util"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindMissing     Kind = "missing"
	KindTooShort    Kind = "too_short"
	KindTooLong     Kind = "too_long"
	KindSyntax      Kind = "syntax"
	KindSpacing     Kind = "spacing"
	KindPunctuation Kind = "punctuation"
	KindInvalid     Kind = "invalid"
)

// Error is a field validation failure. Message is returned to callers verbatim.
type Error struct {
	Field   string
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// Unwrap exposes the failure as a 400 domain error.
func (e *Error) Unwrap() error {
	return apperrors.NewValidationError(e.Message, map[string]any{
		"field": e.Field,
		"kind":  string(e.Kind),
	})
}

func newError(field string, kind Kind, format string, args ...any) *Error {
	return &Error{Field: field, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

const (
	// Punctuation is the ASCII punctuation set.
	Punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	passwordSymbols = "!@#$%^;*()_+}{:'?/.,"

	titleMinLength       = 10
	titleMaxLength       = 70
	descriptionMinLength = 40
	descriptionMaxLength = 250
	passwordMinLength    = 12
	passwordMaxLength    = 80
	questionMinLength    = 10
	questionMaxLength    = 50
	answerMinLength      = 5
	answerMaxLength      = 20
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+(\.[a-zA-Z0-9-]+)*\.[a-zA-Z0-9-]+$`)

// Required reports a missing value for the named parameter.
func Required(name, value string) error {
	if value == "" {
		return newError(name, KindMissing, "missing '%s' parameter", name)
	}
	return nil
}

// Email validates the local@domain.tld shape.
func Email(value string) error {
	if err := Required("email", value); err != nil {
		return err
	}
	if !emailPattern.MatchString(value) {
		return newError("email", KindSyntax, "email address syntax is invalid")
	}
	return nil
}

// Password enforces length, character classes and the allowed symbol set.
func Password(value string) error {
	if err := Required("password", value); err != nil {
		return err
	}
	const msg = "password syntax is invalid"
	length := utf8.RuneCountInString(value)
	if length < passwordMinLength {
		return newError("password", KindTooShort, msg)
	}
	if length > passwordMaxLength {
		return newError("password", KindTooLong, msg)
	}

	var digit, lower, upper, symbol bool
	for _, r := range value {
		switch {
		case unicode.IsSpace(r):
			return newError("password", KindSyntax, msg)
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case strings.ContainsRune(passwordSymbols, r):
			symbol = true
		}
	}
	if !digit || !lower || !upper || !symbol {
		return newError("password", KindSyntax, msg)
	}
	return nil
}

// SecurityQuestion validates a "Wh..."/"Are..." question ending in a single '?'.
func SecurityQuestion(value string) error {
	const name = "security question"
	if err := Required("security_question", value); err != nil {
		return err
	}
	if !hasAnyPrefix(value, "Wh", "wh", "Are", "are") {
		return newError(name, KindSyntax, "%s must start with a 'Wh' or a 'Are' question", name)
	}
	if !strings.HasSuffix(value, "?") {
		return newError(name, KindSyntax, "%s must end with a question mark '?'", name)
	}
	if strings.ContainsAny(strings.TrimSuffix(value, "?"), Punctuation) {
		return newError(name, KindPunctuation, "%s must not contain any punctuations mid sentence", name)
	}
	if err := checkLength(name, value, questionMinLength, questionMaxLength); err != nil {
		return err
	}
	return nil
}

// SecurityAnswer validates a plain, single-spaced answer.
func SecurityAnswer(value string) error {
	const name = "security answer"
	if err := Required("security_answer", value); err != nil {
		return err
	}
	if strings.ContainsAny(value, Punctuation) {
		return newError(name, KindPunctuation, "%s must not contain any punctuations", name)
	}
	if hasEmptyToken(value) {
		return newError(name, KindSpacing, "Please check the spacing on your %s", name)
	}
	length := utf8.RuneCountInString(value)
	if length > answerMaxLength {
		return newError(name, KindTooLong, "%s too long. Max of %d characters", name, answerMaxLength)
	}
	if length < answerMinLength {
		return newError(name, KindTooShort, "%s is too short. Min of %d characters", name, answerMinLength)
	}
	return nil
}

// Title validates a request title.
func Title(value string) error {
	return requestText("title", value, titleMinLength, titleMaxLength)
}

// Description validates a request description.
func Description(value string) error {
	return requestText("description", value, descriptionMinLength, descriptionMaxLength)
}

func requestText(name, value string, min, max int) error {
	if err := Required(name, value); err != nil {
		return err
	}
	length := utf8.RuneCountInString(value)
	if length > max {
		return newError(name, KindTooLong, "%s too long. Max of %d characters allowed", name, max)
	}
	if length < min {
		return newError(name, KindTooShort, "%s too short. Min of %d characters allowed", name, min)
	}

	first, _ := utf8.DecodeRuneInString(value)
	last, _ := utf8.DecodeLastRuneInString(value)
	if !(isAlnum(first) || strings.ContainsRune(`'"(`, first)) ||
		!(isAlnum(last) || strings.ContainsRune(`'").?!`, last)) {
		return newError(name, KindInvalid, "please enter a valid %s", name)
	}

	if hasEmptyToken(value) {
		return newError(name, KindSpacing, "Please check the spacing on your %s", name)
	}

	for _, word := range strings.Split(value, " ") {
		if !wordPunctuationOK(word) {
			return newError(name, KindPunctuation, "please check the punctuation in your %s", name)
		}
	}
	return nil
}

// wordPunctuationOK rejects adjacent punctuation except an ellipsis of at most
// three periods or a sentence end followed by a closing quote.
func wordPunctuationOK(word string) bool {
	runes := []rune(word)
	periods := 0
	for i, r := range runes {
		if r == '.' {
			periods++
			if periods > 3 {
				return false
			}
		} else {
			periods = 0
		}
		if i == 0 {
			continue
		}
		prev := runes[i-1]
		if !isPunct(prev) || !isPunct(r) {
			continue
		}
		if prev == '.' && r == '.' {
			continue
		}
		if strings.ContainsRune(".?!", prev) && strings.ContainsRune(`'"`, r) {
			continue
		}
		return false
	}
	return true
}

func checkLength(name, value string, min, max int) error {
	length := utf8.RuneCountInString(value)
	if length < min {
		return newError(name, KindTooShort, "%s too short. Min of %d characters allowed", name, min)
	}
	if length > max {
		return newError(name, KindTooLong, "%s too long. Max of %d characters allowed", name, max)
	}
	return nil
}

func hasEmptyToken(value string) bool {
	for _, token := range strings.Split(value, " ") {
		if token == "" {
			return true
		}
	}
	return false
}

func hasAnyPrefix(value string, prefixes ...string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(value, p) {
			return true
		}
	}
	return false
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isPunct(r rune) bool {
	return strings.ContainsRune(Punctuation, r)
}
