package language

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUnknown is returned for input that names no supported language.
var ErrUnknown = errors.New("unknown language")

// supported lists the base languages accepted as source or target.
var supported = []string{
	"en", "es", "fr", "de", "it", "pt", "ja", "ko", "zh", "ru", "ar", "hi",
	"nl", "pl", "sv", "da", "no", "fi", "ro", "tr", "uk", "cs", "el", "hu",
}

// bibliographic maps ISO 639-2/B codes that x/text does not resolve.
var bibliographic = map[string]string{
	"fre": "fr", "ger": "de", "chi": "zh", "dut": "nl", "rum": "ro", "gre": "el", "cze": "cs",
}

var (
	namer   = display.English.Languages()
	byWord  map[string]string
	byBase  map[string]struct{}
	matcher language.Matcher
)

func init() {
	byWord = make(map[string]string, len(supported))
	byBase = make(map[string]struct{}, len(supported))
	tags := make([]language.Tag, 0, len(supported))
	for _, code := range supported {
		tag := language.Make(code)
		tags = append(tags, tag)
		byBase[code] = struct{}{}
		byWord[strings.ToLower(namer.Name(tag))] = code
	}
	matcher = language.NewMatcher(tags)
}

// Normalize converts a language code, tag, or English name ("German", "deu",
// "de-AT") to its ISO 639-1 base code.
func Normalize(input string) (string, error) {
	code := strings.ToLower(strings.TrimSpace(input))
	if code == "" {
		return "", fmt.Errorf("%w: empty", ErrUnknown)
	}
	if mapped, ok := byWord[code]; ok {
		return mapped, nil
	}
	if mapped, ok := bibliographic[code]; ok {
		return mapped, nil
	}
	tag, err := language.Parse(code)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrUnknown, input)
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return "", fmt.Errorf("%w: %q", ErrUnknown, input)
	}
	if _, ok := byBase[base.String()]; !ok {
		return "", fmt.Errorf("%w: %q is not supported", ErrUnknown, input)
	}
	return base.String(), nil
}

// ToISO2 is Normalize without the error; unknown input yields "".
func ToISO2(input string) string {
	code, err := Normalize(input)
	if err != nil {
		return ""
	}
	return code
}

// ToISO3 converts any recognized language to ISO 639-2 (3-letter), the form
// container metadata expects. Returns "und" for unrecognized input.
func ToISO3(input string) string {
	code, err := Normalize(input)
	if err != nil {
		return "und"
	}
	base, _ := language.Make(code).Base()
	return base.ISO3()
}

// DisplayName returns the English name for any recognized language.
// Returns "Unknown" for empty input, or the uppercased input otherwise.
func DisplayName(input string) string {
	if strings.TrimSpace(input) == "" {
		return "Unknown"
	}
	code, err := Normalize(input)
	if err != nil {
		return strings.ToUpper(strings.TrimSpace(input))
	}
	return namer.Name(language.Make(code))
}

// Closest returns the supported language best matching a free-form tag such
// as an Accept-Language value, or "" when nothing matches.
func Closest(input string) string {
	tags, _, err := language.ParseAcceptLanguage(input)
	if err != nil || len(tags) == 0 {
		return ""
	}
	_, index, confidence := matcher.Match(tags...)
	if confidence == language.No {
		return ""
	}
	return supported[index]
}

// Supported returns the accepted base codes in display order.
func Supported() []string {
	return append([]string(nil), supported...)
}
