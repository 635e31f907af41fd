// Package sanitize validates and normalizes untrusted client input.
//
// Every function accepts the raw decoded JSON value (or query string) and
// never fails: malformed input yields a safe default instead of an error.
package sanitize

import (
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxUsernameLength = 20
	MaxChatLength     = 500
	MaxIdLength       = 64
)

var (
	usernameStrip = regexp.MustCompile(`[^A-Za-z0-9_ ]`)
	markupTag     = regexp.MustCompile(`<[^>]*>`)
	idPattern     = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
)

// chatPunctuation lists the non-alphanumeric runes allowed in free text.
const chatPunctuation = " .,!?'\"-_:;()[]@#%&*+=/~$^|`{}"

// Username returns a display name made of letters, digits, underscores and
// spaces. An empty result is replaced by a random guest name.
func Username(raw any) string {
	s, _ := raw.(string)
	s = norm.NFKC.String(strings.TrimSpace(s))
	s = usernameStrip.ReplaceAllString(s, "")
	s = strings.TrimSpace(truncate(s, MaxUsernameLength))
	if s == "" {
		return GuestName()
	}
	return s
}

// GuestName returns a name of the form Guest_NNNN.
func GuestName() string {
	return fmt.Sprintf("Guest_%04d", rand.IntN(10000))
}

// URLPolicy restricts accepted URLs to a single host and file extension.
type URLPolicy struct {
	Host      string
	Extension string
	Default   string
}

// URL returns the trimmed input when it is an http(s) URL on exactly the
// policy's host ending in the policy's extension, and the policy default
// otherwise.
func URL(raw any, policy URLPolicy) string {
	s, ok := raw.(string)
	if !ok {
		return policy.Default
	}
	s = strings.TrimSpace(s)

	u, err := url.Parse(s)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") {
		return policy.Default
	}

	host := strings.ToLower(u.Hostname())
	allowed := strings.ToLower(policy.Host)
	if allowed == "" || host != allowed {
		return policy.Default
	}

	if policy.Extension != "" && !strings.EqualFold(path.Ext(u.Path), policy.Extension) {
		return policy.Default
	}

	return s
}

// Float reports the numeric value of raw and whether it is a finite number.
// Numeric strings are accepted.
func Float(raw any) (float64, bool) {
	var f float64
	switch v := raw.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int:
		f = float64(v)
	case int64:
		f = float64(v)
	case json.Number:
		n, err := v.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Number parses raw, falling back to def when it is not a finite number, and
// clamps the result to [min, max].
func Number(raw any, def, min, max float64) float64 {
	f, ok := Float(raw)
	if !ok {
		f = def
	}
	return Clamp(f, min, max)
}

// Clamp bounds f to [min, max].
func Clamp(f, min, max float64) float64 {
	if f < min {
		return min
	}
	if f > max {
		return max
	}
	return f
}

// Animation vocabulary.
const (
	AnimationIdle  = "idle"
	AnimationWalk  = "walk"
	AnimationRun   = "run"
	AnimationJump  = "jump"
	AnimationDance = "dance"
	AnimationWave  = "wave"
	AnimationSit   = "sit"
	AnimationClap  = "clap"
)

var animations = map[string]struct{}{
	AnimationIdle:  {},
	AnimationWalk:  {},
	AnimationRun:   {},
	AnimationJump:  {},
	AnimationDance: {},
	AnimationWave:  {},
	AnimationSit:   {},
	AnimationClap:  {},
}

// AnimationState returns raw as a member of the animation vocabulary, or idle.
func AnimationState(raw any) string {
	s, _ := raw.(string)
	s = strings.ToLower(strings.TrimSpace(s))
	if _, ok := animations[s]; ok {
		return s
	}
	return AnimationIdle
}

// ChatMessage sanitizes a chat line.
func ChatMessage(raw any) string {
	return Text(raw, MaxChatLength)
}

// Text strips markup tags and control characters, drops runes outside the
// safe character class and truncates to max runes.
func Text(raw any, max int) string {
	s, _ := raw.(string)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}
	s = markupTag.ReplaceAllString(s, "")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if safeRune(r) {
			b.WriteRune(r)
		}
	}

	return truncate(b.String(), max)
}

func safeRune(r rune) bool {
	if unicode.IsControl(r) {
		return false
	}
	if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
		return true
	}
	return strings.ContainsRune(chatPunctuation, r)
}

// Id returns raw when it is a short identifier made of letters, digits,
// underscores and hyphens, and "" otherwise.
func Id(raw any) string {
	s, _ := raw.(string)
	s = strings.TrimSpace(s)
	if len(s) > MaxIdLength || !idPattern.MatchString(s) {
		return ""
	}
	return s
}

func truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
