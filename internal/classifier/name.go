package classifier

import (
	"fmt"
	"regexp"
	"strings"
)

// SessionType is what a tournament lobby is used for.
type SessionType int

const (
	SessionStandard SessionType = iota
	SessionTrial
	SessionQualifier
)

func (t SessionType) String() string {
	switch t {
	case SessionStandard:
		return "standard"
	case SessionTrial:
		return "trial"
	case SessionQualifier:
		return "qualifier"
	}
	return fmt.Sprintf("session_type(%d)", int(t))
}

var namePattern = regexp.MustCompile(`(?i)^\s*([^:]+?)\s*:\s*\(?(.+?)\)?\s+vs\.?\s+\(?(.+?)\)?\s*$`)

// Name is a parsed tournament lobby name.
type Name struct {
	Acronym string
	Red     string
	Blue    string
}

// ParseName matches "ACRONYM: (Team A) vs (Team B)". Parentheses and the
// dot after vs are optional.
func ParseName(name string) (Name, bool) {
	m := namePattern.FindStringSubmatch(name)
	if m == nil {
		return Name{}, false
	}
	n := Name{
		Acronym: strings.TrimSpace(m[1]),
		Red:     strings.TrimSpace(m[2]),
		Blue:    strings.TrimSpace(m[3]),
	}
	if n.Acronym == "" || n.Red == "" || n.Blue == "" {
		return Name{}, false
	}
	return n, true
}

// IsTournament reports whether a lobby name looks like a tournament match.
func IsTournament(name string) bool {
	_, ok := ParseName(name)
	return ok
}

var (
	trialKeywords     = []string{"tryout", "trial"}
	qualifierKeywords = []string{"qualifier", "quals"}
)

// TypeOf classifies a lobby from keywords in its name or team names.
func TypeOf(sessionName string, n Name) SessionType {
	text := strings.ToLower(strings.Join([]string{sessionName, n.Red, n.Blue}, " "))
	for _, k := range trialKeywords {
		if strings.Contains(text, k) {
			return SessionTrial
		}
	}
	for _, k := range qualifierKeywords {
		if strings.Contains(text, k) {
			return SessionQualifier
		}
	}
	return SessionStandard
}
