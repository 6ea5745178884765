package tracking

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Codes is a list of operation code patterns. In JSON it may be written as a single
// number or string, or as an array of them.
type Codes []string

func (c *Codes) UnmarshalJSON(data []byte) error {
	var list []json.RawMessage
	if err := json.Unmarshal(data, &list); err != nil {
		list = []json.RawMessage{data}
	}
	res := make(Codes, 0, len(list))
	for _, raw := range list {
		code, err := codeString(raw)
		if err != nil {
			return err
		}
		res = append(res, code)
	}
	*c = res
	return nil
}

func codeString(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), nil
	}
	return "", fmt.Errorf("invalid operation code %s", string(raw))
}

// Rule maps carrier operation codes to a local order status.
type Rule struct {
	Codes          Codes `json:"codes"`
	Exclude        Codes `json:"exclude,omitempty"`
	StatusID       int   `json:"status_id"`
	IncludeAddress bool  `json:"include_address,omitempty"`
}

type RuleSet []Rule

// Resolve finds the rule for an operation code. An exclude pattern matching in any
// rule rejects the code for the whole set.
func (rs RuleSet) Resolve(code string) (Rule, bool) {
	for _, r := range rs {
		for _, p := range r.Exclude {
			if Matches(p, code) {
				return Rule{}, false
			}
		}
		for _, p := range r.Codes {
			if Matches(p, code) {
				return r, true
			}
		}
	}
	return Rule{}, false
}

// Matches reports whether the dotted code matches the pattern. Codes are compared as
// strings, "*" matches any segment and only the pattern's own segments are checked.
func Matches(pattern, code string) bool {
	pattern, code = strings.TrimSpace(pattern), strings.TrimSpace(code)
	if pattern == code {
		return true
	}
	want := strings.Split(pattern, ".")
	got := strings.Split(code, ".")
	for i, p := range want {
		if p == "*" {
			continue
		}
		if i >= len(got) || got[i] != p {
			return false
		}
	}
	return true
}
