package tracking

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"carriersync/internal/carrier"
)

// Operation is a carrier tracking event already mapped to a local status.
type Operation struct {
	DateText    string
	Time        int64
	Code        string
	StatusID    int
	Description string
}

// OperationCode builds "<type>[.<attribute>]"; a zero attribute is the same as none.
func OperationCode(r carrier.HistoryRecord) string {
	code := strings.TrimSpace(r.OperTypeID)
	if attr := strings.TrimSpace(r.OperAttrID); attr != "" && attr != "0" {
		code += "." + attr
	}
	return code
}

// Operations maps raw history records through the rule set. Records with an unmapped
// code or an unreadable date are dropped.
func (rs RuleSet) Operations(records []carrier.HistoryRecord) []Operation {
	ops := make([]Operation, 0, len(records))
	for _, r := range records {
		code := OperationCode(r)
		rule, ok := rs.Resolve(code)
		if !ok {
			continue
		}
		t, err := parseOperDate(r.OperDate)
		if err != nil {
			slog.Warn("skipping operation with bad date", "code", code, "date", r.OperDate, "error", err)
			continue
		}
		ops = append(ops, Operation{
			DateText:    r.OperDate,
			Time:        t.Unix(),
			Code:        code,
			StatusID:    rule.StatusID,
			Description: describe(r, rule.IncludeAddress),
		})
	}
	return ops
}

func describe(r carrier.HistoryRecord, includeAddress bool) string {
	desc := strings.TrimSpace(r.OperTypeName)
	if r.OperAttrName != "" {
		desc += " / " + r.OperAttrName
	}
	if includeAddress {
		desc += " / " + r.AddressIndex + " " + r.AddressDescription
	}
	return desc
}

var operDateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseOperDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range operDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unknown date format %q", s)
}
