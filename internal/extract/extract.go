package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Canonical field keys. The record is open-ended; these are the keys the
// heuristics and the post-call analysis payload are known to produce.
const (
	FieldName         = "name"
	FieldEmail        = "email"
	FieldOrganization = "organization"
	FieldUseCase      = "useCase"
	FieldIntent       = "intent"
	FieldCompany      = "company"
	FieldPhone        = "phone"
)

// Data maps field names to scraped values. A field is present only when its
// value is non-empty; Merge preserves that invariant.
type Data map[string]string

var emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)

// namePatterns are tried in order; the first pattern whose capture trims to a
// plausible name length wins and the rest are skipped.
var namePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:my name is|i'm|i am|call me)\s+([a-zA-Z\s]+?)(?:\.|,|$|\s+and|\s+from|\s+my)`),
	regexp.MustCompile(`(?i)(?:name[:']?\s*)([a-zA-Z\s]+?)(?:\.|,|$|\s+and|\s+from|\s+my)`),
	regexp.MustCompile(`(?i)(?:actually|sorry|correction|my name should be|it's actually)\s+([a-zA-Z\s]+?)(?:\.|,|$|\s+and|\s+from)`),
}

// orgPatterns follow the same first-match-wins policy as namePatterns.
var orgPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:work at|from|company is|organization is|employed at|with)\s+([a-zA-Z0-9\s&.,-]+?)(?:\.|,|$|\s+and|\s+as)`),
	regexp.MustCompile(`(?i)(?:at|for)\s+([a-zA-Z0-9\s&.,-]+?)(?:\.|,|$|\s+for|\s+as|\s+in)`),
	regexp.MustCompile(`(?i)(?:company[:']?\s*)([a-zA-Z0-9\s&.,-]+?)(?:\.|,|$|\s+and)`),
}

// FromText scrapes only fields that are safe to take from arbitrary text.
// Currently that is just the email address.
func FromText(text string) Data {
	d := Data{}
	if m := emailRe.FindString(text); m != "" {
		d[FieldEmail] = m
	}
	return d
}

// FromTranscript applies the phrase heuristics to a single transcript
// fragment. Personal fields are scraped from user utterances only; assistant
// speech frequently echoes names back and must not be trusted as a source.
func FromTranscript(transcript, role string) Data {
	d := Data{}
	if role != "user" {
		return d
	}

	for _, re := range namePatterns {
		m := re.FindStringSubmatch(transcript)
		if m == nil {
			continue
		}
		name := strings.TrimSpace(m[1])
		if len(name) > 1 && len(name) < 50 {
			d[FieldName] = name
			break
		}
	}

	if m := emailRe.FindString(transcript); m != "" {
		d[FieldEmail] = m
	}

	for _, re := range orgPatterns {
		m := re.FindStringSubmatch(transcript)
		if m == nil {
			continue
		}
		org := strings.TrimSpace(m[1])
		if len(org) > 1 && len(org) < 100 {
			d[FieldOrganization] = org
			break
		}
	}

	return d
}

// FromFunctionResult reads lookalike keys straight out of a tool/function
// call result object. No regex involved; values are coerced to strings.
func FromFunctionResult(result map[string]any) Data {
	d := Data{}
	if result == nil {
		return d
	}
	if v := stringify(result["name"]); v != "" {
		d[FieldName] = v
	}
	if v := stringify(result["email"]); v != "" {
		d[FieldEmail] = v
	}
	if v := firstNonEmpty(stringify(result["organization"]), stringify(result["company"])); v != "" {
		d[FieldOrganization] = v
	}
	if v := firstNonEmpty(stringify(result["useCase"]), stringify(result["use_case"])); v != "" {
		d[FieldUseCase] = v
	}
	return d
}

// Merge folds incoming into existing and returns the result as a new map.
// Only non-empty incoming values are taken; everything else keeps the
// existing value. Repeated merges of the same payload are idempotent.
func Merge(existing, incoming Data) Data {
	merged := make(Data, len(existing)+len(incoming))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range incoming {
		if v != "" {
			merged[k] = v
		}
	}
	return merged
}

func stringify(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	default:
		return fmt.Sprint(v)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
