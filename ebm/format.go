package ebm

import (
	"regexp"
	"strconv"
	"strings"

	"bitbucket.org/medilink/pharmacy_backend/models"
)

const (
	// DefaultBranchCode is sent whenever no branch is configured or a branch
	// name carries no recognizable code.
	DefaultBranchCode = "00"

	ItemTypeGoods   = "1"
	ItemTypeService = "2"
)

var (
	numericTinPattern  = regexp.MustCompile(`^[0-9]+$`)
	branchCodePattern  = regexp.MustCompile(`\b[0-9]{2}\b`)
	nonHexCharsPattern = regexp.MustCompile(`[^0-9a-fA-F]`)
)

// serviceKeywords mark an item as a service on the authority side. Matching
// is a case-insensitive substring check against the item's display name.
var serviceKeywords = []string{
	"service",
	"consultation",
	"repair",
	"training",
	"visit",
	"fee",
}

// FormatTin normalizes a taxpayer identification number for authority calls.
// Purely numeric TINs are left-padded with zeros to 9 digits; anything else
// passes through trimmed (the authority accepts both forms).
func FormatTin(raw string) string {
	tin := strings.TrimSpace(raw)
	if tin == "" || !numericTinPattern.MatchString(tin) {
		return tin
	}
	for len(tin) < 9 {
		tin = "0" + tin
	}
	return tin
}

// ResolveBranchCode extracts the authority branch code from a branch's
// display name: the first standalone 2-digit token, else "00".
func ResolveBranchCode(branch *models.Branch) string {
	if branch == nil {
		return DefaultBranchCode
	}
	if match := branchCodePattern.FindString(branch.Name); match != "" {
		return match
	}
	return DefaultBranchCode
}

// GenerateReference derives a numeric document reference from an internal
// record identifier: separators are stripped, the last 8 hex characters are
// parsed base-16. Deterministic, not globally unique; authority reference
// fields are numeric per-document numbers, not keys.
func GenerateReference(entityId string) int64 {
	hex := nonHexCharsPattern.ReplaceAllString(entityId, "")
	if hex == "" {
		return 0
	}
	if len(hex) > 8 {
		hex = hex[len(hex)-8:]
	}
	ref, err := strconv.ParseInt(hex, 16, 64)
	if err != nil {
		return 0
	}
	return ref
}

// ClassifyItemType returns the authority item type for a display name:
// "2" (service) when any service keyword appears in the name, else "1" (goods).
func ClassifyItemType(name string) string {
	lower := strings.ToLower(name)
	for _, keyword := range serviceKeywords {
		if strings.Contains(lower, keyword) {
			return ItemTypeService
		}
	}
	return ItemTypeGoods
}
