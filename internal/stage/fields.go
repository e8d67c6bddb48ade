package stage

import (
	"regexp"
	"strings"

	"github.com/Aman-Sigroha/kyc/internal/domain"
)

// The field parser is keyword- and pattern-driven. The contract is the
// output shape (all nine keys, null when undetected), not the heuristics.

var (
	dateRe   = regexp.MustCompile(`\b(\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}|\d{4}[/\-.]\d{1,2}[/\-.]\d{1,2})\b`)
	docNumRe = regexp.MustCompile(`\b[A-Z]{1,3}[-\s]?\d{6,12}\b|\b\d{4}[-\s]\d{4}[-\s]\d{4}\b`)
	genderRe = regexp.MustCompile(`(?i)\b(?:sex|gender)\b[:\s]*([MF]|male|female)\b`)
)

var docTypeKeywords = []struct {
	keywords []string
	docType  domain.DocumentType
}{
	{[]string{"passport"}, domain.DocPassport},
	{[]string{"driving licence", "driver's license", "drivers license", "driving license"}, domain.DocDriversLicense},
	{[]string{"national identity", "national id"}, domain.DocNationalID},
	{[]string{"pan card", "permanent account number", "income tax"}, domain.DocPANCard},
	{[]string{"identity card", "id card", "identification card"}, domain.DocIDCard},
}

// ClassifyDocument labels the document from its recognized text.
func ClassifyDocument(text string) domain.DocumentType {
	lower := strings.ToLower(text)
	for _, entry := range docTypeKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(lower, kw) {
				return entry.docType
			}
		}
	}
	return domain.DocOther
}

// ParseFields maps recognized free text onto the structured field set.
// Every key is populated or left null; the parser never fails.
func ParseFields(text string) domain.DocumentFields {
	var fields domain.DocumentFields

	lines := splitLines(text)

	fields.FullName = findLabeled(lines, "name", "full name", "surname")
	fields.DateOfBirth = findLabeledDate(lines, "date of birth", "birth", "dob", "born")
	fields.IssueDate = findLabeledDate(lines, "date of issue", "issue", "issued")
	fields.ExpiryDate = findLabeledDate(lines, "date of expiry", "expiry", "expires", "valid until", "valid thru")
	fields.Nationality = findLabeled(lines, "nationality", "citizenship")
	fields.PlaceOfBirth = findLabeled(lines, "place of birth", "birthplace")
	fields.Address = findLabeled(lines, "address", "residence")

	if m := docNumRe.FindString(text); m != "" {
		num := strings.TrimSpace(m)
		fields.DocumentNumber = &num
	}

	if m := genderRe.FindStringSubmatch(text); m != nil {
		g := strings.ToUpper(m[1][:1])
		fields.Gender = &g
	}

	return fields
}

func splitLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// findLabeled returns the value following any of the labels, either on the
// same line after a separator or on the following line.
func findLabeled(lines []string, labels ...string) *string {
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, label := range labels {
			idx := strings.Index(lower, label)
			if idx < 0 {
				continue
			}
			rest := strings.TrimLeft(line[idx+len(label):], " :.-\t")
			if rest != "" {
				return &rest
			}
			if i+1 < len(lines) {
				next := lines[i+1]
				return &next
			}
		}
	}
	return nil
}

// findLabeledDate is findLabeled restricted to date-shaped values.
func findLabeledDate(lines []string, labels ...string) *string {
	for i, line := range lines {
		lower := strings.ToLower(line)
		for _, label := range labels {
			if !strings.Contains(lower, label) {
				continue
			}
			if m := dateRe.FindString(line); m != "" {
				return &m
			}
			if i+1 < len(lines) {
				if m := dateRe.FindString(lines[i+1]); m != "" {
					return &m
				}
			}
		}
	}
	return nil
}
