package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/hunterai/recruit-engine/internal/candidate"
)

// FieldMapping maps logical candidate fields to CSV column headers.
// Any empty field falls back to header-alias auto-detection.
type FieldMapping struct {
	Name      string `json:"name,omitempty"`
	FirstName string `json:"first_name,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Email     string `json:"email,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Common header aliases for auto-mapping, lowercase. Uploaded files come
// from several sourcing tools, French and English headers both occur.
var headerAliases = map[string][]string{
	"name":       {"nom", "name", "fullname", "full_name", "nom complet", "nom_complet", "lastname", "last_name"},
	"first_name": {"prenom", "prénom", "firstname", "first_name", "first"},
	"linkedin":   {"linkedin", "linkedin url", "linkedin_url", "linkedinurl", "url", "profile", "profil"},
	"email":      {"email", "e-mail", "mail", "email address", "adresse email"},
	"phone":      {"telephone", "téléphone", "phone", "tel", "mobile", "portable", "phone_number"},
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(h))
}

// resolveColumn finds the index of the column for a logical field:
// explicit mapping first, alias scan otherwise. Returns -1 when the file
// has no such column.
func resolveColumn(headers []string, explicit, field string) int {
	if explicit != "" {
		for i, h := range headers {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(explicit)) {
				return i
			}
		}
		return -1
	}
	for i, h := range headers {
		norm := normalizeHeader(h)
		for _, alias := range headerAliases[field] {
			if norm == alias {
				return i
			}
		}
	}
	return -1
}

type columnIndexes struct {
	name, firstName, linkedin, email, phone int
}

func resolveColumns(headers []string, mapping *FieldMapping) columnIndexes {
	if mapping == nil {
		mapping = &FieldMapping{}
	}
	return columnIndexes{
		name:      resolveColumn(headers, mapping.Name, "name"),
		firstName: resolveColumn(headers, mapping.FirstName, "first_name"),
		linkedin:  resolveColumn(headers, mapping.LinkedIn, "linkedin"),
		email:     resolveColumn(headers, mapping.Email, "email"),
		phone:     resolveColumn(headers, mapping.Phone, "phone"),
	}
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseCandidates reads the whole CSV and maps every data row to a
// candidate record with the default pipeline entry status. No filtering
// happens here; rows without a LinkedIn URL are dropped later so the
// caller can count them.
func parseCandidates(r io.Reader, projectID int64, mapping *FieldMapping) ([]candidate.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // Allow variable fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}
	if len(headers) == 0 {
		return nil, ErrEmptyFile
	}

	cols := resolveColumns(headers, mapping)

	var out []candidate.Record
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV row: %w", err)
		}
		if isEmptyRow(row) {
			continue
		}

		lastName := cell(row, cols.name)
		firstName := cell(row, cols.firstName)
		fullName := lastName
		if firstName != "" && lastName != "" {
			fullName = firstName + " " + lastName
		} else if firstName != "" {
			fullName = firstName
		}

		out = append(out, candidate.Record{
			ProjectID:   projectID,
			FullName:    fullName,
			LinkedInURL: cell(row, cols.linkedin),
			Email:       cell(row, cols.email),
			Phone:       cell(row, cols.phone),
			Status:      candidate.StatusNeedsEnrichment,
		})
	}
	return out, nil
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
