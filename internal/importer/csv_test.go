package importer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hunterai/recruit-engine/internal/candidate"
)

func TestParseCandidatesAutoMapping(t *testing.T) {
	csvData := `Nom,Prénom,LinkedIn URL,Email,Téléphone
Dupont,Marie,https://linkedin.com/in/mdupont,marie@example.com,+33612345678
Martin,Luc,https://linkedin.com/in/lmartin,,
`
	rows, err := parseCandidates(strings.NewReader(csvData), 7, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Marie Dupont", rows[0].FullName)
	assert.Equal(t, "https://linkedin.com/in/mdupont", rows[0].LinkedInURL)
	assert.Equal(t, "marie@example.com", rows[0].Email)
	assert.Equal(t, "+33612345678", rows[0].Phone)
	assert.Equal(t, int64(7), rows[0].ProjectID)
	assert.Equal(t, candidate.StatusNeedsEnrichment, rows[0].Status)

	assert.Equal(t, "Luc Martin", rows[1].FullName)
	assert.Empty(t, rows[1].Email)
}

func TestParseCandidatesExplicitMapping(t *testing.T) {
	csvData := `Candidat,Profil LI,Courriel
Jean Petit,https://linkedin.com/in/jpetit,jean@example.com
`
	mapping := &FieldMapping{Name: "Candidat", LinkedIn: "Profil LI", Email: "Courriel"}
	rows, err := parseCandidates(strings.NewReader(csvData), 1, mapping)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Jean Petit", rows[0].FullName)
	assert.Equal(t, "https://linkedin.com/in/jpetit", rows[0].LinkedInURL)
	assert.Equal(t, "jean@example.com", rows[0].Email)
}

func TestParseCandidatesEnglishHeaders(t *testing.T) {
	csvData := `first_name,last_name,linkedin_url,email
Alice,Wong,https://linkedin.com/in/awong,alice@example.com
`
	rows, err := parseCandidates(strings.NewReader(csvData), 1, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Alice Wong", rows[0].FullName)
}

func TestParseCandidatesSkipsEmptyRows(t *testing.T) {
	csvData := `Nom,LinkedIn
Durand,https://linkedin.com/in/durand

,
Bernard,https://linkedin.com/in/bernard
`
	rows, err := parseCandidates(strings.NewReader(csvData), 1, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestParseCandidatesMissingColumnIsEmptyField(t *testing.T) {
	csvData := `Nom,LinkedIn
Moreau,https://linkedin.com/in/moreau
`
	rows, err := parseCandidates(strings.NewReader(csvData), 1, nil)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Email)
	assert.Empty(t, rows[0].Phone)
}

func TestParseCandidatesVariableFieldCounts(t *testing.T) {
	csvData := `Nom,LinkedIn,Email
Rousseau,https://linkedin.com/in/rousseau
Leroy,https://linkedin.com/in/leroy,leroy@example.com,extra
`
	rows, err := parseCandidates(strings.NewReader(csvData), 1, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Empty(t, rows[0].Email)
	assert.Equal(t, "leroy@example.com", rows[1].Email)
}

func TestParseCandidatesEmptyFile(t *testing.T) {
	_, err := parseCandidates(strings.NewReader(""), 1, nil)
	assert.ErrorIs(t, err, ErrEmptyFile)
}

func TestResolveColumnExplicitBeatsAlias(t *testing.T) {
	headers := []string{"email", "contact"}
	assert.Equal(t, 1, resolveColumn(headers, "contact", "email"))
	assert.Equal(t, 0, resolveColumn(headers, "", "email"))
	assert.Equal(t, -1, resolveColumn(headers, "missing", "email"))
}
