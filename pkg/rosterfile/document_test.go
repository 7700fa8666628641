package rosterfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

const sampleYAML = `
name: March week
start: 2025-03-03
end: 2025-03-09
seed: 42
template:
  - post: ML
    site: North
    dayTypes: [weekday]
  - post: CA
    site: North
    count: 2
    dayTypes: [weekday]
  - post: NL
    site: North
staff:
  - name: Dr A
    kind: doctor
    halfParts: 1
    desiderata:
      - start: 2025-03-05
        period: morning
        priority: primary
  - name: Dr B
    kind: doctor
  - name: CAT 1
    kind: auxiliary
doctors:
  Dr A:
    posts:
      ML: {min: 1, max: 3}
      NL: {min: 0, max: 2}
    groups:
      VmS: {min: 1, max: 4}
    nlAbsoluteMax: 2
auxiliaries:
  CAT 1:
    weekday: {CA: 3}
preAttributions:
  - person: Dr B
    date: 2025-03-04
    period: afternoon
    post: CA
assignments:
  - person: Dr B
    date: 2025-03-07
    post: NL
`

func date(s string) time.Time {
	d, err := model.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestParseYAML_Build(t *testing.T) {
	doc, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)
	require.NotNil(t, doc.Seed)
	assert.Equal(t, uint64(42), *doc.Seed)

	roster, err := doc.Build(model.StandardCatalog(), nil)
	require.NoError(t, err)

	assert.Equal(t, "March week", roster.Name)
	require.Len(t, roster.Planning.Days, 7)

	monday, ok := roster.Planning.Day(date("2025-03-03"))
	require.True(t, ok)
	assert.Len(t, monday.Slots, 4, "ML, two CA and NL")

	saturday, ok := roster.Planning.Day(date("2025-03-08"))
	require.True(t, ok)
	assert.Len(t, saturday.Slots, 1, "only NL runs on every day type")

	// Existing assignment applied
	friday, _ := roster.Planning.Day(date("2025-03-07"))
	nl := friday.Slots[len(friday.Slots)-1]
	assert.Equal(t, model.PostNL, nl.PostType)
	assert.Equal(t, "Dr B", nl.Assignee)

	require.Len(t, roster.Staff, 3)
	a := roster.Staff[0]
	assert.Equal(t, 1, a.HalfParts)
	require.Len(t, a.Desiderata, 1)
	assert.Equal(t, date("2025-03-05"), a.Desiderata[0].End, "single-day desiderata")
	assert.Equal(t, model.PriorityPrimary, a.Desiderata[0].Priority)
	assert.Equal(t, 2, roster.Staff[1].HalfParts, "full time by default")
	assert.True(t, roster.Staff[2].IsAuxiliary())

	pa := roster.Planning.PreAnalysis
	iv, ok := pa.PostInterval("Dr A", "ML")
	require.True(t, ok)
	assert.Equal(t, model.Interval{Min: 1, Max: 3}, iv)
	gi, ok := pa.GroupInterval("Dr A", "VmS")
	require.True(t, ok)
	assert.Equal(t, 4, gi.Max)
	q, ok := pa.AuxiliaryQuota("CAT 1", model.DayTypeWeekday, "CA")
	require.True(t, ok)
	assert.Equal(t, 3, q)

	require.Len(t, roster.PreAttributions, 1)
	assert.Equal(t, model.PeriodAfternoon, roster.PreAttributions[0].Period)
	assert.Equal(t, model.PostType("CA"), roster.PreAttributions[0].PostType)
}

func TestParseJSON(t *testing.T) {
	doc, err := ParseJSON([]byte(`{
		"start": "2025-03-03",
		"end": "2025-03-03",
		"template": [{"post": "ML", "site": "North"}],
		"staff": [{"name": "Dr A", "kind": "doctor"}]
	}`))
	require.NoError(t, err)
	assert.Nil(t, doc.Seed)
	assert.Len(t, doc.Staff, 1)
}

func TestLoad_PicksFormatFromExtension(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(sampleYAML), 0644))

	doc, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "March week", doc.Name)

	jsonPath := filepath.Join(dir, "roster.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"start":"2025-03-03","end":"2025-03-04","template":[{"post":"CA","site":"South"}]}`), 0644))
	doc, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "CA", doc.Template[0].Post)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read roster file")
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "end before start",
			doc:  "start: 2025-03-05\nend: 2025-03-03\ntemplate: [{post: ML, site: N}]",
			want: "before start",
		},
		{
			name: "bad date",
			doc:  "start: 03/03/2025\nend: 2025-03-03\ntemplate: [{post: ML, site: N}]",
			want: "validation failed",
		},
		{
			name: "empty template",
			doc:  "start: 2025-03-03\nend: 2025-03-03",
			want: "validation failed",
		},
		{
			name: "duplicate staff",
			doc:  "start: 2025-03-03\nend: 2025-03-03\ntemplate: [{post: ML, site: N}]\nstaff: [{name: A, kind: doctor}, {name: A, kind: doctor}]",
			want: "duplicate staff",
		},
		{
			name: "unknown kind",
			doc:  "start: 2025-03-03\nend: 2025-03-03\ntemplate: [{post: ML, site: N}]\nstaff: [{name: A, kind: nurse}]",
			want: "validation failed",
		},
		{
			name: "interval max below min",
			doc:  "start: 2025-03-03\nend: 2025-03-03\ntemplate: [{post: ML, site: N}]\ndoctors: {A: {posts: {ML: {min: 3, max: 1}}}}",
			want: "validation failed",
		},
		{
			name: "bad auxiliary day type",
			doc:  "start: 2025-03-03\nend: 2025-03-03\ntemplate: [{post: ML, site: N}]\nauxiliaries: {C: {monday: {CA: 1}}}",
			want: "unknown day type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseYAML([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestBuild_AssignmentWithoutSlotFails(t *testing.T) {
	doc, err := ParseYAML([]byte("start: 2025-03-03\nend: 2025-03-03\ntemplate: [{post: ML, site: N}]\nassignments: [{person: A, date: 2025-03-03, post: CA}]"))
	require.NoError(t, err)

	_, err = doc.Build(model.StandardCatalog(), nil)
	assert.ErrorContains(t, err, "no open CA slot")
}

func TestBuild_UnknownPostFails(t *testing.T) {
	doc, err := ParseYAML([]byte("start: 2025-03-03\nend: 2025-03-03\ntemplate: [{post: ZZ, site: N}]"))
	require.NoError(t, err)

	_, err = doc.Build(model.StandardCatalog(), nil)
	assert.ErrorContains(t, err, "unknown post")
}

func TestSlotTemplates_ConvertsRows(t *testing.T) {
	doc, err := ParseYAML([]byte(sampleYAML))
	require.NoError(t, err)

	template, err := doc.SlotTemplates()
	require.NoError(t, err)
	require.Len(t, template, 3)
	assert.Equal(t, model.SlotTemplate{PostType: "ML", Site: "North", DayTypes: []model.DayType{model.DayTypeWeekday}}, template[0])
	assert.Equal(t, 2, template[1].Count)
	assert.Empty(t, template[2].DayTypes, "no day types means every day type")
}
