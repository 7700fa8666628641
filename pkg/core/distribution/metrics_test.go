package distribution

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakechorley/oncall-roster/pkg/core/model"
)

func TestPrometheusCollector_RecordsRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPrometheus(reg, "test")

	pa := &model.PreAnalysis{Doctors: map[string]model.DoctorTargets{
		"A": {Posts: map[model.PostType]model.Interval{"ML": iv(0, 3)}},
	}}
	planning := buildPlanning(t, 3, 7, weekdays("ML"), pa)

	_, outcome := run(t, Config{Seed: 1}, Input{Planning: planning, Staff: []*model.Person{model.NewDoctor("A", 2)}}, WithMetrics(m))
	// three within the maximum, a fourth from the type-flex margin
	require.Equal(t, 1, outcome.Shortfall.Total())

	assert.Equal(t, 4.0, testutil.ToFloat64(m.assignments.WithLabelValues("residual", "doctor")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.unfilled.WithLabelValues("ML")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.recovered.WithLabelValues("residual")))

	families, err := reg.Gather()
	require.NoError(t, err)
	var names []string
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "test_distribution_stage_duration_seconds")
	assert.Contains(t, names, "test_distribution_assignments_total")
}

func TestPrometheusCollector_DefaultNamespace(t *testing.T) {
	m := NewPrometheus(prometheus.NewRegistry(), "")
	assert.Equal(t, "roster", m.namespace)
}
