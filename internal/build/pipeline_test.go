package build

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpkernel/wpkgen/internal/compiler/cache"
	"github.com/wpkernel/wpkgen/internal/compiler/errors"
	"github.com/wpkernel/wpkgen/internal/compiler/plan"
	"github.com/wpkernel/wpkgen/internal/ledger"
)

const bookPlan = "../compiler/plan/testdata/book.plan.yaml"

type recorder struct {
	entries []ledger.Entry
}

func (r *recorder) Record(_ context.Context, e *ledger.Entry) error {
	r.entries = append(r.entries, *e)
	return nil
}

type observer struct {
	results []*Result
}

func (o *observer) Observe(res *Result) { o.results = append(o.results, res) }

func TestRunRecordsAndObserves(t *testing.T) {
	rec := &recorder{}
	obs := &observer{}
	p := &Pipeline{
		Coordinator: cache.NewCoordinator(cache.CoordinatorOptions{Backend: cache.NewMemoryBackend(cache.DefaultConfig())}),
		Recorder:    rec,
		Observer:    obs,
	}

	var warnings []errors.Warning
	in := Input{Path: bookPlan, OnWarning: func(w errors.Warning) { warnings = append(warnings, w) }}

	first, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, `Demo\Plugin`, first.Document.Namespace)

	second, err := p.Run(context.Background(), in)
	require.NoError(t, err)
	assert.True(t, second.Cached)

	// the cached build replays its warnings
	require.Len(t, warnings, 2)
	assert.Equal(t, warnings[0], warnings[1])

	require.Len(t, rec.entries, 2)
	assert.False(t, rec.entries[0].Cached)
	assert.True(t, rec.entries[1].Cached)
	assert.Equal(t, bookPlan, rec.entries[0].PlanPath)
	assert.Equal(t, 5, rec.entries[0].Files)
	assert.Len(t, obs.results, 2)
}

func TestRunBaseControllerOverride(t *testing.T) {
	source, err := os.ReadFile(bookPlan)
	require.NoError(t, err)

	p := &Pipeline{Coordinator: cache.NewCoordinator(cache.CoordinatorOptions{Backend: cache.NewMemoryBackend(cache.DefaultConfig())})}
	off := false

	res, err := p.Run(context.Background(), Input{Source: source, Format: plan.FormatYAML, IncludeBaseController: &off})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.NotContains(t, res.Artifact.FileNames(), "Rest/BaseController.php")

	res, err = p.Run(context.Background(), Input{Source: source, Format: plan.FormatYAML})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.Contains(t, res.Artifact.FileNames(), "Rest/BaseController.php")
}

func TestRunReportsPlanErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   errors.ErrorCode
	}{
		{"bad yaml", "namespace: [", errors.ErrInvalidPlanDocument},
		{"missing namespace", "sanitizedNamespace: demo\nresources: []\n", errors.ErrMissingField},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := (&Pipeline{}).Run(context.Background(), Input{Path: "inline.yaml", Source: []byte(tt.source)})
			diags := errors.Diagnostics(err)
			require.NotEmpty(t, diags)
			assert.Equal(t, tt.code, diags[0].Code)
		})
	}
}

func TestRunMissingFile(t *testing.T) {
	_, err := (&Pipeline{}).Run(context.Background(), Input{Path: "does-not-exist.yaml"})
	assert.ErrorContains(t, err, "failed to read plan")
}
