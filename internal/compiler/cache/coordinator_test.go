package cache

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wpkernel/wpkgen/internal/compiler/codegen"
	"github.com/wpkernel/wpkgen/internal/compiler/metadata"
	"github.com/wpkernel/wpkgen/internal/compiler/plan"
)

const bookPlan = "../plan/testdata/book.plan.yaml"

func buildBook(t *testing.T) ProduceFunc {
	t.Helper()
	return func(ctx context.Context) (*Artifact, error) {
		doc, err := plan.Load(bookPlan)
		if err != nil {
			return nil, err
		}
		out, err := plan.Build(ctx, codegen.NewGenerator(codegen.Options{}), doc, codegen.Hooks{})
		if err != nil {
			return nil, err
		}
		return NewArtifact(out)
	}
}

func bookRequest(t *testing.T) Request {
	t.Helper()
	source, err := os.ReadFile(bookPlan)
	require.NoError(t, err)
	return Request{Path: bookPlan, Source: source}
}

func TestNewArtifact(t *testing.T) {
	art, err := buildBook(t)(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"Rest/BookController.php",
		"Rest/SettingsController.php",
		"Rest/BaseController.php",
		"Capability/Capability.php",
		"index.php",
	}, art.FileNames())
	assert.Equal(t, metadata.KindResourceController, art.Files[0].Kind)
	assert.Equal(t, metadata.KindIndexFile, art.Files[4].Kind)
	assert.NotEmpty(t, art.BuildID)
	require.Len(t, art.Fallbacks, 1)
	assert.Equal(t, "POST", art.Fallbacks[0].Method)
	require.Len(t, art.Warnings, 1)

	decoded, err := DecodeArtifact(mustEncode(t, art))
	require.NoError(t, err)
	assert.Equal(t, art.FileNames(), decoded.FileNames())
	assert.JSONEq(t, string(art.Files[0].AST), string(decoded.Files[0].AST))
	assert.Equal(t, art.Capabilities.Definitions, decoded.Capabilities.Definitions)
}

func mustEncode(t *testing.T, a *Artifact) []byte {
	t.Helper()
	data, err := a.Encode()
	require.NoError(t, err)
	return data
}

func TestArtifactWriteTo(t *testing.T) {
	art, err := buildBook(t)(context.Background())
	require.NoError(t, err)

	tests := []struct {
		name         string
		withMetadata bool
		compress     bool
		want         []string
	}{
		{"plain", true, false, []string{"Rest/BookController.php.ast.json", "Rest/BookController.php.meta.json", SummaryFileName}},
		{"no metadata", false, false, []string{"index.php.ast.json"}},
		{"gzip", true, true, []string{"index.php.meta.json.gz", SummaryFileName + ".gz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			written, err := art.WriteTo(dir, tt.withMetadata, tt.compress)
			require.NoError(t, err)
			for _, name := range tt.want {
				assert.FileExists(t, filepath.Join(dir, filepath.FromSlash(name)))
				assert.Contains(t, written, filepath.Join(dir, filepath.FromSlash(name)))
			}
			if !tt.withMetadata {
				assert.NoFileExists(t, filepath.Join(dir, "index.php.meta.json"))
			}
		})
	}
}

func TestCoordinatorServesSecondBuildFromCache(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(CoordinatorOptions{Backend: NewMemoryBackend(DefaultConfig())})
	req := bookRequest(t)

	first, cached, err := c.Build(ctx, req, buildBook(t))
	require.NoError(t, err)
	assert.False(t, cached)

	calls := 0
	second, cached, err := c.Build(ctx, req, func(ctx context.Context) (*Artifact, error) {
		calls++
		return buildBook(t)(ctx)
	})
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 0, calls)
	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.BuildID, second.BuildID)

	m := c.GetMetrics()
	assert.Equal(t, 2, m.Requests)
	assert.Equal(t, 1, m.CacheHits)
	assert.Equal(t, 1, m.Builds)
	assert.InDelta(t, 50.0, m.CacheHitRate(), 0.001)
}

func TestCoordinatorDropsPreviousArtifactWhenPlanChanges(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(DefaultConfig())
	c := NewCoordinator(CoordinatorOptions{Backend: backend})
	req := bookRequest(t)

	first, _, err := c.Build(ctx, req, buildBook(t))
	require.NoError(t, err)

	req.Source = append(append([]byte{}, req.Source...), []byte("\n# edited\n")...)
	second, cached, err := c.Build(ctx, req, buildBook(t))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.NotEqual(t, first.Key, second.Key)

	_, err = backend.Get(ctx, first.Key)
	assert.True(t, IsMiss(err))
	assert.Equal(t, 1, backend.Len())
}

func TestCoordinatorFingerprintSeparatesBuilds(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(CoordinatorOptions{Backend: NewMemoryBackend(DefaultConfig())})
	req := bookRequest(t)
	req.Path = ""

	_, _, err := c.Build(ctx, req, buildBook(t))
	require.NoError(t, err)

	req.Fingerprint = "includeBaseController=false"
	_, cached, err := c.Build(ctx, req, buildBook(t))
	require.NoError(t, err)
	assert.False(t, cached)
}

func TestCoordinatorWithoutBackendAlwaysBuilds(t *testing.T) {
	ctx := context.Background()
	c := NewCoordinator(CoordinatorOptions{})
	assert.False(t, c.Enabled())

	for i := 0; i < 2; i++ {
		_, cached, err := c.Build(ctx, bookRequest(t), buildBook(t))
		require.NoError(t, err)
		assert.False(t, cached)
	}
	assert.Equal(t, 2, c.GetMetrics().Builds)
	assert.NoError(t, c.Clear(ctx))
}

func TestCoordinatorPropagatesBuildErrors(t *testing.T) {
	c := NewCoordinator(CoordinatorOptions{Backend: NewMemoryBackend(DefaultConfig())})
	boom := errors.New("boom")

	_, _, err := c.Build(context.Background(), bookRequest(t), func(context.Context) (*Artifact, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestCoordinatorTreatsCorruptEntryAsMiss(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(DefaultConfig())
	c := NewCoordinator(CoordinatorOptions{Backend: backend})
	req := bookRequest(t)

	key := c.hasher.Key(req.Source, req.Fingerprint)
	require.NoError(t, backend.Set(ctx, key, []byte("{not json"), 0))

	art, cached, err := c.Build(ctx, req, buildBook(t))
	require.NoError(t, err)
	assert.False(t, cached)
	assert.Equal(t, key, art.Key)
}

func TestCoordinatorRedisBackend(t *testing.T) {
	ctx := context.Background()
	rb, mr := setupRedis(t)
	c := NewCoordinator(CoordinatorOptions{Backend: rb, TTL: time.Hour})
	req := bookRequest(t)

	art, _, err := c.Build(ctx, req, buildBook(t))
	require.NoError(t, err)
	assert.Equal(t, time.Hour, mr.TTL("wpkgen:"+art.Key))

	// a fresh coordinator on the same server sees the artifact
	other := NewCoordinator(CoordinatorOptions{Backend: rb})
	_, cached, err := other.Build(ctx, req, buildBook(t))
	require.NoError(t, err)
	assert.True(t, cached)

	assert.True(t, c.Invalidate(ctx, req.Path))
	assert.False(t, mr.Exists("wpkgen:"+art.Key))
}
