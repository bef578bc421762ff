package bootstrap

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	platformconfig "alejo-lab-api/internal/platform/config"
	platformerrors "alejo-lab-api/internal/platform/errors"
	platformlogging "alejo-lab-api/internal/platform/logging"
)

func testState(t *testing.T, vars map[string]string) *appState {
	t.Helper()
	env := map[string]string{
		"LOG_DIR":  t.TempDir(),
		"GIN_MODE": "test",
	}
	for k, v := range vars {
		env[k] = v
	}
	return &appState{
		loader: platformconfig.NewLoader().WithDotEnv(false).WithFile("").WithEnvironment(env),
	}
}

func TestInitGraphOrder(t *testing.T) {
	steps := InitGraph()
	want := []string{
		"config:load-env",
		"logging:init-provider",
		"observability:setup-hooks",
		"events:init-bus",
		"ratelimit:init-store",
		"pipeline:init-services",
	}
	require.Len(t, steps, len(want))
	for i, step := range steps {
		assert.Equal(t, want[i], step.ID, "step %d", i)
	}
}

func TestInitGraphDependenciesPrecedeDependents(t *testing.T) {
	seen := map[string]bool{}
	for _, step := range InitGraph() {
		for _, dep := range step.DependsOn {
			assert.True(t, seen[dep], "%s depends on %s which runs later", step.ID, dep)
		}
		seen[step.ID] = true
	}
}

func TestExecuteInitGraph(t *testing.T) {
	state := testState(t, nil)
	defer state.close()

	require.NoError(t, executeInitSteps(context.Background(), InitGraph(), state))
	assert.NotNil(t, state.config)
	assert.NotNil(t, state.logger)
	assert.NotNil(t, state.observabilityShutdown)
	assert.NotNil(t, state.events)
	assert.NotNil(t, state.limiter)
	assert.NotNil(t, state.pipeline)
	assert.Len(t, state.limiter.Windows(), 2)
}

func TestExecuteInitGraphWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	state := testState(t, map[string]string{
		"RATE_LIMIT_STORE": "redis",
		"REDIS_ADDR":       mr.Addr(),
	})
	defer state.close()

	require.NoError(t, executeInitSteps(context.Background(), InitGraph(), state))
	decision, err := state.limiter.Check(context.Background(), "/detect/ai|203.0.113.1")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.NotEmpty(t, mr.Keys())
}

func TestExecuteInitGraphRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	state := testState(t, map[string]string{
		"RATE_LIMIT_STORE": "redis",
		"REDIS_ADDR":       addr,
	})
	defer state.close()

	err := executeInitSteps(context.Background(), InitGraph(), state)
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindStorage))
}

func TestExecuteInitStepsRejectsMissingDependency(t *testing.T) {
	steps := []initStep{
		{ID: "b", DependsOn: []string{"a"}, Execute: func(context.Context, *appState) error { return nil }},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency a not satisfied")
}

func TestExecuteInitStepsWrapsUntypedErrors(t *testing.T) {
	steps := []initStep{
		{ID: "boom", Kind: platformerrors.KindStorage, Execute: func(context.Context, *appState) error {
			return errors.New("disk on fire")
		}},
	}
	err := executeInitSteps(context.Background(), steps, &appState{})
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindStorage))

	assert.Error(t, executeInitSteps(context.Background(), []initStep{{ID: "nil"}}, &appState{}))
	assert.Error(t, executeInitSteps(context.Background(), nil, nil))
}

func TestLoadConfigStepReportsInvalidConfig(t *testing.T) {
	state := testState(t, map[string]string{"RATE_LIMIT_STORE": "etcd"})
	err := loadConfigStep(context.Background(), state)
	require.Error(t, err)
	assert.True(t, platformerrors.IsKind(err, platformerrors.KindConfig))
}

func TestBuildHandlerServesHealthAndDocs(t *testing.T) {
	state := testState(t, nil)
	defer state.close()
	require.NoError(t, executeInitSteps(context.Background(), InitGraph(), state))

	handler, err := buildHandler(context.Background(), state)
	require.NoError(t, err)

	for _, path := range []string{"/health", "/openapi.json", "/docs"} {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}

	// upload validation runs before the anti-bot check
	body := &bytes.Buffer{}
	req := httptest.NewRequest(http.MethodPost, "/detect/ai", body)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogBootstrapGraphOutput(t *testing.T) {
	tmp := t.TempDir()
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    "info",
		Dir:      tmp,
		Filename: "graph.log",
		Console:  &bytes.Buffer{},
	})
	require.NoError(t, err)
	logBootstrapGraph(InitGraph(), logger)
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(filepath.Join(tmp, "graph.log"))
	require.NoError(t, err)
	content := string(data)
	assert.True(t, strings.Contains(content, "init graph"))
	for _, step := range InitGraph() {
		assert.Contains(t, content, step.ID)
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Setenv("LOG_DIR", t.TempDir())
	t.Setenv("PORT", "38471")
	t.Setenv("GIN_MODE", "test")
	t.Setenv("CONFIG_FILE", "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, Run(ctx))
}
