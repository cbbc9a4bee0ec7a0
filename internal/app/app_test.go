package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/autofragment/internal/config"
	"github.com/turtacn/autofragment/pkg/errors"
	"github.com/turtacn/autofragment/pkg/types/molecule"
)

func localConfig() *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.Redis.Enabled = false
	cfg.MinIO.Enabled = false
	cfg.Metrics.Namespace = "apptest"
	return cfg
}

func TestNew_LocalOnly(t *testing.T) {
	infra, err := New(localConfig(), nil)
	require.NoError(t, err)
	defer infra.Close()

	assert.Nil(t, infra.Redis)
	assert.Nil(t, infra.Cache)
	assert.Nil(t, infra.Results)
	require.NotNil(t, infra.Metrics)
	require.NotNil(t, infra.Service)

	resp, err := infra.Service.Count(context.Background(), &molecule.CountRequest{SMILES: "O"})
	require.NoError(t, err)
	assert.Equal(t, molecule.FragmentCountMap{"O": 1}, resp.Fragments)
	assert.Equal(t, "smiles/v2:enforce=true:leaves=20000", infra.Toolkit.Variant())
}

func TestNew_MetricsDisabled(t *testing.T) {
	cfg := localConfig()
	cfg.Metrics.Enabled = false

	infra, err := New(cfg, nil)
	require.NoError(t, err)
	assert.Nil(t, infra.Collector)
	assert.Nil(t, infra.Metrics)
}

func TestNew_DefaultRadiusFromConfig(t *testing.T) {
	cfg := localConfig()
	cfg.Fragment.Radius = 0

	infra, err := New(cfg, nil)
	require.NoError(t, err)

	resp, err := infra.Service.Count(context.Background(), &molecule.CountRequest{SMILES: "CC"})
	require.NoError(t, err)
	assert.Equal(t, 0, resp.Radius)
	assert.Equal(t, molecule.FragmentCountMap{"C": 2}, resp.Fragments)
}

func TestNew_MaxMolecules(t *testing.T) {
	infra, err := New(localConfig(), nil, WithMaxMolecules(1))
	require.NoError(t, err)

	_, err = infra.Service.Decompose(context.Background(), &molecule.DecomposeRequest{
		Molecules: map[string]string{"a": "C", "b": "O"},
	})
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidation))
}

func TestNew_UploadNeedsMinIO(t *testing.T) {
	_, err := New(localConfig(), nil, WithUpload(true))
	assert.True(t, errors.IsCode(err, errors.ErrCodeFeatureDisabled))
}

func TestNew_RedisUnreachable(t *testing.T) {
	cfg := localConfig()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = "127.0.0.1:1"
	cfg.Redis.DialTimeout = 200 * time.Millisecond
	cfg.Redis.MaxRetries = -1

	_, err := New(cfg, nil)
	assert.True(t, errors.IsCode(err, errors.ErrCodeServiceUnavailable))

	infra, err := New(cfg, nil, WithoutCache())
	require.NoError(t, err)
	assert.Nil(t, infra.Cache)
}

func TestNew_NilConfig(t *testing.T) {
	_, err := New(nil, nil)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

//Personal.AI order the ending
