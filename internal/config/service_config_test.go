package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	services "github.com/syntrixbase/marketsearch/internal/services/config"
)

// recordingConfig records the lifecycle calls it receives.
type recordingConfig struct {
	calls       []string
	configDir   string
	mode        services.DeploymentMode
	validateErr error
}

func (r *recordingConfig) ApplyDefaults()     { r.calls = append(r.calls, "defaults") }
func (r *recordingConfig) ApplyEnvOverrides() { r.calls = append(r.calls, "env") }

func (r *recordingConfig) ResolvePaths(configDir string) {
	r.calls = append(r.calls, "paths")
	r.configDir = configDir
}

func (r *recordingConfig) Validate(mode services.DeploymentMode) error {
	r.calls = append(r.calls, "validate")
	r.mode = mode
	return r.validateErr
}

func TestApplyServiceConfigs_Order(t *testing.T) {
	a, b := &recordingConfig{}, &recordingConfig{}

	err := ApplyServiceConfigs("config", services.ModeStandalone, a, b)
	assert.NoError(t, err)

	for _, c := range []*recordingConfig{a, b} {
		assert.Equal(t, []string{"defaults", "env", "paths", "validate"}, c.calls)
		assert.Equal(t, "config", c.configDir)
		assert.Equal(t, services.ModeStandalone, c.mode)
	}
}

func TestApplyServiceConfigs_StopsAtFirstError(t *testing.T) {
	a := &recordingConfig{validateErr: errors.New("bad")}
	b := &recordingConfig{}

	err := ApplyServiceConfigs("config", services.ModeDistributed, a, b)
	assert.EqualError(t, err, "bad")
	assert.Empty(t, b.calls)
}
