package param

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/replicatedhq/patchsmith/pkg/diff"
)

func TestInitFromEnv(t *testing.T) {
	t.Setenv("USE_EC2_PARAMETERS", "")
	t.Setenv("PATCHSMITH_FUZZY_WINDOW", "25")
	t.Setenv("PATCHSMITH_EXTERNAL_TIMEOUT", "3s")
	t.Setenv("PATCHSMITH_MIN_LENGTH_RATIO", "0.9")
	t.Setenv("PATCHSMITH_DISABLE_EXTERNAL", "true")
	t.Setenv("PATCHSMITH_LOG_LEVEL", "debug")

	require.NoError(t, Init(nil))
	p := Get()
	assert.Equal(t, "debug", p.LogLevel)

	assert.Equal(t, diff.Options{
		FuzzyWindow:     25,
		ExternalTimeout: 3 * time.Second,
		MinLengthRatio:  0.9,
		DisableExternal: true,
	}, p.EngineOptions())

	opts := diff.NewEngine(p.EngineOptions()).Options()
	assert.Equal(t, 25, opts.FuzzyWindow)
	assert.Equal(t, diff.DefaultContextWiden, opts.ContextWiden)
}

func TestInitRejectsBadValues(t *testing.T) {
	t.Setenv("USE_EC2_PARAMETERS", "")

	tests := map[string]string{
		"PATCHSMITH_FUZZY_WINDOW":     "wide",
		"PATCHSMITH_EXTERNAL_TIMEOUT": "10",
		"PATCHSMITH_DISABLE_EXTERNAL": "maybe",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)
			err := Init(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), name)
		})
	}
}

func TestInitSSMRequiresSession(t *testing.T) {
	t.Setenv("USE_EC2_PARAMETERS", "true")
	require.Error(t, Init(nil))
}

type fakeSSM struct {
	ssmiface.SSMAPI
	values map[string]string
	calls  int
}

func (f *fakeSSM) GetParameters(input *ssm.GetParametersInput) (*ssm.GetParametersOutput, error) {
	f.calls++
	out := &ssm.GetParametersOutput{}
	for _, name := range input.Names {
		if v, ok := f.values[*name]; ok {
			out.Parameters = append(out.Parameters, &ssm.Parameter{Name: name, Value: aws.String(v)})
		} else {
			out.InvalidParameters = append(out.InvalidParameters, name)
		}
	}
	return out, nil
}

func TestGetParamsFromSSM(t *testing.T) {
	fake := &fakeSSM{values: map[string]string{
		"/patchsmith/fuzzy_window": "80",
		"/patchsmith/pg_uri":       "postgres://eval",
	}}
	prev := ssmClient
	ssmClient = fake
	t.Cleanup(func() { ssmClient = prev })
	t.Setenv("PATCHSMITH_LOG_LEVEL", "warn")

	values, err := GetParamsFromSSM(paramLookup)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.calls)
	assert.Equal(t, "80", values["PATCHSMITH_FUZZY_WINDOW"])
	assert.Equal(t, "postgres://eval", values["PATCHSMITH_PG_URI"])
	assert.Equal(t, "warn", values["PATCHSMITH_LOG_LEVEL"])
	assert.Empty(t, values["PATCHSMITH_CONTEXT_WIDEN"])
}

func TestChunkSlice(t *testing.T) {
	names := make([]*string, 23)
	chunks := chunkSlice(names, 10)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[2], 3)
}
