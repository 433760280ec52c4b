package param

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ssm"
	"github.com/aws/aws-sdk-go/service/ssm/ssmiface"
	"go.uber.org/zap"

	"github.com/replicatedhq/patchsmith/pkg/diff"
	"github.com/replicatedhq/patchsmith/pkg/logger"
)

var params *Params
var ssmClient ssmiface.SSMAPI

var paramLookup = map[string]string{
	"PATCHSMITH_FUZZY_WINDOW":       "/patchsmith/fuzzy_window",
	"PATCHSMITH_EXTERNAL_TIMEOUT":   "/patchsmith/external_timeout",
	"PATCHSMITH_MIN_LENGTH_RATIO":   "/patchsmith/min_length_ratio",
	"PATCHSMITH_CONTEXT_WIDEN":      "/patchsmith/context_widen",
	"PATCHSMITH_DISABLE_EXTERNAL":   "/patchsmith/disable_external",
	"PATCHSMITH_DISABLE_STRUCTURED": "/patchsmith/disable_structured",
	"PATCHSMITH_LOG_LEVEL":          "",
	"PATCHSMITH_PG_URI":             "/patchsmith/pg_uri",
}

type Params struct {
	FuzzyWindow       int
	ExternalTimeout   time.Duration
	MinLengthRatio    float64
	ContextWiden      int
	DisableExternal   bool
	DisableStructured bool
	LogLevel          string
	PGURI             string
}

func Get() Params {
	if params == nil {
		panic("params not initialized")
	}
	return *params
}

// Init loads parameters from the environment, or from SSM Parameter Store
// when USE_EC2_PARAMETERS is "true". sess may be nil when SSM is not used.
func Init(sess *session.Session) error {
	var paramsMap map[string]string
	if os.Getenv("USE_EC2_PARAMETERS") == "true" {
		if sess == nil {
			return fmt.Errorf("aws session is required to read ssm parameters")
		}
		ssmClient = ssm.New(sess)
		p, err := GetParamsFromSSM(paramLookup)
		if err != nil {
			return fmt.Errorf("get from ssm: %w", err)
		}
		paramsMap = p
	} else {
		paramsMap = GetParamsFromEnv(paramLookup)
	}

	p, err := parse(paramsMap)
	if err != nil {
		return err
	}
	params = p
	return nil
}

func parse(paramsMap map[string]string) (*Params, error) {
	p := &Params{
		LogLevel: paramsMap["PATCHSMITH_LOG_LEVEL"],
		PGURI:    paramsMap["PATCHSMITH_PG_URI"],
	}

	var err error
	if p.FuzzyWindow, err = parseInt(paramsMap, "PATCHSMITH_FUZZY_WINDOW"); err != nil {
		return nil, err
	}
	if p.ContextWiden, err = parseInt(paramsMap, "PATCHSMITH_CONTEXT_WIDEN"); err != nil {
		return nil, err
	}
	if v := paramsMap["PATCHSMITH_EXTERNAL_TIMEOUT"]; v != "" {
		if p.ExternalTimeout, err = time.ParseDuration(v); err != nil {
			return nil, fmt.Errorf("parse PATCHSMITH_EXTERNAL_TIMEOUT: %w", err)
		}
	}
	if v := paramsMap["PATCHSMITH_MIN_LENGTH_RATIO"]; v != "" {
		if p.MinLengthRatio, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("parse PATCHSMITH_MIN_LENGTH_RATIO: %w", err)
		}
	}
	if p.DisableExternal, err = parseBool(paramsMap, "PATCHSMITH_DISABLE_EXTERNAL"); err != nil {
		return nil, err
	}
	if p.DisableStructured, err = parseBool(paramsMap, "PATCHSMITH_DISABLE_STRUCTURED"); err != nil {
		return nil, err
	}

	return p, nil
}

func parseInt(paramsMap map[string]string, name string) (int, error) {
	v := paramsMap[name]
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", name, err)
	}
	return n, nil
}

func parseBool(paramsMap map[string]string, name string) (bool, error) {
	v := paramsMap[name]
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", name, err)
	}
	return b, nil
}

// EngineOptions converts the parameters to engine options. Unset values
// are left zero so the engine defaults apply.
func (p Params) EngineOptions() diff.Options {
	return diff.Options{
		FuzzyWindow:       p.FuzzyWindow,
		ExternalTimeout:   p.ExternalTimeout,
		MinLengthRatio:    p.MinLengthRatio,
		ContextWiden:      p.ContextWiden,
		DisableExternal:   p.DisableExternal,
		DisableStructured: p.DisableStructured,
	}
}

func GetParamsFromSSM(paramLookup map[string]string) (map[string]string, error) {
	params := map[string]string{}
	reverseLookup := map[string][]string{}

	lookup := []*string{}
	for envName, ssmName := range paramLookup {
		if ssmName == "" {
			params[envName] = os.Getenv(envName)
			continue
		}

		lookup = append(lookup, aws.String(ssmName))
		reverseLookup[ssmName] = append(reverseLookup[ssmName], envName)
	}
	batch := chunkSlice(lookup, 10)

	for _, names := range batch {
		input := &ssm.GetParametersInput{
			Names:          names,
			WithDecryption: aws.Bool(true),
		}
		output, err := ssmClient.GetParameters(input)
		if err != nil {
			return params, fmt.Errorf("call get parameters: %w", err)
		}

		for _, p := range output.InvalidParameters {
			logger.Warn("ssm param invalid", zap.String("name", aws.StringValue(p)))
		}

		for _, p := range output.Parameters {
			for _, envName := range reverseLookup[aws.StringValue(p.Name)] {
				params[envName] = aws.StringValue(p.Value)
			}
		}
	}

	return params, nil
}

func GetParamsFromEnv(paramLookup map[string]string) map[string]string {
	params := map[string]string{}
	for envName := range paramLookup {
		params[envName] = os.Getenv(envName)
	}
	return params
}

func chunkSlice(s []*string, n int) [][]*string {
	var chunked [][]*string
	for i := 0; i < len(s); i += n {
		end := i + n
		if end > len(s) {
			end = len(s)
		}
		chunked = append(chunked, s[i:end])
	}
	return chunked
}
