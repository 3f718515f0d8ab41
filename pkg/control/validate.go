package control

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ravelab/ravemap/pkg/pipeline"
	"github.com/ravelab/ravemap/pkg/reduce"
)

// macVolumePrefix is what macOS patchers prepend when they hand out
// volume-qualified paths. Stripped once per path.
const macVolumePrefix = "Macintosh HD:"

// NormalizePath rewrites a client-supplied path into one the local
// filesystem understands.
func NormalizePath(p string) string {
	return strings.Replace(p, macVolumePrefix, "", 1)
}

// parseProcessArgs maps the positional /rave/process arguments
// [audio_dir, model_path, output_json?, method?, skip_dim_reduction?]
// onto a pipeline request.
func parseProcessArgs(args []interface{}) (pipeline.Request, error) {
	var req pipeline.Request
	if len(args) < 2 {
		return req, fmt.Errorf("control: got %d arguments, need at least audio_dir and model_path", len(args))
	}

	dir, err := stringArg(args[0], "audio_dir")
	if err != nil {
		return req, err
	}
	model, err := stringArg(args[1], "model_path")
	if err != nil {
		return req, err
	}
	req.AudioDir = NormalizePath(dir)
	req.ModelPath = NormalizePath(model)

	if len(args) > 2 {
		out, err := stringArg(args[2], "output_json")
		if err != nil {
			return req, err
		}
		req.OutputPath = out
	}

	req.Method = DefaultMethod
	if len(args) > 3 {
		raw, err := stringArg(args[3], "method")
		if err != nil {
			return req, err
		}
		m, err := reduce.ParseMethod(raw)
		if err != nil {
			return req, err
		}
		req.Method = m
	}

	if len(args) > 4 {
		skip, err := boolArg(args[4], "skip_dim_reduction")
		if err != nil {
			return req, err
		}
		req.SkipReduction = skip
	}
	return req, nil
}

// parseModelInfoArgs maps the single /rave/model/info argument onto a
// normalized model path.
func parseModelInfoArgs(args []interface{}) (string, error) {
	if len(args) < 1 {
		return "", fmt.Errorf("control: missing model_path argument")
	}
	path, err := stringArg(args[0], "model_path")
	if err != nil {
		return "", err
	}
	return NormalizePath(path), nil
}

func stringArg(v interface{}, name string) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("control: %s: want string, got %T", name, v)
	}
	return s, nil
}

// boolArg accepts the types OSC clients actually send for flags: real
// booleans, integer and float truth values, and parseable strings.
func boolArg(v interface{}, name string) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int32:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case float32:
		return t != 0, nil
	case float64:
		return t != 0, nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return false, fmt.Errorf("control: %s: %q is not a boolean", name, t)
		}
		return b, nil
	default:
		return false, fmt.Errorf("control: %s: want bool, got %T", name, v)
	}
}
