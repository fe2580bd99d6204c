package adapter

import (
	"strconv"

	"github.com/ferry-web/ferry/config"
	"github.com/ferry-web/ferry/internal/qparams"
	"github.com/ferry-web/ferry/internal/urlencoded"
	"github.com/ferry-web/ferry/kv"
	json "github.com/json-iterator/go"
)

// JSON returns a body parser decoding JSON. Object roots additionally
// yield their scalar top-level fields as pairs for the post table; nested
// values stay reachable through the parsed body value only.
func JSON() config.BodyParser {
	return jsonParser{}
}

type jsonParser struct{}

func (jsonParser) Parse(body []byte) (any, []kv.Pair, error) {
	if len(body) == 0 {
		return nil, nil, nil
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return nil, nil, err
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return value, nil, nil
	}

	pairs := make([]kv.Pair, 0, len(obj))

	for key, v := range obj {
		switch field := v.(type) {
		case string:
			pairs = append(pairs, kv.Pair{Key: key, Value: field})
		case float64:
			pairs = append(pairs, kv.Pair{Key: key, Value: strconv.FormatFloat(field, 'f', -1, 64)})
		case bool:
			pairs = append(pairs, kv.Pair{Key: key, Value: strconv.FormatBool(field)})
		}
	}

	return value, pairs, nil
}

// Form returns a body parser for application/x-www-form-urlencoded
// payloads. The parsed value is a plain map of the decoded pairs; keys
// without a value map to an empty string.
func Form() config.BodyParser {
	return formParser{}
}

type formParser struct{}

func (formParser) Parse(body []byte) (any, []kv.Pair, error) {
	if len(body) == 0 {
		return map[string]string{}, nil, nil
	}

	var pairs []kv.Pair
	collect := func(k, v string) {
		pairs = append(pairs, kv.Pair{Key: k, Value: v})
	}

	if _, err := qparams.Parse(body, nil, collect, urlencoded.ExtendedDecode, ""); err != nil {
		return nil, nil, err
	}

	value := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		value[pair.Key] = pair.Value
	}

	return value, pairs, nil
}
