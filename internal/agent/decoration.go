package agent

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cloudshuttle/logshuttle/internal/exprlang"
)

// defaultBinder registers the small set of host functions decoration
// templates may invoke: callable methods over a single built-in host class
// covering the common log-shipping transforms (case folding, concatenation,
// coalescing, truncation).
func defaultBinder() *exprlang.Binder {
	b := exprlang.NewBinder()
	stringType := reflect.TypeOf("")
	anyType := exprlang.AnyType

	b.Register(exprlang.Candidate{
		Name:       "upper",
		ParamTypes: []reflect.Type{stringType},
		Invoke:     func(args []any) (any, error) { return strings.ToUpper(args[0].(string)), nil },
	})
	b.Register(exprlang.Candidate{
		Name:       "lower",
		ParamTypes: []reflect.Type{stringType},
		Invoke:     func(args []any) (any, error) { return strings.ToLower(args[0].(string)), nil },
	})
	b.Register(exprlang.Candidate{
		Name:       "concat",
		ParamTypes: []reflect.Type{stringType, stringType},
		Invoke:     func(args []any) (any, error) { return args[0].(string) + args[1].(string), nil },
	})
	b.Register(exprlang.Candidate{
		Name:       "coalesce",
		ParamTypes: []reflect.Type{anyType, anyType},
		Invoke: func(args []any) (any, error) {
			if args[0] != nil {
				return args[0], nil
			}
			return args[1], nil
		},
	})
	b.Register(exprlang.Candidate{
		Name:       "substring",
		ParamTypes: []reflect.Type{stringType, reflect.TypeOf(float64(0))},
		Invoke: func(args []any) (any, error) {
			s := args[0].(string)
			n := int(args[1].(float64))
			if n < 0 || n > len(s) {
				n = len(s)
			}
			return s[:n], nil
		},
	})

	return b
}

// decorator applies a parsed Decoration to every JSON record flowing through
// a Pipe, setting or overwriting the named output fields with their
// evaluated template values before any sink sees the record. Non-JSON
// records (or records a decoration fails to evaluate) pass through
// unmodified rather than being dropped.
type decorator struct {
	decoration *exprlang.Decoration
	binder     *exprlang.Binder
	globals    map[string]string
	log        *logrus.Entry
}

func newDecorator(dec *exprlang.Decoration, globals map[string]string, log *logrus.Entry) *decorator {
	return &decorator{
		decoration: dec,
		binder:     defaultBinder(),
		globals:    globals,
		log:        log,
	}
}

func (d *decorator) apply(raw []byte) []byte {
	if d == nil || d.decoration == nil || len(d.decoration.Pairs) == 0 {
		return raw
	}

	record := map[string]any{}
	if err := json.Unmarshal(raw, &record); err != nil {
		return raw
	}

	ctx := exprlang.NewEvaluationContext[map[string]any](
		func(name string) (string, bool) {
			v, ok := d.globals[name]
			return v, ok
		},
		func(name string, rec map[string]any) (any, bool) {
			v, ok := rec[name]
			return v, ok
		},
		d.binder, d.log,
	)

	for _, pair := range d.decoration.Pairs {
		ctx.Reset()
		v, err := exprlang.Evaluate(ctx, pair.Value, record)
		if err != nil {
			if d.log != nil {
				d.log.WithField("key", pair.Key).WithError(err).Warn("decoration expression failed; leaving field unset")
			}
			continue
		}
		record[pair.Key] = v
	}

	out, err := json.Marshal(record)
	if err != nil {
		return raw
	}
	return out
}
