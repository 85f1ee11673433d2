package conf

import (
	"github.com/cockroachdb/errors"
	"github.com/launchdarkly/go-jsonstream/v3/jreader"
)

// ParseJSON builds a Value tree from JSON text. Numbers without a
// fractional part become integer values, so "cavesize": 64 and
// "cavesize": "0x40" end up equivalent through AsInt.
func ParseJSON(data []byte) (*Value, error) {
	r := jreader.NewReader(data)
	v := readValue(&r)
	if err := r.Error(); err != nil {
		return nil, errors.Wrap(err, "parsing configuration")
	}
	return v, nil
}

func readValue(r *jreader.Reader) *Value {
	av := r.Any()
	switch av.Kind {
	case jreader.BoolValue:
		return NewBool(av.Bool)
	case jreader.NumberValue:
		n := av.Number
		if n == float64(int64(n)) {
			return NewInt(int64(n))
		}
		return NewFloat(n)
	case jreader.StringValue:
		return NewString(av.String)
	case jreader.ArrayValue:
		v := NewArray()
		for av.Array.Next() {
			v.append(readValue(r))
		}
		return v
	case jreader.ObjectValue:
		v := NewObject()
		for av.Object.Next() {
			v.Set(string(av.Object.Name()), readValue(r))
		}
		return v
	}
	return NewNull()
}
