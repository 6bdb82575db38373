package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Float is a float64 that encodes NaN and infinities as JSON null and decodes
// null back to NaN.
type Float float64

// IsNaN reports whether f is not a number.
func (f Float) IsNaN() bool { return math.IsNaN(float64(f)) }

func (f Float) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func (f *Float) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*f = Float(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("decode float: %w", err)
	}
	*f = Float(v)
	return nil
}

func ptr(v float64) *Float {
	f := Float(v)
	return &f
}

// ValueCount is one entry of a frequency table.
type ValueCount struct {
	Value string
	Count int
}

// Frequencies is an ordered frequency table. It encodes as a JSON object
// whose keys keep the slice order.
type Frequencies []ValueCount

func (fr Frequencies) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, vc := range fr {
		if i > 0 {
			b.WriteByte(',')
		}
		k, err := json.Marshal(vc.Value)
		if err != nil {
			return nil, err
		}
		b.Write(k)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(vc.Count))
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (fr *Frequencies) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*fr = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("frequencies: expected object, got %v", tok)
	}
	out := Frequencies{}
	for dec.More() {
		kt, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := kt.(string)
		var n int
		if err := dec.Decode(&n); err != nil {
			return fmt.Errorf("frequencies: count for %q: %w", key, err)
		}
		out = append(out, ValueCount{Value: key, Count: n})
	}
	*fr = out
	return nil
}
