package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RuleValue is the comparison target of a rule. Builders send either a
// string or a number; the original JSON kind is kept so it round-trips.
type RuleValue struct {
	Text    string
	Numeric bool
}

func StringValue(s string) RuleValue {
	return RuleValue{Text: s}
}

func NumberValue(n float64) RuleValue {
	return RuleValue{Text: strconv.FormatFloat(n, 'f', -1, 64), Numeric: true}
}

func (v RuleValue) String() string {
	return v.Text
}

func (v RuleValue) MarshalJSON() ([]byte, error) {
	if v.Numeric {
		return []byte(v.Text), nil
	}
	return json.Marshal(v.Text)
}

func (v *RuleValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = RuleValue{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = StringValue(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("rule value: unsupported value %s", data)
	}
	*v = RuleValue{Text: n.String(), Numeric: true}
	return nil
}
