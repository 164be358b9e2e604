// Package emotion turns expression probabilities into a single displayed mood.
package emotion

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Label identifies an emotion class reported by the expression model.
type Label string

// Labels emitted by the expression model, in the order the model reports them.
const (
	Neutral   Label = "neutral"
	Happy     Label = "happy"
	Sad       Label = "sad"
	Angry     Label = "angry"
	Fearful   Label = "fearful"
	Disgusted Label = "disgusted"
	Surprised Label = "surprised"
)

// Vocabulary is the closed label set of the expression model in canonical order.
var Vocabulary = [...]Label{Neutral, Happy, Sad, Angry, Fearful, Disgusted, Surprised}

// Known reports whether l belongs to the model vocabulary.
func (l Label) Known() bool {
	for _, v := range Vocabulary {
		if v == l {
			return true
		}
	}
	return false
}

// Score is the probability assigned to one label.
type Score struct {
	Label       Label   `json:"label"`
	Probability float64 `json:"probability"`
}

// Distribution is an ordered set of label probabilities for one face.
// Order matters: it decides which label wins an exact tie.
type Distribution []Score

// FromMap builds a Distribution from m. Vocabulary labels come first in
// canonical order, any other labels follow sorted by name.
func FromMap(m map[Label]float64) Distribution {
	d := make(Distribution, 0, len(m))
	for _, l := range Vocabulary {
		if p, ok := m[l]; ok {
			d = append(d, Score{Label: l, Probability: p})
		}
	}

	var extra []Label
	for l := range m {
		if !l.Known() {
			extra = append(extra, l)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, l := range extra {
		d = append(d, Score{Label: l, Probability: m[l]})
	}

	return d
}

// Get returns the probability for l and whether l is present.
func (d Distribution) Get(l Label) (float64, bool) {
	for _, s := range d {
		if s.Label == l {
			return s.Probability, true
		}
	}
	return 0, false
}

// Labels returns the labels of d in order.
func (d Distribution) Labels() []Label {
	labels := make([]Label, len(d))
	for i, s := range d {
		labels[i] = s.Label
	}
	return labels
}

// Map returns d as an unordered map.
func (d Distribution) Map() map[Label]float64 {
	m := make(map[Label]float64, len(d))
	for _, s := range d {
		m[s.Label] = s.Probability
	}
	return m
}

// MarshalJSON encodes d as a JSON object, keeping label order.
func (d Distribution) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, s := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(string(s.Label))
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.Probability)
		if err != nil {
			return nil, fmt.Errorf("label %s: %w", s.Label, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object of label to probability. The object's
// key order is kept, so ties resolve the same way they would for the model's
// own output.
func (d *Distribution) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*d = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("distribution: expected object, got %v", tok)
	}

	out := Distribution{}
	seen := make(map[Label]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("distribution: unexpected key %v", tok)
		}

		var p float64
		if err := dec.Decode(&p); err != nil {
			return fmt.Errorf("distribution: label %s: %w", key, err)
		}

		// Repeated keys overwrite in place, like a JS object literal.
		if i, dup := seen[Label(key)]; dup {
			out[i].Probability = p
			continue
		}
		seen[Label(key)] = len(out)
		out = append(out, Score{Label: Label(key), Probability: p})
	}

	if _, err := dec.Token(); err != nil {
		return err
	}

	*d = out
	return nil
}
