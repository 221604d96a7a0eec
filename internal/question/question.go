// Package question models the three question variants a lobby can ask and
// maps untyped wire objects onto them.
package question

import (
	"encoding/json"
	"fmt"

	"quiz-session-client/internal/domain"
)

// Kind is the explicit discriminant of a question variant. Its values match
// the question_type field on the wire.
type Kind string

const (
	KindMultipleChoice Kind = "multiple_choice"
	KindNumerical      Kind = "numerical"
	KindPointSelector  Kind = "point_selector"
)

// Valid reports whether k names one of the three variants.
func (k Kind) Valid() bool {
	switch k {
	case KindMultipleChoice, KindNumerical, KindPointSelector:
		return true
	}
	return false
}

// NumberType is the expected form of a numerical answer.
type NumberType string

const (
	NumberInt   NumberType = "int"
	NumberFloat NumberType = "float"
)

// Question is implemented by MultipleChoice, Numerical and PointSelector only.
type Question interface {
	Kind() Kind
	Prompt() string
	Image() string
	isQuestion()
}

// MultipleChoice asks the player to pick one option.
type MultipleChoice struct {
	Text     string   `json:"question"`
	ImageURL string   `json:"image_url,omitempty"`
	Options  []string `json:"options"`
}

// Answer is one accepted numerical value with its tolerance.
type Answer struct {
	Value     string  `json:"value"`
	Tolerance float64 `json:"tolerance"`
}

// Numerical asks for one number per expected answer.
type Numerical struct {
	Text     string     `json:"question"`
	ImageURL string     `json:"image_url,omitempty"`
	Type     NumberType `json:"type"`
	Answers  []Answer   `json:"answers"`
}

// PointSelector asks the player to mark a point on an image.
type PointSelector struct {
	Text     string `json:"question"`
	ImageURL string `json:"image_url"`
	XLabel   string `json:"x_label"`
	YLabel   string `json:"y_label"`
}

func (MultipleChoice) Kind() Kind { return KindMultipleChoice }
func (Numerical) Kind() Kind      { return KindNumerical }
func (PointSelector) Kind() Kind  { return KindPointSelector }

func (q MultipleChoice) Prompt() string { return q.Text }
func (q Numerical) Prompt() string      { return q.Text }
func (q PointSelector) Prompt() string  { return q.Text }

func (q MultipleChoice) Image() string { return q.ImageURL }
func (q Numerical) Image() string      { return q.ImageURL }
func (q PointSelector) Image() string  { return q.ImageURL }

func (MultipleChoice) isQuestion() {}
func (Numerical) isQuestion()      {}
func (PointSelector) isQuestion()  {}

// Fields is the untyped form of a question object keyed by wire field name.
type Fields map[string]json.RawMessage

func (f Fields) has(name string) bool {
	_, ok := f[name]
	return ok
}

// IsMultipleChoice reports whether f carries options and no other variant's fields.
func IsMultipleChoice(f Fields) bool {
	return f.has("options") && !f.has("answers") && !f.has("x_label") && !f.has("y_label")
}

// IsNumerical reports whether f carries answers and no other variant's fields.
func IsNumerical(f Fields) bool {
	return f.has("answers") && !f.has("options") && !f.has("x_label") && !f.has("y_label")
}

// IsPointSelector reports whether f carries both axis labels and no other variant's fields.
func IsPointSelector(f Fields) bool {
	return f.has("x_label") && f.has("y_label") && !f.has("options") && !f.has("answers")
}

// Classify returns the single variant f matches.
func Classify(f Fields) (Kind, error) {
	var kinds []Kind
	if IsMultipleChoice(f) {
		kinds = append(kinds, KindMultipleChoice)
	}
	if IsNumerical(f) {
		kinds = append(kinds, KindNumerical)
	}
	if IsPointSelector(f) {
		kinds = append(kinds, KindPointSelector)
	}
	if len(kinds) != 1 {
		return "", fmt.Errorf("%w: question matches %d variants", domain.ErrMalformedPayload, len(kinds))
	}
	return kinds[0], nil
}

// Parse maps a raw question object onto its variant and validates it.
func Parse(raw json.RawMessage) (Question, error) {
	var fields Fields
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, fmt.Errorf("%w: question is not an object", domain.ErrMalformedPayload)
	}
	if !fields.has("question") {
		return nil, fmt.Errorf("%w: question text missing", domain.ErrMalformedPayload)
	}
	kind, err := Classify(fields)
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindMultipleChoice:
		var q MultipleChoice
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("%w: multiple choice: %v", domain.ErrMalformedPayload, err)
		}
		if len(q.Options) == 0 {
			return nil, fmt.Errorf("%w: multiple choice without options", domain.ErrMalformedPayload)
		}
		return q, nil
	case KindNumerical:
		var q Numerical
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("%w: numerical: %v", domain.ErrMalformedPayload, err)
		}
		if q.Type != NumberInt && q.Type != NumberFloat {
			return nil, fmt.Errorf("%w: numerical type %q", domain.ErrMalformedPayload, q.Type)
		}
		if len(q.Answers) == 0 {
			return nil, fmt.Errorf("%w: numerical without answers", domain.ErrMalformedPayload)
		}
		return q, nil
	default:
		var q PointSelector
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, fmt.Errorf("%w: point selector: %v", domain.ErrMalformedPayload, err)
		}
		if q.ImageURL == "" {
			return nil, fmt.Errorf("%w: point selector requires image_url", domain.ErrMalformedPayload)
		}
		return q, nil
	}
}
