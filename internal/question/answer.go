package question

import (
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"quiz-session-client/internal/domain"
	"quiz-session-client/internal/point"
)

// Draft is the answer a player is composing for the current question.
type Draft struct {
	// Choice is the selected option index in string form; empty means none.
	Choice string
	// Numbers holds one raw input per expected numerical answer.
	Numbers []string
	// Point is the selected position on a point-selector image.
	Point *point.Selection
}

// NewDraft returns an empty draft shaped for q.
func NewDraft(q Question) Draft {
	if n, ok := q.(Numerical); ok {
		return Draft{Numbers: make([]string, len(n.Answers))}
	}
	return Draft{}
}

// Clone returns a copy that shares no memory with d.
func (d Draft) Clone() Draft {
	out := Draft{Choice: d.Choice}
	if d.Numbers != nil {
		out.Numbers = append([]string(nil), d.Numbers...)
	}
	if d.Point != nil {
		sel := *d.Point
		out.Point = &sel
	}
	return out
}

// SelectOption records option index i of a multiple-choice question.
func (d *Draft) SelectOption(q Question, i int) error {
	mc, ok := q.(MultipleChoice)
	if !ok {
		return domain.ErrWrongQuestionType
	}
	if i < 0 || i >= len(mc.Options) {
		return fmt.Errorf("%w: %d of %d", domain.ErrOptionOutOfRange, i, len(mc.Options))
	}
	d.Choice = strconv.Itoa(i)
	return nil
}

// SetNumber stores the raw input for one numerical answer slot.
func (d *Draft) SetNumber(q Question, slot int, raw string) error {
	n, ok := q.(Numerical)
	if !ok {
		return domain.ErrWrongQuestionType
	}
	if slot < 0 || slot >= len(n.Answers) {
		return fmt.Errorf("%w: %d of %d", domain.ErrSlotOutOfRange, slot, len(n.Answers))
	}
	if len(d.Numbers) != len(n.Answers) {
		numbers := make([]string, len(n.Answers))
		copy(numbers, d.Numbers)
		d.Numbers = numbers
	}
	d.Numbers[slot] = raw
	return nil
}

// SelectPoint stores the selected position of a point-selector question.
func (d *Draft) SelectPoint(q Question, sel point.Selection) error {
	if _, ok := q.(PointSelector); !ok {
		return domain.ErrWrongQuestionType
	}
	if !sel.Box.Ready() {
		return point.ErrBoxNotReady
	}
	d.Point = &sel
	return nil
}

// IsAnswerValid reports whether d is a complete answer to q.
func IsAnswerValid(q Question, d Draft) bool {
	switch q := q.(type) {
	case MultipleChoice:
		return d.Choice != ""
	case Numerical:
		if len(d.Numbers) != len(q.Answers) {
			return false
		}
		for _, raw := range d.Numbers {
			if !isNumber(raw) {
				return false
			}
		}
		return true
	case PointSelector:
		return d.Point != nil
	}
	return false
}

// EncodeAnswer returns the answers field of the answer packet for d.
func EncodeAnswer(q Question, d Draft) ([]string, error) {
	if !IsAnswerValid(q, d) {
		return nil, domain.ErrInvalidAnswer
	}
	switch q.(type) {
	case MultipleChoice:
		return []string{d.Choice}, nil
	case Numerical:
		return append([]string(nil), d.Numbers...), nil
	default:
		n, err := d.Point.Normalized()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidAnswer, err)
		}
		return []string{formatCoordinate(n.X), formatCoordinate(n.Y)}, nil
	}
}

// isNumber accepts finite decimal literals only; empty strings, NaN and
// infinities are rejected by the decimal parser.
func isNumber(raw string) bool {
	if raw == "" {
		return false
	}
	_, err := decimal.NewFromString(raw)
	return err == nil
}

func formatCoordinate(v float64) string {
	return decimal.NewFromFloat(v).String()
}
