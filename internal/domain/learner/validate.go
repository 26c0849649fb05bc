package learner

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/santhosh-tekuri/jsonschema/v6/kind"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ConstraintLTEAttemptCount names the cross-field rule correct_attempts <= attempt_count.
const ConstraintLTEAttemptCount = "lte_attempt_count"

const schemaURL = "https://alie.okian.dev/schemas/learner-snapshot.json"

//go:embed snapshot.schema.json
var schemaDoc []byte

// Schema returns the embedded JSON Schema document.
func Schema() []byte {
	return bytes.Clone(schemaDoc)
}

var compiled = sync.OnceValues(func() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaDoc))
	if err != nil {
		return nil, fmt.Errorf("parse snapshot schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add snapshot schema: %w", err)
	}
	return c.Compile(schemaURL)
})

var printer = message.NewPrinter(language.English)

// ParseJSON validates raw against the snapshot schema and decodes it.
// Malformed input returns an error wrapping ErrMalformedJSON; rule
// violations return a *ValidationError listing all of them.
func ParseJSON(raw []byte) (Snapshot, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return fromDocument(doc)
}

// FromMap validates an already decoded input map.
func FromMap(m map[string]any) (Snapshot, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	return ParseJSON(raw)
}

// Validate runs the snapshot rules against s.
func (s Snapshot) Validate() error {
	raw, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	_, err = ParseJSON(raw)
	return err
}

func fromDocument(doc any) (Snapshot, error) {
	sch, err := compiled()
	if err != nil {
		return Snapshot{}, err
	}

	var violations []Violation
	if err := sch.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			return Snapshot{}, err
		}
		violations = collect(verr, violations)
	}

	obj, _ := doc.(map[string]any)
	violations = wholeNumbers(obj, violations)
	if v, ok := crossField(obj); !ok {
		violations = append(violations, v)
	}

	if len(violations) > 0 {
		sort.SliceStable(violations, func(i, j int) bool {
			if violations[i].Field != violations[j].Field {
				return violations[i].Field < violations[j].Field
			}
			return violations[i].Constraint < violations[j].Constraint
		})
		return Snapshot{}, &ValidationError{Violations: violations}
	}
	return decode(obj), nil
}

// collect flattens the leaf errors of a schema validation tree.
func collect(e *jsonschema.ValidationError, out []Violation) []Violation {
	if len(e.Causes) > 0 {
		for _, c := range e.Causes {
			out = collect(c, out)
		}
		return out
	}

	base := strings.Join(e.InstanceLocation, ".")
	switch k := e.ErrorKind.(type) {
	case *kind.Required:
		for _, name := range k.Missing {
			out = append(out, Violation{
				Field:      join(base, name),
				Message:    "field required",
				Constraint: "required",
			})
		}
	case *kind.AdditionalProperties:
		for _, name := range k.Properties {
			out = append(out, Violation{
				Field:      join(base, name),
				Message:    "unknown field",
				Constraint: "additionalProperties",
			})
		}
	default:
		constraint := "schema"
		if path := e.ErrorKind.KeywordPath(); len(path) > 0 {
			constraint = path[len(path)-1]
		}
		field := base
		if field == "" {
			field = "body"
		}
		out = append(out, Violation{
			Field:      field,
			Message:    e.ErrorKind.LocalizedString(printer),
			Constraint: constraint,
		})
	}
	return out
}

func join(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

var integerFields = [...]string{FieldAttemptCount, FieldCorrectAttempts, FieldDifficultyFeedback}

// wholeNumbers flags integer fields the schema accepted but int64 cannot hold,
// so decode never sees a value it would have to alter.
func wholeNumbers(obj map[string]any, out []Violation) []Violation {
	for _, name := range integerFields {
		v, present := obj[name]
		if !present || flagged(out, name) {
			continue
		}
		if _, ok := v.(json.Number); !ok {
			continue
		}
		if _, ok := integer(v); !ok {
			out = append(out, Violation{
				Field:      name,
				Message:    fmt.Sprintf("%v is not a representable integer", v),
				Constraint: "type",
			})
		}
	}
	return out
}

func flagged(vs []Violation, field string) bool {
	for _, v := range vs {
		if v.Field == field {
			return true
		}
	}
	return false
}

// crossField checks correct_attempts <= attempt_count when both are integers.
func crossField(obj map[string]any) (Violation, bool) {
	attempts, okA := integer(obj[FieldAttemptCount])
	correct, okC := integer(obj[FieldCorrectAttempts])
	if !okA || !okC || correct <= attempts {
		return Violation{}, true
	}
	return Violation{
		Field:      FieldCorrectAttempts,
		Message:    fmt.Sprintf("correct_attempts (%d) must not exceed attempt_count (%d)", correct, attempts),
		Constraint: ConstraintLTEAttemptCount,
	}, false
}

func integer(v any) (int64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return i, true
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func number(v any) float64 {
	n, ok := v.(json.Number)
	if !ok {
		return 0
	}
	f, _ := n.Float64()
	return f
}

// decode builds a Snapshot from a document that already passed validation.
func decode(obj map[string]any) Snapshot {
	str := func(k string) string { s, _ := obj[k].(string); return s }
	whole := func(k string) int { i, _ := integer(obj[k]); return int(i) }
	return Snapshot{
		UserID:               str(FieldUserID),
		TopicID:              str(FieldTopicID),
		AttemptCount:         whole(FieldAttemptCount),
		CorrectAttempts:      whole(FieldCorrectAttempts),
		AvgResponseTime:      number(obj[FieldAvgResponseTime]),
		SelfConfidenceRating: number(obj[FieldSelfConfidenceRating]),
		DifficultyFeedback:   whole(FieldDifficultyFeedback),
		SessionDuration:      number(obj[FieldSessionDuration]),
		PreviousMasteryScore: number(obj[FieldPreviousMasteryScore]),
		TimeSinceLastAttempt: number(obj[FieldTimeSinceLastAttempt]),
	}
}
