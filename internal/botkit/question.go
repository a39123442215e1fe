package botkit

import (
	"regexp"
	"slices"
)

// Question is a message the platform asks inside a questionnaire. Name is
// the key the answer is reported under.
type Question interface {
	Message
	QuestionName() string
	isQuestion()
}

// MultiChoiceQuestion offers a fixed list of answers.
type MultiChoiceQuestion struct {
	Name    string
	Text    string
	Choices []string
}

func NewMultiChoiceQuestion(name, text string, choices ...string) (MultiChoiceQuestion, error) {
	q := MultiChoiceQuestion{Name: name, Text: text, Choices: choices}
	if err := q.Validate(); err != nil {
		return MultiChoiceQuestion{}, err
	}
	return q, nil
}

func (MultiChoiceQuestion) Type() string           { return TypeMultiChoiceQuestion }
func (q MultiChoiceQuestion) QuestionName() string { return q.Name }
func (MultiChoiceQuestion) isMessage()             {}
func (MultiChoiceQuestion) isQuestion()            {}

func (q MultiChoiceQuestion) Validate() error {
	if q.Name == "" {
		return invalid(TypeMultiChoiceQuestion, "name", "is required")
	}
	if len(q.Choices) == 0 {
		return invalid(TypeMultiChoiceQuestion, "choices", "must not be empty")
	}
	return nil
}

// Offers reports whether answer is one of the choices.
func (q MultiChoiceQuestion) Offers(answer string) bool {
	return slices.Contains(q.Choices, answer)
}

func (q MultiChoiceQuestion) EncodeFields(f *Fields) {
	f.String("name", q.Name)
	f.String("text", q.Text)
	f.Strings("choices", q.Choices)
}

// EmailQuestion asks for an email address.
type EmailQuestion struct {
	Name string
	Text string
}

func NewEmailQuestion(name, text string) (EmailQuestion, error) {
	q := EmailQuestion{Name: name, Text: text}
	if err := q.Validate(); err != nil {
		return EmailQuestion{}, err
	}
	return q, nil
}

func (EmailQuestion) Type() string           { return TypeEmailQuestion }
func (q EmailQuestion) QuestionName() string { return q.Name }
func (EmailQuestion) isMessage()             {}
func (EmailQuestion) isQuestion()            {}

func (q EmailQuestion) Validate() error {
	if q.Name == "" {
		return invalid(TypeEmailQuestion, "name", "is required")
	}
	return nil
}

func (q EmailQuestion) EncodeFields(f *Fields) {
	f.String("name", q.Name)
	f.String("text", q.Text)
}

// OpenQuestion accepts free text, optionally constrained by ValidationRegex.
// The regex must match the whole answer.
type OpenQuestion struct {
	Name            string
	Text            string
	ValidationRegex string

	re *regexp.Regexp
}

func NewOpenQuestion(name, text, validationRegex string) (OpenQuestion, error) {
	q := OpenQuestion{Name: name, Text: text, ValidationRegex: validationRegex}
	if err := q.Validate(); err != nil {
		return OpenQuestion{}, err
	}
	if validationRegex != "" {
		q.re = regexp.MustCompile(anchored(validationRegex))
	}
	return q, nil
}

func (OpenQuestion) Type() string           { return TypeOpenQuestion }
func (q OpenQuestion) QuestionName() string { return q.Name }
func (OpenQuestion) isMessage()             {}
func (OpenQuestion) isQuestion()            {}

func (q OpenQuestion) Validate() error {
	if q.Name == "" {
		return invalid(TypeOpenQuestion, "name", "is required")
	}
	if q.ValidationRegex != "" {
		if _, err := regexp.Compile(anchored(q.ValidationRegex)); err != nil {
			return invalid(TypeOpenQuestion, "validationRegex", "does not compile: "+err.Error())
		}
	}
	return nil
}

// Accepts reports whether answer satisfies ValidationRegex. A question
// without a regex accepts anything; an uncompilable regex accepts nothing.
func (q OpenQuestion) Accepts(answer string) bool {
	if q.ValidationRegex == "" {
		return true
	}
	re := q.re
	if re == nil {
		var err error
		if re, err = regexp.Compile(anchored(q.ValidationRegex)); err != nil {
			return false
		}
	}
	return re.MatchString(answer)
}

func (q OpenQuestion) EncodeFields(f *Fields) {
	f.String("name", q.Name)
	f.String("text", q.Text)
	f.String("validationRegex", q.ValidationRegex)
}

func anchored(expr string) string { return `^(?:` + expr + `)$` }
