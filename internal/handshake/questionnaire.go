package handshake

import (
	"fmt"
	"net/mail"

	"botkit-webhooks/internal/botkit"
	"botkit-webhooks/internal/types"
)

// Answers maps question names to what the user answered.
type Answers map[string]any

// String returns the answer to name as text. Scalars other than strings are
// formatted; objects and lists are not answers.
func (a Answers) String(name string) (string, bool) {
	v, ok := a[name]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case bool, float64, float32, int, int64:
		return fmt.Sprint(x), true
	}
	return "", false
}

// AnswerProblem explains why one answer was rejected.
type AnswerProblem struct {
	Question string
	Reason   string
}

// Questionnaire drives the questionnaire handshake around one event.
type Questionnaire struct {
	event botkit.QuestionnaireEvent
}

func NewQuestionnaire(answered botkit.Hook, questions []botkit.Question, opts ...botkit.QuestionnaireOption) (Questionnaire, error) {
	ev, err := botkit.NewQuestionnaireEvent(answered, questions, opts...)
	if err != nil {
		return Questionnaire{}, err
	}
	return Questionnaire{event: ev}, nil
}

// Event returns the initiating event.
func (q Questionnaire) Event() botkit.QuestionnaireEvent { return q.event }

// ReadAnswers extracts the answers from a continuation request. The
// "answers" object wins; without it, top-level fields named after questions
// are used. ok is false when nothing usable was posted; an empty "answers"
// object counts as nothing.
func (q Questionnaire) ReadAnswers(req types.ContinuationRequest) (Answers, bool) {
	if len(req.Answers) > 0 {
		return Answers(req.Answers), true
	}
	flat := Answers{}
	for _, question := range q.event.Questions {
		if v, ok := req.Raw[question.QuestionName()]; ok {
			flat[question.QuestionName()] = v
		}
	}
	if len(flat) == 0 {
		return nil, false
	}
	return flat, true
}

// Check validates the answers that were given against their questions.
// Unanswered questions are not problems; branching decides what absence
// means.
func (q Questionnaire) Check(answers Answers) []AnswerProblem {
	var problems []AnswerProblem
	for _, question := range q.event.Questions {
		name := question.QuestionName()
		if _, given := answers[name]; !given {
			continue
		}
		answer, ok := answers.String(name)
		if !ok {
			problems = append(problems, AnswerProblem{Question: name, Reason: "is not a text answer"})
			continue
		}
		switch qq := question.(type) {
		case botkit.OpenQuestion:
			if !qq.Accepts(answer) {
				problems = append(problems, AnswerProblem{Question: name, Reason: "does not have the expected format"})
			}
		case botkit.EmailQuestion:
			if addr, err := mail.ParseAddress(answer); err != nil || addr.Address != answer {
				problems = append(problems, AnswerProblem{Question: name, Reason: "is not an email address"})
			}
		case botkit.MultiChoiceQuestion:
			if !qq.Offers(answer) {
				problems = append(problems, AnswerProblem{Question: name, Reason: "is not one of the offered choices"})
			}
		}
	}
	return problems
}

// Ask returns the sequence that (re)starts the questionnaire, prefixed with
// one explanation per problem.
func (q Questionnaire) Ask(problems []AnswerProblem) []botkit.Message {
	out := make([]botkit.Message, 0, len(problems)+1)
	for _, p := range problems {
		text := p.Question
		if question, ok := q.event.Question(p.Question); ok {
			if t := questionText(question); t != "" {
				text = fmt.Sprintf("%q", t)
			}
		}
		out = append(out, botkit.NewTextMessage(fmt.Sprintf("Your answer to %s %s. Let's try again.", text, p.Reason)))
	}
	return append(out, q.event)
}

func questionText(q botkit.Question) string {
	switch qq := q.(type) {
	case botkit.OpenQuestion:
		return qq.Text
	case botkit.EmailQuestion:
		return qq.Text
	case botkit.MultiChoiceQuestion:
		return qq.Text
	}
	return ""
}

// Mode is the conversation path picked by a ModeSelector.
type Mode int

const (
	ModeHuman Mode = iota
	ModeBot
)

func (m Mode) String() string {
	if m == ModeBot {
		return "bot"
	}
	return "human"
}

// ModeSelector routes on one distinguished answer: BotChoice for Question
// selects the automated path, anything else (including no answer) the
// human one.
type ModeSelector struct {
	Question  string
	BotChoice string
}

func (s ModeSelector) Select(answers Answers) Mode {
	if v, ok := answers.String(s.Question); ok && v == s.BotChoice {
		return ModeBot
	}
	return ModeHuman
}
