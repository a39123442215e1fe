package botkit

// LoginOAuthEvent starts the login handshake. The platform sends the user to
// WebLoginURL and calls LoginSuccessHook (or LoginFailHook) with loginData
// once the user is done.
type LoginOAuthEvent struct {
	WebLoginURL      string
	LoginSuccessHook Hook
	LoginFailHook    *Hook
	Text             string
	ImageURL         string
}

// LoginOption customizes a LoginOAuthEvent.
type LoginOption func(*LoginOAuthEvent)

// WithLoginFailHook sets the hook called when the login fails.
func WithLoginFailHook(h Hook) LoginOption {
	return func(e *LoginOAuthEvent) { e.LoginFailHook = &h }
}

// WithLoginImage sets the image shown next to the login prompt.
func WithLoginImage(imageURL string) LoginOption {
	return func(e *LoginOAuthEvent) { e.ImageURL = imageURL }
}

// NewLoginOAuthEvent builds a login initiator. webLoginURL and success are
// mandatory.
func NewLoginOAuthEvent(webLoginURL string, success Hook, text string, opts ...LoginOption) (LoginOAuthEvent, error) {
	e := LoginOAuthEvent{WebLoginURL: webLoginURL, LoginSuccessHook: success, Text: text}
	for _, opt := range opts {
		opt(&e)
	}
	if err := e.Validate(); err != nil {
		return LoginOAuthEvent{}, err
	}
	return e, nil
}

func (LoginOAuthEvent) Type() string   { return TypeLoginOAuthEvent }
func (LoginOAuthEvent) isMessage()     {}
func (LoginOAuthEvent) isInteractive() {}

func (e LoginOAuthEvent) Validate() error {
	if e.WebLoginURL == "" {
		return invalid(TypeLoginOAuthEvent, "webLoginUrl", "is required")
	}
	if !isAbsoluteURL(e.WebLoginURL) {
		return invalid(TypeLoginOAuthEvent, "webLoginUrl", "must be an absolute URL")
	}
	if e.LoginSuccessHook.IsZero() {
		return invalid(TypeLoginOAuthEvent, "loginSuccessHook", "is required")
	}
	if err := e.LoginSuccessHook.Validate(); err != nil {
		return invalid(TypeLoginOAuthEvent, "loginSuccessHook", reasonOf(err))
	}
	if e.LoginFailHook != nil {
		if err := e.LoginFailHook.Validate(); err != nil {
			return invalid(TypeLoginOAuthEvent, "loginFailHook", reasonOf(err))
		}
	}
	return nil
}

func (e LoginOAuthEvent) EncodeFields(f *Fields) {
	f.String("webLoginUrl", e.WebLoginURL)
	f.Record("loginSuccessHook", e.LoginSuccessHook)
	if e.LoginFailHook != nil {
		f.Record("loginFailHook", *e.LoginFailHook)
	}
	f.String("text", e.Text)
	f.String("imageUrl", e.ImageURL)
}

// QuestionnaireEvent starts the questionnaire handshake. The platform asks
// Questions in order and calls QuestionnaireAnsweredHook with the answers
// keyed by question name, or QuestionnaireAbortedHook if the user cancels.
type QuestionnaireEvent struct {
	Questions                 []Question
	QuestionnaireAnsweredHook Hook
	QuestionnaireAbortedHook  *Hook
}

// QuestionnaireOption customizes a QuestionnaireEvent.
type QuestionnaireOption func(*QuestionnaireEvent)

// WithAbortedHook sets the hook called when the user cancels.
func WithAbortedHook(h Hook) QuestionnaireOption {
	return func(e *QuestionnaireEvent) { e.QuestionnaireAbortedHook = &h }
}

// NewQuestionnaireEvent builds a questionnaire initiator. At least one
// question and the answered hook are mandatory.
func NewQuestionnaireEvent(answered Hook, questions []Question, opts ...QuestionnaireOption) (QuestionnaireEvent, error) {
	e := QuestionnaireEvent{Questions: questions, QuestionnaireAnsweredHook: answered}
	for _, opt := range opts {
		opt(&e)
	}
	if err := e.Validate(); err != nil {
		return QuestionnaireEvent{}, err
	}
	return e, nil
}

func (QuestionnaireEvent) Type() string   { return TypeQuestionnaireEvent }
func (QuestionnaireEvent) isMessage()     {}
func (QuestionnaireEvent) isInteractive() {}

func (e QuestionnaireEvent) Validate() error {
	if len(e.Questions) == 0 {
		return invalid(TypeQuestionnaireEvent, "questions", "must not be empty")
	}
	seen := make(map[string]struct{}, len(e.Questions))
	for _, q := range e.Questions {
		if q == nil || isNilValue(q) {
			return invalid(TypeQuestionnaireEvent, "questions", "contains a nil question")
		}
		if err := q.Validate(); err != nil {
			return err
		}
		if _, dup := seen[q.QuestionName()]; dup {
			return invalid(TypeQuestionnaireEvent, "questions", "repeat the name "+quote(q.QuestionName()))
		}
		seen[q.QuestionName()] = struct{}{}
	}
	if e.QuestionnaireAnsweredHook.IsZero() {
		return invalid(TypeQuestionnaireEvent, "questionnaireAnsweredHook", "is required")
	}
	if err := e.QuestionnaireAnsweredHook.Validate(); err != nil {
		return invalid(TypeQuestionnaireEvent, "questionnaireAnsweredHook", reasonOf(err))
	}
	if e.QuestionnaireAbortedHook != nil {
		if err := e.QuestionnaireAbortedHook.Validate(); err != nil {
			return invalid(TypeQuestionnaireEvent, "questionnaireAbortedHook", reasonOf(err))
		}
	}
	return nil
}

// Question returns the question named name.
func (e QuestionnaireEvent) Question(name string) (Question, bool) {
	for _, q := range e.Questions {
		if q.QuestionName() == name {
			return q, true
		}
	}
	return nil, false
}

func (e QuestionnaireEvent) EncodeFields(f *Fields) {
	List(f, "questions", e.Questions)
	f.Record("questionnaireAnsweredHook", e.QuestionnaireAnsweredHook)
	if e.QuestionnaireAbortedHook != nil {
		f.Record("questionnaireAbortedHook", *e.QuestionnaireAbortedHook)
	}
}
