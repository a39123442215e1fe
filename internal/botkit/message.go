// Package botkit models the BotKit webhook message protocol: the closed set
// of message variants, the selective JSON encoder and its decoder.
package botkit

// Message is the closed union of protocol messages. Every variant reports its
// wire discriminator through Type and writes its present fields through
// EncodeFields, in declaration order.
type Message interface {
	Record
	Type() string
	Validate() error
	isMessage()
}

// InteractiveEvent marks a message that starts a handshake. At most one may
// appear in a sequence and it must be the last element.
type InteractiveEvent interface {
	Message
	isInteractive()
}

// Variant names, used as the wire _type.
const (
	TypeTextMessage         = "TextMessage"
	TypeImageMessage        = "ImageMessage"
	TypeDataMessage         = "DataMessage"
	TypeHandoffToHumanEvent = "HandoffToHumanEvent"
	TypeRichMessage         = "RichMessage"
	TypeButtonMessage       = "ButtonMessage"
	TypeHTMLMessage         = "HtmlMessage"
	TypeMultiRichMessage    = "MultiRichMessage"
	TypeMultiChoiceQuestion = "MultiChoiceQuestion"
	TypeEmailQuestion       = "EmailQuestion"
	TypeOpenQuestion        = "OpenQuestion"
	TypeLoginOAuthEvent     = "LoginOAuthEvent"
	TypeQuestionnaireEvent  = "QuestionnaireEvent"
	TypeInsertTextAction    = "InsertTextAction"
)

// TextMessage is plain text.
type TextMessage struct {
	Text string
}

func NewTextMessage(text string) TextMessage { return TextMessage{Text: text} }

func (TextMessage) Type() string    { return TypeTextMessage }
func (TextMessage) Validate() error { return nil }
func (TextMessage) isMessage()      {}

func (m TextMessage) EncodeFields(f *Fields) {
	f.String("text", m.Text)
}

// ImageMessage shows an image inline, or as a document when AsAttachment is
// set.
type ImageMessage struct {
	ImageURL     string
	AsAttachment bool
}

func NewImageMessage(imageURL string, asAttachment bool) ImageMessage {
	return ImageMessage{ImageURL: imageURL, AsAttachment: asAttachment}
}

func (ImageMessage) Type() string    { return TypeImageMessage }
func (ImageMessage) Validate() error { return nil }
func (ImageMessage) isMessage()      {}

func (m ImageMessage) EncodeFields(f *Fields) {
	f.String("imageUrl", m.ImageURL)
	f.Bool("asAttachment", m.AsAttachment)
}

// DataSubType selects the template that interprets a DataMessage payload.
type DataSubType string

const (
	AirlineItinerary    DataSubType = "airline_itinerary"
	AirlineCheckin      DataSubType = "airline_checkin"
	AirlineBoardingPass DataSubType = "airline_boardingpass"
	AirlineUpdate       DataSubType = "airline_update"
)

// Valid reports whether s is one of the known templates.
func (s DataSubType) Valid() bool {
	switch s {
	case AirlineItinerary, AirlineCheckin, AirlineBoardingPass, AirlineUpdate:
		return true
	}
	return false
}

// DataMessage carries a templated payload whose shape is defined by SubType.
type DataMessage struct {
	JSONData     any
	SubType      DataSubType
	AsAttachment bool
	IntroMessage string
}

// NewDataMessage builds a DataMessage; subType must be a known template.
func NewDataMessage(subType DataSubType, jsonData any, introMessage string, asAttachment bool) (DataMessage, error) {
	m := DataMessage{JSONData: jsonData, SubType: subType, AsAttachment: asAttachment, IntroMessage: introMessage}
	if err := m.Validate(); err != nil {
		return DataMessage{}, err
	}
	return m, nil
}

func (DataMessage) Type() string { return TypeDataMessage }
func (DataMessage) isMessage()   {}

func (m DataMessage) Validate() error {
	if !m.SubType.Valid() {
		return invalid(TypeDataMessage, "subType", "is not a known template "+quote(string(m.SubType)))
	}
	return nil
}

func (m DataMessage) EncodeFields(f *Fields) {
	f.Value("jsonData", m.JSONData)
	f.String("subType", string(m.SubType))
	f.Bool("asAttachment", m.AsAttachment)
	f.String("introMessage", m.IntroMessage)
}

// HandoffToHumanEvent asks the platform to transfer the chat to an agent.
type HandoffToHumanEvent struct{}

func NewHandoffToHumanEvent() HandoffToHumanEvent { return HandoffToHumanEvent{} }

func (HandoffToHumanEvent) Type() string           { return TypeHandoffToHumanEvent }
func (HandoffToHumanEvent) Validate() error        { return nil }
func (HandoffToHumanEvent) isMessage()             {}
func (HandoffToHumanEvent) EncodeFields(_ *Fields) {}

// ButtonAction is the closed set of actions a button can trigger.
type ButtonAction interface {
	Record
	Type() string
	isButtonAction()
}

// InsertTextAction puts Text into the user's input box.
type InsertTextAction struct {
	Text string
}

func (InsertTextAction) Type() string    { return TypeInsertTextAction }
func (InsertTextAction) isButtonAction() {}

func (a InsertTextAction) EncodeFields(f *Fields) {
	f.String("text", a.Text)
}

// ButtonMessage is a tappable control, usually nested in a RichMessage.
type ButtonMessage struct {
	Text    string
	URL     string
	Payload any
	Action  ButtonAction
}

// NewURLButton returns a button that opens u.
func NewURLButton(text, u string) ButtonMessage { return ButtonMessage{Text: text, URL: u} }

// NewPayloadButton returns a button that posts payload back to the bot.
func NewPayloadButton(text string, payload any) ButtonMessage {
	return ButtonMessage{Text: text, Payload: payload}
}

// NewInsertTextButton returns a button that fills the input box with insert.
func NewInsertTextButton(text, insert string) ButtonMessage {
	return ButtonMessage{Text: text, Action: InsertTextAction{Text: insert}}
}

func (ButtonMessage) Type() string { return TypeButtonMessage }
func (ButtonMessage) isMessage()   {}

func (m ButtonMessage) Validate() error {
	if m.Text == "" {
		return invalid(TypeButtonMessage, "text", "is required")
	}
	return nil
}

func (m ButtonMessage) EncodeFields(f *Fields) {
	f.String("text", m.Text)
	f.String("url", m.URL)
	f.Value("payload", m.Payload)
	if m.Action != nil {
		f.Record("action", m.Action)
	}
}

// RichMessage is a card with optional buttons.
type RichMessage struct {
	Title    string
	Subtitle string
	ImageURL string
	Buttons  []ButtonMessage
	URL      string
}

func NewRichMessage(title, subtitle, imageURL, u string, buttons ...ButtonMessage) RichMessage {
	return RichMessage{Title: title, Subtitle: subtitle, ImageURL: imageURL, Buttons: buttons, URL: u}
}

func (RichMessage) Type() string { return TypeRichMessage }
func (RichMessage) isMessage()   {}

func (m RichMessage) Validate() error {
	for _, b := range m.Buttons {
		if err := b.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (m RichMessage) EncodeFields(f *Fields) {
	f.String("title", m.Title)
	f.String("subtitle", m.Subtitle)
	f.String("imageUrl", m.ImageURL)
	List(f, "buttons", m.Buttons)
	f.String("url", m.URL)
}

// HTMLMessage renders an inline HTML block of the given size.
type HTMLMessage struct {
	HTML   string
	Height string
	Width  string
}

func NewHTMLMessage(html, height, width string) HTMLMessage {
	return HTMLMessage{HTML: html, Height: height, Width: width}
}

func (HTMLMessage) Type() string    { return TypeHTMLMessage }
func (HTMLMessage) Validate() error { return nil }
func (HTMLMessage) isMessage()      {}

func (m HTMLMessage) EncodeFields(f *Fields) {
	f.String("html", m.HTML)
	f.String("height", m.Height)
	f.String("width", m.Width)
}

// MultiRichMessage groups cards into a carousel.
type MultiRichMessage struct {
	Messages []RichMessage
}

func NewMultiRichMessage(cards ...RichMessage) MultiRichMessage {
	return MultiRichMessage{Messages: cards}
}

func (MultiRichMessage) Type() string { return TypeMultiRichMessage }
func (MultiRichMessage) isMessage()   {}

func (m MultiRichMessage) Validate() error {
	for _, c := range m.Messages {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiRichMessage) EncodeFields(f *Fields) {
	List(f, "messages", m.Messages)
}
