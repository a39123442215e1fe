package botkit

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decodeJSONList(t *testing.T, src string) []any {
	t.Helper()
	var raw []any
	require.NoError(t, json.Unmarshal([]byte(src), &raw))
	return raw
}

func TestDecodeMessages_RoundTrip(t *testing.T) {
	src := `[
		{"_type":"TextMessage","text":"I will try to transfer you to an agent!"},
		{"_type":"ImageMessage","imageUrl":"http://x/lock.png"},
		{"_type":"RichMessage","title":"Card","buttons":[
			{"_type":"ButtonMessage","text":"Open","url":"http://x"},
			{"_type":"ButtonMessage","text":"Say","action":{"_type":"InsertTextAction","text":"hi"}}
		]},
		{"_type":"MultiRichMessage","messages":[{"_type":"RichMessage","title":"A"}]},
		{"_type":"HtmlMessage","html":"<p>x</p>","width":"200"},
		{"_type":"DataMessage","subType":"airline_update","jsonData":{"flight_number":"UAL123"},"introMessage":"Status"},
		{"_type":"LoginOAuthEvent","webLoginUrl":"https://chat.evature.com/demo_login","loginSuccessHook":{"webhook":"flight_boarding_pass"},"text":"Please Login in first"}
	]`
	msgs, err := DecodeMessages(decodeJSONList(t, src))
	require.NoError(t, err)
	require.Len(t, msgs, 7)

	got, err := Encode(NewResponse(msgs...))
	require.NoError(t, err)

	var want, have map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"botkitVersion":"0.3.0","messages":`+src+`}`), &want))
	require.NoError(t, json.Unmarshal(got, &have))
	assert.Equal(t, want, have)
}

func TestDecodeMessages_Questionnaire(t *testing.T) {
	src := `[{"_type":"QuestionnaireEvent",
		"questions":[
			{"_type":"MultiChoiceQuestion","name":"bot_or_agent","text":"Who?","choices":["YatraBot Please!","Agent"]},
			{"_type":"OpenQuestion","name":"ref","text":"Ref?","validationRegex":"a.{2}"}
		],
		"questionnaireAnsweredHook":{"webhook":"contact_support","payload":{"step":1}},
		"questionnaireAbortedHook":{"url":"https://example.com/aborted"}}]`
	msgs, err := DecodeMessages(decodeJSONList(t, src))
	require.NoError(t, err)

	ev, ok := msgs[0].(QuestionnaireEvent)
	require.True(t, ok)
	require.Len(t, ev.Questions, 2)
	open, ok := ev.Questions[1].(OpenQuestion)
	require.True(t, ok)
	assert.True(t, open.Accepts("abc"))
	assert.Equal(t, map[string]any{"step": float64(1)}, ev.QuestionnaireAnsweredHook.Payload)
	require.NotNil(t, ev.QuestionnaireAbortedHook)
	assert.Equal(t, "https://example.com/aborted", ev.QuestionnaireAbortedHook.URL)
}

func TestDecodeMessages_Errors(t *testing.T) {
	tests := []struct {
		name      string
		src       string
		protocol  bool
		wantIndex int
	}{
		{name: "unknown type", src: `[{"_type":"TextMessage","text":"a"},{"_type":"VideoMessage"}]`, protocol: true, wantIndex: 1},
		{name: "missing type", src: `[{"text":"a"}]`, protocol: true, wantIndex: 0},
		{name: "not an object", src: `["hello"]`, protocol: true, wantIndex: 0},
		{name: "misplaced event", src: `[{"_type":"LoginOAuthEvent","webLoginUrl":"https://a.b/c","loginSuccessHook":{"webhook":"logout"}},{"_type":"TextMessage"}]`, protocol: true, wantIndex: 0},
		{name: "login without hook", src: `[{"_type":"LoginOAuthEvent","webLoginUrl":"https://a.b/c"}]`},
		{name: "login with unknown webhook", src: `[{"_type":"LoginOAuthEvent","webLoginUrl":"https://a.b/c","loginSuccessHook":{"webhook":"nope"}}]`},
		{name: "wrong field type", src: `[{"_type":"TextMessage","text":42}]`},
		{name: "unknown data template", src: `[{"_type":"DataMessage","subType":"airline_lounge"}]`},
		{name: "empty questionnaire", src: `[{"_type":"QuestionnaireEvent","questionnaireAnsweredHook":{"webhook":"logout"}}]`},
		{name: "bad button action", src: `[{"_type":"ButtonMessage","text":"x","action":{"_type":"Dance"}}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeMessages(decodeJSONList(t, tt.src))
			require.Error(t, err)
			if !tt.protocol {
				assert.ErrorIs(t, err, ErrInvalidMessage)
				return
			}
			var pe *ProtocolError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.wantIndex, pe.Index)
		})
	}
}

func TestDecodeMessages_YAML(t *testing.T) {
	src := `
- _type: TextMessage
  text: Here is an example of a Boarding Pass
- _type: DataMessage
  subType: airline_boardingpass
  asAttachment: true
  jsonData:
    seat: 75A
    secondary_fields:
      - {label: Gate, value: D57}
    1: numeric key
`
	var raw []any
	require.NoError(t, yaml.Unmarshal([]byte(src), &raw))
	msgs, err := DecodeMessages(raw)
	require.NoError(t, err)

	got, err := EncodeMessage(msgs[1])
	require.NoError(t, err)
	assert.Equal(t, `{"_type":"DataMessage","jsonData":{"1":"numeric key","seat":"75A",`+
		`"secondary_fields":[{"label":"Gate","value":"D57"}]},"subType":"airline_boardingpass","asAttachment":true}`, string(got))
}

func TestDecodeHook(t *testing.T) {
	h, err := DecodeHook(map[string]any{"webhook": "identify_user", "payload": "p"})
	require.NoError(t, err)
	assert.Equal(t, HookTo(WebhookIdentifyUser).WithPayload("p"), h)

	_, err = DecodeHook("identify_user")
	assert.ErrorIs(t, err, ErrInvalidMessage)
	_, err = DecodeHook(map[string]any{"url": "https://a.b", "webhook": "logout"})
	assert.ErrorIs(t, err, ErrInvalidMessage)
}
