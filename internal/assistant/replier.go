// Package assistant produces the automated reply a user gets after choosing
// the bot over a human agent.
package assistant

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"botkit-webhooks/internal/botkit"
)

// Request is what the assistant knows about the user when it replies.
type Request struct {
	ChatKey string
	Answers map[string]string
	// Text is the free-form request, if the user typed one.
	Text string
}

// Replier turns a request into a message sequence. The sequence never ends
// in an interactive event, so callers may append one.
type Replier interface {
	Reply(ctx context.Context, req Request) ([]botkit.Message, error)
}

var topicReplies = map[botkit.WebhookName]string{
	botkit.WebhookFlightBoardingPass:  "I can get your boarding pass ready. Just ask me for it once you are logged in.",
	botkit.WebhookFlightGateNumber:    "Gate numbers are posted about an hour before boarding. Ask me again closer to departure.",
	botkit.WebhookFlightBoardingTime:  "Boarding usually starts 40 minutes before departure.",
	botkit.WebhookFlightDepartureTime: "I can look up your departure time from your reservation.",
	botkit.WebhookFlightArrivalTime:   "I can look up your arrival time from your reservation.",
	botkit.WebhookFlightStatus:        "I can check the live status of your flight.",
	botkit.WebhookReservationCancel:   "I can help you cancel. Please have your booking reference ready.",
	botkit.WebhookChangeBooking:       "I can help you change your booking. Please have your booking reference ready.",
	botkit.WebhookShowReservation:     "I can show your reservation once you are logged in.",
	botkit.WebhookAirportNavigation:   "Tell me which terminal you are in and I will guide you.",
	botkit.WebhookAskWeather:          "I can tell you the forecast at your destination.",
	botkit.WebhookAskTime:             "I can tell you the local time at your destination.",
	botkit.WebhookSearchHotel:         "I can search hotels at your destination.",
	botkit.WebhookSearchCar:           "I can search rental cars at your destination.",
	botkit.WebhookSearchFlight:        "I can search flights for you. Where would you like to go?",
	botkit.WebhookShowHelp:            "I can help with boarding passes, flight status, bookings and more.",
}

// StaticReplier answers from a fixed phrase table.
type StaticReplier struct {
	// Name is how the bot introduces itself.
	Name string
}

func (s StaticReplier) Reply(_ context.Context, req Request) ([]botkit.Message, error) {
	name := s.Name
	if name == "" {
		name = "YatraBot"
	}
	out := []botkit.Message{botkit.NewTextMessage(fmt.Sprintf("Great, %s here!", name))}
	if topic, ok := DetectTopic(req.Text); ok {
		out = append(out, botkit.NewTextMessage(topicReplies[topic]))
	} else {
		out = append(out, botkit.NewTextMessage("How can I help you with your trip?"))
	}
	if email := req.Answers["email"]; email != "" {
		out = append(out, botkit.NewTextMessage("I will send a summary to "+email+"."))
	}
	return out, nil
}

// transcript renders the request as prompt lines in a stable order.
func transcript(req Request) string {
	var b strings.Builder
	keys := make([]string, 0, len(req.Answers))
	for k := range req.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "ANSWER %s: %s\n", k, strings.TrimSpace(req.Answers[k]))
	}
	if t := strings.TrimSpace(req.Text); t != "" {
		fmt.Fprintf(&b, "USER: %s\n", strings.ReplaceAll(t, "\n\n", "\n"))
	}
	if topic, ok := DetectTopic(req.Text); ok {
		fmt.Fprintf(&b, "LIKELY TOPIC: %s\n", topic)
	}
	return b.String()
}
