package assistant

import (
	"strings"

	"botkit-webhooks/internal/botkit"
)

var topicPhrases = []struct {
	hook    botkit.WebhookName
	phrases []string
}{
	{botkit.WebhookFlightBoardingPass, []string{"boarding pass", "boardingpass", "my pass"}},
	{botkit.WebhookFlightGateNumber, []string{"gate"}},
	{botkit.WebhookFlightBoardingTime, []string{"boarding time", "when do we board", "when does boarding"}},
	{botkit.WebhookFlightDepartureTime, []string{"departure time", "when do i leave", "when does it leave"}},
	{botkit.WebhookFlightArrivalTime, []string{"arrival time", "when do i land", "when does it land"}},
	{botkit.WebhookFlightStatus, []string{"flight status", "delayed", "on time", "delay"}},
	{botkit.WebhookReservationCancel, []string{"cancel my", "cancel the booking", "cancel reservation"}},
	{botkit.WebhookChangeBooking, []string{"change my", "change booking", "rebook"}},
	{botkit.WebhookShowReservation, []string{"my reservation", "my booking", "show reservation"}},
	{botkit.WebhookAirportNavigation, []string{"where is", "lounge", "terminal"}},
	{botkit.WebhookAskWeather, []string{"weather", "rain", "forecast"}},
	{botkit.WebhookAskTime, []string{"what time is it", "local time"}},
	{botkit.WebhookSearchHotel, []string{"hotel"}},
	{botkit.WebhookSearchCar, []string{"rent a car", "car rental", "rental car"}},
	{botkit.WebhookSearchFlight, []string{"flight to", "flights to", "fly to"}},
	{botkit.WebhookShowHelp, []string{"help", "what can you do"}},
}

// DetectTopic maps free text to the webhook that would serve it, using
// simple phrase matching. ok is false when nothing matched.
func DetectTopic(text string) (botkit.WebhookName, bool) {
	m := strings.ToLower(strings.TrimSpace(text))
	if m == "" {
		return "", false
	}
	for _, t := range topicPhrases {
		if containsAny(m, t.phrases) {
			return t.hook, true
		}
	}
	return "", false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
