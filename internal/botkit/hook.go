package botkit

import (
	"net/url"
	"sort"
)

// WebhookName names one of the applicative webhooks the platform can call.
// The set is closed; ParseWebhookName rejects anything outside it.
type WebhookName string

const (
	WebhookSearchFlight          WebhookName = "search_flight"
	WebhookSearchCar             WebhookName = "search_car"
	WebhookSearchHotel           WebhookName = "search_hotel"
	WebhookSearchCruise          WebhookName = "search_cruise"
	WebhookChatGreeting          WebhookName = "chat_greeting"
	WebhookFlightGateNumber      WebhookName = "flight_gate_number"
	WebhookFlightDepartureTime   WebhookName = "flight_departure_time"
	WebhookFlightArrivalTime     WebhookName = "flight_arrival_time"
	WebhookFlightBoardingTime    WebhookName = "flight_boarding_time"
	WebhookFlightBoardingPass    WebhookName = "flight_boarding_pass"
	WebhookFlightItinerary       WebhookName = "flight_itinerary"
	WebhookReservationShow       WebhookName = "reservation_show"
	WebhookReservationCancel     WebhookName = "reservation_cancel"
	WebhookMessageLogger         WebhookName = "message_logger" // called for every sent message
	WebhookFlightStatus          WebhookName = "flight_status"
	WebhookIdentifyUser          WebhookName = "identify_user"           // login form complete, returns loginData
	WebhookIdentifyUserQuestions WebhookName = "identify_user_questions" // custom login questions
	WebhookContactSupport        WebhookName = "contact_support"
	WebhookAirportNavigation     WebhookName = "airport_navigation"
	WebhookChangeBooking         WebhookName = "change_booking"
	WebhookLogout                WebhookName = "logout"
	WebhookArrivals              WebhookName = "arrivals"
	WebhookDepartures            WebhookName = "departures"
	WebhookShowHelp              WebhookName = "show_help"
	WebhookShowReservation       WebhookName = "show_reservation"
	WebhookAskTime               WebhookName = "ask_time"
	WebhookAskWeather            WebhookName = "ask_weather"
)

var webhookNames = map[WebhookName]struct{}{
	WebhookSearchFlight: {}, WebhookSearchCar: {}, WebhookSearchHotel: {}, WebhookSearchCruise: {},
	WebhookChatGreeting: {}, WebhookFlightGateNumber: {}, WebhookFlightDepartureTime: {},
	WebhookFlightArrivalTime: {}, WebhookFlightBoardingTime: {}, WebhookFlightBoardingPass: {},
	WebhookFlightItinerary: {}, WebhookReservationShow: {}, WebhookReservationCancel: {},
	WebhookMessageLogger: {}, WebhookFlightStatus: {}, WebhookIdentifyUser: {},
	WebhookIdentifyUserQuestions: {}, WebhookContactSupport: {}, WebhookAirportNavigation: {},
	WebhookChangeBooking: {}, WebhookLogout: {}, WebhookArrivals: {}, WebhookDepartures: {},
	WebhookShowHelp: {}, WebhookShowReservation: {}, WebhookAskTime: {}, WebhookAskWeather: {},
}

// Valid reports whether n belongs to the known webhook set.
func (n WebhookName) Valid() bool {
	_, ok := webhookNames[n]
	return ok
}

// ParseWebhookName converts s into a WebhookName, failing for unknown names.
func ParseWebhookName(s string) (WebhookName, error) {
	n := WebhookName(s)
	if !n.Valid() {
		return "", invalid("Hook", "webhook", "names an unknown webhook "+quote(s))
	}
	return n, nil
}

// WebhookNames returns the known webhook names in lexical order.
func WebhookNames() []WebhookName {
	out := make([]WebhookName, 0, len(webhookNames))
	for n := range webhookNames {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Hook is the correlation record that ties the two calls of a handshake
// together. Exactly one of Webhook and URL is set; Payload is echoed back by
// the platform verbatim.
type Hook struct {
	Webhook WebhookName
	URL     string
	Payload any
}

// HookTo returns a hook that calls the named webhook.
func HookTo(name WebhookName) Hook { return Hook{Webhook: name} }

// HookURL returns a hook that calls an absolute URL.
func HookURL(u string) Hook { return Hook{URL: u} }

// WithPayload returns a copy of h carrying payload.
func (h Hook) WithPayload(payload any) Hook {
	h.Payload = payload
	return h
}

// IsZero reports whether h carries nothing at all.
func (h Hook) IsZero() bool {
	return h.Webhook == "" && h.URL == "" && h.Payload == nil
}

// Validate checks the one-of constraint and the target itself.
func (h Hook) Validate() error {
	switch {
	case h.Webhook != "" && h.URL != "":
		return invalid("Hook", "", "sets both webhook and url")
	case h.Webhook == "" && h.URL == "":
		return invalid("Hook", "", "sets neither webhook nor url")
	case h.Webhook != "":
		if !h.Webhook.Valid() {
			return invalid("Hook", "webhook", "names an unknown webhook "+quote(string(h.Webhook)))
		}
	default:
		if !isAbsoluteURL(h.URL) {
			return invalid("Hook", "url", "must be an absolute URL")
		}
	}
	return nil
}

// EncodeFields writes the hook. Hooks are plain records and carry no _type.
func (h Hook) EncodeFields(f *Fields) {
	f.String("webhook", string(h.Webhook))
	f.String("url", h.URL)
	f.Value("payload", h.Payload)
}

// Target returns the webhook name or URL, whichever is set.
func (h Hook) Target() string {
	if h.Webhook != "" {
		return string(h.Webhook)
	}
	return h.URL
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs() && u.Host != ""
}

func quote(s string) string { return "\"" + s + "\"" }
