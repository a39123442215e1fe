// Package catalog holds the canned webhook replies served by name. A catalog
// is loaded from YAML; the built-in one reproduces the demo routes.
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"botkit-webhooks/internal/botkit"
	"botkit-webhooks/internal/handshake"
	"botkit-webhooks/internal/types"
)

//go:embed default.yaml
var defaultYAML []byte

// DemoLoginURL is used for login sections when no other login page is
// configured.
const DemoLoginURL = "https://chat.evature.com/demo_login"

var routeName = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)

// Route is one named reply, optionally behind a login gate.
type Route struct {
	Name     string
	Messages []botkit.Message
	Gate     *handshake.LoginGate
}

// Respond returns the route's reply for one continuation request.
func (r Route) Respond(req types.ContinuationRequest) []botkit.Message {
	if r.Gate == nil {
		return r.Messages
	}
	return r.Gate.Respond(req, r.Messages)
}

// Catalog is an immutable set of routes.
type Catalog struct {
	routes map[string]Route
}

type catalogFile struct {
	Routes map[string]routeFile `yaml:"routes"`
}

type routeFile struct {
	Login    map[string]any `yaml:"login"`
	Messages []any          `yaml:"messages"`
}

// Parse builds a catalog from YAML. Login sections without a webLoginUrl get
// defaultLoginURL, or DemoLoginURL when that is empty.
func Parse(data []byte, defaultLoginURL string) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(f.Routes) == 0 {
		return nil, fmt.Errorf("parse catalog: no routes")
	}

	c := &Catalog{routes: make(map[string]Route, len(f.Routes))}
	for name, rf := range f.Routes {
		if !routeName.MatchString(name) {
			return nil, fmt.Errorf("route %q: invalid name", name)
		}
		msgs, err := botkit.DecodeMessages(rf.Messages)
		if err != nil {
			return nil, fmt.Errorf("route %q: %w", name, err)
		}
		route := Route{Name: name, Messages: msgs}
		if rf.Login != nil {
			gate, err := loginGate(rf.Login, defaultLoginURL)
			if err != nil {
				return nil, fmt.Errorf("route %q: login: %w", name, err)
			}
			route.Gate = &gate
		}
		c.routes[name] = route
	}
	return c, nil
}

func loginGate(section map[string]any, defaultLoginURL string) (handshake.LoginGate, error) {
	raw := make(map[string]any, len(section)+2)
	for k, v := range section {
		raw[k] = v
	}
	raw["_type"] = botkit.TypeLoginOAuthEvent
	if _, ok := raw["webLoginUrl"]; !ok {
		if defaultLoginURL == "" {
			defaultLoginURL = DemoLoginURL
		}
		raw["webLoginUrl"] = defaultLoginURL
	}
	msg, err := botkit.DecodeMessage(raw)
	if err != nil {
		return handshake.LoginGate{}, err
	}
	return handshake.NewLoginGate(msg.(botkit.LoginOAuthEvent))
}

// Default returns the built-in catalog.
func Default(defaultLoginURL string) *Catalog {
	c, err := Parse(defaultYAML, defaultLoginURL)
	if err != nil {
		panic(fmt.Sprintf("built-in catalog: %v", err))
	}
	return c
}

// Load reads a catalog file; an empty path yields the built-in catalog.
func Load(path, defaultLoginURL string) (*Catalog, error) {
	if path == "" {
		return Default(defaultLoginURL), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	return Parse(data, defaultLoginURL)
}

func (c *Catalog) Route(name string) (Route, bool) {
	r, ok := c.routes[name]
	return r, ok
}

// Names lists the route names in order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.routes))
	for name := range c.routes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
