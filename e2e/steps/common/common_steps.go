package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext is the part of the scenario context generic steps need.
type TestContext interface {
	StartRegistry(gate string, required int) error
	Request(method, path, identity string, body any) error
	StatusCode() int
	ResponseBody() []byte
	ResponseField(field string) (any, error)
	Remember(alias, value string)
	Expand(s string) string
}

// RegisterSteps registers background, raw request and assertion steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	ctx.Step(`^a registry with the "([^"]*)" finalize gate and (\d+) required validations?$`, steps.startRegistry)

	ctx.Step(`^"([^"]*)" sends (GET|POST|PUT|DELETE) "([^"]*)"$`, steps.send)
	ctx.Step(`^"([^"]*)" sends (POST|PUT) "([^"]*)" with:$`, steps.sendWithBody)
	ctx.Step(`^an anonymous client sends (GET|POST) "([^"]*)"$`, steps.sendAnonymous)

	ctx.Step(`^the response status is (\d+)$`, steps.statusIs)
	ctx.Step(`^the response field "([^"]*)" is "([^"]*)"$`, steps.fieldIs)
	ctx.Step(`^the response list "([^"]*)" has (\d+) items?$`, steps.listHasItems)
	ctx.Step(`^I remember the response field "([^"]*)" as "([^"]*)"$`, steps.rememberField)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) startRegistry(ctx context.Context, gate string, required int) error {
	return s.tc.StartRegistry(gate, required)
}

func (s *commonSteps) send(ctx context.Context, identity, method, path string) error {
	return s.tc.Request(method, path, identity, nil)
}

func (s *commonSteps) sendWithBody(ctx context.Context, identity, method, path string, doc *godog.DocString) error {
	return s.tc.Request(method, path, identity, json.RawMessage(s.tc.Expand(doc.Content)))
}

func (s *commonSteps) sendAnonymous(ctx context.Context, method, path string) error {
	return s.tc.Request(method, path, "", nil)
}

func (s *commonSteps) statusIs(ctx context.Context, want int) error {
	if got := s.tc.StatusCode(); got != want {
		return fmt.Errorf("expected status %d, got %d: %s", want, got, s.tc.ResponseBody())
	}
	return nil
}

func (s *commonSteps) fieldIs(ctx context.Context, field, want string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	if got := Format(v); got != s.tc.Expand(want) {
		return fmt.Errorf("expected %s to be %q, got %q", field, s.tc.Expand(want), got)
	}
	return nil
}

func (s *commonSteps) listHasItems(ctx context.Context, field string, want int) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	items, ok := v.([]any)
	if !ok && v != nil {
		return fmt.Errorf("%s is not a list: %v", field, v)
	}
	if len(items) != want {
		return fmt.Errorf("expected %d items in %s, got %d", want, field, len(items))
	}
	return nil
}

func (s *commonSteps) rememberField(ctx context.Context, field, alias string) error {
	v, err := s.tc.ResponseField(field)
	if err != nil {
		return err
	}
	s.tc.Remember(alias, Format(v))
	return nil
}

// Format renders a decoded JSON value the way it appears in feature files.
func Format(v any) string {
	switch t := v.(type) {
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
