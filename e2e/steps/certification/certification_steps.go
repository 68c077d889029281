package certification

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cucumber/godog"

	"provenant/e2e/steps/common"
)

type TestContext interface {
	Request(method, path, identity string, body any) error
	StatusCode() int
	ResponseBody() []byte
	ResponseField(field string) (any, error)
	Remember(alias, value string)
	Recall(alias string) (string, error)
}

// adminIdentity matches the identity the scenario registry is configured with.
const adminIdentity = "0xadmin"

// RegisterSteps registers validator, consensus and lab test steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &certificationSteps{tc: tc}

	ctx.Step(`^"([^"]*)" is a registered validator$`, steps.registerValidator)
	ctx.Step(`^"([^"]*)" submits a (passing|failing) validation for "([^"]*)"$`, steps.submitValidation)

	ctx.Step(`^the admin authorizes lab "([^"]*)"$`, steps.authorizeLab)
	ctx.Step(`^lab "([^"]*)" submits a "([^"]*)" test for "([^"]*)" as "([^"]*)"$`, steps.submitTest)
	ctx.Step(`^lab "([^"]*)" marks test "([^"]*)" as "([^"]*)"$`, steps.reviewTest)
}

type certificationSteps struct {
	tc TestContext
}

func (s *certificationSteps) registerValidator(ctx context.Context, identity string) error {
	err := s.tc.Request(http.MethodPost, "/validators", identity, map[string]any{
		"organization_name":    "Org " + identity,
		"certification_number": "CERT-" + identity,
	})
	if err != nil {
		return err
	}
	return s.expect(http.StatusCreated, "register validator")
}

func (s *certificationSteps) submitValidation(ctx context.Context, validator, verdict, alias string) error {
	passportID, err := s.tc.Recall(alias)
	if err != nil {
		return err
	}
	return s.tc.Request(http.MethodPost, "/passports/"+passportID+"/validations", validator, map[string]any{
		"passed":         verdict == "passing",
		"report_locator": "ipfs://report-" + validator,
	})
}

func (s *certificationSteps) authorizeLab(ctx context.Context, lab string) error {
	if err := s.tc.Request(http.MethodPost, "/labs", adminIdentity, map[string]any{"identity": lab}); err != nil {
		return err
	}
	return s.expect(http.StatusCreated, "authorize lab")
}

func (s *certificationSteps) submitTest(ctx context.Context, lab, kind, alias, testAlias string) error {
	passportID, err := s.tc.Recall(alias)
	if err != nil {
		return err
	}
	err = s.tc.Request(http.MethodPost, "/passports/"+passportID+"/test-results", lab, map[string]any{
		"kind":            kind,
		"data_locator":    "ipfs://" + testAlias,
		"test_date":       time.Now().Add(-24 * time.Hour).UTC(),
		"curing_age_days": 28,
		"result_summary":  "42.5 MPa",
	})
	if err != nil {
		return err
	}
	if err := s.expect(http.StatusCreated, "submit test result"); err != nil {
		return err
	}
	testID, err := s.tc.ResponseField("id")
	if err != nil {
		return err
	}
	s.tc.Remember(testAlias, common.Format(testID))
	return nil
}

func (s *certificationSteps) reviewTest(ctx context.Context, lab, testAlias, outcome string) error {
	testID, err := s.tc.Recall(testAlias)
	if err != nil {
		return err
	}
	return s.tc.Request(http.MethodPost, "/test-results/"+testID+"/review", lab, map[string]any{"outcome": outcome})
}

func (s *certificationSteps) expect(status int, action string) error {
	if s.tc.StatusCode() != status {
		return fmt.Errorf("%s: status %d: %s", action, s.tc.StatusCode(), s.tc.ResponseBody())
	}
	return nil
}
