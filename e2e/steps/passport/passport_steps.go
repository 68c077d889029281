package passport

import (
	"context"
	"fmt"
	"net/http"

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

// RegisterSteps registers passport and provenance steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &passportSteps{tc: tc}

	ctx.Step(`^"([^"]*)" creates a passport for package "([^"]*)" as "([^"]*)"$`, steps.create)
	ctx.Step(`^"([^"]*)" creates a passport for package "([^"]*)" tested by "([^"]*)" as "([^"]*)"$`, steps.createWithLab)
	ctx.Step(`^"([^"]*)" finalizes "([^"]*)" with grade "([^"]*)"$`, steps.finalize)
	ctx.Step(`^"([^"]*)" transfers "([^"]*)" to "([^"]*)"$`, steps.transfer)
	ctx.Step(`^"([^"]*)" adds material batch "([^"]*)" to "([^"]*)"$`, steps.addMaterial)
	ctx.Step(`^"([^"]*)" records a "([^"]*)" event on "([^"]*)"$`, steps.recordEvent)
}

type passportSteps struct {
	tc TestContext
}

func (s *passportSteps) create(ctx context.Context, creator, packageKey, alias string) error {
	return s.createWithLab(ctx, creator, packageKey, "", alias)
}

func (s *passportSteps) createWithLab(ctx context.Context, creator, packageKey, lab, alias string) error {
	body := map[string]any{
		"package_key":  packageKey,
		"material_id":  "mat-" + packageKey,
		"data_locator": "ipfs://" + packageKey,
		"lab_identity": lab,
	}
	if err := s.tc.Request(http.MethodPost, "/passports", creator, body); err != nil {
		return err
	}
	if s.tc.StatusCode() != http.StatusCreated {
		return fmt.Errorf("create passport: status %d: %s", s.tc.StatusCode(), s.tc.ResponseBody())
	}
	passportID, err := s.tc.ResponseField("id")
	if err != nil {
		return err
	}
	s.tc.Remember(alias, common.Format(passportID))
	return nil
}

func (s *passportSteps) finalize(ctx context.Context, caller, alias, grade string) error {
	path, err := s.path(alias, "/finalize")
	if err != nil {
		return err
	}
	return s.tc.Request(http.MethodPost, path, caller, map[string]any{
		"grade":              grade,
		"certification_hash": "0xcert-" + alias,
	})
}

func (s *passportSteps) transfer(ctx context.Context, caller, alias, newOwner string) error {
	path, err := s.path(alias, "/transfer")
	if err != nil {
		return err
	}
	return s.tc.Request(http.MethodPost, path, caller, map[string]any{"new_owner": newOwner})
}

func (s *passportSteps) addMaterial(ctx context.Context, caller, batch, alias string) error {
	path, err := s.path(alias, "/materials")
	if err != nil {
		return err
	}
	return s.tc.Request(http.MethodPost, path, caller, map[string]any{
		"batch_number":     batch,
		"material_type":    "cement",
		"supplier_name":    "Holcim",
		"certificate_hash": "0xmill-" + batch,
	})
}

func (s *passportSteps) recordEvent(ctx context.Context, caller, kind, alias string) error {
	path, err := s.path(alias, "/events")
	if err != nil {
		return err
	}
	return s.tc.Request(http.MethodPost, path, caller, map[string]any{
		"event_kind":      kind,
		"data_locator":    "ipfs://" + kind,
		"parameters_hash": "0xparams-" + kind,
	})
}

func (s *passportSteps) path(alias, suffix string) (string, error) {
	passportID, err := s.tc.Recall(alias)
	if err != nil {
		return "", err
	}
	return "/passports/" + passportID + suffix, nil
}
