package e2e

import (
	"github.com/cucumber/godog"

	"provenant/e2e/steps/certification"
	"provenant/e2e/steps/common"
	"provenant/e2e/steps/passport"
)

// RegisterSteps registers all step definitions from modular packages.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	passport.RegisterSteps(ctx, tc)
	certification.RegisterSteps(ctx, tc)
}
