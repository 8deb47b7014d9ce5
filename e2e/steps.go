package e2e

import (
	"github.com/cucumber/godog"

	"kitmatch/e2e/steps/common"
	"kitmatch/e2e/steps/pickup"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	pickup.RegisterSteps(ctx, tc)
}
