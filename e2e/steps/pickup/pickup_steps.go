package pickup

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	GET(path string) error
	SetToken(token string)
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Remember(key, value string)
	Recall(key string) string
}

func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &pickupSteps{tc: tc}

	ctx.Step(`^a donor registers a "([^"]*)" kit at that post$`, steps.donorRegisters)
	ctx.Step(`^a receiver registers for a "([^"]*)" kit at that post$`, steps.receiverRegisters)
	ctx.Step(`^the receiver is given a pickup code$`, steps.receiverHasCode)

	ctx.Step(`^the operator checks the pickup code$`, steps.checkCode)
	ctx.Step(`^the operator confirms the pickup$`, steps.confirm)
	ctx.Step(`^the operator confirms the pickup with code "([^"]*)"$`, steps.confirmWithCode)
}

type pickupSteps struct {
	tc TestContext
}

// freshPhone returns a valid mobile number unlikely to collide with earlier
// runs against the same database.
func freshPhone() string {
	return fmt.Sprintf("(81) 9%04d-%04d", rand.IntN(10_000), rand.IntN(10_000))
}

// Registration is public; the operator token is parked meanwhile.
func (s *pickupSteps) public(fn func() error) error {
	s.tc.SetToken("")
	defer s.tc.SetToken(s.tc.Recall("token"))
	return fn()
}

func (s *pickupSteps) donorRegisters(_ context.Context, kit string) error {
	return s.public(func() error {
		return s.tc.POST("/donors", map[string]string{
			"name":     "Doadora Teste",
			"phone":    freshPhone(),
			"kit_type": kit,
			"post_id":  s.tc.Recall("post_id"),
		})
	})
}

func (s *pickupSteps) receiverRegisters(_ context.Context, kit string) error {
	return s.public(func() error {
		return s.tc.POST("/receivers", map[string]any{
			"name":     "Recebedora Teste",
			"phone":    freshPhone(),
			"city":     "Recife",
			"clinical": true,
			"kit_type": kit,
			"post_id":  s.tc.Recall("post_id"),
		})
	})
}

func (s *pickupSteps) receiverHasCode(_ context.Context) error {
	code, err := s.tc.GetResponseField("pickup_code")
	if err != nil {
		return err
	}
	matchID, err := s.tc.GetResponseField("match_id")
	if err != nil {
		return err
	}
	s.tc.Remember("pickup_code", fmt.Sprint(code))
	s.tc.Remember("match_id", fmt.Sprint(matchID))
	return nil
}

func (s *pickupSteps) checkCode(_ context.Context) error {
	return s.tc.POST("/pickup/check", map[string]string{"code": s.tc.Recall("pickup_code")})
}

func (s *pickupSteps) confirm(ctx context.Context) error {
	return s.confirmWithCode(ctx, s.tc.Recall("pickup_code"))
}

func (s *pickupSteps) confirmWithCode(_ context.Context, code string) error {
	return s.tc.POST("/pickup/confirm", map[string]string{
		"match_id": s.tc.Recall("match_id"),
		"code":     code,
	})
}
