package common

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"strconv"

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
	steps := &commonSteps{tc: tc}

	ctx.Step(`^I am logged in as the administrator$`, steps.loggedInAsAdmin)
	ctx.Step(`^a reference post "([^"]*)" in "([^"]*)" accepting donations$`, steps.referencePost)
	ctx.Step(`^an operator at that post is logged in$`, steps.operatorAtPost)
	ctx.Step(`^an operator at another post is logged in$`, steps.operatorAtOtherPost)

	ctx.Step(`^the response status should be (\d+)$`, steps.statusShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, steps.fieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should be (true|false)$`, steps.fieldShouldBeBool)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) loggedInAsAdmin(ctx context.Context) error {
	return s.login(os.Getenv("E2E_ADMIN_USERNAME"), os.Getenv("E2E_ADMIN_PASSWORD"))
}

func (s *commonSteps) login(username, password string) error {
	s.tc.SetToken("")
	if err := s.tc.POST("/auth/login", map[string]string{
		"username": username,
		"password": password,
	}); err != nil {
		return err
	}
	if err := s.statusShouldBe(context.Background(), 200); err != nil {
		return err
	}
	token, err := s.tc.GetResponseField("access_token")
	if err != nil {
		return err
	}
	s.tc.SetToken(fmt.Sprint(token))
	s.tc.Remember("token", fmt.Sprint(token))
	return nil
}

func (s *commonSteps) referencePost(ctx context.Context, name, city string) error {
	if err := s.loggedInAsAdmin(ctx); err != nil {
		return err
	}
	if err := s.tc.POST("/admin/posts", map[string]any{
		"name":                  name,
		"type":                  "UBS",
		"city":                  city,
		"can_receive_donations": true,
	}); err != nil {
		return err
	}
	if err := s.statusShouldBe(ctx, 201); err != nil {
		return err
	}
	postID, err := s.tc.GetResponseField("id")
	if err != nil {
		return err
	}
	s.tc.Remember("post_id", fmt.Sprint(postID))
	return nil
}

func (s *commonSteps) operatorAtPost(ctx context.Context) error {
	return s.operatorFor(ctx, s.tc.Recall("post_id"))
}

func (s *commonSteps) operatorAtOtherPost(ctx context.Context) error {
	current := s.tc.Recall("post_id")
	if err := s.referencePost(ctx, "CRAS Outra", "Olinda"); err != nil {
		return err
	}
	other := s.tc.Recall("post_id")
	s.tc.Remember("post_id", current)
	return s.operatorFor(ctx, other)
}

func (s *commonSteps) operatorFor(ctx context.Context, postID string) error {
	if err := s.loggedInAsAdmin(ctx); err != nil {
		return err
	}
	username := "op" + strconv.Itoa(rand.IntN(1_000_000))
	password := "senha-" + strconv.Itoa(rand.IntN(1_000_000_000))
	if err := s.tc.POST("/admin/operators", map[string]string{
		"username": username,
		"password": password,
		"role":     "operator",
		"post_id":  postID,
	}); err != nil {
		return err
	}
	if err := s.statusShouldBe(ctx, 201); err != nil {
		return err
	}
	return s.login(username, password)
}

func (s *commonSteps) statusShouldBe(_ context.Context, expected int) error {
	if got := s.tc.GetLastResponseStatus(); got != expected {
		return fmt.Errorf("expected status %d, got %d: %s", expected, got, s.tc.GetLastResponseBody())
	}
	return nil
}

func (s *commonSteps) fieldShouldBe(_ context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	if got := fmt.Sprint(value); got != expected {
		return fmt.Errorf("expected %s to be %q, got %q", field, expected, got)
	}
	return nil
}

func (s *commonSteps) fieldShouldBeBool(_ context.Context, field, expected string) error {
	value, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	got, ok := value.(bool)
	if !ok {
		return fmt.Errorf("expected %s to be a boolean, got %v", field, value)
	}
	if strconv.FormatBool(got) != expected {
		return fmt.Errorf("expected %s to be %s, got %t", field, expected, got)
	}
	return nil
}
