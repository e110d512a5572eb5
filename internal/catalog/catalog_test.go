package catalog

import (
	"errors"
	"strings"
	"testing"

	"github.com/hitoshi/bullpen/internal/model"
)

// mockValidator はURLValidatorのモック実装。
type mockValidator struct {
	validateFunc func(rawURL string) error
	validated    []string
}

func (m *mockValidator) ValidateURL(rawURL string) error {
	m.validated = append(m.validated, rawURL)
	if m.validateFunc != nil {
		return m.validateFunc(rawURL)
	}
	return nil
}

func TestNewRegistry_ValidatesAllEmbedURLs(t *testing.T) {
	validator := &mockValidator{}
	registry, err := NewRegistry(validator)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if registry == nil {
		t.Fatal("registry should not be nil")
	}
	if len(validator.validated) != 8 {
		t.Errorf("validated URL count = %d, want 8", len(validator.validated))
	}
}

func TestNewRegistry_RejectsUnsafeURL(t *testing.T) {
	validator := &mockValidator{
		validateFunc: func(rawURL string) error {
			return errors.New("blocked host")
		},
	}
	_, err := NewRegistry(validator)
	if err == nil {
		t.Fatal("NewRegistry() should fail when a URL is rejected")
	}
	if !strings.Contains(err.Error(), "unsafe embed URL") {
		t.Errorf("error = %v, want unsafe embed URL message", err)
	}
}

func TestFind(t *testing.T) {
	registry, err := NewRegistry(&mockValidator{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	agent, err := registry.Find("talksolution")
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if agent.Group != GroupTalkAnalysis {
		t.Errorf("Group = %s, want %s", agent.Group, GroupTalkAnalysis)
	}
	if agent.EmbedURL == "" {
		t.Error("EmbedURL should not be empty")
	}
}

func TestFind_NotFound(t *testing.T) {
	registry, err := NewRegistry(&mockValidator{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	_, err = registry.Find("no-such-agent")
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error should be *model.APIError, got %T", err)
	}
	if apiErr.Code != model.ErrCodeAgentNotFound {
		t.Errorf("Code = %s, want %s", apiErr.Code, model.ErrCodeAgentNotFound)
	}
}

func TestGroups_OrderAndMembership(t *testing.T) {
	registry, err := NewRegistry(&mockValidator{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	groups := registry.Groups()
	if len(groups) != 4 {
		t.Fatalf("group count = %d, want 4", len(groups))
	}

	wantIDs := []string{GroupAutoValidation, GroupAutoAnalysis, GroupTalkAnalysis, GroupFullStep}
	wantSizes := []int{1, 2, 3, 2}
	total := 0
	for i, g := range groups {
		if g.ID != wantIDs[i] {
			t.Errorf("groups[%d].ID = %s, want %s", i, g.ID, wantIDs[i])
		}
		if len(g.Agents) != wantSizes[i] {
			t.Errorf("groups[%d] size = %d, want %d", i, len(g.Agents), wantSizes[i])
		}
		for _, a := range g.Agents {
			if a.Group != g.ID {
				t.Errorf("agent %s assigned to group %s but carries group %s", a.ID, g.ID, a.Group)
			}
		}
		total += len(g.Agents)
	}
	if total != 8 {
		t.Errorf("total agents across groups = %d, want 8", total)
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	registry, err := NewRegistry(&mockValidator{})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	all := registry.All()
	if len(all) != 8 {
		t.Fatalf("len = %d, want 8", len(all))
	}
	all[0].Name = "tampered"

	again := registry.All()
	if again[0].Name == "tampered" {
		t.Error("All() must return a copy, not the backing slice")
	}
}
