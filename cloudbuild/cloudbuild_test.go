package cloudbuild

import (
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestNewBuild_StepOrder(t *testing.T) {
	b := NewBuild()
	if len(b.Steps) != 2 {
		t.Fatalf("Expected 2 steps but have: %d", len(b.Steps))
	}
	if b.Steps[0].ID != "test" || strings.Join(b.Steps[0].Args, " ") != "test ./..." {
		t.Errorf("Expected test step first but have: %+v", b.Steps[0])
	}
	if b.Steps[1].ID != "deploy" || b.Steps[1].WaitFor[0] != "test" {
		t.Errorf("Expected deploy step to wait for tests but have: %+v", b.Steps[1])
	}
}

func TestNewBuild_DeployScript(t *testing.T) {
	script := NewBuild().Steps[1].Args[1]
	for _, want := range []string{
		"--runtime=go124",
		"--memory=1024MB",
		"--timeout=540s",
		"ENTRY_POINT=" + HTTPEntryPoint,
		"ENTRY_POINT=" + PubSubEntryPoint,
		"--trigger-topic=${_TOPIC_NAME}",
		"CAMPAIGN_IDS=${_CAMPAIGN_IDS}",
	} {
		if !strings.Contains(script, want) {
			t.Errorf("Expected deploy script to contain %s:\n%s", want, script)
		}
	}
	for _, s := range Substitutions {
		if s.Env != "" && !strings.Contains(script, s.Env+"=${"+s.Name+"}") {
			t.Errorf("Expected %s in --set-env-vars", s.Env)
		}
	}
}

func TestBuild_Render(t *testing.T) {
	out, err := NewBuild().Render()
	if err != nil {
		t.Fatal(err)
	}
	var decoded Build
	if err := yaml.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("Rendered yaml does not decode: %v\n%s", err, out)
	}
	if len(decoded.Substitutions) != len(Substitutions) {
		t.Errorf("Expected %d substitutions but have: %d", len(Substitutions), len(decoded.Substitutions))
	}
	if decoded.Substitutions["_SA360_SFTP_PORT"] != "19321" {
		t.Errorf("Expected default sftp port but have: %q", decoded.Substitutions["_SA360_SFTP_PORT"])
	}
	if decoded.Steps[1].Args[1] != NewBuild().Steps[1].Args[1] {
		t.Error("Expected deploy script to survive encoding")
	}
}
