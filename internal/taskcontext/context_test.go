package taskcontext

import "testing"

type samplePayload struct {
	PRID string `json:"pr_id"`
}

func TestSetAndGetEventData(t *testing.T) {
	c := New()
	if err := c.SetEventData(samplePayload{PRID: "123"}); err != nil {
		t.Fatalf("SetEventData: %v", err)
	}

	got, err := GetEventData[samplePayload](c)
	if err != nil {
		t.Fatalf("GetEventData: %v", err)
	}
	if got.PRID != "123" {
		t.Errorf("expected pr_id 123, got %q", got.PRID)
	}
}

func TestGetEventDataBeforeSetFails(t *testing.T) {
	c := New()
	if _, err := GetEventData[samplePayload](c); err == nil {
		t.Error("expected error reading event data before it was set")
	}
}

func TestUpdateAndGetNodeData(t *testing.T) {
	c := New()
	if err := c.UpdateNode("diff_extractor", map[string]any{"files": []string{"a.go", "b.go"}}); err != nil {
		t.Fatalf("UpdateNode: %v", err)
	}

	type nodeOut struct {
		Files []string `json:"files"`
	}
	got, ok, err := GetNodeData[nodeOut](c, "diff_extractor")
	if err != nil {
		t.Fatalf("GetNodeData: %v", err)
	}
	if !ok {
		t.Fatal("expected node data to be present")
	}
	if len(got.Files) != 2 {
		t.Errorf("expected 2 files, got %d", len(got.Files))
	}
}

func TestGetNodeDataMissingKey(t *testing.T) {
	c := New()
	_, ok, err := GetNodeData[map[string]any](c, "nonexistent")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing node key")
	}
}

func TestRouterDecisionRoundTrip(t *testing.T) {
	c := New()
	if err := c.SetMetadata(RouterDecisionKey, "path_b"); err != nil {
		t.Fatalf("SetMetadata: %v", err)
	}
	decision, ok := c.RouterDecision()
	if !ok {
		t.Fatal("expected router decision to be present")
	}
	if decision != "path_b" {
		t.Errorf("expected path_b, got %q", decision)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	c := New()
	c.UpdateNode("a", "original")

	clone := c.Clone()
	clone.UpdateNode("a", "mutated")

	orig, _, _ := GetNodeData[string](c, "a")
	mutated, _, _ := GetNodeData[string](clone, "a")

	if orig != "original" {
		t.Errorf("expected original context unaffected, got %q", orig)
	}
	if mutated != "mutated" {
		t.Errorf("expected clone mutated, got %q", mutated)
	}
}

func TestMergeFromDisjointKeysSucceeds(t *testing.T) {
	base := New()
	base.UpdateNode("a", "1")

	branch := New()
	branch.UpdateNode("b", "2")

	if err := base.MergeFrom(branch, []string{"b"}); err != nil {
		t.Fatalf("MergeFrom: %v", err)
	}

	val, ok, _ := GetNodeData[string](base, "b")
	if !ok || val != "2" {
		t.Errorf("expected merged key b=2, got ok=%v val=%q", ok, val)
	}
}

func TestMergeFromCollisionFails(t *testing.T) {
	base := New()
	base.UpdateNode("a", "1")

	branch := New()
	branch.UpdateNode("a", "2")

	if err := base.MergeFrom(branch, []string{"a"}); err == nil {
		t.Error("expected merge collision on shared key to fail")
	}
}

func TestCorrelationIDPreservedAcrossClone(t *testing.T) {
	c := NewWithCorrelationID("corr-xyz")
	clone := c.Clone()
	if clone.CorrelationID() != "corr-xyz" {
		t.Errorf("expected clone to keep correlation id, got %q", clone.CorrelationID())
	}
}
