package workflow

import (
	"testing"

	"wfengine/internal/node"
	"wfengine/internal/taskerr"
)

func twoNodeSchema() *Schema {
	return NewSchema("pr_review", "start").WithNodes(
		node.NewConfig("start").WithConnections("end"),
		node.NewConfig("end"),
	)
}

func TestValidateAcceptsHelloWorldSchema(t *testing.T) {
	if err := Validate(twoNodeSchema()); err != nil {
		t.Fatalf("expected valid schema, got %v", err)
	}
}

func TestValidateRejectsEmptyWorkflowType(t *testing.T) {
	s := NewSchema("   ", "start").WithNodes(node.NewConfig("start"))
	if err := Validate(s); err == nil {
		t.Fatal("expected error for blank workflow type")
	}
}

func TestValidateRejectsEmptyNodesList(t *testing.T) {
	s := NewSchema("wf", "start")
	if err := Validate(s); err == nil {
		t.Fatal("expected error for empty node list")
	}
}

func TestValidateRejectsMissingStartNode(t *testing.T) {
	s := NewSchema("wf", "missing").WithNodes(node.NewConfig("start"))
	if err := Validate(s); err == nil {
		t.Fatal("expected error when start node absent from node list")
	}
}

func TestValidateRejectsDanglingConnection(t *testing.T) {
	s := NewSchema("wf", "start").WithNodes(
		node.NewConfig("start").WithConnections("ghost"),
	)
	if err := Validate(s); err == nil {
		t.Fatal("expected error for connection to nonexistent node")
	}
}

func TestValidateDetectsCycle(t *testing.T) {
	s := NewSchema("wf", "a").WithNodes(
		node.NewConfig("a").WithConnections("b"),
		node.NewConfig("b").WithConnections("a"),
	)
	err := Validate(s)
	if err == nil {
		t.Fatal("expected cycle detection error")
	}
	var terr *taskerr.Error
	if !taskerr.As(err, &terr) || terr.Kind != taskerr.KindCycleDetected {
		t.Errorf("expected KindCycleDetected, got %v", err)
	}
}

func TestValidateDetectsUnreachableNode(t *testing.T) {
	s := NewSchema("wf", "a").WithNodes(
		node.NewConfig("a"),
		node.NewConfig("orphan"),
	)
	err := Validate(s)
	if err == nil {
		t.Fatal("expected unreachable node error")
	}
	var terr *taskerr.Error
	if !taskerr.As(err, &terr) || terr.Kind != taskerr.KindUnreachableNodes {
		t.Errorf("expected KindUnreachableNodes, got %v", err)
	}
}

func TestValidateAcceptsRouterWithMultipleBranches(t *testing.T) {
	s := NewSchema("wf", "router").WithNodes(
		node.NewConfig("router").WithRouter(true).WithConnections("a", "b"),
		node.NewConfig("a"),
		node.NewConfig("b"),
	)
	if err := Validate(s); err != nil {
		t.Fatalf("expected valid router schema, got %v", err)
	}
}

func TestBuilderValidatesOnBuild(t *testing.T) {
	_, err := NewBuilder("wf", "a").
		WithNodes(node.NewConfig("a").WithConnections("missing")).
		Build()
	if err == nil {
		t.Fatal("expected Build to surface validation error")
	}
}
