package agent

import (
	"strings"
	"testing"
)

func TestGate_PathInHistoryAllowed(t *testing.T) {
	history := "user: please update /tmp/a.txt with the new value"
	ok, _ := verifyWriteTarget("EDIT_FILE", `/tmp/a.txt --find="old" --replace="new"`, history)
	if !ok {
		t.Fatal("path mentioned in history must be allowed")
	}
}

func TestGate_UnknownPathRefused(t *testing.T) {
	history := "user: please update /tmp/a.txt with the new value"
	ok, refusal := verifyWriteTarget("EDIT_FILE", `/tmp/b.txt --find="old" --replace="new"`, history)
	if ok {
		t.Fatal("path never mentioned must be refused")
	}
	if !strings.Contains(refusal, "/tmp/b.txt") || !strings.Contains(refusal, "READ_FILE") {
		t.Fatalf("refusal must name the path and instruct a read first: %q", refusal)
	}
}

func TestGate_NonDestructiveSkillsSkipped(t *testing.T) {
	ok, _ := verifyWriteTarget("READ_FILE", "/never/seen/before.txt", "")
	if !ok {
		t.Fatal("reads are never gated")
	}
}

func TestGate_JSONArgumentAliases(t *testing.T) {
	history := "the config lives at /etc/app/config.json"
	for _, arg := range []string{
		`{"path": "/etc/app/config.json", "content": "x"}`,
		`{"file_path": "/etc/app/config.json", "content": "x"}`,
		`{"target": "/etc/app/config.json", "content": "x"}`,
	} {
		ok, _ := verifyWriteTarget("WRITE_FILE", arg, history)
		if !ok {
			t.Fatalf("alias form %q should resolve and pass", arg)
		}
	}
	ok, _ := verifyWriteTarget("WRITE_FILE", `{"path": "/etc/app/other.json"}`, history)
	if ok {
		t.Fatal("unmentioned JSON path must be refused")
	}
}

func TestGate_ExemptBookkeepingPaths(t *testing.T) {
	for _, arg := range []string{
		"/home/user/workspace/memory/LOGS.md --content=entry",
		"/home/user/workspace/memory/session_summary.md --content=summary",
		"/home/user/workspace/memory/context/notes.md --content=notes",
	} {
		ok, _ := verifyWriteTarget("WRITE_FILE", arg, "")
		if !ok {
			t.Fatalf("bookkeeping path %q must bypass the gate", arg)
		}
	}
}

func TestGate_NonPathFirstTokenPasses(t *testing.T) {
	// DELEGATE arguments are usually prose, not a path. No target means
	// nothing to verify.
	ok, _ := verifyWriteTarget("DELEGATE", `"summarize the research notes" --role=Researcher`, "")
	if !ok {
		t.Fatal("prose delegate argument has no target path to gate")
	}
}

func TestGate_QuotedPathMatchesUnquotedHistory(t *testing.T) {
	history := "file of interest: /tmp/data.csv"
	ok, _ := verifyWriteTarget("WRITE_FILE", `"/tmp/data.csv" --content="a,b"`, history)
	if !ok {
		t.Fatal("quotes around the argument path must not defeat the check")
	}
}
