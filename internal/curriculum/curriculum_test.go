package curriculum

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestBuiltinModules(t *testing.T) {
	c := Builtin()

	want := []string{"crypto_basics", "blockchain", "stocks_basics", "technical_analysis", "risk_management"}
	mods := c.Modules()
	if len(mods) != len(want) {
		t.Fatalf("modules = %d, want %d", len(mods), len(want))
	}
	for i, id := range want {
		if mods[i].ID != id {
			t.Fatalf("module %d = %q, want %q", i, mods[i].ID, id)
		}
	}

	m, ok := c.Module("crypto_basics")
	if !ok {
		t.Fatal("crypto_basics lookup failed")
	}
	if m.Title != "Cryptocurrency Basics" || m.Content == "" {
		t.Fatalf("module incomplete: %+v", m)
	}

	if _, ok := c.Module("no_such"); ok {
		t.Fatal("unknown module lookup succeeded")
	}
}

func TestQuizBank(t *testing.T) {
	c := Builtin()
	c.SetPicker(func(n int) int { return 0 })

	q := c.RandomQuiz()
	if q.Prompt != "What is Bitcoin?" {
		t.Fatalf("pinned pick = %q", q.Prompt)
	}

	crypto := c.QuizzesByTopic("crypto")
	if len(crypto) != 2 {
		t.Fatalf("crypto questions = %d, want 2", len(crypto))
	}
	stocks := c.QuizzesByTopic("STOCKS")
	if len(stocks) != 2 {
		t.Fatalf("case-insensitive topic lookup = %d, want 2", len(stocks))
	}
}

func TestGrade(t *testing.T) {
	q := Question{Prompt: "q", Options: []string{"a", "b", "c"}, Answer: 1}

	if !Grade(q, 2) {
		t.Fatal("correct choice graded wrong")
	}
	if Grade(q, 1) || Grade(q, 3) || Grade(q, 0) {
		t.Fatal("wrong choice graded correct")
	}
}

func TestFormatQuestion(t *testing.T) {
	q := Question{Prompt: "What is Bitcoin?", Options: []string{"A digital currency", "A bank"}}
	out := FormatQuestion(q)

	for _, want := range []string{"What is Bitcoin?", "1. A digital currency", "2. A bank", "Reply with the number"} {
		if !strings.Contains(out, want) {
			t.Fatalf("formatted question missing %q:\n%s", want, out)
		}
	}
}

func TestDailyTip(t *testing.T) {
	c := Builtin()
	c.SetPicker(func(n int) int { return n - 1 })

	tip := c.DailyTip()
	if !strings.Contains(tip, "Daily Tip") {
		t.Fatalf("tip = %q", tip)
	}
}

func TestLoadOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	content := `modules:
  - id: forex_basics
    title: Forex Basics
    description: Currency trading
    difficulty: beginner
    estimated_time: 10 minutes
    content: Currencies trade in pairs.
questions:
  - topic: forex
    difficulty: easy
    prompt: What does EUR/USD represent?
    options: ["A currency pair", "A stock"]
    answer: 0
    explanation: It quotes euros in dollars.
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := c.Module("forex_basics"); !ok {
		t.Fatal("override module missing")
	}
	if _, ok := c.Module("crypto_basics"); ok {
		t.Fatal("override should replace built-in modules")
	}
	// Tips were absent from the file and fall back to built-ins.
	if tip := c.DailyTip(); tip == "" {
		t.Fatal("tips fallback missing")
	}
}

func TestLoadRejectsBadAnswerIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curriculum.yaml")
	content := `questions:
  - topic: crypto
    prompt: bad
    options: ["a", "b"]
    answer: 5
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for out-of-range answer index")
	}
}

func TestModuleList(t *testing.T) {
	out := Builtin().ModuleList(nil)
	for _, want := range []string{"/crypto_basics", "/risk_management", "beginner", "intermediate"} {
		if !strings.Contains(out, want) {
			t.Fatalf("module list missing %q", want)
		}
	}
	if strings.Contains(out, "✅") {
		t.Fatalf("unstarted list should have no completion marks:\n%s", out)
	}

	out = Builtin().ModuleList([]string{"crypto_basics"})
	if !strings.Contains(out, "✅ /crypto_basics") {
		t.Fatalf("completed module not marked:\n%s", out)
	}
	if !strings.Contains(out, "• /blockchain") {
		t.Fatalf("incomplete module lost its bullet:\n%s", out)
	}
}
