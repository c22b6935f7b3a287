// Package curriculum holds the built-in learning modules, quiz bank, and
// daily tips, with optional YAML overrides.
package curriculum

import (
	"fmt"
	"math/rand"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Module is one learning unit.
type Module struct {
	ID            string `yaml:"id"`
	Title         string `yaml:"title"`
	Description   string `yaml:"description"`
	Difficulty    string `yaml:"difficulty"`
	EstimatedTime string `yaml:"estimated_time"`
	Content       string `yaml:"content"`
}

// Question is one multiple-choice quiz entry. Answer indexes into Options.
type Question struct {
	Topic       string   `yaml:"topic"`
	Difficulty  string   `yaml:"difficulty"`
	Prompt      string   `yaml:"prompt"`
	Options     []string `yaml:"options"`
	Answer      int      `yaml:"answer"`
	Explanation string   `yaml:"explanation"`
}

// Curriculum is the loaded course material.
type Curriculum struct {
	modules   []Module
	byID      map[string]Module
	questions []Question
	tips      []string
	pick      func(n int) int
}

func build(modules []Module, questions []Question, tips []string) *Curriculum {
	c := &Curriculum{
		modules:   modules,
		byID:      make(map[string]Module, len(modules)),
		questions: questions,
		tips:      tips,
		pick:      rand.Intn,
	}
	for _, m := range modules {
		c.byID[m.ID] = m
	}
	return c
}

// Builtin returns the built-in curriculum.
func Builtin() *Curriculum {
	return build(builtinModules, builtinQuestions, builtinTips)
}

// Load reads a curriculum file. An empty path yields the built-in material.
// Sections absent from the file fall back to built-ins.
func Load(path string) (*Curriculum, error) {
	if path == "" {
		return Builtin(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read curriculum: %w", err)
	}

	var file struct {
		Modules   []Module   `yaml:"modules"`
		Questions []Question `yaml:"questions"`
		Tips      []string   `yaml:"tips"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse curriculum: %w", err)
	}

	if len(file.Modules) == 0 {
		file.Modules = builtinModules
	}
	if len(file.Questions) == 0 {
		file.Questions = builtinQuestions
	}
	if len(file.Tips) == 0 {
		file.Tips = builtinTips
	}
	for i, q := range file.Questions {
		if q.Answer < 0 || q.Answer >= len(q.Options) {
			return nil, fmt.Errorf("curriculum question %d: answer index %d out of range", i, q.Answer)
		}
	}
	return build(file.Modules, file.Questions, file.Tips), nil
}

// SetPicker overrides the random picker. Tests only.
func (c *Curriculum) SetPicker(pick func(n int) int) { c.pick = pick }

// Modules returns every module in course order.
func (c *Curriculum) Modules() []Module { return c.modules }

// Module returns the module with the given id.
func (c *Curriculum) Module(id string) (Module, bool) {
	m, ok := c.byID[id]
	return m, ok
}

// RandomQuiz returns a random question from the bank.
func (c *Curriculum) RandomQuiz() Question {
	return c.questions[c.pick(len(c.questions))]
}

// QuizzesByTopic returns the questions tagged with a topic.
func (c *Curriculum) QuizzesByTopic(topic string) []Question {
	var out []Question
	for _, q := range c.questions {
		if strings.EqualFold(q.Topic, topic) {
			out = append(out, q)
		}
	}
	return out
}

// DailyTip returns a random learning tip.
func (c *Curriculum) DailyTip() string {
	return c.tips[c.pick(len(c.tips))]
}

// FormatQuestion renders a question with numbered options for chat display.
func FormatQuestion(q Question) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❓ Quiz Time!\n\n%s\n\n", q.Prompt)
	for i, opt := range q.Options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	b.WriteString("\nReply with the number of your answer!")
	return b.String()
}

// Grade checks a 1-based answer choice against the question.
func Grade(q Question, choice int) bool {
	return choice-1 == q.Answer
}

// ModuleList renders the course overview shown by /learn. Modules whose ID
// appears in completed are marked with a checkmark.
func (c *Curriculum) ModuleList(completed []string) string {
	done := make(map[string]bool, len(completed))
	for _, id := range completed {
		done[id] = true
	}
	var b strings.Builder
	b.WriteString("📚 Learning Modules\n\n")
	for _, m := range c.modules {
		mark := "•"
		if done[m.ID] {
			mark = "✅"
		}
		fmt.Fprintf(&b, "%s /%s - %s (%s, %s)\n  %s\n", mark, m.ID, m.Title, m.Difficulty, m.EstimatedTime, m.Description)
	}
	b.WriteString("\nSend a module command to start learning, and /complete <module> when you finish!")
	return b.String()
}
