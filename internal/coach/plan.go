package coach

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/prepwise/internal/llm"
	"github.com/tidwall/gjson"
)

// PlanDays is the length of a learning plan
const PlanDays = 7

// DailyPlan is one day of a learning plan
type DailyPlan struct {
	Day     int    `json:"day"`
	Topic   string `json:"topic"`
	Task    string `json:"task"`
	Details string `json:"details"`
}

// Plan is a week-long study plan built from a learner's weak topics
type Plan struct {
	WeekGoal    string      `json:"week_goal"`
	DailyPlans  []DailyPlan `json:"daily_plans"`
	WeakTopics  []string    `json:"weak_topics"`
	GeneratedAt time.Time   `json:"generated_at"`
}

// ParsePlan reads a model reply into a plan. Days without a topic or task
// are dropped, missing day numbers are filled in order, and at most
// PlanDays days are kept.
func ParsePlan(text string) (*Plan, error) {
	text = llm.StripFences(text)
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformedPlan)
	}
	root := gjson.Parse(text)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: top-level %s", ErrMalformedPlan, root.Type)
	}

	p := &Plan{WeekGoal: strings.TrimSpace(root.Get("week_goal").String())}
	for _, day := range root.Get("daily_plans").Array() {
		d := DailyPlan{
			Day:     int(day.Get("day").Int()),
			Topic:   strings.TrimSpace(day.Get("topic").String()),
			Task:    strings.TrimSpace(day.Get("task").String()),
			Details: strings.TrimSpace(day.Get("details").String()),
		}
		if d.Topic == "" || d.Task == "" {
			continue
		}
		if d.Day <= 0 {
			d.Day = len(p.DailyPlans) + 1
		}
		p.DailyPlans = append(p.DailyPlans, d)
		if len(p.DailyPlans) == PlanDays {
			break
		}
	}
	if len(p.DailyPlans) == 0 {
		return nil, fmt.Errorf("%w: no daily plans", ErrMalformedPlan)
	}
	return p, nil
}

func planSystemPrompt() string {
	return "You are an expert JEE exam coach. Your task is to create a personalized, 7-day study plan " +
		"to help a student improve on their specific weak topics. The output must be a valid JSON object " +
		`with a "week_goal" string and a "daily_plans" array of objects with "day" (integer), "topic", ` +
		`"task" and "details" strings. The plan should be encouraging and actionable.`
}

func planUserPrompt(topics []string) string {
	return fmt.Sprintf("A student is weak in the following topics: %s. Create a structured 7-day study plan "+
		"to help them improve. For each day, suggest a primary topic to focus on, a specific task "+
		"(e.g., 'Review theory', 'Solve 15 MCQs', 'Watch a concept video'), and provide a bit more detail "+
		"on the task. Also, provide an overall motivational goal for the week.", strings.Join(topics, ", "))
}

func doubtSystemPrompt() string {
	return `You are an expert tutor for India's engineering entrance exams (JEE, BITSAT, VITEEE). Your goal is to provide clear, step-by-step solutions.
1. Analyze the question: identify the core concepts from Physics, Chemistry, Mathematics, or English/Logical Reasoning.
2. Provide a step-by-step solution. Use markdown for formulas and LaTeX for math notation within $$...$$.
3. Explain the principles or formulas used in each step.
4. Clearly state the final answer.
5. Add a small tip or warn about a common pitfall related to the question.
Be a helpful, direct, and expert tutor.`
}

func notesSystemPrompt() string {
	return "You are an expert tutor for India's engineering entrance exams. Your goal is to provide comprehensive, " +
		"well-structured, and easy-to-understand notes on a given topic. Use clear headings, bullet points, lists, " +
		"and formulas. Format the entire response using markdown, including LaTeX for mathematical equations within $$...$$."
}

func notesUserPrompt(topic string) string {
	return fmt.Sprintf("Please generate detailed study notes for the topic: %q. The notes should cover all important "+
		"concepts, formulas, and examples relevant to the syllabus of exams like JEE, BITSAT, and VITEEE.", topic)
}
