package llm

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ittebagilani/harada/app/models"
)

// QuestionCount is the size of the self-assessment.
const QuestionCount = 36

// Questions is the self-assessment, indexed by question id.
var Questions = [QuestionCount]string{
	"I believe I currently have the skills needed to reach this goal.",
	"I am confident in my long-term discipline.",
	"I have a supportive environment for achieving my dream.",
	"I understand the steps required to reach my goal.",
	"I can clearly picture what success looks like for me.",
	"I set aside time every week to work toward my goal.",
	"I keep promises I make to myself.",
	"I recover quickly from setbacks.",
	"I sleep well and wake up with energy.",
	"I exercise regularly.",
	"I eat in a way that supports my energy and focus.",
	"I manage stress in healthy ways.",
	"My finances support the pursuit of my goal.",
	"I track where my money goes each month.",
	"I have people who hold me accountable.",
	"I regularly meet people who could help me grow.",
	"I ask for help when I need it.",
	"My closest relationships are healthy and supportive.",
	"I make time for family and friends.",
	"I am learning something new related to my goal.",
	"I read or study consistently.",
	"I seek feedback on my work.",
	"I plan my days in advance.",
	"I rarely procrastinate on important tasks.",
	"I limit distractions when I work.",
	"I reflect on my progress regularly.",
	"I write down my goals and review them.",
	"I feel a sense of purpose in my daily life.",
	"I practise gratitude or mindfulness.",
	"I keep my living and working space organised.",
	"I contribute to others or my community.",
	"I take care of small chores without putting them off.",
	"I believe I deserve to reach this goal.",
	"I stay positive when progress is slow.",
	"I take calculated risks to move forward.",
	"I celebrate small wins along the way.",
}

// AnswerLabels maps Likert values to their wording.
var AnswerLabels = map[int]string{
	1: "strongly disagree",
	2: "disagree",
	3: "neutral",
	4: "agree",
	5: "strongly agree",
}

// FormatAnswers renders answers one per line with the question text.
func FormatAnswers(answers []models.Answer) string {
	lines := make([]string, 0, len(answers))
	for _, a := range answers {
		question := fmt.Sprintf("Question %d", a.QuestionID+1)
		if a.QuestionID >= 0 && a.QuestionID < QuestionCount {
			question = Questions[a.QuestionID]
		}
		label, ok := AnswerLabels[a.Value]
		if !ok {
			label = strconv.Itoa(a.Value)
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%d/5)", question, label, a.Value))
	}
	return strings.Join(lines, "\n")
}

func pillarPrompt(goal string, answers []models.Answer) string {
	return fmt.Sprintf(`You are a personal development coach analyzing self-assessment responses.

USER'S GOAL: %s

USER'S SELF-ASSESSMENT (1=strongly disagree, 5=strongly agree):
%s

Based on their responses, identify the 8 most important life areas (pillars) this person should focus on to achieve their goal. Focus on areas where they scored lowest or where improvement would have the biggest impact.

Common pillar categories include: Discipline, Health, Networking, Finance, Relationships, Career, Personal Growth, Spirituality, Skills, Mindset, Time Management, Learning, Creativity.

Return ONLY a JSON array of exactly 8 pillar names, nothing else:
["Pillar 1", "Pillar 2", "Pillar 3", "Pillar 4", "Pillar 5", "Pillar 6", "Pillar 7", "Pillar 8"]

Keep pillar names short (1-3 words each).`, goal, FormatAnswers(answers))
}

func taskPrompt(goal string, pillars []string, answers []models.Answer) string {
	return fmt.Sprintf(`You are a personal development coach creating actionable task lists.

USER'S MAIN GOAL: %s

USER'S 8 FOCUS PILLARS: %s

USER'S SELF-ASSESSMENT (1=strongly disagree, 5=strongly agree):
%s

Create 8 specific, actionable tasks for EACH pillar. Each task should:
- Be concrete and achievable in a single day
- Build progressively in difficulty (task 1 easiest, task 8 most challenging)
- Directly support both the pillar AND the main goal
- Be personalized based on the self-assessment

Return ONLY a JSON object in this exact format with no markdown and no preamble:
{
  "tasks": {
    "Pillar Name 1": ["task 1", "task 2", "task 3", "task 4", "task 5", "task 6", "task 7", "task 8"],
    "Pillar Name 2": ["task 1", "task 2", "task 3", "task 4", "task 5", "task 6", "task 7", "task 8"]
  }
}

Use the EXACT pillar names provided.`, goal, strings.Join(pillars, ", "), FormatAnswers(answers))
}
