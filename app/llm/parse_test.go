package llm

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eightPillars = []string{"Discipline", "Health", "Networking", "Finance", "Relationships", "Career", "Mindset", "Learning"}

func pillarJSON() string {
	return `["Discipline","Health","Networking","Finance","Relationships","Career","Mindset","Learning"]`
}

func TestParsePillarsFencedAndBare(t *testing.T) {
	bare, err := ParsePillars(pillarJSON())
	require.NoError(t, err)

	fenced, err := ParsePillars("```json\n" + pillarJSON() + "\n```")
	require.NoError(t, err)

	assert.Equal(t, eightPillars, bare)
	assert.Equal(t, bare, fenced)
}

func TestParsePillarsInsideProse(t *testing.T) {
	raw := "Here are your pillars:\n" + pillarJSON() + "\nGood luck!"
	got, err := ParsePillars(raw)
	require.NoError(t, err)
	assert.Equal(t, eightPillars, got)
}

func TestParsePillarsRejects(t *testing.T) {
	cases := map[string]string{
		"prose":       "I think you should focus on health and discipline.",
		"seven":       `["a","b","c","d","e","f","g"]`,
		"blank entry": `["a","b","c","d","e","f","g","  "]`,
		"object":      `{"pillars": 8}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePillars(raw)
			var invalidErr *InvalidResponseError
			require.True(t, errors.As(err, &invalidErr), "err = %v", err)
			assert.Equal(t, raw, invalidErr.Raw)
		})
	}
}

func taskObject(names []string) string {
	var parts []string
	for _, name := range names {
		var tasks []string
		for i := 0; i < TasksPerPillar; i++ {
			tasks = append(tasks, fmt.Sprintf(`"%s task %d"`, name, i))
		}
		parts = append(parts, fmt.Sprintf(`"%s": [%s]`, name, strings.Join(tasks, ",")))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func TestParseTasksWrappedAndBare(t *testing.T) {
	wrapped, err := ParseTasks(`{"tasks": `+taskObject(eightPillars)+`}`, eightPillars)
	require.NoError(t, err)

	bare, err := ParseTasks(taskObject(eightPillars), eightPillars)
	require.NoError(t, err)

	assert.Equal(t, wrapped, bare)
	assert.Len(t, bare, PillarCount)
	assert.Equal(t, "Health task 0", bare["Health"][0])
	assert.Equal(t, "Learning task 7", bare["Learning"][7])
}

func TestParseTasksCaseInsensitiveKeys(t *testing.T) {
	lowered := make([]string, len(eightPillars))
	for i, p := range eightPillars {
		lowered[i] = " " + strings.ToLower(p) + " "
	}
	got, err := ParseTasks("```\n"+taskObject(lowered)+"\n```", eightPillars)
	require.NoError(t, err)

	// keys follow the stored pillar titles, not the reply's spelling
	require.Contains(t, got, "Finance")
	assert.Equal(t, "finance  task 3", got["Finance"][3])
}

func TestParseTasksRejects(t *testing.T) {
	t.Run("missing pillar", func(t *testing.T) {
		_, err := ParseTasks(taskObject(eightPillars[:7]), eightPillars)
		var invalidErr *InvalidResponseError
		require.ErrorAs(t, err, &invalidErr)
	})

	t.Run("short list", func(t *testing.T) {
		raw := strings.Replace(taskObject(eightPillars), `,"Health task 7"`, "", 1)
		_, err := ParseTasks(raw, eightPillars)
		var invalidErr *InvalidResponseError
		require.ErrorAs(t, err, &invalidErr)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := ParseTasks("Sorry, I can't help with that.", eightPillars)
		var invalidErr *InvalidResponseError
		require.ErrorAs(t, err, &invalidErr)
	})
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `["a]b", "c"]`, extractJSON(`prefix ["a]b", "c"] suffix`))
	assert.Equal(t, `{"k": "\"}"}`, extractJSON(`x {"k": "\"}"} y`))
	assert.Equal(t, "", extractJSON("no json here"))
	assert.Equal(t, "", extractJSON("[unterminated"))
}
