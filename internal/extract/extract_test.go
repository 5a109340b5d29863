package extract

import (
	"strings"
	"testing"
)

func TestCodeTaggedFence(t *testing.T) {
	text := "Here is the solution:\n```python\nprint('hello')\n```\nDone."
	if got := Code(text); got != "print('hello')" {
		t.Errorf("Code() = %q", got)
	}
}

func TestCodeLongestWins(t *testing.T) {
	short := "print('probe')"
	long := "import requests\nr = requests.get('https://example.com')\nprint(r.status_code)"
	text := "First a quick check:\n```python\n" + short + "\n```\nThen the real one:\n```python\n" + long + "\n```\n"

	got := Code(text)
	if got != long {
		t.Errorf("Code() = %q, want the longer block verbatim", got)
	}
}

func TestCodeUntaggedNeedsIndicator(t *testing.T) {
	text := "```\njust prose, nothing else here\n```"
	if got := Code(text); got != "" {
		t.Errorf("Code() = %q, want empty for non-code fence", got)
	}

	text = "```\nimport os\nprint(os.getcwd())\n```"
	if got := Code(text); !strings.Contains(got, "import os") {
		t.Errorf("Code() = %q, want untagged code fence", got)
	}
}

func TestCodeNoMatch(t *testing.T) {
	if got := Code("no fences at all"); got != "" {
		t.Errorf("Code() = %q, want empty", got)
	}
	if got := Code(""); got != "" {
		t.Errorf("Code(\"\") = %q, want empty", got)
	}
}

func TestCodeStripsThinking(t *testing.T) {
	text := "<think>```python\nprint('internal')\n```</think>\n```python\nprint('real')\n```"
	if got := Code(text); got != "print('real')" {
		t.Errorf("Code() = %q, want thinking block ignored", got)
	}
}

func TestJSONObjectPlain(t *testing.T) {
	var v struct {
		Parallel bool `json:"parallel"`
	}
	if !JSONObject(`{"parallel": true}`, &v) || !v.Parallel {
		t.Error("plain JSON object should parse")
	}
}

func TestJSONObjectInFence(t *testing.T) {
	text := "Sure! Here's the plan:\n```json\n{\"parallel\": true, \"subtasks\": [{\"id\": \"task_1\"}, {\"id\": \"task_2\"}]}\n```\nHope that helps."

	var v struct {
		Parallel bool `json:"parallel"`
		Subtasks []struct {
			ID string `json:"id"`
		} `json:"subtasks"`
	}
	if !JSONObject(text, &v) {
		t.Fatal("fenced JSON should parse")
	}
	if len(v.Subtasks) != 2 || v.Subtasks[1].ID != "task_2" {
		t.Errorf("subtasks = %+v", v.Subtasks)
	}
}

func TestJSONObjectNested(t *testing.T) {
	text := `prose {"a": {"b": "with } brace in string"}, "c": 1} trailing`
	var v map[string]any
	if !JSONObject(text, &v) {
		t.Fatal("nested JSON with brace-in-string should parse")
	}
	if v["c"] != float64(1) {
		t.Errorf("c = %v", v["c"])
	}
}

func TestJSONObjectFailure(t *testing.T) {
	var v map[string]any
	if JSONObject("no json here {broken", &v) {
		t.Error("malformed text should not parse")
	}
	if JSONObject("", &v) {
		t.Error("empty text should not parse")
	}
}

func TestSlug(t *testing.T) {
	cases := []struct{ in, want string }{
		{"Fetch Bitcoin Price!", "fetch-bitcoin-price"},
		{"  spaces   and---dashes ", "spaces-and-dashes"},
		{strings.Repeat("a", 80), strings.Repeat("a", 50)},
	}
	for _, tc := range cases {
		if got := Slug(tc.in); got != tc.want {
			t.Errorf("Slug(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
