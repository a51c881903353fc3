package docs

import (
	"strings"
	"testing"
)

func TestAll_ReturnsTopics(t *testing.T) {
	topics := All()
	if len(topics) == 0 {
		t.Fatal("All() returned no topics")
	}
	if topics[0].Name != "quickstart" {
		t.Errorf("first topic = %q, want %q", topics[0].Name, "quickstart")
	}
}

func TestAll_NoDuplicateNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, topic := range All() {
		if seen[topic.Name] {
			t.Errorf("duplicate topic name: %q", topic.Name)
		}
		seen[topic.Name] = true
	}
}

func TestAll_AllFieldsPopulated(t *testing.T) {
	for _, topic := range All() {
		if topic.Name == "" {
			t.Error("topic has empty Name")
		}
		if topic.Title == "" {
			t.Errorf("topic %q has empty Title", topic.Name)
		}
		if topic.Summary == "" {
			t.Errorf("topic %q has empty Summary", topic.Name)
		}
		if !strings.HasPrefix(topic.Content, "# "+topic.Title) {
			t.Errorf("topic %q content should open with its title", topic.Name)
		}
	}
}

func TestEndpoints_ListsEveryWebhook(t *testing.T) {
	topic, err := Get("endpoints")
	if err != nil {
		t.Fatal(err)
	}
	for _, ep := range []string{"initialize", "analyze", "preferences", "generate", "chat", "push"} {
		if !strings.Contains(topic.Content, "/webhook/"+ep) {
			t.Errorf("endpoints topic missing %s", ep)
		}
	}
}

func TestGet_Found(t *testing.T) {
	topic, err := Get("quickstart")
	if err != nil {
		t.Fatalf("Get(quickstart) error: %v", err)
	}
	if topic.Name != "quickstart" {
		t.Errorf("Name = %q, want %q", topic.Name, "quickstart")
	}
}

func TestGet_NotFound(t *testing.T) {
	_, err := Get("nonexistent")
	if err == nil {
		t.Fatal("Get(nonexistent) should return error")
	}
	if !strings.Contains(err.Error(), "docugithub docs") {
		t.Errorf("error should hint at the docs command: %v", err)
	}
	if !strings.Contains(err.Error(), "quickstart") {
		t.Errorf("error should list the topics: %v", err)
	}
}

func TestGet_IgnoresCaseAndMatchesTitle(t *testing.T) {
	for _, name := range []string{"QuickStart", " quickstart ", strings.ToUpper(All()[0].Title)} {
		topic, err := Get(name)
		if err != nil {
			t.Fatalf("Get(%q) error: %v", name, err)
		}
		if topic.Name != "quickstart" {
			t.Errorf("Get(%q).Name = %q, want quickstart", name, topic.Name)
		}
	}
}

func TestAll_ReturnsCopy(t *testing.T) {
	All()[0].Name = "changed"
	if All()[0].Name != "quickstart" {
		t.Error("All() exposes the package topic list")
	}
}
